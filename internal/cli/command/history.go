package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/closedown/internal/history"
	"github.com/aussiebroadwan/closedown/pkg/idx"
)

// HistoryCommand lists and prunes recorded lookups.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded lookups, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "corp-num",
				Usage: "Only show this registration number",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: history.DefaultListLimit,
				Usage: "Maximum number of entries",
			},
		},
		Action: historyList,
		Subcommands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete recorded lookups older than a duration",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:     "older-than",
						Usage:    "Delete entries older than this (e.g. 720h)",
						Required: true,
					},
				},
				Action: historyPrune,
			},
			{
				Name:      "show",
				Usage:     "Show one recorded lookup",
				ArgsUsage: "<id>",
				Action:    historyShow,
			},
			{
				Name:  "count",
				Usage: "Count recorded lookups",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "corp-num",
						Usage: "Only count this registration number",
					},
				},
				Action: historyCount,
			},
		},
	}
}

func historyList(c *cli.Context) error {
	rt := getRuntime(c)
	store, err := rt.Store()
	if err != nil {
		return err
	}

	lookups, err := store.Lookups().List(c.Context, history.ListFilter{
		CorpNum: c.String("corp-num"),
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return err
	}
	return rt.Print(c, newLookupViews(lookups))
}

func historyPrune(c *cli.Context) error {
	rt := getRuntime(c)
	store, err := rt.Store()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-c.Duration("older-than"))
	n, err := store.Lookups().Prune(c.Context, cutoff)
	if err != nil {
		return err
	}

	rt.logger.Info("history_pruned", "deleted", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	_, err = fmt.Fprintf(c.App.Writer, "deleted %d entries\n", n)
	return err
}

func historyShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one lookup ID is required")
	}
	id, err := idx.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("%q: %w", c.Args().First(), err)
	}

	rt := getRuntime(c)
	store, err := rt.Store()
	if err != nil {
		return err
	}

	lookup, err := store.Lookups().Get(c.Context, id.String())
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no recorded lookup %s", id)
	}
	if err != nil {
		return err
	}
	return rt.Print(c, newLookupViews([]history.Lookup{lookup}))
}

func historyCount(c *cli.Context) error {
	rt := getRuntime(c)
	store, err := rt.Store()
	if err != nil {
		return err
	}

	n, err := store.Lookups().Count(c.Context, c.String("corp-num"))
	if err != nil {
		return err
	}
	return rt.Print(c, countView{Entries: n})
}
