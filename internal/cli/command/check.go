package command

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/closedown/internal/history"
	"github.com/aussiebroadwan/closedown/pkg/closedown"
	"github.com/aussiebroadwan/closedown/pkg/slogx"
)

// CheckCommand looks up one or more registration numbers.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Look up the closure status of registration numbers",
		ArgsUsage: "CORPNUM [CORPNUM...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Record results in the history database",
			},
		},
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	rt := getRuntime(c)
	corpNums := c.Args().Slice()
	if len(corpNums) == 0 {
		return errors.New("at least one CORPNUM is required")
	}

	checker, err := rt.Checker()
	if err != nil {
		return err
	}

	ctx := slogx.WithContext(c.Context, rt.logger)

	var states []closedown.CorpState
	if len(corpNums) == 1 {
		state, err := checker.CheckCorpNum(ctx, corpNums[0])
		if err != nil {
			return err
		}
		states = []closedown.CorpState{*state}
	} else {
		states, err = checker.CheckCorpNums(ctx, corpNums)
		if err != nil {
			return err
		}
	}

	if c.Bool("record") {
		store, err := rt.Store()
		if err != nil {
			return err
		}
		if _, err := history.NewRecorder(store).Record(ctx, states...); err != nil {
			return err
		}
	}

	return rt.Print(c, newStateViews(states))
}
