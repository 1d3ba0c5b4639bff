// Package command defines the closedown command-line interface.
package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/closedown/internal/cli/config"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// DefaultConfigFile is read from the working directory when --config is
// not given and the file exists.
const DefaultConfigFile = "closedown.yaml"

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "closedown",
		Usage:   "Look up whether Korean businesses are active, suspended or closed",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CheckCommand(),
			UnitCostCommand(),
			BalanceCommand(),
			HistoryCommand(),
		},
		Before: before,
		After:  after,
	}
}

// globalFlags returns the global CLI flags. Every flag also has a config
// key (dashes become underscores) and a CLOSEDOWN_ environment variable.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file (default: ./" + DefaultConfigFile + " if present)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file loaded before reading CLOSEDOWN_* variables",
		},
		&cli.StringFlag{
			Name:  "link-id",
			Usage: "Partner LinkID",
		},
		&cli.StringFlag{
			Name:  "secret-key",
			Usage: "Partner secret key (base64)",
		},
		&cli.StringFlag{
			Name:  "service-url",
			Usage: "Lookup service base URL",
		},
		&cli.StringFlag{
			Name:  "auth-url",
			Usage: "Linkhub authority base URL",
		},
		&cli.StringFlag{
			Name:  "forward-ip",
			Usage: "Bind session tokens to this client IP",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.StringFlag{
			Name:  "history-db",
			Usage: "SQLite file recording lookups made with --record",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write prometheus metrics to this textfile on exit",
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Usage: "Maximum lookup requests per second (0 = unlimited)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "HTTP timeout per request",
		},
	}
}

// overrideFlags are the global flags that map onto config keys.
var overrideFlags = []string{
	"link-id", "secret-key", "service-url", "auth-url", "forward-ip",
	"output", "log-level", "log-format", "history-db", "metrics-file",
	"rate-limit", "timeout",
}

// flagOverrides collects explicitly set flags as config overrides.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	for _, name := range overrideFlags {
		if !c.IsSet(name) {
			continue
		}
		key := strings.ReplaceAll(name, "-", "_")
		switch name {
		case "rate-limit":
			overrides[key] = c.Float64(name)
		case "timeout":
			overrides[key] = c.Duration(name).String()
		default:
			overrides[key] = c.String(name)
		}
	}
	return overrides
}

func before(c *cli.Context) error {
	opts := []config.Option{
		config.WithEnvFile(c.String("env-file")),
		config.WithOverrides(flagOverrides(c)),
	}
	switch path := c.String("config"); {
	case path != "":
		opts = append(opts, config.WithConfigFile(path))
	case config.Exists(DefaultConfigFile):
		opts = append(opts, config.WithConfigFile(DefaultConfigFile))
	}

	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[runtimeKey] = newRuntime(cfg, c.App.ErrWriter)
	return nil
}

func after(c *cli.Context) error {
	rt := getRuntime(c)
	if rt == nil {
		return nil
	}
	return rt.Close()
}

// getRuntime retrieves the runtime built by the Before hook.
func getRuntime(c *cli.Context) *runtime {
	if rt, ok := c.App.Metadata[runtimeKey].(*runtime); ok {
		return rt
	}
	return nil
}
