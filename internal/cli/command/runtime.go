package command

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/closedown/internal/cli/config"
	"github.com/aussiebroadwan/closedown/internal/cli/output"
	"github.com/aussiebroadwan/closedown/internal/history"
	"github.com/aussiebroadwan/closedown/internal/history/drivers/sqlite"
	"github.com/aussiebroadwan/closedown/pkg/closedown"
	"github.com/aussiebroadwan/closedown/pkg/httpx"
	"github.com/aussiebroadwan/closedown/pkg/slogx"
)

// runtime holds what commands share for one invocation. The checker and the
// history store are built on first use.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *closedown.Metrics

	checker *closedown.Checker
	store   history.Store
}

func newRuntime(cfg config.Config, logOut io.Writer) *runtime {
	if logOut == nil {
		logOut = os.Stderr
	}

	registry := prometheus.NewRegistry()
	return &runtime{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "closedown",
			Version: Version,
			Env:     "cli",
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  logOut,
		}),
		registry: registry,
		metrics:  closedown.NewMetrics(registry),
	}
}

// Checker returns the lookup client, building it on first use.
func (rt *runtime) Checker() (*closedown.Checker, error) {
	if rt.checker != nil {
		return rt.checker, nil
	}
	if err := rt.cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	opts := []closedown.Option{
		closedown.WithServiceURL(rt.cfg.ServiceURL),
		closedown.WithAuthURL(rt.cfg.AuthURL),
		closedown.WithLogger(rt.logger),
		closedown.WithMetrics(rt.metrics),
		closedown.WithHTTPClient(&http.Client{
			Timeout:   rt.cfg.Timeout,
			Transport: slogx.Transport(rt.logger, http.DefaultTransport),
		}),
	}
	if rt.cfg.ForwardIP != "" {
		opts = append(opts, closedown.WithForwardIP(rt.cfg.ForwardIP))
	}
	switch {
	case rt.cfg.RateLimit > 0:
		opts = append(opts, closedown.WithRateLimit(httpx.PerSecond(rt.cfg.RateLimit)))
	case rateLimitFromEnv():
		opts = append(opts, closedown.WithRateLimit(httpx.ParseRateLimitFromEnv("CLOSEDOWN", httpx.DefaultLimit)))
	}

	rt.checker = closedown.NewChecker(rt.cfg.LinkID, rt.cfg.SecretKey, opts...)
	return rt.checker, nil
}

// Store opens the history database on first use.
func (rt *runtime) Store() (history.Store, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	if rt.cfg.HistoryDB == "" {
		return nil, errors.New("no history database configured (set --history-db or history_db)")
	}

	s, err := sqlite.NewStore(rt.cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := s.ApplyMigrations(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	rt.store = s
	return rt.store, nil
}

// Print writes data to the command's output in the configured format.
func (rt *runtime) Print(c *cli.Context, data any) error {
	format, err := output.ParseFormat(rt.cfg.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// Close writes the metrics textfile and closes the history store.
func (rt *runtime) Close() error {
	var errs []error
	if rt.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(rt.cfg.MetricsFile, rt.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics file: %w", err))
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history database: %w", err))
		}
		rt.store = nil
	}
	return errors.Join(errs...)
}

// rateLimitFromEnv reports whether any RATELIMIT_CLOSEDOWN_* variable is set.
func rateLimitFromEnv() bool {
	for _, key := range []string{"REQUESTS", "WINDOW_SEC", "BURST"} {
		if os.Getenv("RATELIMIT_CLOSEDOWN_"+key) != "" {
			return true
		}
	}
	return false
}
