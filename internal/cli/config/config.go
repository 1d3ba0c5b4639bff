// Package config loads closedown CLI configuration.
//
// Sources, later overriding earlier: defaults, YAML file, an optional
// dotenv file, CLOSEDOWN_* environment variables, command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/closedown"
	"github.com/aussiebroadwan/closedown/pkg/linkhub"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "CLOSEDOWN_"

type Config struct {
	LinkID     string `koanf:"link_id"`     // Required for lookups: partner LinkID
	SecretKey  string `koanf:"secret_key"`  // Required for lookups: base64 partner secret
	ServiceURL string `koanf:"service_url"` // Optional: lookup service base URL
	AuthURL    string `koanf:"auth_url"`    // Optional: authority base URL
	ForwardIP  string `koanf:"forward_ip"`  // Optional: bind tokens to this IP

	Output    string `koanf:"output"`     // table, json, yaml (default: table)
	LogLevel  string `koanf:"log_level"`  // debug, info, warn, error (default: warn)
	LogFormat string `koanf:"log_format"` // json, text (default: text)

	HistoryDB   string        `koanf:"history_db"`   // Optional: SQLite file for the lookup ledger
	MetricsFile string        `koanf:"metrics_file"` // Optional: prometheus textfile written on exit
	RateLimit   float64       `koanf:"rate_limit"`   // Optional: lookup requests per second, 0 = unlimited
	Timeout     time.Duration `koanf:"timeout"`      // HTTP timeout (default: 30s)
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		ServiceURL: closedown.DefaultServiceURL,
		AuthURL:    linkhub.DefaultAuthURL,
		Output:     "table",
		LogLevel:   "warn",
		LogFormat:  "text",
		Timeout:    30 * time.Second,
	}
}

var (
	ErrMissingCredentials = errors.New("config: link_id and secret_key are required")
	ErrInvalidOutput      = errors.New("config: output must be table, json or yaml")
)

// Validate checks settings every command depends on.
func (c Config) Validate() error {
	switch strings.ToLower(c.Output) {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidOutput, c.Output)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rate_limit must not be negative, got %v", c.RateLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// RequireCredentials reports ErrMissingCredentials unless both partner
// credentials are set.
func (c Config) RequireCredentials() error {
	if c.LinkID == "" || c.SecretKey == "" {
		return ErrMissingCredentials
	}
	return nil
}
