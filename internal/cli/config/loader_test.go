package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader(WithEnvPrefix("CLOSEDOWN_TEST_DEFAULTS_")).Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.ErrorIs(t, cfg.RequireCredentials(), ErrMissingCredentials)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "closedown.yaml", `
link_id: FROM_FILE
secret_key: c2VjcmV0
output: json
rate_limit: 2.5
timeout: 5s
`)
	t.Setenv("CLOSEDOWN_LINK_ID", "FROM_ENV")
	t.Setenv("CLOSEDOWN_LOG_LEVEL", "debug")

	cfg, err := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"output": "yaml"}),
	).Load()
	require.NoError(t, err)

	require.Equal(t, "FROM_ENV", cfg.LinkID)
	require.Equal(t, "c2VjcmV0", cfg.SecretKey)
	require.Equal(t, "yaml", cfg.Output)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 2.5, cfg.RateLimit)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.NoError(t, cfg.RequireCredentials())
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "CLOSEDOWN_DOTENV_LINK_ID=FROM_DOTENV\nCLOSEDOWN_DOTENV_SECRET_KEY=c2VjcmV0\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("CLOSEDOWN_DOTENV_LINK_ID")
		_ = os.Unsetenv("CLOSEDOWN_DOTENV_SECRET_KEY")
	})

	cfg, err := NewLoader(WithEnvPrefix("CLOSEDOWN_DOTENV_"), WithEnvFile(path)).Load()
	require.NoError(t, err)
	require.Equal(t, "FROM_DOTENV", cfg.LinkID)
	require.Equal(t, "c2VjcmV0", cfg.SecretKey)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := NewLoader(
		WithEnvPrefix("CLOSEDOWN_TEST_MISSING_"),
		WithEnvFile(filepath.Join(t.TempDir(), "nope.env")),
	).Load()
	require.NoError(t, err)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))).Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad output", func(c *Config) { c.Output = "xml" }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, Default().Validate())
}

func TestExists(t *testing.T) {
	require.True(t, Exists(writeFile(t, "x.yaml", "a: 1")))
	require.False(t, Exists(t.TempDir()))
	require.False(t, Exists(filepath.Join(t.TempDir(), "missing")))
}
