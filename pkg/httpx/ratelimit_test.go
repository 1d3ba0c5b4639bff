package httpx_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Run("uses defaults when unset", func(t *testing.T) {
		cfg := httpx.ParseRateLimitFromEnv("UNSET_PREFIX", httpx.DefaultLimit)
		require.Equal(t, httpx.DefaultLimit, cfg)
	})

	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("RATELIMIT_TESTING_REQUESTS", "7")
		t.Setenv("RATELIMIT_TESTING_WINDOW_SEC", "3")
		t.Setenv("RATELIMIT_TESTING_BURST", "2")

		cfg := httpx.ParseRateLimitFromEnv("TESTING", httpx.DefaultLimit)
		require.Equal(t, 7, cfg.RequestsPerWindow)
		require.Equal(t, 3*time.Second, cfg.Window)
		require.Equal(t, 2, cfg.Burst)
	})

	t.Run("ignores invalid values", func(t *testing.T) {
		t.Setenv("RATELIMIT_BAD_REQUESTS", "-1")
		t.Setenv("RATELIMIT_BAD_WINDOW_SEC", "soon")
		t.Setenv("RATELIMIT_BAD_BURST", "0")

		cfg := httpx.ParseRateLimitFromEnv("BAD", httpx.DefaultLimit)
		require.Equal(t, httpx.DefaultLimit, cfg)
	})
}

func TestPerSecond(t *testing.T) {
	cfg := httpx.PerSecond(5)
	require.Equal(t, 5, cfg.RequestsPerWindow)
	require.Equal(t, 5, cfg.Burst)
	require.Equal(t, time.Second, cfg.Window)

	slow := httpx.PerSecond(0.5)
	require.Equal(t, 1, slow.RequestsPerWindow)
	require.Equal(t, 2*time.Second, slow.Window)

	require.Equal(t, httpx.RateLimitConfig{}, httpx.PerSecond(0))
}

func TestLimiterWait(t *testing.T) {
	t.Run("nil limiter never waits", func(t *testing.T) {
		var l *httpx.Limiter
		require.NoError(t, l.Wait(context.Background()))
	})

	t.Run("burst passes without delay", func(t *testing.T) {
		l := httpx.NewLimiter(httpx.RateLimitConfig{
			RequestsPerWindow: 3,
			Window:            time.Minute,
			Burst:             3,
		})

		start := time.Now()
		for range 3 {
			require.NoError(t, l.Wait(context.Background()))
		}
		require.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("request over the burst honours context", func(t *testing.T) {
		l := httpx.NewLimiter(httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Hour,
			Burst:             1,
		})
		require.NoError(t, l.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := l.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("zero config is unlimited", func(t *testing.T) {
		l := httpx.NewLimiter(httpx.RateLimitConfig{})
		for range 100 {
			require.NoError(t, l.Wait(context.Background()))
		}
		require.Equal(t, 1, l.Config().Burst)
	})
}
