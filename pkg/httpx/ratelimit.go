package httpx

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the outbound rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// DefaultLimit paces lookups at 10 per second with a burst of 10. It is only
// applied when a caller opts into rate limiting.
// Override with: RATELIMIT_CLOSEDOWN_REQUESTS, RATELIMIT_CLOSEDOWN_WINDOW_SEC, RATELIMIT_CLOSEDOWN_BURST
var DefaultLimit = RateLimitConfig{
	RequestsPerWindow: 10,
	Window:            time.Second,
	Burst:             10,
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_CLOSEDOWN_REQUESTS, RATELIMIT_CLOSEDOWN_WINDOW_SEC, RATELIMIT_CLOSEDOWN_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// PerSecond builds a config allowing n requests per second with a burst of n.
// A non-positive n yields the zero config, which NewLimiter treats as unlimited.
func PerSecond(n float64) RateLimitConfig {
	if n <= 0 {
		return RateLimitConfig{}
	}
	burst := max(int(n), 1)
	return RateLimitConfig{
		RequestsPerWindow: burst,
		Window:            time.Duration(float64(burst) / n * float64(time.Second)),
		Burst:             burst,
	}
}

// Limiter paces outbound requests. A nil *Limiter never waits.
type Limiter struct {
	config  RateLimitConfig
	limiter *rate.Limiter
}

// NewLimiter creates a limiter from config. Non-positive windows or request
// counts produce an unlimited limiter.
func NewLimiter(config RateLimitConfig) *Limiter {
	limit := rate.Inf
	if config.RequestsPerWindow > 0 && config.Window > 0 {
		limit = rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds())
	}
	config.Burst = max(config.Burst, 1)

	return &Limiter{
		config:  config,
		limiter: rate.NewLimiter(limit, config.Burst),
	}
}

// Config returns the normalised configuration the limiter runs with.
func (l *Limiter) Config() RateLimitConfig {
	if l == nil {
		return RateLimitConfig{}
	}
	return l.config
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	reservation := l.limiter.Reserve()
	if !reservation.OK() {
		return fmt.Errorf("rate limit: burst %d cannot admit a request", l.config.Burst)
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}

	slogx.FromContext(ctx).Debug("rate limit: delaying request",
		"delay_ms", delay.Milliseconds(),
		"limit", l.config.RequestsPerWindow,
		"window", l.config.Window.String(),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		// Give the token back so the next caller is not penalised.
		reservation.Cancel()
		return fmt.Errorf("rate limit: %w", ctx.Err())
	}
}
