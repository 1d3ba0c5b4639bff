package closedown

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/closedown/pkg/httpx"
	"github.com/aussiebroadwan/closedown/pkg/linkhub"
)

// Option configures a Checker.
type Option func(*Checker)

// WithServiceURL points the Checker at another lookup service base URL.
func WithServiceURL(baseURL string) Option {
	return func(c *Checker) {
		c.ServiceURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAuthURL points the default authority client at another base URL.
// Ignored when WithAuthority is used.
func WithAuthURL(baseURL string) Option {
	return func(c *Checker) {
		c.authOpts = append(c.authOpts, linkhub.WithAuthURL(baseURL))
	}
}

// WithForwardIP binds issued session tokens to the caller's IP address.
// Ignored when WithAuthority is used.
func WithForwardIP(ip string) Option {
	return func(c *Checker) {
		c.authOpts = append(c.authOpts, linkhub.WithForwardIP(ip))
	}
}

// WithHTTPClient replaces the HTTP client used for both the lookup service
// and the default authority client. The client is used as is; no logging
// transport is added to it.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		c.HTTPClient = client
	}
}

// WithLogger sets the logger used for the Checker's own log lines and for
// the default HTTP client's request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuthority replaces the Linkhub authority client, typically with a fake.
func WithAuthority(authority Authority) Option {
	return func(c *Checker) {
		c.authority = authority
	}
}

// WithScopes overrides the scopes requested with each session token.
func WithScopes(scopes ...string) Option {
	return func(c *Checker) {
		c.scopes = append([]string(nil), scopes...)
	}
}

// WithRateLimit paces requests to the lookup service.
func WithRateLimit(config httpx.RateLimitConfig) Option {
	return func(c *Checker) {
		c.limiter = httpx.NewLimiter(config)
	}
}

// WithMetrics records request and renewal metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}
