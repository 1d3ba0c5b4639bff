package closedown

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/slogx"
)

// timestampLayouts are the formats the authority has used for expiration and
// server time. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// getValidToken returns the cached session token, acquiring a new one when
// none is cached or the authority's clock has reached its expiration. The
// lock is held across the check and the renewal so at most one renewal runs.
func (c *Checker) getValidToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := slogx.FromContext(ctx)

	if c.token != nil {
		expired, err := c.tokenExpired(ctx)
		if err != nil {
			return "", err
		}
		if !expired {
			return c.token.SessionToken, nil
		}
		logger.Debug("closedown_token_expired", "expiration", c.token.Expiration)
	}

	token, err := c.authority.GetToken(ctx, ServiceID, "", c.scopes)
	if err != nil {
		logger.Warn("closedown_token_failed", "error", err)
		return "", wrapAuthorityError(err)
	}
	if token == nil || token.SessionToken == "" {
		return "", NewError(ErrCodeUnknown, "authority returned an empty session token")
	}

	c.token = token
	c.metrics.incTokenRenewals()
	logger.Debug("closedown_token_acquired", "expiration", token.Expiration)

	return token.SessionToken, nil
}

// tokenExpired compares the cached token's expiration with the authority's
// current time. Unparsable timestamps count as expired. Must be called with
// c.mu held.
func (c *Checker) tokenExpired(ctx context.Context) (bool, error) {
	expiration, err := parseTimestamp(c.token.Expiration)
	if err != nil {
		slogx.FromContext(ctx).Debug("closedown_token_expiration_unparsable", "error", err)
		return true, nil
	}

	serverTime, err := c.authority.GetTime(ctx)
	if err != nil {
		return false, wrapAuthorityError(err)
	}

	now, err := parseTimestamp(serverTime)
	if err != nil {
		slogx.FromContext(ctx).Debug("closedown_server_time_unparsable", "error", err)
		return true, nil
	}

	return !now.Before(expiration), nil
}

// Expiration returns the cached session token's expiration as sent by the
// authority, or "" when no token is cached.
func (c *Checker) Expiration() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.Expiration
}

// ResetSession drops the cached session token; the next operation acquires
// a fresh one.
func (c *Checker) ResetSession() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}
