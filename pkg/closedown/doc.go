/*
Package closedown provides a client for the Linkhub business closure-status
lookup service.

# Overview

A Checker answers three questions about Korean business registration
numbers and the partner account behind it:

  - CheckCorpNum / CheckCorpNums: is the business active, suspended or closed?
  - GetUnitCost: what does one lookup cost?
  - GetBalance: how many points does the partner have left?

Create a Checker with the partner credentials issued by Linkhub:

	checker := closedown.NewChecker(linkID, secretKey)

	state, err := checker.CheckCorpNum(ctx, "1234567890")
	if err != nil {
		return err
	}
	if state.IsClosed() {
		fmt.Println("closed on", state.StateDate)
	}

Batch lookups keep the order of the input:

	states, err := checker.CheckCorpNums(ctx, []string{"1234567890", "4108600477"})

# Session Tokens

Every lookup request carries a bearer session token issued by the Linkhub
authority. The Checker acquires one lazily on the first operation and
caches it. Before each later operation it asks the authority for the
current time and renews the token if that time is at or past the token's
expiration. Local clocks are never consulted for expiry.

Renewal happens at most once per operation and is never retried; a request
rejected by the service is not retried with a fresh token either.

# Errors

Every failure is an *Error carrying a numeric code and a message. Codes
reported by the service or the authority are passed through unchanged.
Everything else (missing input, network failures, malformed responses) uses
ErrCodeUnknown:

	state, err := checker.CheckCorpNum(ctx, corpNum)
	if cdErr, ok := closedown.AsError(err); ok {
		log.Printf("lookup failed: code=%d message=%s", cdErr.Code, cdErr.Message)
	}

The underlying cause stays reachable through errors.Is and errors.As, so a
cancelled context can still be detected with errors.Is(err, context.Canceled).

# Thread Safety

A Checker is safe for concurrent use. The cached token is guarded by a
mutex held across the expiry check and the renewal, so concurrent callers
never observe a half-written token and at most one renewal runs at a time.
Callers that need parallel renewals should use one Checker per goroutine.

# Options

	checker := closedown.NewChecker(linkID, secretKey,
		closedown.WithLogger(logger),
		closedown.WithRateLimit(httpx.PerSecond(5)),
		closedown.WithMetrics(closedown.NewMetrics(prometheus.DefaultRegisterer)),
	)

Tests point the Checker at the in-process fake from the closedowntest
package with WithServiceURL and WithAuthURL.
*/
package closedown
