package closedown

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/httpx"
	"github.com/aussiebroadwan/closedown/pkg/idx"
	"github.com/aussiebroadwan/closedown/pkg/slogx"
)

// httpGet performs an authenticated GET against the lookup service and
// decodes the JSON response into target.
func (c *Checker) httpGet(ctx context.Context, path string, target any) error {
	return c.dispatch(ctx, http.MethodGet, path, nil, target)
}

// httpPost performs an authenticated POST with a JSON body. body may be
// empty, in which case Content-Length is 0.
func (c *Checker) httpPost(ctx context.Context, path, body string, target any) error {
	return c.dispatch(ctx, http.MethodPost, path, []byte(body), target)
}

// dispatch makes exactly one request. Every failure is returned as an *Error.
func (c *Checker) dispatch(
	ctx context.Context,
	method, path string,
	body []byte,
	target any,
) (err error) {
	ctx = slogx.WithContext(ctx, c.logger)
	ctx = slogx.WithRequestID(ctx, idx.New().String())
	logger := slogx.FromContext(ctx)

	start := time.Now()
	defer func() {
		c.metrics.observeRequest(method, endpointLabel(path), err, time.Since(start))
	}()

	// Get a valid session token (renew if expired)
	token, err := c.getValidToken(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return wrapError(err)
	}

	var reader io.Reader
	if method == http.MethodPost {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ServiceURL+path, reader)
	if err != nil {
		return wrapError(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-api-version", APIVersion)
	req.Header.Set("Accept-Encoding", httpx.AcceptEncoding)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json;")
		req.ContentLength = int64(len(body))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.Warn("closedown_request_failed", "method", method, "path", endpointLabel(path), "error", err)
		return wrapError(fmt.Errorf("failed to send request: %w", err))
	}

	return decodeJSON(resp, target)
}

// decodeJSON reads the (possibly compressed) response body and decodes it
// into target on 2xx. Any other status is turned into an *Error.
func decodeJSON(resp *http.Response, target any) error {
	body, readErr := httpx.ReadBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			body = nil
		}
		return parseErrorResponse(resp, body)
	}
	if readErr != nil {
		return wrapError(readErr)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return wrapError(fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}
