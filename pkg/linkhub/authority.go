// Package linkhub is a client for the Linkhub authority: it issues session
// tokens for partner services, reports the authority's clock, and reports
// the partner's remaining balance.
//
// Token requests are signed with the partner secret (see Sign). Every error
// returned by an Authority method is a *Error.
package linkhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/httpx"
)

const (
	// DefaultAuthURL is the production authority endpoint.
	DefaultAuthURL = "https://auth.linkhub.co.kr"

	// APIVersion is sent as x-lh-version and folded into every signature.
	APIVersion = "1.0"

	defaultTimeout = 30 * time.Second
)

// Authority talks to the Linkhub authority on behalf of one partner.
type Authority struct {
	BaseURL    string
	HTTPClient *http.Client

	linkID    string
	secretKey string
	forwardIP string
	localTime func() time.Time
}

// AuthorityOption configures an Authority.
type AuthorityOption func(*Authority)

// WithAuthURL points the authority client at another base URL.
func WithAuthURL(baseURL string) AuthorityOption {
	return func(a *Authority) {
		a.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAuthHTTPClient replaces the HTTP client used for authority calls.
func WithAuthHTTPClient(client *http.Client) AuthorityOption {
	return func(a *Authority) {
		if client != nil {
			a.HTTPClient = client
		}
	}
}

// WithForwardIP sends x-lh-forwarded and binds issued tokens to ip.
func WithForwardIP(ip string) AuthorityOption {
	return func(a *Authority) {
		a.forwardIP = strings.TrimSpace(ip)
	}
}

// WithLocalTime signs token requests with the local clock instead of first
// asking the authority for its time. Saves a round trip per token request
// at the cost of being sensitive to clock skew.
func WithLocalTime(now func() time.Time) AuthorityOption {
	return func(a *Authority) {
		a.localTime = now
	}
}

// NewAuthority creates an authority client for the given partner credentials.
func NewAuthority(linkID, secretKey string, opts ...AuthorityOption) *Authority {
	a := &Authority{
		BaseURL:    DefaultAuthURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		linkID:     linkID,
		secretKey:  secretKey,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LinkID returns the partner identifier this client signs as.
func (a *Authority) LinkID() string { return a.linkID }

// GetTime returns the authority's current time as the raw timestamp text it
// sent, e.g. "2025-01-02T03:04:05Z".
func (a *Authority) GetTime(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/Time", nil)
	if err != nil {
		return "", wrapError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept-Encoding", httpx.AcceptEncoding)

	body, err := a.do(req)
	if err != nil {
		return "", err
	}

	return strings.Trim(strings.TrimSpace(string(body)), `"`), nil
}

// GetToken requests a session token for serviceID with the given scopes.
// accessID selects a sub-account and may be empty.
func (a *Authority) GetToken(
	ctx context.Context,
	serviceID, accessID string,
	scopes []string,
) (*Token, error) {
	uri := "/" + serviceID + "/Token"

	body, err := json.Marshal(TokenRequest{AccessID: accessID, Scope: scopes})
	if err != nil {
		return nil, wrapError(fmt.Errorf("failed to marshal token request: %w", err))
	}

	xDate, err := a.signingTime(ctx)
	if err != nil {
		return nil, err
	}

	target := DigestTarget(http.MethodPost, body, xDate, a.forwardIP, APIVersion, uri)
	signature, err := Sign(a.secretKey, target)
	if err != nil {
		return nil, wrapError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+uri, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json;")
	req.Header.Set("Accept-Encoding", httpx.AcceptEncoding)
	req.Header.Set("x-lh-date", xDate)
	req.Header.Set("x-lh-version", APIVersion)
	if a.forwardIP != "" {
		req.Header.Set("x-lh-forwarded", a.forwardIP)
	}
	req.Header.Set("Authorization", AuthorizationHeader(a.linkID, signature))

	respBody, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var token Token
	if err := json.Unmarshal(respBody, &token); err != nil {
		return nil, wrapError(fmt.Errorf("failed to decode token response: %w", err))
	}
	if token.SessionToken == "" {
		return nil, NewError(ErrCodeUnknown, "authority returned an empty session token")
	}

	return &token, nil
}

// GetPartnerBalance returns the partner's remaining points for serviceID.
func (a *Authority) GetPartnerBalance(ctx context.Context, sessionToken, serviceID string) (float64, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		a.BaseURL+"/"+serviceID+"/PartnerPoint",
		nil,
	)
	if err != nil {
		return 0, wrapError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	req.Header.Set("Accept-Encoding", httpx.AcceptEncoding)

	body, err := a.do(req)
	if err != nil {
		return 0, err
	}

	var point PointResponse
	if err := json.Unmarshal(body, &point); err != nil {
		return 0, wrapError(fmt.Errorf("failed to decode balance response: %w", err))
	}

	return point.RemainPoint, nil
}

func (a *Authority) signingTime(ctx context.Context) (string, error) {
	if a.localTime != nil {
		return a.localTime().UTC().Format(time.RFC3339), nil
	}
	return a.GetTime(ctx)
}

// do sends req and returns the decoded body of a 2xx response. Any other
// outcome becomes a *Error.
func (a *Authority) do(req *http.Request) ([]byte, error) {
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, wrapError(fmt.Errorf("failed to send request: %w", err))
	}

	body, readErr := httpx.ReadBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			body = nil
		}
		return nil, parseErrorResponse(resp, body)
	}
	if readErr != nil {
		return nil, wrapError(readErr)
	}

	return body, nil
}
