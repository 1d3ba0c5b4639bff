package closedown

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/httpx"
	"github.com/aussiebroadwan/closedown/pkg/linkhub"
	"github.com/aussiebroadwan/closedown/pkg/slogx"
)

const (
	// ServiceID identifies the lookup service to the authority.
	ServiceID = "CLOSEDOWN"

	// DefaultServiceURL is the production lookup service endpoint.
	DefaultServiceURL = "https://closedown.linkhub.co.kr"

	// APIVersion is sent as x-api-version on every lookup request.
	APIVersion = "1.0"

	// ScopeCheck is the scope granting closure-status lookups.
	ScopeCheck = "170"

	defaultTimeout = 30 * time.Second
)

// Authority issues session tokens and reports the authority clock and the
// partner balance. *linkhub.Authority implements it.
type Authority interface {
	GetTime(ctx context.Context) (string, error)
	GetToken(ctx context.Context, serviceID, accessID string, scopes []string) (*linkhub.Token, error)
	GetPartnerBalance(ctx context.Context, sessionToken, serviceID string) (float64, error)
}

var _ Authority = (*linkhub.Authority)(nil)

// Checker is a client for the business closure-status lookup service. It
// holds one cached session token, renewed when the authority's clock says it
// has expired. A Checker is safe for concurrent use.
type Checker struct {
	ServiceURL string
	HTTPClient *http.Client

	authority Authority
	authOpts  []linkhub.AuthorityOption
	scopes    []string
	logger    *slog.Logger
	limiter   *httpx.Limiter
	metrics   *Metrics

	mu    sync.Mutex
	token *linkhub.Token
}

// NewChecker creates a Checker for the partner identified by linkID and
// secretKey. No network call is made until the first operation.
func NewChecker(linkID, secretKey string, opts ...Option) *Checker {
	c := &Checker{
		ServiceURL: DefaultServiceURL,
		scopes:     []string{ScopeCheck},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: slogx.Transport(c.logger, http.DefaultTransport),
		}
	}
	if c.authority == nil {
		authOpts := append([]linkhub.AuthorityOption{linkhub.WithAuthHTTPClient(c.HTTPClient)}, c.authOpts...)
		c.authority = linkhub.NewAuthority(linkID, secretKey, authOpts...)
	}
	c.authOpts = nil

	return c
}

// GetBalance returns the partner's remaining points.
func (c *Checker) GetBalance(ctx context.Context) (float64, error) {
	ctx = slogx.WithContext(ctx, c.logger)

	token, err := c.getValidToken(ctx)
	if err != nil {
		return 0, err
	}

	balance, err := c.authority.GetPartnerBalance(ctx, token, ServiceID)
	if err != nil {
		return 0, wrapAuthorityError(err)
	}
	return balance, nil
}

// GetUnitCost returns the current price of one lookup.
func (c *Checker) GetUnitCost(ctx context.Context) (float32, error) {
	var resp unitCostResponse
	if err := c.httpGet(ctx, "/UnitCost", &resp); err != nil {
		return 0, err
	}
	return float32(resp.UnitCost), nil
}

// CheckCorpNum looks up the closure status of one business registration
// number. An empty corpNum fails with ErrMissingCorpNum before any request.
func (c *Checker) CheckCorpNum(ctx context.Context, corpNum string) (*CorpState, error) {
	if corpNum == "" {
		return nil, ErrMissingCorpNum.clone()
	}

	var state CorpState
	if err := c.httpGet(ctx, "/Check?CN="+url.QueryEscape(corpNum), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// CheckCorpNums looks up many registration numbers in one request. Results
// are in the order of corpNums. An empty list fails with ErrMissingCorpNums
// before any request.
func (c *Checker) CheckCorpNums(ctx context.Context, corpNums []string) ([]CorpState, error) {
	if len(corpNums) == 0 {
		return nil, ErrMissingCorpNums.clone()
	}

	body, err := json.Marshal(corpNums)
	if err != nil {
		return nil, wrapError(fmt.Errorf("failed to marshal corp numbers: %w", err))
	}

	var states []CorpState
	if err := c.httpPost(ctx, "/Check", string(body), &states); err != nil {
		return nil, err
	}

	if len(states) != len(corpNums) {
		c.logger.WarnContext(ctx, "closedown_batch_size_mismatch",
			"requested", len(corpNums),
			"returned", len(states),
		)
	}
	return states, nil
}

// endpointLabel strips the query so metric labels stay bounded.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
