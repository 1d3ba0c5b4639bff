package closedown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/closedown/pkg/linkhub"
	"github.com/aussiebroadwan/closedown/pkg/slogx"
)

// stubAuthority hands out numbered tokens and reports a settable time.
type stubAuthority struct {
	mu         sync.Mutex
	now        string
	expiration string
	timeErr    error
	tokenErr   error
	tokenCalls int
	timeCalls  int
}

func (a *stubAuthority) GetTime(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timeCalls++
	return a.now, a.timeErr
}

func (a *stubAuthority) GetToken(_ context.Context, serviceID, _ string, scopes []string) (*linkhub.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokenCalls++
	if a.tokenErr != nil {
		return nil, a.tokenErr
	}
	return &linkhub.Token{
		SessionToken: fmt.Sprintf("token-%d", a.tokenCalls),
		ServiceID:    serviceID,
		Expiration:   a.expiration,
		Scope:        scopes,
	}, nil
}

func (a *stubAuthority) GetPartnerBalance(context.Context, string, string) (float64, error) {
	return 0, nil
}

func (a *stubAuthority) calls() (tokens, times int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenCalls, a.timeCalls
}

func newStubChecker(auth *stubAuthority, opts ...Option) *Checker {
	opts = append([]Option{WithAuthority(auth), WithLogger(slogx.Discard())}, opts...)
	return NewChecker("L", "c2VjcmV0", opts...)
}

func TestGetValidToken_AcquiresLazily(t *testing.T) {
	auth := &stubAuthority{now: "2025-01-02T03:00:00Z", expiration: "2025-01-02T04:00:00Z"}
	c := newStubChecker(auth)

	tokens, times := auth.calls()
	require.Zero(t, tokens, "constructor must not contact the authority")
	require.Zero(t, times)

	token, err := c.getValidToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "token-1", token)

	tokens, times = auth.calls()
	require.Equal(t, 1, tokens)
	require.Zero(t, times, "no server time needed without a cached token")
}

func TestGetValidToken_ReusesUntilExpired(t *testing.T) {
	auth := &stubAuthority{now: "2025-01-02T03:00:00Z", expiration: "2025-01-02T04:00:00Z"}
	c := newStubChecker(auth)
	ctx := context.Background()

	_, err := c.getValidToken(ctx)
	require.NoError(t, err)

	token, err := c.getValidToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-1", token)

	tokens, times := auth.calls()
	require.Equal(t, 1, tokens)
	require.Equal(t, 1, times)

	// Exactly at expiration counts as expired
	auth.mu.Lock()
	auth.now = "2025-01-02T04:00:00Z"
	auth.mu.Unlock()

	token, err = c.getValidToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-2", token)
}

func TestGetValidToken_UnparsableTimestampsRenew(t *testing.T) {
	tests := []struct {
		name       string
		now        string
		expiration string
	}{
		{"bad expiration", "2025-01-02T03:00:00Z", "tomorrow"},
		{"bad server time", "soon", "2025-01-02T04:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &stubAuthority{now: tt.now, expiration: tt.expiration}
			c := newStubChecker(auth)

			_, err := c.getValidToken(context.Background())
			require.NoError(t, err)
			token, err := c.getValidToken(context.Background())
			require.NoError(t, err)
			require.Equal(t, "token-2", token)
		})
	}
}

func TestGetValidToken_TimeFailureKeepsToken(t *testing.T) {
	auth := &stubAuthority{now: "2025-01-02T03:00:00Z", expiration: "2025-01-02T04:00:00Z"}
	c := newStubChecker(auth)
	ctx := context.Background()

	_, err := c.getValidToken(ctx)
	require.NoError(t, err)

	auth.mu.Lock()
	auth.timeErr = linkhub.NewError(-11000020, "clock unavailable")
	auth.mu.Unlock()

	_, err = c.getValidToken(ctx)
	cdErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, int64(-11000020), cdErr.Code)
	require.Equal(t, "clock unavailable", cdErr.Message)
	require.Equal(t, "2025-01-02T04:00:00Z", c.Expiration())

	tokens, _ := auth.calls()
	require.Equal(t, 1, tokens)
}

func TestGetValidToken_AuthorityFailure(t *testing.T) {
	t.Run("coded failure passes through", func(t *testing.T) {
		auth := &stubAuthority{tokenErr: linkhub.NewError(-11000003, "signature mismatch")}
		_, err := newStubChecker(auth).getValidToken(context.Background())

		cdErr, ok := AsError(err)
		require.True(t, ok)
		require.Equal(t, int64(-11000003), cdErr.Code)
		require.Equal(t, "signature mismatch", cdErr.Message)
	})

	t.Run("uncoded failure becomes sentinel", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		auth := &stubAuthority{tokenErr: cause}
		_, err := newStubChecker(auth).getValidToken(context.Background())

		cdErr, ok := AsError(err)
		require.True(t, ok)
		require.Equal(t, ErrCodeUnknown, cdErr.Code)
		require.ErrorIs(t, err, cause)
	})
}

func TestGetValidToken_ConcurrentCallersRenewOnce(t *testing.T) {
	auth := &stubAuthority{now: "2025-01-02T03:00:00Z", expiration: "2025-01-02T04:00:00Z"}
	c := newStubChecker(auth)

	errs := make(chan error, 16)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.getValidToken(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	tokens, _ := auth.calls()
	require.Equal(t, 1, tokens)
}

func TestResetSession(t *testing.T) {
	auth := &stubAuthority{now: "2025-01-02T03:00:00Z", expiration: "2025-01-02T04:00:00Z"}
	c := newStubChecker(auth)

	_, err := c.getValidToken(context.Background())
	require.NoError(t, err)
	c.ResetSession()
	require.Empty(t, c.Expiration())

	token, err := c.getValidToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "token-2", token)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, s := range []string{
		"2025-01-02T03:04:05Z",
		"2025-01-02T12:04:05+09:00",
		"2025-01-02T03:04:05",
		"2025-01-02T03:04:05.000",
		"2025-01-02 03:04:05",
	} {
		got, err := parseTimestamp(s)
		require.NoError(t, err, s)
		require.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	_, err := parseTimestamp("20250102")
	require.Error(t, err)
}
