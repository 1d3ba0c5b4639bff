package linkhub_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/closedown/pkg/closedown/closedowntest"
	"github.com/aussiebroadwan/closedown/pkg/linkhub"
)

func newAuthority(srv *closedowntest.Server, opts ...linkhub.AuthorityOption) *linkhub.Authority {
	opts = append([]linkhub.AuthorityOption{linkhub.WithAuthURL(srv.URL)}, opts...)
	return linkhub.NewAuthority(srv.LinkID, srv.SecretKey, opts...)
}

func requireLinkhubError(t *testing.T, err error, code int64) *linkhub.Error {
	t.Helper()
	var lhErr *linkhub.Error
	require.True(t, errors.As(err, &lhErr), "expected *linkhub.Error, got %T", err)
	require.Equal(t, code, lhErr.Code)
	return lhErr
}

func TestGetTime(t *testing.T) {
	srv := closedowntest.NewServer()
	defer srv.Close()

	got, err := newAuthority(srv).GetTime(context.Background())
	require.NoError(t, err)
	require.Equal(t, srv.Now().Format(time.RFC3339), got)
}

func TestGetTime_TrimsQuotesAndWhitespace(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\"2025-01-02T03:04:05Z\"\n"))
	}))
	defer ts.Close()

	got, err := linkhub.NewAuthority("L", "c2VjcmV0", linkhub.WithAuthURL(ts.URL)).GetTime(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2025-01-02T03:04:05Z", got)
}

func TestGetToken(t *testing.T) {
	srv := closedowntest.NewServer(closedowntest.WithTokenTTL(30 * time.Minute))
	defer srv.Close()

	token, err := newAuthority(srv).GetToken(context.Background(), "CLOSEDOWN", "", []string{"170"})
	require.NoError(t, err)
	require.NotEmpty(t, token.SessionToken)
	require.Equal(t, "CLOSEDOWN", token.ServiceID)
	require.Equal(t, srv.LinkID, token.LinkID)
	require.Equal(t, []string{"170"}, token.Scope)
	require.Equal(t, srv.Now().Add(30*time.Minute).Format(time.RFC3339), token.Expiration)

	// Signing time came from the authority clock
	require.Equal(t, 1, srv.Calls(closedowntest.RouteTime))

	rec, ok := srv.LastRequest(closedowntest.RouteToken)
	require.True(t, ok)
	require.Equal(t, "1.0", rec.Header.Get("x-lh-version"))
	require.Equal(t, srv.Now().Format(time.RFC3339), rec.Header.Get("x-lh-date"))
	require.Equal(t, "application/json;", rec.Header.Get("Content-Type"))
	require.Empty(t, rec.Header.Get("x-lh-forwarded"))
	require.JSONEq(t, `{"scope":["170"]}`, string(rec.Body))
}

func TestGetToken_ForwardIP(t *testing.T) {
	srv := closedowntest.NewServer()
	defer srv.Close()

	token, err := newAuthority(srv, linkhub.WithForwardIP("192.0.2.7")).
		GetToken(context.Background(), "CLOSEDOWN", "user-1", []string{"170"})
	require.NoError(t, err)
	require.Equal(t, "192.0.2.7", token.IPAddress)
	require.Equal(t, "user-1", token.UserCode)

	rec, _ := srv.LastRequest(closedowntest.RouteToken)
	require.Equal(t, "192.0.2.7", rec.Header.Get("x-lh-forwarded"))
}

func TestGetToken_LocalTimeSkipsTimeRequest(t *testing.T) {
	srv := closedowntest.NewServer()
	defer srv.Close()

	auth := newAuthority(srv, linkhub.WithLocalTime(srv.Now))
	_, err := auth.GetToken(context.Background(), "CLOSEDOWN", "", []string{"170"})
	require.NoError(t, err)
	require.Zero(t, srv.Calls(closedowntest.RouteTime))
}

func TestGetToken_WrongSecret(t *testing.T) {
	srv := closedowntest.NewServer()
	defer srv.Close()

	auth := linkhub.NewAuthority(srv.LinkID, "d3Jvbmcgc2VjcmV0", linkhub.WithAuthURL(srv.URL))
	token, err := auth.GetToken(context.Background(), "CLOSEDOWN", "", []string{"170"})
	require.Nil(t, token)
	requireLinkhubError(t, err, closedowntest.CodeInvalidSignature)
}

func TestGetToken_ErrorBody(t *testing.T) {
	srv := closedowntest.NewServer()
	defer srv.Close()
	srv.Fail(closedowntest.RouteToken, http.StatusForbidden, -11000005, "partner suspended")

	_, err := newAuthority(srv).GetToken(context.Background(), "CLOSEDOWN", "", []string{"170"})
	lhErr := requireLinkhubError(t, err, -11000005)
	require.Equal(t, "partner suspended", lhErr.Message)
}

func TestGetToken_EmptySessionToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Time" {
			_, _ = w.Write([]byte("2025-01-02T03:04:05Z"))
			return
		}
		_, _ = w.Write([]byte(`{"session_token":"","expiration":"2025-01-02T04:04:05Z"}`))
	}))
	defer ts.Close()

	auth := linkhub.NewAuthority("L", "c2VjcmV0", linkhub.WithAuthURL(ts.URL))
	_, err := auth.GetToken(context.Background(), "CLOSEDOWN", "", nil)
	requireLinkhubError(t, err, linkhub.ErrCodeUnknown)
}

func TestGetToken_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	auth := linkhub.NewAuthority("L", "c2VjcmV0", linkhub.WithAuthURL(url))
	_, err := auth.GetToken(context.Background(), "CLOSEDOWN", "", []string{"170"})
	lhErr := requireLinkhubError(t, err, linkhub.ErrCodeUnknown)
	require.NotEmpty(t, lhErr.Message)
	require.NotNil(t, errors.Unwrap(lhErr))
}

func TestGetPartnerBalance(t *testing.T) {
	srv := closedowntest.NewServer(closedowntest.WithBalance(1234.5), closedowntest.WithGzip())
	defer srv.Close()

	auth := newAuthority(srv)
	token, err := auth.GetToken(context.Background(), "CLOSEDOWN", "", []string{"170"})
	require.NoError(t, err)

	balance, err := auth.GetPartnerBalance(context.Background(), token.SessionToken, "CLOSEDOWN")
	require.NoError(t, err)
	require.Equal(t, 1234.5, balance)
}

func TestGetPartnerBalance_BadToken(t *testing.T) {
	srv := closedowntest.NewServer()
	defer srv.Close()

	_, err := newAuthority(srv).GetPartnerBalance(context.Background(), "garbage", "CLOSEDOWN")
	requireLinkhubError(t, err, closedowntest.CodeUnauthorized)
}

func TestErrorBodyWithoutCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer ts.Close()

	_, err := linkhub.NewAuthority("L", "c2VjcmV0", linkhub.WithAuthURL(ts.URL)).GetTime(context.Background())
	lhErr := requireLinkhubError(t, err, linkhub.ErrCodeUnknown)
	require.Contains(t, lhErr.Message, "502")
}

func TestErrorBodyMessageOnly(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer ts.Close()

	_, err := linkhub.NewAuthority("L", "c2VjcmV0", linkhub.WithAuthURL(ts.URL)).GetTime(context.Background())
	lhErr := requireLinkhubError(t, err, linkhub.ErrCodeUnknown)
	require.Equal(t, "invalid token", lhErr.Message)
}
