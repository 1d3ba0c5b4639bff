package closedowntest

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock(t *testing.T) {
	start := time.Date(2030, 5, 6, 7, 8, 9, 500, time.UTC)
	srv := NewServer(WithClock(start))
	defer srv.Close()

	require.Equal(t, start.Truncate(time.Second), srv.Now())
	srv.Advance(90 * time.Second)
	require.Equal(t, start.Truncate(time.Second).Add(90*time.Second), srv.Now())

	resp, err := http.Get(srv.URL + "/Time")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, srv.Now().Format(time.RFC3339), string(body))
	require.Equal(t, 1, srv.Calls(RouteTime))
}

func TestLookupRequiresBearer(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/UnitCost")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFailAndHeal(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	srv.Fail(RouteTime, http.StatusServiceUnavailable, -1, "down")
	resp, err := http.Get(srv.URL + "/Time")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv.Heal(RouteTime)
	resp, err = http.Get(srv.URL + "/Time")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, srv.Calls(RouteTime))
}
