package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport wraps next and logs every outbound request at debug level, and
// transport failures at warn. The request-scoped logger from the request
// context wins over base so req_id flows through. Headers are never logged;
// they carry bearer tokens and signatures.
func Transport(base *slog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{base: base, next: next}
}

type loggingTransport struct {
	base *slog.Logger
	next http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger := t.base
	if _, ok := req.Context().Value(ctxKey{}).(*slog.Logger); ok || logger == nil {
		logger = FromContext(req.Context())
	}
	logger = logger.With(
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_client_request_failed",
			"duration_ms", duration,
			"error", err,
		)
		return nil, err
	}

	logger.Debug("http_client_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
		"content_encoding", resp.Header.Get("Content-Encoding"),
	)
	return resp, nil
}
