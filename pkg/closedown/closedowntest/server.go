// Package closedowntest provides an in-process fake of both the Linkhub
// authority and the closure-status lookup service, for tests.
//
// The fake verifies LINKHUB token request signatures, issues HS256 session
// tokens whose expiry follows a clock the test controls, and checks bearer
// tokens on every lookup endpoint.
package closedowntest

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/aussiebroadwan/closedown/pkg/cryptox"
	"github.com/aussiebroadwan/closedown/pkg/linkhub"
)

// Route patterns, also the keys for Calls, Fail and LastRequest.
const (
	RouteTime         = "GET /Time"
	RouteToken        = "POST /CLOSEDOWN/Token"
	RoutePartnerPoint = "GET /CLOSEDOWN/PartnerPoint"
	RouteUnitCost     = "GET /UnitCost"
	RouteCheck        = "GET /Check"
	RouteCheckBatch   = "POST /Check"
)

// Error codes the fake answers with.
const (
	CodeUnauthorized     int64 = -11000001
	CodeInvalidSignature int64 = -11000003
	CodeBadRequest       int64 = -11000010
)

const (
	serviceID       = "CLOSEDOWN"
	defaultTokenTTL = time.Hour
)

// State is a lookup result as the service sends it.
type State struct {
	CorpNum   string `json:"corpNum"`
	Type      string `json:"type"`
	TypeDate  string `json:"typeDate"`
	State     string `json:"state"`
	StateDate string `json:"stateDate"`
	CheckDate string `json:"checkDate"`
}

// Recorded is a copy of the last request received on a route.
type Recorded struct {
	Header http.Header
	Query  url.Values
	Body   []byte
}

type failure struct {
	status int
	body   string
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Scope []string `json:"scope,omitempty"`
}

// Server is the running fake. Its exported fields are the partner
// credentials a Checker must use.
type Server struct {
	*httptest.Server

	LinkID    string
	SecretKey string

	jwtKey   []byte
	tokenTTL time.Duration
	encoding string

	mu       sync.Mutex
	now      time.Time
	balance  float64
	unitCost float64
	states   map[string]State
	calls    map[string]int
	last     map[string]Recorded
	failures map[string]failure
	issued   int
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials sets the partner LinkID and base64 secret key.
func WithCredentials(linkID, secretKey string) Option {
	return func(s *Server) {
		s.LinkID = linkID
		s.SecretKey = secretKey
	}
}

// WithTokenTTL sets the lifetime of issued session tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokenTTL = ttl }
}

// WithClock sets the fake authority's initial time.
func WithClock(start time.Time) Option {
	return func(s *Server) { s.now = start.UTC().Truncate(time.Second) }
}

// WithGzip compresses every response body with gzip.
func WithGzip() Option {
	return func(s *Server) { s.encoding = "gzip" }
}

// WithDeflate compresses every response body with zlib-wrapped deflate.
func WithDeflate() Option {
	return func(s *Server) { s.encoding = "deflate" }
}

// WithBalance sets the partner balance reported by PartnerPoint.
func WithBalance(points float64) Option {
	return func(s *Server) { s.balance = points }
}

// WithUnitCost sets the price reported by UnitCost.
func WithUnitCost(cost float64) Option {
	return func(s *Server) { s.unitCost = cost }
}

// WithStates preloads lookup results keyed by CorpNum.
func WithStates(states ...State) Option {
	return func(s *Server) {
		for _, st := range states {
			s.states[st.CorpNum] = st
		}
	}
}

// NewServer starts a fake. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		LinkID:    "TESTER",
		SecretKey: cryptox.MustGenerateSecretKey(cryptox.KeySize256),
		jwtKey:    cryptox.MustRandomBytes(cryptox.KeySize256),
		tokenTTL:  defaultTokenTTL,
		now:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		balance:   10000,
		unitCost:  10,
		states:    make(map[string]State),
		calls:     make(map[string]int),
		last:      make(map[string]Recorded),
		failures:  make(map[string]failure),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(RouteTime, s.route(RouteTime, s.handleTime))
	mux.HandleFunc(RouteToken, s.route(RouteToken, s.handleToken))
	mux.HandleFunc(RoutePartnerPoint, s.route(RoutePartnerPoint, s.authenticated(s.handlePartnerPoint)))
	mux.HandleFunc(RouteUnitCost, s.route(RouteUnitCost, s.authenticated(s.handleUnitCost)))
	mux.HandleFunc(RouteCheck, s.route(RouteCheck, s.authenticated(s.handleCheck)))
	mux.HandleFunc(RouteCheckBatch, s.route(RouteCheckBatch, s.authenticated(s.handleCheckBatch)))

	s.Server = httptest.NewServer(mux)
	return s
}

// ============================================================================
// Test controls
// ============================================================================

// Now returns the fake authority's current time.
func (s *Server) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the fake authority's clock forward.
func (s *Server) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d).Truncate(time.Second)
	s.mu.Unlock()
}

// SetState adds or replaces one lookup result.
func (s *Server) SetState(st State) {
	s.mu.Lock()
	s.states[st.CorpNum] = st
	s.mu.Unlock()
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TokensIssued returns how many session tokens the authority has issued.
func (s *Server) TokensIssued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// LastRequest returns a copy of the last request received on route.
func (s *Server) LastRequest(route string) (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.last[route]
	return rec, ok
}

// Fail makes route answer with status and a {code, message} body until
// Heal is called.
func (s *Server) Fail(route string, status int, code int64, message string) {
	body, _ := json.Marshal(map[string]any{"code": code, "message": message})
	s.FailRaw(route, status, string(body))
}

// FailRaw makes route answer with status and body verbatim until Heal.
func (s *Server) FailRaw(route string, status int, body string) {
	s.mu.Lock()
	s.failures[route] = failure{status: status, body: body}
	s.mu.Unlock()
}

// Heal removes any failure set on route.
func (s *Server) Heal(route string) {
	s.mu.Lock()
	delete(s.failures, route)
	s.mu.Unlock()
}

// ============================================================================
// Middleware
// ============================================================================

// route counts and records the request and serves any injected failure.
func (s *Server) route(name string, next func(http.ResponseWriter, *http.Request, []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "unreadable body")
			return
		}

		s.mu.Lock()
		s.calls[name]++
		s.last[name] = Recorded{Header: r.Header.Clone(), Query: r.URL.Query(), Body: body}
		fail, failing := s.failures[name]
		s.mu.Unlock()

		if failing {
			s.write(w, r, fail.status, []byte(fail.body))
			return
		}
		next(w, r, body)
	}
}

// authenticated rejects requests without a valid, unexpired bearer token.
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, []byte)) func(http.ResponseWriter, *http.Request, []byte) {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			s.writeError(w, r, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
			return
		}

		var claims sessionClaims
		_, err := jwt.ParseWithClaims(raw, &claims,
			func(*jwt.Token) (any, error) { return s.jwtKey, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.Now),
			jwt.WithExpirationRequired(),
			jwt.WithAudience(serviceID),
		)
		if err != nil {
			s.writeError(w, r, http.StatusUnauthorized, CodeUnauthorized, "invalid session token: "+err.Error())
			return
		}
		next(w, r, body)
	}
}

// ============================================================================
// Authority handlers
// ============================================================================

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.write(w, r, http.StatusOK, []byte(s.Now().Format(time.RFC3339)))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request, body []byte) {
	xDate := r.Header.Get("x-lh-date")
	version := r.Header.Get("x-lh-version")
	if xDate == "" || version != linkhub.APIVersion {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "missing x-lh-date or x-lh-version")
		return
	}

	linkID, signature, ok := linkhub.ParseAuthorizationHeader(r.Header.Get("Authorization"))
	if !ok || linkID != s.LinkID {
		s.writeError(w, r, http.StatusUnauthorized, CodeInvalidSignature, "unknown partner")
		return
	}

	forwardIP := r.Header.Get("x-lh-forwarded")
	target := linkhub.DigestTarget(r.Method, body, xDate, forwardIP, version, r.URL.Path)
	expected, err := linkhub.Sign(s.SecretKey, target)
	if err != nil || !hmac.Equal([]byte(expected), []byte(signature)) {
		s.writeError(w, r, http.StatusUnauthorized, CodeInvalidSignature, "signature mismatch")
		return
	}

	var req linkhub.TokenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "malformed token request")
		return
	}

	s.mu.Lock()
	now := s.now
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	expiresAt := now.Add(s.tokenTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.Itoa(seq),
			Subject:   linkID,
			Audience:  jwt.ClaimStrings{serviceID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scope: req.Scope,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, CodeBadRequest, err.Error())
		return
	}

	s.writeJSON(w, r, http.StatusOK, linkhub.Token{
		SessionToken: signed,
		ServiceID:    serviceID,
		LinkID:       linkID,
		UserCode:     req.AccessID,
		IPAddress:    forwardIP,
		Expiration:   expiresAt.Format(time.RFC3339),
		Scope:        req.Scope,
	})
}

func (s *Server) handlePartnerPoint(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	balance := s.balance
	s.mu.Unlock()
	s.writeJSON(w, r, http.StatusOK, linkhub.PointResponse{RemainPoint: balance})
}

// ============================================================================
// Lookup service handlers
// ============================================================================

func (s *Server) handleUnitCost(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	cost := s.unitCost
	s.mu.Unlock()
	// The live service sends the price as a string.
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"unitCost": strconv.FormatFloat(cost, 'f', -1, 32),
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request, _ []byte) {
	corpNum := r.URL.Query().Get("CN")
	if corpNum == "" {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "missing CN")
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.lookup(corpNum))
}

func (s *Server) handleCheckBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "expected a JSON body")
		return
	}

	var corpNums []string
	if err := json.Unmarshal(body, &corpNums); err != nil || len(corpNums) == 0 {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "expected a non-empty JSON array")
		return
	}

	states := make([]State, 0, len(corpNums))
	for _, cn := range corpNums {
		states = append(states, s.lookup(cn))
	}
	s.writeJSON(w, r, http.StatusOK, states)
}

func (s *Server) lookup(corpNum string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[corpNum]; ok {
		return st
	}
	return State{
		CorpNum:   corpNum,
		State:     "0",
		CheckDate: s.now.Format("20060102"),
	}
}

// ============================================================================
// Response writing
// ============================================================================

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code int64, message string) {
	s.writeJSON(w, r, status, map[string]any{"code": code, "message": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	s.write(w, r, status, body)
}

// write sends body, compressed when the server was configured to and the
// client accepts it.
func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	accepted := r.Header.Get("Accept-Encoding")
	if s.encoding != "" && strings.Contains(accepted, s.encoding) {
		compressed, err := compress(s.encoding, body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Encoding", s.encoding)
		body = compressed
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func compress(encoding string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	var zw io.WriteCloser
	switch encoding {
	case "gzip":
		zw = gzip.NewWriter(&buf)
	case "deflate":
		zw = zlib.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
