package closedown

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values on RequestsTotal.
const (
	OutcomeOK        = "ok"
	OutcomeAPIError  = "api_error"
	OutcomeTransport = "transport_error"
)

// Metrics holds the prometheus collectors a Checker updates. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TokenRenewals   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "closedown",
				Name:      "requests_total",
				Help:      "Total number of lookup service requests",
			},
			[]string{"method", "path", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "closedown",
				Name:      "request_duration_seconds",
				Help:      "Lookup service request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TokenRenewals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "closedown",
				Name:      "token_renewals_total",
				Help:      "Total number of session tokens acquired from the authority",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.TokenRenewals)
	}
	return m
}

func (m *Metrics) observeRequest(method, path string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, outcome(err)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) incTokenRenewals() {
	if m == nil {
		return
	}
	m.TokenRenewals.Inc()
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if cdErr, ok := AsError(err); ok && cdErr.Code != ErrCodeUnknown {
		return OutcomeAPIError
	}
	return OutcomeTransport
}
