package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nefproxy"

// Outcome labels for RequestsTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeEmpty        = "empty"
	OutcomeFatalAuth    = "fatal_auth"
	OutcomeDomain       = "domain"
	OutcomeBackend      = "backend"
	OutcomeConnectivity = "connectivity"
	OutcomeInvalid      = "invalid"
)

// Metrics holds the Prometheus collectors of one proxy instance.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	ReauthsTotal  prometheus.Counter
	PollHopsTotal prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which keeps independent proxies in one process apart.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Logical calls by method and terminal outcome",
			},
			[]string{"method", "outcome"},
		),
		ReauthsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reauth_total",
				Help:      "Re-authentications triggered by a 401 response",
			},
		),
		PollHopsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_hops_total",
				Help:      "Continuation polls issued for accepted operations",
			},
		),
	}
}

// ObserveCall records the terminal outcome of a logical call.
func (m *Metrics) ObserveCall(method, outcome string) {
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
}
