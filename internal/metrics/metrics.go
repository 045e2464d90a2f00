package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors exported on /metrics
type Metrics struct {
	RateLimitDecisions *prometheus.CounterVec
	CounterStoreErrors prometheus.Counter
	Redirects          *prometheus.CounterVec
	ClickWriteFailures *prometheus.CounterVec
	LinksCreated       prometheus.Counter
	AllocationRetries  prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RateLimitDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limiter decisions by scope and outcome.",
		}, []string{"scope", "outcome"}),
		CounterStoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "counter_store_errors_total",
			Help:      "Counter store calls that failed and fell back to the fail policy.",
		}),
		Redirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "redirects_total",
			Help:      "Redirect lookups by result.",
		}, []string{"result"}),
		ClickWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "click_write_failures_total",
			Help:      "Click accounting writes that failed after a successful lookup.",
		}, []string{"stage"}),
		LinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "links_created_total",
			Help:      "Short links created.",
		}),
		AllocationRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "allocation_retries_total",
			Help:      "Short code candidates rejected because they were already taken.",
		}),
	}
}
