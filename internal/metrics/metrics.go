package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_events_total",
			Help: "Event lifecycle counter by stage",
		},
		[]string{"stage"}, // stored|published|publish_failed|publish_skipped|publish_dropped|archived
	)

	ArchiveFlushFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventlog_archive_flush_failures_total",
			Help: "Failed archive batch inserts, one per attempt",
		},
	)

	PublishBreakerOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventlog_publish_breaker_open",
			Help: "1 while the event publisher's circuit breaker rejects writes",
		},
	)

	CustomersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_customers_total",
			Help: "Customers created, by source",
		},
		[]string{"source"}, // register|admin|seed
	)

	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_auth_failures_total",
			Help: "Rejected requests by guard and reason",
		},
		[]string{"guard", "reason"},
	)
)

var registered sync.Map

// MustRegister adds the collectors to r once; repeated calls with the same
// registerer are no-ops.
func MustRegister(r prometheus.Registerer) {
	if _, loaded := registered.LoadOrStore(r, struct{}{}); loaded {
		return
	}
	r.MustRegister(
		EventsTotal,
		CustomersTotal,
		AuthFailuresTotal,
		ArchiveFlushFailuresTotal,
		PublishBreakerOpen,
	)
}
