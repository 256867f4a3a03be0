package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the service. One instance
// is built at startup and shared through the container.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RequestsSent     prometheus.Counter
	RequestsAccepted prometheus.Counter
	RequestsRejected prometheus.Counter
	EdgesRemoved     prometheus.Counter
	MessagesSent     prometheus.Counter

	PairLockContention prometheus.Counter
	StorageRetries     prometheus.Counter
}

// NewMetrics registers the service instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "peerbridge",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RequestsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "connection_requests_sent_total",
			Help:      "Connection requests created.",
		}),
		RequestsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "connection_requests_accepted_total",
			Help:      "Connection requests accepted, including crossing-request auto-accepts.",
		}),
		RequestsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "connection_requests_rejected_total",
			Help:      "Connection requests rejected.",
		}),
		EdgesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "peer_edges_removed_total",
			Help:      "Peer edges removed.",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "messages_sent_total",
			Help:      "Messages appended to conversations.",
		}),
		PairLockContention: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "pair_lock_contention_total",
			Help:      "Pair lock acquisitions that had to wait or retry.",
		}),
		StorageRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerbridge",
			Name:      "storage_retries_total",
			Help:      "Transient storage errors that were retried.",
		}),
	}
}
