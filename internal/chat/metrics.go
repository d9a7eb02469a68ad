// This file exposes Prometheus instrumentation for the realtime core. All
// collectors are unlabelled or use the fixed "reason"/"result" label sets
// below, so cardinality stays constant regardless of room or user count.
package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	// connectionsActive gauges currently attached sessions across all rooms.
	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Number of currently attached chat sessions.",
		},
	)

	// messagesSubmitted counts accepted message submissions.
	messagesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_submitted_total",
			Help: "Total number of chat messages accepted for delivery.",
		},
	)

	// deliveriesDropped counts envelopes dropped because a subscriber's
	// outbound queue was full.
	deliveriesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_deliveries_dropped_total",
			Help: "Total envelopes dropped due to a full subscriber queue.",
		},
	)

	// identityLookups counts identity cache consultations by result.
	identityLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_identity_cache_lookups_total",
			Help: "Identity cache lookups during message submission.",
		},
		[]string{"result"}, // hit | miss
	)

	// backfillFailures counts durable-store lookups that did not populate
	// the cache. These are operational signals only; delivery is unaffected.
	backfillFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_identity_backfill_failures_total",
			Help: "Asynchronous identity backfill lookups that failed.",
		},
	)

	// identityCacheEvictions counts entries removed by the periodic sweep.
	identityCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_identity_cache_evictions_total",
			Help: "Identity cache entries evicted by the periodic sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		connectionsActive,
		messagesSubmitted,
		deliveriesDropped,
		identityLookups,
		backfillFailures,
		identityCacheEvictions,
	)
}
