// Prometheus instrumentation for the store and sync layers. Cardinality is
// kept bounded: labels are closed enums (trigger names, push outcomes), never
// owner or map identifiers.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// snapshotsCreated counts snapshots by trigger.
	snapshotsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galligeo_snapshots_created_total",
			Help: "Total number of snapshots created, by trigger.",
		},
		[]string{"trigger"},
	)

	// snapshotsEvicted counts snapshots dropped by the per-owner cap.
	snapshotsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "galligeo_snapshots_evicted_total",
			Help: "Total number of snapshots evicted beyond the per-owner cap.",
		},
	)

	// syncPushes counts remote push attempts by outcome: "ok", "retried"
	// (succeeded after a credential refresh), or "failed" (local-only).
	syncPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galligeo_sync_push_total",
			Help: "Total number of remote work-record pushes, by outcome.",
		},
		[]string{"outcome"},
	)

	// syncReadFallbacks counts authoritative remote reads that fell back to
	// the local cache.
	syncReadFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "galligeo_sync_read_fallback_total",
			Help: "Total number of remote reads that fell back to local state.",
		},
	)
)

func init() {
	prometheus.MustRegister(snapshotsCreated, snapshotsEvicted, syncPushes, syncReadFallbacks)
}
