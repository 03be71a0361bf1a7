package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the delivery and settlement core.
var (
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_transitions_total",
			Help: "Total number of applied delivery status transitions",
		},
		[]string{"to_status"},
	)

	TransitionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_transitions_rejected_total",
			Help: "Total number of rejected transition requests by reason",
		},
		[]string{"reason"},
	)

	TransitionReplaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_transition_replays_total",
			Help: "Total number of idempotent transition replays answered as no-ops",
		},
	)

	CODCollectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cod_collections_total",
			Help: "Total number of recorded COD collection events",
		},
	)

	CODSettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cod_settlements_total",
			Help: "Total number of recorded COD settlement events",
		},
	)

	CODRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cod_rejections_total",
			Help: "Total number of rejected ledger writes by reason",
		},
		[]string{"reason"},
	)

	LocationSamplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "location_samples_total",
			Help: "Total number of accepted partner location samples",
		},
	)

	LocationSamplesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_samples_dropped_total",
			Help: "Total number of dropped partner location samples by reason",
		},
		[]string{"reason"},
	)

	TransitionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_transition_duration_seconds",
			Help:    "Duration of delivery transition processing",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(TransitionsTotal)
	prometheus.MustRegister(TransitionsRejectedTotal)
	prometheus.MustRegister(TransitionReplaysTotal)
	prometheus.MustRegister(CODCollectionsTotal)
	prometheus.MustRegister(CODSettlementsTotal)
	prometheus.MustRegister(CODRejectionsTotal)
	prometheus.MustRegister(LocationSamplesTotal)
	prometheus.MustRegister(LocationSamplesDroppedTotal)
	prometheus.MustRegister(TransitionDuration)
}
