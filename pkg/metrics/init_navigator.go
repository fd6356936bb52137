package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initNavigatorMetrics() {
	r.NavigatorLookupsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "seqlog_navigator_lookups_total",
			Help: "Navigator lookups by operation and result (hit, scan, not_found, error)",
		},
		[]string{"operation", "result"},
	)

	r.NavigatorLookupDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seqlog_navigator_lookup_duration_seconds",
			Help:    "Navigator lookup duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
		[]string{"operation"},
	)

	r.NavigatorEntriesScanned = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seqlog_navigator_entries_scanned",
			Help:    "Entries skipped by a single forward scan",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	r.NavigatorIndexEntries = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seqlog_navigator_index_entries",
			Help: "Pairs currently held by the sparse index, sentinel included",
		},
		[]string{"log"},
	)

	r.NavigatorTruncationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "seqlog_navigator_truncations_total",
			Help: "Truncation notifications applied to the index",
		},
	)
}
