package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLogMetrics() {
	r.LogAppendsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "seqlog_log_appended_entries_total",
			Help: "Entries appended to the log",
		},
	)

	r.LogAppendBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "seqlog_log_appended_bytes_total",
			Help: "Encoded bytes appended to the log",
		},
	)

	r.LogTruncationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "seqlog_log_truncations_total",
			Help: "Log truncations",
		},
	)

	r.LogSizeBytes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seqlog_log_size_bytes",
			Help: "Size of the log's byte store, header included",
		},
		[]string{"log"},
	)

	r.LogLastSeqNum = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seqlog_log_last_seq_num",
			Help: "Sequence number of the last entry in the log",
		},
		[]string{"log"},
	)
}
