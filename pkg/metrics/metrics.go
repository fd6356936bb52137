package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordLookup records a navigator lookup. scanned is the number of entries the
// forward scan skipped, zero when the index answered directly.
func (r *Registry) RecordLookup(operation, result string, scanned int, duration time.Duration) {
	r.NavigatorLookupsTotal.WithLabelValues(operation, result).Inc()
	r.NavigatorLookupDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if scanned > 0 {
		r.NavigatorEntriesScanned.Observe(float64(scanned))
	}
}

// SetIndexSize sets the number of pairs held by a navigator's index
func (r *Registry) SetIndexSize(log string, n int) {
	r.NavigatorIndexEntries.WithLabelValues(log).Set(float64(n))
}

// RecordIndexTruncation counts a truncation notification
func (r *Registry) RecordIndexTruncation() {
	r.NavigatorTruncationsTotal.Inc()
}

// RecordAppend records a batch of appended entries
func (r *Registry) RecordAppend(entries, bytes int) {
	r.LogAppendsTotal.Add(float64(entries))
	r.LogAppendBytesTotal.Add(float64(bytes))
}

// RecordTruncation counts a log truncation
func (r *Registry) RecordTruncation() {
	r.LogTruncationsTotal.Inc()
}

// SetLogState updates the size and tail gauges of a log
func (r *Registry) SetLogState(log string, sizeBytes int64, lastSeqNum uint64) {
	r.LogSizeBytes.WithLabelValues(log).Set(float64(sizeBytes))
	r.LogLastSeqNum.WithLabelValues(log).Set(float64(lastSeqNum))
}

// Forget drops the per-log series of a closed log
func (r *Registry) Forget(log string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.NavigatorIndexEntries.DeleteLabelValues(log)
	r.LogSizeBytes.DeleteLabelValues(log)
	r.LogLastSeqNum.DeleteLabelValues(log)
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
