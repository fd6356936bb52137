package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded against NavigatorLookupsTotal
const (
	ResultHit      = "hit"
	ResultScan     = "scan"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Registry holds all metrics for the log and its navigator
type Registry struct {
	// Navigator metrics
	NavigatorLookupsTotal     *prometheus.CounterVec
	NavigatorLookupDuration   *prometheus.HistogramVec
	NavigatorEntriesScanned   prometheus.Histogram
	NavigatorIndexEntries     *prometheus.GaugeVec
	NavigatorTruncationsTotal prometheus.Counter

	// Log metrics
	LogAppendsTotal     prometheus.Counter
	LogAppendBytesTotal prometheus.Counter
	LogTruncationsTotal prometheus.Counter
	LogSizeBytes        *prometheus.GaugeVec
	LogLastSeqNum       *prometheus.GaugeVec

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initNavigatorMetrics()
	r.initLogMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
