package navigator

import (
	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/metrics"
)

// DefaultMaxEntrySeek is the sparse indexing gap used when none is configured.
const DefaultMaxEntrySeek = 256

type options struct {
	fileOffset   int64
	maxEntrySeek int
	name         string
	logger       logging.Logger
	metrics      *metrics.Registry
}

// Option configures a navigator
type Option func(*options)

// WithFileOffset sets the byte offset of the first record, past any header.
func WithFileOffset(offset int64) Option {
	return func(o *options) {
		o.fileOffset = offset
	}
}

// WithMaxEntrySeek sets the minimum sequence-number gap between eagerly
// indexed appends. Must be positive.
func WithMaxEntrySeek(n int) Option {
	return func(o *options) {
		o.maxEntrySeek = n
	}
}

// WithName labels the navigator's log lines and metric series.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger. Defaults to logging.DefaultLogger().
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(registry *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = registry
	}
}
