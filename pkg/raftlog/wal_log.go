package raftlog

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/metrics"
	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
	"github.com/dd0wney/cluso-seqlog/pkg/persistence"
	"github.com/dd0wney/cluso-seqlog/pkg/validation"
	"github.com/dd0wney/cluso-seqlog/pkg/wal"
)

type walOptions struct {
	backend      persistence.Backend
	syncOnAppend bool
	compression  wal.Compression
	maxEntrySeek int
	logger       logging.Logger
	metrics      *metrics.Registry
}

// Option configures a WALRaftLog
type Option func(*walOptions)

// WithBackend selects the byte store each quorum log is kept in.
func WithBackend(backend persistence.Backend) Option {
	return func(o *walOptions) { o.backend = backend }
}

// WithSyncOnAppend fsyncs after every append.
func WithSyncOnAppend(sync bool) Option {
	return func(o *walOptions) { o.syncOnAppend = sync }
}

// WithCompression sets the compression of newly written entries.
func WithCompression(c wal.Compression) Option {
	return func(o *walOptions) { o.compression = c }
}

// WithMaxEntrySeek sets the navigator gap of every quorum log.
func WithMaxEntrySeek(n int) Option {
	return func(o *walOptions) { o.maxEntrySeek = n }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *walOptions) { o.logger = logger }
}

// WithMetrics instruments every quorum log.
func WithMetrics(registry *metrics.Registry) Option {
	return func(o *walOptions) { o.metrics = registry }
}

// WALRaftLog is a RaftLog keeping each quorum in a wal.Log named
// <dir>/<quorumID>.log. Logs are opened on first use.
type WALRaftLog struct {
	dir    string
	opts   walOptions
	codec  *wal.Codec
	logger logging.Logger

	mu     sync.Mutex
	logs   map[string]*wal.Log
	closed bool
}

// NewWALRaftLog creates a RaftLog storing quorum logs under dir.
func NewWALRaftLog(dir string, opts ...Option) (*WALRaftLog, error) {
	o := walOptions{
		backend:      persistence.BackendFile,
		maxEntrySeek: navigator.DefaultMaxEntrySeek,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.backend != persistence.BackendMemory {
		if err := persistence.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create raft log directory: %w", err)
		}
	}

	codec, err := wal.NewCodec(o.compression)
	if err != nil {
		return nil, err
	}

	logger := logging.OrDefault(o.logger).With(logging.Component("raftlog"))
	logger.Info("raft log ready",
		logging.Path(dir),
		logging.String("backend", string(o.backend)),
		logging.String("compression", o.compression.String()),
		logging.Bool("sync_on_append", o.syncOnAppend))

	return &WALRaftLog{
		dir:    dir,
		opts:   o,
		codec:  codec,
		logger: logger,
		logs:   make(map[string]*wal.Log),
	}, nil
}

// Log returns the wal.Log of a quorum, opening it if needed.
func (r *WALRaftLog) Log(quorumID string) (*wal.Log, error) {
	if err := validation.ValidateVar("quorum_id", quorumID, validation.LogNameRules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuorumID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if l, ok := r.logs[quorumID]; ok {
		return l, nil
	}

	path := filepath.Join(r.dir, quorumID+".log")
	store, err := persistence.Open(r.opts.backend, path, r.opts.syncOnAppend)
	if err != nil {
		return nil, err
	}

	l, err := wal.Open(store,
		wal.WithID(quorumID),
		wal.WithCodec(r.codec),
		wal.WithMaxEntrySeek(r.opts.maxEntrySeek),
		wal.WithLogger(r.logger),
		wal.WithMetrics(r.opts.metrics),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open quorum %s: %w", quorumID, err)
	}

	r.logs[quorumID] = l
	r.logger.Debug("quorum log opened", logging.LogID(quorumID), logging.Path(path))
	return l, nil
}

// QuorumIDs returns the IDs of the logs opened so far, sorted.
func (r *WALRaftLog) QuorumIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.logs))
	for id := range r.logs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *WALRaftLog) LogEntries(quorumID string, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	l, err := r.Log(quorumID)
	if err != nil {
		return err
	}

	// wal.Log lets an empty log start at any LSN; a Raft log starts at 1.
	if err := checkContiguous(l.LastSeqNum(), entries); err != nil {
		return err
	}

	batch := make([]*wal.Entry, len(entries))
	for i, e := range entries {
		batch[i] = &wal.Entry{LSN: e.Index, Term: e.Term, Data: e.Data}
	}
	return l.Append(batch...)
}

func (r *WALRaftLog) GetLogEntry(quorumID string, index uint64) (LogEntry, error) {
	l, err := r.Log(quorumID)
	if err != nil {
		return LogEntry{}, err
	}
	if index == 0 || index > l.LastSeqNum() {
		return LogEntry{}, outOfRange(index)
	}

	e, err := l.GetEntry(index)
	if navigator.IsNotFound(err) {
		return LogEntry{}, outOfRange(index)
	}
	if err != nil {
		return LogEntry{}, err
	}
	return LogEntry{Index: e.LSN, Term: e.Term, Data: e.Data}, nil
}

func (r *WALRaftLog) GetLogTerm(quorumID string, index uint64) (uint64, error) {
	e, err := r.GetLogEntry(quorumID, index)
	if err != nil {
		return 0, err
	}
	return e.Term, nil
}

func (r *WALRaftLog) GetLastTerm(quorumID string) (uint64, error) {
	l, err := r.Log(quorumID)
	if err != nil {
		return 0, err
	}
	if l.IsEmpty() {
		return 0, nil
	}
	e, err := l.LastEntry()
	if err != nil {
		return 0, err
	}
	return e.Term, nil
}

func (r *WALRaftLog) GetLastIndex(quorumID string) (uint64, error) {
	l, err := r.Log(quorumID)
	if err != nil {
		return 0, err
	}
	return l.LastSeqNum(), nil
}

func (r *WALRaftLog) TruncateLog(quorumID string, index uint64) error {
	if index == 0 {
		return outOfRange(index)
	}
	l, err := r.Log(quorumID)
	if err != nil {
		return err
	}
	return l.Truncate(index)
}

// Close closes every quorum log and returns the first error.
func (r *WALRaftLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	cleanup := newResourceCleanup(r.logger)
	cleanup.Add(r.codec, "codec")
	for id, l := range r.logs {
		cleanup.Add(l, "quorum "+id)
	}
	r.logs = nil
	return cleanup.CloseAll()
}
