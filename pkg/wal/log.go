package wal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/metrics"
	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
	"github.com/dd0wney/cluso-seqlog/pkg/persistence"
)

// maxPrealloc caps the slice capacity Subsequence reserves up front.
const maxPrealloc = 1024

// Log is an encoded sequential log over a byte store. It is the single writer
// for its navigator: every append and truncation goes through it. Reads may
// run concurrently with each other and with the writer.
type Log struct {
	id        string
	store     persistence.BytePersistence
	codec     *Codec
	ownsCodec bool
	navigator *navigator.InMemoryNavigator[*Entry]

	// 0 in both means the log is empty.
	firstSeqNum atomic.Uint64
	lastSeqNum  atomic.Uint64

	mu       sync.Mutex
	writeBuf bytes.Buffer
	closed   bool

	logger  logging.Logger
	metrics *metrics.Registry
}

type options struct {
	id           string
	codec        *Codec
	maxEntrySeek int
	logger       logging.Logger
	metrics      *metrics.Registry
}

// Option configures a Log
type Option func(*options)

// WithID names the log in log lines and metric series. Defaults to a random UUID.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithCodec sets the entry codec. The caller keeps ownership and closes it.
func WithCodec(codec *Codec) Option {
	return func(o *options) { o.codec = codec }
}

// WithMaxEntrySeek sets the navigator's sparse indexing gap.
func WithMaxEntrySeek(n int) Option {
	return func(o *options) { o.maxEntrySeek = n }
}

// WithLogger sets the logger. Defaults to logging.DefaultLogger().
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables Prometheus instrumentation for the log and its navigator.
func WithMetrics(registry *metrics.Registry) Option {
	return func(o *options) { o.metrics = registry }
}

// Open opens the log stored in store, writing a header if the store is empty.
// The last entry is located and any torn record after it is discarded.
// The log takes ownership of store.
func Open(store persistence.BytePersistence, opts ...Option) (*Log, error) {
	o := options{maxEntrySeek: navigator.DefaultMaxEntrySeek}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	logger := logging.OrDefault(o.logger).With(logging.Component("wal"), logging.LogID(o.id))

	if err := ensureHeader(store); err != nil {
		return nil, err
	}

	codec, ownsCodec := o.codec, false
	if codec == nil {
		var err error
		if codec, err = NewCodec(CompressionNone); err != nil {
			return nil, err
		}
		ownsCodec = true
	}

	nav, err := navigator.New[*Entry](store, codec,
		navigator.WithFileOffset(HeaderSize),
		navigator.WithMaxEntrySeek(o.maxEntrySeek),
		navigator.WithName(o.id),
		navigator.WithLogger(logger),
		navigator.WithMetrics(o.metrics),
	)
	if err != nil {
		if ownsCodec {
			codec.Close()
		}
		return nil, err
	}

	l := &Log{
		id:        o.id,
		store:     store,
		codec:     codec,
		ownsCodec: ownsCodec,
		navigator: nav,
		logger:    logger,
		metrics:   o.metrics,
	}

	timer := logging.StartTimer(logger, "log opened")
	if err := l.recover(); err != nil {
		timer.EndError(err)
		if ownsCodec {
			codec.Close()
		}
		return nil, fmt.Errorf("failed to recover log: %w", err)
	}

	timer.End(
		logging.Uint64("first_seq_num", l.firstSeqNum.Load()),
		logging.Uint64("last_seq_num", l.lastSeqNum.Load()),
		logging.String("compression", codec.Compression().String()))
	l.publishState()

	return l, nil
}

// recover finds the first and last entries and trims a torn tail.
func (l *Log) recover() error {
	size, err := l.store.Size()
	if err != nil {
		return err
	}

	first, _, err := l.readBoundary(l.navigator.StreamAtFirst)
	if err != nil {
		return err
	}
	if first == nil {
		return l.trimTornTail(HeaderSize, size)
	}

	last, end, err := l.readBoundary(l.navigator.StreamAtLast)
	if err != nil {
		return err
	}
	if last == nil {
		return fmt.Errorf("first entry LSN %d present but no last entry", first.LSN)
	}

	l.firstSeqNum.Store(first.LSN)
	l.lastSeqNum.Store(last.LSN)
	return l.trimTornTail(end, size)
}

// readBoundary decodes the entry the opened reader is positioned at. It
// returns a nil entry when no complete entry remains.
func (l *Log) readBoundary(open func() (navigator.PersistenceReader, error)) (*Entry, int64, error) {
	reader, err := open()
	if err != nil {
		return nil, 0, err
	}
	defer reader.Close()

	entry, err := l.codec.Decode(reader)
	if navigator.IsEndOfData(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	end, err := reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, err
	}
	return entry, end, nil
}

func (l *Log) trimTornTail(end, size int64) error {
	if end >= size {
		return nil
	}

	l.logger.Warn("discarding torn record at log tail",
		logging.Address(end),
		logging.Int64("bytes", size-end))
	if err := l.store.Truncate(end); err != nil {
		if errors.Is(err, persistence.ErrReadOnly) {
			return nil
		}
		return err
	}
	return nil
}

// ID returns the log's identifier.
func (l *Log) ID() string {
	return l.id
}

// Navigator returns the navigator indexing this log.
func (l *Log) Navigator() *navigator.InMemoryNavigator[*Entry] {
	return l.navigator
}

// FirstSeqNum returns the LSN of the first entry, 0 for an empty log.
func (l *Log) FirstSeqNum() uint64 {
	return l.firstSeqNum.Load()
}

// LastSeqNum returns the LSN of the last entry, 0 for an empty log.
func (l *Log) LastSeqNum() uint64 {
	return l.lastSeqNum.Load()
}

// IsEmpty reports whether the log holds no entries.
func (l *Log) IsEmpty() bool {
	return l.lastSeqNum.Load() == 0
}

// Append writes entries and notifies the navigator of each. The first entry
// must have LSN LastSeqNum()+1, or any positive LSN if the log is empty, and
// the rest must follow without gaps. If the store fails part way, the entries
// before the failing one stay in the log.
func (l *Log) Append(entries ...*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}

	next := l.lastSeqNum.Load() + 1
	if l.lastSeqNum.Load() == 0 {
		next = entries[0].LSN
	}
	if next == 0 {
		return fmt.Errorf("LSN 0 is reserved: %w", ErrNonContiguous)
	}
	for i, e := range entries {
		if e.LSN != next+uint64(i) {
			return fmt.Errorf("entry %d has LSN %d, expected %d: %w", i, e.LSN, next+uint64(i), ErrNonContiguous)
		}
	}

	written := 0
	appended := 0
	defer func() {
		if l.metrics != nil && appended > 0 {
			l.metrics.RecordAppend(appended, written)
		}
		l.publishState()
	}()

	for _, e := range entries {
		l.writeBuf.Reset()
		if err := l.codec.Encode(&l.writeBuf, e); err != nil {
			return fmt.Errorf("failed to encode LSN %d: %w", e.LSN, err)
		}

		offset, err := l.store.Append(l.writeBuf.Bytes())
		if err != nil {
			l.logger.Error("append failed", logging.SeqNum(e.LSN), logging.Error(err))
			return fmt.Errorf("failed to append LSN %d: %w", e.LSN, err)
		}

		l.navigator.NotifyAppend(e.LSN, offset)
		if l.firstSeqNum.Load() == 0 {
			l.firstSeqNum.Store(e.LSN)
		}
		l.lastSeqNum.Store(e.LSN)
		written += l.writeBuf.Len()
		appended++
	}

	return nil
}

// Subsequence returns the entries with LSN in [start, end).
func (l *Log) Subsequence(start, end uint64) ([]*Entry, error) {
	if start == 0 || end < start {
		return nil, fmt.Errorf("[%d, %d): %w", start, end, ErrInvalidRange)
	}
	if start == end {
		return []*Entry{}, nil
	}

	reader, err := l.navigator.StreamAt(start)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	entries := make([]*Entry, 0, min(end-start, maxPrealloc))
	for seq := start; seq < end; seq++ {
		entry, err := l.codec.Decode(reader)
		if navigator.IsEndOfData(err) {
			return nil, fmt.Errorf("LSN %d: %w", seq, navigator.ErrEntryNotFound)
		}
		if err != nil {
			return nil, err
		}
		if entry.LSN != seq {
			return nil, fmt.Errorf("expected LSN %d, found %d: %w", seq, entry.LSN, ErrNonContiguous)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetEntry returns the entry with the given LSN.
func (l *Log) GetEntry(seqNum uint64) (*Entry, error) {
	entries, err := l.Subsequence(seqNum, seqNum+1)
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

// LastEntry returns the entry with the greatest LSN.
func (l *Log) LastEntry() (*Entry, error) {
	if l.IsEmpty() {
		return nil, fmt.Errorf("log is empty: %w", navigator.ErrEntryNotFound)
	}

	entry, _, err := l.readBoundary(l.navigator.StreamAtLast)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("log is empty: %w", navigator.ErrEntryNotFound)
	}
	return entry, nil
}

// Truncate removes every entry with LSN >= seqNum. Truncating past the last
// entry does nothing.
func (l *Log) Truncate(seqNum uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	if seqNum == 0 {
		return fmt.Errorf("truncate at LSN 0: %w", navigator.ErrInvalidArgument)
	}

	first, last := l.firstSeqNum.Load(), l.lastSeqNum.Load()
	if last == 0 || seqNum > last {
		return nil
	}

	address := int64(HeaderSize)
	if seqNum > first {
		var err error
		if address, err = l.navigator.AddressOf(seqNum); err != nil {
			return fmt.Errorf("failed to locate LSN %d: %w", seqNum, err)
		}
	}

	if err := l.navigator.NotifyTruncation(seqNum); err != nil {
		return err
	}
	if err := l.store.Truncate(address); err != nil {
		return fmt.Errorf("failed to truncate store at %d: %w", address, err)
	}
	if err := l.navigator.CompleteTruncation(seqNum); err != nil {
		return err
	}

	if seqNum <= first {
		l.firstSeqNum.Store(0)
		l.lastSeqNum.Store(0)
	} else {
		l.lastSeqNum.Store(seqNum - 1)
	}

	l.logger.Info("log truncated",
		logging.SeqNum(seqNum),
		logging.Address(address),
		logging.Uint64("removed", last-seqNum+1))
	if l.metrics != nil {
		l.metrics.RecordTruncation()
	}
	l.publishState()
	return nil
}

// Replay calls handler for every entry from the first. A torn or corrupt
// record ends the replay early; it is logged, not returned, so that every
// intact entry before it can still be recovered.
func (l *Log) Replay(handler func(*Entry) error) error {
	reader, err := l.navigator.StreamAtFirst()
	if err != nil {
		return err
	}
	defer reader.Close()
	return l.replay(reader, handler)
}

// ReplayFrom calls handler for every entry from seqNum to the end.
func (l *Log) ReplayFrom(seqNum uint64, handler func(*Entry) error) error {
	reader, err := l.navigator.StreamAt(seqNum)
	if err != nil {
		return err
	}
	defer reader.Close()
	return l.replay(reader, handler)
}

func (l *Log) replay(reader io.Reader, handler func(*Entry) error) error {
	replayed := 0
	for {
		entry, err := l.codec.Decode(reader)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			l.logger.Warn("replay stopped at unreadable entry",
				logging.Count(replayed),
				logging.Error(err))
			return nil
		}

		if err := handler(entry); err != nil {
			return fmt.Errorf("failed to replay entry LSN=%d: %w", entry.LSN, err)
		}
		replayed++
	}
}

// Size returns the size of the log in bytes, header included.
func (l *Log) Size() (int64, error) {
	return l.store.Size()
}

// Sync makes appended entries durable.
func (l *Log) Sync() error {
	return l.store.Sync()
}

// Close syncs and closes the underlying store.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.metrics != nil {
		l.metrics.Forget(l.id)
	}
	err := l.store.Close()
	if l.ownsCodec {
		if cerr := l.codec.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (l *Log) publishState() {
	if l.metrics == nil {
		return
	}
	size, err := l.store.Size()
	if err != nil {
		return
	}
	l.metrics.SetLogState(l.id, size, l.lastSeqNum.Load())
}
