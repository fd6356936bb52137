// Package navigator maps log sequence numbers to byte offsets with a sparse,
// lazily populated in-memory index.
//
// Appends are indexed only when they are at least maxEntrySeek sequence
// numbers past the last indexed entry. Any other record is found by a floor
// lookup followed by a forward scan that skips records with the codec, and
// every scan result is cached. The index is never persisted.
package navigator

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/metrics"
)

const (
	opAddressOf     = "address_of"
	opStreamAt      = "stream_at"
	opStreamAtFirst = "stream_at_first"
	opStreamAtLast  = "stream_at_last"
)

// InMemoryNavigator is a PersistenceNavigator that keeps its index in memory.
//
// A single writer calls NotifyAppend and NotifyTruncation in sequence-number
// order; the navigator does not verify that order. Any number of readers may
// call AddressOf and the Stream methods concurrently: each opens its own
// reader, and only index access is serialized.
type InMemoryNavigator[E SequentialEntry] struct {
	persistence  BytePersistence
	codec        EntryCodec[E]
	index        *seqIndex
	fileOffset   int64
	maxEntrySeek atomic.Int64

	name    string
	logger  logging.Logger
	metrics *metrics.Registry
}

var _ PersistenceNavigator = (*InMemoryNavigator[SequentialEntry])(nil)

// New creates a navigator over persistence, decoding records with codec.
func New[E SequentialEntry](persistence BytePersistence, codec EntryCodec[E], opts ...Option) (*InMemoryNavigator[E], error) {
	o := options{maxEntrySeek: DefaultMaxEntrySeek}
	for _, opt := range opts {
		opt(&o)
	}

	if persistence == nil || codec == nil {
		return nil, fmt.Errorf("navigator requires a byte store and a codec: %w", ErrInvalidArgument)
	}
	if o.fileOffset < 0 {
		return nil, fmt.Errorf("file offset %d: %w", o.fileOffset, ErrInvalidArgument)
	}

	logger := logging.OrDefault(o.logger).With(logging.Component("navigator"))
	if o.name != "" {
		logger = logger.With(logging.LogID(o.name))
	}

	n := &InMemoryNavigator[E]{
		persistence: persistence,
		codec:       codec,
		index:       newSeqIndex(o.fileOffset),
		fileOffset:  o.fileOffset,
		name:        o.name,
		logger:      logger,
		metrics:     o.metrics,
	}
	if err := n.SetMaxEntrySeek(o.maxEntrySeek); err != nil {
		return nil, err
	}
	n.publishIndexSize()

	return n, nil
}

// SetMaxEntrySeek sets the sparse indexing gap. n must be at least 1.
func (n *InMemoryNavigator[E]) SetMaxEntrySeek(numberOfEntries int) error {
	if numberOfEntries < 1 {
		return fmt.Errorf("max entry seek %d: %w", numberOfEntries, ErrInvalidArgument)
	}
	if old := n.maxEntrySeek.Swap(int64(numberOfEntries)); old != 0 && old != int64(numberOfEntries) {
		n.logger.Info("max entry seek changed",
			logging.Int("from", int(old)),
			logging.Int("to", numberOfEntries))
	}
	return nil
}

// MaxEntrySeek returns the sparse indexing gap.
func (n *InMemoryNavigator[E]) MaxEntrySeek() int {
	return int(n.maxEntrySeek.Load())
}

// FileOffset returns the byte offset of the first record.
func (n *InMemoryNavigator[E]) FileOffset() int64 {
	return n.fileOffset
}

// NotifyAppend indexes the record if it is at least MaxEntrySeek past the
// greatest indexed sequence number, and otherwise does nothing.
func (n *InMemoryNavigator[E]) NotifyAppend(seqNum uint64, byteAddress int64) {
	if n.index.putIfGap(seqNum, byteAddress, uint64(n.maxEntrySeek.Load())) {
		n.publishIndexSize()
	}
}

// AddToIndex inserts or overwrites a pair unconditionally.
func (n *InMemoryNavigator[E]) AddToIndex(seqNum uint64, address int64) {
	n.index.put(seqNum, address)
	n.publishIndexSize()
}

// NotifyTruncation drops every index pair with key >= seqNum. It must be
// called before, or atomically with, the truncation of the byte store, and
// followed by CompleteTruncation once the store has been cut.
func (n *InMemoryNavigator[E]) NotifyTruncation(seqNum uint64) error {
	if seqNum == 0 {
		return invalidArgument("NotifyTruncation", seqNum, "sentinel cannot be truncated")
	}

	removed := n.index.truncateFrom(seqNum)
	n.logger.Info("index truncated", logging.SeqNum(seqNum), logging.Count(removed))
	if n.metrics != nil {
		n.metrics.RecordIndexTruncation()
	}
	n.publishIndexSize()
	return nil
}

// CompleteTruncation is called once the byte store has been cut at the
// record seqNum. Scans that ran between NotifyTruncation and the cut read the
// old bytes, so any pair at or past seqNum they cached is dropped and scans
// still in flight are prevented from caching.
func (n *InMemoryNavigator[E]) CompleteTruncation(seqNum uint64) error {
	if seqNum == 0 {
		return invalidArgument("CompleteTruncation", seqNum, "sentinel cannot be truncated")
	}

	if removed := n.index.truncateFrom(seqNum); removed > 0 {
		n.logger.Debug("dropped pairs cached during truncation",
			logging.SeqNum(seqNum),
			logging.Count(removed))
		n.publishIndexSize()
	}
	return nil
}

// AddressOf returns the byte offset at which record seqNum begins. Unindexed
// records are found by scanning forward from the nearest indexed record at
// or below seqNum, and the result is cached.
func (n *InMemoryNavigator[E]) AddressOf(seqNum uint64) (int64, error) {
	start := time.Now()
	if address, ok := n.index.get(seqNum); ok {
		n.recordLookup(opAddressOf, metrics.ResultHit, 0, start)
		return address, nil
	}

	reader, address, err := n.readerAt(opAddressOf, seqNum, start)
	if err != nil {
		return 0, err
	}
	if err := reader.Close(); err != nil {
		return 0, fmt.Errorf("close reader: %w", err)
	}
	return address, nil
}

// StreamAt returns a reader positioned at the start of record seqNum. The
// caller must close it.
func (n *InMemoryNavigator[E]) StreamAt(seqNum uint64) (PersistenceReader, error) {
	reader, _, err := n.readerAt(opStreamAt, seqNum, time.Now())
	return reader, err
}

// StreamAtFirst returns a reader positioned at the file offset. The index is
// not consulted.
func (n *InMemoryNavigator[E]) StreamAtFirst() (PersistenceReader, error) {
	start := time.Now()
	reader, err := n.openReader(n.fileOffset)
	if err != nil {
		n.recordLookup(opStreamAtFirst, metrics.ResultError, 0, start)
		return nil, err
	}
	n.recordLookup(opStreamAtFirst, metrics.ResultHit, 0, start)
	return reader, nil
}

// StreamAtLast scans from the greatest indexed record to the end of data and
// returns a reader positioned at the last complete record, which is cached.
// On an empty log the reader is positioned at the file offset.
//
// Cost grows with the distance between the last indexed record and the true
// end, so writers should call NotifyAppend promptly.
func (n *InMemoryNavigator[E]) StreamAtLast() (_ PersistenceReader, err error) {
	start := time.Now()
	last, epoch := n.index.last()

	reader, err := n.openReader(last.address)
	if err != nil {
		n.recordLookup(opStreamAtLast, metrics.ResultError, 0, start)
		return nil, err
	}
	keep := false
	defer func() {
		if !keep {
			err = closeOnFailure(reader, err)
		}
	}()

	lastSeqNum, lastAddress := last.seqNum, last.address
	scanned := 0
	for {
		entryStart, err := reader.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, n.fail(opStreamAtLast, lastSeqNum, scanned, start, err)
		}
		seqNum, err := n.codec.SkipEntryAndReturnSeqNum(reader)
		if IsEndOfData(err) {
			break
		}
		if err != nil {
			return nil, n.fail(opStreamAtLast, lastSeqNum, scanned, start, err)
		}
		scanned++
		lastSeqNum, lastAddress = seqNum, entryStart
	}

	if _, err := reader.Seek(lastAddress, io.SeekStart); err != nil {
		return nil, n.fail(opStreamAtLast, lastSeqNum, scanned, start, err)
	}
	if n.index.putIfEpoch(lastSeqNum, lastAddress, epoch) {
		n.publishIndexSize()
	}

	n.logger.Debug("located last entry",
		logging.SeqNum(lastSeqNum),
		logging.Address(lastAddress),
		logging.Count(scanned),
		logging.Latency(time.Since(start)))
	n.recordLookup(opStreamAtLast, metrics.ResultScan, scanned, start)
	keep = true
	return reader, nil
}

// LastIndexedSeqNum returns the greatest sequence number in the index, 0 if
// only the sentinel is present.
func (n *InMemoryNavigator[E]) LastIndexedSeqNum() uint64 {
	last, _ := n.index.last()
	return last.seqNum
}

// IndexLen returns the number of indexed pairs, sentinel included.
func (n *InMemoryNavigator[E]) IndexLen() int {
	return n.index.len()
}

// IndexedSeqNums returns the indexed sequence numbers in ascending order.
func (n *InMemoryNavigator[E]) IndexedSeqNums() []uint64 {
	return n.index.seqNums()
}

// readerAt returns a reader positioned at record seqNum and its address.
// The reader is closed on every path that does not return it.
func (n *InMemoryNavigator[E]) readerAt(op string, seqNum uint64, start time.Time) (_ PersistenceReader, _ int64, err error) {
	floor, epoch := n.index.floor(seqNum)

	reader, err := n.openReader(floor.address)
	if err != nil {
		n.recordLookup(op, metrics.ResultError, 0, start)
		return nil, 0, err
	}
	if floor.seqNum == seqNum {
		n.recordLookup(op, metrics.ResultHit, 0, start)
		return reader, floor.address, nil
	}
	keep := false
	defer func() {
		if !keep {
			err = closeOnFailure(reader, err)
		}
	}()

	scanned := 0
	for {
		entryStart, err := reader.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, n.fail(op, seqNum, scanned, start, err)
		}

		entrySeqNum, err := n.codec.SkipEntryAndReturnSeqNum(reader)
		if IsEndOfData(err) {
			n.recordLookup(op, metrics.ResultNotFound, scanned, start)
			return nil, 0, notFound(op, seqNum, "end of data reached before entry")
		}
		if err != nil {
			return nil, 0, n.fail(op, seqNum, scanned, start, err)
		}
		scanned++

		if entrySeqNum == seqNum {
			if _, err := reader.Seek(entryStart, io.SeekStart); err != nil {
				return nil, 0, n.fail(op, seqNum, scanned, start, err)
			}
			if n.index.putIfEpoch(seqNum, entryStart, epoch) {
				n.publishIndexSize()
			}
			n.logger.Debug("scan located entry",
				logging.SeqNum(seqNum),
				logging.Address(entryStart),
				logging.Count(scanned),
				logging.Latency(time.Since(start)))
			n.recordLookup(op, metrics.ResultScan, scanned, start)
			keep = true
			return reader, entryStart, nil
		}

		if entrySeqNum > seqNum {
			n.recordLookup(op, metrics.ResultNotFound, scanned, start)
			return nil, 0, notFound(op, seqNum, fmt.Sprintf("log skips from below to %d", entrySeqNum))
		}
	}
}

func (n *InMemoryNavigator[E]) openReader(address int64) (PersistenceReader, error) {
	reader, err := n.persistence.Reader()
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}
	if _, err := reader.Seek(address, io.SeekStart); err != nil {
		return nil, closeOnFailure(reader, fmt.Errorf("seek to %d: %w", address, err))
	}
	return reader, nil
}

// closeOnFailure closes a reader that will not be handed to the caller and
// adds any close error to err.
func closeOnFailure(reader PersistenceReader, err error) error {
	if cerr := reader.Close(); cerr != nil {
		return errors.Join(err, fmt.Errorf("close reader: %w", cerr))
	}
	return err
}

// fail records and wraps an I/O or codec failure during a scan.
func (n *InMemoryNavigator[E]) fail(op string, seqNum uint64, scanned int, start time.Time, cause error) error {
	n.recordLookup(op, metrics.ResultError, scanned, start)
	n.logger.Error("navigator scan failed", logging.Operation(op), logging.SeqNum(seqNum), logging.Error(cause))
	return &NavigatorError{Op: op, SeqNum: seqNum, Cause: cause}
}

func (n *InMemoryNavigator[E]) recordLookup(op, result string, scanned int, start time.Time) {
	if n.metrics == nil {
		return
	}
	n.metrics.RecordLookup(op, result, scanned, time.Since(start))
}

func (n *InMemoryNavigator[E]) publishIndexSize() {
	if n.metrics == nil {
		return
	}
	n.metrics.SetIndexSize(n.name, n.index.len())
}
