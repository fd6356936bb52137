package navigator

import (
	"io"
)

// SequentialEntry is a log record identified by a monotonically increasing
// sequence number.
type SequentialEntry interface {
	SeqNum() uint64
}

// EntryCodec encodes and decodes records of type E to and from a byte stream.
type EntryCodec[E SequentialEntry] interface {
	// Encode writes one record to w.
	Encode(w io.Writer, entry E) error

	// Decode reads one complete record from r.
	Decode(r io.Reader) (E, error)

	// SkipEntryAndReturnSeqNum advances r past exactly one record without
	// materializing its payload and returns the record's sequence number.
	// It returns io.EOF when r is at the end of data and io.ErrUnexpectedEOF
	// when only part of a record remains.
	SkipEntryAndReturnSeqNum(r io.Reader) (uint64, error)
}

// PersistenceReader is an independent, positionable reader over a byte store.
// The current position is Seek(0, io.SeekCurrent). Readers must be closed.
type PersistenceReader = io.ReadSeekCloser

// BytePersistence hands out readers over a byte-addressable store. Readers
// returned by separate calls must not share position state.
type BytePersistence interface {
	Reader() (PersistenceReader, error)
}

// PersistenceNavigator locates records in a byte store by sequence number.
type PersistenceNavigator interface {
	// NotifyAppend reports that the record seqNum was written at byteAddress.
	NotifyAppend(seqNum uint64, byteAddress int64)

	// AddToIndex records an exact seqNum to address mapping.
	AddToIndex(seqNum uint64, address int64)

	// NotifyTruncation reports that no record with sequence number >= seqNum
	// exists any longer.
	NotifyTruncation(seqNum uint64) error

	// CompleteTruncation reports that the byte store no longer holds the
	// bytes of record seqNum or any later record.
	CompleteTruncation(seqNum uint64) error

	// AddressOf returns the byte offset at which record seqNum begins.
	AddressOf(seqNum uint64) (int64, error)

	// StreamAt returns a reader positioned at the start of record seqNum.
	StreamAt(seqNum uint64) (PersistenceReader, error)

	// StreamAtFirst returns a reader positioned at the first record.
	StreamAtFirst() (PersistenceReader, error)

	// StreamAtLast returns a reader positioned at the last complete record.
	StreamAtLast() (PersistenceReader, error)
}
