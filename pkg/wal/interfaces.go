package wal

// Appender is the interface for appending entries to a log.
type Appender interface {
	// Append writes entries, which must continue the log's sequence numbers.
	Append(entries ...*Entry) error
}

// Reader is the interface for reading entries back from a log.
type Reader interface {
	// Subsequence returns the entries with LSN in [start, end).
	Subsequence(start, end uint64) ([]*Entry, error)

	// LastEntry returns the entry with the greatest LSN.
	LastEntry() (*Entry, error)

	// Replay calls handler for every entry from the first, in order.
	Replay(handler func(*Entry) error) error
}

// Manager is the interface for log lifecycle management.
type Manager interface {
	// Truncate removes every entry with LSN >= seqNum.
	Truncate(seqNum uint64) error

	// Close syncs and closes the log.
	Close() error

	// LastSeqNum returns the LSN of the last entry, 0 for an empty log.
	LastSeqNum() uint64
}

// SequentialLog is the complete interface for an encoded sequential log.
type SequentialLog interface {
	Appender
	Reader
	Manager
}

var _ SequentialLog = (*Log)(nil)
