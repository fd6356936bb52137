// Package raftlog stores the replicated log of one or more Raft quorums.
//
// InRamLog keeps entries in a slice and is the reference behaviour.
// WALRaftLog keeps each quorum's entries in its own wal.Log, so lookups go
// through the sparse navigator rather than an array index.
package raftlog

import (
	"errors"
)

var (
	// ErrIndexOutOfRange is returned for index 0 or an index past the last entry.
	ErrIndexOutOfRange = errors.New("log index out of range")
	// ErrNonContiguous is returned when appended entries do not continue the log.
	ErrNonContiguous = errors.New("entries do not continue the log")
	// ErrInvalidQuorumID is returned for a quorum ID that cannot name a log.
	ErrInvalidQuorumID = errors.New("invalid quorum ID")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("raft log is closed")
)

// LogEntry is one entry of a Raft log. Indices start at 1.
type LogEntry struct {
	Index uint64
	Term  uint64
	Data  []byte
}

// RaftLog is the storage a Raft quorum replicates into.
type RaftLog interface {
	// LogEntries appends entries. The first must have index GetLastIndex()+1.
	LogEntries(quorumID string, entries []LogEntry) error

	// GetLogEntry returns the entry at index.
	GetLogEntry(quorumID string, index uint64) (LogEntry, error)

	// GetLogTerm returns the term of the entry at index.
	GetLogTerm(quorumID string, index uint64) (uint64, error)

	// GetLastTerm returns the term of the last entry, 0 for an empty log.
	GetLastTerm(quorumID string) (uint64, error)

	// GetLastIndex returns the index of the last entry, 0 for an empty log.
	GetLastIndex(quorumID string) (uint64, error)

	// TruncateLog removes the entry at index and every entry after it.
	// Truncating past the end does nothing.
	TruncateLog(quorumID string, index uint64) error
}

var (
	_ RaftLog = (*InRamLog)(nil)
	_ RaftLog = (*WALRaftLog)(nil)
)

// checkContiguous verifies entries run without gaps from lastIndex+1.
func checkContiguous(lastIndex uint64, entries []LogEntry) error {
	for i, e := range entries {
		if want := lastIndex + 1 + uint64(i); e.Index != want {
			return &IndexError{Index: e.Index, Expected: want, Cause: ErrNonContiguous}
		}
	}
	return nil
}
