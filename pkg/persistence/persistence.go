// Package persistence provides byte stores for sequential logs: a growable
// in-memory buffer, an append-only file, and a read-only memory map of a
// sealed file. Every store hands out independent readers.
package persistence

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
)

var (
	// ErrReadOnly is returned when writing to a read-only store.
	ErrReadOnly = errors.New("byte store is read-only")
	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("byte store is closed")
	// ErrInvalidSize is returned when truncating to a size outside [0, Size()].
	ErrInvalidSize = errors.New("invalid truncation size")
)

// BytePersistence is an append-only, byte-addressable store.
type BytePersistence interface {
	navigator.BytePersistence

	// Size returns the number of bytes in the store.
	Size() (int64, error)

	// Append writes data at the end of the store and returns the offset it
	// begins at.
	Append(data []byte) (int64, error)

	// Truncate discards every byte at or past size.
	Truncate(size int64) error

	// Sync makes appended data durable.
	Sync() error

	// Close releases the store. Readers already handed out may fail afterwards.
	Close() error
}

// Backend names a BytePersistence implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMmap   Backend = "mmap"
	BackendMemory Backend = "memory"
)

// Open opens the store for backend at path. path is ignored for memory.
func Open(backend Backend, path string, syncOnAppend bool) (BytePersistence, error) {
	switch backend {
	case BackendFile, "":
		return OpenFile(path, syncOnAppend)
	case BackendMmap:
		return OpenMapped(path)
	case BackendMemory:
		return NewMemoryPersistence(), nil
	default:
		return nil, fmt.Errorf("unknown byte store backend %q", backend)
	}
}

var (
	_ BytePersistence = (*MemoryPersistence)(nil)
	_ BytePersistence = (*FilePersistence)(nil)
	_ BytePersistence = (*MappedPersistence)(nil)
)
