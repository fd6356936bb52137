package persistence

import (
	"fmt"
	"io"
	"sync"

	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
)

// MemoryPersistence is a growable in-memory byte store.
type MemoryPersistence struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

// NewMemoryPersistence returns an empty in-memory store.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.data)), nil
}

func (m *MemoryPersistence) Append(data []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	offset := int64(len(m.data))
	m.data = append(m.data, data...)
	return offset, nil
}

func (m *MemoryPersistence) Truncate(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if size < 0 || size > int64(len(m.data)) {
		return fmt.Errorf("truncate to %d of %d bytes: %w", size, len(m.data), ErrInvalidSize)
	}
	m.data = m.data[:size]
	return nil
}

func (m *MemoryPersistence) Sync() error {
	return nil
}

func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// ReadAt implements io.ReaderAt over the live buffer.
func (m *MemoryPersistence) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryPersistence) Reader() (navigator.PersistenceReader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	return newStream(m, m.currentSize), nil
}

func (m *MemoryPersistence) currentSize() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data))
}
