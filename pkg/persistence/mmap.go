package persistence

import (
	"fmt"
	"sync"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
)

// MappedPersistence is a read-only memory map of a sealed log file. It is
// the cheap way to replay or inspect a log that is no longer written to.
type MappedPersistence struct {
	path   string
	reader *mmap.ReaderAt
	mu     sync.Mutex
	closed bool
}

// OpenMapped maps the file at path read-only.
func OpenMapped(path string) (*MappedPersistence, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map log file %s: %w", path, err)
	}
	return &MappedPersistence{path: path, reader: reader}, nil
}

func (m *MappedPersistence) Size() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	return int64(m.reader.Len()), nil
}

func (m *MappedPersistence) Append(data []byte) (int64, error) {
	return 0, ErrReadOnly
}

func (m *MappedPersistence) Truncate(size int64) error {
	return ErrReadOnly
}

func (m *MappedPersistence) Sync() error {
	return nil
}

func (m *MappedPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.reader.Close()
}

func (m *MappedPersistence) Reader() (navigator.PersistenceReader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	size := int64(m.reader.Len())
	return newStream(m.reader, func() int64 { return size }), nil
}
