package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
)

// FilePersistence is an append-only log file. Writes go straight to the file
// with WriteAt, so readers see every completed Append.
type FilePersistence struct {
	path         string
	file         *os.File
	size         atomic.Int64
	syncOnAppend bool
	mu           sync.Mutex
	closed       bool
}

// OpenFile opens or creates the log file at path, creating its directory.
// With syncOnAppend every Append is followed by an fsync.
func OpenFile(path string, syncOnAppend bool) (*FilePersistence, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file %s: %w", path, err)
	}

	fp := &FilePersistence{
		path:         path,
		file:         file,
		syncOnAppend: syncOnAppend,
	}
	fp.size.Store(info.Size())
	return fp, nil
}

// Path returns the file path.
func (f *FilePersistence) Path() string {
	return f.path
}

func (f *FilePersistence) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	return f.size.Load(), nil
}

func (f *FilePersistence) Append(data []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}

	offset := f.size.Load()
	n, err := f.file.WriteAt(data, offset)
	if err != nil {
		// Drop any partial write so the next append starts on a record boundary.
		if truncErr := f.file.Truncate(offset); truncErr != nil {
			return 0, fmt.Errorf("failed to write log file: %w (rollback error: %v)", err, truncErr)
		}
		return 0, fmt.Errorf("failed to write log file: %w", err)
	}
	f.size.Store(offset + int64(n))

	if f.syncOnAppend {
		if err := f.file.Sync(); err != nil {
			return 0, fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return offset, nil
}

func (f *FilePersistence) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	current := f.size.Load()
	if size < 0 || size > current {
		return fmt.Errorf("truncate to %d of %d bytes: %w", size, current, ErrInvalidSize)
	}
	if err := f.file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate log file: %w", err)
	}
	f.size.Store(size)
	return f.file.Sync()
}

func (f *FilePersistence) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	return f.file.Sync()
}

func (f *FilePersistence) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	if err := f.file.Sync(); err != nil {
		return errors.Join(err, f.file.Close())
	}
	return f.file.Close()
}

func (f *FilePersistence) Reader() (navigator.PersistenceReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}
	return newStream(f.file, f.size.Load), nil
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileSize returns the size of a file in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
