package persistence

import (
	"errors"
	"fmt"
	"io"
)

// stream is an independent positioned reader over an io.ReaderAt. Reads at
// or past size() report io.EOF regardless of how the ReaderAt treats them.
type stream struct {
	ra     io.ReaderAt
	size   func() int64
	pos    int64
	closed bool
}

func newStream(ra io.ReaderAt, size func() int64) *stream {
	return &stream{ra: ra, size: size}
}

func (s *stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	remaining := s.size() - s.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := s.ra.ReadAt(p, s.pos)
	s.pos += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}

func (s *stream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = s.size() + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: negative position %d", abs)
	}
	s.pos = abs
	return abs, nil
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}
