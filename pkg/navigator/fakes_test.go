package navigator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// testEntry encodes as [SeqNum:8][Len:2][Payload:Len].
type testEntry struct {
	seq     uint64
	payload []byte
}

func (e testEntry) SeqNum() uint64 { return e.seq }

const testHeaderSize = 10

type testCodec struct {
	skips atomic.Int64
}

func (c *testCodec) Encode(w io.Writer, e testEntry) error {
	var hdr [testHeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], e.seq)
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(len(e.payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(e.payload)
	return err
}

func (c *testCodec) Decode(r io.Reader) (testEntry, error) {
	var hdr [testHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return testEntry{}, err
	}
	payload := make([]byte, binary.LittleEndian.Uint16(hdr[8:10]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return testEntry{}, err
	}
	return testEntry{seq: binary.LittleEndian.Uint64(hdr[0:8]), payload: payload}, nil
}

func (c *testCodec) SkipEntryAndReturnSeqNum(r io.Reader) (uint64, error) {
	c.skips.Add(1)
	var hdr [testHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	n := int64(binary.LittleEndian.Uint16(hdr[8:10]))
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(hdr[0:8]), nil
}

// memStore is an append-only byte slice that hands out independent readers.
type memStore struct {
	mu      sync.Mutex
	data    []byte
	opened   atomic.Int64
	closed   atomic.Int64
	failErr  error
	closeErr error
}

func (s *memStore) append(codec *testCodec, e testEntry) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := int64(len(s.data))
	var buf bytes.Buffer
	if err := codec.Encode(&buf, e); err != nil {
		panic(err)
	}
	s.data = append(s.data, buf.Bytes()...)
	return offset
}

func (s *memStore) appendRaw(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, b...)
}

func (s *memStore) truncate(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = s.data[:size]
}

func (s *memStore) Reader() (PersistenceReader, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	s.mu.Lock()
	snapshot := append([]byte(nil), s.data...)
	s.mu.Unlock()

	s.opened.Add(1)
	return &memReader{Reader: bytes.NewReader(snapshot), store: s}, nil
}

func (s *memStore) open() int64 {
	return s.opened.Load() - s.closed.Load()
}

type memReader struct {
	*bytes.Reader
	store  *memStore
	closed bool
}

func (r *memReader) Close() error {
	if !r.closed {
		r.closed = true
		r.store.closed.Add(1)
	}
	return r.store.closeErr
}

// failingCodec returns err on every skip.
type failingCodec struct {
	testCodec
	err error
}

func (c *failingCodec) SkipEntryAndReturnSeqNum(r io.Reader) (uint64, error) {
	return 0, c.err
}
