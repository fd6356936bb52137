package wal

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-seqlog/pkg/persistence"
)

// File header: [Magic:4][Version:2][Reserved:2]. Entries start right after it,
// so HeaderSize is the navigator's file offset.
const (
	HeaderSize    = 8
	headerMagic   = "SQLG"
	formatVersion = 1
)

func encodeHeader() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], headerMagic)
	binary.LittleEndian.PutUint16(buf[4:6], formatVersion)
	return buf
}

// ensureHeader writes the header to an empty store or validates an existing one.
func ensureHeader(store persistence.BytePersistence) error {
	size, err := store.Size()
	if err != nil {
		return err
	}
	if size == 0 {
		if _, err := store.Append(encodeHeader()); err != nil {
			return fmt.Errorf("failed to write log header: %w", err)
		}
		return nil
	}

	reader, err := store.Reader()
	if err != nil {
		return err
	}
	defer reader.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("%w: short header: %v", ErrBadHeader, err)
	}
	if string(buf[0:4]) != headerMagic {
		return fmt.Errorf("%w: magic %q", ErrBadHeader, buf[0:4])
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != formatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadHeader, v)
	}
	return nil
}
