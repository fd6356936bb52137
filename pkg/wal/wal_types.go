package wal

import (
	"fmt"
)

// Entry is a single log record.
type Entry struct {
	LSN      uint64 // Log Sequence Number
	Term     uint64 // election term the entry was written in
	Data     []byte
	Checksum uint32 // CRC32 of the stored (possibly compressed) data, set on decode
}

// SeqNum returns the entry's log sequence number.
func (e *Entry) SeqNum() uint64 {
	return e.LSN
}

// Compression identifies how an entry's data is stored. It is written into
// every record header, so a log may mix compressions.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4

	maxCompression = CompressionLZ4
)

// String returns the configuration name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression converts a configuration name to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("compression %q: %w", s, ErrUnknownCompression)
	}
}
