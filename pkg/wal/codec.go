package wal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/dd0wney/cluso-seqlog/pkg/pools"
)

// Record format:
// [LSN:8][Term:8][Compression:1][DataLen:4][Data:DataLen][Checksum:4]
// little endian, checksum is CRC32 (IEEE) over the stored data.
const (
	recordHeaderSize  = 21
	recordTrailerSize = 4

	// MaxEntryDataSize bounds a single entry's stored data.
	MaxEntryDataSize = 64 << 20
)

// Codec encodes entries for a sequential log and implements the navigator's
// skip primitive. It is safe for concurrent use.
type Codec struct {
	compression Compression
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

// NewCodec creates a codec that writes new entries with compression. It can
// decode entries written with any compression.
func NewCodec(compression Compression) (*Codec, error) {
	if compression > maxCompression {
		return nil, fmt.Errorf("codec: %w: %d", ErrUnknownCompression, compression)
	}

	c := &Codec{compression: compression}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decoder: %w", err)
	}
	c.decoder = decoder

	if compression == CompressionZstd {
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			decoder.Close()
			return nil, fmt.Errorf("codec: zstd encoder: %w", err)
		}
		c.encoder = encoder
	}

	return c, nil
}

// Compression returns the compression used for new entries.
func (c *Codec) Compression() Compression {
	return c.compression
}

// Close releases the zstd decoder and encoder.
func (c *Codec) Close() error {
	c.decoder.Close()
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}

// Encode writes entry to w in a single Write call.
func (c *Codec) Encode(w io.Writer, entry *Entry) error {
	data, compression, err := c.compress(entry.Data)
	if err != nil {
		return err
	}
	if len(data) > MaxEntryDataSize {
		return fmt.Errorf("LSN %d: %w (%d bytes)", entry.LSN, ErrEntryTooLarge, len(data))
	}

	buf := pools.GetBytesSized(recordHeaderSize + len(data) + recordTrailerSize)
	defer pools.PutBytes(buf)
	binary.LittleEndian.PutUint64(buf[0:8], entry.LSN)
	binary.LittleEndian.PutUint64(buf[8:16], entry.Term)
	buf[16] = byte(compression)
	binary.LittleEndian.PutUint32(buf[17:21], uint32(len(data)))
	copy(buf[recordHeaderSize:], data)
	binary.LittleEndian.PutUint32(buf[recordHeaderSize+len(data):], crc32.ChecksumIEEE(data))

	_, err = w.Write(buf)
	return err
}

// EncodedSize returns the number of bytes Encode would write for entry.
func (c *Codec) EncodedSize(entry *Entry) (int, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, entry); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// Decode reads one entry and verifies its checksum. It returns io.EOF at a
// clean end of data and io.ErrUnexpectedEOF for a torn record.
func (c *Codec) Decode(r io.Reader) (*Entry, error) {
	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	body := pools.GetBytesSized(int(hdr.dataLen) + recordTrailerSize)
	if hdr.compression != CompressionNone {
		// Uncompressed entries keep the body as their Data.
		defer pools.PutBytes(body)
	}
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, unexpected(err)
	}

	stored := body[:hdr.dataLen]
	checksum := binary.LittleEndian.Uint32(body[hdr.dataLen:])
	if actual := crc32.ChecksumIEEE(stored); actual != checksum {
		return nil, fmt.Errorf("LSN %d: %w: expected %08x, got %08x", hdr.lsn, ErrChecksumMismatch, checksum, actual)
	}

	data, err := c.decompress(hdr.compression, stored)
	if err != nil {
		return nil, fmt.Errorf("LSN %d: %w", hdr.lsn, err)
	}

	return &Entry{
		LSN:      hdr.lsn,
		Term:     hdr.term,
		Data:     data,
		Checksum: checksum,
	}, nil
}

// SkipEntryAndReturnSeqNum reads only the record header and moves r past the
// record. Seekable readers jump over the data and read the record's final
// byte so a torn record still reports io.ErrUnexpectedEOF.
func (c *Codec) SkipEntryAndReturnSeqNum(r io.Reader) (uint64, error) {
	hdr, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	rest := int64(hdr.dataLen) + recordTrailerSize
	if seeker, ok := r.(io.Seeker); ok {
		if _, err := seeker.Seek(rest-1, io.SeekCurrent); err != nil {
			return 0, err
		}
		var last [1]byte
		if _, err := io.ReadFull(r, last[:]); err != nil {
			return 0, unexpected(err)
		}
		return hdr.lsn, nil
	}

	if _, err := io.CopyN(io.Discard, r, rest); err != nil {
		return 0, unexpected(err)
	}
	return hdr.lsn, nil
}

type recordHeader struct {
	lsn         uint64
	term        uint64
	compression Compression
	dataLen     uint32
}

func readHeader(r io.Reader) (recordHeader, error) {
	var buf [recordHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		// io.ReadFull already distinguishes a clean io.EOF from a short header.
		return recordHeader{}, err
	}

	hdr := recordHeader{
		lsn:         binary.LittleEndian.Uint64(buf[0:8]),
		term:        binary.LittleEndian.Uint64(buf[8:16]),
		compression: Compression(buf[16]),
		dataLen:     binary.LittleEndian.Uint32(buf[17:21]),
	}
	if hdr.dataLen > MaxEntryDataSize {
		return recordHeader{}, fmt.Errorf("LSN %d: %w (%d bytes)", hdr.lsn, ErrEntryTooLarge, hdr.dataLen)
	}
	if hdr.compression > maxCompression {
		return recordHeader{}, fmt.Errorf("LSN %d: %w: %d", hdr.lsn, ErrUnknownCompression, hdr.compression)
	}
	return hdr, nil
}

// compress returns the data to store and the compression it was stored
// with. Data that does not shrink is stored uncompressed.
func (c *Codec) compress(data []byte) ([]byte, Compression, error) {
	var out []byte
	switch c.compression {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionSnappy:
		out = snappy.Encode(nil, data)
	case CompressionZstd:
		out = c.encoder.EncodeAll(data, nil)
	case CompressionLZ4:
		var err error
		if out, err = compressLZ4(data); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, ErrUnknownCompression
	}

	if out == nil || len(out) >= len(data) {
		return data, CompressionNone, nil
	}
	return out, c.compression, nil
}

func (c *Codec) decompress(compression Compression, data []byte) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}
		return out, nil
	case CompressionZstd:
		out, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		return decompressLZ4(data)
	default:
		return nil, ErrUnknownCompression
	}
}

// LZ4 data is stored as [UncompressedLen:4][block]. A nil result means the
// block did not compress.
func compressLZ4(data []byte) ([]byte, error) {
	out := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(data)))

	written, err := lz4.CompressBlock(data, out[4:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 {
		return nil, nil
	}
	return out[:4+written], nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("lz4 decode: %d bytes is too short", len(data))
	}
	size := binary.LittleEndian.Uint32(data[0:4])
	if size > MaxEntryDataSize {
		return nil, fmt.Errorf("lz4 decode: %w (%d bytes)", ErrEntryTooLarge, size)
	}

	out := make([]byte, size)
	read, err := lz4.UncompressBlock(data[4:], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decode: %w", err)
	}
	if read != int(size) {
		return nil, fmt.Errorf("lz4 decode: got %d bytes, expected %d", read, size)
	}
	return out, nil
}

// unexpected maps a clean EOF inside a record to io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
