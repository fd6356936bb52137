package wal

import (
	"errors"
)

var (
	ErrChecksumMismatch   = errors.New("entry checksum mismatch")
	ErrEntryTooLarge      = errors.New("entry data exceeds maximum size")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrBadHeader          = errors.New("not a sequential log file")
	ErrNonContiguous      = errors.New("entries are not contiguous with the log")
	ErrLogClosed          = errors.New("log is closed")
	ErrInvalidRange       = errors.New("invalid entry range")
)
