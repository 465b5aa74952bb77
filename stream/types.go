// Package stream supplies bytes to the bencode lexer.
//
// A Source owns a fixed-size buffer and, optionally, a backing io.Reader:
//   - One byte of lookahead (PeekByte) on top of NextByte
//   - Bulk refills from the backing reader when the buffer is exhausted
//   - An explicit end-of-input sentinel instead of blocking or erroring
//   - Optional read deadlines for readers that support them
//
// The package also holds the digest helpers (SHA-1, SHA-256, CRC-32) that
// callers inject into the decoder to compute info-hashes.
package stream

import (
	"fmt"
	"time"
)

// DefaultBufferSize is the refill chunk size used when none is configured.
const DefaultBufferSize = 4096

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 100

// deadliner is implemented by *os.File and net.Conn.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// ReadError reports a failed refill from the backing reader.
type ReadError struct {
	Offset int64 // Absolute offset where the refill started
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("stream: read at offset %d: %v", e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
