package stream

import (
	"errors"
	"io"
	"os"
	"time"
)

// Source is a buffered byte supplier with one byte of lookahead.
// It is not safe for concurrent use.
type Source struct {
	r   io.Reader
	dl  deadliner
	buf []byte

	pos  int   // Next unread index in buf
	n    int   // Logical length of buf
	base int64 // Absolute offset of buf[0]

	eof     bool
	err     error
	refills int

	bufSize int
	timeout time.Duration
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithBufferSize sets the refill chunk size (default: 4096).
func WithBufferSize(n int) SourceOption {
	return func(s *Source) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// WithReadTimeout bounds each refill when the backing reader supports
// read deadlines. Readers without deadline support ignore it.
func WithReadTimeout(d time.Duration) SourceOption {
	return func(s *Source) {
		s.timeout = d
	}
}

// NewSource creates a Source that refills from r.
func NewSource(r io.Reader, opts ...SourceOption) *Source {
	s := &Source{
		r:       r,
		bufSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if dl, ok := r.(deadliner); ok {
		s.dl = dl
	}
	s.buf = make([]byte, s.bufSize)
	return s
}

// NewBytesSource creates a fully-buffered Source over data.
// data is never modified.
func NewBytesSource(data []byte) *Source {
	return &Source{
		buf: data,
		n:   len(data),
		eof: true,
	}
}

// NextByte consumes and returns the next byte.
// ok is false once the input is exhausted.
func (s *Source) NextByte() (c byte, ok bool) {
	if !s.fill() {
		return 0, false
	}
	c = s.buf[s.pos]
	s.pos++
	return c, true
}

// PeekByte returns the next byte without consuming it.
func (s *Source) PeekByte() (c byte, ok bool) {
	if !s.fill() {
		return 0, false
	}
	return s.buf[s.pos], true
}

// ReadFull copies up to len(p) bytes into p, refilling as needed.
// It returns fewer than len(p) only at end of input.
func (s *Source) ReadFull(p []byte) int {
	read := 0
	for read < len(p) {
		if !s.fill() {
			break
		}
		k := copy(p[read:], s.buf[s.pos:s.n])
		s.pos += k
		read += k
	}
	return read
}

// Offset returns the absolute offset of the next unread byte.
func (s *Source) Offset() int64 {
	return s.base + int64(s.pos)
}

// Err returns the read error that ended the input, if any.
// A clean io.EOF is not an error.
func (s *Source) Err() error {
	return s.err
}

// Refills returns how many bulk reads have been performed.
func (s *Source) Refills() int {
	return s.refills
}

// fill makes sure at least one unread byte is buffered.
// It returns false at end of input.
func (s *Source) fill() bool {
	if s.pos < s.n {
		return true
	}
	if s.eof || s.r == nil {
		s.eof = true
		return false
	}

	s.base += int64(s.n)
	s.pos, s.n = 0, 0
	clear(s.buf)

	if s.timeout > 0 && s.dl != nil {
		if err := s.dl.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			if !errors.Is(err, os.ErrNoDeadline) {
				s.fail(err)
				return false
			}
			s.dl = nil
		}
	}

	s.refills++
	for empty := 0; s.n == 0; empty++ {
		if empty >= maxEmptyReads {
			s.fail(io.ErrNoProgress)
			return false
		}
		n, err := s.r.Read(s.buf)
		s.n = n
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = &ReadError{Offset: s.base, Err: err}
			}
			s.eof = true
			break
		}
	}
	return s.n > 0
}

func (s *Source) fail(err error) {
	s.err = &ReadError{Offset: s.base, Err: err}
	s.eof = true
}
