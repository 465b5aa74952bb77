package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// File is a Source reading from an opened file. Close must be called
// on every path once the decode is done.
type File struct {
	*Source
	f           *os.File
	dec         io.Closer
	compression Compression
}

// Open opens name and wraps it in a Source. Compressed files (gzip, zstd)
// are decoded transparently. A missing file is reported here, before any
// byte is consumed.
func Open(name string, opts ...SourceOption) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("stream: open %s: %w", name, err)
	}

	rc, c, err := Decompress(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stream: open %s: %w", name, err)
	}

	src := NewSource(rc, opts...)
	// Deadlines apply to the file, not to the decompressor in front of it.
	src.dl = f

	return &File{
		Source:      src,
		f:           f,
		dec:         rc,
		compression: c,
	}, nil
}

// Name returns the name of the underlying file.
func (f *File) Name() string {
	return f.f.Name()
}

// Compression returns the detected compression of the file.
func (f *File) Compression() Compression {
	return f.compression
}

// Close releases the decompressor and the file.
func (f *File) Close() error {
	return errors.Join(f.dec.Close(), f.f.Close())
}
