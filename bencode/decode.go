package bencode

import (
	"io"

	"golang.org/x/exp/slices"

	"github.com/Neumenon/bencode/stream"
)

const (
	DefaultMaxDepth       = 512
	DefaultMaxDiagnostics = 500
	DefaultDigestKey      = "info"
)

// DigestFunc computes a digest over the raw bytes of a value.
type DigestFunc func(raw []byte) []byte

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// MaxDepth limits nesting depth (default: 512)
	MaxDepth int

	// MaxStringLen limits byte string length (default: 256 MiB)
	MaxStringLen uint64

	// MaxDiagnostics bounds stored diagnostics; the rest are only counted (default: 500)
	MaxDiagnostics int

	// Strict reports non-canonical encodings: leading zeros, -0,
	// unsorted or duplicate dictionary keys
	Strict bool

	// DigestKey names the top-level dictionary key whose raw value is
	// passed to Digest (default: "info")
	DigestKey string

	// Digest is called with the raw bytes of DigestKey's value. Nil skips it.
	Digest DigestFunc
}

// DefaultDecodeOptions returns sensible defaults.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		MaxDepth:       DefaultMaxDepth,
		MaxStringLen:   DefaultMaxStringLen,
		MaxDiagnostics: DefaultMaxDiagnostics,
		DigestKey:      DefaultDigestKey,
	}
}

func (o DecodeOptions) withDefaults() DecodeOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxStringLen == 0 {
		o.MaxStringLen = DefaultMaxStringLen
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = DefaultMaxDiagnostics
	}
	if o.DigestKey == "" {
		o.DigestKey = DefaultDigestKey
	}
	return o
}

func (o DecodeOptions) lexerOptions() LexerOptions {
	return LexerOptions{MaxStringLen: o.MaxStringLen}
}

// Result contains the decoded top-level values and any diagnostics.
type Result struct {
	Values      []*Value
	Diagnostics []Diagnostic
	Dropped     int // Diagnostics past MaxDiagnostics
}

// HasErrors returns true if there were any diagnostics.
func (r *Result) HasErrors() bool {
	return len(r.Diagnostics) > 0 || r.Dropped > 0
}

// Err returns the diagnostics as a *DecodeError, or nil.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return &DecodeError{Diagnostics: r.Diagnostics, Dropped: r.Dropped}
}

// DecodeAll decodes every top-level value in src. The Result holds
// whatever was assembled even when diagnostics are present. The error is
// the read error that cut the input short, if any.
func DecodeAll(src ByteSource, opts DecodeOptions) (*Result, error) {
	opts = opts.withDefaults()
	p := NewParser(NewLexer(src, opts.lexerOptions()), opts)
	values := p.Parse()
	return &Result{
		Values:      values,
		Diagnostics: p.Errors(),
		Dropped:     p.Dropped(),
	}, p.Err()
}

// DecodeAllBytes decodes every top-level value in data with default options.
func DecodeAllBytes(data []byte) *Result {
	res, _ := DecodeAll(stream.NewBytesSource(data), DefaultDecodeOptions())
	return res
}

// DecodeOne decodes the first top-level value in src.
// It returns io.EOF if src holds no value.
func DecodeOne(src ByteSource, opts DecodeOptions) (*Value, []Diagnostic, error) {
	opts = opts.withDefaults()
	p := NewParser(NewLexer(src, opts.lexerOptions()), opts)
	v, ok := p.Next()
	if !ok {
		if err := p.Err(); err != nil {
			return nil, p.Errors(), err
		}
		return nil, p.Errors(), io.EOF
	}
	return v, p.Errors(), p.Err()
}

// Decode decodes the first value in data. On diagnostics the partial
// value is returned with a *DecodeError.
func Decode(data []byte) (*Value, error) {
	v, diags, err := DecodeOne(stream.NewBytesSource(data), DefaultDecodeOptions())
	if err != nil {
		return v, err
	}
	if len(diags) > 0 {
		return v, &DecodeError{Diagnostics: diags}
	}
	return v, nil
}

// Decoder reads top-level values one at a time.
type Decoder struct {
	p    *Parser
	seen int // Diagnostics already returned
	drop int
}

// NewDecoder creates a decoder reading from src.
func NewDecoder(src ByteSource, opts DecodeOptions) *Decoder {
	opts = opts.withDefaults()
	return &Decoder{p: NewParser(NewLexer(src, opts.lexerOptions()), opts)}
}

// NewReaderDecoder creates a decoder over a streamed io.Reader.
func NewReaderDecoder(r io.Reader, opts DecodeOptions, srcOpts ...stream.SourceOption) *Decoder {
	return NewDecoder(stream.NewSource(r, srcOpts...), opts)
}

// Decode returns the next top-level value, or io.EOF once the input is
// exhausted. Diagnostics raised while decoding this value are returned as
// a *DecodeError next to the partial value.
func (d *Decoder) Decode() (*Value, error) {
	v, ok := d.p.Next()
	if !ok {
		if err := d.p.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	if errs := d.p.Errors(); len(errs) > d.seen || d.p.Dropped() > d.drop {
		derr := &DecodeError{
			Diagnostics: slices.Clone(errs[d.seen:]),
			Dropped:     d.p.Dropped() - d.drop,
		}
		d.seen = len(errs)
		d.drop = d.p.Dropped()
		return v, derr
	}
	return v, nil
}

// Diagnostics returns every diagnostic recorded so far.
func (d *Decoder) Diagnostics() []Diagnostic {
	return d.p.Errors()
}
