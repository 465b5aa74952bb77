package bencode

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/Neumenon/bencode/stream"
)

// ByteSource supplies input bytes to the Lexer.
// stream.Source implements it for both buffered and streamed input.
type ByteSource interface {
	NextByte() (byte, bool)
	PeekByte() (byte, bool)
	ReadFull(p []byte) int
	Offset() int64
	Err() error
}

// TokenType represents the type of a lexer token.
type TokenType uint8

const (
	TokenIllegal TokenType = iota

	// Structural
	TokenListStart  // l
	TokenDictStart  // d
	TokenIntStart   // i
	TokenEnd        // e
	TokenColon      // :
	TokenStringSize // 4 in 4:spam

	// Payloads
	TokenInt    // 42 in i42e
	TokenString // spam in 4:spam

	TokenEOF
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenIllegal:
		return "ILLEGAL"
	case TokenListStart:
		return "LIST_START"
	case TokenDictStart:
		return "DICT_START"
	case TokenIntStart:
		return "INT_START"
	case TokenEnd:
		return "END"
	case TokenColon:
		return "COLON"
	case TokenStringSize:
		return "STRING_SIZE"
	case TokenInt:
		return "INT"
	case TokenString:
		return "STRING"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexer token.
type Token struct {
	Type   TokenType
	Int    int64  // TokenInt
	Size   uint64 // TokenStringSize
	Bytes  []byte // String payload, digit run of Int/StringSize, offending bytes of Illegal
	Reason string // Why the token is Illegal
	Pos    int64  // Offset of the token's first byte
}

// String returns a debug representation of the token.
func (t Token) String() string {
	switch t.Type {
	case TokenInt:
		return fmt.Sprintf("INT(%d)", t.Int)
	case TokenStringSize:
		return fmt.Sprintf("STRING_SIZE(%d)", t.Size)
	case TokenString:
		return fmt.Sprintf("STRING(%q)", t.Bytes)
	case TokenIllegal:
		if t.Reason != "" {
			return fmt.Sprintf("ILLEGAL(%s)", t.Reason)
		}
	}
	return t.Type.String()
}

// DefaultMaxStringLen bounds a single byte string (256 MiB).
const DefaultMaxStringLen = 256 << 20

// stringChunk caps each allocation step while reading a byte string, so a
// forged length prefix on truncated input cannot force a huge allocation.
const stringChunk = 64 << 10

// LexerOptions configures the lexer.
type LexerOptions struct {
	// MaxStringLen limits byte string length (default: 256 MiB)
	MaxStringLen uint64
}

// DefaultLexerOptions returns sensible defaults.
func DefaultLexerOptions() LexerOptions {
	return LexerOptions{MaxStringLen: DefaultMaxStringLen}
}

// Lexer tokenizes bencode from a ByteSource.
type Lexer struct {
	src ByteSource

	// Last two tokens returned; they decide how digits and 'e' are read.
	prev     Token
	prevprev Token

	raw []byte // Bytes consumed by the token being scanned (not string payloads)

	capturing    bool
	capture      []byte
	captureStart int64

	maxStringLen uint64
}

// NewLexer creates a lexer reading from src.
func NewLexer(src ByteSource, opts LexerOptions) *Lexer {
	if opts.MaxStringLen == 0 {
		opts.MaxStringLen = DefaultMaxStringLen
	}
	return &Lexer{
		src:          src,
		maxStringLen: opts.MaxStringLen,
	}
}

// NewBytesLexer creates a lexer over a fully-buffered input.
func NewBytesLexer(data []byte) *Lexer {
	return NewLexer(stream.NewBytesSource(data), DefaultLexerOptions())
}

// NextToken returns the next token. Once the input is exhausted it keeps
// returning TokenEOF.
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	l.prevprev = l.prev
	l.prev = tok
	return tok
}

// Tokenize returns all tokens up to and including TokenEOF.
// The error is the first illegal token, if any.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	var err error
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenIllegal && err == nil {
			err = Diagnostic{Kind: LexError, Message: tok.Reason, Pos: tok.Pos}
		}
		if tok.Type == TokenEOF {
			return tokens, err
		}
	}
}

func (l *Lexer) scan() Token {
	l.raw = l.raw[:0]
	pos := l.src.Offset()

	// Payload of a byte string: taken verbatim, delimiters included.
	if l.prev.Type == TokenColon && l.prevprev.Type == TokenStringSize {
		return l.scanString(pos, l.prevprev.Size)
	}

	ch, ok := l.read()
	if !ok {
		return Token{Type: TokenEOF, Pos: pos}
	}

	switch ch {
	case 'd':
		return Token{Type: TokenDictStart, Pos: pos}
	case 'l':
		return Token{Type: TokenListStart, Pos: pos}
	case 'i':
		return Token{Type: TokenIntStart, Pos: pos}
	case ':':
		return Token{Type: TokenColon, Pos: pos}
	case 'e':
		if l.prev.Type == TokenColon {
			return l.illegal(pos, "unexpected 'e' after ':'")
		}
		return Token{Type: TokenEnd, Pos: pos}
	}

	if ch == '-' || isDigit(ch) {
		return l.scanNumber(pos)
	}

	return l.illegal(pos, fmt.Sprintf("unexpected byte %q", ch))
}

// scanNumber scans a digit run whose first byte is already consumed.
// The closing 'e' or ':' is left for the next token.
func (l *Lexer) scanNumber(pos int64) Token {
	for {
		c, ok := l.src.PeekByte()
		if !ok || !isDigit(c) {
			break
		}
		l.read()
	}

	next, ok := l.src.PeekByte()
	if !ok {
		return l.illegal(pos, "unterminated number")
	}
	if next != 'e' && next != ':' {
		return l.illegal(pos, fmt.Sprintf("unexpected %q after number", next))
	}
	if len(l.raw) == 1 && l.raw[0] == '-' {
		return l.illegal(pos, "missing digits after '-'")
	}

	digits := slices.Clone(l.raw)
	switch {
	case l.prev.Type == TokenIntStart:
		v, err := strconv.ParseInt(string(digits), 10, 64)
		if err != nil {
			return l.illegal(pos, fmt.Sprintf("integer %s out of range", digits))
		}
		return Token{Type: TokenInt, Int: v, Bytes: digits, Pos: pos}

	case next == ':':
		if digits[0] == '-' {
			return l.illegal(pos, "negative byte string length")
		}
		n, err := strconv.ParseUint(string(digits), 10, 64)
		if err != nil {
			return l.illegal(pos, fmt.Sprintf("byte string length %s out of range", digits))
		}
		return Token{Type: TokenStringSize, Size: n, Bytes: digits, Pos: pos}

	default:
		return l.illegal(pos, "integer outside i...e")
	}
}

// scanString reads exactly n raw bytes.
func (l *Lexer) scanString(pos int64, n uint64) Token {
	if n > l.maxStringLen {
		return Token{
			Type:   TokenIllegal,
			Reason: fmt.Sprintf("byte string length %d exceeds limit %d", n, l.maxStringLen),
			Pos:    pos,
		}
	}

	buf := make([]byte, 0, min(n, stringChunk))
	for uint64(len(buf)) < n {
		want := int(min(n-uint64(len(buf)), stringChunk))
		start := len(buf)
		buf = slices.Grow(buf, want)[:start+want]
		got := l.src.ReadFull(buf[start:])
		buf = buf[:start+got]
		if l.capturing {
			l.capture = append(l.capture, buf[start:]...)
		}
		if got < want {
			return Token{
				Type:   TokenIllegal,
				Bytes:  buf,
				Reason: fmt.Sprintf("truncated byte string: want %d bytes, got %d", n, len(buf)),
				Pos:    pos,
			}
		}
	}

	return Token{Type: TokenString, Bytes: buf, Pos: pos}
}

func (l *Lexer) illegal(pos int64, reason string) Token {
	return Token{
		Type:   TokenIllegal,
		Bytes:  slices.Clone(l.raw),
		Reason: reason,
		Pos:    pos,
	}
}

// read consumes one byte, recording it for the current token and any
// active capture.
func (l *Lexer) read() (byte, bool) {
	c, ok := l.src.NextByte()
	if !ok {
		return 0, false
	}
	l.raw = append(l.raw, c)
	if l.capturing {
		l.capture = append(l.capture, c)
	}
	return c, true
}

// beginCapture starts recording input from the next token on.
func (l *Lexer) beginCapture() {
	l.capturing = true
	l.captureStart = l.src.Offset()
	l.capture = l.capture[:0]
}

// endCapture stops recording and returns the input in [start, end).
func (l *Lexer) endCapture(end int64) []byte {
	l.capturing = false
	n := end - l.captureStart
	raw := l.capture
	l.capture = nil
	if n < 0 || n > int64(len(raw)) {
		return nil
	}
	return raw[:n]
}

// Offset returns the offset just past the last token returned.
func (l *Lexer) Offset() int64 {
	return l.src.Offset()
}

// Err returns the read error of the underlying source, if any.
func (l *Lexer) Err() error {
	return l.src.Err()
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
