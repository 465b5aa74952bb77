package bencode

import (
	"bytes"
	"fmt"
)

// Parser builds Value trees from lexer tokens with one token of lookahead.
//
// Every production leaves cur on its own last token (End for integers,
// lists and dictionaries, String for byte strings); the caller advances.
// peek is read only when a production asks for it, so the parser never
// reads input past the end of a complete value.
type Parser struct {
	l      *Lexer
	cur    Token
	peek   Token
	peekOK bool // peek holds an unconsumed token

	// Set by Next; cur is advanced when the next value is requested.
	advance bool

	errors  []Diagnostic
	dropped int

	// Offset of the last illegal token reported, so it is reported once
	// whether it is seen as peek or as cur.
	lexReported bool
	lastLexPos  int64

	depth int
	opts  DecodeOptions
}

// NewParser creates a parser reading tokens from l.
func NewParser(l *Lexer, opts DecodeOptions) *Parser {
	return &Parser{
		l:       l,
		opts:    opts.withDefaults(),
		advance: true,
	}
}

// Parse decodes top-level values until end of input.
func (p *Parser) Parse() []*Value {
	values := []*Value{}
	for {
		v, ok := p.Next()
		if !ok {
			return values
		}
		values = append(values, v)
	}
}

// Next decodes one top-level value. ok is false at end of input.
// No input past the end of v is read.
func (p *Parser) Next() (v *Value, ok bool) {
	p.sync()
	if p.cur.Type == TokenEOF {
		return nil, false
	}
	v = p.ParseItem()
	p.advance = true
	return v, true
}

// ParseItem decodes the value starting at the current token and leaves
// cur on its last token.
func (p *Parser) ParseItem() *Value {
	p.sync()
	switch p.cur.Type {
	case TokenIntStart:
		return p.parseInteger()
	case TokenStringSize:
		return p.parseByteString()
	case TokenListStart:
		return p.parseList()
	case TokenDictStart:
		return p.parseDict()
	case TokenIllegal:
		return ErrorValue(p.lexError(p.cur))
	default:
		return ErrorValue(p.addError(ParseError, p.cur.Pos, "unexpected %s", p.cur.Type))
	}
}

// Errors returns the diagnostics recorded so far.
func (p *Parser) Errors() []Diagnostic {
	return p.errors
}

// Dropped returns how many diagnostics exceeded MaxDiagnostics.
func (p *Parser) Dropped() int {
	return p.dropped
}

// Err returns the read error of the underlying source, if any.
func (p *Parser) Err() error {
	return p.l.Err()
}

// sync moves to the first token of the value after the one Next returned.
func (p *Parser) sync() {
	if p.advance {
		p.advance = false
		p.nextToken()
	}
}

func (p *Parser) nextToken() {
	if p.peekOK {
		p.cur = p.peek
		p.peekOK = false
		return
	}
	p.cur = p.l.NextToken()
}

func (p *Parser) peekToken() Token {
	if !p.peekOK {
		p.peek = p.l.NextToken()
		p.peekOK = true
	}
	return p.peek
}

// expectPeek advances if the next token has type t. Any other token is
// left in place for the caller, unless it is illegal.
func (p *Parser) expectPeek(t TokenType) (Diagnostic, bool) {
	next := p.peekToken()
	if next.Type == t {
		p.nextToken()
		return Diagnostic{}, true
	}
	if next.Type == TokenIllegal {
		// The illegal token belongs to this value; consume it.
		p.nextToken()
		return p.lexError(p.cur), false
	}
	return p.addError(ParseError, next.Pos, "expected %s, got %s", t, next.Type), false
}

// valueEnd returns the offset just past cur.
func (p *Parser) valueEnd() int64 {
	if p.peekOK {
		return p.peek.Pos
	}
	return p.l.Offset()
}

// parseInteger parses i<digits>e. A malformed integer is dropped through
// its own e so an enclosing container stays in step.
func (p *Parser) parseInteger() *Value {
	start := p.cur.Pos

	if d, ok := p.expectPeek(TokenInt); !ok {
		p.skipIntTail()
		return ErrorValue(d).at(start)
	}
	num := p.cur

	if d, ok := p.expectPeek(TokenEnd); !ok {
		p.skipIntTail()
		return ErrorValue(d).at(start)
	}

	if p.opts.Strict && !canonicalInt(num.Bytes) {
		p.addError(ParseError, num.Pos, "non-canonical integer %s", num.Bytes)
	}
	return Int(num.Int).at(start)
}

// parseByteString parses <len>:<bytes>.
func (p *Parser) parseByteString() *Value {
	start := p.cur.Pos
	size := p.cur

	if d, ok := p.expectPeek(TokenColon); !ok {
		return ErrorValue(d).at(start)
	}
	if d, ok := p.expectPeek(TokenString); !ok {
		return ErrorValue(d).at(start)
	}

	if p.opts.Strict && len(size.Bytes) > 1 && size.Bytes[0] == '0' {
		p.addError(ParseError, size.Pos, "non-canonical byte string length %s", size.Bytes)
	}
	return Bytes(p.cur.Bytes).at(start)
}

// parseList parses l<items>e.
func (p *Parser) parseList() *Value {
	start := p.cur.Pos
	if d, ok := p.enter(); !ok {
		return ErrorValue(d).at(start)
	}
	defer p.leave()

	p.nextToken() // consume l

	elems := []*Value{}
	for p.cur.Type != TokenEnd {
		if p.cur.Type == TokenEOF {
			p.addError(ParseError, p.cur.Pos, "unterminated list starting at offset %d", start)
			break
		}
		elems = append(elems, p.ParseItem())
		p.nextToken()
	}

	return List(elems...).at(start)
}

// parseDict parses d<key value>...e.
func (p *Parser) parseDict() *Value {
	start := p.cur.Pos
	if d, ok := p.enter(); !ok {
		return ErrorValue(d).at(start)
	}
	defer p.leave()

	topLevel := p.depth == 1
	dict := NewDictionary()
	defer dict.freeze()

	p.nextToken() // consume d

	var prevKey []byte
	for p.cur.Type != TokenEnd {
		if p.cur.Type == TokenEOF {
			p.addError(ParseError, p.cur.Pos, "unterminated dictionary starting at offset %d", start)
			break
		}

		keyPos := p.cur.Pos
		key := p.ParseItem()
		if key.Kind() != KindByteString {
			// Keep what was collected and drop the rest of this dictionary.
			if !key.IsError() {
				p.addError(ParseError, keyPos, "dictionary key must be a bytestring, got %s", key.Kind())
			}
			p.skipToClose(1)
			break
		}
		k := key.bytesVal

		if p.opts.Strict {
			p.checkKeyOrder(dict, prevKey, k, keyPos)
		}
		prevKey = k

		capture := topLevel && p.opts.Digest != nil && string(k) == p.opts.DigestKey
		if capture {
			// peek is empty after a byte string key
			p.l.beginCapture()
		}

		p.nextToken() // consume key
		if p.cur.Type == TokenEnd || p.cur.Type == TokenEOF {
			p.addError(ParseError, p.cur.Pos, "missing value for key %q", k)
			if capture {
				p.l.endCapture(0)
			}
			if p.cur.Type == TokenEOF {
				p.addError(ParseError, p.cur.Pos, "unterminated dictionary starting at offset %d", start)
			}
			break
		}

		val := p.ParseItem()
		if capture {
			raw := p.l.endCapture(p.valueEnd())
			if raw != nil && !val.IsError() {
				val.digest = p.opts.Digest(raw)
			}
		}

		// Not frozen until this function returns.
		_ = dict.Insert(k, val)
		p.nextToken()
	}

	return Dict(dict).at(start)
}

func (p *Parser) checkKeyOrder(dict *Dictionary, prev, key []byte, pos int64) {
	switch {
	case dict.Has(key):
		p.addError(ParseError, pos, "duplicate dictionary key %q", key)
	case prev != nil && bytes.Compare(prev, key) > 0:
		p.addError(ParseError, pos, "dictionary key %q not sorted after %q", key, prev)
	}
}

// skipIntTail drops what is left of a malformed integer through its
// closing End. It stops short of anything that starts another value.
func (p *Parser) skipIntTail() {
	for {
		switch p.peekToken().Type {
		case TokenEnd:
			p.nextToken()
			return
		case TokenListStart, TokenDictStart, TokenIntStart, TokenStringSize, TokenEOF:
			return
		}
		p.nextToken()
	}
}

// enter accounts for one more level of nesting. Past MaxDepth the whole
// container is skipped.
func (p *Parser) enter() (Diagnostic, bool) {
	if p.depth >= p.opts.MaxDepth {
		d := p.addError(ParseError, p.cur.Pos, "nesting deeper than %d", p.opts.MaxDepth)
		p.skipToClose(1)
		return d, false
	}
	p.depth++
	return Diagnostic{}, true
}

func (p *Parser) leave() {
	p.depth--
}

// skipToClose advances until the End closing depth open containers,
// leaving cur on it (or on EOF).
func (p *Parser) skipToClose(depth int) {
	for depth > 0 {
		p.nextToken()
		switch p.cur.Type {
		case TokenListStart, TokenDictStart, TokenIntStart:
			depth++
		case TokenEnd:
			depth--
		case TokenEOF:
			return
		}
	}
}

// Error handling

func (p *Parser) addError(kind DiagnosticKind, pos int64, format string, args ...interface{}) Diagnostic {
	d := Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
	p.report(d)
	return d
}

func (p *Parser) lexError(tok Token) Diagnostic {
	d := Diagnostic{Kind: LexError, Message: tok.Reason, Pos: tok.Pos}
	if p.lexReported && p.lastLexPos == tok.Pos {
		return d
	}
	p.lexReported = true
	p.lastLexPos = tok.Pos
	p.report(d)
	return d
}

func (p *Parser) report(d Diagnostic) {
	if len(p.errors) >= p.opts.MaxDiagnostics {
		p.dropped++
		return
	}
	p.errors = append(p.errors, d)
}

// canonicalInt reports whether digits has no leading zeros and is not -0.
func canonicalInt(digits []byte) bool {
	s := digits
	if len(s) > 0 && s[0] == '-' {
		s = s[1:]
		if len(s) > 0 && s[0] == '0' {
			return false
		}
	}
	return len(s) <= 1 || s[0] != '0'
}
