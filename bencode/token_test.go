package bencode

import (
	"strings"
	"testing"

	"github.com/Neumenon/bencode/stream"
)

type tokSpec struct {
	typ  TokenType
	val  string // String payload or digit run
	ival int64
}

func lexAll(t *testing.T, l *Lexer) []Token {
	t.Helper()
	var toks []Token
	for i := 0; i < 10000; i++ {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
	t.Fatal("lexer did not reach EOF")
	return nil
}

func checkTokens(t *testing.T, got []Token, want []tokSpec) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.Type != w.typ {
			t.Errorf("token %d: type = %s, want %s", i, g.Type, w.typ)
			continue
		}
		switch w.typ {
		case TokenString, TokenStringSize:
			if string(g.Bytes) != w.val {
				t.Errorf("token %d: bytes = %q, want %q", i, g.Bytes, w.val)
			}
		case TokenInt:
			if g.Int != w.ival {
				t.Errorf("token %d: int = %d, want %d", i, g.Int, w.ival)
			}
		}
	}
}

func TestLexer_TokenSequence(t *testing.T) {
	input := "5:helloi1230eli1ei2ei3ei4eed3:cow3:moo4:spam4:eggse"
	want := []tokSpec{
		{typ: TokenStringSize, val: "5"},
		{typ: TokenColon},
		{typ: TokenString, val: "hello"},
		{typ: TokenIntStart},
		{typ: TokenInt, ival: 1230},
		{typ: TokenEnd},
		{typ: TokenListStart},
		{typ: TokenIntStart}, {typ: TokenInt, ival: 1}, {typ: TokenEnd},
		{typ: TokenIntStart}, {typ: TokenInt, ival: 2}, {typ: TokenEnd},
		{typ: TokenIntStart}, {typ: TokenInt, ival: 3}, {typ: TokenEnd},
		{typ: TokenIntStart}, {typ: TokenInt, ival: 4}, {typ: TokenEnd},
		{typ: TokenEnd},
		{typ: TokenDictStart},
		{typ: TokenStringSize, val: "3"}, {typ: TokenColon}, {typ: TokenString, val: "cow"},
		{typ: TokenStringSize, val: "3"}, {typ: TokenColon}, {typ: TokenString, val: "moo"},
		{typ: TokenStringSize, val: "4"}, {typ: TokenColon}, {typ: TokenString, val: "spam"},
		{typ: TokenStringSize, val: "4"}, {typ: TokenColon}, {typ: TokenString, val: "eggs"},
		{typ: TokenEnd},
		{typ: TokenEOF},
	}

	checkTokens(t, lexAll(t, NewBytesLexer([]byte(input))), want)

	// Same tokens regardless of how the input is chunked.
	for _, size := range []int{1, 2, 3, 7} {
		src := stream.NewSource(strings.NewReader(input), stream.WithBufferSize(size))
		checkTokens(t, lexAll(t, NewLexer(src, DefaultLexerOptions())), want)
	}
}

func TestLexer_EmptyString(t *testing.T) {
	toks := lexAll(t, NewBytesLexer([]byte("l0:e")))
	checkTokens(t, toks, []tokSpec{
		{typ: TokenListStart},
		{typ: TokenStringSize, val: "0"},
		{typ: TokenColon},
		{typ: TokenString, val: ""},
		{typ: TokenEnd},
		{typ: TokenEOF},
	})
	if toks[3].Pos != 3 || toks[4].Pos != 3 {
		t.Errorf("empty string should not consume input: positions %d, %d", toks[3].Pos, toks[4].Pos)
	}
}

func TestLexer_StringWithDelimiters(t *testing.T) {
	toks := lexAll(t, NewBytesLexer([]byte("6:i1e:le")))
	checkTokens(t, toks, []tokSpec{
		{typ: TokenStringSize, val: "6"},
		{typ: TokenColon},
		{typ: TokenString, val: "i1e:le"},
		{typ: TokenEOF},
	})
}

func TestLexer_ZeroBytesInString(t *testing.T) {
	toks := lexAll(t, NewBytesLexer([]byte("3:a\x00b")))
	if toks[2].Type != TokenString || string(toks[2].Bytes) != "a\x00b" {
		t.Errorf("got %v, want STRING(\"a\\x00b\")", toks[2])
	}
}

func TestLexer_NegativeInteger(t *testing.T) {
	toks := lexAll(t, NewBytesLexer([]byte("i-42e")))
	checkTokens(t, toks, []tokSpec{
		{typ: TokenIntStart},
		{typ: TokenInt, ival: -42},
		{typ: TokenEnd},
		{typ: TokenEOF},
	})
}

func TestLexer_EOFIsSticky(t *testing.T) {
	l := NewBytesLexer([]byte("i1e"))
	lexAll(t, l)
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != TokenEOF {
			t.Fatalf("call %d after EOF: got %s", i, tok.Type)
		}
	}

	empty := NewBytesLexer(nil)
	if tok := empty.NextToken(); tok.Type != TokenEOF {
		t.Errorf("empty input: got %s, want EOF", tok.Type)
	}
}

func TestLexer_Illegal(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"unknown byte", "x", "unexpected byte"},
		{"lone minus", "i-e", "missing digits"},
		{"unterminated number", "i42", "unterminated number"},
		{"bad terminator", "i42x", "after number"},
		{"negative length", "-3:abc", "negative byte string length"},
		{"int overflow", "i9223372036854775808e", "out of range"},
		{"length overflow", "99999999999999999999:", "out of range"},
		{"truncated string", "10:abc", "truncated byte string"},
		{"bare number", "42e", "integer outside"},
		{"e after colon", "i1e:e", "unexpected 'e' after ':'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBytesLexer([]byte(tt.input)).Tokenize()
			if err == nil {
				t.Fatalf("Tokenize(%q) succeeded, want error", tt.input)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error = %q, want it to contain %q", err, tt.reason)
			}
		})
	}
}

func TestLexer_IntegerBounds(t *testing.T) {
	toks := lexAll(t, NewBytesLexer([]byte("i9223372036854775807ei-9223372036854775808e")))
	if toks[1].Int != 9223372036854775807 {
		t.Errorf("max int64: got %d", toks[1].Int)
	}
	if toks[4].Int != -9223372036854775808 {
		t.Errorf("min int64: got %d", toks[4].Int)
	}
}

func TestLexer_MaxStringLen(t *testing.T) {
	l := NewLexer(stream.NewBytesSource([]byte("5:hello")), LexerOptions{MaxStringLen: 4})
	_, err := l.Tokenize()
	if err == nil || !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("err = %v, want limit error", err)
	}
}

func TestLexer_Positions(t *testing.T) {
	toks := lexAll(t, NewBytesLexer([]byte("d3:fooi7ee")))
	want := []int64{0, 1, 2, 3, 6, 7, 8, 9, 10}
	for i, tok := range toks {
		if tok.Pos != want[i] {
			t.Errorf("token %d (%s): pos = %d, want %d", i, tok.Type, tok.Pos, want[i])
		}
	}
}
