package bencode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFrozen is returned when inserting into a fully decoded dictionary.
var ErrFrozen = errors.New("bencode: dictionary is frozen")

// DiagnosticKind classifies a diagnostic.
type DiagnosticKind uint8

const (
	LexError   DiagnosticKind = iota // Illegal token
	ParseError                       // Unexpected token kind
)

// String returns the diagnostic kind name.
func (k DiagnosticKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	default:
		return "unknown error"
	}
}

// Diagnostic is a recoverable error at an input offset.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Pos     int64
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s at offset %d", d.Kind, d.Message, d.Pos)
}

// DecodeError reports the diagnostics of a failed decode.
type DecodeError struct {
	Diagnostics []Diagnostic
	Dropped     int // Diagnostics not stored because the limit was reached
}

func (e *DecodeError) Error() string {
	total := len(e.Diagnostics) + e.Dropped
	switch {
	case total == 0:
		return "bencode: decode failed"
	case total == 1 && len(e.Diagnostics) == 1:
		return "bencode: " + e.Diagnostics[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "bencode: %d errors", total)
	if len(e.Diagnostics) > 0 {
		sb.WriteString(", first: ")
		sb.WriteString(e.Diagnostics[0].Error())
	}
	return sb.String()
}

// Unwrap exposes the individual diagnostics to errors.Is / errors.As.
func (e *DecodeError) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}
	return errs
}
