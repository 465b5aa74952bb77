package bencode

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind represents bencode value kinds.
type Kind uint8

const (
	KindInteger Kind = iota
	KindByteString
	KindList
	KindDictionary
	KindError // Placeholder for a value that failed to decode
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindByteString:
		return "bytestring"
	case KindList:
		return "list"
	case KindDictionary:
		return "dictionary"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Value represents a decoded bencode value.
// Containers own their children exclusively.
type Value struct {
	kind Kind

	// Only one is valid based on kind
	intVal   int64
	bytesVal []byte
	listVal  []*Value
	dictVal  *Dictionary
	errVal   *Diagnostic

	// Set by the digest callback on the well-known key's value
	digest []byte

	// Input offset of the value's first byte
	pos int64
}

// ============================================================
// Constructors
// ============================================================

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInteger, intVal: v}
}

// Bytes creates a byte string value. b is owned by the value.
func Bytes(b []byte) *Value {
	if b == nil {
		b = []byte{}
	}
	return &Value{kind: KindByteString, bytesVal: b}
}

// String creates a byte string value from s.
func String(s string) *Value {
	return &Value{kind: KindByteString, bytesVal: []byte(s)}
}

// List creates a list value.
func List(values ...*Value) *Value {
	if values == nil {
		values = []*Value{}
	}
	return &Value{kind: KindList, listVal: values}
}

// Dict creates a dictionary value.
func Dict(d *Dictionary) *Value {
	if d == nil {
		d = NewDictionary()
	}
	return &Value{kind: KindDictionary, dictVal: d}
}

// ErrorValue creates a placeholder for a value that failed to decode.
func ErrorValue(d Diagnostic) *Value {
	return &Value{kind: KindError, errVal: &d, pos: d.Pos}
}

func (v *Value) at(pos int64) *Value {
	v.pos = pos
	return v
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindError
	}
	return v.kind
}

// Pos returns the input offset of the value's first byte.
func (v *Value) Pos() int64 {
	if v == nil {
		return -1
	}
	return v.pos
}

// IsError returns true if the value is a decode failure placeholder.
func (v *Value) IsError() bool {
	return v == nil || v.kind == KindError
}

// AsInt returns the integer value.
func (v *Value) AsInt() (int64, error) {
	if err := v.expect(KindInteger); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsBytes returns the byte string payload. The slice is owned by v.
func (v *Value) AsBytes() ([]byte, error) {
	if err := v.expect(KindByteString); err != nil {
		return nil, err
	}
	return v.bytesVal, nil
}

// AsString returns the byte string payload as a Go string.
func (v *Value) AsString() (string, error) {
	if err := v.expect(KindByteString); err != nil {
		return "", err
	}
	return string(v.bytesVal), nil
}

// AsList returns the list elements.
func (v *Value) AsList() ([]*Value, error) {
	if err := v.expect(KindList); err != nil {
		return nil, err
	}
	return v.listVal, nil
}

// AsDict returns the dictionary.
func (v *Value) AsDict() (*Dictionary, error) {
	if err := v.expect(KindDictionary); err != nil {
		return nil, err
	}
	return v.dictVal, nil
}

// Diagnostic returns the failure recorded in an error value.
func (v *Value) Diagnostic() (Diagnostic, bool) {
	if v == nil || v.kind != KindError || v.errVal == nil {
		return Diagnostic{}, false
	}
	return *v.errVal, true
}

// Digest returns the digest computed over this value's raw bytes, or nil.
func (v *Value) Digest() []byte {
	if v == nil {
		return nil
	}
	return v.digest
}

// Len returns the number of list elements, dictionary entries or bytes.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindByteString:
		return len(v.bytesVal)
	case KindList:
		return len(v.listVal)
	case KindDictionary:
		return v.dictVal.Len()
	default:
		return 0
	}
}

// Index returns the i-th list element, or nil.
func (v *Value) Index(i int) *Value {
	if v == nil || v.kind != KindList || i < 0 || i >= len(v.listVal) {
		return nil
	}
	return v.listVal[i]
}

// Get returns the dictionary entry for key, or nil.
func (v *Value) Get(key string) *Value {
	if v == nil || v.kind != KindDictionary {
		return nil
	}
	e, _ := v.dictVal.Get(key)
	return e
}

func (v *Value) expect(k Kind) error {
	if v == nil {
		return fmt.Errorf("bencode: nil value")
	}
	if v.kind != k {
		return fmt.Errorf("bencode: expected %s, got %s", k, v.kind)
	}
	return nil
}

// String returns a compact debug representation.
func (v *Value) String() string {
	var sb strings.Builder
	v.writeDebug(&sb)
	return sb.String()
}

func (v *Value) writeDebug(sb *strings.Builder) {
	if v == nil {
		sb.WriteString("<nil>")
		return
	}
	switch v.kind {
	case KindInteger:
		fmt.Fprintf(sb, "%d", v.intVal)
	case KindByteString:
		if utf8.Valid(v.bytesVal) {
			fmt.Fprintf(sb, "%q", v.bytesVal)
		} else {
			fmt.Fprintf(sb, "0x%x", v.bytesVal)
		}
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.listVal {
			if i > 0 {
				sb.WriteByte(' ')
			}
			e.writeDebug(sb)
		}
		sb.WriteByte(']')
	case KindDictionary:
		sb.WriteByte('{')
		for i, k := range v.dictVal.Keys() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			e, _ := v.dictVal.Get(k)
			fmt.Fprintf(sb, "%q:", k)
			e.writeDebug(sb)
		}
		sb.WriteByte('}')
	case KindError:
		sb.WriteString("<error")
		if v.errVal != nil {
			sb.WriteString(": ")
			sb.WriteString(v.errVal.Message)
		}
		sb.WriteByte('>')
	}
}
