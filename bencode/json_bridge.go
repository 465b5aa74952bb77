package bencode

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// ============================================================
// Go / JSON Bridge
// ============================================================
//
// Byte strings have no text encoding in bencode. ToAny keeps them as Go
// strings (binary-safe); ToJSON marks the ones that are not valid UTF-8.

// ToAny converts v to plain Go values: int64, string, []any and
// map[string]any. Error values become nil.
func (v *Value) ToAny() any {
	if v == nil {
		return nil
	}
	switch v.kind {
	case KindInteger:
		return v.intVal
	case KindByteString:
		return string(v.bytesVal)
	case KindList:
		out := make([]any, len(v.listVal))
		for i, e := range v.listVal {
			out[i] = e.ToAny()
		}
		return out
	case KindDictionary:
		out := make(map[string]any, v.dictVal.Len())
		v.dictVal.Range(func(key []byte, e *Value) bool {
			out[string(key)] = e.ToAny()
			return true
		})
		return out
	default:
		return nil
	}
}

// FromAny converts plain Go values back into a Value tree. It accepts the
// output of ToAny plus the other integer widths and []byte.
func FromAny(x any) (*Value, error) {
	switch val := x.(type) {
	case int64:
		return Int(val), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case uint32:
		return Int(int64(val)), nil
	case string:
		return String(val), nil
	case []byte:
		return Bytes(append([]byte{}, val...)), nil
	case []any:
		elems := make([]*Value, len(val))
		for i, e := range val {
			ev, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			elems[i] = ev
		}
		return List(elems...), nil
	case map[string]any:
		d := NewDictionary()
		for k, e := range val {
			ev, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			d.Insert([]byte(k), ev)
		}
		d.freeze()
		return Dict(d), nil
	default:
		return nil, fmt.Errorf("bencode: unsupported type %T", x)
	}
}

// ToJSON converts v to JSON.
//
// Byte strings that are valid UTF-8 become JSON strings; others become
// {"$base64": "..."}. Error values become {"$error": "..."}. A value
// carrying a digest is wrapped as {"$digest": "<hex>", "$value": ...}.
func ToJSON(v *Value) ([]byte, error) {
	return json.Marshal(toJSONValue(v))
}

// ToJSONIndent is ToJSON with indentation.
func ToJSONIndent(v *Value, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(toJSONValue(v), prefix, indent)
}

func toJSONValue(v *Value) any {
	out := toJSONPlain(v)
	if d := v.Digest(); d != nil {
		return map[string]any{
			"$digest": hex.EncodeToString(d),
			"$value":  out,
		}
	}
	return out
}

func toJSONPlain(v *Value) any {
	if v == nil {
		return nil
	}
	switch v.kind {
	case KindInteger:
		return v.intVal
	case KindByteString:
		if utf8.Valid(v.bytesVal) {
			return string(v.bytesVal)
		}
		return map[string]string{"$base64": base64.StdEncoding.EncodeToString(v.bytesVal)}
	case KindList:
		out := make([]any, len(v.listVal))
		for i, e := range v.listVal {
			out[i] = toJSONValue(e)
		}
		return out
	case KindDictionary:
		out := make(map[string]any, v.dictVal.Len())
		v.dictVal.Range(func(key []byte, e *Value) bool {
			out[string(key)] = toJSONValue(e)
			return true
		})
		return out
	default:
		msg := "decode failed"
		if v.errVal != nil {
			msg = v.errVal.Error()
		}
		return map[string]string{"$error": msg}
	}
}
