package bencode

import (
	"golang.org/x/exp/slices"
)

// dictInitialSize is the slot count of a new dictionary.
const dictInitialSize = 16

// FNV-1a 64-bit parameters.
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// Dictionary maps raw byte-string keys to values.
//
// It is an open-addressed table with linear probing. Iteration follows
// slot order: deterministic for a given insertion sequence, but not sorted.
// Once the decoder has consumed the closing 'e' the dictionary is frozen.
type Dictionary struct {
	slots  []dictSlot
	count  int
	frozen bool
}

type dictSlot struct {
	used  bool
	hash  uint64
	key   string // Raw key bytes; may contain zero bytes
	value *Value
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{slots: make([]dictSlot, dictInitialSize)}
}

// Insert stores v under key, replacing any previous entry.
// Ownership of v moves to the dictionary.
func (d *Dictionary) Insert(key []byte, v *Value) error {
	if d.frozen {
		return ErrFrozen
	}
	if (d.count+1)*4 > len(d.slots)*3 {
		d.grow()
	}

	h := hashKey(key)
	i := probe(d.slots, h, key)
	if d.slots[i].used {
		d.slots[i].value = v
		return nil
	}
	d.slots[i] = dictSlot{used: true, hash: h, key: string(key), value: v}
	d.count++
	return nil
}

// Lookup returns the value stored under key.
// The value stays owned by the dictionary.
func (d *Dictionary) Lookup(key []byte) (*Value, bool) {
	if d == nil || d.count == 0 {
		return nil, false
	}
	i := probe(d.slots, hashKey(key), key)
	if !d.slots[i].used {
		return nil, false
	}
	return d.slots[i].value, true
}

// Get is Lookup for a string key.
func (d *Dictionary) Get(key string) (*Value, bool) {
	if d == nil || d.count == 0 {
		return nil, false
	}
	i := probe(d.slots, hashKey(key), key)
	if !d.slots[i].used {
		return nil, false
	}
	return d.slots[i].value, true
}

// Has reports whether key is present.
func (d *Dictionary) Has(key []byte) bool {
	_, ok := d.Lookup(key)
	return ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return d.count
}

// Frozen reports whether the dictionary is read-only.
func (d *Dictionary) Frozen() bool {
	return d != nil && d.frozen
}

// Range calls fn for each entry in slot order until fn returns false.
// key is a fresh copy on each call.
func (d *Dictionary) Range(fn func(key []byte, v *Value) bool) {
	if d == nil {
		return
	}
	for i := range d.slots {
		s := &d.slots[i]
		if s.used && !fn([]byte(s.key), s.value) {
			return
		}
	}
}

// Keys returns the keys in ascending byte order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, d.count)
	for i := range d.slots {
		if d.slots[i].used {
			keys = append(keys, d.slots[i].key)
		}
	}
	slices.Sort(keys)
	return keys
}

func (d *Dictionary) freeze() {
	d.frozen = true
}

// probe returns the slot holding key, or the empty slot where it belongs.
func probe[K string | []byte](slots []dictSlot, h uint64, key K) int {
	mask := uint64(len(slots) - 1)
	for i := h & mask; ; i = (i + 1) & mask {
		s := &slots[i]
		if !s.used || (s.hash == h && s.key == string(key)) {
			return int(i)
		}
	}
}

// grow doubles the table and rehashes every entry.
func (d *Dictionary) grow() {
	old := d.slots
	d.slots = make([]dictSlot, max(len(old)*2, dictInitialSize))
	for _, s := range old {
		if s.used {
			d.slots[probe(d.slots, s.hash, s.key)] = s
		}
	}
}

func hashKey[K string | []byte](key K) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= fnvPrime64
	}
	return h
}
