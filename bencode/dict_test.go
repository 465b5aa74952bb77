package bencode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDictionary_InsertLookup(t *testing.T) {
	d := NewDictionary()
	if d.Len() != 0 {
		t.Errorf("expected len 0, got %d", d.Len())
	}

	if err := d.Insert([]byte("cow"), String("moo")); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert([]byte("spam"), String("eggs")); err != nil {
		t.Fatal(err)
	}

	v, ok := d.Lookup([]byte("cow"))
	if !ok {
		t.Fatal("cow not found")
	}
	if s, _ := v.AsString(); s != "moo" {
		t.Errorf("cow = %q, want moo", s)
	}
	if _, ok := d.Get("spam"); !ok {
		t.Error("Get(spam) failed")
	}
	if d.Has([]byte("missing")) {
		t.Error("Has(missing) should be false")
	}
	if d.Len() != 2 {
		t.Errorf("expected len 2, got %d", d.Len())
	}
}

func TestDictionary_Overwrite(t *testing.T) {
	d := NewDictionary()
	d.Insert([]byte("a"), Int(1))
	d.Insert([]byte("a"), Int(2))

	if d.Len() != 1 {
		t.Errorf("expected len 1, got %d", d.Len())
	}
	v, _ := d.Get("a")
	if n, _ := v.AsInt(); n != 2 {
		t.Errorf("a = %d, want 2", n)
	}
}

func TestDictionary_BinaryKeys(t *testing.T) {
	d := NewDictionary()
	keys := [][]byte{{}, {0}, {0, 0}, {0xff, 0x00, 'a'}}
	for i, k := range keys {
		d.Insert(k, Int(int64(i)))
	}
	for i, k := range keys {
		v, ok := d.Lookup(k)
		if !ok {
			t.Fatalf("key %x not found", k)
		}
		if n, _ := v.AsInt(); n != int64(i) {
			t.Errorf("key %x = %d, want %d", k, n, i)
		}
	}
}

func TestDictionary_Grow(t *testing.T) {
	d := NewDictionary()
	const n = 1000
	for i := 0; i < n; i++ {
		d.Insert([]byte(fmt.Sprintf("key%04d", i)), Int(int64(i)))
	}
	if d.Len() != n {
		t.Fatalf("expected len %d, got %d", n, d.Len())
	}
	if len(d.slots)*3 < d.Len()*4 {
		t.Errorf("load factor exceeded: %d entries in %d slots", d.Len(), len(d.slots))
	}
	for i := 0; i < n; i++ {
		v, ok := d.Get(fmt.Sprintf("key%04d", i))
		if !ok {
			t.Fatalf("key%04d missing after growth", i)
		}
		if got, _ := v.AsInt(); got != int64(i) {
			t.Errorf("key%04d = %d", i, got)
		}
	}
}

func TestDictionary_ZeroValue(t *testing.T) {
	var d Dictionary
	if _, ok := d.Get("x"); ok {
		t.Error("zero dictionary should be empty")
	}
	if err := d.Insert([]byte("x"), Int(1)); err != nil {
		t.Fatal(err)
	}
	if !d.Has([]byte("x")) {
		t.Error("insert into zero dictionary lost")
	}
}

func TestDictionary_Frozen(t *testing.T) {
	d := NewDictionary()
	d.Insert([]byte("a"), Int(1))
	d.freeze()

	err := d.Insert([]byte("b"), Int(2))
	if !errors.Is(err, ErrFrozen) {
		t.Errorf("expected ErrFrozen, got %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("frozen dictionary changed: len %d", d.Len())
	}
}

func TestDictionary_KeysSorted(t *testing.T) {
	d := NewDictionary()
	for _, k := range []string{"zeta", "alpha", "mu", "beta"} {
		d.Insert([]byte(k), Int(0))
	}
	want := []string{"alpha", "beta", "mu", "zeta"}
	if diff := cmp.Diff(want, d.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDictionary_Range(t *testing.T) {
	d := NewDictionary()
	for i := 0; i < 5; i++ {
		d.Insert([]byte{byte('a' + i)}, Int(int64(i)))
	}

	seen := map[string]int64{}
	d.Range(func(key []byte, v *Value) bool {
		n, _ := v.AsInt()
		seen[string(key)] = n
		return true
	})
	if len(seen) != 5 {
		t.Errorf("Range visited %d entries, want 5", len(seen))
	}

	calls := 0
	d.Range(func([]byte, *Value) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("Range should stop after false, got %d calls", calls)
	}

	// Slot order is stable for the same insertion sequence.
	var first, second []string
	d.Range(func(k []byte, _ *Value) bool { first = append(first, string(k)); return true })
	d.Range(func(k []byte, _ *Value) bool { second = append(second, string(k)); return true })
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Range order changed:\n%s", diff)
	}
}
