package value

import (
	"math/big"
	"testing"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{NullValue, false},
		{False, false},
		{True, true},
		{Int(0), false},
		{Int(1), true},
		{Float(0), false},
		{Float(0.5), true},
		{String(""), false},
		{String("x"), true},
		{BigInt{V: big.NewInt(0)}, false},
		{BigInt{V: big.NewInt(1)}, true},
		{UnitValue, true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestTruthyEmptyVsNonEmptyCollections(t *testing.T) {
	empty := NewList(nil)
	if Truthy(empty) {
		t.Fatalf("an empty list should be falsy")
	}
	full := NewList([]Value{Int(1)})
	if !Truthy(full) {
		t.Fatalf("a non-empty list should be truthy")
	}
}

func TestEqIntFloatCrossKind(t *testing.T) {
	if !Eq(Int(1), Float(1.0)) {
		t.Fatalf("Eq(1, 1.0) should be true across int/float")
	}
	if Eq(Int(1), Float(1.5)) {
		t.Fatalf("Eq(1, 1.5) should be false")
	}
}

func TestEqBigInt(t *testing.T) {
	a := BigInt{V: big.NewInt(1000)}
	b := BigInt{V: big.NewInt(1000)}
	if !Eq(a, b) {
		t.Fatalf("equal bigints should compare equal")
	}
}

func TestEqListStructural(t *testing.T) {
	a := NewList([]Value{Int(1), Int(2)})
	b := NewList([]Value{Int(1), Int(2)})
	if !Eq(a, b) {
		t.Fatalf("lists with equal elements should compare equal")
	}
	c := NewList([]Value{Int(1), Int(3)})
	if Eq(a, c) {
		t.Fatalf("lists with differing elements should not compare equal")
	}
}

func TestEqTupleStructural(t *testing.T) {
	a := Tuple{Elems: []Value{Int(1), String("x")}}
	b := Tuple{Elems: []Value{Int(1), String("x")}}
	if !Eq(a, b) {
		t.Fatalf("tuples with equal elements should compare equal")
	}
}

func TestEqMapStructural(t *testing.T) {
	a := NewMap()
	a.Set(String("k"), Int(1))
	b := NewMap()
	b.Set(String("k"), Int(1))
	if !Eq(a, b) {
		t.Fatalf("maps with equal entries should compare equal")
	}
	b.Set(String("k"), Int(2))
	if Eq(a, b) {
		t.Fatalf("maps with differing values should not compare equal")
	}
}

func TestMapSetGetOverwritesInPlace(t *testing.T) {
	m := NewMap()
	m.Set(String("a"), Int(1))
	m.Set(String("a"), Int(2))
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (overwrite should not grow the map)", m.Len())
	}
	v, ok := m.Get(String("a"))
	if !ok || v != Int(2) {
		t.Fatalf("Get() = %v, %v; want 2, true", v, ok)
	}
}

func TestMapDeleteReindexes(t *testing.T) {
	m := NewMap()
	m.Set(String("a"), Int(1))
	m.Set(String("b"), Int(2))
	m.Set(String("c"), Int(3))
	if !m.Delete(String("a")) {
		t.Fatalf("Delete() should report true for an existing key")
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after deletion", m.Len())
	}
	v, ok := m.Get(String("b"))
	if !ok || v != Int(2) {
		t.Fatalf("Get(\"b\") = %v, %v; want 2, true after reindexing", v, ok)
	}
	v, ok = m.Get(String("c"))
	if !ok || v != Int(3) {
		t.Fatalf("Get(\"c\") = %v, %v; want 3, true after reindexing", v, ok)
	}
}

func TestMapDeleteMissingKey(t *testing.T) {
	m := NewMap()
	if m.Delete(String("nope")) {
		t.Fatalf("Delete() of a missing key should report false")
	}
}

func TestSetAddHasDelete(t *testing.T) {
	s := NewSet()
	if !s.Add(Int(1)) {
		t.Fatalf("Add() of a new member should report true")
	}
	if s.Add(Int(1)) {
		t.Fatalf("Add() of a duplicate member should report false")
	}
	if !s.Has(Int(1)) {
		t.Fatalf("Has() should report true after Add()")
	}
	if !s.Delete(Int(1)) {
		t.Fatalf("Delete() of an existing member should report true")
	}
	if s.Has(Int(1)) {
		t.Fatalf("Has() should report false after Delete()")
	}
}

func TestReprQuotesStringsButStringDoesNot(t *testing.T) {
	s := String("hi")
	if s.String() != "hi" {
		t.Fatalf("String() should not quote, got %q", s.String())
	}
	if Repr(s) != `"hi"` {
		t.Fatalf("Repr() should quote, got %q", Repr(s))
	}
}

func TestListStringNestsReprOfElements(t *testing.T) {
	l := NewList([]Value{String("a"), Int(1)})
	got := l.String()
	want := `["a", 1]`
	if got != want {
		t.Fatalf("List.String() = %q, want %q", got, want)
	}
}

func TestBoolOf(t *testing.T) {
	if BoolOf(true) != True {
		t.Fatalf("BoolOf(true) should be True")
	}
	if BoolOf(false) != False {
		t.Fatalf("BoolOf(false) should be False")
	}
}

func TestListReferenceSemantics(t *testing.T) {
	l := NewList([]Value{Int(1)})
	alias := l
	*alias.Elems = append(*alias.Elems, Int(2))
	if len(*l.Elems) != 2 {
		t.Fatalf("mutating through an aliased *List should be visible to the original, got len %d", len(*l.Elems))
	}
}
