package types

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/value"
)

func TestRegistryResolvesBuiltinStringMethods(t *testing.T) {
	r := NewRegistry()
	m, ok := r.Method(value.KindString, "upper")
	if !ok {
		t.Fatalf("expected a builtin 'upper' method on strings")
	}
	result, err := m(value.String("abc"), nil)
	if err != nil {
		t.Fatalf("upper() error: %v", err)
	}
	if result != value.String("ABC") {
		t.Fatalf("upper(\"abc\") = %v, want \"ABC\"", result)
	}
}

func TestRegistryResolvesListPushAndPop(t *testing.T) {
	r := NewRegistry()
	list := value.NewList([]value.Value{value.Int(1)})

	push, ok := r.Method(value.KindList, "push")
	if !ok {
		t.Fatalf("expected a builtin 'push' method on lists")
	}
	n, err := push(list, []value.Value{value.Int(2), value.Int(3)})
	if err != nil {
		t.Fatalf("push() error: %v", err)
	}
	if n != value.Int(3) {
		t.Fatalf("push() returned length %v, want 3", n)
	}

	pop, ok := r.Method(value.KindList, "pop")
	if !ok {
		t.Fatalf("expected a builtin 'pop' method on lists")
	}
	last, err := pop(list, nil)
	if err != nil {
		t.Fatalf("pop() error: %v", err)
	}
	if last != value.Int(3) {
		t.Fatalf("pop() = %v, want 3", last)
	}
	if len(*list.Elems) != 2 {
		t.Fatalf("list length after pop = %d, want 2", len(*list.Elems))
	}
}

func TestPopOnEmptyListErrors(t *testing.T) {
	r := NewRegistry()
	pop, _ := r.Method(value.KindList, "pop")
	list := value.NewList(nil)
	if _, err := pop(list, nil); err == nil {
		t.Fatalf("expected an error popping an empty list")
	}
}

func TestRegistryResolvesMapHasAndDelete(t *testing.T) {
	r := NewRegistry()
	m := value.NewMap()
	m.Set(value.String("k"), value.Int(1))

	has, _ := r.Method(value.KindMap, "has")
	result, err := has(m, []value.Value{value.String("k")})
	if err != nil {
		t.Fatalf("has() error: %v", err)
	}
	if result != value.True {
		t.Fatalf("has(\"k\") = %v, want true", result)
	}

	del, _ := r.Method(value.KindMap, "delete")
	result, err = del(m, []value.Value{value.String("k")})
	if err != nil {
		t.Fatalf("delete() error: %v", err)
	}
	if result != value.True {
		t.Fatalf("delete(\"k\") = %v, want true", result)
	}
	if m.Len() != 0 {
		t.Fatalf("map length after delete = %d, want 0", m.Len())
	}
}

func TestPropertyLookupMissingKindReturnsFalse(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Property(value.KindBool, "length"); ok {
		t.Fatalf("bool should have no registered properties")
	}
}

func TestListLengthProperty(t *testing.T) {
	r := NewRegistry()
	prop, ok := r.Property(value.KindList, "length")
	if !ok {
		t.Fatalf("expected a builtin 'length' property on lists")
	}
	list := value.NewList([]value.Value{value.Int(1), value.Int(2)})
	v, err := prop(list)
	if err != nil {
		t.Fatalf("length property error: %v", err)
	}
	if v != value.Int(2) {
		t.Fatalf("length = %v, want 2", v)
	}
}

func TestSizedIntWrapTruncates(t *testing.T) {
	s := SizedInt[int8]{Bits: 8, Signed: true}
	if s.Wrap(130) != int8(-126) {
		t.Fatalf("Wrap(130) as int8 should truncate via Go's own conversion rule")
	}
}

func TestInRangeDetectsOverflow(t *testing.T) {
	if !InRange[int8](100) {
		t.Fatalf("100 should fit in an int8")
	}
	if InRange[int8](200) {
		t.Fatalf("200 should not fit in an int8")
	}
}

func TestGenericArithmeticHelpers(t *testing.T) {
	if Add(int32(1), int32(2)) != 3 {
		t.Fatalf("Add(1, 2) should be 3")
	}
	if Sub(int32(5), int32(2)) != 3 {
		t.Fatalf("Sub(5, 2) should be 3")
	}
	if Mul(int32(3), int32(4)) != 12 {
		t.Fatalf("Mul(3, 4) should be 12")
	}
}
