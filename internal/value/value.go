// Package value defines Raccoon's runtime value representation: a closed
// tagged union implemented as a plain Go interface plus concrete wrapper
// types, rather than a NaN-boxed scalar.
package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Value is satisfied by every runtime value kind. Kind() lets callers
// switch without a Go type-switch when only the tag is needed (e.g. for
// `typeof`).
type Value interface {
	Kind() Kind
	String() string
}

type Kind string

const (
	KindInt      Kind = "int"
	KindBigInt   Kind = "bigint"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindString   Kind = "string"
	KindChar     Kind = "char"
	KindNull     Kind = "null"
	KindUnit     Kind = "unit"
	KindList     Kind = "list"
	KindMap      Kind = "map"
	KindSet      Kind = "set"
	KindTuple    Kind = "tuple"
	KindFunction Kind = "function"
	KindNative   Kind = "native_function"
	KindClass    Kind = "class"
	KindInstance Kind = "instance"
	KindFuture   Kind = "future"
	KindIterator Kind = "iterator"
	KindType     Kind = "type"
	KindError    Kind = "error"
)

// --- scalars ---

type Int int64

func (Int) Kind() Kind          { return KindInt }
func (i Int) String() string    { return strconv.FormatInt(int64(i), 10) }

type BigInt struct{ V *big.Int }

func (BigInt) Kind() Kind        { return KindBigInt }
func (b BigInt) String() string  { return b.V.String() + "n" }

type Float float64

func (Float) Kind() Kind { return KindFloat }
func (f Float) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

type Bool bool

func (Bool) Kind() Kind       { return KindBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }

type Char rune

func (Char) Kind() Kind       { return KindChar }
func (c Char) String() string { return string(rune(c)) }

type Null struct{}

func (Null) Kind() Kind       { return KindNull }
func (Null) String() string   { return "null" }

// Unit is the value of statements-as-expressions and bare `return`.
type Unit struct{}

func (Unit) Kind() Kind     { return KindUnit }
func (Unit) String() string { return "()" }

var (
	NullValue = Null{}
	UnitValue = Unit{}
	True      = Bool(true)
	False     = Bool(false)
)

func BoolOf(b bool) Bool {
	if b {
		return True
	}
	return False
}

// --- collections ---

// List is a mutable, ordered, reference-semantics array, per spec.md's
// interior-sharing rule: copies of a List variable alias the same backing
// slice pointer.
type List struct {
	Elems *[]Value
}

func NewList(elems []Value) *List {
	return &List{Elems: &elems}
}

func (*List) Kind() Kind { return KindList }
func (l *List) String() string {
	parts := make([]string, len(*l.Elems))
	for i, e := range *l.Elems {
		parts[i] = Repr(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Map is insertion-ordered: Keys records insertion order, Index maps a
// canonical key string back to a position in Keys/Vals, so that two
// evaluator runs over the same program agree on iteration order with each
// other, even though spec.md does not guarantee that order is portable to
// other hosts.
type Map struct {
	Keys  *[]Value
	Vals  *[]Value
	Index *map[string]int
}

func NewMap() *Map {
	keys := []Value{}
	vals := []Value{}
	idx := map[string]int{}
	return &Map{Keys: &keys, Vals: &vals, Index: &idx}
}

func (*Map) Kind() Kind { return KindMap }

func (m *Map) Get(key Value) (Value, bool) {
	i, ok := (*m.Index)[mapKey(key)]
	if !ok {
		return nil, false
	}
	return (*m.Vals)[i], true
}

func (m *Map) Set(key, val Value) {
	k := mapKey(key)
	if i, ok := (*m.Index)[k]; ok {
		(*m.Vals)[i] = val
		return
	}
	(*m.Index)[k] = len(*m.Keys)
	*m.Keys = append(*m.Keys, key)
	*m.Vals = append(*m.Vals, val)
}

func (m *Map) Delete(key Value) bool {
	k := mapKey(key)
	i, ok := (*m.Index)[k]
	if !ok {
		return false
	}
	*m.Keys = append((*m.Keys)[:i], (*m.Keys)[i+1:]...)
	*m.Vals = append((*m.Vals)[:i], (*m.Vals)[i+1:]...)
	delete(*m.Index, k)
	for key2, idx := range *m.Index {
		if idx > i {
			(*m.Index)[key2] = idx - 1
		}
	}
	return true
}

func (m *Map) Len() int { return len(*m.Keys) }

func mapKey(v Value) string {
	return fmt.Sprintf("%s:%s", v.Kind(), v.String())
}

func (m *Map) String() string {
	parts := make([]string, 0, m.Len())
	for i, k := range *m.Keys {
		parts = append(parts, fmt.Sprintf("%s: %s", Repr(k), Repr((*m.Vals)[i])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Set is backed by the same insertion-ordered index as Map, storing only
// keys.
type Set struct {
	Keys  *[]Value
	Index *map[string]int
}

func NewSet() *Set {
	keys := []Value{}
	idx := map[string]int{}
	return &Set{Keys: &keys, Index: &idx}
}

func (*Set) Kind() Kind { return KindSet }

func (s *Set) Add(v Value) bool {
	k := mapKey(v)
	if _, ok := (*s.Index)[k]; ok {
		return false
	}
	(*s.Index)[k] = len(*s.Keys)
	*s.Keys = append(*s.Keys, v)
	return true
}

func (s *Set) Has(v Value) bool {
	_, ok := (*s.Index)[mapKey(v)]
	return ok
}

func (s *Set) Delete(v Value) bool {
	k := mapKey(v)
	i, ok := (*s.Index)[k]
	if !ok {
		return false
	}
	*s.Keys = append((*s.Keys)[:i], (*s.Keys)[i+1:]...)
	delete(*s.Index, k)
	for key2, idx := range *s.Index {
		if idx > i {
			(*s.Index)[key2] = idx - 1
		}
	}
	return true
}

func (s *Set) String() string {
	parts := make([]string, len(*s.Keys))
	for i, k := range *s.Keys {
		parts[i] = Repr(k)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Tuple is immutable and fixed-length, unlike List.
type Tuple struct {
	Elems []Value
}

func (Tuple) Kind() Kind { return KindTuple }
func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = Repr(e)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Repr renders a value the way it would appear nested inside another
// value's String() (quoted strings, etc), distinct from the bare String()
// used when a value is the direct result of top-level evaluation.
func Repr(v Value) string {
	if s, ok := v.(String); ok {
		return strconv.Quote(string(s))
	}
	return v.String()
}

// Native is a Go function exposed as a Raccoon-callable value that needs
// no access to evaluator internals (arguments and a result only), the
// shape internal/module and internal/stdlib registrars produce. Callables
// that need the evaluator itself (recursion into user callbacks, the
// scheduler) are instead represented by evaluator.NativeFunction.
type Native struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (*Native) Kind() Kind       { return KindNative }
func (n *Native) String() string { return fmt.Sprintf("<native function %s>", n.Name) }

// ErrorValue wraps a RaccoonError as a first-class value so it can be
// caught, inspected, and rethrown by Raccoon code.
type ErrorValue struct {
	ErrKind string
	Message string
	Cause   error
}

func (ErrorValue) Kind() Kind { return KindError }
func (e ErrorValue) String() string {
	return fmt.Sprintf("%s: %s", e.ErrKind, e.Message)
}

// Truthy implements Raccoon's truthiness rule: null, false, 0, 0.0, "" and
// empty collections are falsy; everything else (including unit) is truthy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(x)
	case Int:
		return x != 0
	case Float:
		return x != 0
	case BigInt:
		return x.V.Sign() != 0
	case String:
		return len(x) != 0
	case *List:
		return len(*x.Elems) != 0
	case *Map:
		return x.Len() != 0
	case *Set:
		return len(*x.Keys) != 0
	default:
		return true
	}
}

// Eq implements Raccoon's `==` structural-equality rule across scalars and
// collections. Functions/classes/instances compare by identity.
func Eq(a, b Value) bool {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return float64(x) == float64(y)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Int:
			return float64(x) == float64(y)
		case Float:
			return x == y
		}
		return false
	case BigInt:
		y, ok := b.(BigInt)
		return ok && x.V.Cmp(y.V) == 0
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Char:
		y, ok := b.(Char)
		return ok && x == y
	case Null:
		_, ok := b.(Null)
		return ok
	case Unit:
		_, ok := b.(Unit)
		return ok
	case *List:
		y, ok := b.(*List)
		if !ok || len(*x.Elems) != len(*y.Elems) {
			return false
		}
		for i := range *x.Elems {
			if !Eq((*x.Elems)[i], (*y.Elems)[i]) {
				return false
			}
		}
		return true
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Eq(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, k := range *x.Keys {
			yv, ok := y.Get(k)
			if !ok || !Eq((*x.Vals)[i], yv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
