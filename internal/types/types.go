// Package types implements Raccoon's type-handler registry: per-kind
// instance/static method and property lookup, plus the generic sized
// integer family (i8..i64, u8..u64).
package types

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/raccoon-lang/raccoon/internal/value"
)

// Method is a native method bound to a receiver kind: (receiver, args) -> (result, error).
type Method func(receiver value.Value, args []value.Value) (value.Value, error)

// Handler groups the instance methods, static (namespace-level) methods,
// and readable properties native to one value.Kind.
type Handler struct {
	Kind       value.Kind
	Methods    map[string]Method
	Statics    map[string]Method
	Properties map[string]func(value.Value) (value.Value, error)
}

// Registry maps each value.Kind to its Handler. The evaluator and VM both
// consult the same Registry for member lookups on primitive-kinded
// receivers (class instances have their own method-resolution path).
type Registry struct {
	handlers map[value.Kind]*Handler
}

func NewRegistry() *Registry {
	r := &Registry{handlers: map[value.Kind]*Handler{}}
	r.registerBuiltins()
	return r
}

func (r *Registry) Register(h *Handler) { r.handlers[h.Kind] = h }

func (r *Registry) HandlerFor(k value.Kind) (*Handler, bool) {
	h, ok := r.handlers[k]
	return h, ok
}

// Method resolves an instance method by receiver kind and name.
func (r *Registry) Method(k value.Kind, name string) (Method, bool) {
	h, ok := r.handlers[k]
	if !ok {
		return nil, false
	}
	m, ok := h.Methods[name]
	return m, ok
}

// Property resolves a read-only property accessor by receiver kind and name.
func (r *Registry) Property(k value.Kind, name string) (func(value.Value) (value.Value, error), bool) {
	h, ok := r.handlers[k]
	if !ok {
		return nil, false
	}
	p, ok := h.Properties[name]
	return p, ok
}

func (r *Registry) registerBuiltins() {
	r.Register(&Handler{
		Kind: value.KindString,
		Properties: map[string]func(value.Value) (value.Value, error){
			"length": func(v value.Value) (value.Value, error) {
				return value.Int(len([]rune(string(v.(value.String))))), nil
			},
		},
		Methods: map[string]Method{
			"upper": func(recv value.Value, args []value.Value) (value.Value, error) {
				return value.String(toUpper(string(recv.(value.String)))), nil
			},
			"lower": func(recv value.Value, args []value.Value) (value.Value, error) {
				return value.String(toLower(string(recv.(value.String)))), nil
			},
		},
	})
	r.Register(&Handler{
		Kind: value.KindList,
		Properties: map[string]func(value.Value) (value.Value, error){
			"length": func(v value.Value) (value.Value, error) {
				return value.Int(len(*v.(*value.List).Elems)), nil
			},
		},
		Methods: map[string]Method{
			"push": func(recv value.Value, args []value.Value) (value.Value, error) {
				l := recv.(*value.List)
				*l.Elems = append(*l.Elems, args...)
				return value.Int(len(*l.Elems)), nil
			},
			"pop": func(recv value.Value, args []value.Value) (value.Value, error) {
				l := recv.(*value.List)
				n := len(*l.Elems)
				if n == 0 {
					return value.NullValue, fmt.Errorf("pop on empty list")
				}
				last := (*l.Elems)[n-1]
				*l.Elems = (*l.Elems)[:n-1]
				return last, nil
			},
		},
	})
	r.Register(&Handler{
		Kind: value.KindMap,
		Properties: map[string]func(value.Value) (value.Value, error){
			"size": func(v value.Value) (value.Value, error) {
				return value.Int(v.(*value.Map).Len()), nil
			},
		},
		Methods: map[string]Method{
			"has": func(recv value.Value, args []value.Value) (value.Value, error) {
				_, ok := recv.(*value.Map).Get(args[0])
				return value.BoolOf(ok), nil
			},
			"delete": func(recv value.Value, args []value.Value) (value.Value, error) {
				return value.BoolOf(recv.(*value.Map).Delete(args[0])), nil
			},
		},
	})
}

func toUpper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - ('a' - 'A')
		}
	}
	return string(out)
}

func toLower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

// --- generic sized-integer family ---

// SizedInt is the parametric template spec.md §4.4 calls for: one Go
// generic function family covering i8..i64 and u8..u64, rather than one
// hand-written handler per width.
type SizedInt[T constraints.Integer] struct {
	Bits   int
	Signed bool
}

// Wrap truncates a raw Int down to T's range, implementing the overflow rule
// shared by all sized-integer arithmetic (wrap on overflow, not panic).
func (s SizedInt[T]) Wrap(v int64) T {
	return T(v)
}

// Add performs width-correct addition with wraparound, used by the
// evaluator/VM whenever an arithmetic operand is annotated with a sized
// integer type rather than the default arbitrary-precision `int`.
func Add[T constraints.Integer](a, b T) T { return a + b }
func Sub[T constraints.Integer](a, b T) T { return a - b }
func Mul[T constraints.Integer](a, b T) T { return a * b }

// InRange reports whether v fits in T without wrapping, used to decide
// whether a literal or conversion should raise a TypeError instead of
// silently wrapping.
func InRange[T constraints.Integer](v int64) bool {
	var zero T
	converted := T(v)
	back := int64(converted)
	_ = zero
	return back == v
}
