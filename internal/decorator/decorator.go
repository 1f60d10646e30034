// Package decorator implements the decorator registry spec.md §4.9
// describes: named decorators with a visibility rule and an allowed-target
// set, applied inside-out at function/class/method definition time.
package decorator

import "fmt"

// Target is a syntactic position a decorator may be attached to.
type Target string

const (
	TargetFunction Target = "function"
	TargetClass    Target = "class"
	TargetMethod   Target = "method"
	TargetField    Target = "field"
)

// Visibility mirrors spec.md's distinction between decorators user code
// may write (`@public`) and ones reserved for the standard library's own
// internal use (`_`-prefixed).
type Visibility int

const (
	Public Visibility = iota
	Internal
)

// Handler is the native Go function invoked when a decorator is applied.
// target is the decorated value (a function, a class, ...); args are the
// decorator's own call arguments (e.g. `@retry(3)` passes [3]).
type Handler func(target any, args []any) (any, error)

type Decorator struct {
	Name       string
	Visibility Visibility
	Targets    map[Target]bool
	Fn         Handler
}

// Registry holds every decorator known to a program: the handful built
// into the standard library plus any user-defined ones.
type Registry struct {
	decorators map[string]*Decorator
}

func NewRegistry() *Registry {
	return &Registry{decorators: map[string]*Decorator{}}
}

func (r *Registry) Register(d *Decorator) error {
	if _, exists := r.decorators[d.Name]; exists {
		return fmt.Errorf("decorator '%s' is already registered", d.Name)
	}
	r.decorators[d.Name] = d
	return nil
}

// Lookup resolves a decorator by name, rejecting internal-only decorators
// unless fromStdlib is set (i.e. the reference occurs while evaluating
// standard-library source, not user source).
func (r *Registry) Lookup(name string, fromStdlib bool) (*Decorator, error) {
	d, ok := r.decorators[name]
	if !ok {
		return nil, fmt.Errorf("unknown decorator '@%s'", name)
	}
	if d.Visibility == Internal && !fromStdlib {
		return nil, fmt.Errorf("decorator '@%s' is internal to the standard library", name)
	}
	return d, nil
}

// ValidateTarget reports whether d may be attached to the syntactic
// position t.
func (d *Decorator) ValidateTarget(t Target) error {
	if !d.Targets[t] {
		return fmt.Errorf("decorator '@%s' cannot be applied to a %s", d.Name, t)
	}
	return nil
}

// Apply calls the decorator's handler. Callers are responsible for
// applying a stack of decorators inside-out (the decorator nearest the
// declaration wraps first), matching the order spec.md mandates.
func (d *Decorator) Apply(target any, args []any) (any, error) {
	return d.Fn(target, args)
}
