// Package environment implements Raccoon's lexical scope chain.
package environment

import (
	"fmt"

	"github.com/raccoon-lang/raccoon/internal/value"
)

type binding struct {
	val      value.Value
	constant bool
}

// Environment is a parent-linked scope. Closures capture the *Environment
// pointer active at their definition site, so later mutations of an
// enclosing scope remain visible (reference, not copy, semantics).
type Environment struct {
	parent *Environment
	vars   map[string]*binding
}

func New(parent *Environment) *Environment {
	return &Environment{parent: parent, vars: make(map[string]*binding)}
}

// Declare introduces a new binding in the current scope. Redeclaring a
// name in the same scope is an error (shadowing a name from an enclosing
// scope is not).
func (e *Environment) Declare(name string, v value.Value, constant bool) error {
	if _, exists := e.vars[name]; exists {
		return fmt.Errorf("'%s' is already declared in this scope", name)
	}
	e.vars[name] = &binding{val: v, constant: constant}
	return nil
}

// Get resolves name by walking outward through enclosing scopes.
func (e *Environment) Get(name string) (value.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.vars[name]; ok {
			return b.val, true
		}
	}
	return nil, false
}

// Assign mutates the nearest existing binding for name. It returns an
// error if name is undeclared or declared const.
func (e *Environment) Assign(name string, v value.Value) error {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.vars[name]; ok {
			if b.constant {
				return fmt.Errorf("cannot assign to const '%s'", name)
			}
			b.val = v
			return nil
		}
	}
	return fmt.Errorf("'%s' is not defined", name)
}

// Has reports whether name is visible from this scope, without resolving
// its value.
func (e *Environment) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Parent exposes the enclosing scope, nil at the root.
func (e *Environment) Parent() *Environment { return e.parent }

// Child creates a fresh scope nested directly inside e; it is equivalent
// to New(e).
func (e *Environment) Child() *Environment { return New(e) }
