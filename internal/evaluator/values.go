package evaluator

import (
	"fmt"
	"strings"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// Function is a user-defined Raccoon function or closure. It captures the
// *environment.Environment active at its definition site.
type Function struct {
	Name    string
	Params  []ast.Param
	Body    *ast.BlockStmt
	Expr    ast.Expr // arrow-expression body, mutually exclusive with Body
	Closure *environment.Environment
	Async   bool
	This    value.Value // bound receiver for methods, nil for free functions
}

func (*Function) Kind() value.Kind { return value.KindFunction }
func (f *Function) String() string {
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("<function %s>", name)
}

func (f *Function) Bind(receiver value.Value) *Function {
	bound := *f
	bound.This = receiver
	return &bound
}

// NativeFunction wraps a Go function as a Raccoon-callable value, the
// bridge used by internal/stdlib's registrars.
type NativeFunction struct {
	Name string
	Fn   func(ev *Evaluator, args []value.Value) (value.Value, error)
}

func (*NativeFunction) Kind() value.Kind { return value.KindNative }
func (n *NativeFunction) String() string { return fmt.Sprintf("<native function %s>", n.Name) }

// Class is a first-class value representing a class declaration: its own
// fields/methods plus an optional superclass link for `extends`.
type Class struct {
	Name       string
	Super      *Class
	Fields     []ast.ClassMember // instance fields with defaults, declaration order
	Methods    map[string]*ast.ClassMember
	Statics    map[string]*ast.ClassMember
	Getters    map[string]*ast.ClassMember
	Setters    map[string]*ast.ClassMember
	Ctor       *ast.ClassMember
	Closure    *environment.Environment
	staticVals map[string]value.Value
}

func (*Class) Kind() value.Kind { return value.KindClass }
func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

// FindMethod walks the inheritance chain starting at c, returning the
// first matching method, the class that declares it, and whether one was
// found at all. This is the method-chain lookup spec.md requires to work
// end-to-end through `extends`.
func (c *Class) FindMethod(name string) (*ast.ClassMember, *Class, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.Methods[name]; ok {
			return m, cur, true
		}
	}
	return nil, nil, false
}

func (c *Class) FindGetter(name string) (*ast.ClassMember, *Class, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.Getters[name]; ok {
			return m, cur, true
		}
	}
	return nil, nil, false
}

func (c *Class) FindSetter(name string) (*ast.ClassMember, *Class, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.Setters[name]; ok {
			return m, cur, true
		}
	}
	return nil, nil, false
}

// AllFields collects field declarations from the root superclass downward,
// so subclass fields are initialized after (and may shadow) base fields.
func (c *Class) AllFields() []ast.ClassMember {
	var chain []*Class
	for cur := c; cur != nil; cur = cur.Super {
		chain = append(chain, cur)
	}
	var fields []ast.ClassMember
	for i := len(chain) - 1; i >= 0; i-- {
		fields = append(fields, chain[i].Fields...)
	}
	return fields
}

// IsSubclassOf reports whether c is other or descends from it, used by
// `instanceof`.
func (c *Class) IsSubclassOf(other *Class) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur == other {
			return true
		}
	}
	return false
}

// Instance is a live object: its class plus its own field values.
type Instance struct {
	Class  *Class
	Fields map[string]value.Value
}

func (*Instance) Kind() value.Kind { return value.KindInstance }
func (i *Instance) String() string {
	return fmt.Sprintf("<%s instance>", i.Class.Name)
}

func NewInstance(c *Class) *Instance {
	return &Instance{Class: c, Fields: map[string]value.Value{}}
}

// Iterator is the uniform protocol internal iteration (for-of, spread,
// destructuring of non-list values) drives: Next returns the next value
// and true, or false once iteration is finished.
type Iterator struct {
	Next func() (value.Value, bool)
}

func (*Iterator) Kind() value.Kind { return value.KindIterator }
func (*Iterator) String() string   { return "<iterator>" }

// TypeObject reifies a type annotation as a runtime value, returned by
// `typeof` and consulted by `instanceof`.
type TypeObject struct {
	Name string
}

func (*TypeObject) Kind() value.Kind { return value.KindType }
func (t *TypeObject) String() string { return t.Name }

// DescribeParams renders a parameter list for arity-mismatch error
// messages.
func DescribeParams(params []ast.Param) string {
	names := make([]string, len(params))
	for i, p := range params {
		if ident, ok := p.Pattern.(*ast.IdentPattern); ok {
			names[i] = ident.Name
		} else {
			names[i] = "_"
		}
	}
	return strings.Join(names, ", ")
}
