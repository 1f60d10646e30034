package evaluator

import (
	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/value"
)

func (ev *Evaluator) evalMember(n *ast.MemberExpr, env *environment.Environment) (value.Value, error) {
	v, short, err := ev.evalChainLink(n, env)
	if short {
		return value.NullValue, nil
	}
	return v, err
}

// evalChainLink evaluates e, propagating optional-chaining short-circuit
// state through a contiguous run of member/index/call links. Spec.md's
// "a?.b.c short-circuits the entire chain" means a null produced by one
// `?.` hop must skip every later hop in the same chain, not just the hop
// that produced it -- so the bool result reports "this whole chain already
// came up null" rather than just "this node's own receiver was null",
// letting an enclosing link (whose own Optional flag is false) still
// short-circuit instead of dereferencing null.
func (ev *Evaluator) evalChainLink(e ast.Expr, env *environment.Environment) (value.Value, bool, error) {
	switch n := e.(type) {
	case *ast.MemberExpr:
		obj, short, err := ev.evalChainLink(n.Object, env)
		if err != nil {
			return nil, false, err
		}
		if short {
			return value.NullValue, true, nil
		}
		if n.Optional {
			if _, isNull := obj.(value.Null); isNull {
				return value.NullValue, true, nil
			}
		}
		v, err := ev.getMember(obj, n.Name, n.Position)
		return v, false, err
	case *ast.IndexExpr:
		obj, short, err := ev.evalChainLink(n.Object, env)
		if err != nil {
			return nil, false, err
		}
		if short {
			return value.NullValue, true, nil
		}
		if n.Optional {
			if _, isNull := obj.(value.Null); isNull {
				return value.NullValue, true, nil
			}
		}
		idx, err := ev.evalExpr(n.Index, env)
		if err != nil {
			return nil, false, err
		}
		v, err := ev.getIndex(obj, idx, n.Position)
		return v, false, err
	case *ast.CallExpr:
		return ev.evalCallChain(n, env)
	default:
		v, err := ev.evalExpr(e, env)
		return v, false, err
	}
}

func (ev *Evaluator) getMember(obj value.Value, name string, pos any) (value.Value, error) {
	switch o := obj.(type) {
	case *Instance:
		if v, ok := o.Fields[name]; ok {
			return v, nil
		}
		if getter, getterClass, ok := o.Class.FindGetter(name); ok {
			closure := environment.New(getterClass.Closure)
			closure.Declare("__class__", getterClass, true)
			fn := ev.makeFunction(name, nil, getter.Func.Body, nil, closure, false)
			fn.This = o
			return ev.callFunction(fn, CallArgs{})
		}
		if fn, ok := ev.bindMethod(o, name, pos); ok {
			return fn, nil
		}
		return nil, newThrow(rerrors.Name, zeroPos, "'%s' has no member '%s'", o.Class.Name, name)
	case *Class:
		if m, ok := o.Statics[name]; ok {
			if m.Func != nil {
				return ev.makeFunction(name, m.Func.Params, m.Func.Body, nil, o.Closure, false), nil
			}
			if m.Default != nil {
				return ev.evalExpr(m.Default, o.Closure)
			}
			return value.NullValue, nil
		}
		return nil, newThrow(rerrors.Name, zeroPos, "class '%s' has no static member '%s'", o.Name, name)
	case *value.Map:
		if v, ok := o.Get(value.String(name)); ok {
			return v, nil
		}
		return value.NullValue, nil
	default:
		if handler, ok := ev.Types.HandlerFor(obj.Kind()); ok {
			if prop, ok := handler.Properties[name]; ok {
				return prop(obj)
			}
			if m, ok := handler.Methods[name]; ok {
				return ev.bindNativeMethod(obj, name, m), nil
			}
		}
		return nil, newThrow(rerrors.Name, zeroPos, "value of kind %s has no member '%s'", obj.Kind(), name)
	}
}

func (ev *Evaluator) bindNativeMethod(recv value.Value, name string, m func(value.Value, []value.Value) (value.Value, error)) *NativeFunction {
	return &NativeFunction{Name: name, Fn: func(_ *Evaluator, args []value.Value) (value.Value, error) {
		return m(recv, args)
	}}
}

func (ev *Evaluator) evalIndex(n *ast.IndexExpr, env *environment.Environment) (value.Value, error) {
	v, short, err := ev.evalChainLink(n, env)
	if short {
		return value.NullValue, nil
	}
	return v, err
}

func (ev *Evaluator) getIndex(obj, idx value.Value, pos any) (value.Value, error) {
	switch o := obj.(type) {
	case *value.List:
		i, ok := asInt(idx)
		if !ok {
			return nil, newThrow(rerrors.Type, zeroPos, "list index must be an integer")
		}
		if i < 0 {
			i += int64(len(*o.Elems))
		}
		if i < 0 || i >= int64(len(*o.Elems)) {
			return nil, newThrow(rerrors.Index, zeroPos, "list index %d out of range (length %d)", i, len(*o.Elems))
		}
		return (*o.Elems)[i], nil
	case value.Tuple:
		i, ok := asInt(idx)
		if !ok || i < 0 || i >= int64(len(o.Elems)) {
			return nil, newThrow(rerrors.Index, zeroPos, "tuple index out of range")
		}
		return o.Elems[i], nil
	case *value.Map:
		v, ok := o.Get(idx)
		if !ok {
			return value.NullValue, nil
		}
		return v, nil
	case value.String:
		i, ok := asInt(idx)
		runes := []rune(string(o))
		if !ok {
			return nil, newThrow(rerrors.Type, zeroPos, "string index must be an integer")
		}
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return nil, newThrow(rerrors.Index, zeroPos, "string index %d out of range", i)
		}
		return value.Char(runes[i]), nil
	default:
		return nil, newThrow(rerrors.Type, zeroPos, "value of kind %s is not indexable", obj.Kind())
	}
}

func (ev *Evaluator) setIndex(obj, idx, v value.Value) error {
	switch o := obj.(type) {
	case *value.List:
		i, ok := asInt(idx)
		if !ok {
			return rerrors.New(rerrors.Type, zeroPos, "list index must be an integer")
		}
		if i < 0 {
			i += int64(len(*o.Elems))
		}
		if i < 0 || i >= int64(len(*o.Elems)) {
			return rerrors.New(rerrors.Index, zeroPos, "list index %d out of range (length %d)", i, len(*o.Elems))
		}
		(*o.Elems)[i] = v
		return nil
	case *value.Map:
		o.Set(idx, v)
		return nil
	default:
		return rerrors.New(rerrors.Type, zeroPos, "value of kind %s does not support index assignment", obj.Kind())
	}
}

func (ev *Evaluator) setMember(obj value.Value, name string, v value.Value) error {
	switch o := obj.(type) {
	case *Instance:
		if setter, setterClass, ok := o.Class.FindSetter(name); ok {
			closure := environment.New(setterClass.Closure)
			closure.Declare("__class__", setterClass, true)
			fn := ev.makeFunction(name, setter.Func.Params, setter.Func.Body, nil, closure, false)
			fn.This = o
			_, err := ev.callFunction(fn, CallArgs{Positional: []value.Value{v}})
			return err
		}
		o.Fields[name] = v
		return nil
	case *value.Map:
		o.Set(value.String(name), v)
		return nil
	default:
		return rerrors.New(rerrors.Type, zeroPos, "value of kind %s does not support member assignment", obj.Kind())
	}
}
