package evaluator

import (
	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/decorator"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/value"
)

func (ev *Evaluator) evalClassDecl(n *ast.ClassDecl, env *environment.Environment) (value.Value, error) {
	var super *Class
	if n.Extends != nil {
		superVal, err := ev.evalExpr(n.Extends, env)
		if err != nil {
			return nil, err
		}
		sc, ok := superVal.(*Class)
		if !ok {
			return nil, newThrow(rerrors.Type, n.Position, "superclass of '%s' is not a class", n.Name)
		}
		super = sc
	}

	cls := &Class{
		Name:    n.Name,
		Super:   super,
		Methods: map[string]*ast.ClassMember{},
		Statics: map[string]*ast.ClassMember{},
		Getters: map[string]*ast.ClassMember{},
		Setters: map[string]*ast.ClassMember{},
		Closure: env,
	}

	for i := range n.Members {
		m := n.Members[i]
		switch m.Kind {
		case "constructor":
			cls.Ctor = &m
		case "method":
			if m.Static {
				cls.Statics[m.Name] = &m
			} else {
				cls.Methods[m.Name] = &m
			}
		case "getter":
			cls.Getters[m.Name] = &m
		case "setter":
			cls.Setters[m.Name] = &m
		case "field":
			if m.Static {
				cls.Statics[m.Name] = &m
			} else {
				cls.Fields = append(cls.Fields, m)
			}
		}
	}

	wrapped := ev.applyDecorators(n.Decorators, cls, decorator.TargetClass)
	return wrapped, nil
}

func (ev *Evaluator) instantiate(cls *Class, args CallArgs) (value.Value, error) {
	inst := NewInstance(cls)
	for _, field := range cls.AllFields() {
		if field.Default != nil {
			v, err := ev.evalExpr(field.Default, cls.Closure)
			if err != nil {
				return nil, err
			}
			inst.Fields[field.Name] = v
		} else {
			inst.Fields[field.Name] = value.NullValue
		}
	}

	if ctor, ctorClass, ok := findCtor(cls); ok {
		fn := ev.makeFunction("constructor", ctor.Func.Params, ctor.Func.Body, nil, ctorClass.Closure, false)
		fn.This = inst
		if _, err := ev.callFunctionInClass(fn, args, ctorClass); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func findCtor(cls *Class) (*ast.ClassMember, *Class, bool) {
	for cur := cls; cur != nil; cur = cur.Super {
		if cur.Ctor != nil {
			return cur.Ctor, cur, true
		}
	}
	return nil, nil, false
}

func (ev *Evaluator) evalSuperCall(n *ast.CallExpr, env *environment.Environment) (value.Value, error) {
	thisV, ok := env.Get("this")
	if !ok {
		return nil, newThrow(rerrors.Name, n.Position, "'super' is not available here")
	}
	inst, ok := thisV.(*Instance)
	if !ok {
		return nil, newThrow(rerrors.Type, n.Position, "'super' requires an instance receiver")
	}
	// The lexical class that declared the enclosing method/constructor is
	// recovered from the closure chain via "__class__", set at method
	// dispatch time (see bindMethod below).
	declClassV, ok := env.Get("__class__")
	if !ok {
		return nil, newThrow(rerrors.Internal, n.Position, "'super' used outside a method")
	}
	declClass := declClassV.(*Class)
	if declClass.Super == nil {
		return nil, newThrow(rerrors.Type, n.Position, "class '%s' has no superclass", declClass.Name)
	}
	ctor, ctorClass, ok := findCtor(declClass.Super)
	if !ok {
		return value.UnitValue, nil
	}
	args, err := ev.evalArgs(n.Args, env)
	if err != nil {
		return nil, err
	}
	fn := ev.makeFunction("constructor", ctor.Func.Params, ctor.Func.Body, nil, ctorClass.Closure, false)
	fn.This = inst
	return ev.callFunctionInClass(fn, args, ctorClass)
}

func (ev *Evaluator) evalSuperMethodCall(mem *ast.MemberExpr, argExprs []ast.Expr, env *environment.Environment) (value.Value, error) {
	thisV, ok := env.Get("this")
	if !ok {
		return nil, newThrow(rerrors.Name, mem.Position, "'super' is not available here")
	}
	inst, ok := thisV.(*Instance)
	if !ok {
		return nil, newThrow(rerrors.Type, mem.Position, "'super' requires an instance receiver")
	}
	declClassV, ok := env.Get("__class__")
	if !ok {
		return nil, newThrow(rerrors.Internal, mem.Position, "'super' used outside a method")
	}
	declClass := declClassV.(*Class)
	if declClass.Super == nil {
		return nil, newThrow(rerrors.Type, mem.Position, "class '%s' has no superclass", declClass.Name)
	}
	method, methodClass, ok := declClass.Super.FindMethod(mem.Name)
	if !ok {
		return nil, newThrow(rerrors.Name, mem.Position, "'%s' has no method '%s'", declClass.Super.Name, mem.Name)
	}
	args, err := ev.evalArgs(argExprs, env)
	if err != nil {
		return nil, err
	}
	fn := ev.makeFunction(mem.Name, method.Func.Params, method.Func.Body, nil, methodClass.Closure, false)
	fn.This = inst
	return ev.callFunctionInClass(fn, args, methodClass)
}

// callFunctionInClass is callFunction plus binding "__class__" so a
// nested `super` reference resolves against the method's declaring class
// rather than the instance's dynamic class.
func (ev *Evaluator) callFunctionInClass(fn *Function, args CallArgs, declClass *Class) (value.Value, error) {
	if ev.depth >= ev.Limits.MaxCallDepth {
		return nil, newThrow(rerrors.Recursion, zeroPos, "maximum call depth of %d exceeded", ev.Limits.MaxCallDepth)
	}
	ev.depth++
	defer func() { ev.depth-- }()

	callEnv := environment.New(fn.Closure)
	callEnv.Declare("__class__", declClass, true)
	if fn.This != nil {
		callEnv.Declare("this", fn.This, true)
	}
	if err := ev.bindParams(fn.Params, args, callEnv); err != nil {
		return nil, err
	}
	_, err := ev.execBlock(fn.Body, callEnv)
	if err != nil {
		if rs, ok := err.(returnSignal); ok {
			return rs.value, nil
		}
		return nil, err
	}
	return value.UnitValue, nil
}

// bindMethod looks up name on inst's class chain and returns it as a bound
// callable Function, tagging it with the declaring class for `super`.
func (ev *Evaluator) bindMethod(inst *Instance, name string, pos any) (*Function, bool) {
	method, methodClass, ok := inst.Class.FindMethod(name)
	if !ok {
		return nil, false
	}
	closure := environment.New(methodClass.Closure)
	closure.Declare("__class__", methodClass, true)
	fn := ev.makeFunction(name, method.Func.Params, method.Func.Body, nil, closure, false)
	fn.This = inst
	return fn, true
}

func (ev *Evaluator) evalNew(n *ast.NewExpr, env *environment.Environment) (value.Value, error) {
	calleeV, err := ev.evalExpr(n.Callee, env)
	if err != nil {
		return nil, err
	}
	cls, ok := calleeV.(*Class)
	if !ok {
		return nil, newThrow(rerrors.Type, n.Position, "'new' requires a class, got %s", calleeV.Kind())
	}
	args, err := ev.evalArgs(n.Args, env)
	if err != nil {
		return nil, err
	}
	return ev.instantiate(cls, args)
}
