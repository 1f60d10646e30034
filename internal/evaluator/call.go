package evaluator

import (
	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/decorator"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/token"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// zeroPos is used where a native-call boundary has no more specific
// source position to attach to an error than "somewhere in this call".
var zeroPos = token.Position{}

func (ev *Evaluator) evalCall(n *ast.CallExpr, env *environment.Environment) (value.Value, error) {
	v, short, err := ev.evalCallChain(n, env)
	if short {
		return value.NullValue, nil
	}
	return v, err
}

// evalCallChain is evalCall's chain-aware core: the bool result reports
// whether n's callee chain already short-circuited on a null receiver (see
// evalChainLink in member.go), so an enclosing link in the same `?.` chain
// can keep propagating null instead of evaluating args and dereferencing
// it.
func (ev *Evaluator) evalCallChain(n *ast.CallExpr, env *environment.Environment) (value.Value, bool, error) {
	// `super(...)` inside a constructor calls the superclass constructor
	// bound to the current `this`.
	if _, ok := n.Callee.(*ast.SuperExpr); ok {
		v, err := ev.evalSuperCall(n, env)
		return v, false, err
	}

	// `super.method(...)` dispatches starting one link above the defining
	// class, rather than re-resolving from the instance's dynamic class.
	if mem, ok := n.Callee.(*ast.MemberExpr); ok {
		if _, isSuper := mem.Object.(*ast.SuperExpr); isSuper {
			v, err := ev.evalSuperMethodCall(mem, n.Args, env)
			return v, false, err
		}
	}

	callee, short, err := ev.evalChainLink(n.Callee, env)
	if err != nil {
		return nil, false, err
	}
	if short {
		return value.NullValue, true, nil
	}
	if n.Optional {
		if _, isNull := callee.(value.Null); isNull {
			return value.NullValue, true, nil
		}
	}

	args, err := ev.evalArgs(n.Args, env)
	if err != nil {
		return nil, false, err
	}
	v, err := ev.callValue(callee, args, n.Position)
	return v, false, err
}

// CallArgs is a call's evaluated argument list, split into the positional
// values (in source order, spreads already flattened in) and any `name:
// value` arguments keyed by parameter name, per spec.md's "Calls accept
// positional and named arguments" (§4.2).
type CallArgs struct {
	Positional []value.Value
	Named      map[string]value.Value
}

func (ev *Evaluator) evalArgs(argExprs []ast.Expr, env *environment.Environment) (CallArgs, error) {
	var out CallArgs
	for _, a := range argExprs {
		switch arg := a.(type) {
		case *ast.SpreadExpr:
			v, err := ev.evalExpr(arg.X, env)
			if err != nil {
				return out, err
			}
			items, err := ev.spreadToSlice(v, arg.Pos())
			if err != nil {
				return out, err
			}
			out.Positional = append(out.Positional, items...)
		case *ast.NamedArg:
			v, err := ev.evalExpr(arg.Value, env)
			if err != nil {
				return out, err
			}
			if out.Named == nil {
				out.Named = make(map[string]value.Value)
			}
			if _, dup := out.Named[arg.Name]; dup {
				return out, newThrow(rerrors.Name, arg.Position, "argument '%s' passed more than once", arg.Name)
			}
			out.Named[arg.Name] = v
		default:
			v, err := ev.evalExpr(a, env)
			if err != nil {
				return out, err
			}
			out.Positional = append(out.Positional, v)
		}
	}
	return out, nil
}

// vmCallable lets a register-VM-native closure (internal/vm.Closure) be
// invoked from tree-walked code reached the usual way (a callback handed
// to a builtin like list.map, a higher-order function stored in a field)
// without internal/evaluator importing internal/vm, which already
// imports internal/evaluator for the opposite direction's bridge (see
// internal/evaluator/bridge.go). A structural interface check is enough:
// neither package needs to name the other's concrete type.
type vmCallable interface {
	CallFromHost(args []value.Value) (value.Value, error)
}

// callValue invokes any callable Raccoon value (user function, native
// function, a class used as a constructor shorthand, or a VM-native
// closure reached from tree-walked code). Only *Function and *Class carry
// declared parameter names to match named arguments against; every other
// callable is a Go-side boundary that only ever accepts positional values.
func (ev *Evaluator) callValue(callee value.Value, args CallArgs, pos token.Position) (value.Value, error) {
	switch fn := callee.(type) {
	case *Function:
		return ev.callFunction(fn, args)
	case *NativeFunction:
		if len(args.Named) > 0 {
			return nil, newThrow(rerrors.Type, pos, "native functions do not accept named arguments")
		}
		v, err := fn.Fn(ev, args.Positional)
		if err != nil {
			return nil, newThrow(rerrors.Internal, pos, "%s", err.Error())
		}
		return v, nil
	case *value.Native:
		if len(args.Named) > 0 {
			return nil, newThrow(rerrors.Type, pos, "native functions do not accept named arguments")
		}
		v, err := fn.Fn(args.Positional)
		if err != nil {
			return nil, newThrow(rerrors.Internal, pos, "%s", err.Error())
		}
		return v, nil
	case *Class:
		return ev.instantiate(fn, args)
	case vmCallable:
		if len(args.Named) > 0 {
			return nil, newThrow(rerrors.Type, pos, "this callee does not accept named arguments")
		}
		return fn.CallFromHost(args.Positional)
	default:
		return nil, newThrow(rerrors.Type, pos, "value of kind %s is not callable", callee.Kind())
	}
}

func (ev *Evaluator) callFunction(fn *Function, args CallArgs) (value.Value, error) {
	if ev.depth >= ev.Limits.MaxCallDepth {
		return nil, newThrow(rerrors.Recursion, zeroPos, "maximum call depth of %d exceeded", ev.Limits.MaxCallDepth)
	}
	ev.depth++
	ev.callStack = append(ev.callStack, rerrors.StackFrame{FuncName: displayName(fn)})
	defer func() {
		ev.depth--
		ev.callStack = ev.callStack[:len(ev.callStack)-1]
	}()

	callEnv := environment.New(fn.Closure)
	if fn.This != nil {
		callEnv.Declare("this", fn.This, true)
	}
	if err := ev.bindParams(fn.Params, args, callEnv); err != nil {
		return nil, err
	}

	run := func() (value.Value, error) {
		if fn.Expr != nil {
			return ev.evalExpr(fn.Expr, callEnv)
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

	if fn.Async {
		return ev.runAsync(run), nil
	}
	return run()
}

func displayName(fn *Function) string {
	if fn.Name == "" {
		return "<anonymous>"
	}
	return fn.Name
}

// bindParams binds args to params following spec.md's function-application
// step 5: positional, then named, then defaults for any unbound optional
// parameter, then rest collects the remaining positional arguments.
func (ev *Evaluator) bindParams(params []ast.Param, args CallArgs, env *environment.Environment) error {
	bound := make([]bool, len(params))
	values := make([]value.Value, len(params))
	posIdx := 0

	for i, param := range params {
		if param.Variadic {
			break
		}
		if posIdx < len(args.Positional) {
			values[i] = args.Positional[posIdx]
			bound[i] = true
			posIdx++
		}
	}

	for name, v := range args.Named {
		i := paramIndexByName(params, name)
		if i < 0 {
			return newThrow(rerrors.Name, zeroPos, "no parameter named '%s'", name)
		}
		if bound[i] {
			return newThrow(rerrors.Name, params[i].Position, "parameter '%s' bound more than once", name)
		}
		values[i] = v
		bound[i] = true
	}

	for i, param := range params {
		if param.Variadic {
			rest := append([]value.Value{}, args.Positional[min(posIdx, len(args.Positional)):]...)
			return ev.bindPattern(param.Pattern, value.NewList(rest), env, false)
		}
		v := values[i]
		if !bound[i] {
			if param.Default != nil {
				dv, err := ev.evalExpr(param.Default, env)
				if err != nil {
					return err
				}
				v = dv
			} else {
				v = value.NullValue
			}
		}
		if err := ev.bindPattern(param.Pattern, v, env, false); err != nil {
			return newThrow(rerrors.Name, param.Position, "%s", err.Error())
		}
	}
	return nil
}

// paramIndexByName returns the index of the (non-variadic) parameter whose
// pattern is a bare identifier named name, or -1 if none matches. Named
// arguments can only target simple identifier parameters; a destructuring
// parameter has no single name to match against.
func paramIndexByName(params []ast.Param, name string) int {
	for i, param := range params {
		if param.Variadic {
			continue
		}
		if id, ok := param.Pattern.(*ast.IdentPattern); ok && id.Name == name {
			return i
		}
	}
	return -1
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// applyDecorators wraps target with each decorator, innermost (nearest
// the declaration) first, matching spec.md's inside-out application
// order.
func (ev *Evaluator) applyDecorators(decorators []ast.Decorator, target value.Value, dtarget decorator.Target) value.Value {
	result := target
	for i := len(decorators) - 1; i >= 0; i-- {
		d := decorators[i]
		handler, err := ev.Decorators.Lookup(d.Name, ev.inStdlibModule)
		if err != nil {
			continue
		}
		if err := handler.ValidateTarget(dtarget); err != nil {
			continue
		}
		wrapped, err := handler.Apply(result, nil)
		if err != nil {
			continue
		}
		if wv, ok := wrapped.(value.Value); ok {
			result = wv
		}
	}
	return result
}
