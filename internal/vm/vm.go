// Package vm executes the register IR internal/compiler emits. Grounded
// on the dispatch-loop idiom of the teacher's internal/vmregister/vm.go
// (fetch-decode-switch over a flat Instruction slice, a per-call frame
// holding its own register window), but with the JIT/inline-cache/
// NaN-boxing machinery that file built for its own domain left out: this
// VM recurses through Go's own call stack one frame per Raccoon call
// rather than juggling one shared register file, and leans on
// internal/evaluator/bridge.go for everything that isn't a dedicated
// opcode (arithmetic widening, member/index access, class declaration
// and instantiation, and the full escape hatch of OpEvalExpr/OpExecStmt)
// so the two front ends can never quietly disagree on behavior.
package vm

import (
	"fmt"
	"math/big"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/bytecode"
	"github.com/raccoon-lang/raccoon/internal/decorator"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/evaluator"
	"github.com/raccoon-lang/raccoon/internal/future"
	"github.com/raccoon-lang/raccoon/internal/token"
	"github.com/raccoon-lang/raccoon/internal/value"
)

var zeroPos = token.Position{}

// VM holds the state shared across every call frame: the evaluator every
// bridged construct runs against, this program's decorator registry (so
// OpClosure can apply decorators to VM-native closures the same way
// evaluator.applyDecorators does for tree-walked ones), and the VM's own
// call-depth counter. The VM and the evaluator keep independent recursion
// counters rather than one shared counter; a program that recurses back
// and forth across the bridge can in principle exceed either Limits.MaxCallDepth
// before the other backend's counter would have caught it. Both default
// to the same limit, so this only matters for pathological mixed-backend
// recursion, not for ordinary programs.
type VM struct {
	Eval  *evaluator.Evaluator
	Deco  *decorator.Registry
	depth int
}

// New builds a VM sharing ev's globals, types, modules and decorator
// registry.
func New(ev *evaluator.Evaluator) *VM {
	return &VM{Eval: ev, Deco: ev.Decorators}
}

// Closure is a VM-native function value: a compiled proto plus the
// environment it closed over. internal/environment is the single binding
// chain both the VM and the evaluator run against, so a Closure's
// captured scope is visible to, and mutable by, a bridged construct in
// its body exactly as a native instruction's would be.
type Closure struct {
	Proto *bytecode.FunctionProto
	Env   *environment.Environment
	vm    *VM
}

func (*Closure) Kind() value.Kind { return value.KindFunction }

func (c *Closure) String() string {
	if c.Proto.Name == "" {
		return "<function <anonymous>>"
	}
	return fmt.Sprintf("<function %s>", c.Proto.Name)
}

// CallFromHost lets tree-walked code invoke a VM-native closure reached
// the ordinary way (a callback passed to a builtin, a higher-order
// function stored in a field), the counterpart of
// internal/evaluator/bridge.go's CallValue for the opposite direction.
// See internal/evaluator/call.go's vmCallable interface.
func (c *Closure) CallFromHost(args []value.Value) (value.Value, error) {
	return c.vm.call(c, args, zeroPos)
}

// Run executes proto's top-level statements against env (normally
// ev.Globals), the VM's counterpart to evaluator.Run.
func (vm *VM) Run(proto *bytecode.FunctionProto, env *environment.Environment) (value.Value, error) {
	cl := &Closure{Proto: proto, Env: env, vm: vm}
	result, err := vm.call(cl, nil, zeroPos)
	if err != nil {
		if v, ok := evaluator.RaccoonCause(err); ok {
			return nil, v
		}
		return nil, err
	}
	vm.Eval.Scheduler.Drain()
	return result, nil
}

func (vm *VM) call(cl *Closure, args []value.Value, pos token.Position) (value.Value, error) {
	if vm.depth >= vm.Eval.Limits.MaxCallDepth {
		return nil, evaluator.ThrowRuntime(rerrors.Recursion, pos, "maximum call depth of %d exceeded", vm.Eval.Limits.MaxCallDepth)
	}
	vm.depth++
	defer func() { vm.depth-- }()

	callEnv := environment.New(cl.Env)
	if err := vm.bindParams(cl.Proto.Params, args, callEnv); err != nil {
		return nil, err
	}

	run := func() (value.Value, error) {
		return vm.runFrame(cl.Proto, callEnv)
	}
	if cl.Proto.Async {
		return vm.runAsync(run), nil
	}
	return run()
}

// runAsync mirrors evaluator.(*Evaluator).runAsync: this VM never
// suspends mid-Go-call either, so an async closure just runs to
// completion and the future is already settled by the time callers see
// it.
func (vm *VM) runAsync(thunk func() (value.Value, error)) value.Value {
	fut := future.NewFuture()
	result, err := thunk()
	if err != nil {
		if v, ok := evaluator.Catch(err); ok {
			fut.Reject(v)
			return evaluator.FutureValue{F: fut}
		}
		fut.Reject(value.String(err.Error()))
		return evaluator.FutureValue{F: fut}
	}
	fut.Resolve(result)
	return evaluator.FutureValue{F: fut}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// bindParams binds purely positional arguments (plus defaults/rest) to a
// VM-compiled closure's parameters. A call site with any `name: value`
// argument never reaches here: the compiler bridges it to the tree-walking
// evaluator's CallExpr handling instead (see compileCall/compileNew's
// hasNamedArg check), since the register ISA's calling convention only
// carries a single flat positional-argument list. That evaluator path
// binds positional, then named, then defaults, then rest (see
// internal/evaluator's bindParams), so named arguments still work for any
// closure, VM-compiled or not -- they just never bind through this
// function.
func (vm *VM) bindParams(params []bytecode.Param, args []value.Value, env *environment.Environment) error {
	for i, p := range params {
		if p.Variadic {
			rest := append([]value.Value{}, args[minInt(i, len(args)):]...)
			return env.Declare(p.Name, value.NewList(rest), false)
		}
		var v value.Value
		switch {
		case i < len(args):
			v = args[i]
		case p.Default != nil:
			dv, err := vm.Eval.EvalExpr(p.Default, env)
			if err != nil {
				return err
			}
			v = dv
		default:
			v = value.NullValue
		}
		if err := env.Declare(p.Name, v, false); err != nil {
			return evaluator.ThrowRuntime(rerrors.Name, zeroPos, "%s", err.Error())
		}
	}
	return nil
}

// applyDecorators mirrors evaluator.(*Evaluator).applyDecorators so a
// decorated top-level function compiles and decorates identically
// regardless of which backend produced its closure.
func (vm *VM) applyDecorators(decorators []ast.Decorator, target value.Value) value.Value {
	result := target
	for i := len(decorators) - 1; i >= 0; i-- {
		d := decorators[i]
		handler, err := vm.Deco.Lookup(d.Name, vm.Eval.InStdlibModule())
		if err != nil {
			continue
		}
		if err := handler.ValidateTarget(decorator.TargetFunction); err != nil {
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

var binaryOpNames = map[bytecode.OpCode]string{
	bytecode.OpAdd: "+", bytecode.OpSub: "-", bytecode.OpMul: "*",
	bytecode.OpDiv: "/", bytecode.OpMod: "%", bytecode.OpPow: "**",
	bytecode.OpEq: "==", bytecode.OpNeq: "!=",
	bytecode.OpLt: "<", bytecode.OpLe: "<=", bytecode.OpGt: ">", bytecode.OpGe: ">=",
	bytecode.OpBAnd: "&", bytecode.OpBOr: "|", bytecode.OpBXor: "^",
	bytecode.OpShl: "<<", bytecode.OpShr: ">>", bytecode.OpUShr: ">>>",
}

// spreadValues flattens an iterable into a slice for OpAppendAll and
// variadic-call argument spreading, with a fast path for the collection
// kinds that are cheap to flatten directly and evaluator.ToIterator as
// the fallback for everything else (e.g. a user-defined instance with a
// custom iterator).
func (vm *VM) spreadValues(v value.Value, pos token.Position) ([]value.Value, error) {
	switch x := v.(type) {
	case *value.List:
		return append([]value.Value{}, (*x.Elems)...), nil
	case value.Tuple:
		return append([]value.Value{}, x.Elems...), nil
	case *value.Set:
		return append([]value.Value{}, (*x.Keys)...), nil
	case value.String:
		out := make([]value.Value, 0, len(x))
		for _, r := range string(x) {
			out = append(out, value.Char(r))
		}
		return out, nil
	}
	it, err := vm.Eval.ToIterator(v, pos)
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for {
		next, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, next)
	}
	return out, nil
}

func bitNot(v value.Value, pos token.Position) (value.Value, error) {
	switch x := v.(type) {
	case value.Int:
		return ^x, nil
	case value.BigInt:
		return value.BigInt{V: new(big.Int).Not(x.V)}, nil
	default:
		return nil, evaluator.ThrowRuntime(rerrors.Type, pos, "bitwise '~' requires an int or bigint, got %s", v.Kind())
	}
}

// runFrame decodes and executes proto's chunk against env, a fresh
// register window per call. Control leaves either via OpReturn (the
// common case) or by falling off the end of the chunk (only the
// top-level program and a function body's compiler-emitted trailing
// OpLoadNull/OpReturn pair ever does the latter in practice).
func (vm *VM) runFrame(proto *bytecode.FunctionProto, env *environment.Environment) (value.Value, error) {
	chunk := proto.Chunk
	regs := make([]value.Value, int(chunk.NumRegs)+1)
	pc := 0
	for pc < len(chunk.Code) {
		instr := chunk.Code[pc]
		line := chunk.Lines[pc]
		pc++
		pos := token.Position{Line: line}

		switch instr.Op() {
		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
			bytecode.OpEq, bytecode.OpNeq, bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe,
			bytecode.OpBAnd, bytecode.OpBOr, bytecode.OpBXor, bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr:
			a, b, c := instr.A(), instr.B(), instr.C()
			v, err := evaluator.ApplyBinary(binaryOpNames[instr.Op()], regs[b], regs[c], pos)
			if err != nil {
				return nil, err
			}
			regs[a] = v

		case bytecode.OpNeg:
			v, err := evaluator.Negate(regs[instr.B()], pos)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpNot:
			regs[instr.A()] = value.BoolOf(!value.Truthy(regs[instr.B()]))

		case bytecode.OpBNot:
			v, err := bitNot(regs[instr.B()], pos)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpMove:
			regs[instr.A()] = regs[instr.B()]

		case bytecode.OpLoadK:
			regs[instr.A()] = chunk.Constants[instr.Bx()]

		case bytecode.OpLoadBool:
			regs[instr.A()] = value.BoolOf(instr.B() != 0)

		case bytecode.OpLoadNull:
			regs[instr.A()] = value.NullValue

		case bytecode.OpDeclareVar, bytecode.OpDeclareConst:
			name := string(chunk.Constants[instr.Bx()].(value.String))
			isConst := instr.Op() == bytecode.OpDeclareConst
			if err := env.Declare(name, regs[instr.A()], isConst); err != nil {
				return nil, evaluator.ThrowRuntime(rerrors.Name, pos, "%s", err.Error())
			}

		case bytecode.OpGetVar:
			name := string(chunk.Constants[instr.Bx()].(value.String))
			v, ok := env.Get(name)
			if !ok {
				return nil, evaluator.ThrowRuntime(rerrors.Name, pos, "'%s' is not defined", name)
			}
			regs[instr.A()] = v

		case bytecode.OpSetVar:
			name := string(chunk.Constants[instr.Bx()].(value.String))
			if err := env.Assign(name, regs[instr.A()]); err != nil {
				return nil, evaluator.ThrowRuntime(rerrors.Name, pos, "%s", err.Error())
			}

		case bytecode.OpPushScope:
			env = environment.New(env)

		case bytecode.OpPopScope:
			env = env.Parent()

		case bytecode.OpNewList:
			regs[instr.A()] = value.NewList(make([]value.Value, 0, int(instr.B())))

		case bytecode.OpNewMap:
			regs[instr.A()] = value.NewMap()

		case bytecode.OpNewSet:
			regs[instr.A()] = value.NewSet()

		case bytecode.OpNewTuple:
			a, n := instr.A(), int(instr.B())
			elems := make([]value.Value, n)
			copy(elems, regs[int(a)+1:int(a)+1+n])
			regs[a] = value.Tuple{Elems: elems}

		case bytecode.OpAppend:
			l := regs[instr.A()].(*value.List)
			*l.Elems = append(*l.Elems, regs[instr.B()])

		case bytecode.OpAppendAll:
			l := regs[instr.A()].(*value.List)
			items, err := vm.spreadValues(regs[instr.B()], pos)
			if err != nil {
				return nil, err
			}
			*l.Elems = append(*l.Elems, items...)

		case bytecode.OpSetAdd:
			s := regs[instr.A()].(*value.Set)
			s.Add(regs[instr.B()])

		case bytecode.OpGetIndex:
			v, err := vm.Eval.GetIndex(regs[instr.B()], regs[instr.C()])
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpSetIndex:
			if err := vm.Eval.SetIndex(regs[instr.A()], regs[instr.B()], regs[instr.C()]); err != nil {
				return nil, err
			}

		case bytecode.OpGetProp:
			name := string(chunk.Constants[instr.C()].(value.String))
			v, err := vm.Eval.GetMember(regs[instr.B()], name)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpSetProp:
			name := string(chunk.Constants[instr.B()].(value.String))
			if err := vm.Eval.SetMember(regs[instr.A()], name, regs[instr.C()]); err != nil {
				return nil, err
			}

		case bytecode.OpJmp:
			pc += int(instr.SBx())

		case bytecode.OpJmpIf:
			if value.Truthy(regs[instr.A()]) {
				pc += int(instr.SBx())
			}

		case bytecode.OpJmpIfNot:
			if !value.Truthy(regs[instr.A()]) {
				pc += int(instr.SBx())
			}

		case bytecode.OpIterInit:
			cursor, err := vm.iterInit(regs[instr.B()], instr.C() != 0, pos)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = cursor

		case bytecode.OpIterNext:
			cursor := regs[instr.A()].(*evaluator.Iterator)
			v, ok := cursor.Next()
			if !ok {
				regs[instr.B()] = value.NullValue
				regs[instr.C()] = value.True
			} else {
				regs[instr.B()] = v
				regs[instr.C()] = value.False
			}

		case bytecode.OpClosure:
			childProto := proto.Protos[instr.Bx()]
			cl := &Closure{Proto: childProto, Env: env, vm: vm}
			var fn value.Value = cl
			if len(childProto.Decorators) > 0 {
				fn = vm.applyDecorators(childProto.Decorators, cl)
			}
			regs[instr.A()] = fn

		case bytecode.OpCall:
			args, err := listArg(regs[instr.C()])
			if err != nil {
				return nil, err
			}
			v, err := vm.dispatchCall(regs[instr.B()], args, pos)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpReturn:
			return regs[instr.A()], nil

		case bytecode.OpClass:
			node := chunk.ASTConstants[instr.Bx()].(*ast.ClassDecl)
			v, err := vm.Eval.EvalClassDecl(node, env)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpInstance:
			args, err := listArg(regs[instr.C()])
			if err != nil {
				return nil, err
			}
			v, err := vm.Eval.Instantiate(regs[instr.B()], args)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpThrow:
			return nil, evaluator.Throw(regs[instr.A()], pos)

		case bytecode.OpAwait:
			v := regs[instr.B()]
			fut, ok := v.(evaluator.Awaitable)
			if !ok {
				regs[instr.A()] = v
				break
			}
			vm.Eval.Scheduler.Drain()
			res, errVal, state := fut.Settled()
			if state == evaluator.AwaitRejected {
				return nil, evaluator.Throw(errVal, pos)
			}
			regs[instr.A()] = res

		case bytecode.OpEvalExpr:
			node := chunk.ASTConstants[instr.Bx()].(ast.Expr)
			v, err := vm.Eval.EvalExpr(node, env)
			if err != nil {
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpExecStmt:
			node := chunk.ASTConstants[instr.Bx()].(ast.Stmt)
			v, err := vm.Eval.ExecStmt(node, env)
			if err != nil {
				if rv, ok := evaluator.IsReturn(err); ok {
					return rv, nil
				}
				return nil, err
			}
			regs[instr.A()] = v

		case bytecode.OpNop:
			// no-op

		default:
			return nil, evaluator.ThrowRuntime(rerrors.Internal, pos, "unhandled opcode %d", instr.Op())
		}
	}
	return value.UnitValue, nil
}

// iterInit builds the cursor OpIterInit stores in a register: for-in key
// enumeration via evaluator.EnumerateKeys, for-of value iteration via
// evaluator.ToIterator. Both already cover every collection kind
// natively inside the evaluator, so there is no separate VM-side fast
// path to keep in sync.
func (vm *VM) iterInit(obj value.Value, keys bool, pos token.Position) (*evaluator.Iterator, error) {
	if keys {
		ks, err := vm.Eval.EnumerateKeys(obj, pos)
		if err != nil {
			return nil, err
		}
		i := 0
		return &evaluator.Iterator{Next: func() (value.Value, bool) {
			if i >= len(ks) {
				return nil, false
			}
			v := ks[i]
			i++
			return v, true
		}}, nil
	}
	return vm.Eval.ToIterator(obj, pos)
}

func listArg(v value.Value) ([]value.Value, error) {
	l, ok := v.(*value.List)
	if !ok {
		return nil, evaluator.ThrowRuntime(rerrors.Internal, zeroPos, "compiler bug: expected an argument list, got %s", v.Kind())
	}
	return *l.Elems, nil
}

// dispatchCall invokes either a VM-native closure (run in this same
// dispatch loop via a fresh recursive runFrame call) or anything else a
// call expression may target, bridged through evaluator.CallValue so a
// class-as-constructor, a native function, or a tree-walked
// evaluator.Function behave identically regardless of which backend
// compiled the call site.
func (vm *VM) dispatchCall(callee value.Value, args []value.Value, pos token.Position) (value.Value, error) {
	if cl, ok := callee.(*Closure); ok {
		return vm.call(cl, args, pos)
	}
	return vm.Eval.CallValue(callee, args, pos)
}
