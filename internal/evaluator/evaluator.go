// Package evaluator implements Raccoon's tree-walking evaluator.
package evaluator

import (
	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/decorator"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/future"
	"github.com/raccoon-lang/raccoon/internal/module"
	"github.com/raccoon-lang/raccoon/internal/stdlib"
	"github.com/raccoon-lang/raccoon/internal/token"
	"github.com/raccoon-lang/raccoon/internal/types"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// Limits holds the tunables spec.md calls out as configurable-with-a-
// default, rather than hardcoded constants.
type Limits struct {
	MaxCallDepth int
}

func DefaultLimits() Limits {
	return Limits{MaxCallDepth: 500}
}

// Evaluator holds the state shared across one evaluation of a program:
// the global scope, the shared registries, the async scheduler, and the
// current call depth.
type Evaluator struct {
	Globals   *environment.Environment
	Types     *types.Registry
	Decorators *decorator.Registry
	Modules   *module.Registry
	Scheduler *future.Scheduler
	Limits    Limits

	depth     int
	callStack []rerrors.StackFrame

	// inStdlibModule is true while executing a module file resolved from
	// within the standard-library source tree (see loadUserModule and
	// isStdlibPath in modules.go). It gates the internal-decorator
	// visibility rule: "Internal decorators (prefix `_`) are permitted
	// only when the source file is within the standard-library
	// directory" (spec.md §4.3/§4.9).
	inStdlibModule bool
}

func New() *Evaluator {
	ev := &Evaluator{
		Globals:    environment.New(nil),
		Types:      types.NewRegistry(),
		Decorators: decorator.NewRegistry(),
		Modules:    module.NewRegistry(),
		Scheduler:  future.NewScheduler(),
		Limits:     DefaultLimits(),
	}
	ev.Modules.SetFileLoader(ev.loadUserModule)
	stdlib.Install(ev.Modules)
	return ev
}

// --- control-flow signals ---
//
// Non-local control flow (return/break/continue/throw) propagates as a Go
// error implementing controlSignal, so normal evaluation code just
// returns errors as usual and statement/loop/try handlers type-switch on
// the concrete signal they know how to absorb. Anything that reaches the
// top of Run un-absorbed is a genuine error.

type controlSignal interface {
	error
	isControlSignal()
}

type returnSignal struct{ value value.Value }

func (returnSignal) Error() string   { return "return outside function" }
func (returnSignal) isControlSignal() {}

type breakSignal struct{ label string }

func (breakSignal) Error() string    { return "break outside loop" }
func (breakSignal) isControlSignal() {}

type continueSignal struct{ label string }

func (continueSignal) Error() string  { return "continue outside loop" }
func (continueSignal) isControlSignal() {}

// throwSignal carries a Raccoon-level thrown value (from `throw` or an
// internal runtime fault translated to one) up to the nearest try/catch.
type throwSignal struct {
	val  value.Value
	err  *rerrors.RaccoonError
}

func (t throwSignal) Error() string { return t.err.Error() }
func (throwSignal) isControlSignal() {}

func newThrow(kind rerrors.Kind, pos token.Position, format string, args ...any) throwSignal {
	re := rerrors.New(kind, pos, format, args...)
	return throwSignal{val: errorValueFromRaccoon(re), err: re}
}

func errorValueFromRaccoon(re *rerrors.RaccoonError) value.Value {
	return value.ErrorValue{ErrKind: string(re.ErrKind), Message: re.Message}
}

// Run evaluates an entire program in the global scope.
func (ev *Evaluator) Run(prog *ast.Program) (value.Value, error) {
	var last value.Value = value.UnitValue
	for _, stmt := range prog.Statements {
		v, err := ev.execStmt(stmt, ev.Globals)
		if err != nil {
			if ts, ok := err.(throwSignal); ok {
				return nil, ts.err
			}
			return nil, err
		}
		last = v
	}
	ev.Scheduler.Drain()
	return last, nil
}

// --- statement execution ---

func (ev *Evaluator) execStmt(s ast.Stmt, env *environment.Environment) (value.Value, error) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		return ev.evalExpr(n.X, env)
	case *ast.VarDecl:
		return ev.execVarDecl(n, env)
	case *ast.BlockStmt:
		return ev.execBlock(n, environment.New(env))
	case *ast.IfStmt:
		return ev.execIf(n, env)
	case *ast.WhileStmt:
		return ev.execWhile(n, env)
	case *ast.DoWhileStmt:
		return ev.execDoWhile(n, env)
	case *ast.ForStmt:
		return ev.execFor(n, env)
	case *ast.ForInStmt:
		return ev.execForIn(n, env)
	case *ast.ForOfStmt:
		return ev.execForOf(n, env)
	case *ast.TryStmt:
		return ev.execTry(n, env)
	case *ast.ReturnStmt:
		var v value.Value = value.UnitValue
		if n.Value != nil {
			var err error
			v, err = ev.evalExpr(n.Value, env)
			if err != nil {
				return nil, err
			}
		}
		return nil, returnSignal{value: v}
	case *ast.BreakStmt:
		return nil, breakSignal{label: n.Label}
	case *ast.ContinueStmt:
		return nil, continueSignal{label: n.Label}
	case *ast.ThrowStmt:
		v, err := ev.evalExpr(n.Value, env)
		if err != nil {
			return nil, err
		}
		return nil, throwSignal{val: v, err: rerrors.New(rerrors.Exception, n.Position, "%s", value.Repr(v))}
	case *ast.LabeledStmt:
		return ev.execLabeled(n, env)
	case *ast.FuncDecl:
		fn := ev.makeFunction(n.Name, n.Params, n.Body, nil, env, n.Async)
		wrapped := ev.applyDecorators(n.Decorators, fn, decorator.TargetFunction)
		if err := env.Declare(n.Name, wrapped, false); err != nil {
			return nil, newThrow(rerrors.Name, n.Position, "%s", err.Error())
		}
		return value.UnitValue, nil
	case *ast.ClassDecl:
		cls, err := ev.evalClassDecl(n, env)
		if err != nil {
			return nil, err
		}
		if err := env.Declare(n.Name, cls, false); err != nil {
			return nil, newThrow(rerrors.Name, n.Position, "%s", err.Error())
		}
		return value.UnitValue, nil
	case *ast.InterfaceDecl, *ast.EnumDecl, *ast.TypeAliasDecl:
		// Purely structural/compile-time constructs: nothing to evaluate at
		// runtime beyond having parsed successfully.
		return value.UnitValue, nil
	case *ast.ImportDecl:
		return ev.execImport(n, env)
	case *ast.ExportDecl:
		if n.Decl != nil {
			return ev.execStmt(n.Decl, env)
		}
		return value.UnitValue, nil
	default:
		return nil, newThrow(rerrors.Internal, s.Pos(), "unhandled statement %T", s)
	}
}

func (ev *Evaluator) execVarDecl(n *ast.VarDecl, env *environment.Environment) (value.Value, error) {
	var v value.Value = value.NullValue
	if n.Init != nil {
		var err error
		v, err = ev.evalExpr(n.Init, env)
		if err != nil {
			return nil, err
		}
	}
	if err := ev.bindPattern(n.Pattern, v, env, n.Const); err != nil {
		return nil, newThrow(rerrors.Name, n.Position, "%s", err.Error())
	}
	return value.UnitValue, nil
}

func (ev *Evaluator) execBlock(n *ast.BlockStmt, env *environment.Environment) (value.Value, error) {
	var last value.Value = value.UnitValue
	for _, stmt := range n.Body {
		v, err := ev.execStmt(stmt, env)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (ev *Evaluator) execIf(n *ast.IfStmt, env *environment.Environment) (value.Value, error) {
	cond, err := ev.evalExpr(n.Cond, env)
	if err != nil {
		return nil, err
	}
	if value.Truthy(cond) {
		return ev.execBlock(n.Then, environment.New(env))
	}
	if n.Else != nil {
		return ev.execStmt(n.Else, env)
	}
	return value.UnitValue, nil
}

func (ev *Evaluator) execWhile(n *ast.WhileStmt, env *environment.Environment) (value.Value, error) {
	for {
		cond, err := ev.evalExpr(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if !value.Truthy(cond) {
			break
		}
		_, err = ev.execBlock(n.Body, environment.New(env))
		if brk, stop := ev.absorbLoopSignal(err, n.Label); stop {
			if brk {
				break
			}
			return nil, err
		}
	}
	return value.UnitValue, nil
}

func (ev *Evaluator) execDoWhile(n *ast.DoWhileStmt, env *environment.Environment) (value.Value, error) {
	for {
		_, err := ev.execBlock(n.Body, environment.New(env))
		if brk, stop := ev.absorbLoopSignal(err, n.Label); stop {
			if brk {
				break
			}
			return nil, err
		}
		cond, err := ev.evalExpr(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if !value.Truthy(cond) {
			break
		}
	}
	return value.UnitValue, nil
}

func (ev *Evaluator) execFor(n *ast.ForStmt, env *environment.Environment) (value.Value, error) {
	loopEnv := environment.New(env)
	if n.Init != nil {
		if _, err := ev.execStmt(n.Init, loopEnv); err != nil {
			return nil, err
		}
	}
	for {
		if n.Cond != nil {
			cond, err := ev.evalExpr(n.Cond, loopEnv)
			if err != nil {
				return nil, err
			}
			if !value.Truthy(cond) {
				break
			}
		}
		iterEnv := environment.New(loopEnv)
		_, err := ev.execBlock(n.Body, iterEnv)
		if brk, stop := ev.absorbLoopSignal(err, n.Label); stop {
			if brk {
				break
			}
			return nil, err
		}
		if n.Post != nil {
			if _, err := ev.evalExpr(n.Post, loopEnv); err != nil {
				return nil, err
			}
		}
	}
	return value.UnitValue, nil
}

// execForIn iterates object/map keys. Each iteration gets a fresh child
// scope so closures created in the loop body capture that iteration's
// binding, not a shared mutable slot.
func (ev *Evaluator) execForIn(n *ast.ForInStmt, env *environment.Environment) (value.Value, error) {
	obj, err := ev.evalExpr(n.Iterable, env)
	if err != nil {
		return nil, err
	}
	keys, err := ev.enumerateKeys(obj, n.Position)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		iterEnv := environment.New(env)
		if err := ev.bindPattern(n.Binding, k, iterEnv, n.Const); err != nil {
			return nil, newThrow(rerrors.Name, n.Position, "%s", err.Error())
		}
		_, err := ev.execBlock(n.Body, iterEnv)
		if brk, stop := ev.absorbLoopSignal(err, n.Label); stop {
			if brk {
				break
			}
			return nil, err
		}
	}
	return value.UnitValue, nil
}

func (ev *Evaluator) execForOf(n *ast.ForOfStmt, env *environment.Environment) (value.Value, error) {
	iterable, err := ev.evalExpr(n.Iterable, env)
	if err != nil {
		return nil, err
	}
	it, err := ev.toIterator(iterable, n.Position)
	if err != nil {
		return nil, err
	}
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		iterEnv := environment.New(env)
		if err := ev.bindPattern(n.Binding, v, iterEnv, n.Const); err != nil {
			return nil, newThrow(rerrors.Name, n.Position, "%s", err.Error())
		}
		_, err := ev.execBlock(n.Body, iterEnv)
		if brk, stop := ev.absorbLoopSignal(err, n.Label); stop {
			if brk {
				break
			}
			return nil, err
		}
	}
	return value.UnitValue, nil
}

// absorbLoopSignal inspects the error from a loop body. It returns
// (breakRequested, shouldStopLoop). An unrelated error (or a label that
// doesn't match) is reported via shouldStopLoop=true with the original
// error left in place for the caller to propagate.
func (ev *Evaluator) absorbLoopSignal(err error, label string) (brk bool, stop bool) {
	if err == nil {
		return false, false
	}
	switch sig := err.(type) {
	case breakSignal:
		if sig.label == "" || sig.label == label {
			return true, true
		}
		return false, true // propagate labeled break to an outer loop
	case continueSignal:
		if sig.label == "" || sig.label == label {
			return false, false
		}
		return false, true // propagate labeled continue to an outer loop
	default:
		return false, true
	}
}

func (ev *Evaluator) execLabeled(n *ast.LabeledStmt, env *environment.Environment) (value.Value, error) {
	return ev.execStmt(n.Body, env)
}

func (ev *Evaluator) execTry(n *ast.TryStmt, env *environment.Environment) (value.Value, error) {
	result, err := ev.execBlock(n.Body, environment.New(env))

	if err != nil {
		if ts, ok := err.(throwSignal); ok && n.Catch != nil {
			catchEnv := environment.New(env)
			if n.Catch.Binding != nil {
				if bindErr := ev.bindPattern(n.Catch.Binding, ts.val, catchEnv, false); bindErr != nil {
					return nil, newThrow(rerrors.Name, n.Position, "%s", bindErr.Error())
				}
			}
			result, err = ev.execBlock(n.Catch.Body, catchEnv)
		}
	}

	if n.Finally != nil {
		// A finally block that itself exits via return/break/continue/throw
		// overrides whatever the try/catch produced, per spec.md.
		finalResult, finalErr := ev.execBlock(n.Finally, environment.New(env))
		if finalErr != nil {
			return finalResult, finalErr
		}
	}
	return result, err
}

func (ev *Evaluator) execImport(n *ast.ImportDecl, env *environment.Environment) (value.Value, error) {
	ns, err := ev.Modules.Load(n.Module)
	if err != nil {
		return nil, newThrow(rerrors.Import, n.Position, "%s", err.Error())
	}
	if n.Namespace != "" {
		m := value.NewMap()
		for name, v := range ns.Exports {
			m.Set(value.String(name), v.(value.Value))
		}
		env.Declare(n.Namespace, m, true)
	}
	if n.Default != "" {
		if v, ok := ns.Exports["default"]; ok {
			env.Declare(n.Default, v.(value.Value), true)
		}
	}
	for _, spec := range n.Specifiers {
		v, ok := ns.Exports[spec.Name]
		if !ok {
			return nil, newThrow(rerrors.Import, spec.Position, "module '%s' has no export '%s'", n.Module, spec.Name)
		}
		env.Declare(spec.Alias, v.(value.Value), true)
	}
	return value.UnitValue, nil
}

// RenderPanic turns an unexpected Go panic recovered at the call boundary
// into an Internal RaccoonError rather than crashing the host process.
func RenderPanic(r any, pos token.Position) *rerrors.RaccoonError {
	return rerrors.New(rerrors.Internal, pos, "internal error: %v", r)
}
