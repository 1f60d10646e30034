package evaluator

import (
	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/token"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// This file is the bridge internal/vm compiles class declarations,
// instantiation, method dispatch, member/index access, calls and throws
// through, so the register VM and the tree-walker agree on their
// observable behavior by construction rather than by keeping two
// independent implementations in sync (SPEC_FULL.md's VM/evaluator parity
// decision). internal/vm is the only importer of these exports outside
// this package itself.

// CallValue invokes any callable value the same way a call expression
// would: user function, native function, or class-used-as-constructor.
func (ev *Evaluator) CallValue(callee value.Value, args []value.Value, pos token.Position) (value.Value, error) {
	return ev.callValue(callee, CallArgs{Positional: args}, pos)
}

// GetMember reads obj.name following the same per-kind resolution order
// (instance fields, getters, methods; static class members; map string
// keys; type-handler properties/methods) the tree-walker's member
// expressions use.
func (ev *Evaluator) GetMember(obj value.Value, name string) (value.Value, error) {
	return ev.getMember(obj, name, zeroPos)
}

// SetMember writes obj.name = v, routing through setters the same way a
// plain assignment expression does.
func (ev *Evaluator) SetMember(obj value.Value, name string, v value.Value) error {
	return ev.setMember(obj, name, v)
}

// GetIndex reads obj[idx] (list/tuple/map/string).
func (ev *Evaluator) GetIndex(obj, idx value.Value) (value.Value, error) {
	return ev.getIndex(obj, idx, zeroPos)
}

// SetIndex writes obj[idx] = v.
func (ev *Evaluator) SetIndex(obj, idx, v value.Value) error {
	return ev.setIndex(obj, idx, v)
}

// EvalClassDecl builds a *Class value from a parsed class declaration,
// resolving `extends` in env and running any decorators, exactly as the
// tree-walker does for a `class` statement or expression.
func (ev *Evaluator) EvalClassDecl(decl *ast.ClassDecl, env *environment.Environment) (value.Value, error) {
	return ev.evalClassDecl(decl, env)
}

// Instantiate runs `new cls(args...)`: field initializers then the
// constructor (which may itself call `super(...)`), against a class value
// previously produced by EvalClassDecl.
func (ev *Evaluator) Instantiate(cls value.Value, args []value.Value) (value.Value, error) {
	c, ok := cls.(*Class)
	if !ok {
		return nil, newThrow(rerrors.Type, zeroPos, "'new' requires a class, got %s", cls.Kind())
	}
	return ev.instantiate(c, CallArgs{Positional: args})
}

// NewEnv opens a child scope of parent, the same lexical-scope primitive
// class closures and bridged method bodies run in.
func NewEnv(parent *environment.Environment) *environment.Environment {
	return environment.New(parent)
}

// Throw builds the control-flow error a `throw` statement or expression
// raises, catchable by Catch below.
func Throw(v value.Value, pos token.Position) error {
	return throwSignal{val: v, err: rerrors.New(rerrors.Exception, pos, "%s", value.Repr(v))}
}

// ThrowRuntime builds a kinded runtime fault (type/index/name/arithmetic/
// recursion/...), the same shape internal faults inside the tree-walker
// raise, so a VM-detected fault (e.g. division by zero) renders and
// catches identically to the evaluator's own.
func ThrowRuntime(kind rerrors.Kind, pos token.Position, format string, args ...any) error {
	return newThrow(kind, pos, format, args...)
}

// IsReturn reports whether err is a `return` unwinding through ExecStmt,
// and if so the returned value.
func IsReturn(err error) (value.Value, bool) {
	rs, ok := err.(returnSignal)
	if !ok {
		return nil, false
	}
	return rs.value, true
}

// IsBreak reports whether err is a `break` unwinding through ExecStmt,
// and if so its label (empty for an unlabeled break).
func IsBreak(err error) (string, bool) {
	bs, ok := err.(breakSignal)
	return bs.label, ok
}

// IsContinue reports whether err is a `continue` unwinding through
// ExecStmt, and if so its label.
func IsContinue(err error) (string, bool) {
	cs, ok := err.(continueSignal)
	return cs.label, ok
}

// Catch extracts the thrown value.Value from err if err originated from
// Throw/ThrowRuntime (or from a tree-walking helper called through this
// bridge), the counterpart a VM's try/catch needs to bind a catch clause.
func Catch(err error) (value.Value, bool) {
	ts, ok := err.(throwSignal)
	if !ok {
		return nil, false
	}
	return ts.val, true
}

// EvalExpr evaluates an arbitrary expression node against env exactly as
// the tree-walker would. internal/compiler reaches for this as a fallback
// for expression forms it does not compile to registers directly (match
// expressions, template literals, typeof/instanceof/in/delete, and other
// constructs whose value is better shared verbatim than reimplemented a
// second time), so every expression form SPEC_FULL.md defines works from
// VM-compiled code even where the compiler does not lower it itself.
func (ev *Evaluator) EvalExpr(e ast.Expr, env *environment.Environment) (value.Value, error) {
	return ev.evalExpr(e, env)
}

// ExecStmt runs an arbitrary statement node against env exactly as the
// tree-walker would, the statement-level counterpart to EvalExpr.
func (ev *Evaluator) ExecStmt(s ast.Stmt, env *environment.Environment) (value.Value, error) {
	return ev.execStmt(s, env)
}

// ApplyBinary implements a binary operator (arithmetic widening lattice,
// comparisons, string/list concatenation, structural equality) the same
// way a BinaryExpr does, so VM arithmetic and tree-walked arithmetic can
// never silently diverge.
func ApplyBinary(op string, left, right value.Value, pos token.Position) (value.Value, error) {
	return (*Evaluator)(nil).applyBinaryOp(op, left, right, pos)
}

// Negate implements unary '-'.
func Negate(v value.Value, pos token.Position) (value.Value, error) {
	return negate(v, pos)
}

// AssignTo assigns v to an arbitrary assignment target expression
// (identifier, member, index, or array/object destructuring pattern),
// the same dispatch compound and destructuring assignment expressions use.
func (ev *Evaluator) AssignTo(target ast.Expr, v value.Value, env *environment.Environment) error {
	return ev.assignTo(target, v, env)
}

// BindPattern destructures v against pat into env, always declaring new
// bindings there (declare marks them const when true), the same
// pattern-matching machinery `let`/`const`/catch bindings/for-in/for-of
// loop variables all go through.
func (ev *Evaluator) BindPattern(pat ast.Pattern, v value.Value, env *environment.Environment, declare bool) error {
	return ev.bindPattern(pat, v, env, declare)
}

// EnumerateKeys implements for-in's key-iteration protocol for a value
// kind the VM does not already special-case natively (chiefly *Instance).
func (ev *Evaluator) EnumerateKeys(obj value.Value, pos token.Position) ([]value.Value, error) {
	return ev.enumerateKeys(obj, pos)
}

// ToIterator implements for-of's value-iteration protocol for a value
// kind the VM does not already special-case natively.
func (ev *Evaluator) ToIterator(obj value.Value, pos token.Position) (*Iterator, error) {
	return ev.toIterator(obj, pos)
}

// InStdlibModule reports whether the module currently executing was
// resolved from within the standard-library source tree, for the VM's
// decorator dispatch to pass through to decorator.Registry.Lookup the same
// way the tree-walker's applyDecorators does.
func (ev *Evaluator) InStdlibModule() bool {
	return ev.inStdlibModule
}

// RaccoonCause extracts the underlying *rerrors.RaccoonError from err, for
// rendering or rethrowing with Render/WithStack, when err came from Throw/
// ThrowRuntime.
func RaccoonCause(err error) (*rerrors.RaccoonError, bool) {
	ts, ok := err.(throwSignal)
	if !ok {
		return nil, false
	}
	return ts.err, true
}
