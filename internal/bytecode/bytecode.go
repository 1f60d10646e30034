// Package bytecode defines Raccoon's register-based instruction set: the
// wire format internal/compiler emits and internal/vm executes. Grounded
// on the teacher's internal/vmregister/bytecode.go (Lua/LuaJIT-style
// register ISA), trimmed to the operations SPEC_FULL.md's language
// surface actually needs and built on internal/value's safe tagged union
// rather than the teacher's NaN-boxed Value.
package bytecode

import (
	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/value"
)

type OpCode uint8

const (
	// Arithmetic, comparison and bitwise operators are compiled to a
	// dedicated opcode per operator but executed by calling
	// evaluator.ApplyBinary/evaluator.Negate (R(A) = op(R(B), R(C))),
	// rather than re-deriving spec.md's widening lattice a second time:
	// see internal/evaluator/bridge.go.
	OpAdd OpCode = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg // R(A) = -R(B)

	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe

	OpNot // R(A) = !truthy(R(B)), evaluated natively against internal/value

	OpBAnd
	OpBOr
	OpBXor
	OpBNot
	OpShl
	OpShr
	OpUShr

	// Memory / constants
	OpMove     // R(A) = R(B)
	OpLoadK    // R(A) = K(Bx)
	OpLoadBool // R(A) = bool(B)
	OpLoadNull // R(A) = null

	// Named variables. Raccoon locals, upvalues and globals are all one
	// lexical scope chain (internal/environment), the same chain the
	// tree-walking evaluator runs against, rather than a second
	// register-slot/upvalue-capture scheme a VM would normally keep of its
	// own: closures compiled by internal/compiler and interpreted by
	// internal/evaluator then agree on capture semantics by construction.
	OpDeclareVar   // scope.Declare(string(K(Bx)), R(A), constant=false)
	OpDeclareConst // scope.Declare(string(K(Bx)), R(A), constant=true)
	OpGetVar       // R(A) = scope.Get(string(K(Bx)))
	OpSetVar       // scope.Assign(string(K(Bx)), R(A))

	// OpPushScope/OpPopScope open and close a child environment.Environment,
	// the block-scoping primitive every BlockStmt/if-branch/loop-iteration
	// uses in internal/evaluator (environment.New(env) per block), kept as
	// explicit opcodes rather than implicit so a bridged construct
	// (OpEvalExpr/OpExecStmt/OpClass) always sees the same "current scope"
	// a sibling native instruction would.
	OpPushScope
	OpPopScope

	// Collections
	OpNewList  // R(A) = new list, capacity hint B
	OpNewMap   // R(A) = new map
	OpNewSet   // R(A) = new set
	OpNewTuple // R(A) = new tuple, elements R(A+1)..R(A+B)
	OpAppend   // append R(B) onto list R(A)
	OpAppendAll // append every element of iterable R(B) onto list R(A) (spread)
	OpSetAdd   // add R(B) to set R(A)
	OpGetIndex // R(A) = R(B)[R(C)]
	OpSetIndex // R(A)[R(B)] = R(C)
	OpGetProp  // R(A) = R(B).string(K(C))
	OpSetProp  // R(A).string(K(B)) = R(C)

	// Control flow
	OpJmp      // pc += sBx
	OpJmpIf    // if truthy(R(A)) pc += sBx
	OpJmpIfNot // if !truthy(R(A)) pc += sBx

	// Iteration protocol: OpIterInit wraps R(B) as an iterator cursor in
	// R(A); OpIterNext advances it, writing the next value to R(B) and
	// whether the cursor is exhausted to R(C), for a following OpJmpIf to
	// test (for-of over list/tuple/set/map/string natively, bridging to
	// evaluator.ToIterator otherwise).
	OpIterInit // R(A) = iterator cursor over R(B); C != 0 selects for-in key enumeration over for-of value iteration
	OpIterNext // advance cursor R(A): R(B) = next value (or null), R(C) = bool(exhausted)

	// Functions. User closures compiled by internal/compiler run natively
	// in the VM's own dispatch loop; calling anything else (a class used
	// as a constructor, a native function, a tree-walker-produced
	// evaluator.Function from an imported module) bridges through
	// evaluator.CallValue, so OpCall handles both uniformly by inspecting
	// the callee's concrete type at runtime.
	OpClosure // R(A) = closure(Proto[Bx]) capturing the current scope
	OpCall    // R(A) = R(B)(elements of list R(C))
	OpReturn  // return R(A)

	// Classes. Declaration and instantiation bridge to
	// evaluator.EvalClassDecl/evaluator.Instantiate: a class's method and
	// constructor bodies are plain evaluator.Function values executed by
	// the tree-walker even when `new`/a method call originates from
	// VM-compiled code, per SPEC_FULL.md's VM/evaluator parity decision.
	OpClass    // R(A) = class(AST[Bx]) declared against the current scope
	OpInstance // R(A) = new R(B)(elements of list R(C))

	OpThrow // throw R(A)

	OpAwait // R(A) = await R(B)

	// Escape hatch: compile an arbitrary expression/statement node by
	// bridging straight to the tree-walking evaluator (match expressions,
	// template literals, typeof/instanceof/in/delete, destructuring
	// patterns beyond a bare identifier, try/catch/finally, imports and
	// exports, and anything else internal/compiler does not lower to
	// registers itself). The AST node lives in the chunk's ASTConstants
	// pool, not the value.Value Constants pool.
	OpEvalExpr // R(A) = eval(ASTConst[Bx]) against the current scope
	OpExecStmt // R(A) = exec(ASTConst[Bx]) against the current scope

	OpNop
)

// Instruction is a single 32-bit encoded op, identical bit layout to the
// teacher's: [8-bit op][8-bit A][8-bit B][8-bit C], with Bx/sBx/Ax
// reinterpreting the B/C (or A) fields as wider operands.
type Instruction uint32

const (
	posOp = 0
	posA  = 8
	posB  = 16
	posC  = 24

	sizeOp = 8
	sizeA  = 8
	sizeB  = 8
	sizeBx = 16
	sizeAx = 24

	maskOp = (1 << sizeOp) - 1
	maskA  = (1 << sizeA) - 1
	maskB  = (1 << sizeB) - 1
	maskBx = (1 << sizeBx) - 1
	maskAx = (1 << sizeAx) - 1

	maxArgSBx = maskBx >> 1
)

func ABC(op OpCode, a, b, c uint8) Instruction {
	return Instruction(op) | Instruction(a)<<posA | Instruction(b)<<posB | Instruction(c)<<posC
}

func ABx(op OpCode, a uint8, bx uint16) Instruction {
	return Instruction(op) | Instruction(a)<<posA | Instruction(bx)<<posB
}

func AsBx(op OpCode, a uint8, sbx int32) Instruction {
	return ABx(op, a, uint16(sbx+maxArgSBx))
}

func Ax(op OpCode, ax uint32) Instruction {
	return Instruction(op) | Instruction(ax)<<posA
}

func (i Instruction) Op() OpCode { return OpCode(i & maskOp) }
func (i Instruction) A() uint8   { return uint8((i >> posA) & maskA) }
func (i Instruction) B() uint8   { return uint8((i >> posB) & maskB) }
func (i Instruction) C() uint8   { return uint8((i >> posC) & maskB) }
func (i Instruction) Bx() uint16 { return uint16((i >> posB) & maskBx) }
func (i Instruction) SBx() int32 { return int32(i.Bx()) - maxArgSBx }
func (i Instruction) Ax() uint32 { return uint32((i >> posA) & maskAx) }

// Chunk is one compiled function body: its code, the constant pool it
// indexes into via Bx operands, a parallel ASTConstants pool for nodes
// OpClass/OpEvalExpr/OpExecStmt bridge to the evaluator, and a parallel
// Lines slice (one entry per instruction) so a runtime fault in the VM
// can still report a source position the way the tree-walking evaluator
// does.
type Chunk struct {
	Code         []Instruction
	Constants    []value.Value
	ASTConstants []any
	Lines        []int
	NumRegs      uint8
}

func (c *Chunk) Emit(instr Instruction, line int) int {
	c.Code = append(c.Code, instr)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

func (c *Chunk) AddConstant(v value.Value) uint16 {
	for i, k := range c.Constants {
		if sameConstant(k, v) {
			return uint16(i)
		}
	}
	c.Constants = append(c.Constants, v)
	return uint16(len(c.Constants) - 1)
}

// AddASTConstant records an AST node (an ast.Expr or ast.Stmt, or a
// *ast.ClassDecl for OpClass) for later retrieval by OpEvalExpr/OpExecStmt/
// OpClass. Unlike AddConstant, nodes are never deduplicated: pointer
// identity doesn't matter, only the index assigned here.
func (c *Chunk) AddASTConstant(node any) uint16 {
	c.ASTConstants = append(c.ASTConstants, node)
	return uint16(len(c.ASTConstants) - 1)
}

func sameConstant(a, b value.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	return value.Eq(a, b)
}

// Patch rewrites the sBx of a previously emitted jump at pos, once its
// target is known (used for if/loop/break/continue back-patching).
func (c *Chunk) Patch(pos int, target int) {
	instr := c.Code[pos]
	sbx := int32(target - pos - 1)
	c.Code[pos] = AsBx(instr.Op(), instr.A(), sbx)
}

// FunctionProto is a compiled function: its chunk plus the metadata the
// VM needs to set up a call frame (param names, nested function protos
// for OpClosure).
type FunctionProto struct {
	Name       string
	Params     []Param
	Chunk      *Chunk
	Protos     []*FunctionProto
	Async      bool
	Decorators []ast.Decorator // applied to the closure by internal/vm at OpClosure time, not compiled to opcodes
}

// Param is a compiled function parameter: a plain name (destructuring
// parameters are bound via a synthetic name plus an OpExecStmt
// bind-pattern prologue statement, not represented here), an optional
// default-value expression evaluated when a call omits the argument, and
// whether it is the trailing variadic parameter.
type Param struct {
	Name     string
	Default  ast.Expr // nil if none
	Variadic bool
}
