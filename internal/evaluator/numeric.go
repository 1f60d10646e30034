package evaluator

import (
	"math"
	"math/big"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/value"
)

func parseBigInt(s string, radix int) (*big.Int, bool) {
	n := new(big.Int)
	_, ok := n.SetString(s, radix)
	return n, ok
}

func (ev *Evaluator) evalUnary(n *ast.UnaryExpr, env *environment.Environment) (value.Value, error) {
	if n.Op == "++" || n.Op == "--" {
		return ev.evalIncDec(n, env)
	}
	v, err := ev.evalExpr(n.X, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "-":
		return negate(v, n.Position)
	case "+":
		return v, nil
	case "!":
		return value.BoolOf(!value.Truthy(v)), nil
	case "~":
		i, ok := asInt(v)
		if !ok {
			return nil, newThrow(rerrors.Type, n.Position, "'~' requires an integer operand")
		}
		return value.Int(^i), nil
	default:
		return nil, newThrow(rerrors.Internal, n.Position, "unknown unary operator '%s'", n.Op)
	}
}

func negate(v value.Value, pos any) (value.Value, error) {
	switch x := v.(type) {
	case value.Int:
		return value.Int(-x), nil
	case value.Float:
		return value.Float(-x), nil
	case value.BigInt:
		return value.BigInt{V: new(big.Int).Neg(x.V)}, nil
	default:
		return nil, newThrow(rerrors.Type, zeroPos, "unary '-' requires a numeric operand, got %s", v.Kind())
	}
}

func (ev *Evaluator) evalIncDec(n *ast.UnaryExpr, env *environment.Environment) (value.Value, error) {
	old, err := ev.evalExpr(n.X, env)
	if err != nil {
		return nil, err
	}
	delta := int64(1)
	if n.Op == "--" {
		delta = -1
	}
	var updated value.Value
	switch x := old.(type) {
	case value.Int:
		updated = value.Int(int64(x) + delta)
	case value.Float:
		updated = value.Float(float64(x) + float64(delta))
	default:
		return nil, newThrow(rerrors.Type, n.Position, "'%s' requires a numeric operand", n.Op)
	}
	if err := ev.assignTo(n.X, updated, env); err != nil {
		return nil, err
	}
	if n.Prefix {
		return updated, nil
	}
	return old, nil
}

func (ev *Evaluator) evalBinary(n *ast.BinaryExpr, env *environment.Environment) (value.Value, error) {
	left, err := ev.evalExpr(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(n.Right, env)
	if err != nil {
		return nil, err
	}
	return ev.applyBinaryOp(n.Op, left, right, n.Position)
}

// applyBinaryOp implements spec.md's numeric widening lattice
// (int < bigint < float when operands mix) plus string concatenation,
// list concatenation, and structural (in)equality.
func (ev *Evaluator) applyBinaryOp(op string, left, right value.Value, pos any) (value.Value, error) {
	switch op {
	case "==":
		return value.BoolOf(value.Eq(left, right)), nil
	case "!=":
		return value.BoolOf(!value.Eq(left, right)), nil
	}

	if op == "+" {
		if ls, ok := left.(value.String); ok {
			return value.String(string(ls) + right.String()), nil
		}
		if rs, ok := right.(value.String); ok && numericRank(left) >= 0 {
			return value.String(left.String() + string(rs)), nil
		}
		if ll, ok := left.(*value.List); ok {
			if rl, ok := right.(*value.List); ok {
				out := append(append([]value.Value{}, (*ll.Elems)...), (*rl.Elems)...)
				return value.NewList(out), nil
			}
		}
	}

	switch op {
	case "<", "<=", ">", ">=":
		return compareOp(op, left, right, pos)
	case "&&", "||":
		return nil, rerrors.New(rerrors.Internal, zeroPos, "logical operators must go through evalLogical")
	case "&", "|", "^", "<<", ">>", ">>>":
		return bitwiseOp(op, left, right, pos)
	}
	return arithmeticOp(op, left, right, pos)
}

func numericRank(v value.Value) int {
	switch v.(type) {
	case value.Int:
		return 0
	case value.BigInt:
		return 1
	case value.Float:
		return 2
	default:
		return -1
	}
}

func arithmeticOp(op string, left, right value.Value, pos any) (value.Value, error) {
	lr, rr := numericRank(left), numericRank(right)
	if lr < 0 || rr < 0 {
		return nil, newThrow(rerrors.Type, zeroPos, "operator '%s' requires numeric operands, got %s and %s", op, left.Kind(), right.Kind())
	}
	rank := lr
	if rr > rank {
		rank = rr
	}
	switch rank {
	case 0:
		li, ri := int64(left.(value.Int)), int64(right.(value.Int))
		return intArith(op, li, ri, pos)
	case 1:
		lb, rb := toBigInt(left), toBigInt(right)
		return bigArith(op, lb, rb, pos)
	default:
		lf, rf := toFloat(left), toFloat(right)
		return floatArith(op, lf, rf, pos)
	}
}

func toBigInt(v value.Value) *big.Int {
	switch x := v.(type) {
	case value.Int:
		return big.NewInt(int64(x))
	case value.BigInt:
		return x.V
	default:
		return big.NewInt(0)
	}
}

func toFloat(v value.Value) float64 {
	switch x := v.(type) {
	case value.Int:
		return float64(x)
	case value.Float:
		return float64(x)
	case value.BigInt:
		f, _ := new(big.Float).SetInt(x.V).Float64()
		return f
	default:
		return 0
	}
}

func intArith(op string, l, r int64, pos any) (value.Value, error) {
	switch op {
	case "+":
		s := l + r
		if (r > 0 && s < l) || (r < 0 && s > l) {
			return bigArith(op, big.NewInt(l), big.NewInt(r), pos)
		}
		return value.Int(s), nil
	case "-":
		d := l - r
		if (r < 0 && d < l) || (r > 0 && d > l) {
			return bigArith(op, big.NewInt(l), big.NewInt(r), pos)
		}
		return value.Int(d), nil
	case "*":
		m := l * r
		if l != 0 && (m/l != r || (l == -1 && r == math.MinInt64)) {
			return bigArith(op, big.NewInt(l), big.NewInt(r), pos)
		}
		return value.Int(m), nil
	case "/":
		if r == 0 {
			return nil, newThrow(rerrors.Arithmetic, zeroPos, "division by zero")
		}
		// True division promotes to float unless it divides evenly, matching
		// the teacher's arithmetic semantics for `/`.
		if l%r == 0 {
			return value.Int(l / r), nil
		}
		return value.Float(float64(l) / float64(r)), nil
	case "%":
		if r == 0 {
			return nil, newThrow(rerrors.Arithmetic, zeroPos, "modulo by zero")
		}
		return value.Int(l % r), nil
	case "**":
		return value.Float(math.Pow(float64(l), float64(r))), nil
	default:
		return nil, newThrow(rerrors.Internal, zeroPos, "unknown arithmetic operator '%s'", op)
	}
}

func bigArith(op string, l, r *big.Int, pos any) (value.Value, error) {
	out := new(big.Int)
	switch op {
	case "+":
		out.Add(l, r)
	case "-":
		out.Sub(l, r)
	case "*":
		out.Mul(l, r)
	case "/":
		if r.Sign() == 0 {
			return nil, newThrow(rerrors.Arithmetic, zeroPos, "division by zero")
		}
		out.Quo(l, r)
	case "%":
		if r.Sign() == 0 {
			return nil, newThrow(rerrors.Arithmetic, zeroPos, "modulo by zero")
		}
		out.Rem(l, r)
	case "**":
		out.Exp(l, r, nil)
	default:
		return nil, newThrow(rerrors.Internal, zeroPos, "unknown arithmetic operator '%s'", op)
	}
	return value.BigInt{V: out}, nil
}

func floatArith(op string, l, r float64, pos any) (value.Value, error) {
	switch op {
	case "+":
		return value.Float(l + r), nil
	case "-":
		return value.Float(l - r), nil
	case "*":
		return value.Float(l * r), nil
	case "/":
		return value.Float(l / r), nil
	case "%":
		return value.Float(math.Mod(l, r)), nil
	case "**":
		return value.Float(math.Pow(l, r)), nil
	default:
		return nil, newThrow(rerrors.Internal, zeroPos, "unknown arithmetic operator '%s'", op)
	}
}

func compareOp(op string, left, right value.Value, pos any) (value.Value, error) {
	if ls, ok := left.(value.String); ok {
		rs, ok := right.(value.String)
		if !ok {
			return nil, newThrow(rerrors.Type, zeroPos, "cannot compare string to %s", right.Kind())
		}
		return value.BoolOf(compareOrdered(op, string(ls) < string(rs), ls == rs)), nil
	}
	lr, rr := numericRank(left), numericRank(right)
	if lr < 0 || rr < 0 {
		return nil, newThrow(rerrors.Type, zeroPos, "operator '%s' requires comparable operands, got %s and %s", op, left.Kind(), right.Kind())
	}
	lf, rf := toFloat(left), toFloat(right)
	return value.BoolOf(compareOrdered(op, lf < rf, lf == rf)), nil
}

func compareOrdered(op string, less, eq bool) bool {
	switch op {
	case "<":
		return less
	case "<=":
		return less || eq
	case ">":
		return !less && !eq
	case ">=":
		return !less
	default:
		return false
	}
}

func bitwiseOp(op string, left, right value.Value, pos any) (value.Value, error) {
	li, ok1 := asInt(left)
	ri, ok2 := asInt(right)
	if !ok1 || !ok2 {
		return nil, newThrow(rerrors.Type, zeroPos, "operator '%s' requires integer operands", op)
	}
	switch op {
	case "&":
		return value.Int(li & ri), nil
	case "|":
		return value.Int(li | ri), nil
	case "^":
		return value.Int(li ^ ri), nil
	case "<<":
		return value.Int(li << uint(ri)), nil
	case ">>":
		return value.Int(li >> uint(ri)), nil
	case ">>>":
		return value.Int(int64(uint64(li) >> uint(ri))), nil
	default:
		return nil, newThrow(rerrors.Internal, zeroPos, "unknown bitwise operator '%s'", op)
	}
}

func (ev *Evaluator) evalLogical(n *ast.LogicalExpr, env *environment.Environment) (value.Value, error) {
	left, err := ev.evalExpr(n.Left, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "&&":
		if !value.Truthy(left) {
			return left, nil
		}
		return ev.evalExpr(n.Right, env)
	case "||":
		if value.Truthy(left) {
			return left, nil
		}
		return ev.evalExpr(n.Right, env)
	case "??":
		if _, isNull := left.(value.Null); !isNull {
			return left, nil
		}
		return ev.evalExpr(n.Right, env)
	default:
		return nil, newThrow(rerrors.Internal, n.Position, "unknown logical operator '%s'", n.Op)
	}
}
