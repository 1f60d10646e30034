package evaluator

import (
	"strings"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/value"
)

func (ev *Evaluator) evalAssign(n *ast.AssignExpr, env *environment.Environment) (value.Value, error) {
	if n.Op == "=" {
		v, err := ev.evalExpr(n.Value, env)
		if err != nil {
			return nil, err
		}
		if err := ev.assignTo(n.Target, v, env); err != nil {
			return nil, err
		}
		return v, nil
	}

	// Compound assignment: logical compound forms (&&=, ||=, ??=) short
	// circuit on the current value; arithmetic/bitwise compound forms
	// desugar to `target = target OP value`.
	op := strings.TrimSuffix(n.Op, "=")
	current, err := ev.evalExpr(n.Target, env)
	if err != nil {
		return nil, err
	}
	switch op {
	case "&&":
		if !value.Truthy(current) {
			return current, nil
		}
	case "||":
		if value.Truthy(current) {
			return current, nil
		}
	case "??":
		if _, isNull := current.(value.Null); !isNull {
			return current, nil
		}
	}

	rhs, err := ev.evalExpr(n.Value, env)
	if err != nil {
		return nil, err
	}

	var result value.Value
	switch op {
	case "&&", "||", "??":
		result = rhs
	default:
		result, err = ev.applyBinaryOp(op, current, rhs, n.Position)
		if err != nil {
			return nil, err
		}
	}
	if err := ev.assignTo(n.Target, result, env); err != nil {
		return nil, err
	}
	return result, nil
}

func (ev *Evaluator) assignTo(target ast.Expr, v value.Value, env *environment.Environment) error {
	switch t := target.(type) {
	case *ast.Ident:
		if err := env.Assign(t.Name, v); err != nil {
			return newThrow(rerrors.Name, t.Position, "%s", err.Error())
		}
		return nil
	case *ast.MemberExpr:
		obj, err := ev.evalExpr(t.Object, env)
		if err != nil {
			return err
		}
		if serr := ev.setMember(obj, t.Name, v); serr != nil {
			return serr
		}
		return nil
	case *ast.IndexExpr:
		obj, err := ev.evalExpr(t.Object, env)
		if err != nil {
			return err
		}
		idx, err := ev.evalExpr(t.Index, env)
		if err != nil {
			return err
		}
		return ev.setIndex(obj, idx, v)
	case *ast.ArrayLit:
		pat := arrayLitToPattern(t)
		return ev.bindOrAssignPattern(pat, v, env)
	case *ast.ObjectLit:
		pat := objectLitToPattern(t)
		return ev.bindOrAssignPattern(pat, v, env)
	default:
		return newThrow(rerrors.Type, target.Pos(), "invalid assignment target")
	}
}

// bindOrAssignPattern destructures v against pat, assigning into already
// declared bindings rather than declaring new ones (used by destructuring
// assignment expressions, as opposed to `let`/`const` destructuring
// declarations which call bindPattern instead).
func (ev *Evaluator) bindOrAssignPattern(pat ast.Pattern, v value.Value, env *environment.Environment) error {
	switch p := pat.(type) {
	case *ast.IdentPattern:
		return env.Assign(p.Name, v)
	case *ast.ArrayPattern:
		elems, err := ev.spreadToSlice(v, p.Position)
		if err != nil {
			return err
		}
		for i, el := range p.Elements {
			if el.Rest {
				rest := append([]value.Value{}, elems[min(i, len(elems)):]...)
				return ev.bindOrAssignPattern(el.Pattern, value.NewList(rest), env)
			}
			var ev2 value.Value = value.NullValue
			if i < len(elems) {
				ev2 = elems[i]
			}
			if err := ev.bindOrAssignPattern(el.Pattern, ev2, env); err != nil {
				return err
			}
		}
		return nil
	case *ast.ObjectPattern:
		m, ok := v.(*value.Map)
		if !ok {
			return rerrors.New(rerrors.Type, zeroPos, "cannot destructure non-map value")
		}
		for _, prop := range p.Props {
			fv, _ := m.Get(value.String(prop.Key))
			if err := ev.bindOrAssignPattern(prop.Value, fv, env); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func arrayLitToPattern(lit *ast.ArrayLit) ast.Pattern {
	p := &ast.ArrayPattern{Position: lit.Position}
	for _, e := range lit.Elements {
		if sp, ok := e.(*ast.SpreadExpr); ok {
			p.Elements = append(p.Elements, ast.ArrayPatternElem{Pattern: exprToPattern(sp.X), Rest: true})
			continue
		}
		p.Elements = append(p.Elements, ast.ArrayPatternElem{Pattern: exprToPattern(e)})
	}
	return p
}

func objectLitToPattern(lit *ast.ObjectLit) ast.Pattern {
	p := &ast.ObjectPattern{Position: lit.Position}
	for _, prop := range lit.Props {
		if ident, ok := prop.Key.(*ast.Ident); ok {
			p.Props = append(p.Props, ast.ObjectPatternProp{Key: ident.Name, Value: exprToPattern(prop.Value)})
		}
	}
	return p
}

func exprToPattern(e ast.Expr) ast.Pattern {
	if e == nil {
		return &ast.WildcardPattern{}
	}
	if id, ok := e.(*ast.Ident); ok {
		return &ast.IdentPattern{Position: id.Position, Name: id.Name}
	}
	return &ast.WildcardPattern{Position: e.Pos()}
}
