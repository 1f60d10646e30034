package evaluator

import (
	"strconv"
	"strings"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/token"
	"github.com/raccoon-lang/raccoon/internal/value"
)

func (ev *Evaluator) evalExpr(e ast.Expr, env *environment.Environment) (value.Value, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return ev.evalIntLit(n)
	case *ast.BigIntLit:
		return ev.evalBigIntLit(n)
	case *ast.FloatLit:
		return value.Float(n.Value), nil
	case *ast.StringLit:
		return value.String(n.Value), nil
	case *ast.BoolLit:
		return value.BoolOf(n.Value), nil
	case *ast.NullLit:
		return value.NullValue, nil
	case *ast.TemplateLit:
		return ev.evalTemplate(n, env)
	case *ast.Ident:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, newThrow(rerrors.Name, n.Position, "'%s' is not defined", n.Name)
		}
		return v, nil
	case *ast.ThisExpr:
		v, ok := env.Get("this")
		if !ok {
			return nil, newThrow(rerrors.Name, n.Position, "'this' is not available here")
		}
		return v, nil
	case *ast.ArrayLit:
		return ev.evalArrayLit(n, env)
	case *ast.ObjectLit:
		return ev.evalObjectLit(n, env)
	case *ast.FuncExpr:
		return ev.evalFuncExpr(n, env), nil
	case *ast.ClassExpr:
		return ev.evalClassDecl(n.Decl, env)
	case *ast.NewExpr:
		return ev.evalNew(n, env)
	case *ast.CallExpr:
		return ev.evalCall(n, env)
	case *ast.MemberExpr:
		return ev.evalMember(n, env)
	case *ast.IndexExpr:
		return ev.evalIndex(n, env)
	case *ast.UnaryExpr:
		return ev.evalUnary(n, env)
	case *ast.BinaryExpr:
		return ev.evalBinary(n, env)
	case *ast.LogicalExpr:
		return ev.evalLogical(n, env)
	case *ast.AssignExpr:
		return ev.evalAssign(n, env)
	case *ast.TernaryExpr:
		cond, err := ev.evalExpr(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if value.Truthy(cond) {
			return ev.evalExpr(n.Then, env)
		}
		return ev.evalExpr(n.Else, env)
	case *ast.RangeExpr:
		return ev.evalRange(n, env)
	case *ast.AwaitExpr:
		return ev.evalAwait(n, env)
	case *ast.TypeofExpr:
		v, err := ev.evalExpr(n.X, env)
		if err != nil {
			return nil, err
		}
		return &TypeObject{Name: string(v.Kind())}, nil
	case *ast.InstanceofExpr:
		return ev.evalInstanceof(n, env)
	case *ast.InExpr:
		return ev.evalIn(n, env)
	case *ast.DeleteExpr:
		return ev.evalDelete(n, env)
	case *ast.NullAssertExpr:
		v, err := ev.evalExpr(n.X, env)
		if err != nil {
			return nil, err
		}
		if _, isNull := v.(value.Null); isNull {
			return nil, newThrow(rerrors.NullAssert, n.Position, "asserted value was null")
		}
		return v, nil
	case *ast.MatchExpr:
		return ev.evalMatch(n, env)
	case *ast.SuperExpr:
		return nil, newThrow(rerrors.Internal, n.Position, "'super' may only be used in a call or member expression")
	case *ast.SpreadExpr:
		return ev.evalExpr(n.X, env)
	default:
		return nil, newThrow(rerrors.Internal, e.Pos(), "unhandled expression %T", e)
	}
}

func (ev *Evaluator) evalIntLit(n *ast.IntLit) (value.Value, error) {
	i, err := strconv.ParseInt(stripUnderscores(n.Raw), n.Radix, 64)
	if err != nil {
		// Falls back to float for out-of-int64-range integer literals rather
		// than failing the whole parse at lex time.
		f, ferr := strconv.ParseFloat(stripUnderscores(n.Raw), 64)
		if ferr == nil {
			return value.Float(f), nil
		}
		return nil, newThrow(rerrors.Parse, n.Position, "invalid integer literal '%s'", n.Raw)
	}
	return value.Int(i), nil
}

func (ev *Evaluator) evalBigIntLit(n *ast.BigIntLit) (value.Value, error) {
	bi, ok := parseBigInt(stripUnderscores(n.Raw), n.Radix)
	if !ok {
		return nil, newThrow(rerrors.Parse, n.Position, "invalid bigint literal '%s'", n.Raw)
	}
	return value.BigInt{V: bi}, nil
}

func stripUnderscores(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' && s[i] != 'n' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func (ev *Evaluator) evalTemplate(n *ast.TemplateLit, env *environment.Environment) (value.Value, error) {
	var b strings.Builder
	b.WriteString(n.Quasis[0])
	for i, expr := range n.Exprs {
		v, err := ev.evalExpr(expr, env)
		if err != nil {
			return nil, err
		}
		b.WriteString(v.String())
		b.WriteString(n.Quasis[i+1])
	}
	return value.String(b.String()), nil
}

func (ev *Evaluator) evalArrayLit(n *ast.ArrayLit, env *environment.Environment) (value.Value, error) {
	var elems []value.Value
	for _, e := range n.Elements {
		if sp, ok := e.(*ast.SpreadExpr); ok {
			v, err := ev.evalExpr(sp.X, env)
			if err != nil {
				return nil, err
			}
			items, err := ev.spreadToSlice(v, sp.Pos())
			if err != nil {
				return nil, err
			}
			elems = append(elems, items...)
			continue
		}
		v, err := ev.evalExpr(e, env)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return value.NewList(elems), nil
}

func (ev *Evaluator) spreadToSlice(v value.Value, pos token.Position) ([]value.Value, error) {
	switch x := v.(type) {
	case *value.List:
		return append([]value.Value{}, (*x.Elems)...), nil
	case value.Tuple:
		return append([]value.Value{}, x.Elems...), nil
	case *value.Set:
		return append([]value.Value{}, (*x.Keys)...), nil
	case value.String:
		var out []value.Value
		for _, r := range string(x) {
			out = append(out, value.Char(r))
		}
		return out, nil
	default:
		return nil, newThrow(rerrors.Type, pos, "value of kind %s is not spreadable", v.Kind())
	}
}

func (ev *Evaluator) evalObjectLit(n *ast.ObjectLit, env *environment.Environment) (value.Value, error) {
	m := value.NewMap()
	for _, prop := range n.Props {
		if prop.Spread {
			v, err := ev.evalExpr(prop.Value, env)
			if err != nil {
				return nil, err
			}
			if src, ok := v.(*value.Map); ok {
				for i, k := range *src.Keys {
					m.Set(k, (*src.Vals)[i])
				}
			}
			continue
		}
		key, err := ev.objectKey(prop, env)
		if err != nil {
			return nil, err
		}
		var val value.Value
		if prop.Value != nil {
			val, err = ev.evalExpr(prop.Value, env)
			if err != nil {
				return nil, err
			}
		} else if ident, ok := prop.Key.(*ast.Ident); ok {
			val, ok = env.Get(ident.Name)
			if !ok {
				return nil, newThrow(rerrors.Name, prop.Position, "'%s' is not defined", ident.Name)
			}
		}
		m.Set(key, val)
	}
	return m, nil
}

func (ev *Evaluator) objectKey(prop ast.ObjectProp, env *environment.Environment) (value.Value, error) {
	if prop.Computed {
		return ev.evalExpr(prop.Key, env)
	}
	switch k := prop.Key.(type) {
	case *ast.Ident:
		return value.String(k.Name), nil
	case *ast.StringLit:
		return value.String(k.Value), nil
	default:
		return ev.evalExpr(prop.Key, env)
	}
}

func (ev *Evaluator) evalFuncExpr(n *ast.FuncExpr, env *environment.Environment) value.Value {
	if n.Arrow {
		return ev.makeFunction(n.Name, n.Params, n.Body, n.Expr, env, n.Async)
	}
	return ev.makeFunction(n.Name, n.Params, n.Body, nil, env, n.Async)
}

func (ev *Evaluator) makeFunction(name string, params []ast.Param, body *ast.BlockStmt, expr ast.Expr, env *environment.Environment, async bool) *Function {
	return &Function{Name: name, Params: params, Body: body, Expr: expr, Closure: env, Async: async}
}

func (ev *Evaluator) evalRange(n *ast.RangeExpr, env *environment.Environment) (value.Value, error) {
	startV, err := ev.evalExpr(n.Start, env)
	if err != nil {
		return nil, err
	}
	endV, err := ev.evalExpr(n.End, env)
	if err != nil {
		return nil, err
	}
	start, ok1 := asInt(startV)
	end, ok2 := asInt(endV)
	if !ok1 || !ok2 {
		return nil, newThrow(rerrors.Type, n.Position, "range bounds must be integers")
	}
	var elems []value.Value
	if n.Inclusive {
		for i := start; i <= end; i++ {
			elems = append(elems, value.Int(i))
		}
	} else {
		for i := start; i < end; i++ {
			elems = append(elems, value.Int(i))
		}
	}
	return value.NewList(elems), nil
}

func asInt(v value.Value) (int64, bool) {
	switch x := v.(type) {
	case value.Int:
		return int64(x), true
	case value.Float:
		return int64(x), true
	default:
		return 0, false
	}
}

func (ev *Evaluator) evalAwait(n *ast.AwaitExpr, env *environment.Environment) (value.Value, error) {
	v, err := ev.evalExpr(n.X, env)
	if err != nil {
		return nil, err
	}
	fut, ok := v.(Awaitable)
	if !ok {
		// Awaiting a non-future value resolves immediately to that value,
		// matching the usual "await is a no-op on non-promises" rule.
		return v, nil
	}
	ev.Scheduler.Drain()
	res, errVal, state := fut.Settled()
	if state == AwaitRejected {
		return nil, throwSignal{val: errVal, err: rerrors.New(rerrors.Exception, n.Position, "%s", value.Repr(errVal))}
	}
	return res, nil
}

func (ev *Evaluator) evalInstanceof(n *ast.InstanceofExpr, env *environment.Environment) (value.Value, error) {
	v, err := ev.evalExpr(n.X, env)
	if err != nil {
		return nil, err
	}
	named, ok := n.Type.(*ast.NamedType)
	if !ok {
		return value.False, nil
	}
	inst, ok := v.(*Instance)
	if !ok {
		return value.False, nil
	}
	classVal, ok := env.Get(named.Name)
	if !ok {
		return value.False, nil
	}
	cls, ok := classVal.(*Class)
	if !ok {
		return value.False, nil
	}
	return value.BoolOf(inst.Class.IsSubclassOf(cls)), nil
}

func (ev *Evaluator) evalIn(n *ast.InExpr, env *environment.Environment) (value.Value, error) {
	key, err := ev.evalExpr(n.Key, env)
	if err != nil {
		return nil, err
	}
	obj, err := ev.evalExpr(n.Object, env)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case *value.Map:
		_, ok := o.Get(key)
		return value.BoolOf(ok), nil
	case *value.Set:
		return value.BoolOf(o.Has(key)), nil
	case *Instance:
		if s, ok := key.(value.String); ok {
			_, has := o.Fields[string(s)]
			return value.BoolOf(has), nil
		}
	}
	return value.False, nil
}

func (ev *Evaluator) evalDelete(n *ast.DeleteExpr, env *environment.Environment) (value.Value, error) {
	switch x := n.X.(type) {
	case *ast.IndexExpr:
		obj, err := ev.evalExpr(x.Object, env)
		if err != nil {
			return nil, err
		}
		idx, err := ev.evalExpr(x.Index, env)
		if err != nil {
			return nil, err
		}
		switch o := obj.(type) {
		case *value.Map:
			return value.BoolOf(o.Delete(idx)), nil
		case *value.Set:
			return value.BoolOf(o.Delete(idx)), nil
		}
		return value.False, nil
	case *ast.MemberExpr:
		obj, err := ev.evalExpr(x.Object, env)
		if err != nil {
			return nil, err
		}
		if inst, ok := obj.(*Instance); ok {
			if _, has := inst.Fields[x.Name]; has {
				delete(inst.Fields, x.Name)
				return value.True, nil
			}
		}
		return value.False, nil
	default:
		return nil, newThrow(rerrors.Type, n.Position, "invalid delete target")
	}
}

func (ev *Evaluator) evalMatch(n *ast.MatchExpr, env *environment.Environment) (value.Value, error) {
	subject, err := ev.evalExpr(n.Subject, env)
	if err != nil {
		return nil, err
	}
	for _, arm := range n.Arms {
		armEnv := environment.New(env)
		ok, err := ev.matchPattern(arm.Pattern, subject, armEnv)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if arm.Guard != nil {
			g, err := ev.evalExpr(arm.Guard, armEnv)
			if err != nil {
				return nil, err
			}
			if !value.Truthy(g) {
				continue
			}
		}
		return ev.evalExpr(arm.Value, armEnv)
	}
	return nil, newThrow(rerrors.Internal, n.Position, "match expression had no matching arm")
}
