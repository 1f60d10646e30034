package evaluator

import (
	"fmt"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// bindPattern declares fresh bindings for pat against v in env, used by
// `let`/`const` declarations, parameters, and for-in/for-of loop
// variables.
func (ev *Evaluator) bindPattern(pat ast.Pattern, v value.Value, env *environment.Environment, constant bool) error {
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return nil
	case *ast.IdentPattern:
		return env.Declare(p.Name, v, constant)
	case *ast.ArrayPattern:
		elems, err := ev.spreadToSlice(v, p.Position)
		if err != nil {
			return err
		}
		for i, el := range p.Elements {
			if el.Rest {
				rest := append([]value.Value{}, elems[min(i, len(elems)):]...)
				return ev.bindPattern(el.Pattern, value.NewList(rest), env, constant)
			}
			var elemV value.Value = value.NullValue
			if i < len(elems) {
				elemV = elems[i]
			}
			if err := ev.bindPattern(el.Pattern, elemV, env, constant); err != nil {
				return err
			}
		}
		return nil
	case *ast.ObjectPattern:
		m, ok := v.(*value.Map)
		if !ok {
			return fmt.Errorf("cannot destructure non-map value")
		}
		seen := map[string]bool{}
		for _, prop := range p.Props {
			seen[prop.Key] = true
			fv, ok := m.Get(value.String(prop.Key))
			if !ok {
				if prop.Default != nil {
					dv, err := ev.evalExpr(prop.Default, env)
					if err != nil {
						return err
					}
					fv = dv
				} else {
					fv = value.NullValue
				}
			}
			if err := ev.bindPattern(prop.Value, fv, env, constant); err != nil {
				return err
			}
		}
		if p.Rest != "" {
			rest := value.NewMap()
			for i, k := range *m.Keys {
				if ks, ok := k.(value.String); ok && seen[string(ks)] {
					continue
				}
				rest.Set(k, (*m.Vals)[i])
			}
			return env.Declare(p.Rest, rest, constant)
		}
		return nil
	default:
		return fmt.Errorf("unsupported binding pattern %T", pat)
	}
}

// matchPattern tests whether v matches pat, binding any identifiers it
// introduces into env (always fresh declarations, since match arms get
// their own scope).
func (ev *Evaluator) matchPattern(pat ast.Pattern, v value.Value, env *environment.Environment) (bool, error) {
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return true, nil
	case *ast.IdentPattern:
		if p.Name == "_" {
			return true, nil
		}
		_ = env.Declare(p.Name, v, false)
		return true, nil
	case *ast.LiteralPattern:
		lv, err := ev.evalExpr(p.Value, env)
		if err != nil {
			return false, err
		}
		return value.Eq(lv, v), nil
	case *ast.RangePattern:
		startV, err := ev.evalExpr(p.Start, env)
		if err != nil {
			return false, err
		}
		endV, err := ev.evalExpr(p.End, env)
		if err != nil {
			return false, err
		}
		start, ok1 := asInt(startV)
		end, ok2 := asInt(endV)
		i, ok3 := asInt(v)
		if !ok1 || !ok2 || !ok3 {
			return false, nil
		}
		if p.Inclusive {
			return i >= start && i <= end, nil
		}
		return i >= start && i < end, nil
	case *ast.TypeTestPattern:
		named, ok := p.Type.(*ast.NamedType)
		matched := false
		if ok {
			if inst, isInst := v.(*Instance); isInst {
				if classVal, found := env.Get(named.Name); found {
					if cls, isClass := classVal.(*Class); isClass {
						matched = inst.Class.IsSubclassOf(cls)
					}
				}
			} else if prim, isPrim := p.Type.(*ast.PrimitiveType); isPrim {
				matched = string(v.Kind()) == prim.Name
			}
		} else if prim, isPrim := p.Type.(*ast.PrimitiveType); isPrim {
			matched = string(v.Kind()) == prim.Name
		}
		if matched && p.Binding != "" {
			_ = env.Declare(p.Binding, v, false)
		}
		return matched, nil
	case *ast.ArrayPattern:
		list, ok := v.(*value.List)
		if !ok {
			return false, nil
		}
		elems := *list.Elems
		for i, el := range p.Elements {
			if el.Rest {
				rest := append([]value.Value{}, elems[min(i, len(elems)):]...)
				ok, err := ev.matchPattern(el.Pattern, value.NewList(rest), env)
				return ok, err
			}
			if i >= len(elems) {
				return false, nil
			}
			ok, err := ev.matchPattern(el.Pattern, elems[i], env)
			if err != nil || !ok {
				return ok, err
			}
		}
		return len(elems) == len(p.Elements), nil
	case *ast.ObjectPattern:
		m, ok := v.(*value.Map)
		if !ok {
			return false, nil
		}
		for _, prop := range p.Props {
			fv, ok := m.Get(value.String(prop.Key))
			if !ok {
				return false, nil
			}
			ok2, err := ev.matchPattern(prop.Value, fv, env)
			if err != nil || !ok2 {
				return ok2, err
			}
		}
		return true, nil
	case *ast.OrPattern:
		for _, opt := range p.Options {
			ok, err := ev.matchPattern(opt, v, env)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported match pattern %T", pat)
	}
}
