package module

import (
	"fmt"
	"math"
	"strings"

	"github.com/raccoon-lang/raccoon/internal/value"
)

// registerMath and registerStringLib wire up the "std:math"/"std:string"
// namespaces the same way the teacher's module loader built its built-in
// "math"/"string" modules: a fixed export list backed by small Go
// functions, looked up by name. Unlike the teacher (which filtered a
// flat global stdlib map by name per-module), each export here is its own
// closure, since there's no longer a single global native-function table
// to filter.
func registerMath(r *Registry) {
	r.Register("std:math", func() (*Namespace, error) {
		unary := func(f func(float64) float64) *value.Native {
			return &value.Native{Fn: func(args []value.Value) (value.Value, error) {
				x, err := floatArg(args, 0)
				if err != nil {
					return nil, err
				}
				return value.Float(f(x)), nil
			}}
		}
		return &Namespace{
			Name: "std:math",
			Exports: map[string]any{
				"PI":    value.Float(math.Pi),
				"E":     value.Float(math.E),
				"TAU":   value.Float(2 * math.Pi),
				"abs":   &value.Native{Fn: mathAbs},
				"floor": unary(math.Floor),
				"ceil":  unary(math.Ceil),
				"round": unary(math.Round),
				"sqrt":  unary(math.Sqrt),
				"sin":   unary(math.Sin),
				"cos":   unary(math.Cos),
				"tan":   unary(math.Tan),
				"pow":   &value.Native{Fn: mathPow},
				"min":   &value.Native{Fn: mathMin},
				"max":   &value.Native{Fn: mathMax},
			},
		}, nil
	})
}

func floatArg(args []value.Value, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch x := args[i].(type) {
	case value.Int:
		return float64(x), nil
	case value.Float:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("argument %d must be numeric, got %s", i, x.Kind())
	}
}

func mathAbs(args []value.Value) (value.Value, error) {
	if i, ok := args[0].(value.Int); ok {
		if i < 0 {
			return -i, nil
		}
		return i, nil
	}
	f, err := floatArg(args, 0)
	if err != nil {
		return nil, err
	}
	return value.Float(math.Abs(f)), nil
}

func mathPow(args []value.Value) (value.Value, error) {
	base, err := floatArg(args, 0)
	if err != nil {
		return nil, err
	}
	exp, err := floatArg(args, 1)
	if err != nil {
		return nil, err
	}
	return value.Float(math.Pow(base, exp)), nil
}

func mathMin(args []value.Value) (value.Value, error) {
	return reduceFloat(args, math.Min)
}

func mathMax(args []value.Value) (value.Value, error) {
	return reduceFloat(args, math.Max)
}

func reduceFloat(args []value.Value, op func(a, b float64) float64) (value.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expects at least one argument")
	}
	best, err := floatArg(args, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i++ {
		f, err := floatArg(args, i)
		if err != nil {
			return nil, err
		}
		best = op(best, f)
	}
	return value.Float(best), nil
}

func registerStringLib(r *Registry) {
	r.Register("std:string", func() (*Namespace, error) {
		return &Namespace{
			Name: "std:string",
			Exports: map[string]any{
				"upper":      &value.Native{Fn: wrapStrStr(strings.ToUpper)},
				"lower":      &value.Native{Fn: wrapStrStr(strings.ToLower)},
				"trim":       &value.Native{Fn: wrapStrStr(strings.TrimSpace)},
				"split":      &value.Native{Fn: strSplit},
				"join":       &value.Native{Fn: strJoin},
				"contains":   &value.Native{Fn: strPredicate(strings.Contains)},
				"startsWith": &value.Native{Fn: strPredicate(strings.HasPrefix)},
				"endsWith":   &value.Native{Fn: strPredicate(strings.HasSuffix)},
				"replace":    &value.Native{Fn: strReplace},
			},
		}, nil
	})
}

func strArg(args []value.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	s, ok := args[i].(value.String)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string, got %s", i, args[i].Kind())
	}
	return string(s), nil
}

func wrapStrStr(f func(string) string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		s, err := strArg(args, 0)
		if err != nil {
			return nil, err
		}
		return value.String(f(s)), nil
	}
}

func strPredicate(f func(s, substr string) bool) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		s, err := strArg(args, 0)
		if err != nil {
			return nil, err
		}
		sub, err := strArg(args, 1)
		if err != nil {
			return nil, err
		}
		return value.BoolOf(f(s, sub)), nil
	}
}

func strSplit(args []value.Value) (value.Value, error) {
	s, err := strArg(args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := strArg(args, 1)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.String(p)
	}
	return value.NewList(out), nil
}

func strJoin(args []value.Value) (value.Value, error) {
	list, ok := args[0].(*value.List)
	if !ok {
		return nil, fmt.Errorf("join expects a list as its first argument")
	}
	sep, err := strArg(args, 1)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(*list.Elems))
	for i, e := range *list.Elems {
		parts[i] = e.String()
	}
	return value.String(strings.Join(parts, sep)), nil
}

func strReplace(args []value.Value) (value.Value, error) {
	s, err := strArg(args, 0)
	if err != nil {
		return nil, err
	}
	old, err := strArg(args, 1)
	if err != nil {
		return nil, err
	}
	new, err := strArg(args, 2)
	if err != nil {
		return nil, err
	}
	return value.String(strings.ReplaceAll(s, old, new)), nil
}
