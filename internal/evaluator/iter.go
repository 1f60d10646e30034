package evaluator

import (
	rerrors "github.com/raccoon-lang/raccoon/internal/errors"
	"github.com/raccoon-lang/raccoon/internal/token"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// enumerateKeys implements for-in's key-iteration protocol: map keys,
// instance field names, or list indices.
func (ev *Evaluator) enumerateKeys(obj value.Value, pos token.Position) ([]value.Value, error) {
	switch o := obj.(type) {
	case *value.Map:
		return append([]value.Value{}, (*o.Keys)...), nil
	case *Instance:
		var keys []value.Value
		for _, f := range o.Class.AllFields() {
			keys = append(keys, value.String(f.Name))
		}
		return keys, nil
	case *value.List:
		keys := make([]value.Value, len(*o.Elems))
		for i := range *o.Elems {
			keys[i] = value.Int(i)
		}
		return keys, nil
	default:
		return nil, newThrow(rerrors.Type, pos, "value of kind %s is not enumerable with for-in", obj.Kind())
	}
}

// toIterator implements for-of's value-iteration protocol over the
// built-in collection kinds.
func (ev *Evaluator) toIterator(obj value.Value, pos token.Position) (*Iterator, error) {
	switch o := obj.(type) {
	case *value.List:
		elems := *o.Elems
		i := 0
		return &Iterator{Next: func() (value.Value, bool) {
			if i >= len(elems) {
				return nil, false
			}
			v := elems[i]
			i++
			return v, true
		}}, nil
	case value.Tuple:
		i := 0
		return &Iterator{Next: func() (value.Value, bool) {
			if i >= len(o.Elems) {
				return nil, false
			}
			v := o.Elems[i]
			i++
			return v, true
		}}, nil
	case *value.Set:
		keys := *o.Keys
		i := 0
		return &Iterator{Next: func() (value.Value, bool) {
			if i >= len(keys) {
				return nil, false
			}
			v := keys[i]
			i++
			return v, true
		}}, nil
	case *value.Map:
		keys, vals := *o.Keys, *o.Vals
		i := 0
		return &Iterator{Next: func() (value.Value, bool) {
			if i >= len(keys) {
				return nil, false
			}
			entry := value.Tuple{Elems: []value.Value{keys[i], vals[i]}}
			i++
			return entry, true
		}}, nil
	case value.String:
		runes := []rune(string(o))
		i := 0
		return &Iterator{Next: func() (value.Value, bool) {
			if i >= len(runes) {
				return nil, false
			}
			v := value.Char(runes[i])
			i++
			return v, true
		}}, nil
	case *Iterator:
		return o, nil
	default:
		return nil, newThrow(rerrors.Type, pos, "value of kind %s is not iterable", obj.Kind())
	}
}
