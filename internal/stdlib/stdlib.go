// Package stdlib wires the rest of Raccoon's domain-stack dependencies
// into native namespaces, installed into the module registry from outside
// internal/module (so internal/module never has to import an ecosystem
// library it doesn't itself need). Grounded on the teacher's
// registrar-function idiom in internal/module/module.go: a fixed export
// list of small Go functions, looked up by name, built lazily the first
// time a program imports the namespace.
package stdlib

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
	"golang.org/x/crypto/blake2b"

	"github.com/raccoon-lang/raccoon/internal/module"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// Install registers every stdlib namespace this package provides into
// reg. Called once from evaluator.New, alongside module.NewRegistry's own
// built-in std:math/std:string registration.
func Install(reg *module.Registry) {
	registerFmt(reg)
	registerTime(reg)
	registerCrypto(reg)
	registerUUID(reg)
}

func registerFmt(reg *module.Registry) {
	reg.Register("std:fmt", func() (*module.Namespace, error) {
		return &module.Namespace{
			Name: "std:fmt",
			Exports: map[string]any{
				"bytes": &value.Native{Name: "bytes", Fn: func(args []value.Value) (value.Value, error) {
					n, err := intArg(args, 0)
					if err != nil {
						return nil, err
					}
					return value.String(humanize.Bytes(uint64(n))), nil
				}},
				"ordinal": &value.Native{Name: "ordinal", Fn: func(args []value.Value) (value.Value, error) {
					n, err := intArg(args, 0)
					if err != nil {
						return nil, err
					}
					return value.String(humanize.Ordinal(int(n))), nil
				}},
				"comma": &value.Native{Name: "comma", Fn: func(args []value.Value) (value.Value, error) {
					n, err := intArg(args, 0)
					if err != nil {
						return nil, err
					}
					return value.String(humanize.Comma(n)), nil
				}},
			},
		}, nil
	})
}

func registerTime(reg *module.Registry) {
	reg.Register("std:time", func() (*module.Namespace, error) {
		return &module.Namespace{
			Name: "std:time",
			Exports: map[string]any{
				"now": &value.Native{Name: "now", Fn: func(args []value.Value) (value.Value, error) {
					return value.Int(time.Now().Unix()), nil
				}},
				// format(layout, epochSeconds) renders a strftime-style layout
				// against a unix timestamp, matching the teacher's time module
				// shape (a single free function per concern) rather than a
				// Time object with methods, since Raccoon's value model has no
				// opaque host-object kind.
				"format": &value.Native{Name: "format", Fn: func(args []value.Value) (value.Value, error) {
					layout, err := strArg(args, 0)
					if err != nil {
						return nil, err
					}
					epoch, err := intArg(args, 1)
					if err != nil {
						return nil, err
					}
					out, err := strftime.Format(layout, time.Unix(epoch, 0).UTC())
					if err != nil {
						return nil, err
					}
					return value.String(out), nil
				}},
			},
		}, nil
	})
}

func registerCrypto(reg *module.Registry) {
	reg.Register("std:crypto", func() (*module.Namespace, error) {
		return &module.Namespace{
			Name: "std:crypto",
			Exports: map[string]any{
				"hash": &value.Native{Name: "hash", Fn: func(args []value.Value) (value.Value, error) {
					s, err := strArg(args, 0)
					if err != nil {
						return nil, err
					}
					sum := blake2b.Sum256([]byte(s))
					return value.String(hexEncode(sum[:])), nil
				}},
			},
		}, nil
	})
}

func registerUUID(reg *module.Registry) {
	reg.Register("std:uuid", func() (*module.Namespace, error) {
		return &module.Namespace{
			Name: "std:uuid",
			Exports: map[string]any{
				"v4": &value.Native{Name: "v4", Fn: func(args []value.Value) (value.Value, error) {
					return value.String(uuid.NewString()), nil
				}},
			},
		}, nil
	})
}

func intArg(args []value.Value, i int) (int64, error) {
	if i >= len(args) {
		return 0, errf("missing argument %d", i)
	}
	switch x := args[i].(type) {
	case value.Int:
		return int64(x), nil
	case value.Float:
		return int64(x), nil
	default:
		return 0, errf("argument %d must be numeric, got %s", i, x.Kind())
	}
}

func strArg(args []value.Value, i int) (string, error) {
	if i >= len(args) {
		return "", errf("missing argument %d", i)
	}
	s, ok := args[i].(value.String)
	if !ok {
		return "", errf("argument %d must be a string, got %s", i, args[i].Kind())
	}
	return string(s), nil
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

func errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
