package stdlib

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/module"
	"github.com/raccoon-lang/raccoon/internal/value"
)

func nativeFn(t *testing.T, ns *module.Namespace, name string) func([]value.Value) (value.Value, error) {
	t.Helper()
	n, ok := ns.Exports[name].(*value.Native)
	if !ok {
		t.Fatalf("export %q is not a *value.Native", name)
	}
	return n.Fn
}

func TestInstallRegistersEveryNamespace(t *testing.T) {
	reg := module.NewRegistry()
	Install(reg)

	for _, name := range []string{"std:fmt", "std:time", "std:crypto", "std:uuid"} {
		if _, err := reg.Load(name); err != nil {
			t.Fatalf("Load(%q) error: %v", name, err)
		}
	}
}

func TestFmtBytesOrdinalComma(t *testing.T) {
	reg := module.NewRegistry()
	Install(reg)
	ns, err := reg.Load("std:fmt")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	bytesFn := nativeFn(t, ns, "bytes")
	v, err := bytesFn([]value.Value{value.Int(1024)})
	if err != nil {
		t.Fatalf("bytes() error: %v", err)
	}
	if v.(value.String) == "" {
		t.Fatalf("bytes() returned an empty string")
	}

	ordinalFn := nativeFn(t, ns, "ordinal")
	v, err = ordinalFn([]value.Value{value.Int(1)})
	if err != nil {
		t.Fatalf("ordinal() error: %v", err)
	}
	if v != value.String("1st") {
		t.Fatalf("ordinal(1) = %v, want \"1st\"", v)
	}

	commaFn := nativeFn(t, ns, "comma")
	v, err = commaFn([]value.Value{value.Int(1234567)})
	if err != nil {
		t.Fatalf("comma() error: %v", err)
	}
	if v != value.String("1,234,567") {
		t.Fatalf("comma(1234567) = %v, want \"1,234,567\"", v)
	}
}

func TestFmtBytesRejectsNonNumericArg(t *testing.T) {
	reg := module.NewRegistry()
	Install(reg)
	ns, _ := reg.Load("std:fmt")
	bytesFn := nativeFn(t, ns, "bytes")
	if _, err := bytesFn([]value.Value{value.String("x")}); err == nil {
		t.Fatalf("expected an error passing a non-numeric argument to bytes()")
	}
}

func TestTimeNowReturnsPositiveUnixTimestamp(t *testing.T) {
	reg := module.NewRegistry()
	Install(reg)
	ns, _ := reg.Load("std:time")
	nowFn := nativeFn(t, ns, "now")
	v, err := nowFn(nil)
	if err != nil {
		t.Fatalf("now() error: %v", err)
	}
	if int64(v.(value.Int)) <= 0 {
		t.Fatalf("now() = %v, want a positive unix timestamp", v)
	}
}

func TestTimeFormatRendersLayout(t *testing.T) {
	reg := module.NewRegistry()
	Install(reg)
	ns, _ := reg.Load("std:time")
	formatFn := nativeFn(t, ns, "format")
	v, err := formatFn([]value.Value{value.String("%Y-%m-%d"), value.Int(0)})
	if err != nil {
		t.Fatalf("format() error: %v", err)
	}
	if v != value.String("1970-01-01") {
		t.Fatalf("format(\"%%Y-%%m-%%d\", 0) = %v, want \"1970-01-01\"", v)
	}
}

func TestCryptoHashIsDeterministicAndHex(t *testing.T) {
	reg := module.NewRegistry()
	Install(reg)
	ns, _ := reg.Load("std:crypto")
	hashFn := nativeFn(t, ns, "hash")
	v1, err := hashFn([]value.Value{value.String("hello")})
	if err != nil {
		t.Fatalf("hash() error: %v", err)
	}
	v2, _ := hashFn([]value.Value{value.String("hello")})
	if v1 != v2 {
		t.Fatalf("hash() should be deterministic for the same input")
	}
	v3, _ := hashFn([]value.Value{value.String("world")})
	if v1 == v3 {
		t.Fatalf("hash() of differing inputs should differ")
	}
	if len(string(v1.(value.String))) != 64 {
		t.Fatalf("blake2b-256 hex digest should be 64 characters, got %d", len(string(v1.(value.String))))
	}
}

func TestUUIDV4GeneratesDistinctValues(t *testing.T) {
	reg := module.NewRegistry()
	Install(reg)
	ns, _ := reg.Load("std:uuid")
	v4Fn := nativeFn(t, ns, "v4")
	a, err := v4Fn(nil)
	if err != nil {
		t.Fatalf("v4() error: %v", err)
	}
	b, _ := v4Fn(nil)
	if a == b {
		t.Fatalf("v4() should generate distinct values across calls")
	}
}
