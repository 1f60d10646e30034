package module

import (
	"strings"
	"testing"

	"github.com/raccoon-lang/raccoon/internal/value"
)

func TestLoadNativeNamespaceIsCached(t *testing.T) {
	r := NewRegistry()
	ns1, err := r.Load("std:math")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	ns2, err := r.Load("std:math")
	if err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
	if ns1 != ns2 {
		t.Fatalf("expected the second Load() to return the cached namespace")
	}
}

func TestLoadUnknownModuleWithoutFileLoaderErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Load("nonexistent"); err == nil {
		t.Fatalf("expected an error loading an unregistered module with no file loader")
	}
}

func TestLoadDelegatesToFileLoader(t *testing.T) {
	r := NewRegistry()
	r.SetFileLoader(func(path string) (map[string]value.Value, error) {
		return map[string]value.Value{"answer": value.Int(42)}, nil
	})
	ns, err := r.Load("./util.rac")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ns.Exports["answer"] != value.Int(42) {
		t.Fatalf("Exports[\"answer\"] = %v, want 42", ns.Exports["answer"])
	}
}

func TestLoadDetectsImportCycle(t *testing.T) {
	r := NewRegistry()
	r.SetFileLoader(func(path string) (map[string]value.Value, error) {
		_, err := r.Load(path)
		return nil, err
	})
	if _, err := r.Load("./self.rac"); err == nil {
		t.Fatalf("expected an import cycle error")
	} else if !strings.Contains(err.Error(), "import cycle") {
		t.Fatalf("error = %v, want an import cycle message", err)
	}
}

func TestInvalidateForcesRebuild(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.SetFileLoader(func(path string) (map[string]value.Value, error) {
		calls++
		return map[string]value.Value{"n": value.Int(calls)}, nil
	})
	ns1, _ := r.Load("./m.rac")
	if ns1.Exports["n"] != value.Int(1) {
		t.Fatalf("first load should produce n=1, got %v", ns1.Exports["n"])
	}
	r.Invalidate("./m.rac")
	ns2, _ := r.Load("./m.rac")
	if ns2.Exports["n"] != value.Int(2) {
		t.Fatalf("after Invalidate, a reload should rebuild, got n=%v", ns2.Exports["n"])
	}
}

func TestRegisterAddsCustomNativeNamespace(t *testing.T) {
	r := NewRegistry()
	r.Register("std:custom", func() (*Namespace, error) {
		return &Namespace{Name: "std:custom", Exports: map[string]any{"x": value.Int(1)}}, nil
	})
	ns, err := r.Load("std:custom")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ns.Exports["x"] != value.Int(1) {
		t.Fatalf("Exports[\"x\"] = %v, want 1", ns.Exports["x"])
	}
}

func TestRuntimeNamespaceExportsHostInfo(t *testing.T) {
	r := NewRegistry()
	ns, err := r.Load("std:runtime")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := ns.Exports["os"]; !ok {
		t.Fatalf("expected std:runtime to export 'os'")
	}
	if _, ok := ns.Exports["numCPU"]; !ok {
		t.Fatalf("expected std:runtime to export 'numCPU'")
	}
}
