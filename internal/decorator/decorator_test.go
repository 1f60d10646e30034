package decorator

import "testing"

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	d := &Decorator{
		Name:    "memoize",
		Targets: map[Target]bool{TargetFunction: true},
		Fn:      func(target any, args []any) (any, error) { return target, nil },
	}
	if err := r.Register(d); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	got, err := r.Lookup("memoize", false)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if got != d {
		t.Fatalf("Lookup() returned a different decorator than registered")
	}
}

func TestRegisterDuplicateNameErrors(t *testing.T) {
	r := NewRegistry()
	d := &Decorator{Name: "once", Targets: map[Target]bool{}}
	if err := r.Register(d); err != nil {
		t.Fatalf("first Register() error: %v", err)
	}
	if err := r.Register(d); err == nil {
		t.Fatalf("expected an error re-registering the same decorator name")
	}
}

func TestLookupUnknownErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("nope", false); err == nil {
		t.Fatalf("expected an error looking up an unregistered decorator")
	}
}

func TestLookupInternalRequiresStdlibFlag(t *testing.T) {
	r := NewRegistry()
	d := &Decorator{Name: "_native", Visibility: Internal, Targets: map[Target]bool{TargetFunction: true}}
	r.Register(d)
	if _, err := r.Lookup("_native", false); err == nil {
		t.Fatalf("expected an internal decorator to be rejected from user source")
	}
	if _, err := r.Lookup("_native", true); err != nil {
		t.Fatalf("expected an internal decorator to resolve while evaluating stdlib source, got: %v", err)
	}
}

func TestValidateTargetRejectsDisallowedPosition(t *testing.T) {
	d := &Decorator{Name: "classonly", Targets: map[Target]bool{TargetClass: true}}
	if err := d.ValidateTarget(TargetClass); err != nil {
		t.Fatalf("ValidateTarget(TargetClass) error: %v", err)
	}
	if err := d.ValidateTarget(TargetFunction); err == nil {
		t.Fatalf("expected ValidateTarget(TargetFunction) to reject a class-only decorator")
	}
}

func TestApplyInvokesHandler(t *testing.T) {
	called := false
	d := &Decorator{Name: "trace", Fn: func(target any, args []any) (any, error) {
		called = true
		return target, nil
	}}
	result, err := d.Apply("fn-value", []any{1, 2})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !called {
		t.Fatalf("Apply() did not invoke the handler")
	}
	if result != "fn-value" {
		t.Fatalf("Apply() result = %v, want the wrapped target unchanged", result)
	}
}
