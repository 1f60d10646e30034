package environment

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/value"
)

func TestDeclareAndGet(t *testing.T) {
	env := New(nil)
	if err := env.Declare("x", value.Int(1), false); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}
	v, ok := env.Get("x")
	if !ok || v != value.Int(1) {
		t.Fatalf("Get() = %v, %v; want 1, true", v, ok)
	}
}

func TestRedeclareInSameScopeErrors(t *testing.T) {
	env := New(nil)
	env.Declare("x", value.Int(1), false)
	if err := env.Declare("x", value.Int(2), false); err == nil {
		t.Fatalf("expected an error redeclaring 'x' in the same scope")
	}
}

func TestShadowingInChildScopeIsAllowed(t *testing.T) {
	parent := New(nil)
	parent.Declare("x", value.Int(1), false)
	child := parent.Child()
	if err := child.Declare("x", value.Int(2), false); err != nil {
		t.Fatalf("shadowing in a child scope should be allowed, got: %v", err)
	}
	v, _ := child.Get("x")
	if v != value.Int(2) {
		t.Fatalf("child Get() = %v, want the shadowing binding 2", v)
	}
	v, _ = parent.Get("x")
	if v != value.Int(1) {
		t.Fatalf("parent Get() = %v, want the original binding 1", v)
	}
}

func TestGetWalksOutwardThroughEnclosingScopes(t *testing.T) {
	parent := New(nil)
	parent.Declare("y", value.Int(7), false)
	child := parent.Child()
	grandchild := child.Child()
	v, ok := grandchild.Get("y")
	if !ok || v != value.Int(7) {
		t.Fatalf("Get() from a grandchild scope = %v, %v; want 7, true", v, ok)
	}
}

func TestAssignMutatesNearestExistingBinding(t *testing.T) {
	parent := New(nil)
	parent.Declare("x", value.Int(1), false)
	child := parent.Child()
	if err := child.Assign("x", value.Int(99)); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	v, _ := parent.Get("x")
	if v != value.Int(99) {
		t.Fatalf("Assign() through a child scope did not mutate the parent binding, got %v", v)
	}
}

func TestAssignToUndeclaredNameErrors(t *testing.T) {
	env := New(nil)
	if err := env.Assign("nope", value.Int(1)); err == nil {
		t.Fatalf("expected an error assigning to an undeclared name")
	}
}

func TestAssignToConstErrors(t *testing.T) {
	env := New(nil)
	env.Declare("c", value.Int(1), true)
	if err := env.Assign("c", value.Int(2)); err == nil {
		t.Fatalf("expected an error assigning to a const binding")
	}
}

func TestHasReflectsVisibility(t *testing.T) {
	env := New(nil)
	if env.Has("x") {
		t.Fatalf("Has() should be false before declaration")
	}
	env.Declare("x", value.Int(1), false)
	if !env.Has("x") {
		t.Fatalf("Has() should be true after declaration")
	}
}

func TestParentExposesEnclosingScope(t *testing.T) {
	parent := New(nil)
	child := parent.Child()
	if child.Parent() != parent {
		t.Fatalf("Parent() did not return the scope Child() was called on")
	}
	if parent.Parent() != nil {
		t.Fatalf("the root scope's Parent() must be nil")
	}
}

func TestClosureCapturesReferenceNotCopy(t *testing.T) {
	outer := New(nil)
	outer.Declare("n", value.Int(0), false)
	captured := outer
	outer.Assign("n", value.Int(5))
	v, _ := captured.Get("n")
	if v != value.Int(5) {
		t.Fatalf("a captured *Environment should observe later mutations, got %v", v)
	}
}
