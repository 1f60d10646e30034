package vm

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/compiler"
	"github.com/raccoon-lang/raccoon/internal/evaluator"
	"github.com/raccoon-lang/raccoon/internal/parser"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// runBoth executes src through both backends against independent freshly
// built evaluators and returns each result, so a test can assert they
// agree on an observable value.
func runBoth(t *testing.T, src string) (treeWalked, compiled value.Value) {
	t.Helper()
	prog, errs := parser.Parse(src, "test.rac")
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	walkEv := evaluator.New()
	tw, err := walkEv.Run(prog)
	if err != nil {
		t.Fatalf("evaluator.Run error: %v", err)
	}

	proto, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compiler.Compile error: %v", err)
	}
	vmEv := evaluator.New()
	m := New(vmEv)
	cv, err := m.Run(proto, vmEv.Globals)
	if err != nil {
		t.Fatalf("vm.Run error: %v", err)
	}
	return tw, cv
}

func TestParityArithmeticWidening(t *testing.T) {
	tw, cv := runBoth(t, `
		let a = 9223372036854775807;
		let b = a + 1;
		b;
	`)
	if tw.Kind() != value.KindBigInt {
		t.Fatalf("expected overflow to widen to bigint in the evaluator, got %s", tw.Kind())
	}
	if cv.Kind() != tw.Kind() {
		t.Fatalf("VM kind %s does not match evaluator kind %s", cv.Kind(), tw.Kind())
	}
}

func TestParityDivision(t *testing.T) {
	tw, cv := runBoth(t, `
		let x = 7 / 2;
		x;
	`)
	if tw.String() != cv.String() {
		t.Fatalf("division mismatch: evaluator=%s vm=%s", tw.String(), cv.String())
	}
}

func TestParityForOfScopeFreshness(t *testing.T) {
	src := `
		let fns = [];
		for (let x of [1, 2, 3]) {
			fns.push(fn() { return x; });
		}
		let total = 0;
		for (let f of fns) {
			total = total + f();
		}
		total;
	`
	tw, cv := runBoth(t, src)
	if tw.String() != "6" {
		t.Fatalf("expected evaluator for-of closures to capture a fresh binding per iteration, got %s", tw.String())
	}
	if cv.String() != tw.String() {
		t.Fatalf("for-of scope-freshness mismatch: evaluator=%s vm=%s", tw.String(), cv.String())
	}
}

func TestParityInheritanceWithSuper(t *testing.T) {
	src := `
		class Animal {
			fn constructor(name) {
				this.name = name;
			}
			fn speak() {
				return this.name + " makes a sound";
			}
		}
		class Dog extends Animal {
			fn speak() {
				return super.speak() + " (bark)";
			}
		}
		let d = new Dog("Rex");
		d.speak();
	`
	tw, cv := runBoth(t, src)
	if tw.String() != cv.String() {
		t.Fatalf("super dispatch mismatch: evaluator=%s vm=%s", tw.String(), cv.String())
	}
}

func TestParityTryFinallyRunsOnReturn(t *testing.T) {
	src := `
		let log = [];
		fn f() {
			try {
				log.push("try");
				return 1;
			} finally {
				log.push("finally");
			}
		}
		f();
		log[0] + "," + log[1];
	`
	tw, cv := runBoth(t, src)
	if tw.String() != "try,finally" {
		t.Fatalf("expected finally to run even on an early return, got %s", tw.String())
	}
	if cv.String() != tw.String() {
		t.Fatalf("try/finally mismatch: evaluator=%s vm=%s", tw.String(), cv.String())
	}
}

func TestParityClosureCounter(t *testing.T) {
	src := `
		fn makeCounter() {
			let n = 0;
			return fn() {
				n = n + 1;
				return n;
			};
		}
		let c = makeCounter();
		c();
		c();
		c();
	`
	tw, cv := runBoth(t, src)
	if tw.String() != "3" {
		t.Fatalf("expected closure capture to persist across calls, got %s", tw.String())
	}
	if cv.String() != tw.String() {
		t.Fatalf("closure mismatch: evaluator=%s vm=%s", tw.String(), cv.String())
	}
}

func TestParityLabeledBreak(t *testing.T) {
	src := `
		let found = -1;
		outer: for (let i = 0; i < 3; i = i + 1) {
			for (let j = 0; j < 3; j = j + 1) {
				if (i * 3 + j == 4) {
					found = i * 3 + j;
					break outer;
				}
			}
		}
		found;
	`
	tw, cv := runBoth(t, src)
	if tw.String() != "4" {
		t.Fatalf("expected labeled break to exit both loops at the target value, got %s", tw.String())
	}
	if cv.String() != tw.String() {
		t.Fatalf("labeled break mismatch: evaluator=%s vm=%s", tw.String(), cv.String())
	}
}

func TestParityVariadicAndDefaults(t *testing.T) {
	src := `
		fn sum(base = 10, ...rest) {
			let total = base;
			for (let x of rest) {
				total = total + x;
			}
			return total;
		}
		sum(1, 2, 3);
	`
	tw, cv := runBoth(t, src)
	if tw.String() != cv.String() {
		t.Fatalf("variadic/default mismatch: evaluator=%s vm=%s", tw.String(), cv.String())
	}
}

func TestVMRecursionDepthLimitThrows(t *testing.T) {
	src := `
		fn loop(n) {
			return loop(n + 1);
		}
		loop(0);
	`
	prog, errs := parser.Parse(src, "test.rac")
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	proto, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compiler.Compile error: %v", err)
	}
	ev := evaluator.New()
	m := New(ev)
	if _, err := m.Run(proto, ev.Globals); err == nil {
		t.Fatalf("expected unbounded recursion to fail with a call depth error")
	}
}
