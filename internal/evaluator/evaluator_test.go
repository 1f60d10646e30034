package evaluator

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/parser"
	"github.com/raccoon-lang/raccoon/internal/value"
)

func run(t *testing.T, src string) value.Value {
	t.Helper()
	prog, errs := parser.Parse(src, "test.rac")
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	v, err := New().Run(prog)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return v
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	prog, errs := parser.Parse(src, "test.rac")
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	_, err := New().Run(prog)
	return err
}

func TestArithmeticWideningToBigIntOnOverflow(t *testing.T) {
	v := run(t, `
		let a = 9223372036854775807;
		a + 1;
	`)
	if v.Kind() != value.KindBigInt {
		t.Fatalf("expected overflow to widen to bigint, got %s (%s)", v.Kind(), v.String())
	}
}

func TestIntegerDivisionPromotesToFloatUnlessExact(t *testing.T) {
	if v := run(t, "7 / 2;"); v.String() != "3.5" {
		t.Fatalf("7 / 2 = %s, want 3.5", v.String())
	}
	if v := run(t, "6 / 2;"); v.String() != "3" {
		t.Fatalf("6 / 2 = %s, want 3", v.String())
	}
}

func TestDivisionByZeroThrowsArithmeticError(t *testing.T) {
	if err := runErr(t, "1 / 0;"); err == nil {
		t.Fatalf("expected division by zero to throw")
	}
}

func TestStringConcatenation(t *testing.T) {
	v := run(t, `"foo" + "bar";`)
	if v != value.String("foobar") {
		t.Fatalf("concat = %v, want foobar", v)
	}
}

func TestListConcatenation(t *testing.T) {
	v := run(t, `[1, 2] + [3, 4];`)
	if v.String() != "[1, 2, 3, 4]" {
		t.Fatalf("list concat = %s", v.String())
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	if v := run(t, "false && (1 / 0);"); v != value.False {
		t.Fatalf("expected && to short-circuit without evaluating the right side")
	}
	if v := run(t, "true || (1 / 0);"); v != value.True {
		t.Fatalf("expected || to short-circuit without evaluating the right side")
	}
}

func TestNullishCoalescing(t *testing.T) {
	if v := run(t, "null ?? 5;"); v != value.Int(5) {
		t.Fatalf("null ?? 5 = %v, want 5", v)
	}
	if v := run(t, "0 ?? 5;"); v != value.Int(0) {
		t.Fatalf("0 ?? 5 = %v, want 0 (only null/undefined should fall through)", v)
	}
}

func TestTernaryExpression(t *testing.T) {
	v := run(t, `true ? "yes" : "no";`)
	if v != value.String("yes") {
		t.Fatalf("ternary = %v, want yes", v)
	}
}

func TestTemplateLiteralInterpolation(t *testing.T) {
	v := run(t, `
		let name = "world";
		` + "`hello ${name}!`" + `;
	`)
	if v != value.String("hello world!") {
		t.Fatalf("template = %v, want \"hello world!\"", v)
	}
}

func TestArrayLiteralWithSpread(t *testing.T) {
	v := run(t, `
		let a = [1, 2];
		[0, ...a, 3];
	`)
	if v.String() != "[0, 1, 2, 3]" {
		t.Fatalf("spread array = %s", v.String())
	}
}

func TestObjectLiteralWithSpreadAndShorthand(t *testing.T) {
	v := run(t, `
		let x = 1;
		let base = {a: 1};
		let merged = {...base, x, b: 2};
		merged;
	`)
	m, ok := v.(*value.Map)
	if !ok {
		t.Fatalf("expected a map, got %T", v)
	}
	if m.Len() != 3 {
		t.Fatalf("merged object should have 3 keys, got %d", m.Len())
	}
	if got, _ := m.Get(value.String("x")); got != value.Int(1) {
		t.Fatalf("merged.x = %v, want 1", got)
	}
}

func TestArrayDestructuringDeclarationWithRest(t *testing.T) {
	v := run(t, `
		let [a, b, ...rest] = [1, 2, 3, 4];
		rest;
	`)
	if v.String() != "[3, 4]" {
		t.Fatalf("rest = %s, want [3, 4]", v.String())
	}
}

func TestObjectDestructuringDeclarationWithDefault(t *testing.T) {
	v := run(t, `
		let {a, b = 10} = {a: 1};
		a + b;
	`)
	if v != value.Int(11) {
		t.Fatalf("a + b = %v, want 11", v)
	}
}

func TestDestructuringAssignmentReusesExistingBindings(t *testing.T) {
	v := run(t, `
		let a = 0;
		let b = 0;
		[a, b] = [5, 6];
		a + b;
	`)
	if v != value.Int(11) {
		t.Fatalf("a + b after destructuring assignment = %v, want 11", v)
	}
}

func TestClassFieldsMethodsAndGetterSetter(t *testing.T) {
	v := run(t, `
		class Box {
			value = 0;
			fn constructor(v) {
				this.value = v;
			}
			get doubled() {
				return this.value * 2;
			}
			set doubled(v) {
				this.value = v / 2;
			}
			fn describe() {
				return "box(" + this.value + ")";
			}
		}
		let b = new Box(3);
		b.doubled = 10;
		b.describe();
	`)
	if v != value.String("box(5)") {
		t.Fatalf("describe() = %v, want box(5)", v)
	}
}

func TestClassInheritanceWithSuperConstructorAndMethod(t *testing.T) {
	v := run(t, `
		class Animal {
			fn constructor(name) {
				this.name = name;
			}
			fn speak() {
				return this.name + " makes a sound";
			}
		}
		class Dog extends Animal {
			fn constructor(name) {
				super(name);
			}
			fn speak() {
				return super.speak() + " (bark)";
			}
		}
		let d = new Dog("Rex");
		d.speak();
	`)
	if v != value.String("Rex makes a sound (bark)") {
		t.Fatalf("speak() = %v", v)
	}
}

func TestInstanceofRespectsInheritanceChain(t *testing.T) {
	v := run(t, `
		class Animal {}
		class Dog extends Animal {}
		let d = new Dog();
		d instanceof Animal;
	`)
	if v != value.True {
		t.Fatalf("expected a Dog instance to be instanceof Animal")
	}
}

func TestClosureCapturesSharedMutableState(t *testing.T) {
	v := run(t, `
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
	`)
	if v != value.Int(3) {
		t.Fatalf("counter = %v, want 3", v)
	}
}

func TestForOfFreshBindingPerIteration(t *testing.T) {
	v := run(t, `
		let fns = [];
		for (let x of [1, 2, 3]) {
			fns.push(fn() { return x; });
		}
		let total = 0;
		for (let f of fns) {
			total = total + f();
		}
		total;
	`)
	if v != value.Int(6) {
		t.Fatalf("total = %v, want 6 (1+2+3)", v)
	}
}

func TestForInIteratesMapKeys(t *testing.T) {
	v := run(t, `
		let m = {a: 1, b: 2};
		let keys = [];
		for (let k in m) {
			keys.push(k);
		}
		keys;
	`)
	if v.String() != `["a", "b"]` {
		t.Fatalf("keys = %s, want [\"a\", \"b\"]", v.String())
	}
}

func TestLabeledBreakExitsOuterLoop(t *testing.T) {
	v := run(t, `
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
	`)
	if v != value.Int(4) {
		t.Fatalf("found = %v, want 4", v)
	}
}

func TestLabeledContinueSkipsOuterIteration(t *testing.T) {
	v := run(t, `
		let out = [];
		outer: for (let i = 0; i < 3; i = i + 1) {
			for (let j = 0; j < 3; j = j + 1) {
				if (j == 1) {
					continue outer;
				}
				out.push(i * 10 + j);
			}
		}
		out;
	`)
	if v.String() != "[0, 10, 20]" {
		t.Fatalf("out = %s, want [0, 10, 20]", v.String())
	}
}

func TestDoWhileRunsBodyAtLeastOnce(t *testing.T) {
	v := run(t, `
		let n = 0;
		do {
			n = n + 1;
		} while (false);
		n;
	`)
	if v != value.Int(1) {
		t.Fatalf("n = %v, want 1", v)
	}
}

func TestTryCatchBindsThrownValue(t *testing.T) {
	v := run(t, `
		let result = "none";
		try {
			throw "boom";
		} catch (e) {
			result = "caught: " + e;
		}
		result;
	`)
	if v != value.String("caught: boom") {
		t.Fatalf("result = %v", v)
	}
}

func TestFinallyRunsEvenOnEarlyReturn(t *testing.T) {
	v := run(t, `
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
		log;
	`)
	if v.String() != `["try", "finally"]` {
		t.Fatalf("log = %s", v.String())
	}
}

func TestUncaughtThrowPropagatesAsRunError(t *testing.T) {
	if err := runErr(t, `throw "bad";`); err == nil {
		t.Fatalf("expected an uncaught throw to surface as a Run() error")
	}
}

func TestMatchExpressionSelectsFirstMatchingArmWithGuard(t *testing.T) {
	v := run(t, `
		fn classify(n) {
			return match (n) {
				0 => "zero",
				x if (x < 0) => "negative",
				_ => "positive",
			};
		}
		classify(0) + "," + classify(-5) + "," + classify(7);
	`)
	if v != value.String("zero,negative,positive") {
		t.Fatalf("classify results = %v", v)
	}
}

func TestMatchArrayPatternWithRest(t *testing.T) {
	v := run(t, `
		match ([1, 2, 3]) {
			[first, ...rest] => first + rest[0],
			_ => -1,
		};
	`)
	if v != value.Int(3) {
		t.Fatalf("match result = %v, want 3", v)
	}
}

func TestTypeofReturnsKindName(t *testing.T) {
	v := run(t, `typeof "s";`)
	if v.String() != "string" {
		t.Fatalf("typeof \"s\" = %s, want string", v.String())
	}
}

func TestInOperatorOverMap(t *testing.T) {
	v := run(t, `
		let m = {a: 1};
		"a" in m;
	`)
	if v != value.True {
		t.Fatalf("'a' in m should be true")
	}
}

func TestDeleteRemovesMapEntry(t *testing.T) {
	v := run(t, `
		let m = {a: 1, b: 2};
		delete m["a"];
		"a" in m;
	`)
	if v != value.False {
		t.Fatalf("expected 'a' to be gone after delete")
	}
}

func TestOptionalChainingShortCircuitsOnNull(t *testing.T) {
	v := run(t, `
		let obj = null;
		obj?.field;
	`)
	if v != value.NullValue {
		t.Fatalf("optional member access on null should yield null, got %v", v)
	}
}

func TestOptionalChainingShortCircuitsWholeChain(t *testing.T) {
	v := run(t, `
		let a = null;
		a?.b.c;
	`)
	if v != value.NullValue {
		t.Fatalf("a?.b.c with a null should short-circuit the whole chain to null, got %v", v)
	}
	v = run(t, `
		let a = null;
		a?.[0].b;
	`)
	if v != value.NullValue {
		t.Fatalf("a?.[0].b with a null should short-circuit the whole chain to null, got %v", v)
	}
	v = run(t, `
		let a = null;
		a?.b();
	`)
	if v != value.NullValue {
		t.Fatalf("a?.b() with a null should short-circuit the whole chain to null, got %v", v)
	}
}

func TestNullAssertThrowsOnNull(t *testing.T) {
	if err := runErr(t, "let x = null; x!;"); err == nil {
		t.Fatalf("expected null-assert on a null value to throw")
	}
}

func TestVariadicAndDefaultParameterBinding(t *testing.T) {
	v := run(t, `
		fn sum(base = 10, ...rest) {
			let total = base;
			for (let x of rest) {
				total = total + x;
			}
			return total;
		}
		sum(1, 2, 3);
	`)
	if v != value.Int(6) {
		t.Fatalf("sum(1, 2, 3) = %v, want 6", v)
	}
}

func TestNamedArgumentsMatchByNameRegardlessOfPosition(t *testing.T) {
	v := run(t, `
		fn describe(name, age) {
			return name + " is " + age;
		}
		describe(age: 30, name: "Ada");
	`)
	if v != value.String("Ada is 30") {
		t.Fatalf(`describe(age: 30, name: "Ada") = %v, want "Ada is 30"`, v)
	}
}

func TestNamedArgumentsCombineWithPositionalAndDefaults(t *testing.T) {
	v := run(t, `
		fn greet(greeting, name, punctuation = "!") {
			return greeting + ", " + name + punctuation;
		}
		greet("Hi", punctuation: "?", name: "Bo");
	`)
	if v != value.String("Hi, Bo?") {
		t.Fatalf(`greet("Hi", punctuation: "?", name: "Bo") = %v, want "Hi, Bo?"`, v)
	}
}

func TestNamedArgumentForUnknownParameterThrows(t *testing.T) {
	if err := runErr(t, `
		fn f(a) { return a; }
		f(a: 1, b: 2);
	`); err == nil {
		t.Fatalf("expected a named argument with no matching parameter to throw")
	}
}

func TestNamedArgumentBoundTwiceThrows(t *testing.T) {
	if err := runErr(t, `
		fn f(a) { return a; }
		f(1, a: 2);
	`); err == nil {
		t.Fatalf("expected a parameter bound both positionally and by name to throw")
	}
}

func TestRecursionBeyondMaxCallDepthThrows(t *testing.T) {
	if err := runErr(t, `
		fn loop(n) {
			return loop(n + 1);
		}
		loop(0);
	`); err == nil {
		t.Fatalf("expected unbounded recursion to throw a recursion-depth error")
	}
}

func TestAsyncFunctionAwaitResolvesToReturnValue(t *testing.T) {
	v := run(t, `
		async fn compute() {
			return 42;
		}
		await compute();
	`)
	if v != value.Int(42) {
		t.Fatalf("await compute() = %v, want 42", v)
	}
}

func TestRangeExpressionInclusiveVsExclusive(t *testing.T) {
	if v := run(t, "1..4;"); v.String() != "[1, 2, 3]" {
		t.Fatalf("1..4 = %s, want [1, 2, 3]", v.String())
	}
	if v := run(t, "1..=4;"); v.String() != "[1, 2, 3, 4]" {
		t.Fatalf("1..=4 = %s, want [1, 2, 3, 4]", v.String())
	}
}

func TestIncrementDecrementPrefixAndPostfix(t *testing.T) {
	v := run(t, `
		let x = 5;
		let post = x++;
		let pre = ++x;
		post + "," + pre + "," + x;
	`)
	if v != value.String("5,7,7") {
		t.Fatalf("inc/dec sequence = %v, want 5,7,7", v)
	}
}

func TestBitwiseAndShiftOperators(t *testing.T) {
	v := run(t, "((6 & 3) | 8) ^ 1;")
	if v != value.Int(((6&3)|8)^1) {
		t.Fatalf("bitwise chain = %v", v)
	}
	if v := run(t, "1 << 4;"); v != value.Int(16) {
		t.Fatalf("1 << 4 = %v, want 16", v)
	}
}

func TestCompoundAssignmentOperators(t *testing.T) {
	v := run(t, `
		let x = 10;
		x += 5;
		x -= 2;
		x *= 2;
		x;
	`)
	if v != value.Int(26) {
		t.Fatalf("compound-assignment chain = %v, want 26", v)
	}
}

func TestNullishCompoundAssignmentOnlyAssignsWhenNull(t *testing.T) {
	v := run(t, `
		let a = null;
		let b = 5;
		a ??= 1;
		b ??= 99;
		a + "," + b;
	`)
	if v != value.String("1,5") {
		t.Fatalf("nullish compound assignment = %v, want 1,5", v)
	}
}
