package bytecode

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/value"
)

func TestABCRoundTrip(t *testing.T) {
	instr := ABC(OpAdd, 1, 2, 3)
	if instr.Op() != OpAdd {
		t.Fatalf("Op() = %v, want OpAdd", instr.Op())
	}
	if instr.A() != 1 || instr.B() != 2 || instr.C() != 3 {
		t.Fatalf("A/B/C = %d/%d/%d, want 1/2/3", instr.A(), instr.B(), instr.C())
	}
}

func TestABxRoundTrip(t *testing.T) {
	instr := ABx(OpLoadK, 5, 1000)
	if instr.Op() != OpLoadK {
		t.Fatalf("Op() = %v, want OpLoadK", instr.Op())
	}
	if instr.A() != 5 {
		t.Fatalf("A() = %d, want 5", instr.A())
	}
	if instr.Bx() != 1000 {
		t.Fatalf("Bx() = %d, want 1000", instr.Bx())
	}
}

func TestAsBxRoundTripNegative(t *testing.T) {
	instr := AsBx(OpJmp, 0, -7)
	if instr.SBx() != -7 {
		t.Fatalf("SBx() = %d, want -7", instr.SBx())
	}
}

func TestAsBxRoundTripPositive(t *testing.T) {
	instr := AsBx(OpJmp, 0, 42)
	if instr.SBx() != 42 {
		t.Fatalf("SBx() = %d, want 42", instr.SBx())
	}
}

func TestChunkAddConstantDedups(t *testing.T) {
	c := &Chunk{}
	i1 := c.AddConstant(value.Int(7))
	i2 := c.AddConstant(value.Int(7))
	if i1 != i2 {
		t.Fatalf("expected constant dedup, got %d and %d", i1, i2)
	}
	i3 := c.AddConstant(value.String("7"))
	if i3 == i1 {
		t.Fatalf("expected a distinct constant for a different kind with the same text")
	}
	if len(c.Constants) != 2 {
		t.Fatalf("len(Constants) = %d, want 2", len(c.Constants))
	}
}

func TestChunkAddASTConstantNeverDedups(t *testing.T) {
	c := &Chunk{}
	i1 := c.AddASTConstant("a")
	i2 := c.AddASTConstant("a")
	if i1 == i2 {
		t.Fatalf("AddASTConstant must not dedup, got the same index %d twice", i1)
	}
}

func TestPatchComputesRelativeOffset(t *testing.T) {
	c := &Chunk{}
	c.Emit(ABC(OpLoadNull, 0, 0, 0), 1)
	pos := c.Emit(AsBx(OpJmp, 0, 0), 1)
	c.Emit(ABC(OpLoadNull, 1, 0, 0), 1)
	c.Emit(ABC(OpLoadNull, 2, 0, 0), 1)
	target := len(c.Code)
	c.Patch(pos, target)

	pc := pos + 1
	pc += int(c.Code[pos].SBx())
	if pc != target {
		t.Fatalf("patched jump lands at %d, want %d", pc, target)
	}
}

func TestFunctionProtoDecoratorsDefaultToNil(t *testing.T) {
	proto := &FunctionProto{Name: "f", Chunk: &Chunk{}}
	if proto.Decorators != nil {
		t.Fatalf("expected a freshly built proto to carry no decorators")
	}
}
