package parser

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/ast"
)

func parseTypeAnnotation(t *testing.T, src string) ast.TypeNode {
	t.Helper()
	decl := mustParseProgram(t, "let x: "+src+" = null;").Statements[0].(*ast.VarDecl)
	return decl.Type
}

func TestParsePrimitiveType(t *testing.T) {
	typ := parseTypeAnnotation(t, "int")
	prim, ok := typ.(*ast.PrimitiveType)
	if !ok || prim.Name != "int" {
		t.Fatalf("expected PrimitiveType{int}, got %#v", typ)
	}
}

func TestParseNullableAndArrayTypeSuffixes(t *testing.T) {
	typ := parseTypeAnnotation(t, "string?[]")
	arr, ok := typ.(*ast.ArrayType)
	if !ok {
		t.Fatalf("expected an ArrayType, got %T", typ)
	}
	if _, ok := arr.Elem.(*ast.NullableType); !ok {
		t.Fatalf("expected the array element type to be nullable, got %T", arr.Elem)
	}
}

func TestParseUnionType(t *testing.T) {
	typ := parseTypeAnnotation(t, "int | string")
	u, ok := typ.(*ast.UnionType)
	if !ok || len(u.Options) != 2 {
		t.Fatalf("expected a 2-option UnionType, got %#v", typ)
	}
}

func TestParseNamedTypeWithTypeArgs(t *testing.T) {
	typ := parseTypeAnnotation(t, "List<int>")
	nt, ok := typ.(*ast.NamedType)
	if !ok || nt.Name != "List" {
		t.Fatalf("expected NamedType{List}, got %#v", typ)
	}
	if len(nt.TypeArgs) != 1 {
		t.Fatalf("expected 1 type argument, got %d", len(nt.TypeArgs))
	}
}

func TestParseFunctionType(t *testing.T) {
	typ := parseTypeAnnotation(t, "(int, int) => int")
	ft, ok := typ.(*ast.FuncType)
	if !ok {
		t.Fatalf("expected a FuncType, got %T", typ)
	}
	if len(ft.Params) != 2 {
		t.Fatalf("expected 2 param types, got %d", len(ft.Params))
	}
	if ft.Ret == nil {
		t.Fatalf("expected a return type")
	}
}

func TestParseTupleType(t *testing.T) {
	typ := parseTypeAnnotation(t, "[int, string]")
	tt, ok := typ.(*ast.TupleType)
	if !ok || len(tt.Elems) != 2 {
		t.Fatalf("expected a 2-element TupleType, got %#v", typ)
	}
}

func TestParseObjectType(t *testing.T) {
	typ := parseTypeAnnotation(t, "{a: int, b?: string}")
	ot, ok := typ.(*ast.ObjectType)
	if !ok || len(ot.Fields) != 2 {
		t.Fatalf("expected a 2-field ObjectType, got %#v", typ)
	}
	if !ot.Fields[1].Optional {
		t.Fatalf("expected field 'b' to be optional")
	}
}
