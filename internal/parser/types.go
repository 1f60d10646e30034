package parser

import (
	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/token"
)

var primitiveTypeNames = map[string]bool{
	"int": true, "i8": true, "i16": true, "i32": true, "i64": true,
	"u8": true, "u16": true, "u32": true, "u64": true,
	"float": true, "bool": true, "string": true, "char": true,
	"any": true, "void": true, "null": true, "unit": true, "bigint": true,
}

// parseType parses a full type expression: union (`|`) of intersections
// (`&`) of postfix-modified (`?`, `[]`) atoms.
func (p *Parser) parseType() ast.TypeNode {
	first := p.parseIntersectionType()
	if !p.check(token.PIPE) {
		return first
	}
	u := &ast.UnionType{Position: first.Pos(), Options: []ast.TypeNode{first}}
	for p.match(token.PIPE) {
		u.Options = append(u.Options, p.parseIntersectionType())
	}
	return u
}

func (p *Parser) parseIntersectionType() ast.TypeNode {
	first := p.parsePostfixType()
	if !p.check(token.AMP) {
		return first
	}
	it := &ast.IntersectionType{Position: first.Pos(), Options: []ast.TypeNode{first}}
	for p.match(token.AMP) {
		it.Options = append(it.Options, p.parsePostfixType())
	}
	return it
}

func (p *Parser) parsePostfixType() ast.TypeNode {
	t := p.parseAtomType()
	for {
		if p.check(token.QUESTION) {
			p.advance()
			t = &ast.NullableType{Position: t.Pos(), Inner: t}
			continue
		}
		if p.check(token.LBRACKET) {
			p.advance()
			p.expect(token.RBRACKET, "to close array type")
			t = &ast.ArrayType{Position: t.Pos(), Elem: t}
			continue
		}
		break
	}
	return t
}

func (p *Parser) parseAtomType() ast.TypeNode {
	pos := p.cur().Pos
	switch p.kind() {
	case token.READONLY:
		p.advance()
		return &ast.ReadonlyType{Position: pos, Inner: p.parsePostfixType()}
	case token.LPAREN:
		return p.parseFuncOrTupleType()
	case token.LBRACE:
		return p.parseObjectType()
	case token.LBRACKET:
		return p.parseTupleType()
	case token.IDENT:
		name := p.advance().Lexeme
		if primitiveTypeNames[name] {
			return &ast.PrimitiveType{Position: pos, Name: name}
		}
		nt := &ast.NamedType{Position: pos, Name: name}
		if p.match(token.LT) {
			nt.TypeArgs = append(nt.TypeArgs, p.parseType())
			for p.match(token.COMMA) {
				nt.TypeArgs = append(nt.TypeArgs, p.parseType())
			}
			p.expect(token.GT, "to close type argument list")
		}
		return nt
	default:
		p.fail("expected type, found " + p.kind().String())
		p.advance()
		return &ast.PrimitiveType{Position: pos, Name: "any"}
	}
}

// parseFuncOrTupleType disambiguates `(T, T) => T` from a parenthesized
// type by scanning for `=>` after the closing paren.
func (p *Parser) parseFuncOrTupleType() ast.TypeNode {
	pos := p.cur().Pos
	save := p.pos
	p.advance() // '('
	var params []ast.TypeNode
	for !p.check(token.RPAREN) && !p.atEnd() {
		params = append(params, p.parseType())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "to close type parameter list")
	if p.match(token.ARROW) {
		ret := p.parseType()
		return &ast.FuncType{Position: pos, Params: params, Ret: ret}
	}
	if len(params) == 1 {
		return params[0]
	}
	p.pos = save
	return p.parseTupleTypeParen()
}

func (p *Parser) parseTupleTypeParen() ast.TypeNode {
	pos := p.cur().Pos
	p.advance() // '('
	tt := &ast.TupleType{Position: pos}
	for !p.check(token.RPAREN) && !p.atEnd() {
		tt.Elems = append(tt.Elems, p.parseType())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "to close tuple type")
	return tt
}

func (p *Parser) parseTupleType() ast.TypeNode {
	pos := p.cur().Pos
	p.advance() // '['
	tt := &ast.TupleType{Position: pos}
	for !p.check(token.RBRACKET) && !p.atEnd() {
		tt.Elems = append(tt.Elems, p.parseType())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACKET, "to close tuple type")
	return tt
}

func (p *Parser) parseObjectType() ast.TypeNode {
	pos := p.cur().Pos
	p.advance() // '{'
	ot := &ast.ObjectType{Position: pos}
	for !p.check(token.RBRACE) && !p.atEnd() {
		readonly := p.match(token.READONLY)
		name := p.expect(token.IDENT, "object type field name").Lexeme
		optional := p.match(token.QUESTION)
		p.expect(token.COLON, "after object type field name")
		typ := p.parseType()
		ot.Fields = append(ot.Fields, ast.ObjectTypeField{Name: name, Type: typ, Optional: optional, Readonly: readonly})
		if !p.match(token.COMMA) {
			p.optionalSemi()
		}
	}
	p.expect(token.RBRACE, "to close object type")
	return ot
}
