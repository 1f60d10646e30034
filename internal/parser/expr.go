package parser

import (
	"strconv"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/token"
)

// precedence levels, low to high, per the table spec.md §4.2 describes.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precTernary
	precNullCoalesce
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precComparison
	precShift
	precRange
	precAdditive
	precMultiplicative
	precPower
	precUnary
	precPostfix
)

var binPrec = map[token.Kind]precedence{
	token.PIPEPIPE:         precLogicalOr,
	token.AMPAMP:           precLogicalAnd,
	token.PIPE:             precBitOr,
	token.CARET:            precBitXor,
	token.AMP:              precBitAnd,
	token.EQEQ:             precEquality,
	token.BANGEQ:           precEquality,
	token.LT:               precComparison,
	token.GT:               precComparison,
	token.LE:               precComparison,
	token.GE:               precComparison,
	token.SHL:              precShift,
	token.SHR:              precShift,
	token.USHR:             precShift,
	token.DOTDOT:           precRange,
	token.DOTDOTEQ:         precRange,
	token.PLUS:             precAdditive,
	token.MINUS:            precAdditive,
	token.STAR:             precMultiplicative,
	token.SLASH:            precMultiplicative,
	token.PERCENT:          precMultiplicative,
	token.STARSTAR:         precPower,
	token.QUESTIONQUESTION: precNullCoalesce,
}

var assignOps = map[token.Kind]bool{
	token.EQ: true, token.PLUSEQ: true, token.MINUSEQ: true, token.STAREQ: true,
	token.SLASHEQ: true, token.PERCENTEQ: true, token.AMPEQ: true, token.PIPEEQ: true,
	token.CARETEQ: true, token.SHLEQ: true, token.SHREQ: true, token.USHREQ: true,
	token.STARSTAREQ: true, token.AMPAMPEQ: true, token.PIPEPIPEEQ: true,
	token.QUESTIONQUESTIONEQ: true,
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseTernary()
	if assignOps[p.kind()] {
		op := p.advance()
		right := p.parseAssignment()
		return &ast.AssignExpr{Position: left.Pos(), Op: op.Lexeme, Target: left, Value: right}
	}
	return left
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseRangeExpr()
	if p.match(token.QUESTION) {
		then := p.parseAssignment()
		p.expect(token.COLON, "in ternary expression")
		elseE := p.parseAssignment()
		return &ast.TernaryExpr{Position: cond.Pos(), Cond: cond, Then: then, Else: elseE}
	}
	return cond
}

// parseRangeExpr enters the binary-precedence ladder at its lowest level
// (`??`). The range operators `..`/`..=` bind at precRange, between shift
// and additive, and parseBinary folds them into RangeExpr.
func (p *Parser) parseRangeExpr() ast.Expr {
	left := p.parseBinary(precNullCoalesce)
	if p.check(token.DOTDOT) || p.check(token.DOTDOTEQ) {
		inclusive := p.kind() == token.DOTDOTEQ
		p.advance()
		right := p.parseBinary(precNullCoalesce)
		return &ast.RangeExpr{Position: left.Pos(), Start: left, End: right, Inclusive: inclusive}
	}
	return left
}

// parseBinary implements precedence climbing from minPrec upward, folding
// && / || / ?? into LogicalExpr, .. / ..= into RangeExpr, and everything
// else into BinaryExpr.
func (p *Parser) parseBinary(minPrec precedence) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := binPrec[p.kind()]
		if !ok || prec < minPrec {
			return left
		}
		opTok := p.advance()
		right := p.parseBinary(prec + 1)
		switch opTok.Kind {
		case token.DOTDOT, token.DOTDOTEQ:
			left = &ast.RangeExpr{Position: left.Pos(), Start: left, End: right, Inclusive: opTok.Kind == token.DOTDOTEQ}
		case token.AMPAMP, token.PIPEPIPE, token.QUESTIONQUESTION:
			left = &ast.LogicalExpr{Position: left.Pos(), Op: opTok.Lexeme, Left: left, Right: right}
		default:
			left = &ast.BinaryExpr{Position: left.Pos(), Op: opTok.Lexeme, Left: left, Right: right}
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	pos := p.cur().Pos
	switch p.kind() {
	case token.BANG, token.MINUS, token.PLUS, token.TILDE:
		op := p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Position: pos, Op: op.Lexeme, X: x, Prefix: true}
	case token.PLUSPLUS, token.MINUSMINUS:
		op := p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Position: pos, Op: op.Lexeme, X: x, Prefix: true}
	case token.TYPEOF:
		p.advance()
		return &ast.TypeofExpr{Position: pos, X: p.parseUnary()}
	case token.DELETE:
		p.advance()
		return &ast.DeleteExpr{Position: pos, X: p.parseUnary()}
	case token.AWAIT:
		p.advance()
		return &ast.AwaitExpr{Position: pos, X: p.parseUnary()}
	case token.YIELD:
		p.advance()
		delegate := p.match(token.STAR)
		var x ast.Expr
		if !p.check(token.SEMICOLON) && !p.check(token.RPAREN) && !p.check(token.RBRACE) && !p.check(token.COMMA) {
			x = p.parseAssignment()
		}
		return &ast.YieldExpr{Position: pos, X: x, Delegate: delegate}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() ast.Expr {
	left := p.parsePostfix()
	if p.check(token.STARSTAR) {
		p.advance()
		right := p.parseUnary() // right-associative
		return &ast.BinaryExpr{Position: left.Pos(), Op: "**", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parseCallOrMember()
	for p.check(token.PLUSPLUS) || p.check(token.MINUSMINUS) {
		op := p.advance()
		x = &ast.UnaryExpr{Position: x.Pos(), Op: op.Lexeme, X: x, Prefix: false}
	}
	if p.check(token.INSTANCEOF) {
		p.advance()
		typ := p.parseType()
		x = &ast.InstanceofExpr{Position: x.Pos(), X: x, Type: typ}
	}
	if p.check(token.IN) {
		p.advance()
		obj := p.parseBinary(precLogicalOr)
		x = &ast.InExpr{Position: x.Pos(), Key: x, Object: obj}
	}
	if p.check(token.BANGBANG) || p.check(token.BANG) {
		p.advance()
		x = &ast.NullAssertExpr{Position: x.Pos(), X: x}
	}
	return x
}

func (p *Parser) parseCallOrMember() ast.Expr {
	x := p.parsePrimary()
	return p.parseMemberChain(x)
}

func (p *Parser) parseMemberChain(x ast.Expr) ast.Expr {
	for {
		switch {
		case p.check(token.DOT):
			p.advance()
			name := p.expect(token.IDENT, "member name").Lexeme
			x = &ast.MemberExpr{Position: x.Pos(), Object: x, Name: name}
		case p.check(token.QUESTIONDOT):
			p.advance()
			if p.check(token.LPAREN) {
				args := p.parseArgs()
				x = &ast.CallExpr{Position: x.Pos(), Callee: x, Args: args, Optional: true}
				continue
			}
			if p.check(token.LBRACKET) {
				p.advance()
				idx := p.parseExpr()
				p.expect(token.RBRACKET, "to close index expression")
				x = &ast.IndexExpr{Position: x.Pos(), Object: x, Index: idx, Optional: true}
				continue
			}
			name := p.expect(token.IDENT, "member name").Lexeme
			x = &ast.MemberExpr{Position: x.Pos(), Object: x, Name: name, Optional: true}
		case p.check(token.LBRACKET):
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBRACKET, "to close index expression")
			x = &ast.IndexExpr{Position: x.Pos(), Object: x, Index: idx}
		case p.check(token.LPAREN):
			args := p.parseArgs()
			x = &ast.CallExpr{Position: x.Pos(), Callee: x, Args: args}
		default:
			return x
		}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(token.LPAREN, "to open argument list")
	var args []ast.Expr
	for !p.check(token.RPAREN) && !p.atEnd() {
		switch {
		case p.match(token.SPREAD):
			e := p.parseAssignment()
			args = append(args, &ast.SpreadExpr{Position: e.Pos(), X: e})
		case p.peekIsNamedArg():
			pos := p.cur().Pos
			name := p.advance().Lexeme
			p.advance() // ':'
			val := p.parseAssignment()
			args = append(args, &ast.NamedArg{Position: pos, Name: name, Value: val})
		default:
			args = append(args, p.parseAssignment())
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "to close argument list")
	return args
}

// peekIsNamedArg reports whether the cursor sits on an `ident:` prefix,
// the `name: value` call-argument form. A bare colon never otherwise
// starts an argument expression, so a single token of lookahead suffices.
func (p *Parser) peekIsNamedArg() bool {
	return p.kind() == token.IDENT && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == token.COLON
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.cur().Pos
	switch p.kind() {
	case token.INT:
		tok := p.advance()
		return &ast.IntLit{Position: pos, Raw: tok.Lexeme, Radix: radixOr(tok.Radix, 10)}
	case token.BIGINT:
		tok := p.advance()
		return &ast.BigIntLit{Position: pos, Raw: tok.Lexeme, Radix: radixOr(tok.Radix, 10)}
	case token.FLOAT:
		tok := p.advance()
		f, _ := strconv.ParseFloat(stripUnderscores(tok.Lexeme), 64)
		return &ast.FloatLit{Position: pos, Value: f}
	case token.STRING:
		tok := p.advance()
		return &ast.StringLit{Position: pos, Value: tok.Lexeme}
	case token.TEMPLATE_FULL:
		tok := p.advance()
		return &ast.TemplateLit{Position: pos, Quasis: []string{tok.Lexeme}}
	case token.TEMPLATE_HEAD:
		return p.parseTemplate()
	case token.TRUE:
		p.advance()
		return &ast.BoolLit{Position: pos, Value: true}
	case token.FALSE:
		p.advance()
		return &ast.BoolLit{Position: pos, Value: false}
	case token.NULL:
		p.advance()
		return &ast.NullLit{Position: pos}
	case token.THIS:
		p.advance()
		return &ast.ThisExpr{Position: pos}
	case token.SUPER:
		p.advance()
		return &ast.SuperExpr{Position: pos}
	case token.IDENT:
		name := p.advance().Lexeme
		return &ast.Ident{Position: pos, Name: name}
	case token.NEW:
		p.advance()
		callee := p.parseCallOrMember0()
		var args []ast.Expr
		if p.check(token.LPAREN) {
			args = p.parseArgs()
		}
		return &ast.NewExpr{Position: pos, Callee: callee, Args: args}
	case token.LPAREN:
		return p.parseParenOrArrow()
	case token.LBRACKET:
		return p.parseArrayLit()
	case token.LBRACE:
		return p.parseObjectLit()
	case token.FN:
		return p.parseFuncExpr(false)
	case token.ASYNC:
		p.advance()
		if p.check(token.FN) {
			return p.parseFuncExpr(true)
		}
		return p.parseArrowFrom(pos, true)
	case token.CLASS:
		decl := p.parseClassDeclInner(nil)
		return &ast.ClassExpr{Position: pos, Decl: decl}
	case token.MATCH:
		return p.parseMatchExpr()
	default:
		p.fail("expected expression, found " + p.kind().String())
		p.advance()
		return &ast.NullLit{Position: pos}
	}
}

// parseCallOrMember0 parses a member chain without calls, for `new Foo.Bar(...)`.
func (p *Parser) parseCallOrMember0() ast.Expr {
	x := p.parsePrimary()
	for p.check(token.DOT) {
		p.advance()
		name := p.expect(token.IDENT, "member name").Lexeme
		x = &ast.MemberExpr{Position: x.Pos(), Object: x, Name: name}
	}
	return x
}

func radixOr(r, def int) int {
	if r == 0 {
		return def
	}
	return r
}

func stripUnderscores(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func (p *Parser) parseTemplate() ast.Expr {
	pos := p.cur().Pos
	head := p.advance() // TEMPLATE_HEAD
	lit := &ast.TemplateLit{Position: pos, Quasis: []string{head.Lexeme}}
	for {
		lit.Exprs = append(lit.Exprs, p.parseExpr())
		if p.check(token.TEMPLATE_MIDDLE) {
			t := p.advance()
			lit.Quasis = append(lit.Quasis, t.Lexeme)
			continue
		}
		t := p.expect(token.TEMPLATE_TAIL, "to close template literal")
		lit.Quasis = append(lit.Quasis, t.Lexeme)
		break
	}
	return lit
}

func (p *Parser) parseArrayLit() ast.Expr {
	pos := p.cur().Pos
	p.advance() // '['
	lit := &ast.ArrayLit{Position: pos}
	for !p.check(token.RBRACKET) && !p.atEnd() {
		if p.match(token.SPREAD) {
			e := p.parseAssignment()
			lit.Elements = append(lit.Elements, &ast.SpreadExpr{Position: e.Pos(), X: e})
		} else {
			lit.Elements = append(lit.Elements, p.parseAssignment())
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACKET, "to close array literal")
	return lit
}

func (p *Parser) parseObjectLit() ast.Expr {
	pos := p.cur().Pos
	p.advance() // '{'
	lit := &ast.ObjectLit{Position: pos}
	for !p.check(token.RBRACE) && !p.atEnd() {
		ppos := p.cur().Pos
		if p.match(token.SPREAD) {
			e := p.parseAssignment()
			lit.Props = append(lit.Props, ast.ObjectProp{Position: ppos, Spread: true, Value: e})
			if !p.match(token.COMMA) {
				break
			}
			continue
		}
		var key ast.Expr
		computed := false
		if p.check(token.LBRACKET) {
			p.advance()
			key = p.parseExpr()
			p.expect(token.RBRACKET, "to close computed key")
			computed = true
		} else if p.check(token.STRING) {
			tok := p.advance()
			key = &ast.StringLit{Position: ppos, Value: tok.Lexeme}
		} else {
			name := p.advance().Lexeme
			key = &ast.Ident{Position: ppos, Name: name}
		}
		var val ast.Expr
		if p.match(token.COLON) {
			val = p.parseAssignment()
		} else if p.check(token.LPAREN) {
			// shorthand method: { foo(x) { ... } }
			params := p.parseParams()
			body := p.parseBlockStmt()
			name := ""
			if id, ok := key.(*ast.Ident); ok {
				name = id.Name
			}
			val = &ast.FuncExpr{Position: ppos, Name: name, Params: params, Body: body}
		}
		lit.Props = append(lit.Props, ast.ObjectProp{Position: ppos, Key: key, Computed: computed, Value: val})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close object literal")
	return lit
}

// parseParenOrArrow disambiguates `(expr)` grouping from `(params) => body`
// by attempting an arrow-function parse first and backtracking if it
// fails to find `=>`.
func (p *Parser) parseParenOrArrow() ast.Expr {
	pos := p.cur().Pos
	save := p.pos
	if params, ok := p.tryParseArrowParams(); ok {
		if p.match(token.ARROW) {
			return p.finishArrow(pos, params, false)
		}
	}
	p.pos = save
	p.advance() // '('
	e := p.parseExpr()
	p.expect(token.RPAREN, "to close parenthesized expression")
	return e
}

func (p *Parser) tryParseArrowParams() (params []ast.Param, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	savedErrs := len(p.errs)
	params = p.parseParams()
	if len(p.errs) > savedErrs {
		p.errs = p.errs[:savedErrs]
		return nil, false
	}
	return params, true
}

func (p *Parser) parseArrowFrom(pos token.Position, async bool) ast.Expr {
	params, _ := p.tryParseArrowParams()
	p.expect(token.ARROW, "in arrow function")
	return p.finishArrow(pos, params, async)
}

func (p *Parser) finishArrow(pos token.Position, params []ast.Param, async bool) ast.Expr {
	fe := &ast.FuncExpr{Position: pos, Params: params, Async: async, Arrow: true}
	if p.check(token.LBRACE) {
		fe.Body = p.parseBlockStmt()
	} else {
		fe.Expr = p.parseAssignment()
	}
	return fe
}

func (p *Parser) parseFuncExpr(async bool) ast.Expr {
	pos := p.cur().Pos
	p.advance() // 'fn'
	name := ""
	if p.check(token.IDENT) {
		name = p.advance().Lexeme
	}
	params := p.parseParams()
	var ret ast.TypeNode
	if p.match(token.COLON) {
		ret = p.parseType()
	}
	body := p.parseBlockStmt()
	return &ast.FuncExpr{Position: pos, Name: name, Params: params, RetType: ret, Body: body, Async: async}
}

func (p *Parser) parseMatchExpr() ast.Expr {
	pos := p.cur().Pos
	p.advance() // 'match'
	p.expect(token.LPAREN, "after 'match'")
	subject := p.parseExpr()
	p.expect(token.RPAREN, "after match subject")
	p.expect(token.LBRACE, "to open match body")
	m := &ast.MatchExpr{Position: pos, Subject: subject}
	for !p.check(token.RBRACE) && !p.atEnd() {
		apos := p.cur().Pos
		pat := p.parseMatchPattern()
		var guard ast.Expr
		if p.check(token.IF) {
			p.advance()
			guard = p.parseExpr()
		}
		p.expect(token.ARROW, "in match arm")
		val := p.parseAssignment()
		m.Arms = append(m.Arms, ast.MatchArm{Position: apos, Pattern: pat, Guard: guard, Value: val})
		if !p.match(token.COMMA) {
			p.optionalSemi()
		}
	}
	p.expect(token.RBRACE, "to close match body")
	return m
}
