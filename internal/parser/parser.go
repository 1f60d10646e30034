// Package parser implements Raccoon's recursive-descent, Pratt-style
// expression parser.
package parser

import (
	"fmt"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/lexer"
	"github.com/raccoon-lang/raccoon/internal/token"
)

// Error is a single parse failure; Parse collects every error it can
// recover from rather than stopping at the first one.
type Error struct {
	Message string
	Pos     token.Position
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Message) }

type Parser struct {
	toks []token.Token
	pos  int
	errs []error
	file string
}

// Parse lexes and parses source in one call, returning the resulting
// Program along with any lex or parse errors collected.
func Parse(source, file string) (*ast.Program, []error) {
	sc := lexer.NewScanner(source, file)
	toks := sc.ScanTokens()
	p := &Parser{toks: toks, file: file}
	for _, e := range sc.Errors() {
		p.errs = append(p.errs, e)
	}
	prog := p.parseProgram()
	return prog, p.errs
}

// --- cursor helpers ---

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) kind() token.Kind  { return p.toks[p.pos].Kind }
func (p *Parser) atEnd() bool       { return p.kind() == token.EOF }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.kind() == k }

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(k token.Kind, context string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.fail(fmt.Sprintf("expected %s %s, found %s", k, context, p.kind()))
	return p.toks[p.pos]
}

func (p *Parser) fail(msg string) {
	p.errs = append(p.errs, &Error{Message: msg, Pos: p.cur().Pos})
	// best-effort recovery: skip to the next statement boundary
	for !p.atEnd() && !p.check(token.SEMICOLON) && !p.check(token.RBRACE) {
		p.advance()
	}
}

func (p *Parser) optionalSemi() {
	for p.check(token.SEMICOLON) {
		p.advance()
	}
}

// --- program / statements ---

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{File: p.file}
	for !p.atEnd() {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.optionalSemi()
	}
	return prog
}

func (p *Parser) parseStatement() ast.Stmt {
	var decorators []ast.Decorator
	for p.check(token.AT) {
		decorators = append(decorators, p.parseDecorator())
	}

	switch p.kind() {
	case token.LET, token.CONST:
		return p.parseVarDecl()
	case token.FN:
		return p.parseFuncDecl(decorators, false)
	case token.ASYNC:
		p.advance()
		if !p.check(token.FN) {
			p.fail("expected fn after 'async'")
		}
		return p.parseFuncDecl(decorators, true)
	case token.CLASS:
		return p.parseClassDecl(decorators)
	case token.INTERFACE:
		return p.parseInterfaceDecl()
	case token.ENUM:
		return p.parseEnumDecl()
	case token.TYPE:
		return p.parseTypeAliasDecl()
	case token.IMPORT:
		return p.parseImportDecl()
	case token.EXPORT:
		return p.parseExportDecl()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt("")
	case token.DO:
		return p.parseDoWhileStmt("")
	case token.FOR:
		return p.parseForLike("")
	case token.TRY:
		return p.parseTryStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		return p.parseBreakStmt()
	case token.CONTINUE:
		return p.parseContinueStmt()
	case token.THROW:
		return p.parseThrowStmt()
	case token.LBRACE:
		return p.parseBlockStmt()
	case token.IDENT:
		if p.peekIsLabel() {
			return p.parseLabeledStmt()
		}
	}
	return p.parseExprStmt()
}

func (p *Parser) peekIsLabel() bool {
	return p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == token.COLON
}

func (p *Parser) parseLabeledStmt() ast.Stmt {
	pos := p.cur().Pos
	label := p.advance().Lexeme
	p.advance() // ':'
	var body ast.Stmt
	switch p.kind() {
	case token.WHILE:
		body = p.parseWhileStmt(label)
	case token.DO:
		body = p.parseDoWhileStmt(label)
	case token.FOR:
		body = p.parseForLike(label)
	default:
		body = p.parseStatement()
	}
	return &ast.LabeledStmt{Position: pos, Label: label, Body: body}
}

func (p *Parser) parseDecorator() ast.Decorator {
	pos := p.cur().Pos
	p.advance() // '@'
	name := p.expect(token.IDENT, "decorator name").Lexeme
	var args []ast.Expr
	if p.match(token.LPAREN) {
		if !p.check(token.RPAREN) {
			args = append(args, p.parseExpr())
			for p.match(token.COMMA) {
				args = append(args, p.parseExpr())
			}
		}
		p.expect(token.RPAREN, "to close decorator arguments")
	}
	return ast.Decorator{Position: pos, Name: name, Args: args}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	pos := p.cur().Pos
	isConst := p.advance().Kind == token.CONST
	pat := p.parsePattern()
	var typ ast.TypeNode
	if p.match(token.COLON) {
		typ = p.parseType()
	}
	var init ast.Expr
	if p.match(token.EQ) {
		init = p.parseExpr()
	}
	p.optionalSemi()
	return &ast.VarDecl{Position: pos, Const: isConst, Pattern: pat, Type: typ, Init: init}
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LPAREN, "to open parameter list")
	var params []ast.Param
	for !p.check(token.RPAREN) && !p.atEnd() {
		pos := p.cur().Pos
		variadic := p.match(token.SPREAD)
		pat := p.parsePattern()
		var typ ast.TypeNode
		if p.match(token.COLON) {
			typ = p.parseType()
		}
		var def ast.Expr
		if p.match(token.EQ) {
			def = p.parseExpr()
		}
		params = append(params, ast.Param{Position: pos, Pattern: pat, Type: typ, Default: def, Variadic: variadic})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "to close parameter list")
	return params
}

func (p *Parser) parseFuncDecl(decorators []ast.Decorator, async bool) ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'fn'
	name := p.expect(token.IDENT, "function name").Lexeme
	params := p.parseParams()
	var ret ast.TypeNode
	if p.match(token.COLON) {
		ret = p.parseType()
	}
	body := p.parseBlockStmt()
	return &ast.FuncDecl{Position: pos, Name: name, Params: params, RetType: ret, Body: body, Async: async, Decorators: decorators}
}

func (p *Parser) parseClassDecl(decorators []ast.Decorator) ast.Stmt {
	decl := p.parseClassDeclInner(decorators)
	return decl
}

func (p *Parser) parseClassDeclInner(decorators []ast.Decorator) *ast.ClassDecl {
	pos := p.cur().Pos
	p.advance() // 'class'
	name := p.expect(token.IDENT, "class name").Lexeme
	var typeParams []string
	if p.match(token.LT) {
		typeParams = append(typeParams, p.expect(token.IDENT, "type parameter").Lexeme)
		for p.match(token.COMMA) {
			typeParams = append(typeParams, p.expect(token.IDENT, "type parameter").Lexeme)
		}
		p.expect(token.GT, "to close type parameter list")
	}
	var extends ast.Expr
	if p.match(token.EXTENDS) {
		extends = p.parseMemberChain(p.parsePrimary())
	}
	var implements []ast.TypeNode
	if p.check(token.IDENT) && p.cur().Lexeme == "implements" {
		p.advance()
		implements = append(implements, p.parseType())
		for p.match(token.COMMA) {
			implements = append(implements, p.parseType())
		}
	}
	p.expect(token.LBRACE, "to open class body")
	var members []ast.ClassMember
	for !p.check(token.RBRACE) && !p.atEnd() {
		members = append(members, p.parseClassMember())
	}
	p.expect(token.RBRACE, "to close class body")
	return &ast.ClassDecl{Position: pos, Name: name, TypeParams: typeParams, Extends: extends, Implements: implements, Members: members, Decorators: decorators}
}

func (p *Parser) parseClassMember() ast.ClassMember {
	pos := p.cur().Pos
	var decorators []ast.Decorator
	for p.check(token.AT) {
		decorators = append(decorators, p.parseDecorator())
	}
	static := p.match(token.STATIC)
	readonly := p.match(token.READONLY)
	visibility := ""
	if p.check(token.IDENT) && p.cur().Lexeme == "private" {
		visibility = "private"
		p.advance()
	}

	kind := "field"
	if p.check(token.GET) {
		kind = "getter"
		p.advance()
	} else if p.check(token.SET) {
		kind = "setter"
		p.advance()
	}

	name := p.advance().Lexeme
	if name == "constructor" {
		kind = "constructor"
	}

	if p.check(token.LPAREN) {
		if kind == "field" {
			kind = "method"
		}
		params := p.parseParams()
		var ret ast.TypeNode
		if p.match(token.COLON) {
			ret = p.parseType()
		}
		body := p.parseBlockStmt()
		fn := &ast.FuncDecl{Position: pos, Name: name, Params: params, RetType: ret, Body: body}
		return ast.ClassMember{Position: pos, Name: name, Static: static, Readonly: readonly, Visibility: visibility, Kind: kind, Func: fn, Decorators: decorators}
	}

	var typ ast.TypeNode
	if p.match(token.COLON) {
		typ = p.parseType()
	}
	var def ast.Expr
	if p.match(token.EQ) {
		def = p.parseExpr()
	}
	p.optionalSemi()
	return ast.ClassMember{Position: pos, Name: name, Static: static, Readonly: readonly, Visibility: visibility, Kind: kind, Type: typ, Default: def, Decorators: decorators}
}

func (p *Parser) parseInterfaceDecl() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'interface'
	name := p.expect(token.IDENT, "interface name").Lexeme
	var typeParams []string
	if p.match(token.LT) {
		typeParams = append(typeParams, p.expect(token.IDENT, "type parameter").Lexeme)
		for p.match(token.COMMA) {
			typeParams = append(typeParams, p.expect(token.IDENT, "type parameter").Lexeme)
		}
		p.expect(token.GT, "to close type parameter list")
	}
	var extends []ast.TypeNode
	if p.match(token.EXTENDS) {
		extends = append(extends, p.parseType())
		for p.match(token.COMMA) {
			extends = append(extends, p.parseType())
		}
	}
	p.expect(token.LBRACE, "to open interface body")
	var members []ast.InterfaceMember
	for !p.check(token.RBRACE) && !p.atEnd() {
		mpos := p.cur().Pos
		mname := p.expect(token.IDENT, "interface member name").Lexeme
		if p.check(token.LPAREN) {
			params := p.parseParams()
			var ret ast.TypeNode
			if p.match(token.COLON) {
				ret = p.parseType()
			}
			members = append(members, ast.InterfaceMember{Position: mpos, Name: mname, Params: params, RetType: ret, IsMethod: true})
		} else {
			p.expect(token.COLON, "for interface property type")
			typ := p.parseType()
			members = append(members, ast.InterfaceMember{Position: mpos, Name: mname, Type: typ})
		}
		p.optionalSemi()
	}
	p.expect(token.RBRACE, "to close interface body")
	return &ast.InterfaceDecl{Position: pos, Name: name, TypeParams: typeParams, Extends: extends, Members: members}
}

func (p *Parser) parseEnumDecl() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'enum'
	name := p.expect(token.IDENT, "enum name").Lexeme
	p.expect(token.LBRACE, "to open enum body")
	var variants []ast.EnumVariant
	for !p.check(token.RBRACE) && !p.atEnd() {
		vpos := p.cur().Pos
		vname := p.expect(token.IDENT, "enum variant name").Lexeme
		var fields []ast.TypeNode
		if p.match(token.LPAREN) {
			if !p.check(token.RPAREN) {
				fields = append(fields, p.parseType())
				for p.match(token.COMMA) {
					fields = append(fields, p.parseType())
				}
			}
			p.expect(token.RPAREN, "to close enum variant payload")
		}
		variants = append(variants, ast.EnumVariant{Position: vpos, Name: vname, Fields: fields})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close enum body")
	return &ast.EnumDecl{Position: pos, Name: name, Variants: variants}
}

func (p *Parser) parseTypeAliasDecl() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'type'
	name := p.expect(token.IDENT, "type alias name").Lexeme
	var typeParams []string
	if p.match(token.LT) {
		typeParams = append(typeParams, p.expect(token.IDENT, "type parameter").Lexeme)
		for p.match(token.COMMA) {
			typeParams = append(typeParams, p.expect(token.IDENT, "type parameter").Lexeme)
		}
		p.expect(token.GT, "to close type parameter list")
	}
	p.expect(token.EQ, "in type alias")
	typ := p.parseType()
	p.optionalSemi()
	return &ast.TypeAliasDecl{Position: pos, Name: name, TypeParams: typeParams, Type: typ}
}

func (p *Parser) parseImportDecl() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'import'
	decl := &ast.ImportDecl{Position: pos}

	if p.check(token.STAR) {
		p.advance()
		p.expectIdentLexeme("as")
		decl.Namespace = p.expect(token.IDENT, "namespace import alias").Lexeme
	} else if p.check(token.IDENT) && !p.check(token.LBRACE) {
		decl.Default = p.advance().Lexeme
		if p.match(token.COMMA) {
			p.parseImportSpecifiers(decl)
		}
	} else if p.check(token.LBRACE) {
		p.parseImportSpecifiers(decl)
	}

	p.expectIdentLexeme("from")
	decl.Module = p.expect(token.STRING, "module path").Lexeme
	p.optionalSemi()
	return decl
}

func (p *Parser) parseImportSpecifiers(decl *ast.ImportDecl) {
	p.expect(token.LBRACE, "to open import specifier list")
	for !p.check(token.RBRACE) && !p.atEnd() {
		spos := p.cur().Pos
		name := p.expect(token.IDENT, "imported name").Lexeme
		alias := name
		if p.check(token.AS) {
			p.advance()
			alias = p.expect(token.IDENT, "import alias").Lexeme
		}
		decl.Specifiers = append(decl.Specifiers, ast.ImportSpecifier{Position: spos, Name: name, Alias: alias})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close import specifier list")
}

func (p *Parser) expectIdentLexeme(lexeme string) {
	if p.check(token.Lookup(lexeme)) && p.cur().Lexeme == lexeme {
		p.advance()
		return
	}
	p.fail(fmt.Sprintf("expected '%s'", lexeme))
}

func (p *Parser) parseExportDecl() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'export'
	if p.match(token.DEFAULT) {
		expr := p.parseExpr()
		p.optionalSemi()
		return &ast.ExportDecl{Position: pos, Default: true, Decl: &ast.ExprStmt{Position: pos, X: expr}}
	}
	if p.check(token.LBRACE) {
		decl := &ast.ExportDecl{Position: pos}
		p.expect(token.LBRACE, "to open export specifier list")
		for !p.check(token.RBRACE) && !p.atEnd() {
			spos := p.cur().Pos
			name := p.expect(token.IDENT, "exported name").Lexeme
			alias := name
			if p.check(token.AS) {
				p.advance()
				alias = p.expect(token.IDENT, "export alias").Lexeme
			}
			decl.Specifiers = append(decl.Specifiers, ast.ImportSpecifier{Position: spos, Name: name, Alias: alias})
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE, "to close export specifier list")
		if p.check(token.FROM) {
			p.advance()
			decl.ReExportModule = p.expect(token.STRING, "re-export module path").Lexeme
		}
		p.optionalSemi()
		return decl
	}
	inner := p.parseStatement()
	return &ast.ExportDecl{Position: pos, Decl: inner}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	pos := p.cur().Pos
	expr := p.parseExpr()
	p.optionalSemi()
	return &ast.ExprStmt{Position: pos, X: expr}
}

func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	pos := p.cur().Pos
	p.expect(token.LBRACE, "to open block")
	var body []ast.Stmt
	for !p.check(token.RBRACE) && !p.atEnd() {
		body = append(body, p.parseStatement())
		p.optionalSemi()
	}
	p.expect(token.RBRACE, "to close block")
	return &ast.BlockStmt{Position: pos, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'return'
	var val ast.Expr
	if !p.check(token.SEMICOLON) && !p.check(token.RBRACE) && !p.atEnd() {
		val = p.parseExpr()
	}
	p.optionalSemi()
	return &ast.ReturnStmt{Position: pos, Value: val}
}

func (p *Parser) parseBreakStmt() ast.Stmt {
	pos := p.cur().Pos
	p.advance()
	label := ""
	if p.check(token.IDENT) {
		label = p.advance().Lexeme
	}
	p.optionalSemi()
	return &ast.BreakStmt{Position: pos, Label: label}
}

func (p *Parser) parseContinueStmt() ast.Stmt {
	pos := p.cur().Pos
	p.advance()
	label := ""
	if p.check(token.IDENT) {
		label = p.advance().Lexeme
	}
	p.optionalSemi()
	return &ast.ContinueStmt{Position: pos, Label: label}
}

func (p *Parser) parseThrowStmt() ast.Stmt {
	pos := p.cur().Pos
	p.advance()
	val := p.parseExpr()
	p.optionalSemi()
	return &ast.ThrowStmt{Position: pos, Value: val}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'if'
	p.expect(token.LPAREN, "after 'if'")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "after if condition")
	then := p.parseBlockStmt()
	var elseStmt ast.Stmt
	if p.match(token.ELSE) {
		if p.check(token.IF) {
			elseStmt = p.parseIfStmt()
		} else {
			elseStmt = p.parseBlockStmt()
		}
	}
	return &ast.IfStmt{Position: pos, Cond: cond, Then: then, Else: elseStmt}
}

func (p *Parser) parseWhileStmt(label string) ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'while'
	p.expect(token.LPAREN, "after 'while'")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "after while condition")
	body := p.parseBlockStmt()
	return &ast.WhileStmt{Position: pos, Label: label, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhileStmt(label string) ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'do'
	body := p.parseBlockStmt()
	p.expect(token.WHILE, "after do-while body")
	p.expect(token.LPAREN, "after 'while'")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "after do-while condition")
	p.optionalSemi()
	return &ast.DoWhileStmt{Position: pos, Label: label, Body: body, Cond: cond}
}

// parseForLike disambiguates `for (init; cond; post)`, `for (x in obj)`
// and `for (x of iterable)` by scanning ahead for `in`/`of` before the
// first `;`.
func (p *Parser) parseForLike(label string) ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'for'
	p.expect(token.LPAREN, "after 'for'")

	isConst := p.check(token.CONST)
	isLet := p.check(token.LET)
	if isConst || isLet {
		save := p.pos
		p.advance()
		pat := p.parsePattern()
		if p.check(token.IN) {
			p.advance()
			iter := p.parseExpr()
			p.expect(token.RPAREN, "after for-in iterable")
			body := p.parseBlockStmt()
			return &ast.ForInStmt{Position: pos, Label: label, Const: isConst, Binding: pat, Iterable: iter, Body: body}
		}
		if p.check(token.OF) {
			p.advance()
			iter := p.parseExpr()
			p.expect(token.RPAREN, "after for-of iterable")
			body := p.parseBlockStmt()
			return &ast.ForOfStmt{Position: pos, Label: label, Const: isConst, Binding: pat, Iterable: iter, Body: body}
		}
		p.pos = save
	}

	var init ast.Stmt
	if !p.check(token.SEMICOLON) {
		if p.check(token.LET) || p.check(token.CONST) {
			init = p.parseVarDeclNoSemi()
		} else {
			e := p.parseExpr()
			init = &ast.ExprStmt{Position: pos, X: e}
		}
	}
	p.expect(token.SEMICOLON, "after for-init")
	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond = p.parseExpr()
	}
	p.expect(token.SEMICOLON, "after for-condition")
	var post ast.Expr
	if !p.check(token.RPAREN) {
		post = p.parseExpr()
	}
	p.expect(token.RPAREN, "after for-post")
	body := p.parseBlockStmt()
	return &ast.ForStmt{Position: pos, Label: label, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseVarDeclNoSemi() ast.Stmt {
	pos := p.cur().Pos
	isConst := p.advance().Kind == token.CONST
	pat := p.parsePattern()
	var typ ast.TypeNode
	if p.match(token.COLON) {
		typ = p.parseType()
	}
	var init ast.Expr
	if p.match(token.EQ) {
		init = p.parseExpr()
	}
	return &ast.VarDecl{Position: pos, Const: isConst, Pattern: pat, Type: typ, Init: init}
}

func (p *Parser) parseTryStmt() ast.Stmt {
	pos := p.cur().Pos
	p.advance() // 'try'
	body := p.parseBlockStmt()
	var catch *ast.CatchClause
	if p.match(token.CATCH) {
		cpos := p.cur().Pos
		var binding ast.Pattern
		if p.match(token.LPAREN) {
			binding = p.parsePattern()
			p.expect(token.RPAREN, "after catch binding")
		}
		cbody := p.parseBlockStmt()
		catch = &ast.CatchClause{Position: cpos, Binding: binding, Body: cbody}
	}
	var finally *ast.BlockStmt
	if p.match(token.FINALLY) {
		finally = p.parseBlockStmt()
	}
	return &ast.TryStmt{Position: pos, Body: body, Catch: catch, Finally: finally}
}

// --- patterns ---

func (p *Parser) parsePattern() ast.Pattern {
	pos := p.cur().Pos
	switch p.kind() {
	case token.IDENT:
		if p.cur().Lexeme == "_" {
			p.advance()
			return &ast.WildcardPattern{Position: pos}
		}
		name := p.advance().Lexeme
		return &ast.IdentPattern{Position: pos, Name: name}
	case token.LBRACKET:
		return p.parseArrayPattern()
	case token.LBRACE:
		return p.parseObjectPattern()
	default:
		lit := p.parseUnary()
		if p.match(token.DOTDOT) {
			end := p.parseUnary()
			return &ast.RangePattern{Position: pos, Start: lit, End: end, Inclusive: false}
		}
		if p.match(token.DOTDOTEQ) {
			end := p.parseUnary()
			return &ast.RangePattern{Position: pos, Start: lit, End: end, Inclusive: true}
		}
		return &ast.LiteralPattern{Position: pos, Value: lit}
	}
}

func (p *Parser) parseArrayPattern() ast.Pattern {
	pos := p.cur().Pos
	p.expect(token.LBRACKET, "to open array pattern")
	var elems []ast.ArrayPatternElem
	for !p.check(token.RBRACKET) && !p.atEnd() {
		if p.match(token.SPREAD) {
			elems = append(elems, ast.ArrayPatternElem{Pattern: p.parsePattern(), Rest: true})
		} else {
			elems = append(elems, ast.ArrayPatternElem{Pattern: p.parsePattern()})
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACKET, "to close array pattern")
	return &ast.ArrayPattern{Position: pos, Elements: elems}
}

func (p *Parser) parseObjectPattern() ast.Pattern {
	pos := p.cur().Pos
	p.expect(token.LBRACE, "to open object pattern")
	pat := &ast.ObjectPattern{Position: pos}
	for !p.check(token.RBRACE) && !p.atEnd() {
		if p.match(token.SPREAD) {
			pat.Rest = p.expect(token.IDENT, "rest binding name").Lexeme
			break
		}
		key := p.expect(token.IDENT, "object pattern key").Lexeme
		var sub ast.Pattern = &ast.IdentPattern{Position: p.cur().Pos, Name: key}
		if p.match(token.COLON) {
			sub = p.parsePattern()
		}
		var def ast.Expr
		if p.match(token.EQ) {
			def = p.parseExpr()
		}
		pat.Props = append(pat.Props, ast.ObjectPatternProp{Key: key, Value: sub, Default: def})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close object pattern")
	return pat
}

func (p *Parser) parseMatchPattern() ast.Pattern {
	first := p.parsePattern()
	if !p.check(token.PIPE) {
		return first
	}
	opts := []ast.Pattern{first}
	for p.match(token.PIPE) {
		opts = append(opts, p.parsePattern())
	}
	return &ast.OrPattern{Position: first.Pos(), Options: opts}
}
