package lexer

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func assertKinds(t *testing.T, toks []token.Token, want ...token.Kind) {
	t.Helper()
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d kind = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestScanSimpleLetStatement(t *testing.T) {
	s := NewScanner("let x = 1;", "t")
	toks := s.ScanTokens()
	if len(s.Errors()) != 0 {
		t.Fatalf("unexpected lex errors: %v", s.Errors())
	}
	assertKinds(t, toks, token.LET, token.IDENT, token.EQ, token.INT, token.SEMICOLON, token.EOF)
}

func TestScanLongestMatchOperators(t *testing.T) {
	s := NewScanner(">>> >> >= > ?? ?. ... .. ..=", "t")
	toks := s.ScanTokens()
	assertKinds(t, toks,
		token.USHR, token.SHR, token.GE, token.GT,
		token.QUESTIONQUESTION, token.QUESTIONDOT,
		token.SPREAD, token.DOTDOT, token.DOTDOTEQ, token.EOF)
}

func TestScanKeywordVsIdentifier(t *testing.T) {
	s := NewScanner("class className", "t")
	toks := s.ScanTokens()
	assertKinds(t, toks, token.CLASS, token.IDENT, token.EOF)
}

func TestScanIntFloatBigintRadix(t *testing.T) {
	s := NewScanner("42 3.14 10n 0xFF 0b101 0o17", "t")
	toks := s.ScanTokens()
	assertKinds(t, toks, token.INT, token.FLOAT, token.BIGINT, token.INT, token.INT, token.INT, token.EOF)
	if toks[3].Radix != 16 {
		t.Fatalf("0xFF radix = %d, want 16", toks[3].Radix)
	}
	if toks[4].Radix != 2 {
		t.Fatalf("0b101 radix = %d, want 2", toks[4].Radix)
	}
	if toks[5].Radix != 8 {
		t.Fatalf("0o17 radix = %d, want 8", toks[5].Radix)
	}
}

func TestScanStringWithEscapes(t *testing.T) {
	s := NewScanner(`"a\nb\tc\"d"`, "t")
	toks := s.ScanTokens()
	if len(s.Errors()) != 0 {
		t.Fatalf("unexpected lex errors: %v", s.Errors())
	}
	if toks[0].Kind != token.STRING {
		t.Fatalf("expected a STRING token, got %v", toks[0].Kind)
	}
	want := "a\nb\tc\"d"
	if toks[0].Lexeme != want {
		t.Fatalf("Lexeme = %q, want %q", toks[0].Lexeme, want)
	}
}

func TestScanUnterminatedStringReportsError(t *testing.T) {
	s := NewScanner(`"abc`, "t")
	s.ScanTokens()
	if len(s.Errors()) == 0 {
		t.Fatalf("expected an error for an unterminated string literal")
	}
}

func TestScanLineCommentIsSkipped(t *testing.T) {
	s := NewScanner("let x = 1; // trailing comment\nlet y = 2;", "t")
	toks := s.ScanTokens()
	assertKinds(t, toks,
		token.LET, token.IDENT, token.EQ, token.INT, token.SEMICOLON,
		token.LET, token.IDENT, token.EQ, token.INT, token.SEMICOLON, token.EOF)
}

func TestScanBlockCommentIsSkipped(t *testing.T) {
	s := NewScanner("let /* comment\nspanning lines */ x = 1;", "t")
	toks := s.ScanTokens()
	assertKinds(t, toks, token.LET, token.IDENT, token.EQ, token.INT, token.SEMICOLON, token.EOF)
}

func TestScanUnterminatedBlockCommentReportsError(t *testing.T) {
	s := NewScanner("/* never closed", "t")
	s.ScanTokens()
	if len(s.Errors()) == 0 {
		t.Fatalf("expected an error for an unterminated block comment")
	}
}

func TestScanTemplateWithoutInterpolation(t *testing.T) {
	s := NewScanner("`plain text`", "t")
	toks := s.ScanTokens()
	if len(s.Errors()) != 0 {
		t.Fatalf("unexpected lex errors: %v", s.Errors())
	}
	assertKinds(t, toks, token.TEMPLATE_FULL, token.EOF)
	if toks[0].Lexeme != "plain text" {
		t.Fatalf("Lexeme = %q, want %q", toks[0].Lexeme, "plain text")
	}
}

func TestScanTemplateWithInterpolation(t *testing.T) {
	s := NewScanner("`hello ${name}!`", "t")
	toks := s.ScanTokens()
	if len(s.Errors()) != 0 {
		t.Fatalf("unexpected lex errors: %v", s.Errors())
	}
	assertKinds(t, toks, token.TEMPLATE_HEAD, token.IDENT, token.TEMPLATE_TAIL, token.EOF)
	if toks[0].Lexeme != "hello " {
		t.Fatalf("head Lexeme = %q, want %q", toks[0].Lexeme, "hello ")
	}
	if toks[2].Lexeme != "!" {
		t.Fatalf("tail Lexeme = %q, want %q", toks[2].Lexeme, "!")
	}
}

func TestScanTemplateWithBraceInsideInterpolation(t *testing.T) {
	s := NewScanner("`${ {a: 1}.a }`", "t")
	toks := s.ScanTokens()
	if len(s.Errors()) != 0 {
		t.Fatalf("unexpected lex errors: %v", s.Errors())
	}
	if toks[0].Kind != token.TEMPLATE_HEAD {
		t.Fatalf("expected TEMPLATE_HEAD first, got %v", toks[0].Kind)
	}
	last := toks[len(toks)-2]
	if last.Kind != token.TEMPLATE_TAIL {
		t.Fatalf("expected TEMPLATE_TAIL before EOF, got %v (all: %v)", last.Kind, kinds(toks))
	}
}

func TestScanUnicodeEscapeBraced(t *testing.T) {
	s := NewScanner(`"\u{1F600}"`, "t")
	toks := s.ScanTokens()
	if len(s.Errors()) != 0 {
		t.Fatalf("unexpected lex errors: %v", s.Errors())
	}
	if len([]rune(toks[0].Lexeme)) != 1 {
		t.Fatalf("expected the braced unicode escape to decode to a single rune, got %q", toks[0].Lexeme)
	}
}

func TestScanShebangIsSkipped(t *testing.T) {
	s := NewScanner("#!/usr/bin/env raccoon\nlet x = 1;", "t")
	toks := s.ScanTokens()
	assertKinds(t, toks, token.LET, token.IDENT, token.EQ, token.INT, token.SEMICOLON, token.EOF)
}

func TestScanInvalidCharacterReportsError(t *testing.T) {
	s := NewScanner("let x = #;", "t")
	s.ScanTokens()
	if len(s.Errors()) == 0 {
		t.Fatalf("expected an error for an unrecognized character")
	}
}

func TestScanPositionsTrackLineAndColumn(t *testing.T) {
	s := NewScanner("let\nx = 1;", "t")
	toks := s.ScanTokens()
	if toks[0].Pos.Line != 1 {
		t.Fatalf("'let' line = %d, want 1", toks[0].Pos.Line)
	}
	if toks[1].Pos.Line != 2 {
		t.Fatalf("'x' line = %d, want 2", toks[1].Pos.Line)
	}
}
