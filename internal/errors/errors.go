// Package errors defines the Raccoon runtime/diagnostic error model.
package errors

import (
	"fmt"
	"strings"

	"github.com/mattn/go-isatty"
	pkgerrors "github.com/pkg/errors"

	"github.com/raccoon-lang/raccoon/internal/token"
)

// Kind classifies a RaccoonError for catch-clause matching and rendering.
type Kind string

const (
	Lex        Kind = "LexError"
	Parse      Kind = "ParseError"
	Import     Kind = "ImportError"
	Name       Kind = "NameError"
	Type       Kind = "TypeError"
	Arithmetic Kind = "ArithmeticError"
	Index      Kind = "IndexError"
	Recursion  Kind = "RecursionError"
	Exception  Kind = "Exception" // user-thrown via `throw`
	NullAssert Kind = "NullAssertError"
	Internal   Kind = "InternalError"
)

// StackFrame is one entry of a captured call stack, innermost first.
type StackFrame struct {
	FuncName string
	Pos      token.Position
}

// RaccoonError is the single error type produced by every stage of the
// pipeline: lexer, parser, evaluator, and VM all return/throw this type
// (wrapped in the Go `error` interface) rather than ad-hoc error values.
type RaccoonError struct {
	ErrKind   Kind
	Message   string
	Position  token.Position
	Range     *token.Range
	CallStack []StackFrame
	Cause     error  // wrapped underlying Go error, if any
	Value     any    // the thrown value for Kind == Exception, nil otherwise
}

func New(kind Kind, pos token.Position, format string, args ...any) *RaccoonError {
	return &RaccoonError{ErrKind: kind, Message: fmt.Sprintf(format, args...), Position: pos}
}

// Wrap attaches cause as the underlying error of a new Internal RaccoonError,
// preserving pkg/errors' Cause() chain for callers further up the stack.
func Wrap(cause error, pos token.Position, format string, args ...any) *RaccoonError {
	return &RaccoonError{
		ErrKind:  Internal,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Cause:    pkgerrors.WithStack(cause),
	}
}

func (e *RaccoonError) Error() string {
	return fmt.Sprintf("%s: %s at %s", e.ErrKind, e.Message, e.Position)
}

// Unwrap exposes Cause to errors.Is/errors.As and to pkg/errors.Cause.
func (e *RaccoonError) Unwrap() error { return e.Cause }

func (e *RaccoonError) WithStack(frames []StackFrame) *RaccoonError {
	e.CallStack = frames
	return e
}

func (e *RaccoonError) WithRange(r token.Range) *RaccoonError {
	e.Range = &r
	return e
}

// Render produces the human-facing diagnostic: a header line, a source
// snippet with a caret under the offending column (when source is
// available), and the call stack innermost-first. Color is only emitted
// when out is a real terminal, per isatty.
func (e *RaccoonError) Render(source string, out colorSink) string {
	var b strings.Builder
	color := out != nil && isatty.IsTerminal(out.Fd())

	header := fmt.Sprintf("%s: %s", e.ErrKind, e.Message)
	if color {
		header = "\x1b[1;31m" + header + "\x1b[0m"
	}
	fmt.Fprintf(&b, "%s\n  --> %s\n", header, e.Position)

	if source != "" && e.Position.Line > 0 {
		lines := strings.Split(source, "\n")
		idx := e.Position.Line - 1
		if idx >= 0 && idx < len(lines) {
			lineText := lines[idx]
			fmt.Fprintf(&b, "   |\n%3d| %s\n   | %s", e.Position.Line, lineText, caret(e.Position.Column, color))
			b.WriteByte('\n')
		}
	}

	for _, f := range e.CallStack {
		fmt.Fprintf(&b, "    at %s (%s)\n", f.FuncName, f.Pos)
	}
	return b.String()
}

func caret(col int, color bool) string {
	pad := strings.Repeat(" ", max(col-1, 0))
	mark := "^"
	if color {
		mark = "\x1b[1;33m^\x1b[0m"
	}
	return pad + mark
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// colorSink is the minimal surface errors.Render needs from an output
// stream to decide whether to colorize (os.File satisfies this).
type colorSink interface {
	Fd() uintptr
}
