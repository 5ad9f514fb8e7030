package diag

import (
	"fmt"
)

type ErrCode int

const (
	None ErrCode = iota
	Parse
	UnknownClass
	BadRange
	BadConstant
)

// Diagnostic is a recoverable, user-facing problem tied to a span of the
// input expression. Fatal lattice contract violations do not come through
// here; those panic.
type Diagnostic interface {
	Error() string
	Code() ErrCode
	// Span returns the byte offsets [from, to) in the source expression
	Span() (from, to int)
}

func FormatWithCode(e Diagnostic) string {
	from, to := e.Span()
	return fmt.Sprintf("(E%03d) at %d..%d: %s", e.Code(), from, to, e.Error())
}

type span struct {
	from, to int
}

func (s span) Span() (int, int) { return s.from, s.to }

// At builds the positional part of a diagnostic
func At(from, to int) interface{ Span() (int, int) } {
	return span{from: from, to: to}
}

type ParseError struct {
	Message string
	From    int
	To      int
}

func (e ParseError) Error() string    { return e.Message }
func (e ParseError) Code() ErrCode    { return Parse }
func (e ParseError) Span() (int, int) { return e.From, e.To }

type UnknownClassError struct {
	Name string
	From int
	To   int
}

func (e UnknownClassError) Error() string    { return fmt.Sprintf("unknown class %q", e.Name) }
func (e UnknownClassError) Code() ErrCode    { return UnknownClass }
func (e UnknownClassError) Span() (int, int) { return e.From, e.To }

type BadRangeError struct {
	Lo, Hi int64
	From   int
	To     int
}

func (e BadRangeError) Error() string {
	return fmt.Sprintf("range lower bound %d is above upper bound %d", e.Lo, e.Hi)
}
func (e BadRangeError) Code() ErrCode    { return BadRange }
func (e BadRangeError) Span() (int, int) { return e.From, e.To }

type BadConstantError struct {
	Literal string
	From    int
	To      int
}

func (e BadConstantError) Error() string {
	return fmt.Sprintf("constant %q does not fit its type", e.Literal)
}
func (e BadConstantError) Code() ErrCode    { return BadConstant }
func (e BadConstantError) Span() (int, int) { return e.From, e.To }
