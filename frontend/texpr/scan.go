// Package texpr parses the textual type expression language the driver
// and the repl accept, and evaluates it against a type context. The
// grammar is line oriented: a line is either a class declaration, which
// extends the hierarchy, or a type expression, which evaluates to a
// lattice type.
package texpr

import (
	"github.com/opal-lang/opal/internal/log"
)

var logger = log.DefaultLogger.With("section", "texpr")

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type token struct {
	kind tokKind
	text string
	from int
	to   int
}

type scanner struct {
	src  string
	pos  int
	toks []token
}

func isIdentRune(r byte, first bool) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		return true
	case r >= '0' && r <= '9':
		return !first
	}
	return false
}

func isDigit(r byte) bool { return r >= '0' && r <= '9' }

// scan tokenizes the whole line up front; the grammar is small enough
// that lookahead over a token slice beats a streaming lexer.
func scan(src string) []token {
	s := scanner{src: src}
	for s.pos < len(src) {
		c := src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.pos++
		case isIdentRune(c, true):
			s.ident()
		case isDigit(c):
			s.number(s.pos)
		case c == '-' && s.pos+1 < len(src) && isDigit(src[s.pos+1]):
			s.number(s.pos)
		default:
			s.toks = append(s.toks, token{kind: tokPunct, text: string(c), from: s.pos, to: s.pos + 1})
			s.pos++
		}
	}
	s.toks = append(s.toks, token{kind: tokEOF, from: len(src), to: len(src)})
	return s.toks
}

func (s *scanner) ident() {
	start := s.pos
	for s.pos < len(s.src) && isIdentRune(s.src[s.pos], false) {
		s.pos++
	}
	s.toks = append(s.toks, token{kind: tokIdent, text: s.src[start:s.pos], from: start, to: s.pos})
}

func (s *scanner) number(start int) {
	if s.src[s.pos] == '-' {
		s.pos++
	}
	for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		s.pos++
	}
	// one decimal point makes it a float literal
	if s.pos+1 < len(s.src) && s.src[s.pos] == '.' && isDigit(s.src[s.pos+1]) {
		s.pos++
		for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			s.pos++
		}
	}
	s.toks = append(s.toks, token{kind: tokNumber, text: s.src[start:s.pos], from: start, to: s.pos})
}
