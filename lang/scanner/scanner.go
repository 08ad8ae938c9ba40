// Package scanner turns wisp source text into a stream of tokens.
package scanner

import (
	"fmt"

	"github.com/mna/wisp/lang/token"
)

// A Tok is a single scanned token: its kind, its source lexeme, and the
// line the scanner was on when the token ended (for a string literal
// spanning several lines, its last line).
type Tok struct {
	Kind token.Token
	Lit  string
	Pos  token.Position
}

func (t Tok) String() string {
	return fmt.Sprintf("%s %q (%s)", t.Kind, t.Lit, t.Pos)
}

// A Scanner turns a byte slice of source text into a sequence of Toks,
// one per call to Next. It keeps the same three-field state the original
// tokenizer does: the start of the current lexeme, the current scan
// position, and the current line (spec.md §4.2: "start, current, line").
type Scanner struct {
	src     []byte
	start   int
	current int
	line    int
}

// Init resets s to scan src from the beginning.
func (s *Scanner) Init(src []byte) {
	s.src = src
	s.start = 0
	s.current = 0
	s.line = 1
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) advance() byte {
	b := s.src[s.current]
	s.current++
	return b
}

func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.src[s.current] != want {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) skipWhitespace() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.current++
		case '\n':
			s.line++
			s.current++
		default:
			return
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlphaNumeric(b byte) bool { return isAlpha(b) || isDigit(b) }

func (s *Scanner) make(kind token.Token) Tok {
	return Tok{Kind: kind, Lit: string(s.src[s.start:s.current]), Pos: token.Position{Line: s.line}}
}

func (s *Scanner) errorTok(msg string) Tok {
	return Tok{Kind: token.ILLEGAL, Lit: msg, Pos: token.Position{Line: s.line}}
}

// Next scans and returns the next token. At end of input it returns an
// EOF token forever; on any unrecognized character or unterminated string
// it returns an ILLEGAL token whose Lit carries a short diagnostic.
func (s *Scanner) Next() Tok {
	s.skipWhitespace()
	s.start = s.current
	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case ';':
		return s.make(token.SEMI)
	case '+':
		if s.match('=') {
			return s.make(token.PLUS_EQ)
		}
		return s.make(token.PLUS)
	case '-':
		if s.match('=') {
			return s.make(token.MINUS_EQ)
		}
		return s.make(token.MINUS)
	case '*':
		if s.match('=') {
			return s.make(token.STAR_EQ)
		}
		return s.make(token.STAR)
	case '/':
		if s.match('=') {
			return s.make(token.SLASH_EQ)
		}
		return s.make(token.SLASH)
	case '^':
		if s.match('=') {
			return s.make(token.CIRCUMFLEX_EQ)
		}
		return s.make(token.CIRCUMFLEX)
	case '%':
		if s.match('=') {
			return s.make(token.PERCENT_EQ)
		}
		return s.make(token.PERCENT)
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.match('=') {
			return s.make(token.EQ_EQ)
		}
		return s.make(token.EQ)
	case '<':
		if s.match('=') {
			return s.make(token.LE)
		}
		return s.make(token.LT)
	case '>':
		if s.match('=') {
			return s.make(token.GE)
		}
		return s.make(token.GT)
	case '"':
		return s.string()
	}

	return s.errorTok(fmt.Sprintf("unexpected character %q", c))
}

func (s *Scanner) identifier() Tok {
	for isAlphaNumeric(s.peek()) {
		s.current++
	}
	lit := string(s.src[s.start:s.current])
	return s.make(token.Lookup(lit))
}

// number scans a decimal literal with at most one `.` followed by at
// least one digit; a trailing `.` with no digits after it is not part of
// the number (e.g. `1.` scans `1` then a separate `.` token), matching
// the original's single-lookahead-digit check before consuming the dot.
func (s *Scanner) number() Tok {
	for isDigit(s.peek()) {
		s.current++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.current++ // consume the '.'
		for isDigit(s.peek()) {
			s.current++
		}
	}
	return s.make(token.NUMBER)
}

// string scans a double-quoted literal. It may span multiple lines and
// has no escape sequences; an unterminated string yields ILLEGAL.
func (s *Scanner) string() Tok {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.current++
	}
	if s.atEnd() {
		return s.errorTok("unterminated string")
	}
	s.current++ // closing quote
	lit := string(s.src[s.start+1 : s.current-1])
	return Tok{Kind: token.STRING, Lit: lit, Pos: token.Position{Line: s.line}}
}
