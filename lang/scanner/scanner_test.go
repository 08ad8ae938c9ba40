package scanner_test

import (
	"testing"

	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []scanner.Tok {
	t.Helper()
	var s scanner.Scanner
	s.Init([]byte(src))
	var toks []scanner.Tok
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF || tok.Kind == token.ILLEGAL {
			break
		}
	}
	return toks
}

func kinds(toks []scanner.Tok) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func TestPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "(){},.;+-*/^%")
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.SEMI, token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.CIRCUMFLEX, token.PERCENT, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
}

func TestCompoundAssign(t *testing.T) {
	toks := scanAll(t, "+= -= *= /= ^= %=")
	want := []token.Token{
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.CIRCUMFLEX_EQ, token.PERCENT_EQ, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
}

func TestComparisonOperators(t *testing.T) {
	toks := scanAll(t, "! != = == < <= > >=")
	want := []token.Token{
		token.BANG, token.BANG_EQ, token.EQ, token.EQ_EQ, token.LT, token.LE,
		token.GT, token.GE, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"123", "123"},
		{"123.456", "123.456"},
		{"0", "0"},
		{"1.", "1"}, // trailing dot with no digit after is not consumed
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks := scanAll(t, c.src)
			require.Equal(t, token.NUMBER, toks[0].Kind)
			require.Equal(t, c.want, toks[0].Lit)
		})
	}
}

func TestStrings(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "hello world", toks[0].Lit)
}

func TestMultilineString(t *testing.T) {
	toks := scanAll(t, "\"line one\nline two\"")
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "line one\nline two", toks[0].Lit)
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"oops`)
	require.Equal(t, token.ILLEGAL, toks[len(toks)-1].Kind)
}

func TestIdentifiersAndKeywords(t *testing.T) {
	toks := scanAll(t, "foo and def else False for fun Global if len lprint None or print return time True type var while")
	want := []token.Token{
		token.IDENT, token.AND, token.DEF, token.ELSE, token.FALSE, token.FOR,
		token.FUN, token.GLOBAL, token.IF, token.LEN, token.LPRINT, token.NONE,
		token.OR, token.PRINT, token.RETURN, token.TIME, token.TRUE, token.TYPE,
		token.VAR, token.WHILE, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
}

func TestIdentifierCaseSensitivity(t *testing.T) {
	toks := scanAll(t, "true false none global")
	for _, tk := range toks[:len(toks)-1] {
		require.Equal(t, token.IDENT, tk.Kind)
	}
}

func TestWhitespaceAndLineCounting(t *testing.T) {
	var s scanner.Scanner
	s.Init([]byte("a\nb\n\nc"))
	var lines []int
	for {
		tok := s.Next()
		if tok.Kind == token.EOF {
			break
		}
		lines = append(lines, tok.Pos.Line)
	}
	require.Equal(t, []int{1, 2, 4}, lines)
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}

func TestEOFIsSticky(t *testing.T) {
	var s scanner.Scanner
	s.Init([]byte(""))
	require.Equal(t, token.EOF, s.Next().Kind)
	require.Equal(t, token.EOF, s.Next().Kind)
}
