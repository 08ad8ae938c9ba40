package token_test

import (
	"strings"
	"testing"

	"github.com/mna/wisp/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := token.ILLEGAL; tok < token.EOF+64; tok++ {
		// walk a bit past known tokens too, but only assert on the documented
		// range up to the last keyword; the array is exactly sized so this
		// loop bound is generous on purpose and just exercises String().
		_ = tok.String()
	}
	assert.Equal(t, "+", token.PLUS.String())
	assert.Equal(t, "def", token.DEF.String())
	assert.Equal(t, "None", token.NONE.String())
}

func TestTokenGoString(t *testing.T) {
	assert.Equal(t, "'+'", token.PLUS.GoString())
	assert.Equal(t, "'def'", token.DEF.GoString())
	assert.Equal(t, "identifier", token.IDENT.GoString())
	assert.Equal(t, "end of file", token.EOF.GoString())
}

func TestLookup(t *testing.T) {
	cases := []struct {
		lit  string
		want token.Token
	}{
		{"and", token.AND},
		{"def", token.DEF},
		{"else", token.ELSE},
		{"False", token.FALSE},
		{"for", token.FOR},
		{"fun", token.FUN},
		{"Global", token.GLOBAL},
		{"if", token.IF},
		{"len", token.LEN},
		{"lprint", token.LPRINT},
		{"None", token.NONE},
		{"or", token.OR},
		{"print", token.PRINT},
		{"return", token.RETURN},
		{"time", token.TIME},
		{"True", token.TRUE},
		{"type", token.TYPE},
		{"var", token.VAR},
		{"while", token.WHILE},
		// case-sensitivity: these must NOT match their keyword counterparts
		{"AND", token.IDENT},
		{"Def", token.IDENT},
		{"false", token.IDENT},
		{"true", token.IDENT},
		{"none", token.IDENT},
		{"global", token.IDENT},
		{"foobar", token.IDENT},
	}
	for _, c := range cases {
		t.Run(c.lit, func(t *testing.T) {
			require.Equal(t, c.want, token.Lookup(c.lit))
		})
	}
}

func TestIsCompoundAssign(t *testing.T) {
	cases := []struct {
		in     token.Token
		want   token.Token
		wantOK bool
	}{
		{token.PLUS_EQ, token.PLUS, true},
		{token.MINUS_EQ, token.MINUS, true},
		{token.STAR_EQ, token.STAR, true},
		{token.SLASH_EQ, token.SLASH, true},
		{token.CIRCUMFLEX_EQ, token.CIRCUMFLEX, true},
		{token.PERCENT_EQ, token.PERCENT, true},
		{token.PLUS, token.ILLEGAL, false},
		{token.EQ, token.ILLEGAL, false},
	}
	for _, c := range cases {
		got, ok := token.IsCompoundAssign(c.in)
		assert.Equal(t, c.wantOK, ok)
		if c.wantOK {
			assert.Equal(t, c.want, got)
		}
	}
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "line 3", token.Position{Line: 3}.String())
	assert.Equal(t, "-", token.Position{}.String())
}

func TestTokenNamesComplete(t *testing.T) {
	// every token below maxToken must have a non-empty String() so error
	// messages never render as a blank operator.
	for tok := token.ILLEGAL; tok < 70; tok++ {
		if s := tok.String(); s == "" && tok < token.WHILE+1 {
			t.Errorf("token %d missing a string representation", tok)
		}
	}
	require.True(t, strings.HasPrefix(token.GLOBAL.String(), "Global"))
}
