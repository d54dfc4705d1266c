package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile("t.k", []byte(src))
	return Tokenize(fid, []byte(src), h)
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexSmoke(t *testing.T) {
	toks := tokenize(t, "  lambda { println(\"kclvm\"); }\n")
	got := kinds(toks)
	want := []token.Kind{
		token.Indent, token.Ident, token.Space, token.OpenBrace, token.Space,
		token.Ident, token.OpenParen, token.Str, token.CloseParen, token.Semi,
		token.Space, token.CloseBrace, token.Newline, token.Dedent, token.Eof,
	}
	assert.Equal(t, want, got)

	var str *token.Token
	for i := range toks {
		if toks[i].Kind == token.Str {
			str = &toks[i]
		}
	}
	require.NotNil(t, str)
	require.NotNil(t, str.Lit)
	assert.True(t, str.Lit.Terminated)
	assert.False(t, str.Lit.Triple)
	assert.Equal(t, 7, str.Lit.SuffixStart)
}

func TestIndentBalance(t *testing.T) {
	src := "schema A:\n    x: int\n    y: int\nschema B:\n    z: str\n"
	toks := tokenize(t, src)
	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.Indent:
			indents++
		case token.Dedent:
			dedents++
		}
	}
	assert.Equal(t, indents, dedents, "every Indent must be balanced by a Dedent before Eof")
}

func TestLexOperators(t *testing.T) {
	toks := tokenize(t, "a += 1\nb <<= 2\nc ?. d\n")
	got := kinds(toks)
	assert.Contains(t, got, token.PlusEq)
	assert.Contains(t, got, token.LShiftEq)
	assert.Contains(t, got, token.OptDot)
}

func TestLexUnterminatedString(t *testing.T) {
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile("t.k", []byte(`a = "oops`))
	Tokenize(fid, []byte(`a = "oops`), h)
	assert.True(t, h.HasErrors())
}
