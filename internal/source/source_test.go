package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLineCol(t *testing.T) {
	m := NewMap()
	fid := m.AddFile("t.k", []byte("a = 1\nb = 2\nc = 3\n"))

	line, col := m.LookupLineCol(fid, 0)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)

	// offset 6 is the 'b' on line 2.
	line, col = m.LookupLineCol(fid, 6)
	assert.Equal(t, 2, line)
	assert.Equal(t, 1, col)

	// offset 12 is the 'c' on line 3.
	line, col = m.LookupLineCol(fid, 12)
	assert.Equal(t, 3, line)
	assert.Equal(t, 1, col)
}

func TestSpanToDiagnosticString(t *testing.T) {
	m := NewMap()
	fid := m.AddFile("t.k", []byte("a = 1\nbbbb\n"))
	s := m.SpanToDiagnosticString(Span{File: fid, Lo: 6, Hi: 10})
	assert.Equal(t, "t.k:2:1: 2:5", s)
}

func TestAddFileAssignsDistinctIDs(t *testing.T) {
	m := NewMap()
	a := m.AddFile("a.k", []byte("x = 1\n"))
	b := m.AddFile("b.k", []byte("y = 2\n"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, "a.k", m.Path(a))
	assert.Equal(t, "b.k", m.Path(b))
}

func TestInternerRoundTrip(t *testing.T) {
	it := NewInterner("schema", "rule", "import")
	schemaSym := it.Intern("schema")
	assert.Equal(t, "schema", it.Resolve(schemaSym))

	fooSym1 := it.Intern("foo")
	fooSym2 := it.Intern("foo")
	assert.Equal(t, fooSym1, fooSym2, "interning the same string twice must return the same symbol")
	assert.NotEqual(t, schemaSym, fooSym1)
	require.Equal(t, "foo", it.Resolve(fooSym1))
}
