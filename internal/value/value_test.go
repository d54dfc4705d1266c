package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcl-lang/compiler/internal/ast"
)

func dictOf(t *testing.T, pairs ...interface{}) *Value {
	t.Helper()
	require.Equal(t, 0, len(pairs)%2, "pairs must be key,value,...")
	d := NewDict()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1].(*Value), ast.OpUnion)
	}
	return &Value{Kind: KDict, Dict: d}
}

func canon(t *testing.T, v *Value) string {
	t.Helper()
	s, err := ToJSONString(v, EncodeOpts{SortKeys: true})
	require.NoError(t, err)
	return s
}

func TestMergeIdempotence(t *testing.T) {
	src := dictOf(t, "a", Int(1), "b", dictOf(t, "c", Str("x")))
	once, err := MergeUnion(src, src, false)
	require.NoError(t, err)
	twice, err := MergeUnion(once, src, false)
	require.NoError(t, err)
	assert.Equal(t, canon(t, src), canon(t, once))
	assert.Equal(t, canon(t, src), canon(t, twice))
}

func TestMergeAssociativity(t *testing.T) {
	a := dictOf(t, "a", Int(1))
	b := dictOf(t, "b", Int(2))
	c := dictOf(t, "c", Int(3))

	ab, err := MergeUnion(a, b, false)
	require.NoError(t, err)
	abc1, err := MergeUnion(ab, c, false)
	require.NoError(t, err)

	bc, err := MergeUnion(b, c, false)
	require.NoError(t, err)
	abc2, err := MergeUnion(a, bc, false)
	require.NoError(t, err)

	assert.Equal(t, canon(t, abc1), canon(t, abc2))
}

func TestMergeOverrideWinsOverListOverrideOption(t *testing.T) {
	lhs := NewDictValue()
	lhs.Dict.Set("xs", NewList(Int(1), Int(2)), ast.OpUnion)

	rhs := NewDictValue()
	rhs.Dict.Set("xs", NewList(Int(9)), ast.OpOverride)

	merged, err := MergeUnion(lhs, rhs, false) // listOverride=false would normally concatenate
	require.NoError(t, err)
	got, ok := merged.AsDict().Get("xs")
	require.True(t, ok)
	require.Equal(t, 1, len(got.List.Elems))
	assert.Equal(t, int64(9), got.List.Elems[0].I)
}

func TestJSONRoundTrip(t *testing.T) {
	v := dictOf(t,
		"name", Str("Alice"),
		"age", Int(18),
		"tags", NewList(Str("a"), Str("b")),
		"nested", dictOf(t, "ok", Bool(true)),
	)
	s, err := ToJSONString(v, EncodeOpts{})
	require.NoError(t, err)
	back, err := FromJSON(s)
	require.NoError(t, err)
	assert.Equal(t, canon(t, v), canon(t, back))
}

func TestYAMLStreamRoundTrip(t *testing.T) {
	docs := []*Value{
		dictOf(t, "a", Int(1)),
		dictOf(t, "b", Int(2)),
		dictOf(t, "c", Int(3)),
	}
	s, err := ToYAMLStream(docs, EncodeOpts{})
	require.NoError(t, err)

	back, err := FromYAML(s)
	require.NoError(t, err)
	require.Equal(t, KList, back.Kind)
	require.Len(t, back.List.Elems, 3)
	for i, d := range docs {
		assert.Equal(t, canon(t, d), canon(t, back.List.Elems[i]))
	}
}

func TestYAMLSingleDocumentNotWrapped(t *testing.T) {
	v := dictOf(t, "only", Int(1))
	s, err := ToYAMLString(v, EncodeOpts{})
	require.NoError(t, err)
	back, err := FromYAML(s)
	require.NoError(t, err)
	assert.Equal(t, KDict, back.Kind)
	assert.Equal(t, canon(t, v), canon(t, back))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "int", KInt.String())
	assert.Equal(t, "schema", KSchema.String())
	assert.Equal(t, "?", Kind(999).String())
}
