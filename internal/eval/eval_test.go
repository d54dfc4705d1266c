package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/resolver"
	"github.com/kcl-lang/compiler/internal/scope"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/parser"
	"github.com/kcl-lang/compiler/internal/value"
)

func evalSrc(t *testing.T, src string) (*value.Value, *diag.Handler) {
	t.Helper()
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile("t.k", []byte(src))
	p := parser.New(fid, []byte(src), h, ast.NewIDGen())
	mod := p.ParseModule("t.k", "main")
	require.False(t, h.HasErrors(), "parse: %v", h.Diagnostics())

	resolver.PreprocessModule(mod)

	res := resolver.New(h)
	pkgScope := scope.New(scope.Package, nil)
	res.ResolveModule(mod, "main", pkgScope)
	require.False(t, h.HasErrors(), "resolve: %v", h.Diagnostics())

	ev := New(h, res)
	out, err := ev.EvalModule(mod)
	if err != nil {
		return nil, h
	}
	return out, h
}

// seed test 3: schema attribute dotted-path override.
func TestSchemaDottedPathOverride(t *testing.T) {
	src := "schema Data:\n" +
		"    value: str\n" +
		"\n" +
		"schema Config:\n" +
		"    data: Data\n" +
		"\n" +
		"key = Config {\n" +
		"    data.value = \"value1\"\n" +
		"}\n"
	out, h := evalSrc(t, src)
	require.False(t, h.HasErrors(), "%v", h.Diagnostics())
	require.NotNil(t, out)

	key, ok := out.AsDict().Get("key")
	require.True(t, ok)
	data, ok := key.AsDict().Get("data")
	require.True(t, ok)
	v, ok := data.AsDict().Get("value")
	require.True(t, ok)
	assert.Equal(t, "value1", v.S)
}

func TestSchemaCheckBlockPasses(t *testing.T) {
	src := "schema Data:\n" +
		"    count: int\n" +
		"\n" +
		"    check:\n" +
		"        count > 0, \"count must be positive\"\n" +
		"\n" +
		"d = Data {\n" +
		"    count = 3\n" +
		"}\n"
	out, h := evalSrc(t, src)
	require.False(t, h.HasErrors(), "%v", h.Diagnostics())
	require.NotNil(t, out)
}

func TestSchemaCheckBlockFails(t *testing.T) {
	src := "schema Data:\n" +
		"    count: int\n" +
		"\n" +
		"    check:\n" +
		"        count > 0, \"count must be positive\"\n" +
		"\n" +
		"d = Data {\n" +
		"    count = -1\n" +
		"}\n"
	_, h := evalSrc(t, src)
	assert.True(t, h.HasErrors(), "a failing check block must surface a diagnostic")
}

func TestRuleInstantiation(t *testing.T) {
	src := "rule Positive:\n" +
		"    check:\n" +
		"        count > 0\n" +
		"\n" +
		"r = Positive {\n" +
		"    count = 5\n" +
		"}\n"
	out, h := evalSrc(t, src)
	require.False(t, h.HasErrors(), "%v", h.Diagnostics())
	require.NotNil(t, out)

	r, ok := out.AsDict().Get("r")
	require.True(t, ok)
	v, ok := r.AsDict().Get("count")
	require.True(t, ok)
	assert.Equal(t, int64(5), v.I)
}

func TestRuleInstantiationFails(t *testing.T) {
	src := "rule Positive:\n" +
		"    check:\n" +
		"        count > 0\n" +
		"\n" +
		"r = Positive {\n" +
		"    count = -5\n" +
		"}\n"
	_, h := evalSrc(t, src)
	assert.True(t, h.HasErrors(), "a failing rule check must surface a diagnostic")
}

func TestRequiredAttrMissing(t *testing.T) {
	src := "schema Data:\n" +
		"    value: str\n" +
		"\n" +
		"d = Data {}\n"
	_, h := evalSrc(t, src)
	assert.True(t, h.HasErrors(), "omitting a required attribute must be diagnosed")
}
