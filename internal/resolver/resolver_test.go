package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/parser"
	"github.com/kcl-lang/compiler/internal/scope"
	"github.com/kcl-lang/compiler/internal/source"
)

func resolveSrc(t *testing.T, src string) *diag.Handler {
	t.Helper()
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile("t.k", []byte(src))
	p := parser.New(fid, []byte(src), h, ast.NewIDGen())
	mod := p.ParseModule("t.k", "main")
	require.False(t, h.HasErrors(), "parse: %v", h.Diagnostics())

	PreprocessModule(mod)
	r := New(h)
	r.ResolveModule(mod, "main", scope.New(scope.Package, nil))
	return h
}

// seed test 4: a two-schema inheritance cycle must be diagnosed naming
// both participants, not silently accepted or left to hang evaluation.
func TestSchemaCycleDiagnosed(t *testing.T) {
	src := "schema A(B):\n    x: int\n\nschema B(A):\n    y: int\n"
	h := resolveSrc(t, src)
	require.True(t, h.HasErrors(), "a schema inheritance cycle must be diagnosed")

	var found bool
	for _, d := range h.Diagnostics() {
		for _, m := range d.Messages {
			if containsBoth(m.Text, "A", "B") {
				found = true
			}
		}
	}
	assert.True(t, found, "the cycle diagnostic must name both participating schemas")
}

func TestNoCycleNoDiagnostic(t *testing.T) {
	src := "schema Data:\n    value: str\n\nschema Config:\n    data: Data\n"
	h := resolveSrc(t, src)
	assert.False(t, h.HasErrors(), "a non-cyclic schema chain must not be diagnosed: %v", h.Diagnostics())
}

func containsBoth(s, a, b string) bool {
	return strings.Contains(s, a) && strings.Contains(s, b)
}
