package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/token"
)

func parseExprStmt(t *testing.T, src string) ast.Expr {
	t.Helper()
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile("t.k", []byte(src))
	p := New(fid, []byte(src), h, ast.NewIDGen())
	mod := p.ParseModule("t.k", "main")
	require.False(t, h.HasErrors(), "%v", h.Diagnostics())
	require.Len(t, mod.Body, 1)
	as, ok := mod.Body[0].(*ast.AssignStmt)
	require.True(t, ok, "expected AssignStmt, got %T", mod.Body[0])
	return as.Value
}

func binOp(t *testing.T, e ast.Expr) (token.Kind, ast.Expr, ast.Expr) {
	t.Helper()
	b, ok := e.(*ast.Binary)
	require.True(t, ok, "expected *ast.Binary, got %T", e)
	return b.Op, b.Left, b.Right
}

func intLit(t *testing.T, e ast.Expr) int64 {
	t.Helper()
	n, ok := e.(*ast.NumberLit)
	require.True(t, ok, "expected *ast.NumberLit, got %T", e)
	return n.IntVal
}

// TestBinaryPrecedence is seed test case 1: `*` binds tighter than `+`/`-`,
// and `+`/`-` are left-associative.
func TestBinaryPrecedence(t *testing.T) {
	// 1 + 2 * 3 -> Binary(+, 1, Binary(*, 2, 3))
	e := parseExprStmt(t, "x = 1 + 2 * 3\n")
	op, l, r := binOp(t, e)
	require.Equal(t, token.Plus, op)
	require.Equal(t, int64(1), intLit(t, l))
	rop, rl, rr := binOp(t, r)
	require.Equal(t, token.Star, rop)
	require.Equal(t, int64(2), intLit(t, rl))
	require.Equal(t, int64(3), intLit(t, rr))

	// 1 + 2 * 3 - 4 -> Binary(-, Binary(+, 1, Binary(*, 2, 3)), 4)
	e2 := parseExprStmt(t, "x = 1 + 2 * 3 - 4\n")
	op2, l2, r2 := binOp(t, e2)
	require.Equal(t, token.Minus, op2)
	require.Equal(t, int64(4), intLit(t, r2))
	innerOp, _, _ := binOp(t, l2)
	require.Equal(t, token.Plus, innerOp)
}

func TestParseSchemaStmt(t *testing.T) {
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	src := "schema Data:\n    value: str\n\nschema Config:\n    data: Data\n"
	fid := sm.AddFile("t.k", []byte(src))
	p := New(fid, []byte(src), h, ast.NewIDGen())
	mod := p.ParseModule("t.k", "main")
	require.False(t, h.HasErrors(), "%v", h.Diagnostics())
	require.Len(t, mod.Body, 2)
	s0, ok := mod.Body[0].(*ast.SchemaStmt)
	require.True(t, ok)
	require.Equal(t, "Data", s0.Name)
	require.Len(t, s0.Attrs, 1)
	require.Equal(t, "value", s0.Attrs[0].Name)
}

func TestParseSchemaCycle(t *testing.T) {
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	src := "schema A(B):\n    x: int\n\nschema B(A):\n    y: int\n"
	fid := sm.AddFile("t.k", []byte(src))
	p := New(fid, []byte(src), h, ast.NewIDGen())
	mod := p.ParseModule("t.k", "main")
	require.False(t, h.HasErrors())
	require.Len(t, mod.Body, 2)
	a := mod.Body[0].(*ast.SchemaStmt)
	b := mod.Body[1].(*ast.SchemaStmt)
	require.NotNil(t, a.Base_)
	require.Equal(t, "B", a.Base_.Name)
	require.NotNil(t, b.Base_)
	require.Equal(t, "A", b.Base_.Name)
}
