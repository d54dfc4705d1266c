package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoSortNoCycle(t *testing.T) {
	g := NewGraph()
	g.AddFile(PkgFile{Path: "a/a.k", PkgPath: "a"})
	g.AddFile(PkgFile{Path: "b/b.k", PkgPath: "b"})
	g.AddFile(PkgFile{Path: "c/c.k", PkgPath: "c"})
	g.AddImport("a", "b")
	g.AddImport("b", "c")

	order, err := g.TopoSort()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := map[string]int{}
	for i, p := range order {
		pos[p] = i
	}
	assert.Less(t, pos["c"], pos["b"], "c has no deps, must sort before its dependent b")
	assert.Less(t, pos["b"], pos["a"], "b must sort before its dependent a")
}

func TestTopoSortDetectsCycle(t *testing.T) {
	g := NewGraph()
	g.AddFile(PkgFile{Path: "a/a.k", PkgPath: "a"})
	g.AddFile(PkgFile{Path: "b/b.k", PkgPath: "b"})
	g.AddImport("a", "b")
	g.AddImport("b", "a")

	_, err := g.TopoSort()
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.GreaterOrEqual(t, len(cycleErr.Cycle), 2)
	assert.Contains(t, cycleErr.Cycle, "a")
	assert.Contains(t, cycleErr.Cycle, "b")
}

func TestTopoSortSelfImportIsCycle(t *testing.T) {
	g := NewGraph()
	g.AddFile(PkgFile{Path: "a/a.k", PkgPath: "a"})
	g.AddImport("a", "a")

	_, err := g.TopoSort()
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, cycleErr.Cycle, "a")
}

func TestTopoSortDeterministic(t *testing.T) {
	build := func() *Graph {
		g := NewGraph()
		g.AddFile(PkgFile{Path: "x/x.k", PkgPath: "x"})
		g.AddFile(PkgFile{Path: "y/y.k", PkgPath: "y"})
		g.AddFile(PkgFile{Path: "z/z.k", PkgPath: "z"})
		g.AddImport("x", "y")
		g.AddImport("x", "z")
		return g
	}
	o1, err := build().TopoSort()
	require.NoError(t, err)
	o2, err := build().TopoSort()
	require.NoError(t, err)
	assert.Equal(t, o1, o2)
}
