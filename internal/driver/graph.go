// Package driver implements the Build Driver (§4.7, module H): per-package
// load, a file/import graph, topological (Tarjan) ordering, a bounded
// parallel compile pool, and a content-addressed disk cache — the
// multi-package generalization of the teacher's single-file Interpreter
// driver (interp.go's Interpreter.Eval, which never had to order or
// parallelize across packages because Go's own go/build already did that
// for the teacher's input).
package driver

import "sort"

// PkgFile is one file belonging to a package, the node type of the file
// graph (§3: "PkgFile{path, pkg_path}").
type PkgFile struct {
	Path    string
	PkgPath string
}

// Graph is a directed graph of packages: an edge Pkg -> Dep means "Pkg
// imports something Dep provides" (§3). Nodes are package paths; a
// package's member files are tracked separately in Files.
type Graph struct {
	Files map[string][]PkgFile // pkgpath -> its files, in load order
	edges map[string]map[string]bool
	order []string // insertion order of package paths, for deterministic iteration
}

func NewGraph() *Graph {
	return &Graph{Files: map[string][]PkgFile{}, edges: map[string]map[string]bool{}}
}

// AddFile registers f under its package path, creating the package node if
// this is its first file.
func (g *Graph) AddFile(f PkgFile) {
	if _, ok := g.Files[f.PkgPath]; !ok {
		g.order = append(g.order, f.PkgPath)
		g.edges[f.PkgPath] = map[string]bool{}
	}
	g.Files[f.PkgPath] = append(g.Files[f.PkgPath], f)
}

// AddImport records that pkg imports dep, creating either node if absent.
func (g *Graph) AddImport(pkg, dep string) {
	if _, ok := g.edges[pkg]; !ok {
		g.order = append(g.order, pkg)
		g.edges[pkg] = map[string]bool{}
		if _, ok := g.Files[pkg]; !ok {
			g.Files[pkg] = nil
		}
	}
	if _, ok := g.edges[dep]; !ok {
		g.order = append(g.order, dep)
		g.edges[dep] = map[string]bool{}
		if _, ok := g.Files[dep]; !ok {
			g.Files[dep] = nil
		}
	}
	g.edges[pkg][dep] = true
}

// CycleError is returned by TopoSort when the graph is not a DAG; Cycle
// holds the smallest cyclic strongly connected component: either more
// than one package, or a single package that imports itself (§4.7.3).
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	s := "import cycle:"
	for i, p := range e.Cycle {
		if i > 0 {
			s += " ->"
		}
		s += " " + p
	}
	return s
}

// TopoSort returns package paths in leaves-first (dependency-before-
// dependent) order. On a cyclic graph it returns the smallest (by node
// count, then lexicographically smallest member for determinism) cyclic
// SCC (more than one package, or one package importing itself) as a
// *CycleError.
func (g *Graph) TopoSort() ([]string, error) {
	sccs := tarjanSCC(g)
	var cyclic []([]string)
	for _, scc := range sccs {
		if len(scc) > 1 || selfLoop(g, scc[0]) {
			cyclic = append(cyclic, scc)
		}
	}
	if len(cyclic) > 0 {
		sort.Slice(cyclic, func(i, j int) bool {
			if len(cyclic[i]) != len(cyclic[j]) {
				return len(cyclic[i]) < len(cyclic[j])
			}
			return smallestOf(cyclic[i]) < smallestOf(cyclic[j])
		})
		scc := append([]string{}, cyclic[0]...)
		sort.Strings(scc)
		return nil, &CycleError{Cycle: scc}
	}

	// sccs is already returned in reverse-topological (leaves-first for a
	// DAG collapsed to singletons) order by Tarjan's algorithm.
	out := make([]string, 0, len(sccs))
	for _, scc := range sccs {
		out = append(out, scc[0])
	}
	return out, nil
}

func selfLoop(g *Graph, pkg string) bool {
	return g.edges[pkg][pkg]
}

func smallestOf(ss []string) string {
	m := ss[0]
	for _, s := range ss[1:] {
		if s < m {
			m = s
		}
	}
	return m
}

// tarjanSCC computes strongly connected components of g in the classic
// one-pass, low-link style, returning them in the order Tarjan's
// algorithm pops them off its stack — which is reverse topological order
// for the condensation graph, i.e. leaves (no outgoing edges) first.
func tarjanSCC(g *Graph) [][]string {
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		deps := make([]string, 0, len(g.edges[v]))
		for d := range g.edges[v] {
			deps = append(deps, d)
		}
		sort.Strings(deps)
		for _, w := range deps {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := append([]string{}, g.order...)
	sort.Strings(nodes)
	for _, v := range nodes {
		if _, seen := indices[v]; !seen {
			strongconnect(v)
		}
	}
	return sccs
}
