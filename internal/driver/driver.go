package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/eval"
	"github.com/kcl-lang/compiler/internal/parser"
	"github.com/kcl-lang/compiler/internal/resolver"
	"github.com/kcl-lang/compiler/internal/scope"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/value"
)

// PackageResult is the compiled artifact of one package: its resolved
// module scope plus, for the entry package only, an evaluated output
// Value (§4.7.4: "either evaluate (tree-walk) or emit artifacts").
type PackageResult struct {
	PkgPath string
	Modules []*ast.Module
	Scope   *scope.Scope
	Output  *value.Value // nil for non-entry packages
	RunID   string       // correlates this result back to its Build invocation (§5)
}

// Driver owns one build invocation: the source map, diagnostics, file
// graph, and worker pool, the generalization of the teacher's single
// Interpreter into a multi-package, parallel, cached pipeline (§4.7).
type Driver struct {
	SM       *source.Map
	Handler  *diag.Handler
	Cache    *Cache
	MaxProcs int // worker pool bound; defaults to runtime.NumCPU()

	ids *ast.IDGen

	cancelled bool // soft-cancel flag (§5)
}

// New returns a Driver with a fresh source map and diagnostics handler,
// and a disk cache rooted at cacheRoot (commonly $KCL_CACHE_PATH).
func New(cacheRoot, target string) *Driver {
	sm := source.NewMap()
	return &Driver{
		SM:       sm,
		Handler:  diag.NewHandler(sm),
		Cache:    NewCache(cacheRoot, target),
		MaxProcs: runtime.NumCPU(),
		ids:      ast.NewIDGen(),
	}
}

// Cancel raises the soft-cancel flag. Build checks the flag only before
// handing each package to the worker pool: once it is set no further
// packages are started, and packages already handed over run through
// every phase to completion.
func (d *Driver) Cancel() { d.cancelled = true }

// LoadEntry discovers the package graph reachable from the given entry
// files (§4.7.1-2): a directory package is every *.k file in that
// directory's dir, concatenated in lexicographic order; imports are
// resolved to sibling directories under searchRoots.
func (d *Driver) LoadEntry(entryFiles []string, searchRoots []string) (*Graph, string, error) {
	g := NewGraph()
	if len(entryFiles) == 0 {
		return nil, "", fmt.Errorf("no entry files given")
	}
	entryDir := filepath.Dir(entryFiles[0])
	entryPkg := pkgPathFor(entryDir, searchRoots)

	visited := map[string]bool{}
	var loadDir func(dir, pkgPath string) error
	loadDir = func(dir, pkgPath string) error {
		if visited[pkgPath] {
			return nil
		}
		visited[pkgPath] = true

		files, err := kFilesIn(dir)
		if err != nil {
			return err
		}
		sort.Strings(files)
		for _, f := range files {
			g.AddFile(PkgFile{Path: f, PkgPath: pkgPath})
		}

		for _, f := range files {
			contents, err := os.ReadFile(f)
			if err != nil {
				d.Handler.Errorf(source.Span{}, "%s: %s", f, err)
				continue
			}
			for _, imp := range scanImports(contents) {
				depDir := resolveImportDir(imp, searchRoots)
				if depDir == "" {
					continue
				}
				depPkg := pkgPathFor(depDir, searchRoots)
				g.AddImport(pkgPath, depPkg)
				if err := loadDir(depDir, depPkg); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := loadDir(entryDir, entryPkg); err != nil {
		return nil, "", err
	}
	return g, entryPkg, nil
}

func kFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".k") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func pkgPathFor(dir string, searchRoots []string) string {
	for _, root := range searchRoots {
		if rel, err := filepath.Rel(root, dir); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(dir)
}

// scanImports does a line-oriented scan for `import a.b.c [as d]`
// statements, sufficient for graph discovery before the real lexer runs
// on each package (the driver needs the import graph before it can
// decide a compile order, so it cannot wait for per-package parsing).
func scanImports(src []byte) []string {
	var out []string
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "import ") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, "import "))
		if i := strings.Index(rest, " as "); i >= 0 {
			rest = rest[:i]
		}
		rest = strings.TrimSpace(rest)
		if rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

func resolveImportDir(pkgPath string, searchRoots []string) string {
	rel := strings.ReplaceAll(pkgPath, ".", string(filepath.Separator))
	for _, root := range searchRoots {
		candidate := filepath.Join(root, rel)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Build runs steps 4-5 of §4.7 over g in dependency order: parallel
// compile bounded by d.MaxProcs workers (errgroup.SetLimit), evaluating
// only the entry package and otherwise just resolving to populate each
// package's exported scope for importers.
func (d *Driver) Build(ctx context.Context, g *Graph, entryPkg string) (map[string]*PackageResult, error) {
	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}

	// runID correlates every PackageResult from this invocation so a
	// caller logging concurrent builds (e.g. cmd/kcl's zap logger) can
	// tell which diagnostics and outputs belong together (§5).
	runID := uuid.New().String()

	results := map[string]*PackageResult{}
	pkgScopes := map[string]*scope.Scope{}

	// A per-package completion channel (§5: "the driver suspends...
	// waiting on the channel that carries per-package completion
	// messages"); a worker blocks on its own dependencies' channels
	// before compiling and closes its own when done, so a package is
	// never dispatched before every package it imports has posted.
	done := make(map[string]chan struct{}, len(order))
	for _, pkgPath := range order {
		done[pkgPath] = make(chan struct{})
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.MaxProcs)

	var mu sync.Mutex

	for _, pkgPath := range order {
		pkgPath := pkgPath
		deps := make([]string, 0, len(g.edges[pkgPath]))
		for dep := range g.edges[pkgPath] {
			if dep != pkgPath {
				deps = append(deps, dep)
			}
		}
		if d.cancelled {
			break
		}
		eg.Go(func() error {
			for _, dep := range deps {
				select {
				case <-done[dep]:
				case <-egCtx.Done():
					return egCtx.Err()
				}
			}
			defer close(done[pkgPath])

			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			res, err := d.compilePackage(pkgPath, g, pkgScopes, pkgPath == entryPkg)
			if res != nil {
				res.RunID = runID
			}
			if err != nil {
				return err
			}
			mu.Lock()
			results[pkgPath] = res
			pkgScopes[pkgPath] = res.Scope
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// compilePackage runs lexer->parser->preprocess->resolver for every file
// in pkgPath (concatenated in lexicographic order per §4.7.1), checks the
// disk cache first, and evaluates the result if this is the entry
// package (§4.7.4).
func (d *Driver) compilePackage(pkgPath string, g *Graph, pkgScopes map[string]*scope.Scope, isEntry bool) (*PackageResult, error) {
	files := g.Files[pkgPath]
	contentsByPath := map[string][]byte{}
	for _, f := range files {
		c, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		contentsByPath[f.Path] = c
	}
	fp := Fingerprint(contentsByPath)
	var cachedOutput *value.Value
	if artPath, hit := d.Cache.Lookup(pkgPath, fp); hit && isEntry {
		if raw, err := os.ReadFile(artPath); err == nil {
			if v, err := value.FromJSON(string(raw)); err == nil {
				cachedOutput = v
			}
		}
	}

	res := resolver.New(d.Handler)
	pkgScope := scope.New(scope.Package, nil)
	pkgScope.PkgPath = pkgPath

	var modules []*ast.Module
	for _, f := range files {
		fid := d.SM.AddFile(f.Path, contentsByPath[f.Path])
		p := parser.New(fid, contentsByPath[f.Path], d.Handler, d.ids)
		mod := p.ParseModule(f.Path, pkgPath)
		resolver.PreprocessModule(mod)
		res.ResolveModule(mod, pkgPath, pkgScope)
		modules = append(modules, mod)
	}

	out := &PackageResult{PkgPath: pkgPath, Modules: modules, Scope: pkgScope}

	if isEntry && cachedOutput != nil {
		out.Output = cachedOutput
		return out, nil
	}

	if isEntry && !d.Handler.HasErrors() {
		ev := eval.New(d.Handler, res)
		var merged *value.Value
		for _, mod := range modules {
			v, err := ev.EvalModule(mod)
			if err != nil {
				return out, err
			}
			if merged == nil {
				merged = v
			} else {
				m, err := value.MergeUnion(merged, v, false)
				if err != nil {
					return out, err
				}
				merged = m
			}
		}
		out.Output = merged

		if artifact, err := value.ToJSONString(merged, value.EncodeOpts{}); err == nil {
			if _, err := d.Cache.Store(pkgPath, fp, []byte(artifact)); err != nil {
				d.Handler.Warnf(source.Span{}, "cache store failed for %s: %s", pkgPath, err)
			}
		}
	}

	return out, nil
}
