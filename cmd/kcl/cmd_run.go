package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/driver"
	"github.com/kcl-lang/compiler/internal/value"
)

var (
	runPkgMaps      []string
	runOverrides    []string
	runSelector     string
	runSettingsFile string
	runRecursive    bool
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "compile and evaluate KCL files, printing the resulting config as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			exitUsage("run: at least one input file is required")
		}
		return doRun(args)
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runPkgMaps, "package-map", "D", nil, "external package path mapping, name=path")
	runCmd.Flags().StringArrayVarP(&runOverrides, "overrides", "O", nil, "attribute override, dotted.path=value")
	runCmd.Flags().StringVarP(&runSelector, "selector", "S", "", "dotted path to select from the evaluated output")
	runCmd.Flags().StringVarP(&runSettingsFile, "setting", "Y", "", "YAML settings file (kcl_options/overrides)")
	runCmd.Flags().BoolVarP(&runRecursive, "recursive", "r", false, "recursive entry directories; accepted but has no effect: only the entry package's own directory is compiled, subdirectories are not loaded")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultCacheRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "kcl")
}

func doRun(args []string) error {
	if logger != nil {
		logger.Debug("run", zap.String("files", strings.Join(args, ",")))
	}

	cacheRoot := envOr("KCL_CACHE_PATH", defaultCacheRoot())
	pkgPath := os.Getenv("KCL_PKG_PATH")

	searchRoots := []string{filepath.Dir(args[0])}
	if pkgPath != "" {
		searchRoots = append(searchRoots, filepath.SplitList(pkgPath)...)
	}
	for _, m := range runPkgMaps {
		if i := strings.IndexByte(m, '='); i >= 0 {
			searchRoots = append(searchRoots, m[i+1:])
		}
	}

	if runSettingsFile != "" {
		extra, err := loadSettingsOverrides(runSettingsFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		runOverrides = append(runOverrides, extra...)
	}

	d := driver.New(cacheRoot, "exec")
	g, entryPkg, err := d.LoadEntry(args, searchRoots)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	results, buildErr := d.Build(context.Background(), g, entryPkg)
	if d.Handler.HasErrors() {
		emitDiagnostics(d.Handler)
		os.Exit(1)
	}
	if buildErr != nil {
		fmt.Fprintln(os.Stderr, buildErr)
		os.Exit(1)
	}

	res := results[entryPkg]
	if logger != nil {
		logger.Debug("build complete", zap.String("run_id", res.RunID), zap.String("entry_pkg", entryPkg))
	}
	out := res.Output
	if out == nil {
		out = value.NewDictValue()
	}

	for _, o := range runOverrides {
		if err := applyOverride(out, o); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if runSelector != "" {
		sel, err := selectPath(out, runSelector)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		out = sel
	}

	text, err := value.ToJSONString(out, value.EncodeOpts{Indent: 2, SortKeys: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(text)
	return nil
}

// applyOverride parses "a.b.c=value" and sets that dotted path in out,
// creating intermediate dicts as needed (§6: `-O override`). The RHS is
// parsed as JSON first (so numbers/bools/strings/lists/dicts all work),
// falling back to a bare string on parse failure.
func applyOverride(out *value.Value, spec string) error {
	i := strings.IndexByte(spec, '=')
	if i < 0 {
		return fmt.Errorf("invalid override %q: expected path=value", spec)
	}
	path := spec[:i]
	raw := spec[i+1:]

	rv, err := value.FromJSON(raw)
	if err != nil {
		rv = value.Str(raw)
	}

	parts := strings.Split(path, ".")
	d := out.AsDict()
	for i, p := range parts {
		if i == len(parts)-1 {
			d.Set(p, rv, ast.OpOverride)
			return nil
		}
		child, ok := d.Get(p)
		if !ok || !child.IsDictLike() {
			child = value.NewDictValue()
			d.Set(p, child, ast.OpOverride)
		}
		d = child.AsDict()
	}
	return nil
}

func selectPath(v *value.Value, path string) (*value.Value, error) {
	cur := v
	for _, p := range strings.Split(path, ".") {
		if !cur.IsDictLike() {
			return nil, fmt.Errorf("selector %q: %s is not a dict", path, p)
		}
		child, ok := cur.AsDict().Get(p)
		if !ok {
			return nil, fmt.Errorf("selector %q: no such attribute %q", path, p)
		}
		cur = child
	}
	return cur, nil
}

// loadSettingsOverrides reads a YAML settings file and returns any
// "overrides" list it declares as additional -O-style strings (§6's
// settings-file flag, -Y); the rest of kcl.yaml's schema (profile,
// strict_range_check, etc.) is not consumed since nothing in the core
// pipeline reads it.
func loadSettingsOverrides(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := value.FromYAML(string(raw))
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	if !v.IsDictLike() {
		return nil, nil
	}
	list, ok := v.AsDict().Get("overrides")
	if !ok || list.Kind != value.KList {
		return nil, nil
	}
	var out []string
	for _, e := range list.List.Elems {
		if e.Kind == value.KStr {
			out = append(out, e.S)
		}
	}
	return out, nil
}

func emitDiagnostics(h *diag.Handler) {
	emitter := diag.NewTextEmitter(os.Stderr, h)
	emitter.Emit(h.Diagnostics())
}
