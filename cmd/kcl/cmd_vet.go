package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/eval"
	"github.com/kcl-lang/compiler/internal/parser"
	"github.com/kcl-lang/compiler/internal/resolver"
	"github.com/kcl-lang/compiler/internal/scope"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/value"
)

var vetCmd = &cobra.Command{
	Use:   "vet [data-file] [kcl-file]",
	Short: "validate a JSON/YAML data file against a KCL schema",
	// §6: "the validator generates an AST assignment
	// attr = <literal-config-as-schema-expr> prepended to the user's
	// KCL source and compiles the result" — this builds that synthetic
	// assignment textually and runs it through the normal pipeline so
	// schema check blocks fire exactly as they would for hand-written
	// KCL (seed test 5).
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			exitUsage("vet: expected [data-file] [kcl-file]")
		}
		return doVet(args[0], args[1])
	},
}

func doVet(dataFile, kclFile string) error {
	dataRaw, err := os.ReadFile(dataFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	kclRaw, err := os.ReadFile(kclFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	data, err := decodeDataFile(dataFile, dataRaw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	schemaName, err := firstSchemaName(kclFile, kclRaw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	synthetic := fmt.Sprintf("_validate_subject = %s %s\n", schemaName, valueToKCLLiteral(data))
	combined := []byte(synthetic + string(kclRaw))

	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile(kclFile, combined)
	p := parser.New(fid, combined, h, ast.NewIDGen())
	mod := p.ParseModule(kclFile, "main")
	resolver.PreprocessModule(mod)

	res := resolver.New(h)
	pkgScope := scope.New(scope.Package, nil)
	res.ResolveModule(mod, "main", pkgScope)

	if !h.HasErrors() {
		ev := eval.New(h, res)
		if _, err := ev.EvalModule(mod); err != nil {
			// already recorded on h via diagErr; fall through to report
			_ = err
		}
	}

	if h.HasErrors() {
		emitDiagnostics(h)
		os.Exit(1)
	}
	fmt.Printf("%s: validates against %s\n", dataFile, schemaName)
	return nil
}

func decodeDataFile(path string, raw []byte) (*value.Value, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return value.FromYAML(string(raw))
	}
	if strings.HasSuffix(path, ".json") {
		return value.FromJSON(string(raw))
	}
	// Sniff: valid JSON decodes as-is; otherwise try YAML (JSON is a
	// syntactic subset of YAML anyway, so this mostly matters for
	// error-message fidelity on truly malformed input).
	var probe interface{}
	if json.Unmarshal(raw, &probe) == nil {
		return value.FromJSON(string(raw))
	}
	return value.FromYAML(string(raw))
}

func firstSchemaName(path string, raw []byte) (string, error) {
	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile(path, raw)
	p := parser.New(fid, raw, h, ast.NewIDGen())
	mod := p.ParseModule(path, "main")
	for _, s := range mod.Body {
		if sc, ok := s.(*ast.SchemaStmt); ok {
			return sc.Name, nil
		}
	}
	return "", fmt.Errorf("%s: no schema declaration found", path)
}

// valueToKCLLiteral renders v as a KCL config-literal expression, the
// source-level twin of writeJSON in internal/value/codec.go, reusing
// encoding/json for string-escaping exactly as that encoder does.
func valueToKCLLiteral(v *value.Value) string {
	var b strings.Builder
	writeKCLLiteral(&b, v)
	return b.String()
}

func writeKCLLiteral(b *strings.Builder, v *value.Value) {
	if v == nil {
		b.WriteString("None")
		return
	}
	switch v.Kind {
	case value.KNone, value.KUndefined:
		b.WriteString("None")
	case value.KBool:
		if v.B {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case value.KInt:
		b.WriteString(strconv.FormatInt(v.I, 10))
	case value.KFloat:
		b.WriteString(strconv.FormatFloat(v.F, 'g', -1, 64))
	case value.KStr:
		q, _ := json.Marshal(v.S)
		b.Write(q)
	case value.KList:
		b.WriteString("[")
		for i, e := range v.List.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeKCLLiteral(b, e)
		}
		b.WriteString("]")
	case value.KDict, value.KSchema:
		d := v.AsDict()
		b.WriteString("{")
		for _, k := range d.Order {
			q, _ := json.Marshal(k)
			b.Write(q)
			b.WriteString(" = ")
			writeKCLLiteral(b, d.Entries[k].Value)
			b.WriteString(" ")
		}
		b.WriteString("}")
	default:
		b.WriteString("None")
	}
}
