package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/parser"
	"github.com/kcl-lang/compiler/internal/source"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [path]",
	Short: "check that a KCL file parses; report diagnostics",
	// The pretty-printer pass itself is out of core scope (§1's
	// Non-goals list "fmt/lint passes" as interface-level stubs), so
	// fmt parses and re-validates the file but writes nothing back;
	// a clean parse prints the file path and exits 0.
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			exitUsage("fmt: expected exactly one path")
		}
		return doFmt(args[0])
	},
}

func doFmt(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sm := source.NewMap()
	h := diag.NewHandler(sm)
	fid := sm.AddFile(path, src)
	p := parser.New(fid, src, h, ast.NewIDGen())
	p.ParseModule(path, "main")

	if h.HasErrors() {
		emitDiagnostics(h)
		os.Exit(1)
	}
	fmt.Println(path)
	return nil
}
