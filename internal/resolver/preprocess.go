package resolver

import (
	"strings"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/value"
)

// PreprocessModule runs the five ordered AST normalization passes (§4.4)
// before resolution: raw-identifier stripping, qualified-identifier
// rewriting, literal-suffix default-value fixing, multi-assign splitting,
// and program merge. Each pass mutates mod.Body in place, except the
// multi-assign split and the program merge, which replace it wholesale
// since they change the statement count.
func PreprocessModule(mod *ast.Module) {
	stripRawIdentifiers(mod)
	rewriteQualifiedIdentifiers(mod)
	fixLiteralSuffixDefaults(mod)
	mod.Body = expandAssigns(mod.Body)
	mergeProgramDecls(mod)
}

// --- Pass 1: raw-identifier stripping -------------------------------------

// rawIdentTransformer strips one leading '$' from every Identifier and
// NamedTypeExpr component, letting a reserved word be used as a name when
// written `$schema`. String-literal keys ("$x") are untouched — the '$'
// there is ordinary string content, not an escape.
type rawIdentTransformer struct{}

func (rawIdentTransformer) Stmt(s ast.Stmt) ast.Stmt { return s }

func (rawIdentTransformer) Expr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Identifier:
		for i, name := range n.Names {
			n.Names[i] = strings.TrimPrefix(name, "$")
		}
	case *ast.NamedTypeExpr:
		n.Name = strings.TrimPrefix(n.Name, "$")
	}
	return e
}

func stripRawIdentifiers(mod *ast.Module) {
	ast.TransformModule(rawIdentTransformer{}, mod)
	for _, s := range mod.Body {
		stripDeclNames(s)
	}
}

// stripDeclNames strips '$' from declaration-site names the generic
// Transformer never visits (schema/rule/type-alias/attribute/param names
// are plain strings, not Identifier nodes).
func stripDeclNames(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.SchemaStmt:
		n.Name = strings.TrimPrefix(n.Name, "$")
		for _, a := range n.Attrs {
			a.Name = strings.TrimPrefix(a.Name, "$")
		}
	case *ast.RuleStmt:
		n.Name = strings.TrimPrefix(n.Name, "$")
	case *ast.TypeAliasStmt:
		n.Name = strings.TrimPrefix(n.Name, "$")
	}
}

// --- Pass 2: qualified-identifier rewrite ---------------------------------

// importAliases collects this module's own `import ... as alias` table.
func importAliases(mod *ast.Module) map[string]string {
	out := map[string]string{}
	for _, s := range mod.Body {
		if imp, ok := s.(*ast.ImportStmt); ok {
			alias := imp.Alias
			if alias == "" {
				parts := strings.Split(imp.Path, ".")
				alias = parts[len(parts)-1]
			}
			out[alias] = imp.Path
		}
	}
	return out
}

// localMask tracks names bound by an enclosing comprehension/quantifier/
// lambda, which must shadow an identically-named import alias. A bespoke
// recursive walker (rather than ast.Transformer) is needed here because
// the rewrite must push/pop mask entries around nested scopes — the
// generic Transformer only exposes a flat pre-order Expr/Stmt hook with no
// enter/exit pairing.
type localMask struct {
	parent *localMask
	names  map[string]bool
}

func (m *localMask) has(name string) bool {
	for cur := m; cur != nil; cur = cur.parent {
		if cur.names[name] {
			return true
		}
	}
	return false
}

func push(parent *localMask, names ...string) *localMask {
	m := &localMask{parent: parent, names: map[string]bool{}}
	for _, n := range names {
		m.names[n] = true
	}
	return m
}

func rewriteQualifiedIdentifiers(mod *ast.Module) {
	aliases := importAliases(mod)
	if len(aliases) == 0 {
		return
	}
	for _, s := range mod.Body {
		rewriteStmtQualified(aliases, nil, s)
	}
}

func rewriteStmtQualified(aliases map[string]string, mask *localMask, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		for _, t := range n.Targets {
			rewriteExprQualified(aliases, mask, t)
		}
		rewriteExprQualified(aliases, mask, n.Value)
	case *ast.AugAssignStmt:
		rewriteExprQualified(aliases, mask, n.Target)
		rewriteExprQualified(aliases, mask, n.Value)
	case *ast.UnificationStmt:
		rewriteExprQualified(aliases, mask, n.Value)
	case *ast.SchemaStmt:
		for _, a := range n.Attrs {
			if a.Default != nil {
				rewriteExprQualified(aliases, mask, a.Default)
			}
		}
		for _, c := range n.Checks {
			rewriteExprQualified(aliases, mask, c.Test)
			if c.Msg != nil {
				rewriteExprQualified(aliases, mask, c.Msg)
			}
		}
	case *ast.RuleStmt:
		for _, c := range n.Checks {
			rewriteExprQualified(aliases, mask, c.Test)
		}
	case *ast.IfStmt:
		rewriteExprQualified(aliases, mask, n.Cond)
		for _, b := range n.Body {
			rewriteStmtQualified(aliases, mask, b)
		}
		for _, b := range n.Else {
			rewriteStmtQualified(aliases, mask, b)
		}
	case *ast.AssertStmt:
		rewriteExprQualified(aliases, mask, n.Test)
		if n.Msg != nil {
			rewriteExprQualified(aliases, mask, n.Msg)
		}
		if n.If != nil {
			rewriteExprQualified(aliases, mask, n.If)
		}
	case *ast.ExprStmt:
		rewriteExprQualified(aliases, mask, n.Value)
	}
}

func rewriteExprQualified(aliases map[string]string, mask *localMask, e ast.Expr) {
	switch n := e.(type) {
	case *ast.Identifier:
		if len(n.Names) == 0 || mask.has(n.Names[0]) {
			return
		}
		if path, ok := aliases[n.Names[0]]; ok {
			n.Pkgpath = path
		}
	case *ast.ListExpr:
		for _, el := range n.Elts {
			rewriteExprQualified(aliases, mask, el)
		}
	case *ast.Starred:
		rewriteExprQualified(aliases, mask, n.Value)
	case *ast.ConfigExpr:
		for _, ent := range n.Entries {
			if ent.Key != nil {
				rewriteExprQualified(aliases, mask, ent.Key)
			}
			if ent.Value != nil {
				rewriteExprQualified(aliases, mask, ent.Value)
			}
			if ent.Spread != nil {
				rewriteExprQualified(aliases, mask, ent.Spread)
			}
		}
	case *ast.SchemaExpr:
		rewriteExprQualified(aliases, mask, n.Name)
		for _, a := range n.Args {
			rewriteExprQualified(aliases, mask, a)
		}
		if n.Config != nil {
			rewriteExprQualified(aliases, mask, n.Config)
		}
	case *ast.Selector:
		rewriteExprQualified(aliases, mask, n.Value)
	case *ast.Subscript:
		rewriteExprQualified(aliases, mask, n.Value)
		for _, e2 := range []ast.Expr{n.Index, n.Lo, n.Hi, n.Step} {
			if e2 != nil {
				rewriteExprQualified(aliases, mask, e2)
			}
		}
	case *ast.Call:
		rewriteExprQualified(aliases, mask, n.Func)
		for _, a := range n.Args {
			rewriteExprQualified(aliases, mask, a.Value)
		}
	case *ast.Unary:
		rewriteExprQualified(aliases, mask, n.Value)
	case *ast.Binary:
		rewriteExprQualified(aliases, mask, n.Left)
		rewriteExprQualified(aliases, mask, n.Right)
	case *ast.Compare:
		rewriteExprQualified(aliases, mask, n.Left)
		for _, r := range n.Rest {
			rewriteExprQualified(aliases, mask, r)
		}
	case *ast.If:
		rewriteExprQualified(aliases, mask, n.Cond)
		rewriteExprQualified(aliases, mask, n.Then)
		rewriteExprQualified(aliases, mask, n.Else)
	case *ast.ListComp:
		inner := maskCompClauses(aliases, mask, n.Clauses)
		rewriteExprQualified(aliases, inner, n.Elt)
	case *ast.DictComp:
		inner := maskCompClauses(aliases, mask, n.Clauses)
		rewriteExprQualified(aliases, inner, n.Key)
		rewriteExprQualified(aliases, inner, n.Value)
	case *ast.Quantifier:
		rewriteExprQualified(aliases, mask, n.Iter)
		inner := push(mask, n.Targets...)
		rewriteExprQualified(aliases, inner, n.Test)
	case *ast.Lambda:
		names := make([]string, len(n.Params))
		for i, p := range n.Params {
			if p.Default != nil {
				rewriteExprQualified(aliases, mask, p.Default)
			}
			names[i] = p.Name
		}
		inner := push(mask, names...)
		for _, s := range n.Body {
			rewriteStmtQualified(aliases, inner, s)
		}
	case *ast.JoinedString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				rewriteExprQualified(aliases, mask, p.Expr)
			}
		}
	}
}

func maskCompClauses(aliases map[string]string, mask *localMask, clauses []ast.CompClause) *localMask {
	inner := mask
	for _, cl := range clauses {
		rewriteExprQualified(aliases, inner, cl.Iter)
		var names []string
		for _, t := range cl.Targets {
			if id, ok := t.(*ast.Identifier); ok && len(id.Names) == 1 {
				names = append(names, id.Names[0])
			}
		}
		inner = push(inner, names...)
		for _, ifc := range cl.Ifs {
			rewriteExprQualified(aliases, inner, ifc)
		}
	}
	return inner
}

// --- Pass 3: literal-suffix default-value fix -----------------------------

// fixLiteralSuffixDefaults multiplies a schema attribute default's raw
// digits by its binary/decimal-unit suffix factor in place (`size: int =
// 1Ki` must default to 1024, not 1), since the lexer/parser only capture
// the pre-suffix digit value (§3 glossary).
func fixLiteralSuffixDefaults(mod *ast.Module) {
	for _, s := range mod.Body {
		sc, ok := s.(*ast.SchemaStmt)
		if !ok {
			continue
		}
		for _, a := range sc.Attrs {
			if nl, ok := a.Default.(*ast.NumberLit); ok && nl.Suffix != "" {
				factor := value.MultiplierFactor(nl.Suffix)
				if nl.IsFloat {
					nl.FloatVal *= float64(factor)
				} else {
					nl.IntVal *= factor
				}
				// The value is now scaled; clearing the suffix keeps the
				// evaluator from applying the factor a second time.
				nl.Suffix = ""
			}
		}
	}
}

// --- Pass 4: multi-assign split --------------------------------------------

// expandAssigns splits every `a = b = c = expr` AssignStmt (parsed as one
// node with multiple Targets) into N single-target AssignStmts, recursing
// into if/else bodies. Lambda bodies are expanded too, through
// expandLambdaAssigns, which walks the statement with ast.WalkStmt to
// collect every *ast.Lambda, since a Lambda can appear nested inside any
// expression.
func expandAssigns(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.AssignStmt:
			expandLambdaAssigns(n)
			if len(n.Targets) <= 1 {
				out = append(out, n)
				continue
			}
			for i, tg := range n.Targets {
				var ty ast.TypeExpr
				if i == len(n.Targets)-1 {
					ty = n.Type
				}
				out = append(out, &ast.AssignStmt{Base: n.Base, Targets: []ast.Expr{tg}, Type: ty, Value: n.Value})
			}
		case *ast.IfStmt:
			n.Body = expandAssigns(n.Body)
			n.Else = expandAssigns(n.Else)
			out = append(out, n)
		default:
			out = append(out, expandLambdaAssigns(s))
		}
	}
	return out
}

// expandLambdaAssigns finds every Lambda reachable from s (at any nesting
// depth) and expands its body's multi-assigns too.
func expandLambdaAssigns(s ast.Stmt) ast.Stmt {
	v := &lambdaCollector{}
	ast.WalkStmt(v, s)
	for _, lam := range v.lambdas {
		lam.Body = expandAssigns(lam.Body)
	}
	return s
}

type lambdaCollector struct {
	lambdas []*ast.Lambda
}

func (c *lambdaCollector) VisitStmt(ast.Stmt) error { return nil }

func (c *lambdaCollector) VisitExpr(e ast.Expr) error {
	if lam, ok := e.(*ast.Lambda); ok {
		c.lambdas = append(c.lambdas, lam)
	}
	return nil
}

// --- Pass 5: program merge --------------------------------------------------

// mergeProgramDecls folds a top-level `name: T` declaration together with
// a later top-level `name { ... }`-shaped statement for the same name
// into one UnificationStmt, the multi-statement form of the parser's
// single-token `name: T { ... }` shortcut (§4.4.5 supplement; the
// distilled spec is silent on the split form but original_source permits
// declaring a type separately from configuring it).
func mergeProgramDecls(mod *ast.Module) {
	out := make([]ast.Stmt, 0, len(mod.Body))
	consumed := make([]bool, len(mod.Body))

	for i, s := range mod.Body {
		if consumed[i] {
			continue
		}
		decl, ok := s.(*ast.AssignStmt)
		if !ok || decl.Value != nil || decl.Type == nil || len(decl.Targets) != 1 {
			out = append(out, s)
			continue
		}
		id, ok := decl.Targets[0].(*ast.Identifier)
		if !ok || len(id.Names) != 1 {
			out = append(out, s)
			continue
		}
		merged := false
		for j := i + 1; j < len(mod.Body); j++ {
			if consumed[j] {
				continue
			}
			if se, name, ok := asBareSchemaStmt(mod.Body[j]); ok && name == id.Names[0] {
				if nt, ok := decl.Type.(*ast.NamedTypeExpr); ok && se.Name.Names[0] == name {
					// Bare `name { ... }`: instantiate the declared type T.
					se.Name.Names = strings.Split(nt.Name, ".")
				}
				out = append(out, &ast.UnificationStmt{Base: decl.Base, Target: id, Value: se})
				consumed[j] = true
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, s)
		}
	}
	mod.Body = out
}

// asBareSchemaStmt reports whether s is a bare `name { ... }` expression
// statement or a plain `name = Schema { ... }` assignment, returning its
// SchemaExpr and target name.
func asBareSchemaStmt(s ast.Stmt) (*ast.SchemaExpr, string, bool) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		if se, ok := n.Value.(*ast.SchemaExpr); ok {
			return se, se.Name.Names[0], true
		}
	case *ast.AssignStmt:
		if len(n.Targets) == 1 && n.Type == nil {
			if id, ok := n.Targets[0].(*ast.Identifier); ok {
				if se, ok := n.Value.(*ast.SchemaExpr); ok {
					return se, id.Names[0], true
				}
			}
		}
	}
	return nil, "", false
}
