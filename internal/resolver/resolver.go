// Package resolver implements §4.5: scope building, name resolution, and
// type inference/checking over a parsed Module, accumulating diagnostics
// into a Handler rather than aborting (generalizing the teacher's
// panic/recover-based gta/cfg passes into the spec's "continue with
// best-effort Any" policy).
package resolver

import (
	"strings"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/scope"
	"github.com/kcl-lang/compiler/internal/types"
)

// Resolver holds the per-package type table and the NodeID->Type side
// table the spec requires ("every AST expression id maps to exactly one
// Type after resolution", §3).
type Resolver struct {
	h     *diag.Handler
	Table *types.TypeTable
	types map[ast.NodeID]*types.Type
	Scope *scope.Scope // package scope, populated by ResolveModule
}

func New(h *diag.Handler) *Resolver {
	return &Resolver{h: h, Table: types.NewTypeTable(), types: map[ast.NodeID]*types.Type{}}
}

func (r *Resolver) TypeOf(id ast.NodeID) *types.Type { return r.types[id] }

func (r *Resolver) setType(n ast.Node, t *types.Type) *types.Type {
	r.types[n.NodeID()] = t
	return t
}

// ResolveModule resolves one file's Module against a shared package
// scope, following the three-step order of §4.5: imports, global type
// placeholders (so forward references work), then per-statement
// visiting.
func (r *Resolver) ResolveModule(mod *ast.Module, pkgPath string, pkgScope *scope.Scope) *scope.Scope {
	if pkgScope == nil {
		pkgScope = scope.New(scope.Package, nil)
		pkgScope.PkgPath = pkgPath
	}
	r.Scope = pkgScope
	modScope := scope.New(scope.ModuleKind, pkgScope)

	for _, s := range mod.Body {
		if imp, ok := s.(*ast.ImportStmt); ok {
			r.resolveImport(modScope, imp)
		}
	}

	for _, s := range mod.Body {
		switch n := s.(type) {
		case *ast.SchemaStmt:
			if _, _, ok := r.lookupSchema(pkgScope, n.Name); !ok {
				id := r.Table.NewSchema(n.Name, pkgPath)
				pkgScope.Define(&scope.Object{Name: n.Name, Kind: scope.Schema, Type: types.SchemaOf(r.Table, id), Span: n.Pos()})
			}
		case *ast.RuleStmt:
			pkgScope.Define(&scope.Object{Name: n.Name, Kind: scope.Rule, Type: types.T(types.Any), Span: n.Pos()})
		case *ast.TypeAliasStmt:
			pkgScope.Define(&scope.Object{Name: n.Name, Kind: scope.TypeAlias, Type: types.T(types.Any), Span: n.Pos()})
		}
	}

	for _, s := range mod.Body {
		if n, ok := s.(*ast.SchemaStmt); ok {
			r.fillSchema(pkgScope, n)
		}
	}

	r.detectSchemaCycles(mod)

	for _, s := range mod.Body {
		r.resolveStmt(modScope, s)
	}
	return modScope
}

// detectSchemaCycles reports §7's "schema cycle" diagnostic: a schema
// whose single-parent Base_ chain (followed by name, within this module)
// loops back on itself. Walked over the AST rather than the type table
// because internal/eval's instantiation walk also follows Base_ by AST
// name, so this is the same cycle that would otherwise recurse forever
// at evaluation time.
func (r *Resolver) detectSchemaCycles(mod *ast.Module) {
	byName := map[string]*ast.SchemaStmt{}
	for _, s := range mod.Body {
		if n, ok := s.(*ast.SchemaStmt); ok {
			byName[n.Name] = n
		}
	}

	reported := map[string]bool{}
	for _, s := range mod.Body {
		n, ok := s.(*ast.SchemaStmt)
		if !ok || reported[n.Name] {
			continue
		}
		path := []string{n.Name}
		seen := map[string]bool{n.Name: true}
		cur := n
		for cur.Base_ != nil {
			next, ok := byName[cur.Base_.Name]
			if !ok {
				break
			}
			if seen[next.Name] {
				path = append(path, next.Name)
				for _, p := range path {
					reported[p] = true
				}
				r.h.ErrorCodef("E-SCHEMA-CYCLE", n.Pos(),
					"schema inheritance cycle: %s", strings.Join(path, " -> "))
				break
			}
			seen[next.Name] = true
			path = append(path, next.Name)
			cur = next
		}
	}
}

func (r *Resolver) lookupSchema(sc *scope.Scope, name string) (*types.SchemaType, types.SchemaID, bool) {
	obj, _ := sc.Lookup(name)
	if obj == nil || obj.Kind != scope.Schema {
		return nil, 0, false
	}
	id := obj.Type.Schema
	return r.Table.Schema(id), id, true
}

func (r *Resolver) resolveImport(modScope *scope.Scope, n *ast.ImportStmt) {
	alias := n.Alias
	if alias == "" {
		parts := strings.Split(n.Path, ".")
		alias = parts[len(parts)-1]
	}
	modScope.Define(&scope.Object{
		Name: alias, Kind: scope.Module, Span: n.Pos(),
		Type: &types.Type{Cat: types.ModuleCat, ModulePath: n.Path, MKind: types.ModuleUser},
	})
}

// fillSchema is pass 2 of the two-pass schema table build (§9): the
// skeleton SchemaID already exists, so base/protocol/mixin names which
// forward-reference a later schema in the same package resolve here.
func (r *Resolver) fillSchema(pkgScope *scope.Scope, n *ast.SchemaStmt) {
	_, id, ok := r.lookupSchema(pkgScope, n.Name)
	if !ok {
		return
	}
	st := r.Table.Schema(id)
	if n.Base_ != nil {
		if _, bid, ok := r.lookupSchema(pkgScope, n.Base_.Name); ok {
			st.Base = bid
		}
	}
	for _, m := range n.Mixins {
		if _, mid, ok := r.lookupSchema(pkgScope, m.Name); ok {
			st.Mixins = append(st.Mixins, mid)
		}
	}
	schemaScope := scope.New(scope.SchemaKind, pkgScope)
	for _, a := range n.Attrs {
		at := r.resolveTypeExpr(schemaScope, a.Type)
		st.Attrs[a.Name] = &types.Attr{Type: *at, Optional: a.Optional, HasDefault: a.HasDefault, Doc: a.Doc}
		st.AttrOrder = append(st.AttrOrder, a.Name)
		schemaScope.Define(&scope.Object{Name: a.Name, Kind: scope.Attribute, Type: at, Span: a.Pos()})
	}
}

// resolveTypeExpr converts a parsed TypeExpr into a internal/types.Type,
// resolving named references against the package scope (schemas, type
// aliases) and the primitive type keywords.
func (r *Resolver) resolveTypeExpr(sc *scope.Scope, te ast.TypeExpr) *types.Type {
	if te == nil {
		return types.T(types.Any)
	}
	switch n := te.(type) {
	case *ast.NamedTypeExpr:
		switch n.Name {
		case "any":
			return types.T(types.Any)
		case "bool":
			return types.T(types.Bool)
		case "int":
			return types.T(types.Int)
		case "float":
			return types.T(types.Float)
		case "str":
			return types.T(types.Str)
		}
		if st, id, ok := r.lookupSchema(sc, n.Name); ok {
			_ = st
			return types.SchemaOf(r.Table, id)
		}
		return types.Named(n.Name)
	case *ast.ListTypeExpr:
		return types.List(r.resolveTypeExpr(sc, n.Elem))
	case *ast.DictTypeExpr:
		return types.Dict(r.resolveTypeExpr(sc, n.Key), r.resolveTypeExpr(sc, n.Value))
	case *ast.UnionTypeExpr:
		members := make([]*types.Type, len(n.Members))
		for i, m := range n.Members {
			members[i] = r.resolveTypeExpr(sc, m)
		}
		return types.Union(members...)
	case *ast.FuncTypeExpr:
		params := make([]types.Param, len(n.Params))
		for i, p := range n.Params {
			params[i] = types.Param{Type: r.resolveTypeExpr(sc, p)}
		}
		return &types.Type{Cat: types.FunctionCat, Func: &types.Function{Params: params, Return: r.resolveTypeExpr(sc, n.Ret)}}
	case *ast.LiteralTypeExpr:
		return r.literalType(n.Value)
	}
	return types.T(types.Any)
}

func (r *Resolver) literalType(e ast.Expr) *types.Type {
	switch v := e.(type) {
	case *ast.NumberLit:
		if v.IsFloat {
			return &types.Type{Cat: types.LitFloat, LitFloatVal: v.FloatVal}
		}
		return &types.Type{Cat: types.LitInt, LitIntVal: v.IntVal}
	case *ast.StringLit:
		return &types.Type{Cat: types.LitStr, LitStrVal: v.Value}
	case *ast.NameConstant:
		switch v.Kind {
		case ast.ConstTrue:
			return &types.Type{Cat: types.LitBool, LitBoolVal: true}
		case ast.ConstFalse:
			return &types.Type{Cat: types.LitBool, LitBoolVal: false}
		}
	}
	return types.T(types.Any)
}
