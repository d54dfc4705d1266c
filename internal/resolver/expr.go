package resolver

import (
	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/scope"
	"github.com/kcl-lang/compiler/internal/types"
)

// typeOfExpr is the bottom-up type-inference entry point: every call
// resolves its children first, stores the result in r.types keyed by
// NodeID, and returns it. Errors are recorded on the handler and Any is
// returned so callers can keep going (§4.5, §7).
func (r *Resolver) typeOfExpr(sc *scope.Scope, e ast.Expr) *types.Type {
	if e == nil {
		return types.T(types.Any)
	}
	switch n := e.(type) {
	case *ast.Identifier:
		return r.setType(n, r.typeOfIdentifier(sc, n))
	case *ast.NamedTypeExpr:
		// Bare identifiers that look like type names in value position
		// (pre-resolution ambiguity, §4.3); treat as a plain name lookup.
		return r.setType(n, r.typeOfIdentifier(sc, &ast.Identifier{Base: n.Base, Names: []string{n.Name}}))
	case *ast.NumberLit:
		if n.IsFloat {
			return r.setType(n, types.T(types.Float))
		}
		if n.Suffix != "" {
			return r.setType(n, types.T(types.NumberMultiplierCat))
		}
		return r.setType(n, types.T(types.Int))
	case *ast.StringLit:
		return r.setType(n, types.T(types.Str))
	case *ast.NameConstant:
		switch n.Kind {
		case ast.ConstNone:
			return r.setType(n, types.T(types.NoneCat))
		case ast.ConstTrue, ast.ConstFalse:
			return r.setType(n, types.T(types.Bool))
		default:
			return r.setType(n, types.T(types.Any))
		}
	case *ast.ListExpr:
		return r.setType(n, r.typeOfList(sc, n))
	case *ast.Starred:
		return r.setType(n, r.typeOfExpr(sc, n.Value))
	case *ast.ConfigExpr:
		return r.setType(n, r.typeOfConfig(sc, n))
	case *ast.SchemaExpr:
		return r.setType(n, r.typeOfSchemaExpr(sc, n))
	case *ast.Selector:
		return r.setType(n, r.typeOfSelector(sc, n))
	case *ast.Subscript:
		return r.setType(n, r.typeOfSubscript(sc, n))
	case *ast.Call:
		return r.setType(n, r.typeOfCall(sc, n))
	case *ast.Unary:
		vt := r.typeOfExpr(sc, n.Value)
		t, err := UnaryOpType(n.Op, vt)
		if err != nil {
			r.h.Errorf(n.Pos(), "%s", err)
			return r.setType(n, types.T(types.Any))
		}
		return r.setType(n, t)
	case *ast.Binary:
		lt := r.typeOfExpr(sc, n.Left)
		rt := r.typeOfExpr(sc, n.Right)
		t, err := BinOpType(n.Op, lt, rt, isLiteralZero(n.Right))
		if err != nil {
			r.h.Errorf(n.Pos(), "%s", err)
			return r.setType(n, types.T(types.Any))
		}
		return r.setType(n, t)
	case *ast.Compare:
		r.typeOfExpr(sc, n.Left)
		for i, op := range n.Ops {
			rt := r.typeOfExpr(sc, n.Rest[i])
			if _, err := CompareType(op, rt); err != nil {
				r.h.Errorf(n.Pos(), "%s", err)
			}
		}
		return r.setType(n, types.T(types.Bool))
	case *ast.If:
		r.typeOfExpr(sc, n.Cond)
		tt := r.typeOfExpr(sc, n.Then)
		et := r.typeOfExpr(sc, n.Else)
		return r.setType(n, supremum(tt, et))
	case *ast.ListComp:
		inner := r.resolveCompClauses(sc, n.Clauses)
		et := r.typeOfExpr(inner, n.Elt)
		return r.setType(n, types.List(et))
	case *ast.DictComp:
		inner := r.resolveCompClauses(sc, n.Clauses)
		r.typeOfExpr(inner, n.Key)
		vt := r.typeOfExpr(inner, n.Value)
		return r.setType(n, types.Dict(types.T(types.Str), vt))
	case *ast.Quantifier:
		return r.setType(n, r.typeOfQuantifier(sc, n))
	case *ast.Lambda:
		return r.setType(n, r.typeOfLambda(sc, n))
	case *ast.JoinedString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				r.typeOfExpr(sc, p.Expr)
			}
		}
		return r.setType(n, types.T(types.Str))
	}
	return types.T(types.Any)
}

func (r *Resolver) typeOfIdentifier(sc *scope.Scope, n *ast.Identifier) *types.Type {
	if len(n.Names) == 0 {
		return types.T(types.Any)
	}
	obj, _ := sc.Lookup(n.Names[0])
	if obj == nil {
		r.h.Errorf(n.Pos(), "name %q is not defined", n.Names[0])
		return types.T(types.Any)
	}
	obj.Used = true
	if len(n.Names) == 1 {
		return obj.Type
	}
	// Dotted qualified reference (package-qualified import access produced
	// by the qualified-identifier-rewrite pass, §4.4.2). Cross-package
	// attribute types require the multi-package type table the build
	// driver assembles; a single Resolver conservatively returns Any here.
	if obj.Kind == scope.Module {
		return types.T(types.Any)
	}
	return types.T(types.Any)
}

func (r *Resolver) typeOfList(sc *scope.Scope, n *ast.ListExpr) *types.Type {
	var elem *types.Type
	for _, e := range n.Elts {
		et := r.typeOfExpr(sc, e)
		elem = supremum(elem, et)
	}
	if elem == nil {
		elem = types.T(types.Any)
	}
	return types.List(elem)
}

func (r *Resolver) typeOfConfig(sc *scope.Scope, n *ast.ConfigExpr) *types.Type {
	var val *types.Type
	for _, entry := range n.Entries {
		if entry.Spread != nil {
			r.typeOfExpr(sc, entry.Spread)
		}
		if _, named := configKeyName(entry.Key); !named && entry.Key != nil {
			r.typeOfExpr(sc, entry.Key)
		}
		if entry.Value != nil {
			vt := r.typeOfExpr(sc, entry.Value)
			val = supremum(val, vt)
		}
	}
	if val == nil {
		val = types.T(types.Any)
	}
	return types.Dict(types.T(types.Str), val)
}

func (r *Resolver) typeOfSchemaExpr(sc *scope.Scope, n *ast.SchemaExpr) *types.Type {
	for _, a := range n.Args {
		r.typeOfExpr(sc, a)
	}
	obj, _ := sc.Lookup(n.Name.Names[0])
	if obj == nil || obj.Kind != scope.Schema {
		if n.Config != nil {
			r.typeOfExpr(sc, n.Config)
		}
		if obj == nil {
			r.h.Errorf(n.Pos(), "name %q is not defined", n.Name.Names[0])
		}
		return types.T(types.Any)
	}
	st := r.Table.Schema(obj.Type.Schema)
	if n.Config != nil {
		r.checkSchemaConfig(sc, n.Config, st)
	}
	return obj.Type
}

// checkSchemaConfig type-checks a schema instantiation's config entries
// against the schema's declared attributes, following the base chain for
// inherited attributes (§4.5). Required (non-optional, no-default) attrs
// left unset surface a diagnostic here even though the runtime re-checks
// at evaluation time, matching the teacher's early + late check pattern.
func (r *Resolver) checkSchemaConfig(sc *scope.Scope, cfg *ast.ConfigExpr, st *types.SchemaType) {
	cfgSpan := cfg.Pos()
	if st == nil {
		r.typeOfExpr(sc, cfg)
		return
	}
	seen := map[string]bool{}
	for _, entry := range cfg.Entries {
		if entry.Spread != nil {
			r.typeOfExpr(sc, entry.Spread)
		}
		if entry.Value == nil {
			continue
		}
		vt := r.typeOfExpr(sc, entry.Value)
		name, ok := configKeyName(entry.Key)
		if !ok {
			continue
		}
		seen[name] = true
		attr := lookupAttr(r.Table, st, name)
		if attr == nil {
			if st.Index == nil {
				r.h.Errorf(entry.Value.Pos(), "attribute %q is not defined in schema %s", name, st.Name)
			}
			continue
		}
		if _, dotted := entry.Key.(*ast.Selector); dotted {
			continue
		}
		if !types.IsUpperBound(vt, &attr.Type) {
			r.h.Errorf(entry.Value.Pos(), "attribute %q expects %s, got %s", name, attr.Type.String(), vt)
		}
	}
	for _, name := range st.AttrOrder {
		a := st.Attrs[name]
		if !a.Optional && !a.HasDefault && !seen[name] {
			r.h.Errorf(cfgSpan, "missing required attribute %q of schema %s", name, st.Name)
		}
	}
}

// configKeyName extracts a dotted string key from a config entry's key
// expression; only the leading component is checked against the schema's
// own attribute set, deep-path assignment (`data.key = v`) is resolved at
// the value level by the evaluator's merge algebra.
func configKeyName(key ast.Expr) (string, bool) {
	switch k := key.(type) {
	case *ast.Identifier:
		if len(k.Names) == 0 {
			return "", false
		}
		return k.Names[0], true
	case *ast.StringLit:
		return k.Value, true
	case *ast.Selector:
		return configKeyName(k.Value)
	}
	return "", false
}

func lookupAttr(table *types.TypeTable, st *types.SchemaType, name string) *types.Attr {
	for cur := st; cur != nil; {
		if a, ok := cur.Attrs[name]; ok {
			return a
		}
		if cur.Base == 0 {
			break
		}
		cur = table.Schema(cur.Base)
	}
	return nil
}

func (r *Resolver) typeOfSelector(sc *scope.Scope, n *ast.Selector) *types.Type {
	base := r.typeOfExpr(sc, n.Value)
	b := types.BaseOf(base)
	switch b.Cat {
	case types.SchemaCat:
		if b.Table != nil {
			if st := b.Table.Schema(b.Schema); st != nil {
				if a := lookupAttr(b.Table, st, n.Attr); a != nil {
					return &a.Type
				}
			}
		}
		return types.T(types.Any)
	case types.DictCat:
		return b.Value
	case types.ModuleCat:
		return types.T(types.Any)
	}
	return types.T(types.Any)
}

func (r *Resolver) typeOfSubscript(sc *scope.Scope, n *ast.Subscript) *types.Type {
	base := r.typeOfExpr(sc, n.Value)
	b := types.BaseOf(base)
	if n.Slice {
		if n.Lo != nil {
			r.typeOfExpr(sc, n.Lo)
		}
		if n.Hi != nil {
			r.typeOfExpr(sc, n.Hi)
		}
		if n.Step != nil {
			r.typeOfExpr(sc, n.Step)
		}
		return base
	}
	r.typeOfExpr(sc, n.Index)
	switch b.Cat {
	case types.ListCat:
		return b.Elem
	case types.DictCat:
		return b.Value
	case types.SchemaCat:
		return types.T(types.Any)
	}
	return types.T(types.Any)
}

func (r *Resolver) typeOfCall(sc *scope.Scope, n *ast.Call) *types.Type {
	ft := r.typeOfExpr(sc, n.Func)
	for _, a := range n.Args {
		r.typeOfExpr(sc, a.Value)
	}
	b := types.BaseOf(ft)
	if b.Cat == types.FunctionCat && b.Func != nil && b.Func.Return != nil {
		return b.Func.Return
	}
	return types.T(types.Any)
}

func (r *Resolver) resolveCompClauses(sc *scope.Scope, clauses []ast.CompClause) *scope.Scope {
	inner := scope.New(scope.Loop, sc)
	for _, cl := range clauses {
		iterType := r.typeOfExpr(inner, cl.Iter)
		elemType := iterElemType(iterType)
		for _, t := range cl.Targets {
			if id, ok := t.(*ast.Identifier); ok && len(id.Names) == 1 {
				inner.Define(&scope.Object{Name: id.Names[0], Kind: scope.Variable, Type: elemType, Span: id.Pos()})
			}
		}
		for _, ifc := range cl.Ifs {
			r.typeOfExpr(inner, ifc)
		}
	}
	return inner
}

func iterElemType(t *types.Type) *types.Type {
	b := types.BaseOf(t)
	switch b.Cat {
	case types.ListCat:
		return b.Elem
	case types.DictCat:
		return b.Key
	case types.Str:
		return types.T(types.Str)
	}
	return types.T(types.Any)
}

func (r *Resolver) typeOfQuantifier(sc *scope.Scope, n *ast.Quantifier) *types.Type {
	iterType := r.typeOfExpr(sc, n.Iter)
	elemType := iterElemType(iterType)
	inner := scope.New(scope.Loop, sc)
	for _, name := range n.Targets {
		inner.Define(&scope.Object{Name: name, Kind: scope.Variable, Type: elemType, Span: n.Pos()})
	}
	testType := r.typeOfExpr(inner, n.Test)
	switch n.Kind {
	case ast.QAll, ast.QAny:
		return types.T(types.Bool)
	case ast.QFilter:
		return iterType
	case ast.QMap:
		return types.List(testType)
	}
	return types.T(types.Any)
}

func (r *Resolver) typeOfLambda(sc *scope.Scope, n *ast.Lambda) *types.Type {
	inner := scope.New(scope.LambdaKind, sc)
	params := make([]types.Param, len(n.Params))
	for i, p := range n.Params {
		pt := r.resolveTypeExpr(inner, p.Type)
		if p.Default != nil {
			dt := r.typeOfExpr(inner, p.Default)
			if p.Type == nil {
				pt = dt
			}
		}
		inner.Define(&scope.Object{Name: p.Name, Kind: scope.Parameter, Type: pt, Span: n.Pos()})
		params[i] = types.Param{Name: p.Name, Type: pt, Default: p.Default != nil}
	}
	var ret *types.Type
	if n.ReturnTy != nil {
		ret = r.resolveTypeExpr(inner, n.ReturnTy)
	}
	for _, s := range n.Body {
		r.resolveStmt(inner, s)
	}
	if ret == nil {
		ret = types.T(types.Any)
	}
	return &types.Type{Cat: types.FunctionCat, Func: &types.Function{Params: params, Return: ret, KwOnlyIndex: -1}}
}
