package resolver

import (
	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/scope"
	"github.com/kcl-lang/compiler/internal/types"
)

// resolveStmt dispatches over every statement kind, defining names into sc
// and accumulating diagnostics. It never aborts: on any type error it
// records the diagnostic and continues with Any so downstream statements
// still get resolved (§4.5, §7).
func (r *Resolver) resolveStmt(sc *scope.Scope, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		r.resolveAssign(sc, n)
	case *ast.AugAssignStmt:
		r.resolveAugAssign(sc, n)
	case *ast.UnificationStmt:
		r.resolveUnification(sc, n)
	case *ast.SchemaStmt:
		r.resolveSchemaBody(sc, n)
	case *ast.RuleStmt:
		r.resolveRuleBody(sc, n)
	case *ast.ImportStmt:
		// already handled in pass 1 of ResolveModule
	case *ast.IfStmt:
		r.resolveIf(sc, n)
	case *ast.AssertStmt:
		r.typeOfExpr(sc, n.Test)
		if n.Msg != nil {
			r.typeOfExpr(sc, n.Msg)
		}
		if n.If != nil {
			r.typeOfExpr(sc, n.If)
		}
	case *ast.TypeAliasStmt:
		t := r.resolveTypeExpr(sc, n.Type)
		if obj, _ := sc.Root().Lookup(n.Name); obj != nil {
			obj.Type = t
		}
	case *ast.ExprStmt:
		r.typeOfExpr(sc, n.Value)
	}
}

func (r *Resolver) resolveAssign(sc *scope.Scope, n *ast.AssignStmt) {
	var declared *types.Type
	if n.Type != nil {
		declared = r.resolveTypeExpr(sc, n.Type)
	}
	var valType *types.Type
	if n.Value != nil {
		valType = r.typeOfExpr(sc, n.Value)
	} else {
		valType = types.T(types.Any)
	}
	if declared != nil && n.Value != nil && !types.IsUpperBound(valType, declared) {
		r.h.Errorf(n.Pos(), "cannot assign %s to declared type %s", valType, declared)
	}
	effective := valType
	if declared != nil {
		effective = declared
	}
	for _, target := range n.Targets {
		r.defineTarget(sc, target, effective)
	}
}

// defineTarget binds target's root identifier in sc; dotted/selector
// targets (attribute paths into an existing value) are only type-checked
// as expressions; the assignment itself is left to the evaluator
// (assignment into nested config is a value-level operation).
func (r *Resolver) defineTarget(sc *scope.Scope, target ast.Expr, t *types.Type) {
	switch tg := target.(type) {
	case *ast.Identifier:
		name := tg.Names[0]
		if obj, found := sc.LookupLocal(name); found {
			obj.Type = t
			return
		}
		sc.Define(&scope.Object{Name: name, Kind: scope.Variable, Type: t, Span: tg.Pos()})
	case *ast.Selector, *ast.Subscript:
		r.typeOfExpr(sc, tg)
	}
}

func (r *Resolver) resolveAugAssign(sc *scope.Scope, n *ast.AugAssignStmt) {
	lt := r.typeOfExpr(sc, n.Target)
	rt := r.typeOfExpr(sc, n.Value)
	if _, err := BinOpType(n.Op, lt, rt, isLiteralZero(n.Value)); err != nil {
		r.h.Errorf(n.Pos(), "%s", err)
	}
}

func (r *Resolver) resolveUnification(sc *scope.Scope, n *ast.UnificationStmt) {
	t := r.typeOfExpr(sc, n.Value)
	if obj, found := sc.LookupLocal(n.Target.Names[0]); found {
		obj.Type = t
		return
	}
	sc.Define(&scope.Object{Name: n.Target.Names[0], Kind: scope.Variable, Type: t, Span: n.Pos()})
}

func (r *Resolver) resolveSchemaBody(sc *scope.Scope, n *ast.SchemaStmt) {
	_, id, ok := r.lookupSchema(sc.Root(), n.Name)
	if !ok {
		return
	}
	st := r.Table.Schema(id)
	schemaScope := scope.New(scope.SchemaKind, sc)
	for _, name := range st.AttrOrder {
		a := st.Attrs[name]
		schemaScope.Define(&scope.Object{Name: name, Kind: scope.Attribute, Type: &a.Type, Span: n.Pos()})
	}
	for _, a := range n.Attrs {
		if a.Default != nil {
			dt := r.typeOfExpr(schemaScope, a.Default)
			declared := st.Attrs[a.Name]
			if declared != nil && !types.IsUpperBound(dt, &declared.Type) {
				r.h.Errorf(a.Pos(), "default value for %s does not match declared type %s", a.Name, declared.Type.String())
			}
		}
	}
	for _, c := range n.Checks {
		r.typeOfExpr(schemaScope, c.Test)
		if c.Msg != nil {
			r.typeOfExpr(schemaScope, c.Msg)
		}
	}
}

func (r *Resolver) resolveRuleBody(sc *scope.Scope, n *ast.RuleStmt) {
	ruleScope := scope.New(scope.SchemaKind, sc)
	for _, c := range n.Checks {
		r.typeOfExpr(ruleScope, c.Test)
		if c.Msg != nil {
			r.typeOfExpr(ruleScope, c.Msg)
		}
	}
}

func (r *Resolver) resolveIf(sc *scope.Scope, n *ast.IfStmt) {
	r.typeOfExpr(sc, n.Cond)
	bodyScope := scope.New(scope.Condition, sc)
	for _, s := range n.Body {
		r.resolveStmt(bodyScope, s)
	}
	elseScope := scope.New(scope.Condition, sc)
	for _, s := range n.Else {
		r.resolveStmt(elseScope, s)
	}
}

func isLiteralZero(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.NumberLit:
		return (!n.IsFloat && n.IntVal == 0) || (n.IsFloat && n.FloatVal == 0)
	}
	return false
}
