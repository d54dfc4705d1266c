package ast

// Visitor is the immutable, error-propagating visitor used by the
// resolver (§4.4): unlike the teacher's Walk(in, out func(*node) bool/...)
// which cannot fail, KCL's resolution must accumulate into a Handler and
// continue (§4.5), so every VisitX method returns an error only for a
// genuine walk-abort condition (none are currently used — resolution
// always continues — but the signature matches the teacher's
// panic/recover boundary: the resolver's own errors go through
// internal/diag.Handler instead of this return value).
type Visitor interface {
	VisitExpr(Expr) error
	VisitStmt(Stmt) error
}

// WalkStmt visits stmt and recurses into its children in source order,
// generalizing the teacher's (*node).Walk to the typed AST. A Visitor may
// be wrapped to skip children by tracking its own state; WalkStmt itself
// always recurses fully (pre-order call, then children, mirroring the
// teacher's `in` callback followed by child walks).
func WalkStmt(v Visitor, s Stmt) error {
	if s == nil {
		return nil
	}
	if err := v.VisitStmt(s); err != nil {
		return err
	}
	switch n := s.(type) {
	case *AssignStmt:
		for _, t := range n.Targets {
			if err := WalkExpr(v, t); err != nil {
				return err
			}
		}
		if err := WalkExpr(v, n.Value); err != nil {
			return err
		}
	case *AugAssignStmt:
		if err := WalkExpr(v, n.Target); err != nil {
			return err
		}
		if err := WalkExpr(v, n.Value); err != nil {
			return err
		}
	case *UnificationStmt:
		if err := WalkExpr(v, n.Target); err != nil {
			return err
		}
		if err := WalkExpr(v, n.Value); err != nil {
			return err
		}
	case *SchemaStmt:
		for _, a := range n.Attrs {
			if a.Default != nil {
				if err := WalkExpr(v, a.Default); err != nil {
					return err
				}
			}
		}
		for _, c := range n.Checks {
			if err := WalkExpr(v, c.Test); err != nil {
				return err
			}
			if c.Msg != nil {
				if err := WalkExpr(v, c.Msg); err != nil {
					return err
				}
			}
		}
	case *RuleStmt:
		for _, c := range n.Checks {
			if err := WalkExpr(v, c.Test); err != nil {
				return err
			}
		}
	case *IfStmt:
		if err := WalkExpr(v, n.Cond); err != nil {
			return err
		}
		for _, b := range n.Body {
			if err := WalkStmt(v, b); err != nil {
				return err
			}
		}
		for _, b := range n.Else {
			if err := WalkStmt(v, b); err != nil {
				return err
			}
		}
	case *AssertStmt:
		if err := WalkExpr(v, n.Test); err != nil {
			return err
		}
		if n.Msg != nil {
			if err := WalkExpr(v, n.Msg); err != nil {
				return err
			}
		}
		if n.If != nil {
			if err := WalkExpr(v, n.If); err != nil {
				return err
			}
		}
	case *ExprStmt:
		if err := WalkExpr(v, n.Value); err != nil {
			return err
		}
	case *ImportStmt, *TypeAliasStmt:
		// leaves
	}
	return nil
}

// WalkExpr visits e and recurses into its children.
func WalkExpr(v Visitor, e Expr) error {
	if e == nil {
		return nil
	}
	if err := v.VisitExpr(e); err != nil {
		return err
	}
	switch n := e.(type) {
	case *ListExpr:
		for _, el := range n.Elts {
			if err := WalkExpr(v, el); err != nil {
				return err
			}
		}
	case *Starred:
		return WalkExpr(v, n.Value)
	case *ConfigExpr:
		for _, ent := range n.Entries {
			if ent.Key != nil {
				if err := WalkExpr(v, ent.Key); err != nil {
					return err
				}
			}
			if ent.Value != nil {
				if err := WalkExpr(v, ent.Value); err != nil {
					return err
				}
			}
			if ent.Spread != nil {
				if err := WalkExpr(v, ent.Spread); err != nil {
					return err
				}
			}
		}
	case *SchemaExpr:
		if err := WalkExpr(v, n.Name); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := WalkExpr(v, a); err != nil {
				return err
			}
		}
		if n.Config != nil {
			return WalkExpr(v, n.Config)
		}
	case *Selector:
		return WalkExpr(v, n.Value)
	case *Subscript:
		if err := WalkExpr(v, n.Value); err != nil {
			return err
		}
		for _, e2 := range []Expr{n.Index, n.Lo, n.Hi, n.Step} {
			if e2 != nil {
				if err := WalkExpr(v, e2); err != nil {
					return err
				}
			}
		}
	case *Call:
		if err := WalkExpr(v, n.Func); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := WalkExpr(v, a.Value); err != nil {
				return err
			}
		}
	case *Unary:
		return WalkExpr(v, n.Value)
	case *Binary:
		if err := WalkExpr(v, n.Left); err != nil {
			return err
		}
		return WalkExpr(v, n.Right)
	case *Compare:
		if err := WalkExpr(v, n.Left); err != nil {
			return err
		}
		for _, r := range n.Rest {
			if err := WalkExpr(v, r); err != nil {
				return err
			}
		}
	case *If:
		if err := WalkExpr(v, n.Cond); err != nil {
			return err
		}
		if err := WalkExpr(v, n.Then); err != nil {
			return err
		}
		return WalkExpr(v, n.Else)
	case *ListComp:
		for _, c := range n.Clauses {
			if err := walkCompClause(v, c); err != nil {
				return err
			}
		}
		return WalkExpr(v, n.Elt)
	case *DictComp:
		for _, c := range n.Clauses {
			if err := walkCompClause(v, c); err != nil {
				return err
			}
		}
		if err := WalkExpr(v, n.Key); err != nil {
			return err
		}
		return WalkExpr(v, n.Value)
	case *Quantifier:
		if err := WalkExpr(v, n.Iter); err != nil {
			return err
		}
		return WalkExpr(v, n.Test)
	case *Lambda:
		for _, p := range n.Params {
			if p.Default != nil {
				if err := WalkExpr(v, p.Default); err != nil {
					return err
				}
			}
		}
		for _, s := range n.Body {
			if err := WalkStmt(v, s); err != nil {
				return err
			}
		}
	case *JoinedString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				if err := WalkExpr(v, p.Expr); err != nil {
					return err
				}
			}
		}
	case *Identifier, *NumberLit, *StringLit, *NameConstant, *NamedTypeExpr:
		// leaves
	}
	return nil
}

func walkCompClause(v Visitor, c CompClause) error {
	for _, t := range c.Targets {
		if err := WalkExpr(v, t); err != nil {
			return err
		}
	}
	if err := WalkExpr(v, c.Iter); err != nil {
		return err
	}
	for _, cond := range c.Ifs {
		if err := WalkExpr(v, cond); err != nil {
			return err
		}
	}
	return nil
}

// Transformer is the mutable-self mutable-node visitor used by the
// pre-process passes (§4.4): raw-identifier stripping and qualified-
// identifier rewriting both need to replace an Identifier in place, which
// an error-only Visitor cannot do. TransformExpr/TransformStmt call
// t.Expr/t.Stmt pre-order (so a rewrite can redirect descent) and then
// recurse into whatever node comes back.
type Transformer interface {
	Expr(Expr) Expr
	Stmt(Stmt) Stmt
}

// TransformModule rewrites every statement in m.Body in place.
func TransformModule(t Transformer, m *Module) {
	for i, s := range m.Body {
		m.Body[i] = TransformStmt(t, s)
	}
}

func TransformStmt(t Transformer, s Stmt) Stmt {
	if s == nil {
		return nil
	}
	s = t.Stmt(s)
	switch n := s.(type) {
	case *AssignStmt:
		for i, tg := range n.Targets {
			n.Targets[i] = TransformExpr(t, tg)
		}
		n.Value = TransformExpr(t, n.Value)
	case *AugAssignStmt:
		n.Target = TransformExpr(t, n.Target)
		n.Value = TransformExpr(t, n.Value)
	case *UnificationStmt:
		n.Target = TransformExpr(t, n.Target).(*Identifier)
		n.Value = TransformExpr(t, n.Value).(*SchemaExpr)
	case *SchemaStmt:
		for _, a := range n.Attrs {
			if a.Default != nil {
				a.Default = TransformExpr(t, a.Default)
			}
		}
		for i := range n.Checks {
			n.Checks[i].Test = TransformExpr(t, n.Checks[i].Test)
			if n.Checks[i].Msg != nil {
				n.Checks[i].Msg = TransformExpr(t, n.Checks[i].Msg)
			}
		}
	case *RuleStmt:
		for i := range n.Checks {
			n.Checks[i].Test = TransformExpr(t, n.Checks[i].Test)
		}
	case *IfStmt:
		n.Cond = TransformExpr(t, n.Cond)
		for i, b := range n.Body {
			n.Body[i] = TransformStmt(t, b)
		}
		for i, b := range n.Else {
			n.Else[i] = TransformStmt(t, b)
		}
	case *AssertStmt:
		n.Test = TransformExpr(t, n.Test)
		if n.Msg != nil {
			n.Msg = TransformExpr(t, n.Msg)
		}
		if n.If != nil {
			n.If = TransformExpr(t, n.If)
		}
	case *ExprStmt:
		n.Value = TransformExpr(t, n.Value)
	}
	return s
}

func TransformExpr(t Transformer, e Expr) Expr {
	if e == nil {
		return nil
	}
	e = t.Expr(e)
	switch n := e.(type) {
	case *ListExpr:
		for i, el := range n.Elts {
			n.Elts[i] = TransformExpr(t, el)
		}
	case *Starred:
		n.Value = TransformExpr(t, n.Value)
	case *ConfigExpr:
		for i := range n.Entries {
			if n.Entries[i].Key != nil {
				n.Entries[i].Key = TransformExpr(t, n.Entries[i].Key)
			}
			if n.Entries[i].Value != nil {
				n.Entries[i].Value = TransformExpr(t, n.Entries[i].Value)
			}
			if n.Entries[i].Spread != nil {
				n.Entries[i].Spread = TransformExpr(t, n.Entries[i].Spread)
			}
		}
	case *SchemaExpr:
		n.Name = TransformExpr(t, n.Name).(*Identifier)
		for i, a := range n.Args {
			n.Args[i] = TransformExpr(t, a)
		}
		if n.Config != nil {
			n.Config = TransformExpr(t, n.Config).(*ConfigExpr)
		}
	case *Selector:
		n.Value = TransformExpr(t, n.Value)
	case *Subscript:
		n.Value = TransformExpr(t, n.Value)
		if n.Index != nil {
			n.Index = TransformExpr(t, n.Index)
		}
		if n.Lo != nil {
			n.Lo = TransformExpr(t, n.Lo)
		}
		if n.Hi != nil {
			n.Hi = TransformExpr(t, n.Hi)
		}
		if n.Step != nil {
			n.Step = TransformExpr(t, n.Step)
		}
	case *Call:
		n.Func = TransformExpr(t, n.Func)
		for i := range n.Args {
			n.Args[i].Value = TransformExpr(t, n.Args[i].Value)
		}
	case *Unary:
		n.Value = TransformExpr(t, n.Value)
	case *Binary:
		n.Left = TransformExpr(t, n.Left)
		n.Right = TransformExpr(t, n.Right)
	case *Compare:
		n.Left = TransformExpr(t, n.Left)
		for i, r := range n.Rest {
			n.Rest[i] = TransformExpr(t, r)
		}
	case *If:
		n.Cond = TransformExpr(t, n.Cond)
		n.Then = TransformExpr(t, n.Then)
		n.Else = TransformExpr(t, n.Else)
	case *ListComp:
		for ci := range n.Clauses {
			transformCompClause(t, &n.Clauses[ci])
		}
		n.Elt = TransformExpr(t, n.Elt)
	case *DictComp:
		for ci := range n.Clauses {
			transformCompClause(t, &n.Clauses[ci])
		}
		n.Key = TransformExpr(t, n.Key)
		n.Value = TransformExpr(t, n.Value)
	case *Quantifier:
		n.Iter = TransformExpr(t, n.Iter)
		n.Test = TransformExpr(t, n.Test)
	case *Lambda:
		for i, p := range n.Params {
			if p.Default != nil {
				n.Params[i].Default = TransformExpr(t, p.Default)
			}
		}
		for i, s := range n.Body {
			n.Body[i] = TransformStmt(t, s)
		}
	case *JoinedString:
		for i, p := range n.Parts {
			if p.Expr != nil {
				n.Parts[i].Expr = TransformExpr(t, p.Expr)
			}
		}
	}
	return e
}

func transformCompClause(t Transformer, c *CompClause) {
	for i, tg := range c.Targets {
		c.Targets[i] = TransformExpr(t, tg)
	}
	c.Iter = TransformExpr(t, c.Iter)
	for i, cond := range c.Ifs {
		c.Ifs[i] = TransformExpr(t, cond)
	}
}
