package ast

import "github.com/kcl-lang/compiler/internal/token"

// AssignStmt is `target = expr` or, pre-multi-assign-split (§4.4.4),
// `t1 = t2 = expr`. After preprocessing every AssignStmt has exactly one
// target; Targets is kept as a slice so the pass can be a no-op on
// already-split input.
type AssignStmt struct {
	Base
	Targets []Expr
	Type    TypeExpr // optional declared type, e.g. `x: int = 1`
	Value   Expr
}

func (*AssignStmt) stmtNode() {}

// AugAssignStmt is `target OP= expr` (+=, -=, *=, ...).
type AugAssignStmt struct {
	Base
	Target Expr
	Op     token.Kind
	Value  Expr
}

func (*AugAssignStmt) stmtNode() {}

// UnificationStmt is `name: T { ... }`, both declaring and configuring an
// instance in one form (GLOSSARY).
type UnificationStmt struct {
	Base
	Target *Identifier
	Value  *SchemaExpr
}

func (*UnificationStmt) stmtNode() {}

// SchemaAttr is one attribute declaration inside a schema body.
type SchemaAttr struct {
	Base
	Name       string
	Type       TypeExpr
	Optional   bool
	HasDefault bool
	Default    Expr
	Doc        string
}

// SchemaIndexSignature is the optional `[key_name: key_ty]: val_ty` entry.
type SchemaIndexSignature struct {
	KeyName   string
	KeyType   TypeExpr
	ValueType TypeExpr
	AnyOther  bool
}

// Decorator is an `@deco(args)` attached to a schema or rule.
type Decorator struct {
	Name string
	Args []Expr
}

// SchemaStmt is a `schema Name(Base) mixin [M1, M2]: ... check: ...` block.
type SchemaStmt struct {
	Base
	Name       string
	Base_      *NamedTypeExpr
	Protocol   *NamedTypeExpr
	IsProtocol bool
	IsMixin    bool
	Mixins     []*NamedTypeExpr
	Index      *SchemaIndexSignature
	Attrs      []*SchemaAttr
	Checks     []CheckExpr
	Decorators []Decorator
	Doc        string
}

func (*SchemaStmt) stmtNode() {}

// CheckExpr is one `expr [, "message"]` entry of a schema's check block.
type CheckExpr struct {
	Test Expr
	Msg  Expr
}

// RuleStmt is a standalone `rule Name: ...` constraint block (no attrs,
// only checks), sharing SchemaStmt's base/decorator shape; rules take no
// mixins.
type RuleStmt struct {
	Base
	Name       string
	Base_      *NamedTypeExpr
	Checks     []CheckExpr
	Decorators []Decorator
	Doc        string
}

func (*RuleStmt) stmtNode() {}

// ImportStmt is `import a.b.c as p`.
type ImportStmt struct {
	Base
	Path  string
	Alias string // "" if no `as` clause; defaults to last path component
}

func (*ImportStmt) stmtNode() {}

// IfStmt is `if cond: body elif cond2: body2 else: body3`.
type IfStmt struct {
	Base
	Cond Expr
	Body []Stmt
	Else []Stmt // may itself be a single *IfStmt wrapped in a slice for elif chains
}

func (*IfStmt) stmtNode() {}

// AssertStmt is `assert cond, "message" if cond2`.
type AssertStmt struct {
	Base
	Test Expr
	Msg  Expr
	If   Expr // optional guard, "assert ... if cond"
}

func (*AssertStmt) stmtNode() {}

// TypeAliasStmt is `type Name = TypeExpr`.
type TypeAliasStmt struct {
	Base
	Name string
	Type TypeExpr
}

func (*TypeAliasStmt) stmtNode() {}

// ExprStmt wraps a bare expression used as a statement.
type ExprStmt struct {
	Base
	Value Expr
}

func (*ExprStmt) stmtNode() {}
