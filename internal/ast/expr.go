package ast

import "github.com/kcl-lang/compiler/internal/token"

// ConfigOp is the per-entry operation in a dict/config literal or schema
// instantiation (§3, §4.6): Union ":", Override "=", Insert "+=".
type ConfigOp int

const (
	OpUnion ConfigOp = iota
	OpOverride
	OpInsert
)

// Identifier is a (possibly dotted) name reference. Names is the list of
// dotted components ("a.b.c" -> ["a","b","c"]); Pkgpath is filled in by
// the qualified-identifier-rewrite preprocess pass (§4.4.2) when the first
// component resolves to an import alias.
type Identifier struct {
	Base
	Names   []string
	Pkgpath string
}

func (*Identifier) exprNode() {}

// NumberLit is an int or float literal, with an optional binary-unit
// suffix (e.g. "1Ki").
type NumberLit struct {
	Base
	IsFloat  bool
	IntVal   int64
	FloatVal float64
	Suffix   string // "", "n","u","m","k","K","M","G","T","P","Ki","Mi","Gi","Ti","Pi"
	Raw      string
}

func (*NumberLit) exprNode() {}

// StringLit is a string literal with its raw/triple-quote flags preserved.
type StringLit struct {
	Base
	Value  string
	Raw    bool
	Triple bool
}

func (*StringLit) exprNode() {}

// NameConstantKind enumerates KCL's builtin name constants.
type NameConstantKind int

const (
	ConstNone NameConstantKind = iota
	ConstTrue
	ConstFalse
	ConstUndefined
)

type NameConstant struct {
	Base
	Kind NameConstantKind
}

func (*NameConstant) exprNode() {}

// ListExpr is `[e1, e2, ...]`, possibly containing a Starred spread.
type ListExpr struct {
	Base
	Elts []Expr
}

func (*ListExpr) exprNode() {}

// Starred is `...expr` used as a spread inside a list or config.
type Starred struct {
	Base
	Value Expr
}

func (*Starred) exprNode() {}

// ConfigEntry is one `key op value` pair of a dict/config literal.
type ConfigEntry struct {
	Key        Expr // nil for a bare `...expr` spread entry; see Spread
	Value      Expr
	Op         ConfigOp
	InsertIdx  int // for OpInsert, -1 means append
	Spread     Expr // non-nil for a `...other` merge-spread entry
}

// ConfigExpr is `{ k1: v1, k2 = v2, k3 += v3 }`.
type ConfigExpr struct {
	Base
	Entries []ConfigEntry
}

func (*ConfigExpr) exprNode() {}

// SchemaExpr is `TypeName { ... }`: an identifier applied to a config
// literal, producing a schema instance at evaluation time.
type SchemaExpr struct {
	Base
	Name   *Identifier
	Args   []Expr // positional constructor args, if any
	Config *ConfigExpr
}

func (*SchemaExpr) exprNode() {}

// Selector is `value.attr` (optionally `value?.attr`).
type Selector struct {
	Base
	Value    Expr
	Attr     string
	Optional bool
}

func (*Selector) exprNode() {}

// Subscript is `value[index]` or a slice `value[start:stop:step]`.
type Subscript struct {
	Base
	Value Expr
	Index Expr  // non-nil for plain subscript
	Lo    Expr  // slice start, may be nil
	Hi    Expr  // slice stop, may be nil
	Step  Expr  // slice step, may be nil
	Slice bool
}

func (*Subscript) exprNode() {}

// Call is `fn(args..., kw=val...)`.
type CallArg struct {
	Name  string // non-empty for a keyword argument
	Value Expr
}

type Call struct {
	Base
	Func Expr
	Args []CallArg
}

func (*Call) exprNode() {}

// Unary is a prefix `+ - ~ not` expression.
type Unary struct {
	Base
	Op    token.Kind
	Value Expr
}

func (*Unary) exprNode() {}

// Binary is an infix arithmetic/bitwise/logical expression.
type Binary struct {
	Base
	Op          token.Kind
	Left, Right Expr
}

func (*Binary) exprNode() {}

// Compare is a chained comparison `a < b < c`, parsed as one node rather
// than nested Binary so `b` is evaluated only once (§4.3).
type Compare struct {
	Base
	Left  Expr
	Ops   []token.Kind // Lt/Gt/Le/Ge/Eq/Ne/KwIs/KwIn
	NotIn []bool       // parallel to Ops: true for "not in" and "is not"
	Rest  []Expr
}

func (*Compare) exprNode() {}

// If is the ternary `a if cond else b`.
type If struct {
	Base
	Cond, Then, Else Expr
}

func (*If) exprNode() {}

// CompClause is one `for target in iter if cond` clause of a comprehension.
type CompClause struct {
	Targets []Expr
	Iter    Expr
	Ifs     []Expr
}

// ListComp / DictComp are list and dict comprehensions.
type ListComp struct {
	Base
	Elt     Expr
	Clauses []CompClause
}

func (*ListComp) exprNode() {}

type DictComp struct {
	Base
	Key, Value Expr
	Op         ConfigOp
	Clauses    []CompClause
}

func (*DictComp) exprNode() {}

// QuantifierKind enumerates all/any/filter/map.
type QuantifierKind int

const (
	QAll QuantifierKind = iota
	QAny
	QFilter
	QMap
)

// Quantifier is `all|any|filter|map x in iter { test }`.
type Quantifier struct {
	Base
	Kind    QuantifierKind
	Targets []string
	Iter    Expr
	Test    Expr
}

func (*Quantifier) exprNode() {}

// Lambda is `lambda (params) -> RetType { body }`.
type Lambda struct {
	Base
	Params   []Param
	ReturnTy TypeExpr
	Body     []Stmt
}

func (*Lambda) exprNode() {}

// Param is a function/lambda/schema-constructor parameter.
type Param struct {
	Name    string
	Type    TypeExpr
	Default Expr
}

// FStringPart is either literal text or an embedded expression in a
// joined (f-)string.
type FStringPart struct {
	Text string // set when Expr == nil
	Expr Expr
	Spec string // optional format spec after ':'
}

type JoinedString struct {
	Base
	Parts []FStringPart
}

func (*JoinedString) exprNode() {}

// TypeExpr is the parsed form of a type annotation (§4.3). It is
// re-resolved into a internal/types.Type by the resolver; keeping it as a
// syntactic tree here (rather than resolving during parsing) matches the
// teacher's phase separation between parsing and gta/cfg type resolution.
type TypeExpr interface {
	Node
	typeExprNode()
}

type NamedTypeExpr struct {
	Base
	Name string
}

func (*NamedTypeExpr) typeExprNode() {}
func (*NamedTypeExpr) exprNode()     {} // type exprs can also appear as value-position identifiers pre-resolution

type LiteralTypeExpr struct {
	Base
	Value Expr // NumberLit, StringLit, or NameConstant(True/False)
}

func (*LiteralTypeExpr) typeExprNode() {}

type ListTypeExpr struct {
	Base
	Elem TypeExpr
}

func (*ListTypeExpr) typeExprNode() {}

type DictTypeExpr struct {
	Base
	Key, Value TypeExpr
}

func (*DictTypeExpr) typeExprNode() {}

type UnionTypeExpr struct {
	Base
	Members []TypeExpr
}

func (*UnionTypeExpr) typeExprNode() {}

type FuncTypeExpr struct {
	Base
	Params []TypeExpr
	Ret    TypeExpr
}

func (*FuncTypeExpr) typeExprNode() {}
