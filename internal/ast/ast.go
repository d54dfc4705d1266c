// Package ast defines the typed AST produced by the parser: every node
// carries a precise span and a unique id, the generalization of the
// teacher's *node (interp.go), which mixes AST and CFG fields into one
// struct. KCL splits those concerns: this package is AST-only; type and
// scope information produced by the resolver live in side tables keyed by
// NodeID (see internal/types, internal/scope), exactly as the teacher
// keys side information (frame index, symbol) off *node identity.
package ast

import (
	"sync/atomic"

	"github.com/kcl-lang/compiler/internal/source"
)

// NodeID is a unique per-program integer, used as a key into side tables
// such as the resolver's type map.
type NodeID int64

// Base is embedded in every concrete node and satisfies Expr/Stmt's shared
// accessor.
type Base struct {
	Span source.Span
	ID   NodeID
}

func (b *Base) Pos() source.Span { return b.Span }
func (b *Base) NodeID() NodeID   { return b.ID }

// IDGen hands out NodeIDs for one program. It is safe for concurrent use
// (§5): the build driver shares a single *IDGen among all package
// workers, so ids never collide across the packages of a program.
type IDGen struct{ next int64 }

func NewIDGen() *IDGen { return &IDGen{} }

func (g *IDGen) Next() NodeID {
	return NodeID(atomic.AddInt64(&g.next, 1))
}

// Node is implemented by every AST node (expression or statement).
type Node interface {
	Pos() source.Span
	NodeID() NodeID
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Comment is a `# ...` comment, kept separate from the live token stream
// but carrying its own span so tooling can reattach it (§4.3).
type Comment struct {
	Base
	Text     string
	DocStyle bool
}

// Module is the parser's output for one file: a flat statement body plus
// the comments stripped out of the token stream during parsing.
type Module struct {
	Base
	Filename string
	Pkg      string
	Body     []Stmt
	Comments []*Comment
}
