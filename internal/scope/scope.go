// Package scope implements the Scope tree and ScopeObject table (§3),
// generalizing the teacher's scope/symbol pair (interp/interp.go's
// initUniverse builds a *scope with a name->*symbol map) to KCL's richer
// kind taxonomy and insertion-ordered globals.
package scope

import (
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/types"
)

// Kind tags what a Scope represents.
type Kind int

const (
	Package Kind = iota
	ModuleKind
	SchemaKind
	Loop
	LambdaKind
	Condition
)

// ObjectKind tags what a ScopeObject names.
type ObjectKind int

const (
	Variable ObjectKind = iota
	Parameter
	Attribute
	Module
	Schema
	Rule
	Definition
	TypeAlias
)

// Object is one named entity in a Scope.
type Object struct {
	Name string
	Type *types.Type
	Kind ObjectKind
	Span source.Span
	Used bool
}

// Scope is a node in the scope tree. Objects is insertion-ordered via
// Order so that package-scope iteration (e.g. for "program merge",
// §4.4.5) is deterministic.
type Scope struct {
	Kind    Kind
	Parent  *Scope
	Objects map[string]*Object
	Order   []string

	// PkgPath is set on a package's root scope to that package's path.
	PkgPath string
}

// New returns an empty scope of the given kind under parent (nil for a
// root scope).
func New(kind Kind, parent *Scope) *Scope {
	return &Scope{Kind: kind, Parent: parent, Objects: map[string]*Object{}}
}

// Define inserts obj into s, preserving insertion order. A redefinition of
// the same name overwrites the Object but keeps its original position in
// Order.
func (s *Scope) Define(obj *Object) {
	if _, exists := s.Objects[obj.Name]; !exists {
		s.Order = append(s.Order, obj.Name)
	}
	s.Objects[obj.Name] = obj
}

// Lookup traverses parent scopes until a match or the root (§3: "name
// lookup traverses parent scopes until a match or root").
func (s *Scope) Lookup(name string) (*Object, *Scope) {
	for cur := s; cur != nil; cur = cur.Parent {
		if obj, ok := cur.Objects[name]; ok {
			return obj, cur
		}
	}
	return nil, nil
}

// LookupLocal looks up name only in s itself, without walking parents.
func (s *Scope) LookupLocal(name string) (*Object, bool) {
	obj, ok := s.Objects[name]
	return obj, ok
}

// Root walks to the outermost (Package) scope.
func (s *Scope) Root() *Scope {
	cur := s
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}
