// Package eval implements the tree-walk evaluator (§4.6, Evaluator module
// G): it consumes a resolved Module plus the resolver's type/schema
// tables and produces a runtime internal/value.Value, generalizing the
// teacher's frame ([]reflect.Value indexed by symbol) into an
// environment of named *value.Value bindings, since KCL locals are
// looked up by name rather than by a compile-time frame slot index.
package eval

import "github.com/kcl-lang/compiler/internal/value"

// Env is one level of the runtime binding chain, mirroring
// internal/scope.Scope's tree shape but holding values instead of types.
type Env struct {
	parent *Env
	vars   map[string]*value.Value
}

func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, vars: map[string]*value.Value{}}
}

func (e *Env) Get(name string) (*value.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Define binds name in e's own level (shadowing any parent binding).
func (e *Env) Define(name string, v *value.Value) { e.vars[name] = v }

// Set assigns name in the nearest enclosing level that already defines
// it, or in e itself if none does (matching KCL's "assignment always
// succeeds, declaring on first use within the current scope" semantics).
func (e *Env) Set(name string, v *value.Value) {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return
		}
	}
	e.vars[name] = v
}
