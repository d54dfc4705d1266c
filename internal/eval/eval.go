package eval

import (
	"fmt"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/resolver"
	"github.com/kcl-lang/compiler/internal/token"
	"github.com/kcl-lang/compiler/internal/value"
)

// Evaluator walks a resolved Module and produces its output Value,
// generalizing the teacher's Interpreter.Eval (interp.go) — minus
// reflect.Value and Go-specific call/type machinery, since KCL has no
// foreign-function surface to bridge to.
type Evaluator struct {
	h            *diag.Handler
	res          *resolver.Resolver
	schemas      map[string]*ast.SchemaStmt
	rules        map[string]*ast.RuleStmt
	ListOverride bool // the config-merge option threaded through (§4.6)
}

func New(h *diag.Handler, res *resolver.Resolver) *Evaluator {
	return &Evaluator{h: h, res: res, schemas: map[string]*ast.SchemaStmt{}, rules: map[string]*ast.RuleStmt{}}
}

// EvalModule executes mod top to bottom in a fresh module-level Env and
// returns the config built from every top-level name binding, in
// declaration order — the observable "compiled output" of a KCL file.
func (ev *Evaluator) EvalModule(mod *ast.Module) (*value.Value, error) {
	for _, s := range mod.Body {
		switch n := s.(type) {
		case *ast.SchemaStmt:
			ev.schemas[n.Name] = n
		case *ast.RuleStmt:
			ev.rules[n.Name] = n
		}
	}

	env := NewEnv(nil)
	var order []string
	for _, s := range mod.Body {
		if err := ev.evalStmt(env, s); err != nil {
			return nil, err
		}
		if name, ok := topLevelName(s); ok {
			alreadyListed := false
			for _, o := range order {
				if o == name {
					alreadyListed = true
					break
				}
			}
			if !alreadyListed {
				order = append(order, name)
			}
		}
	}

	out := value.NewDict()
	for _, name := range order {
		v, ok := env.Get(name)
		if !ok {
			continue
		}
		out.Set(name, v, ast.OpUnion)
	}
	return &value.Value{Kind: value.KDict, Dict: out}, nil
}

func topLevelName(s ast.Stmt) (string, bool) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		if len(n.Targets) == 1 {
			if id, ok := n.Targets[0].(*ast.Identifier); ok && len(id.Names) == 1 {
				return id.Names[0], true
			}
		}
	case *ast.UnificationStmt:
		return n.Target.Names[0], true
	}
	return "", false
}

func (ev *Evaluator) evalStmt(env *Env, s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.AssignStmt:
		v, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return err
		}
		for _, target := range n.Targets {
			if err := ev.assign(env, target, v); err != nil {
				return err
			}
		}
		return nil

	case *ast.AugAssignStmt:
		cur, err := ev.evalExpr(env, n.Target)
		if err != nil {
			return err
		}
		rhs, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return err
		}
		res, err := evalBinary(augBaseOp(n.Op), cur, rhs)
		if err != nil {
			return ev.diagErr(n, err)
		}
		return ev.assign(env, n.Target, res)

	case *ast.UnificationStmt:
		v, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return err
		}
		if cur, ok := env.Get(n.Target.Names[0]); ok && cur.IsDictLike() && v.IsDictLike() {
			merged, err := value.MergeUnion(cur, v, ev.ListOverride)
			if err != nil {
				return ev.diagErr(n, err)
			}
			env.Set(n.Target.Names[0], merged)
			return nil
		}
		env.Set(n.Target.Names[0], v)
		return nil

	case *ast.SchemaStmt, *ast.RuleStmt, *ast.ImportStmt, *ast.TypeAliasStmt:
		return nil

	case *ast.IfStmt:
		cond, err := ev.evalExpr(env, n.Cond)
		if err != nil {
			return err
		}
		body := n.Body
		if !cond.Truthy() {
			body = n.Else
		}
		inner := NewEnv(env)
		for _, st := range body {
			if err := ev.evalStmt(inner, st); err != nil {
				return err
			}
		}
		for k, v := range inner.vars {
			env.Set(k, v)
		}
		return nil

	case *ast.AssertStmt:
		if n.If != nil {
			guard, err := ev.evalExpr(env, n.If)
			if err != nil {
				return err
			}
			if !guard.Truthy() {
				return nil
			}
		}
		test, err := ev.evalExpr(env, n.Test)
		if err != nil {
			return err
		}
		if !test.Truthy() {
			msg := "assertion failed"
			if n.Msg != nil {
				mv, err := ev.evalExpr(env, n.Msg)
				if err == nil {
					msg = mv.String()
				}
			}
			return ev.diagErr(n, fmt.Errorf("%s", msg))
		}
		return nil

	case *ast.ExprStmt:
		_, err := ev.evalExpr(env, n.Value)
		return err
	}
	return nil
}

func (ev *Evaluator) assign(env *Env, target ast.Expr, v *value.Value) error {
	switch tg := target.(type) {
	case *ast.Identifier:
		env.Set(tg.Names[0], v)
		return nil
	case *ast.Selector:
		base, err := ev.evalExpr(env, tg.Value)
		if err != nil {
			return err
		}
		if !base.IsDictLike() {
			return ev.diagErr(tg, fmt.Errorf("cannot assign attribute %q on non-config value", tg.Attr))
		}
		base.AsDict().Set(tg.Attr, v, ast.OpOverride)
		return nil
	case *ast.Subscript:
		base, err := ev.evalExpr(env, tg.Value)
		if err != nil {
			return err
		}
		idx, err := ev.evalExpr(env, tg.Index)
		if err != nil {
			return err
		}
		switch base.Kind {
		case value.KList:
			i := int(idx.I)
			if i < 0 || i >= len(base.List.Elems) {
				return ev.diagErr(tg, fmt.Errorf("list index out of range"))
			}
			base.List.Elems[i] = v
		case value.KDict, value.KSchema:
			base.AsDict().Set(idx.S, v, ast.OpOverride)
		default:
			return ev.diagErr(tg, fmt.Errorf("value of kind %v is not subscriptable", base.Kind))
		}
		return nil
	}
	return fmt.Errorf("invalid assignment target")
}

func (ev *Evaluator) diagErr(sp ast.Node, err error) error {
	ev.h.Errorf(sp.Pos(), "%s", err)
	return err
}

// augBaseOp maps a `+=`-family operator to the plain binary operator it
// composes with assignment (§4.3's AugAssignStmt.Op is stored as the
// OP= token itself).
func augBaseOp(op token.Kind) token.Kind {
	switch op {
	case token.PlusEq:
		return token.Plus
	case token.MinusEq:
		return token.Minus
	case token.StarEq:
		return token.Star
	case token.SlashEq:
		return token.Slash
	case token.PercentEq:
		return token.Percent
	case token.DSlashEq:
		return token.DSlash
	case token.AmpEq:
		return token.Amp
	case token.PipeEq:
		return token.Pipe
	case token.CaretEq:
		return token.Caret
	case token.LShiftEq:
		return token.LShift
	case token.RShiftEq:
		return token.RShift
	}
	return op
}
