package eval

import (
	"fmt"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/value"
)

// evalSchemaExpr instantiates a schema (§4.6): build the attribute
// defaults inherited down the base/mixin chain, merge in the literal
// config, then run the check block against the resulting attribute
// bindings — mirroring the teacher's two-phase "build frame, then run
// checks" instantiation order (interp.go's evalSchema). Nested configs
// are not type-packed: a config given for an attribute whose declared
// type is a schema stays a plain dict, and that schema's defaults and
// checks are not applied to it.
func (ev *Evaluator) evalSchemaExpr(env *Env, n *ast.SchemaExpr) (*value.Value, error) {
	name := n.Name.Names[len(n.Name.Names)-1]
	stmt, ok := ev.schemas[name]
	if !ok {
		if rule, ok := ev.rules[name]; ok {
			return ev.instantiateRule(env, n, rule)
		}
		return nil, ev.diagErr(n, fmt.Errorf("schema %q is not defined", name))
	}

	defaults, err := ev.schemaDefaults(env, stmt, map[string]bool{})
	if err != nil {
		return nil, err
	}

	var cfgVal *value.Value = value.NewDictValue()
	if n.Config != nil {
		cfgVal, err = ev.evalConfig(env, n.Config)
		if err != nil {
			return nil, err
		}
	}

	merged, err := value.MergeUnion(defaults, cfgVal, ev.ListOverride)
	if err != nil {
		return nil, ev.diagErr(n, err)
	}

	if err := ev.checkRequiredAttrs(stmt, merged.AsDict(), n); err != nil {
		return nil, err
	}

	inst := &value.Value{Kind: value.KSchema, Schema: &value.SchemaValue{
		Dict: merged.AsDict(), ConfigSpan: n.Pos(),
	}}

	if err := ev.runChecks(env, stmt, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// schemaDefaults walks stmt's mixin list then its base chain (root
// first, so a subclass's own default wins), building the inherited
// attribute dict before the caller's literal config is merged on top.
// visited guards against a schema-inheritance cycle that slipped past
// the resolver's own cycle diagnostic (§7 "schema cycle"): once a name
// is seen again on the current path, that branch stops instead of
// recursing forever.
func (ev *Evaluator) schemaDefaults(env *Env, stmt *ast.SchemaStmt, visited map[string]bool) (*value.Value, error) {
	out := value.NewDictValue()
	if visited[stmt.Name] {
		return out, nil
	}
	visited[stmt.Name] = true

	for _, mx := range stmt.Mixins {
		mxStmt, ok := ev.schemas[mx.Name]
		if !ok || visited[mx.Name] {
			continue
		}
		mxDefaults, err := ev.schemaDefaults(env, mxStmt, visited)
		if err != nil {
			return nil, err
		}
		merged, err := value.MergeUnion(out, mxDefaults, ev.ListOverride)
		if err != nil {
			return nil, err
		}
		out = merged
	}

	if stmt.Base_ != nil {
		if baseStmt, ok := ev.schemas[stmt.Base_.Name]; ok && !visited[stmt.Base_.Name] {
			baseDefaults, err := ev.schemaDefaults(env, baseStmt, visited)
			if err != nil {
				return nil, err
			}
			merged, err := value.MergeUnion(out, baseDefaults, ev.ListOverride)
			if err != nil {
				return nil, err
			}
			out = merged
		}
	}

	for _, attr := range stmt.Attrs {
		if !attr.HasDefault {
			continue
		}
		v, err := ev.evalExpr(env, attr.Default)
		if err != nil {
			return nil, err
		}
		out.AsDict().Set(attr.Name, v, ast.OpUnion)
	}
	return out, nil
}

func (ev *Evaluator) checkRequiredAttrs(stmt *ast.SchemaStmt, d *value.DictValue, n ast.Node) error {
	missing := ev.collectRequiredAttrs(stmt)
	for _, name := range missing {
		if _, ok := d.Get(name); !ok {
			return ev.diagErr(n, fmt.Errorf("attribute %q of schema %s is required and not assigned a value", name, stmt.Name))
		}
	}
	return nil
}

func (ev *Evaluator) collectRequiredAttrs(stmt *ast.SchemaStmt) []string {
	var out []string
	seen := map[string]bool{}
	visited := map[string]bool{}
	var walk func(*ast.SchemaStmt)
	walk = func(s *ast.SchemaStmt) {
		if visited[s.Name] {
			return
		}
		visited[s.Name] = true
		for _, mx := range s.Mixins {
			if mxStmt, ok := ev.schemas[mx.Name]; ok {
				walk(mxStmt)
			}
		}
		if s.Base_ != nil {
			if baseStmt, ok := ev.schemas[s.Base_.Name]; ok {
				walk(baseStmt)
			}
		}
		for _, attr := range s.Attrs {
			if seen[attr.Name] {
				continue
			}
			seen[attr.Name] = true
			if !attr.Optional && !attr.HasDefault {
				out = append(out, attr.Name)
			}
		}
	}
	walk(stmt)
	return out
}

// runChecks evaluates stmt's (and its base chain's) check block with the
// instance's own attributes bound by name, raising a diagnostic on the
// first failing predicate.
func (ev *Evaluator) runChecks(env *Env, stmt *ast.SchemaStmt, inst *value.Value) error {
	checkEnv := NewEnv(env)
	for _, name := range inst.Schema.Dict.Order {
		v, _ := inst.Schema.Dict.Get(name)
		checkEnv.Define(name, v)
	}

	visited := map[string]bool{}
	var walk func(*ast.SchemaStmt) error
	walk = func(s *ast.SchemaStmt) error {
		if visited[s.Name] {
			return nil
		}
		visited[s.Name] = true
		if s.Base_ != nil {
			if baseStmt, ok := ev.schemas[s.Base_.Name]; ok {
				if err := walk(baseStmt); err != nil {
					return err
				}
			}
		}
		for _, ck := range s.Checks {
			tv, err := ev.evalExpr(checkEnv, ck.Test)
			if err != nil {
				return err
			}
			if !tv.Truthy() {
				msg := fmt.Sprintf("check failed in schema %s", s.Name)
				if ck.Msg != nil {
					mv, err := ev.evalExpr(checkEnv, ck.Msg)
					if err == nil {
						msg = mv.String()
					}
				}
				return ev.diagErr(s, fmt.Errorf("%s", msg))
			}
		}
		return nil
	}
	return walk(stmt)
}

// instantiateRule evaluates `RuleName { ... }` (§3 lists Rule alongside
// Schema as a ScopeObject kind, and rule declarations parse to the same
// SchemaExpr instantiation syntax): the literal config becomes the
// subject checks are bound against, since rules carry no attrs/defaults
// of their own, only a single-parent Base_ check chain.
func (ev *Evaluator) instantiateRule(env *Env, n *ast.SchemaExpr, rule *ast.RuleStmt) (*value.Value, error) {
	subject := value.NewDictValue()
	if n.Config != nil {
		cfgVal, err := ev.evalConfig(env, n.Config)
		if err != nil {
			return nil, err
		}
		subject = cfgVal
	}
	if err := ev.runRule(env, rule, subject); err != nil {
		return nil, err
	}
	return &value.Value{Kind: value.KSchema, Schema: &value.SchemaValue{
		Dict: subject.AsDict(), ConfigSpan: n.Pos(),
	}}, nil
}

// runRule evaluates a rule block (and its single-parent Base_ chain,
// root first) against an already-built subject Value, binding the
// subject's own entries by name — rules have no attrs of their own,
// only checks run against the bound config.
func (ev *Evaluator) runRule(env *Env, rule *ast.RuleStmt, subject *value.Value) error {
	checkEnv := NewEnv(env)
	if subject.IsDictLike() {
		for _, name := range subject.AsDict().Order {
			v, _ := subject.AsDict().Get(name)
			checkEnv.Define(name, v)
		}
	}

	visited := map[string]bool{}
	var walk func(*ast.RuleStmt) error
	walk = func(r *ast.RuleStmt) error {
		if visited[r.Name] {
			return nil
		}
		visited[r.Name] = true
		if r.Base_ != nil {
			if baseRule, ok := ev.rules[r.Base_.Name]; ok {
				if err := walk(baseRule); err != nil {
					return err
				}
			}
		}
		for _, ck := range r.Checks {
			tv, err := ev.evalExpr(checkEnv, ck.Test)
			if err != nil {
				return err
			}
			if !tv.Truthy() {
				msg := fmt.Sprintf("check failed in rule %s", r.Name)
				if ck.Msg != nil {
					mv, err := ev.evalExpr(checkEnv, ck.Msg)
					if err == nil {
						msg = mv.String()
					}
				}
				return ev.diagErr(r, fmt.Errorf("%s", msg))
			}
		}
		return nil
	}
	return walk(rule)
}
