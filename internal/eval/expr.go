package eval

import (
	"fmt"
	"strings"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/value"
)

func (ev *Evaluator) evalExpr(env *Env, e ast.Expr) (*value.Value, error) {
	switch n := e.(type) {
	case *ast.Identifier:
		if v, ok := env.Get(n.Names[0]); ok {
			return ev.selectDotted(v, n.Names[1:])
		}
		return nil, ev.diagErr(n, fmt.Errorf("name %q is not defined", n.Names[0]))

	case *ast.NumberLit:
		if n.Suffix != "" {
			return value.NewNumberMultiplier(n.IntVal, n.Raw, n.Suffix), nil
		}
		if n.IsFloat {
			return value.Float(n.FloatVal), nil
		}
		return value.Int(n.IntVal), nil

	case *ast.StringLit:
		return value.Str(n.Value), nil

	case *ast.NameConstant:
		switch n.Kind {
		case ast.ConstTrue:
			return value.Bool(true), nil
		case ast.ConstFalse:
			return value.Bool(false), nil
		case ast.ConstUndefined:
			return value.Undefined(), nil
		}
		return value.None(), nil

	case *ast.ListExpr:
		var elems []*value.Value
		for _, el := range n.Elts {
			if st, ok := el.(*ast.Starred); ok {
				sv, err := ev.evalExpr(env, st.Value)
				if err != nil {
					return nil, err
				}
				if sv.Kind != value.KList {
					return nil, ev.diagErr(n, fmt.Errorf("cannot spread non-list value in list literal"))
				}
				elems = append(elems, sv.List.Elems...)
				continue
			}
			v, err := ev.evalExpr(env, el)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return value.NewList(elems...), nil

	case *ast.ConfigExpr:
		return ev.evalConfig(env, n)

	case *ast.SchemaExpr:
		return ev.evalSchemaExpr(env, n)

	case *ast.Selector:
		base, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return nil, err
		}
		if n.Optional && (base.Kind == value.KNone || base.Kind == value.KUndefined) {
			return value.Undefined(), nil
		}
		if !base.IsDictLike() {
			return nil, ev.diagErr(n, fmt.Errorf("value of kind %v has no attribute %q", base.Kind, n.Attr))
		}
		v, ok := base.AsDict().Get(n.Attr)
		if !ok {
			return nil, ev.diagErr(n, fmt.Errorf("attribute %q not found", n.Attr))
		}
		return v, nil

	case *ast.Subscript:
		return ev.evalSubscript(env, n)

	case *ast.Call:
		return ev.evalCall(env, n)

	case *ast.Unary:
		v, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return nil, err
		}
		res, err := evalUnary(n.Op, v)
		if err != nil {
			return nil, ev.diagErr(n, err)
		}
		return res, nil

	case *ast.Binary:
		l, err := ev.evalExpr(env, n.Left)
		if err != nil {
			return nil, err
		}
		r, err := ev.evalExpr(env, n.Right)
		if err != nil {
			return nil, err
		}
		res, err := evalBinary(n.Op, l, r)
		if err != nil {
			return nil, ev.diagErr(n, err)
		}
		return res, nil

	case *ast.Compare:
		left, err := ev.evalExpr(env, n.Left)
		if err != nil {
			return nil, err
		}
		for i, op := range n.Ops {
			right, err := ev.evalExpr(env, n.Rest[i])
			if err != nil {
				return nil, err
			}
			ok, err := evalCompareOp(op, n.NotIn[i], left, right)
			if err != nil {
				return nil, ev.diagErr(n, err)
			}
			if !ok {
				return value.Bool(false), nil
			}
			left = right
		}
		return value.Bool(true), nil

	case *ast.If:
		cond, err := ev.evalExpr(env, n.Cond)
		if err != nil {
			return nil, err
		}
		if cond.Truthy() {
			return ev.evalExpr(env, n.Then)
		}
		return ev.evalExpr(env, n.Else)

	case *ast.ListComp:
		return ev.evalListComp(env, n)

	case *ast.DictComp:
		return ev.evalDictComp(env, n)

	case *ast.Quantifier:
		return ev.evalQuantifier(env, n)

	case *ast.Lambda:
		return &value.Value{Kind: value.KFunction, Func: &value.FuncValue{
			Params: n.Params, Body: n.Body, Closure: env,
		}}, nil

	case *ast.JoinedString:
		var sb strings.Builder
		for _, p := range n.Parts {
			if p.Expr == nil {
				sb.WriteString(p.Text)
				continue
			}
			v, err := ev.evalExpr(env, p.Expr)
			if err != nil {
				return nil, err
			}
			sb.WriteString(v.String())
		}
		return value.Str(sb.String()), nil

	case *ast.NamedTypeExpr:
		// Pre-resolution ambiguity (§4.3): a bare NamedTypeExpr used in
		// value position is really an identifier reference.
		if v, ok := env.Get(n.Name); ok {
			return v, nil
		}
		return nil, ev.diagErr(n, fmt.Errorf("name %q is not defined", n.Name))
	}
	return nil, ev.diagErr(e, fmt.Errorf("unsupported expression %T", e))
}

func (ev *Evaluator) selectDotted(v *value.Value, rest []string) (*value.Value, error) {
	cur := v
	for _, name := range rest {
		if !cur.IsDictLike() {
			return nil, fmt.Errorf("value of kind %v has no attribute %q", cur.Kind, name)
		}
		next, ok := cur.AsDict().Get(name)
		if !ok {
			return nil, fmt.Errorf("attribute %q not found", name)
		}
		cur = next
	}
	return cur, nil
}

func (ev *Evaluator) evalConfig(env *Env, n *ast.ConfigExpr) (*value.Value, error) {
	out := value.NewDictValue()
	for _, entry := range n.Entries {
		if entry.Spread != nil {
			sv, err := ev.evalExpr(env, entry.Spread)
			if err != nil {
				return nil, err
			}
			if !sv.IsDictLike() {
				return nil, ev.diagErr(n, fmt.Errorf("cannot spread non-config value into config literal"))
			}
			merged, err := value.MergeUnion(out, sv, ev.ListOverride)
			if err != nil {
				return nil, ev.diagErr(n, err)
			}
			out = merged
			continue
		}
		key, ok := configKeyString(entry.Key)
		if !ok {
			if names, ok2 := selectorChain(entry.Key); ok2 && len(names) > 1 {
				if err := ev.setDottedConfigEntry(env, out, names, entry); err != nil {
					return nil, err
				}
				continue
			}
			kv, err := ev.evalExpr(env, entry.Key)
			if err != nil {
				return nil, err
			}
			key = kv.String()
		}
		v, err := ev.evalExpr(env, entry.Value)
		if err != nil {
			return nil, err
		}
		switch entry.Op {
		case ast.OpOverride:
			out.AsDict().Set(key, v, ast.OpOverride)
		case ast.OpInsert:
			if cur, ok := out.AsDict().Get(key); ok && cur.Kind == value.KList && v.Kind == value.KList {
				out.AsDict().Set(key, value.NewList(append(append([]*value.Value{}, cur.List.Elems...), v.List.Elems...)...), ast.OpInsert)
			} else {
				out.AsDict().Set(key, v, ast.OpInsert)
			}
		default:
			if cur, ok := out.AsDict().Get(key); ok && cur.IsDictLike() && v.IsDictLike() {
				merged, err := value.MergeUnion(cur, v, ev.ListOverride)
				if err != nil {
					return nil, ev.diagErr(n, err)
				}
				out.AsDict().Set(key, merged, ast.OpUnion)
			} else {
				out.AsDict().Set(key, v, ast.OpUnion)
			}
		}
	}
	return out, nil
}

// selectorChain flattens a dotted config key like `data.value` (parsed as
// nested *ast.Selector over an *ast.Identifier, §3's "attribute path"
// grammar) into its component names, outermost first.
func selectorChain(key ast.Expr) ([]string, bool) {
	var names []string
	for {
		switch n := key.(type) {
		case *ast.Identifier:
			if len(n.Names) != 1 {
				return nil, false
			}
			names = append([]string{n.Names[0]}, names...)
			return names, true
		case *ast.Selector:
			names = append([]string{n.Attr}, names...)
			key = n.Value
		default:
			return nil, false
		}
	}
}

// setDottedConfigEntry implements `a.b.c = value` (seed test 3): the leaf
// assignment carries the entry's own merge operator, every intermediate
// level is a plain union so the path merges into whatever is already at
// out[names[0]] rather than replacing it outright.
func (ev *Evaluator) setDottedConfigEntry(env *Env, out *value.Value, names []string, entry ast.ConfigEntry) error {
	v, err := ev.evalExpr(env, entry.Value)
	if err != nil {
		return err
	}

	nested := v
	for i := len(names) - 1; i >= 1; i-- {
		d := value.NewDictValue()
		op := ast.OpUnion
		if i == len(names)-1 {
			op = entry.Op
		}
		d.AsDict().Set(names[i], nested, op)
		nested = d
	}

	top := names[0]
	if cur, ok := out.AsDict().Get(top); ok && cur.IsDictLike() && nested.IsDictLike() {
		merged, err := value.MergeUnion(cur, nested, ev.ListOverride)
		if err != nil {
			return err
		}
		out.AsDict().Set(top, merged, ast.OpUnion)
	} else {
		out.AsDict().Set(top, nested, ast.OpUnion)
	}
	return nil
}

func configKeyString(key ast.Expr) (string, bool) {
	switch k := key.(type) {
	case *ast.Identifier:
		if len(k.Names) == 1 {
			return k.Names[0], true
		}
	case *ast.StringLit:
		return k.Value, true
	case *ast.NamedTypeExpr:
		return k.Name, true
	}
	return "", false
}

func (ev *Evaluator) evalSubscript(env *Env, n *ast.Subscript) (*value.Value, error) {
	base, err := ev.evalExpr(env, n.Value)
	if err != nil {
		return nil, err
	}
	if n.Slice {
		return ev.evalSlice(env, base, n)
	}
	idx, err := ev.evalExpr(env, n.Index)
	if err != nil {
		return nil, err
	}
	switch base.Kind {
	case value.KList:
		i := int(idx.I)
		if i < 0 {
			i += len(base.List.Elems)
		}
		if i < 0 || i >= len(base.List.Elems) {
			return nil, ev.diagErr(n, fmt.Errorf("list index out of range"))
		}
		return base.List.Elems[i], nil
	case value.KStr:
		runes := []rune(base.S)
		i := int(idx.I)
		if i < 0 {
			i += len(runes)
		}
		if i < 0 || i >= len(runes) {
			return nil, ev.diagErr(n, fmt.Errorf("string index out of range"))
		}
		return value.Str(string(runes[i])), nil
	case value.KDict, value.KSchema:
		key := idx.String()
		v, ok := base.AsDict().Get(key)
		if !ok {
			return nil, ev.diagErr(n, fmt.Errorf("key %q not found", key))
		}
		return v, nil
	}
	return nil, ev.diagErr(n, fmt.Errorf("value of kind %v is not subscriptable", base.Kind))
}

func (ev *Evaluator) evalSlice(env *Env, base *value.Value, n *ast.Subscript) (*value.Value, error) {
	length := 0
	switch base.Kind {
	case value.KList:
		length = len(base.List.Elems)
	case value.KStr:
		length = len([]rune(base.S))
	default:
		return nil, ev.diagErr(n, fmt.Errorf("value of kind %v is not sliceable", base.Kind))
	}
	step := 1
	if n.Step != nil {
		sv, err := ev.evalExpr(env, n.Step)
		if err != nil {
			return nil, err
		}
		step = int(sv.I)
		if step == 0 {
			return nil, ev.diagErr(n, fmt.Errorf("slice step cannot be zero"))
		}
	}
	lo, hi := 0, length
	if step < 0 {
		lo, hi = length-1, -1
	}
	if n.Lo != nil {
		v, err := ev.evalExpr(env, n.Lo)
		if err != nil {
			return nil, err
		}
		lo = normalizeIndex(int(v.I), length)
	}
	if n.Hi != nil {
		v, err := ev.evalExpr(env, n.Hi)
		if err != nil {
			return nil, err
		}
		hi = normalizeIndex(int(v.I), length)
	}
	var idxs []int
	if step > 0 {
		for i := lo; i < hi && i < length; i += step {
			if i >= 0 {
				idxs = append(idxs, i)
			}
		}
	} else {
		for i := lo; i > hi && i >= 0; i += step {
			if i < length {
				idxs = append(idxs, i)
			}
		}
	}
	if base.Kind == value.KStr {
		runes := []rune(base.S)
		var sb strings.Builder
		for _, i := range idxs {
			sb.WriteRune(runes[i])
		}
		return value.Str(sb.String()), nil
	}
	elems := make([]*value.Value, 0, len(idxs))
	for _, i := range idxs {
		elems = append(elems, base.List.Elems[i])
	}
	return value.NewList(elems...), nil
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func (ev *Evaluator) evalListComp(env *Env, n *ast.ListComp) (*value.Value, error) {
	var elems []*value.Value
	err := ev.forEachComp(env, n.Clauses, func(inner *Env) error {
		v, err := ev.evalExpr(inner, n.Elt)
		if err != nil {
			return err
		}
		elems = append(elems, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value.NewList(elems...), nil
}

func (ev *Evaluator) evalDictComp(env *Env, n *ast.DictComp) (*value.Value, error) {
	out := value.NewDictValue()
	err := ev.forEachComp(env, n.Clauses, func(inner *Env) error {
		kv, err := ev.evalExpr(inner, n.Key)
		if err != nil {
			return err
		}
		vv, err := ev.evalExpr(inner, n.Value)
		if err != nil {
			return err
		}
		out.AsDict().Set(kv.String(), vv, n.Op)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// forEachComp drives the nested for/if clauses of a comprehension,
// calling body once per surviving combination with a scoped Env.
func (ev *Evaluator) forEachComp(env *Env, clauses []ast.CompClause, body func(*Env) error) error {
	var rec func(idx int, cur *Env) error
	rec = func(idx int, cur *Env) error {
		if idx == len(clauses) {
			return body(cur)
		}
		cl := clauses[idx]
		iter, err := ev.evalExpr(cur, cl.Iter)
		if err != nil {
			return err
		}
		elems, err := ev.iterElems(iter)
		if err != nil {
			return err
		}
		for _, e := range elems {
			inner := NewEnv(cur)
			ev.bindCompTargets(inner, cl.Targets, e)
			ok := true
			for _, ifc := range cl.Ifs {
				cv, err := ev.evalExpr(inner, ifc)
				if err != nil {
					return err
				}
				if !cv.Truthy() {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			if err := rec(idx+1, inner); err != nil {
				return err
			}
		}
		return nil
	}
	return rec(0, env)
}

func (ev *Evaluator) bindCompTargets(env *Env, targets []ast.Expr, e *value.Value) {
	if len(targets) == 1 {
		if id, ok := targets[0].(*ast.Identifier); ok {
			env.Define(id.Names[0], e)
			return
		}
	}
	if e.Kind == value.KList {
		for i, t := range targets {
			if id, ok := t.(*ast.Identifier); ok && i < len(e.List.Elems) {
				env.Define(id.Names[0], e.List.Elems[i])
			}
		}
	}
}

func (ev *Evaluator) iterElems(v *value.Value) ([]*value.Value, error) {
	switch v.Kind {
	case value.KList:
		return v.List.Elems, nil
	case value.KDict, value.KSchema:
		d := v.AsDict()
		elems := make([]*value.Value, 0, len(d.Order))
		for _, k := range d.Order {
			elems = append(elems, value.Str(k))
		}
		return elems, nil
	case value.KStr:
		runes := []rune(v.S)
		elems := make([]*value.Value, 0, len(runes))
		for _, r := range runes {
			elems = append(elems, value.Str(string(r)))
		}
		return elems, nil
	}
	return nil, fmt.Errorf("value of kind %v is not iterable", v.Kind)
}

func (ev *Evaluator) evalQuantifier(env *Env, n *ast.Quantifier) (*value.Value, error) {
	iter, err := ev.evalExpr(env, n.Iter)
	if err != nil {
		return nil, err
	}
	elems, err := ev.iterElems(iter)
	if err != nil {
		return nil, ev.diagErr(n, err)
	}

	switch n.Kind {
	case ast.QAll:
		for _, e := range elems {
			inner := NewEnv(env)
			ev.bindCompTargets(inner, targetIdents(n.Targets), e)
			tv, err := ev.evalExpr(inner, n.Test)
			if err != nil {
				return nil, err
			}
			if !tv.Truthy() {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil

	case ast.QAny:
		for _, e := range elems {
			inner := NewEnv(env)
			ev.bindCompTargets(inner, targetIdents(n.Targets), e)
			tv, err := ev.evalExpr(inner, n.Test)
			if err != nil {
				return nil, err
			}
			if tv.Truthy() {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil

	case ast.QFilter:
		var out []*value.Value
		for _, e := range elems {
			inner := NewEnv(env)
			ev.bindCompTargets(inner, targetIdents(n.Targets), e)
			tv, err := ev.evalExpr(inner, n.Test)
			if err != nil {
				return nil, err
			}
			if tv.Truthy() {
				out = append(out, e)
			}
		}
		return value.NewList(out...), nil

	case ast.QMap:
		out := make([]*value.Value, 0, len(elems))
		for _, e := range elems {
			inner := NewEnv(env)
			ev.bindCompTargets(inner, targetIdents(n.Targets), e)
			tv, err := ev.evalExpr(inner, n.Test)
			if err != nil {
				return nil, err
			}
			out = append(out, tv)
		}
		return value.NewList(out...), nil
	}
	return nil, fmt.Errorf("unknown quantifier kind")
}

func targetIdents(names []string) []ast.Expr {
	out := make([]ast.Expr, len(names))
	for i, name := range names {
		out[i] = &ast.Identifier{Names: []string{name}}
	}
	return out
}

func (ev *Evaluator) evalCall(env *Env, n *ast.Call) (*value.Value, error) {
	if id, ok := n.Func.(*ast.Identifier); ok && len(id.Names) == 1 {
		if bf, ok := builtins[id.Names[0]]; ok {
			args, err := ev.evalArgs(env, n.Args)
			if err != nil {
				return nil, err
			}
			v, err := bf(args)
			if err != nil {
				return nil, ev.diagErr(n, err)
			}
			return v, nil
		}
	}
	fv, err := ev.evalExpr(env, n.Func)
	if err != nil {
		return nil, err
	}
	if fv.Kind != value.KFunction {
		return nil, ev.diagErr(n, fmt.Errorf("value of kind %v is not callable", fv.Kind))
	}
	callEnv := NewEnv(fv.Func.Closure.(*Env))
	args, err := ev.evalArgs(env, n.Args)
	if err != nil {
		return nil, err
	}
	for i, p := range fv.Func.Params {
		if i < len(args.positional) {
			callEnv.Define(p.Name, args.positional[i])
			continue
		}
		if v, ok := args.keyword[p.Name]; ok {
			callEnv.Define(p.Name, v)
			continue
		}
		if p.Default != nil {
			dv, err := ev.evalExpr(callEnv, p.Default)
			if err != nil {
				return nil, err
			}
			callEnv.Define(p.Name, dv)
			continue
		}
		return nil, ev.diagErr(n, fmt.Errorf("missing argument %q", p.Name))
	}
	var result *value.Value = value.None()
	for _, s := range fv.Func.Body {
		if ret, ok := s.(*ast.ExprStmt); ok {
			v, err := ev.evalExpr(callEnv, ret.Value)
			if err != nil {
				return nil, err
			}
			result = v
			continue
		}
		if err := ev.evalStmt(callEnv, s); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type callArgs struct {
	positional []*value.Value
	keyword    map[string]*value.Value
}

func (ev *Evaluator) evalArgs(env *Env, args []ast.CallArg) (callArgs, error) {
	out := callArgs{keyword: map[string]*value.Value{}}
	for _, a := range args {
		v, err := ev.evalExpr(env, a.Value)
		if err != nil {
			return out, err
		}
		if a.Name != "" {
			out.keyword[a.Name] = v
		} else {
			out.positional = append(out.positional, v)
		}
	}
	return out, nil
}
