package value

import (
	"fmt"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/types"
)

// MergeUnion implements the config-merge algorithm of §4.6: `lhs ∪ rhs`,
// both dict-like. listOverride resolves the open question in §9 ("the
// relationship between list_override and the entry-level Override
// operator... is unspecified") by making listOverride control only the
// Union(:) branch for list-typed values; an explicit per-entry Override
// (=) always replaces, regardless of listOverride — the entry operator
// is the more specific instruction and wins.
func MergeUnion(lhs, rhs *Value, listOverride bool) (*Value, error) {
	if !lhs.IsDictLike() || !rhs.IsDictLike() {
		return nil, fmt.Errorf("merge: both operands must be dict-like, got %v and %v", lhs.Kind, rhs.Kind)
	}
	result := DeepCopy(lhs)
	rd := rhs.AsDict()
	ld := result.AsDict()

	for _, key := range rd.Order {
		re := rd.Entries[key]
		cur, hasCur := ld.Get(key)

		switch re.Op {
		case ast.OpOverride:
			ld.Set(key, packAttr(ld, key, DeepCopy(re.Value)), ast.OpOverride)

		case ast.OpInsert:
			if !hasCur || cur.Kind != KList {
				ld.Set(key, NewList(DeepCopy(re.Value)), ast.OpUnion)
				continue
			}
			spliced := spliceInsert(cur.List.Elems, DeepCopy(re.Value), re.InsertIdx)
			ld.Set(key, &Value{Kind: KList, List: &ListValue{Elems: spliced}}, ast.OpUnion)

		default: // ast.OpUnion
			if !hasCur {
				ld.Set(key, packAttr(ld, key, DeepCopy(re.Value)), ast.OpUnion)
				continue
			}
			if cur.IsDictLike() && re.Value.IsDictLike() {
				merged, err := MergeUnion(cur, re.Value, listOverride)
				if err != nil {
					return nil, err
				}
				ld.Set(key, packAttr(ld, key, merged), ast.OpUnion)
				continue
			}
			if cur.Kind == KList && re.Value.Kind == KList {
				if listOverride {
					ld.Set(key, DeepCopy(re.Value), ast.OpUnion)
				} else {
					cat := append(append([]*Value{}, cur.List.Elems...), re.Value.List.Elems...)
					ld.Set(key, &Value{Kind: KList, List: &ListValue{Elems: cat}}, ast.OpUnion)
				}
				continue
			}
			ld.Set(key, packAttr(ld, key, DeepCopy(re.Value)), ast.OpUnion)
		}
	}
	return result, nil
}

// spliceInsert inserts v into elems at idx, or appends when idx < 0
// (§4.6: "Insert (+=) at index i: splice value into lhs[key]'s list at
// position i (or append if i=-1)").
func spliceInsert(elems []*Value, v *Value, idx int) []*Value {
	if idx < 0 || idx >= len(elems) {
		return append(append([]*Value{}, elems...), v)
	}
	out := make([]*Value, 0, len(elems)+1)
	out = append(out, elems[:idx]...)
	out = append(out, v)
	out = append(out, elems[idx:]...)
	return out
}

// packAttr applies the "type packing" rule: if d carries a declared
// attribute type for key and that type is a schema, promote a plain
// merged Dict to a Schema instance of that type (§4.6).
func packAttr(d *DictValue, key string, v *Value) *Value {
	if d.AttrTypes == nil {
		return v
	}
	t, ok := d.AttrTypes[key]
	if !ok || t == nil || t.Cat != types.SchemaCat || v.Kind != KDict {
		return v
	}
	return &Value{Kind: KSchema, Schema: &SchemaValue{Dict: v.Dict, Type: t}}
}

// MergePatch implements RFC 7396 JSON Merge Patch (§4.6): if patch is not
// a config, it replaces src outright; otherwise start from a deep copy of
// src (or an empty dict) and, for each key in patch in insertion order:
// None deletes, a nested config recurses, anything else replaces.
func MergePatch(src, patch *Value) *Value {
	if patch == nil || !patch.IsDictLike() {
		return DeepCopy(patch)
	}
	var base *DictValue
	if src != nil && src.IsDictLike() {
		base = deepCopyDict(src.AsDict())
	} else {
		base = NewDict()
	}
	pd := patch.AsDict()
	for _, key := range pd.Order {
		pv := pd.Entries[key].Value
		if pv.Kind == KNone {
			base.Delete(key)
			continue
		}
		if pv.IsDictLike() {
			var cur *Value
			if e, ok := base.Get(key); ok {
				cur = e
			}
			base.Set(key, MergePatch(cur, pv), ast.OpUnion)
			continue
		}
		base.Set(key, DeepCopy(pv), ast.OpUnion)
	}
	return &Value{Kind: KDict, Dict: base}
}
