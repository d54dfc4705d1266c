// Package value implements KCL's runtime Value model (§3, §4.6): a
// variant type with reference-counted interior mutability, generalizing
// the teacher's frame ([]reflect.Value) into a tree that can merge,
// deep-copy, and serialize, because configuration values (unlike Go
// reflect.Values) are themselves first-class merge operands.
package value

import (
	"fmt"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/types"
)

// Kind tags a Value's variant.
type Kind int

const (
	KNone Kind = iota
	KUndefined
	KBool
	KInt
	KFloat
	KStr
	KList
	KDict
	KSchema
	KFunction
	KNumberMultiplier
	KError
)

var kindNames = [...]string{
	"NoneType", "Undefined", "bool", "int", "float", "str",
	"list", "dict", "schema", "function", "number_multiplier", "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// Value is the tagged union of every runtime value alternative (§3).
// Lists and Dicts hold pointers to their backing structures so that
// config-merge can mutate shared state in place, matching the spec's
// "values are reference-counted; cross-value references remain valid
// during a single evaluation" ownership note — a single-threaded arena
// (§9) makes plain Go pointer aliasing sufficient without atomics.
type Value struct {
	Kind Kind

	B bool
	I int64
	F float64
	S string

	List   *ListValue
	Dict   *DictValue
	Schema *SchemaValue
	Func   *FuncValue
	NM     NumberMultiplier
	Err    *ErrorValue
}

type ListValue struct {
	Elems []*Value
}

// DictEntry is one key's value plus the merge operator it was last
// assigned with, and the insert index for a pending Insert (+=) splice.
type DictEntry struct {
	Value     *Value
	Op        ast.ConfigOp
	InsertIdx int
}

// DictValue is an insertion-ordered map, carrying an optional attribute
// type map used for merge-time "type packing" (promoting a plain config
// to a schema instance when assigned to a schema-typed attribute, §4.6).
type DictValue struct {
	Entries   map[string]*DictEntry
	Order     []string
	AttrTypes map[string]*types.Type
}

func NewDict() *DictValue {
	return &DictValue{Entries: map[string]*DictEntry{}}
}

func (d *DictValue) Get(key string) (*Value, bool) {
	e, ok := d.Entries[key]
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Set inserts or overwrites key, preserving its original position in
// Order on overwrite (matches scope.Scope.Define's insertion-order rule).
func (d *DictValue) Set(key string, v *Value, op ast.ConfigOp) {
	if _, exists := d.Entries[key]; !exists {
		d.Order = append(d.Order, key)
	}
	d.Entries[key] = &DictEntry{Value: v, Op: op, InsertIdx: -1}
}

func (d *DictValue) Delete(key string) {
	if _, ok := d.Entries[key]; !ok {
		return
	}
	delete(d.Entries, key)
	for i, k := range d.Order {
		if k == key {
			d.Order = append(d.Order[:i], d.Order[i+1:]...)
			break
		}
	}
}

// SchemaValue is a Dict with attached nominal-type metadata and the span
// of the config literal that produced it, for check-block diagnostics.
type SchemaValue struct {
	Dict       *DictValue
	Type       *types.Type
	ConfigSpan source.Span
}

// FuncValue is a closure: the lambda/schema-constructor AST plus the
// scope it closed over, evaluated lazily by internal/eval.
type FuncValue struct {
	Name    string
	Params  []ast.Param
	Body    []ast.Stmt
	Closure interface{} // *scope.Scope at eval time; kept untyped here to avoid an import cycle with internal/eval's runtime environment
}

// NumberMultiplier is a literal like `1Ki`, retaining its raw digits and
// suffix for round-tripping (§3 glossary).
type NumberMultiplier struct {
	Value    int64
	Raw      string
	Suffix   string
	IsLiteral bool
}

type ErrorValue struct {
	Message string
	Span    source.Span
}

func None() *Value      { return &Value{Kind: KNone} }
func Undefined() *Value { return &Value{Kind: KUndefined} }
func Bool(b bool) *Value { return &Value{Kind: KBool, B: b} }
func Int(i int64) *Value { return &Value{Kind: KInt, I: i} }
func Float(f float64) *Value { return &Value{Kind: KFloat, F: f} }
func Str(s string) *Value { return &Value{Kind: KStr, S: s} }

func NewList(elems ...*Value) *Value {
	return &Value{Kind: KList, List: &ListValue{Elems: elems}}
}

func NewDictValue() *Value {
	return &Value{Kind: KDict, Dict: NewDict()}
}

func NewError(msg string, span source.Span) *Value {
	return &Value{Kind: KError, Err: &ErrorValue{Message: msg, Span: span}}
}

// multiplierFactors maps a number-multiplier literal suffix to the factor
// its digits are scaled by (§3 glossary: "1Ki" has value 1024). Only the
// IEC binary suffixes (Ki/Mi/Gi/Ti/Pi) use base 1024; the bare decimal
// suffixes, including the capitalized "K", are base 1000.
var multiplierFactors = map[string]int64{
	"n": 1, "u": 1, "m": 1,
	"k": 1000, "K": 1000,
	"M": 1000 * 1000, "G": 1000 * 1000 * 1000,
	"T": 1000 * 1000 * 1000 * 1000, "P": 1000 * 1000 * 1000 * 1000 * 1000,
	"Ki": 1 << 10, "Mi": 1 << 20, "Gi": 1 << 30, "Ti": 1 << 40, "Pi": 1 << 50,
}

// MultiplierFactor returns the scale factor for suffix, or 1 if suffix is
// unrecognized (callers only call this once Suffix != "").
func MultiplierFactor(suffix string) int64 {
	if f, ok := multiplierFactors[suffix]; ok {
		return f
	}
	return 1
}

// NewNumberMultiplier builds the Value for a literal like "1Ki": raw is
// the pre-suffix digit value, suffix its unit.
func NewNumberMultiplier(raw int64, rawText, suffix string) *Value {
	return &Value{Kind: KNumberMultiplier, NM: NumberMultiplier{
		Value: raw * MultiplierFactor(suffix), Raw: rawText, Suffix: suffix, IsLiteral: true,
	}}
}

// IsDictLike reports whether v can participate in a config merge as an
// operand (§4.6: "both dict-like"): a plain Dict or a Schema instance.
func (v *Value) IsDictLike() bool {
	return v != nil && (v.Kind == KDict || v.Kind == KSchema)
}

// AsDict returns the underlying DictValue for a Dict or Schema value.
func (v *Value) AsDict() *DictValue {
	switch v.Kind {
	case KDict:
		return v.Dict
	case KSchema:
		return v.Schema.Dict
	}
	return nil
}

func (v *Value) Truthy() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KNone, KUndefined:
		return false
	case KBool:
		return v.B
	case KInt:
		return v.I != 0
	case KFloat:
		return v.F != 0
	case KStr:
		return v.S != ""
	case KList:
		return len(v.List.Elems) > 0
	case KDict:
		return len(v.Dict.Order) > 0
	case KSchema:
		return len(v.Schema.Dict.Order) > 0
	default:
		return true
	}
}

func (v *Value) String() string {
	if v == nil {
		return "None"
	}
	switch v.Kind {
	case KNone:
		return "None"
	case KUndefined:
		return "Undefined"
	case KBool:
		return fmt.Sprintf("%v", v.B)
	case KInt:
		return fmt.Sprintf("%d", v.I)
	case KFloat:
		return fmt.Sprintf("%g", v.F)
	case KStr:
		return v.S
	case KList:
		return fmt.Sprintf("list[%d]", len(v.List.Elems))
	case KDict:
		return fmt.Sprintf("dict[%d]", len(v.Dict.Order))
	case KSchema:
		return fmt.Sprintf("schema(%s)", v.Schema.Type.String())
	case KFunction:
		return "function"
	case KNumberMultiplier:
		return v.NM.Raw + v.NM.Suffix
	case KError:
		return "Error: " + v.Err.Message
	}
	return "?"
}

// DeepCopy structurally copies lists/dicts; primitives are copied by
// value (§4.6).
func DeepCopy(v *Value) *Value {
	if v == nil {
		return nil
	}
	cp := *v
	switch v.Kind {
	case KList:
		elems := make([]*Value, len(v.List.Elems))
		for i, e := range v.List.Elems {
			elems[i] = DeepCopy(e)
		}
		cp.List = &ListValue{Elems: elems}
	case KDict:
		cp.Dict = deepCopyDict(v.Dict)
	case KSchema:
		d := deepCopyDict(v.Schema.Dict)
		cp.Schema = &SchemaValue{Dict: d, Type: v.Schema.Type, ConfigSpan: v.Schema.ConfigSpan}
	}
	return &cp
}

func deepCopyDict(d *DictValue) *DictValue {
	nd := NewDict()
	nd.Order = append([]string{}, d.Order...)
	if d.AttrTypes != nil {
		nd.AttrTypes = make(map[string]*types.Type, len(d.AttrTypes))
		for k, t := range d.AttrTypes {
			nd.AttrTypes[k] = t
		}
	}
	for k, e := range d.Entries {
		nd.Entries[k] = &DictEntry{Value: DeepCopy(e.Value), Op: e.Op, InsertIdx: e.InsertIdx}
	}
	return nd
}
