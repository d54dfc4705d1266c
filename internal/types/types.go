// Package types implements the KCL type-system value objects (§3) and the
// assignability relation used by the resolver (§4.5). It generalizes the
// teacher's itype{cat category, ...} struct-with-tag encoding
// (interp/interp.go's itype/tcat, not copied verbatim here since only the
// shape survives: a Category enum plus payload fields, used the same way
// `itype.cat` gates which payload fields are meaningful).
package types

import "fmt"

// Category tags a Type's variant.
type Category int

const (
	Any Category = iota
	Void
	NoneCat
	Bool
	Int
	Float
	Str
	// Literal-of-{Bool,Int,Float,Str}
	LitBool
	LitInt
	LitFloat
	LitStr
	ListCat
	DictCat
	UnionCat
	SchemaCat
	NumberMultiplierCat
	FunctionCat
	ModuleCat
	NamedCat
)

// ModuleKind distinguishes where a Module type's symbols come from.
type ModuleKind int

const (
	ModuleUser ModuleKind = iota
	ModuleSystem
	ModulePlugin
)

// Attr describes one schema attribute's declared type and metadata.
type Attr struct {
	Type       Type
	Optional   bool
	HasDefault bool
	Doc        string
}

// IndexSignature is a schema's optional `[key: K]: V` entry.
type IndexSignature struct {
	KeyName  string
	KeyType  Type
	ValType  Type
	AnyOther bool
}

// SchemaType carries a schema's full structural description. Base,
// Protocol and Mixins are stored as SchemaIDs looked up in a
// TypeTable so that cyclic references (schema A embeds B which refers
// back to A) can be represented without owning pointers (§9: "represent
// the schema type table as an arena of SchemaType records keyed by
// stable ids; references are ids, not owning pointers").
type SchemaType struct {
	Name       string
	Pkgpath    string
	Base       SchemaID // 0 if none
	Protocol   SchemaID // 0 if none
	Mixins     []SchemaID
	Attrs      map[string]*Attr
	AttrOrder  []string // insertion order, since Attrs is unordered
	Index      *IndexSignature
	Ctor       *Function
	Decorators []string
}

// SchemaID is a stable id into a TypeTable's schema arena (§9).
type SchemaID int

// Type is the tagged union of every KCL type alternative (§3).
type Type struct {
	Cat Category

	// ListCat
	Elem *Type
	// DictCat
	Key   *Type
	Value *Type
	// UnionCat
	Members []*Type
	// SchemaCat
	Schema SchemaID
	Table  *TypeTable // needed to resolve Schema ids back to SchemaType
	// NumberMultiplierCat
	NMValue   int64
	NMRaw     string
	NMSuffix  string
	NMLiteral bool
	// FunctionCat
	Func *Function
	// ModuleCat
	ModulePath string
	MKind      ModuleKind
	// NamedCat
	Name string

	// Literal payloads (LitBool/LitInt/LitFloat/LitStr)
	LitBoolVal  bool
	LitIntVal   int64
	LitFloatVal float64
	LitStrVal   string
}

// Function describes a callable's signature.
type Function struct {
	Params      []Param
	Return      *Type
	Variadic    bool
	KwOnlyIndex int // index of the first keyword-only parameter, -1 if none
	Self        *Type
}

type Param struct {
	Name     string
	Type     *Type
	Default  bool
}

// TypeTable is the per-package arena of SchemaType records (§9).
type TypeTable struct {
	schemas []*SchemaType
}

func NewTypeTable() *TypeTable { return &TypeTable{schemas: []*SchemaType{nil}} }

// NewSchema allocates a skeleton SchemaType and returns its stable id, to
// be filled in by a later pass (§9: "two passes to permit forward
// references").
func (t *TypeTable) NewSchema(name, pkgpath string) SchemaID {
	id := SchemaID(len(t.schemas))
	t.schemas = append(t.schemas, &SchemaType{Name: name, Pkgpath: pkgpath, Attrs: map[string]*Attr{}})
	return id
}

func (t *TypeTable) Schema(id SchemaID) *SchemaType {
	if id <= 0 || int(id) >= len(t.schemas) {
		return nil
	}
	return t.schemas[id]
}

// Simple constructors for the primitive/common Type values.
func T(cat Category) *Type { return &Type{Cat: cat} }

func List(elem *Type) *Type            { return &Type{Cat: ListCat, Elem: elem} }
func Dict(key, val *Type) *Type        { return &Type{Cat: DictCat, Key: key, Value: val} }
func Union(members ...*Type) *Type     { return &Type{Cat: UnionCat, Members: members} }
func SchemaOf(table *TypeTable, id SchemaID) *Type {
	return &Type{Cat: SchemaCat, Schema: id, Table: table}
}
func Named(name string) *Type { return &Type{Cat: NamedCat, Name: name} }

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Cat {
	case Any:
		return "any"
	case Void:
		return "void"
	case NoneCat:
		return "None"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case LitBool:
		return fmt.Sprintf("%v", t.LitBoolVal)
	case LitInt:
		return fmt.Sprintf("%d", t.LitIntVal)
	case LitFloat:
		return fmt.Sprintf("%g", t.LitFloatVal)
	case LitStr:
		return fmt.Sprintf("%q", t.LitStrVal)
	case ListCat:
		return "[" + t.Elem.String() + "]"
	case DictCat:
		return "{" + t.Key.String() + ":" + t.Value.String() + "}"
	case UnionCat:
		s := ""
		for i, m := range t.Members {
			if i > 0 {
				s += "|"
			}
			s += m.String()
		}
		return s
	case SchemaCat:
		if t.Table != nil {
			if st := t.Table.Schema(t.Schema); st != nil {
				return st.Name
			}
		}
		return "schema"
	case NumberMultiplierCat:
		return t.NMRaw + t.NMSuffix
	case FunctionCat:
		return "function"
	case ModuleCat:
		return "module:" + t.ModulePath
	case NamedCat:
		return t.Name
	}
	return "?"
}

// BaseOf widens a literal type to its runtime variable type, as required
// before consulting the binary-operator table (§4.5: "literal unions
// normalized to their variable types").
func BaseOf(t *Type) *Type {
	if t == nil {
		return T(Any)
	}
	switch t.Cat {
	case LitBool:
		return T(Bool)
	case LitInt:
		return T(Int)
	case LitFloat:
		return T(Float)
	case LitStr:
		return T(Str)
	}
	return t
}

// IsNumber reports whether t (after widening) is Int or Float.
func IsNumber(t *Type) bool {
	b := BaseOf(t)
	return b.Cat == Int || b.Cat == Float
}

// Widen returns the widened numeric result type of combining a and b:
// int+int -> int, anything with a float -> float.
func Widen(a, b *Type) *Type {
	wa, wb := BaseOf(a), BaseOf(b)
	if wa.Cat == Float || wb.Cat == Float {
		return T(Float)
	}
	return T(Int)
}
