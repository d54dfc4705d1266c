package types

// IsUpperBound reports whether actual is assignable to expected
// ("actual ⊑ expected"), implementing the assignability rules of §4.5.
func IsUpperBound(actual, expected *Type) bool {
	if actual == nil || expected == nil {
		return true
	}
	// Any is top and bottom for assignability.
	if actual.Cat == Any || expected.Cat == Any {
		return true
	}

	switch expected.Cat {
	case UnionCat:
		// T ⊑ Union(us) iff some uj ⊒ T.
		if actual.Cat == UnionCat {
			for _, am := range actual.Members {
				if !isUpperBoundAgainstUnion(am, expected.Members) {
					return false
				}
			}
			return true
		}
		return isUpperBoundAgainstUnion(actual, expected.Members)
	}

	if actual.Cat == UnionCat {
		// Union(ts) ⊑ U iff every ti ⊑ U.
		for _, am := range actual.Members {
			if !IsUpperBound(am, expected) {
				return false
			}
		}
		return true
	}

	switch actual.Cat {
	case LitBool:
		return expected.Cat == LitBool && actual.LitBoolVal == expected.LitBoolVal || expected.Cat == Bool
	case LitInt:
		return expected.Cat == LitInt && actual.LitIntVal == expected.LitIntVal || expected.Cat == Int
	case LitFloat:
		return expected.Cat == LitFloat && actual.LitFloatVal == expected.LitFloatVal || expected.Cat == Float
	case LitStr:
		return expected.Cat == LitStr && actual.LitStrVal == expected.LitStrVal || expected.Cat == Str
	}

	if actual.Cat != expected.Cat {
		// Bool and Int are disjoint even though both are "numeric-ish";
		// only an explicit schema/dict compatibility check crosses Cat.
		if actual.Cat == SchemaCat && expected.Cat == DictCat {
			return schemaUpperBoundDict(actual, expected)
		}
		return false
	}

	switch actual.Cat {
	case ListCat:
		return IsUpperBound(actual.Elem, expected.Elem)
	case DictCat:
		return IsUpperBound(actual.Key, expected.Key) && IsUpperBound(actual.Value, expected.Value)
	case SchemaCat:
		return schemaIsUpperBound(actual, expected)
	case NamedCat:
		return actual.Name == expected.Name
	default:
		return true
	}
}

func isUpperBoundAgainstUnion(actual *Type, members []*Type) bool {
	for _, m := range members {
		if IsUpperBound(actual, m) {
			return true
		}
	}
	return false
}

// schemaIsUpperBound reports whether actual's schema ancestor chain
// reaches expected's schema, or expected is a protocol actual satisfies.
func schemaIsUpperBound(actual, expected *Type) bool {
	if actual.Table == nil || expected.Table == nil {
		return actual.Schema == expected.Schema
	}
	if actual.Schema == expected.Schema {
		return true
	}
	st := actual.Table.Schema(actual.Schema)
	for st != nil && st.Base != 0 {
		if st.Base == expected.Schema {
			return true
		}
		st = actual.Table.Schema(st.Base)
	}
	exp := expected.Table.Schema(expected.Schema)
	if exp != nil {
		// Protocol satisfaction: actual's schema must carry every
		// attribute of the protocol with a compatible type.
		actualSchema := actual.Table.Schema(actual.Schema)
		if actualSchema != nil && isProtocolLike(exp) {
			return satisfiesProtocol(actualSchema, exp)
		}
	}
	return false
}

// isProtocolLike reports true for every schema, so any expected schema
// that the actual schema's base chain does not reach is checked
// structurally by satisfiesProtocol. SchemaType records no protocol flag;
// ast.SchemaStmt.IsProtocol is not consulted.
func isProtocolLike(st *SchemaType) bool { return true }

func satisfiesProtocol(s, protocol *SchemaType) bool {
	for name, pa := range protocol.Attrs {
		sa, ok := s.Attrs[name]
		if !ok || !IsUpperBound(&sa.Type, &pa.Type) {
			return false
		}
	}
	return true
}

// schemaUpperBoundDict treats a schema as assignable to a structurally
// compatible dict type: every non-optional attribute must be present in
// the dict's value type.
func schemaUpperBoundDict(actual, expected *Type) bool {
	st := actual.Table.Schema(actual.Schema)
	if st == nil {
		return false
	}
	for _, name := range st.AttrOrder {
		a := st.Attrs[name]
		if !a.Optional && !IsUpperBound(&a.Type, expected.Value) {
			return false
		}
	}
	return true
}
