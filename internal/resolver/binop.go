package resolver

import (
	"github.com/kcl-lang/compiler/internal/token"
	"github.com/kcl-lang/compiler/internal/types"
)

// BinOpType implements the binary-operator type table of §4.5. Operand
// types are normalized to their variable types (literal unions widened)
// before consulting the table, except where a literal zero RHS is
// significant (division/modulo by a literal zero).
func BinOpType(op token.Kind, t1, t2 *types.Type, rhsIsLiteralZero bool) (*types.Type, error) {
	b1, b2 := types.BaseOf(t1), types.BaseOf(t2)

	switch op {
	case token.Plus:
		switch {
		case types.IsNumber(b1) && types.IsNumber(b2):
			return types.Widen(b1, b2), nil
		case b1.Cat == types.Str && b2.Cat == types.Str:
			return types.T(types.Str), nil
		case b1.Cat == types.ListCat && b2.Cat == types.ListCat:
			return types.List(supremum(b1.Elem, b2.Elem)), nil
		}
		return nil, errOperator(op, t1, t2)

	case token.Minus, token.DStar:
		if types.IsNumber(b1) && types.IsNumber(b2) {
			return types.Widen(b1, b2), nil
		}
		return nil, errOperator(op, t1, t2)

	case token.Star:
		switch {
		case types.IsNumber(b1) && types.IsNumber(b2):
			return types.Widen(b1, b2), nil
		case types.IsNumber(b1) && (b2.Cat == types.Str || b2.Cat == types.ListCat):
			return b2, nil
		case (b1.Cat == types.Str || b1.Cat == types.ListCat) && types.IsNumber(b2):
			return b1, nil
		}
		return nil, errOperator(op, t1, t2)

	case token.Slash, token.DSlash:
		if !types.IsNumber(b1) || !types.IsNumber(b2) {
			return nil, errOperator(op, t1, t2)
		}
		if rhsIsLiteralZero {
			return nil, errZeroDivision()
		}
		return types.Widen(b1, b2), nil

	case token.Percent:
		if !types.IsNumber(b1) || !types.IsNumber(b2) {
			return nil, errOperator(op, t1, t2)
		}
		if rhsIsLiteralZero {
			return nil, errZeroDivision()
		}
		return types.T(types.Int), nil

	case token.LShift, token.RShift, token.Caret, token.Amp:
		if b1.Cat == types.Int && b2.Cat == types.Int {
			return types.T(types.Int), nil
		}
		return nil, errOperator(op, t1, t2)

	case token.Pipe:
		switch {
		case b1.Cat == types.Int && b2.Cat == types.Int:
			return types.T(types.Int), nil
		case b1.Cat == types.NoneCat:
			return t2, nil
		case b2.Cat == types.NoneCat:
			return t1, nil
		case b1.Cat == types.ListCat && b2.Cat == types.ListCat:
			return types.List(supremum(b1.Elem, b2.Elem)), nil
		case b1.Cat == types.DictCat && b2.Cat == types.DictCat:
			return types.Dict(supremum(b1.Key, b2.Key), supremum(b1.Value, b2.Value)), nil
		case b1.Cat == types.SchemaCat && b2.Cat == types.SchemaCat:
			return b1, nil
		case b1.Cat == types.SchemaCat && b2.Cat == types.DictCat:
			return b1, nil
		}
		return nil, errOperator(op, t1, t2)

	case token.KwAnd:
		return types.T(types.Bool), nil
	case token.KwOr:
		return types.Union(t1, t2), nil

	case token.KwAs:
		return t2, nil
	}
	return nil, errOperator(op, t1, t2)
}

// UnaryOpType implements §4.5's unary-operator rules.
func UnaryOpType(op token.Kind, t *types.Type) (*types.Type, error) {
	b := types.BaseOf(t)
	switch op {
	case token.Plus, token.Minus:
		if types.IsNumber(b) {
			return b, nil
		}
		return nil, errUnary(op, t)
	case token.Tilde:
		if b.Cat == types.Int || b.Cat == types.Bool {
			return types.T(types.Int), nil
		}
		return nil, errUnary(op, t)
	case token.KwNot:
		return types.T(types.Bool), nil
	}
	return nil, errUnary(op, t)
}

// CompareType implements §4.5's comparison rules: always bool; in/not in
// require the RHS to be iterable (list, dict, or str).
func CompareType(op token.Kind, rhs *types.Type) (*types.Type, error) {
	if op == token.KwIn {
		b := types.BaseOf(rhs)
		switch b.Cat {
		case types.ListCat, types.DictCat, types.Str, types.Any:
			return types.T(types.Bool), nil
		}
		return nil, errIterable(rhs)
	}
	return types.T(types.Bool), nil
}

// supremum returns a type both a and b are assignable to: a itself if b
// ⊑ a, b if a ⊑ b, else a 2-member union (used for list/dict element-type
// combination per §4.5's `sup(e1,e2)`).
func supremum(a, b *types.Type) *types.Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if types.IsUpperBound(b, a) {
		return a
	}
	if types.IsUpperBound(a, b) {
		return b
	}
	return types.Union(a, b)
}
