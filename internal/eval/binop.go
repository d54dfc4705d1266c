package eval

import (
	"fmt"
	"math"

	"github.com/kcl-lang/compiler/internal/token"
	"github.com/kcl-lang/compiler/internal/value"
)

// evalBinary implements §4.5's operator table at the value level (the
// resolver's internal/resolver.BinOpType checks the same table against
// types; this mirrors it against runtime values, since type-checking one
// does not spare evaluating the other — a schema's check block can
// introduce operands whose static type was Any).
func evalBinary(op token.Kind, l, r *value.Value) (*value.Value, error) {
	switch op {
	case token.Plus:
		switch {
		case isNum(l) && isNum(r):
			return numOp(l, r, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }), nil
		case l.Kind == value.KStr && r.Kind == value.KStr:
			return value.Str(l.S + r.S), nil
		case l.Kind == value.KList && r.Kind == value.KList:
			return value.NewList(append(append([]*value.Value{}, l.List.Elems...), r.List.Elems...)...), nil
		}
		return nil, errOp(op, l, r)

	case token.Minus:
		if isNum(l) && isNum(r) {
			return numOp(l, r, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }), nil
		}
		return nil, errOp(op, l, r)

	case token.Star:
		switch {
		case isNum(l) && isNum(r):
			return numOp(l, r, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }), nil
		case isNum(l) && r.Kind == value.KStr:
			return value.Str(repeatStr(r.S, l.I)), nil
		case l.Kind == value.KStr && isNum(r):
			return value.Str(repeatStr(l.S, r.I)), nil
		case isNum(l) && r.Kind == value.KList:
			return value.NewList(repeatList(r.List.Elems, l.I)...), nil
		case l.Kind == value.KList && isNum(r):
			return value.NewList(repeatList(l.List.Elems, r.I)...), nil
		}
		return nil, errOp(op, l, r)

	case token.DStar:
		if l.Kind == value.KInt && r.Kind == value.KInt && r.I >= 0 {
			res, b, e := int64(1), l.I, r.I
			for ; e > 0; e >>= 1 {
				if e&1 == 1 {
					res *= b
				}
				b *= b
			}
			return value.Int(res), nil
		}
		if isNum(l) && isNum(r) {
			return value.Float(math.Pow(asFloat(l), asFloat(r))), nil
		}
		return nil, errOp(op, l, r)

	case token.Slash:
		if !isNum(l) || !isNum(r) {
			return nil, errOp(op, l, r)
		}
		if asFloat(r) == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		return value.Float(asFloat(l) / asFloat(r)), nil

	case token.DSlash:
		if !isNum(l) || !isNum(r) {
			return nil, errOp(op, l, r)
		}
		if asFloat(r) == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		return numOp(l, r, func(a, b int64) int64 { return floorDiv(a, b) }, func(a, b float64) float64 { return math.Floor(a / b) }), nil

	case token.Percent:
		if !isNum(l) || !isNum(r) {
			return nil, errOp(op, l, r)
		}
		if r.Kind == value.KInt && r.I == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		return value.Int(l.I % r.I), nil

	case token.LShift:
		return value.Int(l.I << uint(r.I)), nil
	case token.RShift:
		return value.Int(l.I >> uint(r.I)), nil
	case token.Amp:
		return value.Int(l.I & r.I), nil
	case token.Caret:
		return value.Int(l.I ^ r.I), nil

	case token.Pipe:
		switch {
		case l.Kind == value.KInt && r.Kind == value.KInt:
			return value.Int(l.I | r.I), nil
		case l.Kind == value.KNone:
			return r, nil
		case r.Kind == value.KNone:
			return l, nil
		case l.IsDictLike() && r.IsDictLike():
			return value.MergeUnion(l, r, false)
		}
		return nil, errOp(op, l, r)

	case token.KwAnd:
		if !l.Truthy() {
			return l, nil
		}
		return r, nil
	case token.KwOr:
		if l.Truthy() {
			return l, nil
		}
		return r, nil
	}
	return nil, errOp(op, l, r)
}

func evalUnary(op token.Kind, v *value.Value) (*value.Value, error) {
	switch op {
	case token.Plus:
		if !isNum(v) {
			return nil, fmt.Errorf("unary + not defined for %s", v.Kind)
		}
		return v, nil
	case token.Minus:
		switch v.Kind {
		case value.KInt:
			return value.Int(-v.I), nil
		case value.KFloat:
			return value.Float(-v.F), nil
		}
		return nil, fmt.Errorf("unary - not defined for %s", v.Kind)
	case token.Tilde:
		if v.Kind == value.KInt {
			return value.Int(^v.I), nil
		}
		return nil, fmt.Errorf("unary ~ not defined for %s", v.Kind)
	case token.KwNot:
		return value.Bool(!v.Truthy()), nil
	}
	return nil, fmt.Errorf("unknown unary operator")
}

func isNum(v *value.Value) bool { return v.Kind == value.KInt || v.Kind == value.KFloat }

func asFloat(v *value.Value) float64 {
	if v.Kind == value.KFloat {
		return v.F
	}
	return float64(v.I)
}

func numOp(l, r *value.Value, iop func(a, b int64) int64, fop func(a, b float64) float64) *value.Value {
	if l.Kind == value.KFloat || r.Kind == value.KFloat {
		return value.Float(fop(asFloat(l), asFloat(r)))
	}
	return value.Int(iop(l.I, r.I))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func repeatStr(s string, n int64) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, int64(len(s))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func repeatList(elems []*value.Value, n int64) []*value.Value {
	if n <= 0 {
		return nil
	}
	out := make([]*value.Value, 0, int64(len(elems))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, elems...)
	}
	return out
}

func errOp(op token.Kind, l, r *value.Value) error {
	return fmt.Errorf("operator %s not defined for %s and %s", op, l.Kind, r.Kind)
}
