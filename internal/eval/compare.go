package eval

import (
	"fmt"

	"github.com/kcl-lang/compiler/internal/token"
	"github.com/kcl-lang/compiler/internal/value"
)

// evalCompareOp evaluates one step of a chained comparison (§4.3's
// Compare node keeps the chain as one node so each operand is evaluated
// once; this function is called once per adjacent pair).
func evalCompareOp(op token.Kind, notIn bool, l, r *value.Value) (bool, error) {
	switch op {
	case token.Lt, token.Gt, token.Le, token.Ge:
		c, err := compareOrdered(l, r)
		if err != nil {
			return false, err
		}
		switch op {
		case token.Lt:
			return c < 0, nil
		case token.Gt:
			return c > 0, nil
		case token.Le:
			return c <= 0, nil
		case token.Ge:
			return c >= 0, nil
		}
	case token.Eq:
		return valueEqual(l, r), nil
	case token.Ne:
		return !valueEqual(l, r), nil
	case token.KwIs:
		same := l == r
		if notIn {
			return !same, nil
		}
		return same, nil
	case token.KwIn:
		in, err := valueContains(r, l)
		if err != nil {
			return false, err
		}
		if notIn {
			return !in, nil
		}
		return in, nil
	}
	return false, fmt.Errorf("unknown comparison operator %s", op)
}

func compareOrdered(l, r *value.Value) (int, error) {
	switch {
	case isNum(l) && isNum(r):
		lf, rf := asFloat(l), asFloat(r)
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		default:
			return 0, nil
		}
	case l.Kind == value.KStr && r.Kind == value.KStr:
		switch {
		case l.S < r.S:
			return -1, nil
		case l.S > r.S:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("'<' not supported between instances of %s and %s", l.Kind, r.Kind)
}

func valueEqual(l, r *value.Value) bool {
	if l == nil || r == nil {
		return l == r
	}
	switch {
	case isNum(l) && isNum(r):
		return asFloat(l) == asFloat(r)
	case l.Kind != r.Kind:
		return false
	}
	switch l.Kind {
	case value.KNone, value.KUndefined:
		return true
	case value.KBool:
		return l.B == r.B
	case value.KStr:
		return l.S == r.S
	case value.KList:
		if len(l.List.Elems) != len(r.List.Elems) {
			return false
		}
		for i := range l.List.Elems {
			if !valueEqual(l.List.Elems[i], r.List.Elems[i]) {
				return false
			}
		}
		return true
	case value.KDict, value.KSchema:
		ld, rd := l.AsDict(), r.AsDict()
		if len(ld.Order) != len(rd.Order) {
			return false
		}
		for _, k := range ld.Order {
			rv, ok := rd.Get(k)
			if !ok {
				return false
			}
			lv, _ := ld.Get(k)
			if !valueEqual(lv, rv) {
				return false
			}
		}
		return true
	}
	return false
}

func valueContains(container, needle *value.Value) (bool, error) {
	switch container.Kind {
	case value.KStr:
		if needle.Kind != value.KStr {
			return false, nil
		}
		return containsSubstr(container.S, needle.S), nil
	case value.KList:
		for _, e := range container.List.Elems {
			if valueEqual(e, needle) {
				return true, nil
			}
		}
		return false, nil
	case value.KDict, value.KSchema:
		if needle.Kind != value.KStr {
			return false, nil
		}
		_, ok := container.AsDict().Get(needle.S)
		return ok, nil
	}
	return false, fmt.Errorf("argument of type %s is not iterable", container.Kind)
}

func containsSubstr(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
