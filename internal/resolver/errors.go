package resolver

import (
	"fmt"

	"github.com/kcl-lang/compiler/internal/token"
	"github.com/kcl-lang/compiler/internal/types"
)

func errOperator(op token.Kind, t1, t2 *types.Type) error {
	return fmt.Errorf("operator %s not defined for %s and %s", op, t1, t2)
}

func errUnary(op token.Kind, t *types.Type) error {
	return fmt.Errorf("unary operator %s not defined for %s", op, t)
}

func errZeroDivision() error {
	return fmt.Errorf("integer division or modulo by zero")
}

func errIterable(t *types.Type) error {
	return fmt.Errorf("expect iterable type, got %s", t)
}
