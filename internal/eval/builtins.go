package eval

import (
	"fmt"
	"strconv"

	"github.com/kcl-lang/compiler/internal/value"
)

// builtinFunc is a free function callable by bare name from any scope,
// the evaluator's analogue of the teacher's builtin method table
// (interp.go's methodInfo lookup keyed by selector name).
type builtinFunc func(args callArgs) (*value.Value, error)

var builtins = map[string]builtinFunc{
	"len":   builtinLen,
	"str":   builtinStr,
	"int":   builtinInt,
	"float": builtinFloat,
	"bool":  builtinBool,
	"print": builtinPrint,
	"typeof": builtinTypeof,
}

func arg0(args callArgs) (*value.Value, error) {
	if len(args.positional) == 0 {
		return nil, fmt.Errorf("missing required argument")
	}
	return args.positional[0], nil
}

func builtinLen(args callArgs) (*value.Value, error) {
	v, err := arg0(args)
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case value.KStr:
		return value.Int(int64(len([]rune(v.S)))), nil
	case value.KList:
		return value.Int(int64(len(v.List.Elems))), nil
	case value.KDict, value.KSchema:
		return value.Int(int64(len(v.AsDict().Order))), nil
	}
	return nil, fmt.Errorf("object of kind %v has no len()", v.Kind)
}

func builtinStr(args callArgs) (*value.Value, error) {
	v, err := arg0(args)
	if err != nil {
		return nil, err
	}
	return value.Str(v.String()), nil
}

func builtinInt(args callArgs) (*value.Value, error) {
	v, err := arg0(args)
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case value.KInt:
		return v, nil
	case value.KFloat:
		return value.Int(int64(v.F)), nil
	case value.KStr:
		i, err := strconv.ParseInt(v.S, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int(): %q", v.S)
		}
		return value.Int(i), nil
	case value.KBool:
		if v.B {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	}
	return nil, fmt.Errorf("cannot convert %v to int", v.Kind)
}

func builtinFloat(args callArgs) (*value.Value, error) {
	v, err := arg0(args)
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case value.KFloat:
		return v, nil
	case value.KInt:
		return value.Float(float64(v.I)), nil
	case value.KStr:
		f, err := strconv.ParseFloat(v.S, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for float(): %q", v.S)
		}
		return value.Float(f), nil
	}
	return nil, fmt.Errorf("cannot convert %v to float", v.Kind)
}

func builtinBool(args callArgs) (*value.Value, error) {
	v, err := arg0(args)
	if err != nil {
		return nil, err
	}
	return value.Bool(v.Truthy()), nil
}

func builtinTypeof(args callArgs) (*value.Value, error) {
	v, err := arg0(args)
	if err != nil {
		return nil, err
	}
	return value.Str(v.Kind.String()), nil
}

func builtinPrint(args callArgs) (*value.Value, error) {
	for i, a := range args.positional {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(a.String())
	}
	fmt.Println()
	return value.Undefined(), nil
}
