package functions

import (
	"github.com/vogtb/go-formula/internal/value"
)

// logicalFold folds AND/OR over booleans and numbers. Text read from
// references is ignored, direct text must coerce.
func logicalFold(name string, start bool, combine func(acc, b bool) bool) ComputeFunc {
	return func(ctx *Context, args []Arg) value.Operand {
		acc := start
		found := false
		err := eachValue(args, func(v value.Value, fromRange bool) *value.CellError {
			switch {
			case v.IsError():
				return v.Err
			case v.IsEmpty() || (fromRange && v.Kind == value.KindText):
				return nil
			}
			b, err := value.ToBoolean(v)
			if err != nil {
				return err
			}
			acc = combine(acc, b)
			found = true
			return nil
		})
		if err != nil {
			return failWith(err)
		}
		if !found {
			return fail(value.ErrorCodeValue, "%s has no valid input data.", name)
		}
		return scalar(value.Boolean(acc))
	}
}

func logicFunctions() []*Descriptor {
	and := logicalFold("AND", true, func(acc, b bool) bool { return acc && b })
	or := logicalFold("OR", false, func(acc, b bool) bool { return acc || b })

	return []*Descriptor{
		{
			Name:        "IF",
			Description: "Returns value depending on logical expression.",
			Args: []ArgDescriptor{
				{Name: "logical_expression", Types: ArgBoolean},
				{Name: "value_if_true", Types: ArgAny | ArgRange, Lazy: true},
				{Name: "value_if_false", Types: ArgAny | ArgRange, Lazy: true, HasDefault: true, Default: value.Boolean(false)},
			},
			ReturnType: ArgAny,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				condition, err := toBoolean(args[0])
				if err != nil {
					return failWith(err)
				}
				if condition {
					return args[1].Resolve()
				}
				return args[2].Resolve()
			},
		},
		{
			Name:        "IFERROR",
			Description: "Value if it is not an error, otherwise 2nd argument.",
			Args: []ArgDescriptor{
				{Name: "value", Types: ArgAny},
				{Name: "value_if_error", Types: ArgAny, Lazy: true, HasDefault: true, Default: value.Empty()},
			},
			ReturnType: ArgAny,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				if v := args[0].Resolve().First(); v.IsError() {
					return args[1].Resolve()
				}
				return args[0].Resolve()
			},
		},
		{
			Name:        "ISERROR",
			Description: "Whether a value is an error.",
			Args:        anyArgs("value"),
			ReturnType:  ArgBoolean,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				return scalar(value.Boolean(args[0].Resolve().First().IsError()))
			},
		},
		{
			Name:        "AND",
			Description: "Logical `and` operator.",
			Args: []ArgDescriptor{
				{Name: "logical_expression1", Types: ArgBoolean | ArgRange, Repeating: true},
			},
			ReturnType: ArgBoolean,
			Compute:    and,
		},
		{
			Name:        "OR",
			Description: "Logical `or` operator.",
			Args: []ArgDescriptor{
				{Name: "logical_expression1", Types: ArgBoolean | ArgRange, Repeating: true},
			},
			ReturnType: ArgBoolean,
			Compute:    or,
		},
		{
			Name:        "NOT",
			Description: "Returns opposite of provided logical value.",
			Args: []ArgDescriptor{
				{Name: "logical_expression", Types: ArgBoolean},
			},
			ReturnType: ArgBoolean,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				b, err := toBoolean(args[0])
				if err != nil {
					return failWith(err)
				}
				return scalar(value.Boolean(!b))
			},
		},
	}
}
