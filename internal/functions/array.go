package functions

import (
	"math"

	"github.com/vogtb/go-formula/internal/value"
)

// position returns the referenced zone's top-left corner, or the evaluating
// cell when the optional meta argument was omitted.
func position(ctx *Context, args []Arg) (col, row int, err *value.CellError) {
	if len(args) == 0 || args[0].Ref == nil {
		return ctx.Position.Col, ctx.Position.Row, nil
	}
	ref := args[0].Ref
	if err := ref.Err(); err != nil {
		return 0, 0, err
	}
	return ref.Zone.Left, ref.Zone.Top, nil
}

func arrayFunctions() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "ROW",
			Description: "Row number of a specified cell.",
			Args: []ArgDescriptor{
				{Name: "cell_reference", Types: ArgMeta, Optional: true},
			},
			ReturnType: ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				_, row, err := position(ctx, args)
				if err != nil {
					return failWith(err)
				}
				return number(float64(row + 1))
			},
		},
		{
			Name:        "COLUMN",
			Description: "Column number of a specified cell.",
			Args: []ArgDescriptor{
				{Name: "cell_reference", Types: ArgMeta, Optional: true},
			},
			ReturnType: ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				col, _, err := position(ctx, args)
				if err != nil {
					return failWith(err)
				}
				return number(float64(col + 1))
			},
		},
		{
			Name:        "MUNIT",
			Description: "Returns a n x n unit matrix, where n is the input dimension.",
			Args:        numberArgs("dimension"),
			ReturnType:  ArgRange,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				n, err := toNumber(args[0])
				if err != nil {
					return failWith(err)
				}
				dim := int(math.Trunc(n))
				if dim < 1 {
					return fail(value.ErrorCodeValue, "The argument dimension must be strictly positive")
				}
				m := value.NewMatrix(dim, dim)
				for r := range m {
					for c := range m[r] {
						if r == c {
							m[r][c] = value.Number(1)
						} else {
							m[r][c] = value.Number(0)
						}
					}
				}
				return value.Array(m)
			},
		},
		{
			Name:        "TRANSPOSE",
			Description: "Transposes the rows and columns of a range.",
			Args: []ArgDescriptor{
				{Name: "range", Types: ArgRange},
			},
			ReturnType: ArgRange,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				op := args[0].Resolve()
				if !op.IsMatrix() {
					return value.Array(value.Matrix{{op.Value}})
				}
				rows, cols := op.Matrix.Dims()
				out := value.NewMatrix(cols, rows)
				op.Matrix.Each(func(r, c int, v value.Value) {
					out[c][r] = v
				})
				return value.Array(out)
			},
		},
	}
}

// Builtins returns the built-in function library.
func Builtins() []*Descriptor {
	var all []*Descriptor
	all = append(all, mathFunctions()...)
	all = append(all, logicFunctions()...)
	all = append(all, textFunctions()...)
	all = append(all, dateFunctions()...)
	all = append(all, arrayFunctions()...)
	return all
}
