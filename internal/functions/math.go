package functions

import (
	"math"

	"github.com/vogtb/go-formula/internal/value"
)

func aggregate(name, description string, fn func(numbers []float64) value.Operand) *Descriptor {
	return &Descriptor{
		Name:        name,
		Description: description,
		Args: []ArgDescriptor{
			{Name: "value1", Types: ArgNumber | ArgRange, Repeating: true},
		},
		ReturnType:   ArgNumber,
		ReturnFormat: FormatOfFirstArgument(),
		Compute: func(ctx *Context, args []Arg) value.Operand {
			numbers, err := collectNumbers(args)
			if err != nil {
				return failWith(err)
			}
			return fn(numbers)
		},
	}
}

func unaryMath(name, description string, fn func(n float64) value.Operand) *Descriptor {
	return &Descriptor{
		Name:        name,
		Description: description,
		Args:        numberArgs("value"),
		ReturnType:  ArgNumber,
		Compute: func(ctx *Context, args []Arg) value.Operand {
			n, err := toNumber(args[0])
			if err != nil {
				return failWith(err)
			}
			return fn(n)
		},
	}
}

func mathFunctions() []*Descriptor {
	abs := unaryMath("ABS", "Absolute value of a number.", func(n float64) value.Operand {
		return number(math.Abs(n))
	})
	abs.ReturnFormat = FormatOfFirstArgument()

	return []*Descriptor{
		aggregate("SUM", "Sum of a series of numbers and/or cells.", func(numbers []float64) value.Operand {
			total := 0.0
			for _, n := range numbers {
				total += n
			}
			return number(total)
		}),
		aggregate("AVERAGE", "Numerical average value in a dataset, ignoring text.", func(numbers []float64) value.Operand {
			if len(numbers) == 0 {
				return fail(value.ErrorCodeDiv0, "Evaluation of function AVERAGE caused a divide by zero error.")
			}
			total := 0.0
			for _, n := range numbers {
				total += n
			}
			return number(total / float64(len(numbers)))
		}),
		aggregate("MAX", "Maximum value in a numeric dataset.", func(numbers []float64) value.Operand {
			if len(numbers) == 0 {
				return number(0)
			}
			result := math.Inf(-1)
			for _, n := range numbers {
				result = math.Max(result, n)
			}
			return number(result)
		}),
		aggregate("MIN", "Minimum value in a numeric dataset.", func(numbers []float64) value.Operand {
			if len(numbers) == 0 {
				return number(0)
			}
			result := math.Inf(1)
			for _, n := range numbers {
				result = math.Min(result, n)
			}
			return number(result)
		}),
		{
			Name:        "COUNT",
			Description: "The number of numeric values in a dataset.",
			Args: []ArgDescriptor{
				{Name: "value1", Types: ArgAny | ArgRange, Repeating: true},
			},
			ReturnType: ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				count := 0
				_ = eachValue(args, func(v value.Value, fromRange bool) *value.CellError {
					switch {
					case v.Kind == value.KindNumber:
						count++
					case !fromRange && v.Kind == value.KindText:
						if _, ok := value.ParseNumber(v.Text, "."); ok {
							count++
						}
					}
					return nil
				})
				return number(float64(count))
			},
		},
		{
			Name:        "COUNTA",
			Description: "The number of values in a dataset.",
			Args: []ArgDescriptor{
				{Name: "value1", Types: ArgAny | ArgRange, Repeating: true},
			},
			ReturnType: ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				count := 0
				_ = eachValue(args, func(v value.Value, fromRange bool) *value.CellError {
					if !v.IsEmpty() || !fromRange {
						count++
					}
					return nil
				})
				return number(float64(count))
			},
		},
		abs,
		{
			Name:        "ROUND",
			Description: "Rounds a number according to standard rules.",
			Args: []ArgDescriptor{
				{Name: "value", Types: ArgNumber},
				{Name: "places", Types: ArgNumber, HasDefault: true, Default: value.Number(0)},
			},
			ReturnType:   ArgNumber,
			ReturnFormat: FormatOfFirstArgument(),
			Compute: func(ctx *Context, args []Arg) value.Operand {
				n, err := toNumber(args[0])
				if err != nil {
					return failWith(err)
				}
				places, err := toNumber(args[1])
				if err != nil {
					return failWith(err)
				}
				factor := math.Pow(10, math.Trunc(places))
				return number(math.Round(n*factor) / factor)
			},
		},
		unaryMath("SQRT", "Positive square root of a positive number.", func(n float64) value.Operand {
			if n < 0 {
				return fail(value.ErrorCodeNum, "Function SQRT parameter 1 value is negative. It should be positive or zero.")
			}
			return number(math.Sqrt(n))
		}),
		unaryMath("LOG10", "Base-10 logarithm of a number.", func(n float64) value.Operand {
			if n <= 0 {
				return fail(value.ErrorCodeNum, "Function LOG10 parameter 1 value is %s. It should be greater than 0.", value.FormatNumber(n))
			}
			return number(math.Log10(n))
		}),
		arithmetic("MOD", "Modulo (remainder) operator.", func(dividend, divisor float64) value.Operand {
			if divisor == 0 {
				return fail(value.ErrorCodeDiv0, "The divisor must be different from 0.")
			}
			// the result takes the sign of the divisor
			return number(dividend - divisor*math.Floor(dividend/divisor))
		}),
		{
			Name:        "PI",
			Description: "The number pi.",
			ReturnType:  ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				return number(math.Pi)
			},
		},
		{
			Name:        "RAND",
			Description: "A random number between 0 inclusive and 1 exclusive.",
			ReturnType:  ArgNumber,
			Volatile:    true,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				return number(ctx.Rand.Float64())
			},
		},
	}
}
