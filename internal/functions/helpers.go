package functions

import (
	"fmt"
	"math"

	"github.com/vogtb/go-formula/internal/value"
)

func scalar(v value.Value) value.Operand {
	return value.Scalar(v)
}

func number(n float64) value.Operand {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return fail(value.ErrorCodeNum, "The result is not a finite number.")
	}
	return value.Scalar(value.Number(n))
}

func fail(code value.ErrorCode, format string, args ...any) value.Operand {
	return value.Scalar(value.Error(code, fmt.Sprintf(format, args...)))
}

func failWith(err *value.CellError) value.Operand {
	return value.Scalar(value.FromError(err))
}

// toNumber coerces the argument's scalar (or top-left element) to a number.
func toNumber(a Arg) (float64, *value.CellError) {
	return value.ToNumber(a.Resolve().First())
}

func toText(a Arg) (string, *value.CellError) {
	return value.ToText(a.Resolve().First())
}

func toBoolean(a Arg) (bool, *value.CellError) {
	return value.ToBoolean(a.Resolve().First())
}

// eachValue visits every value handed to a variadic aggregate. fromRange is
// true for values read from a reference, which aggregates treat more
// leniently than values typed directly into the call.
func eachValue(args []Arg, fn func(v value.Value, fromRange bool) *value.CellError) *value.CellError {
	for _, a := range args {
		op := a.Resolve()
		if op.IsMatrix() {
			for _, row := range op.Matrix {
				for _, v := range row {
					if err := fn(v, true); err != nil {
						return err
					}
				}
			}
			continue
		}
		if err := fn(op.Value, op.Ref != nil); err != nil {
			return err
		}
	}
	return nil
}

// collectNumbers gathers the numbers of an aggregate's arguments. Values read
// from references count only when numeric; direct values are coerced.
func collectNumbers(args []Arg) ([]float64, *value.CellError) {
	var numbers []float64
	err := eachValue(args, func(v value.Value, fromRange bool) *value.CellError {
		switch {
		case v.Kind == value.KindError:
			return v.Err
		case v.Kind == value.KindNumber:
			numbers = append(numbers, v.Number)
		case fromRange || v.Kind == value.KindEmpty:
		default:
			n, err := value.ToNumber(v)
			if err != nil {
				return err
			}
			numbers = append(numbers, n)
		}
		return nil
	})
	return numbers, err
}
