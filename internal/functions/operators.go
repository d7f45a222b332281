package functions

import (
	"math"
	"strings"

	"github.com/vogtb/go-formula/internal/value"
)

// OperatorFunction maps operator tokens to the registered function that
// implements them. Prefix operators are keyed with a "u" prefix.
var OperatorFunction = map[string]string{
	"+":  "ADD",
	"-":  "MINUS",
	"*":  "MULTIPLY",
	"/":  "DIVIDE",
	"^":  "POWER",
	"&":  "CONCAT",
	"=":  "EQ",
	"<>": "NE",
	">":  "GT",
	">=": "GTE",
	"<":  "LT",
	"<=": "LTE",
	"u-": "UMINUS",
	"u+": "UPLUS",
	"%":  "UNARY.PERCENT",
}

func numberArgs(names ...string) []ArgDescriptor {
	args := make([]ArgDescriptor, len(names))
	for i, name := range names {
		args[i] = ArgDescriptor{Name: name, Types: ArgNumber}
	}
	return args
}

func anyArgs(names ...string) []ArgDescriptor {
	args := make([]ArgDescriptor, len(names))
	for i, name := range names {
		args[i] = ArgDescriptor{Name: name, Types: ArgAny}
	}
	return args
}

func arithmetic(name, description string, op func(a, b float64) value.Operand) *Descriptor {
	return &Descriptor{
		Name:        name,
		Description: description,
		Args:        numberArgs("value1", "value2"),
		ReturnType:  ArgNumber,
		Compute: func(ctx *Context, args []Arg) value.Operand {
			a, err := toNumber(args[0])
			if err != nil {
				return failWith(err)
			}
			b, err := toNumber(args[1])
			if err != nil {
				return failWith(err)
			}
			return op(a, b)
		},
	}
}

func comparison(name, description string, accept func(order int) bool) *Descriptor {
	return &Descriptor{
		Name:        name,
		Description: description,
		Args:        anyArgs("value1", "value2"),
		ReturnType:  ArgBoolean,
		Compute: func(ctx *Context, args []Arg) value.Operand {
			a := args[0].Resolve().First()
			b := args[1].Resolve().First()
			if a.IsError() {
				return failWith(a.Err)
			}
			if b.IsError() {
				return failWith(b.Err)
			}
			return scalar(value.Boolean(accept(Compare(a, b))))
		},
	}
}

// Operators returns the descriptors backing the formula operators.
func Operators() []*Descriptor {
	return []*Descriptor{
		arithmetic("ADD", "Sum of two numbers.", func(a, b float64) value.Operand {
			return number(a + b)
		}),
		arithmetic("MINUS", "Difference of two numbers.", func(a, b float64) value.Operand {
			return number(a - b)
		}),
		arithmetic("MULTIPLY", "Product of two numbers.", func(a, b float64) value.Operand {
			return number(a * b)
		}),
		arithmetic("DIVIDE", "One number divided by another.", func(a, b float64) value.Operand {
			if b == 0 {
				return fail(value.ErrorCodeDiv0, "Evaluation of function DIVIDE caused a divide by zero error.")
			}
			return number(a / b)
		}),
		powerDescriptor(),
		{
			Name:        "CONCAT",
			Description: "Concatenation of two values.",
			Args: []ArgDescriptor{
				{Name: "value1", Types: ArgString},
				{Name: "value2", Types: ArgString},
			},
			ReturnType: ArgString,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				a, err := toText(args[0])
				if err != nil {
					return failWith(err)
				}
				b, err := toText(args[1])
				if err != nil {
					return failWith(err)
				}
				return scalar(value.Text(a + b))
			},
		},
		comparison("EQ", "Equal.", func(o int) bool { return o == 0 }),
		comparison("NE", "Not equal.", func(o int) bool { return o != 0 }),
		comparison("GT", "Strictly greater than.", func(o int) bool { return o > 0 }),
		comparison("GTE", "Greater than or equal to.", func(o int) bool { return o >= 0 }),
		comparison("LT", "Less than.", func(o int) bool { return o < 0 }),
		comparison("LTE", "Less than or equal to.", func(o int) bool { return o <= 0 }),
		{
			Name:        "UMINUS",
			Description: "A number with the sign reversed.",
			Args:        numberArgs("value"),
			ReturnType:  ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				n, err := toNumber(args[0])
				if err != nil {
					return failWith(err)
				}
				return number(-n)
			},
		},
		{
			Name:        "UPLUS",
			Description: "A specified number, unchanged.",
			Args:        anyArgs("value"),
			ReturnType:  ArgAny,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				return scalar(args[0].Resolve().First())
			},
		},
		{
			Name:        "UNARY.PERCENT",
			Description: "Value interpreted as a percentage.",
			Args:        numberArgs("percentage"),
			ReturnType:  ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				n, err := toNumber(args[0])
				if err != nil {
					return failWith(err)
				}
				return number(n / 100)
			},
		},
	}
}

func powerDescriptor() *Descriptor {
	return arithmetic("POWER", "A number raised to a power.", func(base, exponent float64) value.Operand {
		if base == 0 && exponent < 0 {
			return fail(value.ErrorCodeDiv0, "Evaluation of function POWER caused a divide by zero error.")
		}
		if base < 0 && exponent != math.Trunc(exponent) {
			return fail(value.ErrorCodeNum, "Function POWER parameter 2 must be an integer when parameter 1 is negative.")
		}
		return number(math.Pow(base, exponent))
	})
}

// Compare orders two non-error values the way spreadsheets do: empty takes
// the zero value of the other side's type, then numbers < text < booleans,
// text compared case-insensitively. Returns -1, 0 or 1.
func Compare(a, b value.Value) int {
	if a.Kind == value.KindEmpty {
		a = zeroOf(b.Kind)
	}
	if b.Kind == value.KindEmpty {
		b = zeroOf(a.Kind)
	}
	if ra, rb := typeRank(a.Kind), typeRank(b.Kind); ra != rb {
		return cmpInt(ra, rb)
	}
	switch a.Kind {
	case value.KindNumber:
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		}
		return 0
	case value.KindText:
		return strings.Compare(strings.ToUpper(a.Text), strings.ToUpper(b.Text))
	case value.KindBoolean:
		return cmpInt(boolRank(a.Bool), boolRank(b.Bool))
	}
	return 0
}

func zeroOf(kind value.Kind) value.Value {
	switch kind {
	case value.KindText:
		return value.Text("")
	case value.KindBoolean:
		return value.Boolean(false)
	}
	return value.Number(0)
}

func typeRank(kind value.Kind) int {
	switch kind {
	case value.KindText:
		return 1
	case value.KindBoolean:
		return 2
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
