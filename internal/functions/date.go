package functions

import (
	"math"

	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/value"
)

const (
	DateFormat     = "m/d/yyyy"
	DateTimeFormat = "m/d/yyyy hh:mm:ss"
)

func dateFunctions() []*Descriptor {
	return []*Descriptor{
		{
			Name:         "DATE",
			Description:  "Converts year/month/day into a date.",
			Args:         numberArgs("year", "month", "day"),
			ReturnType:   ArgDate,
			ReturnFormat: SpecificFormat(DateFormat),
			Compute: func(ctx *Context, args []Arg) value.Operand {
				var parts [3]float64
				for i := range parts {
					n, err := toNumber(args[i])
					if err != nil {
						return failWith(err)
					}
					parts[i] = math.Trunc(n)
				}
				year := parts[0]
				if year >= 0 && year < 1900 {
					year += 1900
				}
				if year < 0 || year > 9999 {
					return fail(value.ErrorCodeNum, "The year (%s) must be between 0 and 9999 inclusive.", value.FormatNumber(parts[0]))
				}
				serial := locale.SerialFromDate(int(year), int(parts[1]), int(parts[2]))
				if serial < 0 {
					return fail(value.ErrorCodeNum, "The function DATE result must be greater than or equal 01/01/1900.")
				}
				return number(serial)
			},
		},
		{
			Name:         "TODAY",
			Description:  "Current date as a date value.",
			ReturnType:   ArgDate,
			ReturnFormat: SpecificFormat(DateFormat),
			Volatile:     true,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				return number(math.Floor(locale.SerialFromTime(ctx.Clock.Now())))
			},
		},
		{
			Name:         "NOW",
			Description:  "Current date and time as a date value.",
			ReturnType:   ArgDate,
			ReturnFormat: SpecificFormat(DateTimeFormat),
			Volatile:     true,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				return number(locale.SerialFromTime(ctx.Clock.Now()))
			},
		},
	}
}
