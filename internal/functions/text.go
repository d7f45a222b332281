package functions

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vogtb/go-formula/internal/value"
)

// caser picks the case mapping rules of the evaluating locale
func caser(ctx *Context, mapping func(language.Tag, ...cases.Option) cases.Caser) cases.Caser {
	tag, err := ctx.Locale.Tag()
	if err != nil {
		tag = language.Und
	}
	return mapping(tag)
}

func textTransform(name, description string, fn func(ctx *Context, s string) string) *Descriptor {
	return &Descriptor{
		Name:        name,
		Description: description,
		Args: []ArgDescriptor{
			{Name: "text", Types: ArgString},
		},
		ReturnType: ArgString,
		Compute: func(ctx *Context, args []Arg) value.Operand {
			s, err := toText(args[0])
			if err != nil {
				return failWith(err)
			}
			return scalar(value.Text(fn(ctx, s)))
		},
	}
}

func textFunctions() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "CONCATENATE",
			Description: "Appends strings to one another.",
			Args: []ArgDescriptor{
				{Name: "string1", Types: ArgString | ArgRange, Repeating: true},
			},
			ReturnType: ArgString,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				var b strings.Builder
				err := eachValue(args, func(v value.Value, fromRange bool) *value.CellError {
					s, err := value.ToText(v)
					if err != nil {
						return err
					}
					b.WriteString(s)
					return nil
				})
				if err != nil {
					return failWith(err)
				}
				return scalar(value.Text(b.String()))
			},
		},
		{
			Name:        "LEN",
			Description: "Length of a string.",
			Args: []ArgDescriptor{
				{Name: "text", Types: ArgString},
			},
			ReturnType: ArgNumber,
			Compute: func(ctx *Context, args []Arg) value.Operand {
				s, err := toText(args[0])
				if err != nil {
					return failWith(err)
				}
				return number(float64(utf8.RuneCountInString(s)))
			},
		},
		textTransform("UPPER", "Converts a specified string to uppercase.", func(ctx *Context, s string) string {
			return caser(ctx, cases.Upper).String(s)
		}),
		textTransform("LOWER", "Converts a specified string to lowercase.", func(ctx *Context, s string) string {
			return caser(ctx, cases.Lower).String(s)
		}),
		textTransform("PROPER", "Capitalizes each word in a specified string.", func(ctx *Context, s string) string {
			return caser(ctx, cases.Title).String(s)
		}),
	}
}
