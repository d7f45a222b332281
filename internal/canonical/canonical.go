// Package canonical converts cell content between a user's locale and the
// canonical storage locale.
package canonical

import (
	"math"
	"strings"

	"github.com/vogtb/go-formula/internal/formula"
	"github.com/vogtb/go-formula/internal/locale"
)

// CanonicalizeNumberContent rewrites decimal and argument separators from
// loc to the canonical locale. Date-looking text is left untouched.
func CanonicalizeNumberContent(content string, loc locale.Locale) string {
	return convertNumberContent(content, loc, locale.Canonical())
}

// LocalizeNumberContent is the inverse of CanonicalizeNumberContent.
func LocalizeNumberContent(content string, loc locale.Locale) string {
	return convertNumberContent(content, locale.Canonical(), loc)
}

// CanonicalizeContent is CanonicalizeNumberContent that also re-renders date
// and time literals in the canonical date pattern. Original formatting nuances
// of dates are lost.
func CanonicalizeContent(content string, loc locale.Locale) string {
	return convertContent(content, loc, locale.Canonical())
}

// LocalizeContent is the inverse of CanonicalizeContent.
func LocalizeContent(content string, loc locale.Locale) string {
	return convertContent(content, locale.Canonical(), loc)
}

func convertContent(content string, from, to locale.Locale) string {
	if isFormula(content) {
		return convertFormula(content, from, to)
	}
	if serial, format, ok := locale.ParseDateTime(content, from); ok {
		return formatDate(serial, format == from.TimeFormat, to)
	}
	return convertLiteral(content, from, to)
}

func convertNumberContent(content string, from, to locale.Locale) string {
	if isFormula(content) {
		return convertFormula(content, from, to)
	}
	return convertLiteral(content, from, to)
}

func isFormula(content string) bool {
	return strings.HasPrefix(content, "=")
}

// convertFormula re-tokenizes with the source locale and rewrites only NUMBER
// decimal separators and ARG_SEPARATOR tokens. Every other token, string
// literals included, is copied byte for byte.
func convertFormula(content string, from, to locale.Locale) string {
	if from.DecimalSeparator == to.DecimalSeparator && from.FormulaArgSeparator == to.FormulaArgSeparator {
		return content
	}
	var b strings.Builder
	for _, tok := range formula.Tokenize(content, from) {
		switch tok.Kind {
		case formula.TokenNumber:
			b.WriteString(strings.Replace(tok.Text, from.DecimalSeparator, to.DecimalSeparator, 1))
		case formula.TokenArgSeparator:
			b.WriteString(to.FormulaArgSeparator)
		default:
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// convertLiteral swaps the decimal separator of a number literal. Anything
// that is not a number is returned as is.
func convertLiteral(content string, from, to locale.Locale) string {
	if from.DecimalSeparator == to.DecimalSeparator || !locale.IsNumber(content, from) {
		return content
	}
	return strings.Replace(content, from.DecimalSeparator, to.DecimalSeparator, 1)
}

// formatDate renders a parsed date in the target locale, using the combined
// date and time pattern for non-integral values and the time pattern for
// time-only input.
func formatDate(serial float64, timeOnly bool, to locale.Locale) string {
	pattern := to.DateFormat
	switch {
	case timeOnly:
		pattern = to.TimeFormat
	case serial != math.Trunc(serial):
		pattern = to.DateTimeFormat()
	}
	return locale.FormatSerial(serial, pattern)
}
