package engine

import (
	"strings"

	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/value"
)

// inferLiteral types non-formula content: numbers (percentages get a percent
// format), booleans, error literals and dates in the canonical pattern.
// Anything else is text.
func inferLiteral(content string) value.Value {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return value.Text(content)
	}
	if n, percent, ok := value.ParseNumberLiteral(trimmed, "."); ok {
		v := value.Number(n)
		if percent {
			v.Format = percentFormat(trimmed)
		}
		return v
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return value.Boolean(true)
	case "FALSE":
		return value.Boolean(false)
	}
	if code, ok := value.ParseErrorCode(trimmed); ok {
		return value.Error(code, "")
	}
	if serial, format, ok := locale.ParseDateTime(trimmed, locale.Canonical()); ok {
		return value.Number(serial).WithFormat(format)
	}
	return value.Text(content)
}

func percentFormat(literal string) string {
	if strings.Contains(literal, ".") {
		return "0.00%"
	}
	return "0%"
}
