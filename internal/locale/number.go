package locale

import (
	"strconv"
	"strings"

	"github.com/vogtb/go-formula/internal/value"
)

// FormatNumber renders n with the locale's decimal and thousands separators.
func FormatNumber(n float64, l Locale) string {
	raw := strconv.FormatFloat(n, 'f', -1, 64)
	sign := ""
	if strings.HasPrefix(raw, "-") {
		sign, raw = "-", raw[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(raw, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(l.ThousandsSeparator)
		}
		b.WriteRune(ch)
	}
	if hasFrac {
		b.WriteString(l.DecimalSeparator)
		b.WriteString(fracPart)
	}
	return b.String()
}

// ParseNumber reads a number written in the locale, accepting well-formed
// thousands groups.
func ParseNumber(text string, l Locale) (float64, bool) {
	s := strings.TrimSpace(text)
	if l.ThousandsSeparator != "" && strings.Contains(s, l.ThousandsSeparator) {
		stripped, ok := stripGroups(s, l)
		if !ok {
			return 0, false
		}
		s = stripped
	}
	return value.ParseNumber(s, l.DecimalSeparator)
}

// IsNumber reports whether text is a plain number literal in the locale (no
// thousands grouping). Only these are rewritten by canonicalization.
func IsNumber(text string, l Locale) bool {
	_, _, ok := value.ParseNumberLiteral(text, l.DecimalSeparator)
	return ok
}

func stripGroups(s string, l Locale) (string, bool) {
	intPart, rest := s, ""
	if idx := strings.Index(s, l.DecimalSeparator); idx >= 0 {
		intPart, rest = s[:idx], s[idx:]
	}
	sign := ""
	if strings.HasPrefix(intPart, "-") || strings.HasPrefix(intPart, "+") {
		sign, intPart = intPart[:1], intPart[1:]
	}
	groups := strings.Split(intPart, l.ThousandsSeparator)
	for i, g := range groups {
		if (i == 0 && (len(g) == 0 || len(g) > 3)) || (i > 0 && len(g) != 3) {
			return "", false
		}
	}
	return sign + strings.Join(groups, "") + rest, true
}
