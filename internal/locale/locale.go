// Package locale describes the separators and date/time patterns a user edits
// formulas with, and validates them before they reach the tokenizer.
package locale

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Locale is the set of conventions a user types content in.
type Locale struct {
	Code                string `yaml:"code"`
	Name                string `yaml:"name"`
	DecimalSeparator    string `yaml:"decimalSeparator"`
	ThousandsSeparator  string `yaml:"thousandsSeparator"`
	FormulaArgSeparator string `yaml:"formulaArgSeparator"`
	DateFormat          string `yaml:"dateFormat"`
	TimeFormat          string `yaml:"timeFormat"`
}

// Canonical returns the storage locale. All formulas and content are stored in
// this form regardless of the editing user's locale.
func Canonical() Locale {
	return Locale{
		Code:                "en_US",
		Name:                "English (US)",
		DecimalSeparator:    ".",
		ThousandsSeparator:  ",",
		FormulaArgSeparator: ",",
		DateFormat:          "m/d/yyyy",
		TimeFormat:          "hh:mm:ss a",
	}
}

// DateTimeFormat is the combined pattern used for non-integral date values.
func (l Locale) DateTimeFormat() string {
	return l.DateFormat + " " + l.TimeFormat
}

// IsCanonical reports whether l uses the canonical separators, in which case
// canonicalization is the identity.
func (l Locale) IsCanonical() bool {
	c := Canonical()
	return l.DecimalSeparator == c.DecimalSeparator &&
		l.FormulaArgSeparator == c.FormulaArgSeparator &&
		l.DateFormat == c.DateFormat &&
		l.TimeFormat == c.TimeFormat
}

// Tag parses the locale code ("fr_FR") into a BCP 47 language tag.
func (l Locale) Tag() (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(l.Code, "_", "-"))
}

// DisplayName returns the configured name, or the English name of the tag.
func (l Locale) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	tag, err := l.Tag()
	if err != nil {
		return l.Code
	}
	return display.English.Tags().Name(tag)
}

// characters that already mean something inside a formula
const reservedFormulaChars = `()+-*/^&=<>%":!$'`

// Validate checks the separator invariants and that the locale can render and
// read back a sample number and its own date and time patterns.
func Validate(l Locale) error {
	if l.Code == "" {
		return fmt.Errorf("locale code is required")
	}
	if _, err := l.Tag(); err != nil {
		return fmt.Errorf("locale %s: invalid code: %w", l.Code, err)
	}
	if utf8.RuneCountInString(l.DecimalSeparator) != 1 {
		return fmt.Errorf("locale %s: decimal separator must be a single character", l.Code)
	}
	if utf8.RuneCountInString(l.FormulaArgSeparator) != 1 {
		return fmt.Errorf("locale %s: formula argument separator must be a single character", l.Code)
	}
	if utf8.RuneCountInString(l.ThousandsSeparator) > 1 {
		return fmt.Errorf("locale %s: thousands separator must be at most one character", l.Code)
	}
	if l.DecimalSeparator == l.ThousandsSeparator {
		return fmt.Errorf("locale %s: decimal and thousands separators must differ", l.Code)
	}
	if l.DecimalSeparator == l.FormulaArgSeparator {
		return fmt.Errorf("locale %s: decimal and argument separators must differ", l.Code)
	}
	for _, sep := range []string{l.DecimalSeparator, l.FormulaArgSeparator} {
		r, _ := utf8.DecodeRuneInString(sep)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(reservedFormulaChars, r) {
			return fmt.Errorf("locale %s: separator %q is not allowed", l.Code, sep)
		}
	}

	// sample number round trip
	const sample = 1234567.89
	rendered := FormatNumber(sample, l)
	if parsed, ok := ParseNumber(rendered, l); !ok || parsed != sample {
		return fmt.Errorf("locale %s: cannot read back sample number %q", l.Code, rendered)
	}

	// sample date/time round trip
	const sampleSerial = 45306.5625 // 2024-01-15 13:30:00
	for _, pattern := range []string{l.DateFormat, l.TimeFormat} {
		if _, err := compilePattern(pattern); err != nil {
			return fmt.Errorf("locale %s: %w", l.Code, err)
		}
	}
	renderedDate := FormatSerial(sampleSerial, l.DateTimeFormat())
	serial, _, ok := ParseDateTime(renderedDate, l)
	if !ok || !sameSecond(serial, sampleSerial) {
		return fmt.Errorf("locale %s: cannot read back sample date %q", l.Code, renderedDate)
	}
	return nil
}

// Registry holds the locales a workbook can be edited in. It is constructed
// and passed around explicitly.
type Registry struct {
	locales map[string]Locale
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{locales: make(map[string]Locale)}
}

// NewDefaultRegistry creates a registry holding the canonical locale and a few
// common ones.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, l := range defaultLocales() {
		if err := r.Register(l); err != nil {
			panic(err)
		}
	}
	return r
}

// Register validates and adds a locale, replacing any locale with the same
// code.
func (r *Registry) Register(l Locale) error {
	if err := Validate(l); err != nil {
		return err
	}
	r.locales[l.Code] = l
	return nil
}

// Lookup returns the locale registered under code.
func (r *Registry) Lookup(code string) (Locale, bool) {
	l, ok := r.locales[code]
	return l, ok
}

// List returns all locales sorted by code.
func (r *Registry) List() []Locale {
	out := make([]Locale, 0, len(r.locales))
	for _, l := range r.locales {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func defaultLocales() []Locale {
	return []Locale{
		Canonical(),
		{
			Code:                "en_GB",
			Name:                "English (UK)",
			DecimalSeparator:    ".",
			ThousandsSeparator:  ",",
			FormulaArgSeparator: ",",
			DateFormat:          "dd/mm/yyyy",
			TimeFormat:          "hh:mm:ss",
		},
		{
			Code:                "fr_FR",
			Name:                "French",
			DecimalSeparator:    ",",
			ThousandsSeparator:  " ",
			FormulaArgSeparator: ";",
			DateFormat:          "dd/mm/yyyy",
			TimeFormat:          "hh:mm:ss",
		},
		{
			Code:                "de_DE",
			Name:                "German",
			DecimalSeparator:    ",",
			ThousandsSeparator:  ".",
			FormulaArgSeparator: ";",
			DateFormat:          "dd.mm.yyyy",
			TimeFormat:          "hh:mm:ss",
		},
		{
			Code:                "ja_JP",
			Name:                "Japanese",
			DecimalSeparator:    ".",
			ThousandsSeparator:  ",",
			FormulaArgSeparator: ",",
			DateFormat:          "yyyy/mm/dd",
			TimeFormat:          "hh:mm:ss",
		},
	}
}
