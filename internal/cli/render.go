package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vogtb/go-formula/internal/canonical"
	"github.com/vogtb/go-formula/internal/config"
	"github.com/vogtb/go-formula/internal/functions"
	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/value"
)

// renderTable writes rows as a light table, or as tab-separated lines in
// plain mode
func renderTable(w io.Writer, mode, title string, header table.Row, rows []table.Row) {
	if mode == config.OutputPlain {
		for _, row := range rows {
			cols := make([]string, len(row))
			for i, col := range row {
				cols[i] = fmt.Sprint(col)
			}
			_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
		}
		return
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

func renderCells(w io.Writer, mode, title string, cells []cellResult) {
	rows := make([]table.Row, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, table.Row{c.Sheet + "!" + c.Cell, c.Content, c.Value, c.Format, c.Message})
	}
	renderTable(w, mode, title, table.Row{"Cell", "Content", "Value", "Format", "Note"}, rows)
}

// localize renders canonical raw content in loc
func localize(content string, loc locale.Locale) string {
	return canonical.LocalizeContent(content, loc)
}

// display renders an evaluated value in loc, honoring number, percent and
// date formats
func display(v value.Value, format string, loc locale.Locale) string {
	switch v.Kind {
	case value.KindNumber:
		return formatNumber(v.Number, format, loc)
	case value.KindError:
		return v.Err.Code.String()
	}
	return v.String()
}

func formatNumber(n float64, format string, loc locale.Locale) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return value.ErrorCodeNum.String()
	}
	switch {
	case format == "":
		return locale.FormatNumber(roundNoise(n), loc)
	case strings.Contains(format, "%"):
		return fixed(n*100, decimals(format), loc) + "%"
	case isDatePattern(format):
		return locale.FormatSerial(n, datePattern(format, loc))
	case strings.HasPrefix(format, "0"):
		return fixed(n, decimals(format), loc)
	}
	return locale.FormatNumber(roundNoise(n), loc)
}

// roundNoise drops float artifacts such as 0.1+0.2 = 0.30000000000000004
func roundNoise(n float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(n, 'g', 15, 64), 64)
	if err != nil {
		return n
	}
	return rounded
}

func fixed(n float64, places int, loc locale.Locale) string {
	return strings.Replace(strconv.FormatFloat(n, 'f', places, 64), ".", loc.DecimalSeparator, 1)
}

// decimals counts the zeros after the decimal point of a "0.00" style format
func decimals(format string) int {
	_, frac, ok := strings.Cut(format, ".")
	if !ok {
		return 0
	}
	return len(frac) - len(strings.TrimLeft(frac, "0"))
}

func isDatePattern(format string) bool {
	return strings.ContainsAny(strings.ToLower(format), "ydhs")
}

// datePattern swaps the canonical date patterns for the locale's own
func datePattern(format string, loc locale.Locale) string {
	canonicalLocale := locale.Canonical()
	switch format {
	case functions.DateFormat, canonicalLocale.DateFormat:
		return loc.DateFormat
	case functions.DateTimeFormat, canonicalLocale.DateTimeFormat():
		return loc.DateTimeFormat()
	case canonicalLocale.TimeFormat:
		return loc.TimeFormat
	}
	return format
}

// displayOperand renders an ad hoc result; matrices print one row per line
func displayOperand(op value.Operand, loc locale.Locale) string {
	if !op.IsMatrix() {
		return display(op.Value, op.Value.Format, loc)
	}
	lines := make([]string, 0, len(op.Matrix))
	for _, row := range op.Matrix {
		cols := make([]string, len(row))
		for i, v := range row {
			cols[i] = display(v, v.Format, loc)
		}
		lines = append(lines, strings.Join(cols, "\t"))
	}
	return strings.Join(lines, "\n")
}
