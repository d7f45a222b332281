package locale

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/nfp"
)

// serial numbers count days since 1899-12-30, the spreadsheet epoch
var epoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400

type partKind byte

const (
	partLiteral partKind = iota
	partYear
	partMonth
	partDay
	partHour
	partMinute
	partSecond
	partMeridiem
)

type patternPart struct {
	kind    partKind
	width   int
	literal string
}

// compilePattern splits a pattern such as "dd/mm/yyyy hh:mm:ss a" into parts,
// using the number format tokenizer for the date and time codes. "m" means
// minutes when it follows an hour or precedes a second.
func compilePattern(pattern string) ([]patternPart, error) {
	parser := nfp.NumberFormatParser()
	sections := parser.Parse(pattern)
	if len(sections) != 1 {
		return nil, fmt.Errorf("unsupported pattern %q: expected a single section", pattern)
	}

	var parts []patternPart
	for _, tok := range sections[0].Items {
		switch tok.TType {
		case nfp.TokenTypeDateTimes:
			part, err := datePart(tok.TValue, pattern)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		case nfp.TokenTypeLiteral:
			for _, ch := range tok.TValue {
				if unicode.IsLetter(ch) {
					return nil, fmt.Errorf("unsupported pattern character %q in %q", ch, pattern)
				}
			}
			parts = append(parts, patternPart{kind: partLiteral, literal: tok.TValue})
		default:
			return nil, fmt.Errorf("unsupported pattern token %q in %q", tok.TValue, pattern)
		}
	}

	// minutes vs months
	for i := range parts {
		if parts[i].kind != partMonth {
			continue
		}
		if prev := previousToken(parts, i); prev >= 0 && parts[prev].kind == partHour {
			parts[i].kind = partMinute
		} else if next := nextToken(parts, i); next >= 0 && parts[next].kind == partSecond {
			parts[i].kind = partMinute
		}
	}

	hasToken := false
	for _, p := range parts {
		if p.kind != partLiteral {
			hasToken = true
		}
	}
	if !hasToken {
		return nil, fmt.Errorf("pattern %q has no date or time fields", pattern)
	}
	return parts, nil
}

// datePart maps one date/time code ("yyyy", "mm", "AM/PM", ...) to a part.
func datePart(code, pattern string) (patternPart, error) {
	lower := strings.ToLower(code)
	switch lower {
	case "a", "am/pm", "a/p":
		return patternPart{kind: partMeridiem, width: 1}, nil
	}
	kinds := map[rune]partKind{'y': partYear, 'm': partMonth, 'd': partDay, 'h': partHour, 's': partSecond}
	first := []rune(lower)[0]
	kind, ok := kinds[first]
	if !ok || strings.Trim(lower, string(first)) != "" {
		return patternPart{}, fmt.Errorf("unsupported pattern code %q in %q", code, pattern)
	}
	return patternPart{kind: kind, width: len(lower)}, nil
}

func previousToken(parts []patternPart, i int) int {
	for j := i - 1; j >= 0; j-- {
		if parts[j].kind != partLiteral {
			return j
		}
	}
	return -1
}

func nextToken(parts []patternPart, i int) int {
	for j := i + 1; j < len(parts); j++ {
		if parts[j].kind != partLiteral {
			return j
		}
	}
	return -1
}

// FormatSerial renders a serial date number with the given pattern. Invalid
// patterns render the plain number.
func FormatSerial(serial float64, pattern string) string {
	parts, err := compilePattern(pattern)
	if err != nil {
		return strconv.FormatFloat(serial, 'f', -1, 64)
	}
	days := math.Floor(serial)
	secs := int(math.Round((serial - days) * secondsPerDay))
	if secs >= secondsPerDay {
		days++
		secs -= secondsPerDay
	}
	date := epoch.AddDate(0, 0, int(days))
	hour, minute, second := secs/3600, (secs%3600)/60, secs%60

	twelveHour := false
	for _, p := range parts {
		if p.kind == partMeridiem {
			twelveHour = true
		}
	}

	var b strings.Builder
	for _, p := range parts {
		switch p.kind {
		case partLiteral:
			b.WriteString(p.literal)
		case partYear:
			if p.width <= 2 {
				fmt.Fprintf(&b, "%02d", date.Year()%100)
			} else {
				fmt.Fprintf(&b, "%04d", date.Year())
			}
		case partMonth:
			writeField(&b, int(date.Month()), p.width)
		case partDay:
			writeField(&b, date.Day(), p.width)
		case partHour:
			h := hour
			if twelveHour {
				h = hour % 12
				if h == 0 {
					h = 12
				}
			}
			writeField(&b, h, p.width)
		case partMinute:
			writeField(&b, minute, p.width)
		case partSecond:
			writeField(&b, second, p.width)
		case partMeridiem:
			if hour < 12 {
				b.WriteString("AM")
			} else {
				b.WriteString("PM")
			}
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, n, width int) {
	if width >= 2 {
		fmt.Fprintf(b, "%02d", n)
		return
	}
	b.WriteString(strconv.Itoa(n))
}

var timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?\s*([aApP][mM])?$`)

// ParseDateTime reads text written in the locale's date pattern, optionally
// followed by a time, or a bare time. It returns the serial number and the
// pattern the value should be displayed with.
func ParseDateTime(text string, l Locale) (serial float64, format string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, "", false
	}
	datePart, timePart, hasTime := strings.Cut(trimmed, " ")
	if days, ok := parseDate(datePart, l.DateFormat); ok {
		if !hasTime {
			return days, l.DateFormat, true
		}
		fraction, ok := parseTime(strings.TrimSpace(timePart))
		if !ok {
			return 0, "", false
		}
		return days + fraction, l.DateTimeFormat(), true
	}
	if fraction, ok := parseTime(trimmed); ok {
		return fraction, l.TimeFormat, true
	}
	return 0, "", false
}

func parseDate(text, pattern string) (float64, bool) {
	parts, err := compilePattern(pattern)
	if err != nil {
		return 0, false
	}
	runes := []rune(text)
	pos := 0
	year, month, day := -1, -1, -1
	yearDigits := 0
	for _, p := range parts {
		switch p.kind {
		case partLiteral:
			lit := []rune(p.literal)
			if pos+len(lit) > len(runes) || string(runes[pos:pos+len(lit)]) != p.literal {
				return 0, false
			}
			pos += len(lit)
		case partYear, partMonth, partDay:
			maxDigits := 2
			if p.kind == partYear {
				maxDigits = 4
			}
			start := pos
			for pos < len(runes) && pos-start < maxDigits && runes[pos] >= '0' && runes[pos] <= '9' {
				pos++
			}
			if pos == start {
				return 0, false
			}
			n, _ := strconv.Atoi(string(runes[start:pos]))
			switch p.kind {
			case partYear:
				year, yearDigits = n, pos-start
			case partMonth:
				month = n
			case partDay:
				day = n
			}
		default:
			// time fields inside a date pattern are not read
			return 0, false
		}
	}
	if pos != len(runes) || year < 0 || month < 1 || month > 12 || day < 1 {
		return 0, false
	}
	if yearDigits <= 2 {
		if year < 30 {
			year += 2000
		} else {
			year += 1900
		}
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month {
		// e.g. 2/30
		return 0, false
	}
	return math.Round(date.Sub(epoch).Hours() / 24), true
}

func parseTime(text string) (float64, bool) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if meridiem := strings.ToUpper(m[4]); meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, false
		}
		hour %= 12
		if meridiem == "PM" {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, false
	}
	return float64(hour*3600+minute*60+second) / secondsPerDay, true
}

func sameSecond(a, b float64) bool {
	return math.Abs(a-b)*secondsPerDay < 0.5
}

// SerialFromTime converts a wall-clock time to a serial number, keeping the
// time's own location.
func SerialFromTime(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return wall.Sub(epoch).Hours() / 24
}

// SerialFromDate converts a calendar date to a serial number. Out-of-range
// months and days roll over the way time.Date normalizes them.
func SerialFromDate(year, month, day int) float64 {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return math.Round(date.Sub(epoch).Hours() / 24)
}
