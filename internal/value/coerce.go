package value

import (
	"fmt"
	"strconv"
	"strings"
)

// The coercion table. Every accepted-type conversion the compiler or a
// function performs goes through one of these.
//
//	from \ to | number          | text            | boolean
//	----------+-----------------+-----------------+------------------------
//	empty     | 0               | ""              | FALSE
//	number    | n               | FormatNumber(n) | n != 0
//	text      | parsed or #VALUE| t               | TRUE/FALSE/"" or #VALUE
//	boolean   | 1 / 0           | "TRUE"/"FALSE"  | b
//	error     | error           | error           | error

// ToNumber coerces v to a number.
func ToNumber(v Value) (float64, *CellError) {
	switch v.Kind {
	case KindEmpty:
		return 0, nil
	case KindNumber:
		return v.Number, nil
	case KindBoolean:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindText:
		if strings.TrimSpace(v.Text) == "" {
			return 0, nil
		}
		if n, ok := ParseNumber(v.Text, "."); ok {
			return n, nil
		}
		return 0, NewCellError(ErrorCodeValue, fmt.Sprintf("The value %q cannot be coerced to a number.", v.Text))
	case KindError:
		return 0, v.Err
	}
	return 0, NewCellError(ErrorCodeValue, "")
}

// ToText coerces v to a string.
func ToText(v Value) (string, *CellError) {
	if v.Kind == KindError {
		return "", v.Err
	}
	return v.String(), nil
}

// ToBoolean coerces v to a boolean.
func ToBoolean(v Value) (bool, *CellError) {
	switch v.Kind {
	case KindEmpty:
		return false, nil
	case KindNumber:
		return v.Number != 0, nil
	case KindBoolean:
		return v.Bool, nil
	case KindText:
		switch strings.ToUpper(strings.TrimSpace(v.Text)) {
		case "TRUE":
			return true, nil
		case "FALSE", "":
			return false, nil
		}
		return false, NewCellError(ErrorCodeValue, fmt.Sprintf("The value %q cannot be coerced to a boolean.", v.Text))
	case KindError:
		return false, v.Err
	}
	return false, NewCellError(ErrorCodeValue, "")
}

// ParseNumber parses a number literal written with the given decimal
// separator: optional sign, digits, optional decimal part, optional exponent
// and an optional trailing percent sign.
func ParseNumber(text, decimalSeparator string) (float64, bool) {
	n, _, ok := ParseNumberLiteral(text, decimalSeparator)
	return n, ok
}

// ParseNumberLiteral is ParseNumber that also reports whether the literal was
// a percentage.
func ParseNumberLiteral(text, decimalSeparator string) (n float64, percent bool, ok bool) {
	s := strings.TrimSpace(text)
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	if !IsNumberLiteral(s, decimalSeparator) {
		return 0, false, false
	}
	if decimalSeparator != "." {
		s = strings.Replace(s, decimalSeparator, ".", 1)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, false
	}
	if percent {
		n /= 100
	}
	return n, percent, true
}

// IsNumberLiteral reports whether s is a plain number literal (no percent).
func IsNumberLiteral(s, decimalSeparator string) bool {
	runes := []rune(s)
	sep := []rune(decimalSeparator)
	i := 0
	if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
		i++
	}
	digits := 0
	for i < len(runes) && isDigit(runes[i]) {
		i++
		digits++
	}
	if len(sep) == 1 && i < len(runes) && runes[i] == sep[0] {
		i++
		for i < len(runes) && isDigit(runes[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
		i++
		if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
			i++
		}
		exp := 0
		for i < len(runes) && isDigit(runes[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(runes)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
