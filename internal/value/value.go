// Package value holds the tagged-union cell value shared by every stage of the
// formula engine, together with positions, zones and coercion rules.
package value

import (
	"math"
	"strconv"
)

// Kind tags which field of a Value is meaningful.
type Kind uint8

const (
	KindEmpty   Kind = 0
	KindNumber  Kind = 1
	KindText    Kind = 2
	KindBoolean Kind = 3
	KindError   Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Value is a single spreadsheet value. Format is an optional display format
// carried along with the result (e.g. "m/d/yyyy" for DATE).
type Value struct {
	Kind   Kind
	Number float64
	Text   string
	Bool   bool
	Err    *CellError
	Format string
}

func Empty() Value {
	return Value{Kind: KindEmpty}
}

func Number(n float64) Value {
	return Value{Kind: KindNumber, Number: n}
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func Boolean(b bool) Value {
	return Value{Kind: KindBoolean, Bool: b}
}

// Error wraps an error code and message into a Value.
func Error(code ErrorCode, message string) Value {
	return Value{Kind: KindError, Err: NewCellError(code, message)}
}

// FromError wraps an existing cell error into a Value.
func FromError(err *CellError) Value {
	return Value{Kind: KindError, Err: err}
}

// WithFormat returns a copy of v carrying the given display format.
func (v Value) WithFormat(format string) Value {
	v.Format = format
	return v
}

func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

func (v Value) IsError() bool {
	return v.Kind == KindError
}

// Equal compares kind and payload, ignoring format.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number == other.Number
	case KindText:
		return v.Text == other.Text
	case KindBoolean:
		return v.Bool == other.Bool
	case KindError:
		return v.Err.Code == other.Err.Code
	}
	return true
}

// String renders the value the way the canonical locale displays it.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return FormatNumber(v.Number)
	case KindText:
		return v.Text
	case KindBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return v.Err.Code.String()
	}
	return ""
}

// FormatNumber prints a number without unnecessary decimals.
func FormatNumber(n float64) string {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return ErrorCodeNum.String()
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	// round away float noise such as 0.1+0.2
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(n, 'g', 15, 64), 64)
	return strconv.FormatFloat(rounded, 'g', -1, 64)
}
