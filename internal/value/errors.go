package value

import "strings"

// ErrorCode represents the spreadsheet error codes an evaluated cell can hold.
type ErrorCode uint8

const (
	ErrorCodeNull    ErrorCode = 1  // #NULL! - no cells in common between ranges
	ErrorCodeDiv0    ErrorCode = 2  // #DIV/0! - division by zero
	ErrorCodeValue   ErrorCode = 3  // #VALUE! - wrong type of argument or operand
	ErrorCodeRef     ErrorCode = 4  // #REF! - invalid cell reference or sheet
	ErrorCodeName    ErrorCode = 5  // #NAME? - unrecognized function name
	ErrorCodeNum     ErrorCode = 6  // #NUM! - number out of range
	ErrorCodeNA      ErrorCode = 7  // #N/A - value not available
	ErrorCodeOther   ErrorCode = 8  // #ERROR - generic evaluation failure
	ErrorCodeCycle   ErrorCode = 9  // #CYCLE - circular reference
	ErrorCodeSpill   ErrorCode = 10 // #SPILL! - array result blocked
	ErrorCodeBadExpr ErrorCode = 11 // #BAD_EXPR - formula failed to parse or compile
)

var errorCodeText = map[ErrorCode]string{
	ErrorCodeNull:    "#NULL!",
	ErrorCodeDiv0:    "#DIV/0!",
	ErrorCodeValue:   "#VALUE!",
	ErrorCodeRef:     "#REF!",
	ErrorCodeName:    "#NAME?",
	ErrorCodeNum:     "#NUM!",
	ErrorCodeNA:      "#N/A",
	ErrorCodeOther:   "#ERROR",
	ErrorCodeCycle:   "#CYCLE",
	ErrorCodeSpill:   "#SPILL!",
	ErrorCodeBadExpr: "#BAD_EXPR",
}

// String returns the code as it is displayed in a cell.
func (c ErrorCode) String() string {
	if text, ok := errorCodeText[c]; ok {
		return text
	}
	return errorCodeText[ErrorCodeOther]
}

// ParseErrorCode maps typed error text such as "#DIV/0!" back to its code.
func ParseErrorCode(text string) (ErrorCode, bool) {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for code, t := range errorCodeText {
		if t == upper {
			return code, true
		}
	}
	return 0, false
}

// CellError is an evaluation error. It is a value: it is stored in cells and
// flows through the dependency graph like any other result.
type CellError struct {
	Code    ErrorCode
	Message string
}

func (e *CellError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// NewCellError builds a cell error, defaulting the message to the code text.
func NewCellError(code ErrorCode, message string) *CellError {
	if message == "" {
		message = code.String()
	}
	return &CellError{
		Code:    code,
		Message: message,
	}
}
