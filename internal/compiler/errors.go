package compiler

import "fmt"

// ErrorKind classifies compile failures.
type ErrorKind int

const (
	ErrUnknownFunction ErrorKind = iota
	ErrArity
	ErrArgumentType
	ErrParse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownFunction:
		return "unknown function"
	case ErrArity:
		return "arity"
	case ErrArgumentType:
		return "argument type"
	}
	return "parse"
}

// CompileError is returned when a formula cannot be turned into a Unit. It is
// never stored in a cell; the evaluator converts it into a cell error.
type CompileError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	return e.Message
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func newCompileError(kind ErrorKind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
