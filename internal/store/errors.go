package store

import "fmt"

// AppErrorCode represents gRPC-style error codes for application-level
// errors. Codes that make no sense for a workbook store are skipped.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates the caller specified an invalid argument,
	// such as a malformed cell address or an empty sheet name.
	InvalidArgument AppErrorCode = 3

	// NotFound means a requested sheet was not found.
	NotFound AppErrorCode = 5

	// AlreadyExists means a sheet with the same name already exists.
	AlreadyExists AppErrorCode = 6

	// FailedPrecondition indicates the store is not in a state required for
	// the operation, e.g. removing the last sheet.
	FailedPrecondition AppErrorCode = 9

	// Internal errors. The underlying database failed.
	Internal AppErrorCode = 13
)

func (c AppErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case NotFound:
		return "NOT_FOUND"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case Internal:
		return "INTERNAL"
	}
	return "UNKNOWN"
}

// AppError represents errors at the application level (not formula
// evaluation errors, which are cell values).
type AppError struct {
	Code    AppErrorCode
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
