package apperrors

import (
	"errors"
	"fmt"
)

// Persistence-layer sentinels. Repositories return these; services translate them.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Code is a stable, caller-visible error identifier.
type Code string

const (
	CodePermissionDenied      Code = "PERMISSION_DENIED"
	CodeResourceNotFound      Code = "RESOURCE_NOT_FOUND"
	CodeAlreadyExists         Code = "DATASOURCE_EXISTS"
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeConnectionTestFailure Code = "CONNECTION_TEST_FAILURE"
	CodeConnectFailed         Code = "DATASOURCE_CONNECT_FAILED"
	CodeQuery                 Code = "QUERY_DATASOURCE_ERROR"
	CodeUnsupportedEngine     Code = "UNSUPPORTED_ENGINE"
)

// Error is a domain error carrying a stable code and a human-readable message.
// errors.Is matches any two *Error values with the same code, so callers can
// compare against the sentinels below regardless of message details.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrPermissionDenied      = &Error{Code: CodePermissionDenied, Message: "user has no operation privilege"}
	ErrResourceNotFound      = &Error{Code: CodeResourceNotFound, Message: "resource does not exist"}
	ErrAlreadyExists         = &Error{Code: CodeAlreadyExists, Message: "data source name already exists"}
	ErrValidation            = &Error{Code: CodeValidation, Message: "invalid parameter"}
	ErrConnectionTestFailure = &Error{Code: CodeConnectionTestFailure, Message: "connection test failure"}
	ErrConnectFailed         = &Error{Code: CodeConnectFailed, Message: "datasource connect failed"}
	ErrQuery                 = &Error{Code: CodeQuery, Message: "query datasource error"}
	ErrUnsupportedEngine     = &Error{Code: CodeUnsupportedEngine, Message: "unsupported datasource type"}
)

// New returns an *Error with the given code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error with the given code and message that wraps err.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
