package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes codegen errors.
type ErrorCode string

const (
	// ErrResourceNotFound indicates an explicit source file or root path does not exist.
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// ErrUnsupportedResourceType indicates a file maps to no known resource kind.
	ErrUnsupportedResourceType ErrorCode = "UNSUPPORTED_RESOURCE_TYPE"

	// ErrMalformedSource indicates a structural parse failure below the rule grammar level.
	ErrMalformedSource ErrorCode = "MALFORMED_SOURCE"

	// ErrDuplicateRuleDefinition indicates the same rule name twice in one package.
	ErrDuplicateRuleDefinition ErrorCode = "DUPLICATE_RULE_DEFINITION"
)

// Error is a codegen failure with source position. Every failure terminates
// the session's Generate call; no partial output accompanies it.
type Error struct {
	Code     ErrorCode
	Location string // file path, empty when not tied to a file
	Line     int    // 1-based, 0 when unknown
	Message  string
	Err      error // underlying cause (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.Location != "" && e.Line > 0:
		return fmt.Sprintf("%s: %s:%d: %s", e.Code, e.Location, e.Line, msg)
	case e.Location != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Location, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error for the given code and location.
func Errorf(code ErrorCode, location string, line int, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Location: location,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WrapError creates an Error that wraps cause.
func WrapError(code ErrorCode, location string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Location: location,
		Message:  message,
		Err:      cause,
	}
}

// IsCode reports whether err (or anything it wraps) is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
