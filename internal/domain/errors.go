// Package domain defines the error taxonomy shared by every service layer.
// Errors carry a Code that the HTTP boundary maps to a status; internal
// causes stay wrapped and are never serialized outward.
package domain

import (
	"errors"
	"fmt"
)

// Code identifies the error category.
type Code string

const (
	// CodeValidation indicates malformed or missing required input.
	CodeValidation Code = "VALIDATION"

	// CodeBadCredentials indicates an authentication failure, including a
	// revoked or absent session token.
	CodeBadCredentials Code = "BAD_CREDENTIALS"

	// CodeForbidden indicates an authenticated actor who is not the owner.
	CodeForbidden Code = "FORBIDDEN"

	// CodeNotFound indicates an id that does not resolve.
	CodeNotFound Code = "NOT_FOUND"

	// CodeDuplicate indicates a uniqueness violation.
	CodeDuplicate Code = "DUPLICATE"

	// CodeInternal indicates a store or infrastructure failure.
	CodeInternal Code = "INTERNAL"
)

// Error is a categorized domain error. It propagates unchanged from the
// point of detection to the API boundary.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a CodeValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// BadCredentials builds a CodeBadCredentials error. The message is fixed so
// that unknown-email and wrong-password failures are indistinguishable.
func BadCredentials() *Error {
	return &Error{Code: CodeBadCredentials, Message: "invalid credentials"}
}

// Forbidden builds a CodeForbidden error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a CodeNotFound error for the given entity kind and id.
func NotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", kind, id)}
}

// Duplicate builds a CodeDuplicate error.
func Duplicate(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicate, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a store failure. The cause is kept for logs but the message
// shown outward stays generic.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}

// CodeOf extracts the Code from err, unwrapping as needed. Errors outside
// the taxonomy report CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is a CodeNotFound domain error.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsDuplicate reports whether err is a CodeDuplicate domain error.
func IsDuplicate(err error) bool { return is(err, CodeDuplicate) }

func is(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
