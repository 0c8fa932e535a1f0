// Package errors carries a stable error code from the service layer to the
// HTTP boundary, where the code alone decides status and public wording.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP. For client errors the message
// given at the call site is shown; server errors only ever show PublicMessage.
type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	ShowMessage    bool
	DetailsAllowed bool
	Retryable      bool
}

var table = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, "invalid request", true, true, false},
	CodeUnauthorized:  {http.StatusUnauthorized, "authentication failed", true, false, false},
	CodeForbidden:     {http.StatusForbidden, "access denied", true, false, false},
	CodeNotFound:      {http.StatusNotFound, "resource not found", true, false, false},
	CodeConflict:      {http.StatusConflict, "resource already exists", true, false, false},
	CodeStateConflict: {http.StatusConflict, "resource changed concurrently", true, true, false},
	CodeIdempotency:   {http.StatusConflict, "idempotency key reused", true, true, false},
	CodeRateLimit:     {http.StatusTooManyRequests, "too many requests", true, false, true},
	CodeInternal:      {http.StatusInternalServerError, "internal server error", false, false, true},
	CodeDependency:    {http.StatusBadGateway, "upstream service unavailable", false, false, true},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := table[code]; ok {
		return m
	}
	return table[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is and errors.As. A nil err is
// the same as New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// WithDetails attaches a payload that is only sent for codes whose
// Metadata allows details.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return string(e.code) + ": " + e.message + ": " + e.cause.Error()
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
