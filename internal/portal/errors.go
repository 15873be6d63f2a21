package portal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPage is a markup contract violation: the page did not have the
// shape the parser expects. It is reported as-is and is not a portal failure.
var ErrMalformedPage = errors.New("page does not match the portal markup")

// ErrorCode identifies a failure reported by the portal itself.
type ErrorCode string

const (
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeSystemError        ErrorCode = "SYSTEM_ERROR"
	CodeUnknownSystemError ErrorCode = "UNKNOWN_SYSTEM_ERROR"
	CodeEvaluationRequired ErrorCode = "EVALUATION_REQUIRED"
)

// Sentinels for errors.Is. Matching is by code, so a SystemError carrying a
// message still matches ErrSystem.
var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrSystem             = &Error{Code: CodeSystemError, Message: "portal reported an error"}
	ErrUnknownSystem      = &Error{Code: CodeUnknownSystemError, Message: "portal returned an unrecognized failure page"}
	ErrEvaluationRequired = &Error{Code: CodeEvaluationRequired, Message: "course evaluation required"}
)

// Error is a typed portal failure.
//
// Message and Details carry the portal's own text for SYSTEM_ERROR. URL and
// Courses are set for EVALUATION_REQUIRED.
type Error struct {
	Code    ErrorCode
	Message string
	Details string
	URL     string
	Courses []string
}

// Error implements the error interface
func (e *Error) Error() string {
	switch e.Code {
	case CodeSystemError:
		if e.Details != "" {
			return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
		}
	case CodeEvaluationRequired:
		if e.URL != "" {
			return fmt.Sprintf("%s: complete the evaluation at %s (pending: %s)",
				e.Code, e.URL, strings.Join(e.Courses, ", "))
		}
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is a portal error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewSystemError carries the portal's heading and detail text verbatim.
func NewSystemError(message, details string) *Error {
	return &Error{
		Code:    CodeSystemError,
		Message: message,
		Details: details,
	}
}

// NewEvaluationRequired reports that transcript data is blocked until the
// listed courses are evaluated at url.
func NewEvaluationRequired(url string, courses []string) *Error {
	return &Error{
		Code:    CodeEvaluationRequired,
		Message: "course evaluation required",
		URL:     url,
		Courses: courses,
	}
}

// CodeOf extracts the portal error code from err, or "" if err is not a
// portal failure.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
