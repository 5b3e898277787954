// Package apperr defines the error model for outbound requests: canonical
// codes, the upstream HTTP status when one was received, and the request that
// failed. Every failure surfaced by the http client is an *AppError.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Suggestion is a per-field hint attached to configuration validation errors.
type Suggestion struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the canonical failure shape.
type AppError struct {
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`

	// HTTPStatus is the upstream status; 0 when no response was received.
	HTTPStatus int    `json:"status,omitempty"`
	Method     string `json:"method,omitempty"`
	URL        string `json:"url,omitempty"`
	// Body is a truncated copy of a non-2xx response body.
	Body []byte `json:"-"`

	cause error
	ec    *ErrorCode
}

// New creates a new AppError from an ErrorCode. HTTPStatus is left for the
// caller since it describes the upstream response, not the code.
func New(ec *ErrorCode) *AppError {
	if ec == nil {
		ec = ErrorCodeInternal
	}
	return &AppError{
		Code:    ec.Code(),
		Message: ec.Message(),
		ec:      ec,
	}
}

// Newf creates AppError with formatted message.
func Newf(ec *ErrorCode, format string, args ...interface{}) *AppError {
	a := New(ec)
	a.Message = fmt.Sprintf(format, args...)
	return a
}

// FromStatus builds the error for a non-2xx upstream response.
func FromStatus(status int, body []byte) *AppError {
	a := New(CodeForStatus(status))
	a.HTTPStatus = status
	a.Body = body
	return a
}

// FromError wraps a generic error into AppError (internal fallback)
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return New(ErrorCodeInternal).Wrap(err)
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsStatus reports whether err carries the given upstream status.
func IsStatus(err error, status int) bool {
	ae, ok := As(err)
	return ok && ae.HTTPStatus == status
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, ec *ErrorCode) bool {
	ae, ok := As(err)
	return ok && ec != nil && ae.Code == ec.Code()
}

// AddSuggestion appends a field suggestion (fluent)
func (a *AppError) AddSuggestion(field, message string) *AppError {
	if a == nil {
		a = New(ErrorCodeInternal)
	}
	a.Suggestions = append(a.Suggestions, Suggestion{
		Field:   field,
		Message: message,
	})
	return a
}

func (a *AppError) Error() string {
	if a == nil {
		return "<nil>"
	}
	var b strings.Builder
	if a.Method != "" {
		b.WriteString(a.Method)
		b.WriteString(" ")
	}
	if a.URL != "" {
		b.WriteString(a.URL)
		b.WriteString(": ")
	}
	if a.HTTPStatus != 0 {
		fmt.Fprintf(&b, "http %d: ", a.HTTPStatus)
	}
	b.WriteString(a.Message)
	if a.cause != nil {
		b.WriteString(": ")
		b.WriteString(a.cause.Error())
	}
	return b.String()
}

// WithRequest records the request that failed and returns the same AppError.
func (a *AppError) WithRequest(method, url string) *AppError {
	if a == nil {
		a = New(ErrorCodeInternal)
	}
	a.Method = method
	a.URL = url
	return a
}

// WithMessage overrides the message and returns the same AppError for chaining.
func (a *AppError) WithMessage(msg string) *AppError {
	if a == nil {
		return New(ErrorCodeInternal).WithMessage(msg)
	}
	a.Message = msg
	return a
}

// Wrap sets the underlying cause and returns the same AppError.
func (a *AppError) Wrap(err error) *AppError {
	if a == nil {
		a = New(ErrorCodeInternal)
	}
	a.cause = err
	return a
}

// Unwrap returns the underlying cause, allowing errors.Unwrap/Is/As to work.
func (a *AppError) Unwrap() error { return a.cause }

// ErrorCode returns the code the error was built from.
func (a *AppError) ErrorCode() *ErrorCode {
	if a == nil || a.ec == nil {
		return ErrorCodeInternal
	}
	return a.ec
}

// HasErrors returns true if the AppError has a code, message, or suggestions
func (a *AppError) HasErrors() bool {
	if a == nil {
		return false
	}
	return a.Code != "" || a.Message != "" || len(a.Suggestions) > 0
}
