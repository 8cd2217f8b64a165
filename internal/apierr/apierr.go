// Package apierr defines the uniform error shape returned by every task
// submission adapter, whatever the underlying cause.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindRemote     Kind = "remote"
	KindTimeout    Kind = "timeout"
	KindExtraction Kind = "extraction"
	KindUnknown    Kind = "unknown"
)

// Machine codes carried by Error.Code.
const (
	CodeNoResponse = 0
	CodeValidation = 400
	CodeTimeout    = 408
	CodeInternal   = 500
	CodeExtraction = 502
)

// DefaultMessage is used whenever the underlying cause carries no message.
const DefaultMessage = "unknown error"

// Error is the ApiError of the task pipeline: {code, message, details?}.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Status is the remote task status that caused a remote failure, if any.
	Status  string      `json:"status,omitempty"`
	Details interface{} `json:"details,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s error (code=%d, status=%s): %s", e.Kind, e.Code, e.Status, e.message())
	}
	return fmt.Sprintf("%s error (code=%d): %s", e.Kind, e.Code, e.message())
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) message() string {
	if strings.TrimSpace(e.Message) == "" {
		return DefaultMessage
	}
	return e.Message
}

// IsValidation reports whether the request never reached the network.
func (e *Error) IsValidation() bool { return e.Kind == KindValidation }

// IsNetwork reports whether the transport failed.
func (e *Error) IsNetwork() bool { return e.Kind == KindNetwork }

// IsRemote reports whether the remote service reported a failure.
func (e *Error) IsRemote() bool { return e.Kind == KindRemote }

// IsTimeout reports whether the attempt budget ran out.
func (e *Error) IsTimeout() bool { return e.Kind == KindTimeout }

// IsExtraction reports whether a successful status carried an unusable payload.
func (e *Error) IsExtraction() bool { return e.Kind == KindExtraction }

// Retryable reports whether resubmitting the same parameters may succeed.
// Validation failures and remote content rejections need different input.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindExtraction, KindUnknown:
		return true
	case KindRemote:
		return e.Status != "SENSITIVE_WORD_ERROR"
	}
	return false
}

// Validation builds a validation error from a field → failed rule map.
func Validation(fields map[string]string) *Error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msg := "validation failed"
	if len(names) > 0 {
		msg = fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
	}
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: msg,
		Details: fields,
	}
}

// Network wraps a transport failure. code is the HTTP status when a response
// was received, CodeNoResponse otherwise.
func Network(code int, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Kind:    KindNetwork,
		Code:    code,
		Message: nonEmpty(msg, "network request failed"),
		cause:   err,
	}
}

// Remote builds an error from a non-success remote envelope code.
func Remote(code int, msg string) *Error {
	if code == 0 {
		code = CodeInternal
	}
	return &Error{
		Kind:    KindRemote,
		Code:    code,
		Message: nonEmpty(msg, fmt.Sprintf("remote service returned code %d", code)),
	}
}

// RemoteStatus builds an error from a terminal failure status. The remote
// message is preferred when present.
func RemoteStatus(status, msg string) *Error {
	return &Error{
		Kind:    KindRemote,
		Code:    CodeInternal,
		Status:  status,
		Message: nonEmpty(msg, fmt.Sprintf("processing failed: %s", status)),
	}
}

// Timeout builds an error for an exhausted attempt budget.
func Timeout(attempts int, cause error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Code:    CodeTimeout,
		Message: fmt.Sprintf("task did not finish after %d status checks, try again later", attempts),
		cause:   cause,
	}
}

// Extraction builds an error for a successful status with missing mandatory
// fields.
func Extraction(field string) *Error {
	return &Error{
		Kind:    KindExtraction,
		Code:    CodeExtraction,
		Message: fmt.Sprintf("result is missing required field %q", field),
		Details: map[string]string{"field": field},
	}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// From maps any error onto an *Error. A nil error maps to nil.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Network(CodeNoResponse, err)
	}
	return &Error{
		Kind:    KindUnknown,
		Code:    CodeInternal,
		Message: nonEmpty(err.Error(), DefaultMessage),
		cause:   err,
	}
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
