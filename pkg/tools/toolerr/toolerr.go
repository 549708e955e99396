// Package toolerr defines the error taxonomy surfaced by tool execution.
//
// Every error a tool handler returns ends up classified as one of the kinds
// below. The orchestrator attaches the kind to the failed tool invocation so
// clients can render it without parsing message text.
package toolerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a tool failure.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindUpstream      Kind = "upstream"
	KindDomain        Kind = "domain"
	KindUserCancelled Kind = "user_cancelled"
	KindInternal      Kind = "internal"
)

// ValidationError reports malformed tool arguments. Field is a dotted path
// into the input object ("recipients[2].amount"); it is empty when the input
// as a whole is malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Validation is a shorthand for &ValidationError{Field: field, Reason: ...}.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a failed call to an external service. Status is the
// HTTP status code, or zero for transport failures and timeouts.
type UpstreamError struct {
	Service string
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %d %s: %v", e.Service, e.Status, http.StatusText(e.Status), e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %d %s", e.Service, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return e.Service + ": request failed"
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// DomainError reports a business-rule violation local to a tool.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }

// Domain builds a DomainError with a formatted message.
func Domain(format string, args ...any) *DomainError {
	return &DomainError{Msg: fmt.Sprintf(format, args...)}
}

// UserCancelled reports that the user rejected a signing request in the
// wallet.
type UserCancelled struct {
	TxID string
}

func (e *UserCancelled) Error() string { return "transaction rejected in wallet" }

// ExecutionError wraps any error raised by a tool handler.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Kind reports the taxonomy kind of the wrapped error.
func (e *ExecutionError) Kind() Kind { return KindOf(e.Err) }

// KindOf classifies err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	var (
		ve *ValidationError
		ue *UpstreamError
		de *DomainError
		uc *UserCancelled
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &uc):
		return KindUserCancelled
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &de):
		return KindDomain
	case errors.As(err, &ue):
		return KindUpstream
	}
	return KindInternal
}

// IsNotFound reports whether err is an UpstreamError with status 404.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}
