// Package procedure implements the change orchestration core: planning the
// minimal set of work, fanning it out across a bounded worker pool, and
// aggregating heterogeneous failures into a single actionable result.
package procedure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for recovery and reporting decisions.
type Kind string

const (
	// KindUsage indicates a malformed invocation. Usage errors fire before
	// any planning or mutation.
	KindUsage Kind = "usage"

	// KindClient indicates a remote service call failed. Client errors
	// carry the origin service tag and the affected resource identifier.
	KindClient Kind = "client"

	// KindInternal indicates the engine violated one of its own
	// preconditions, e.g. the history store was unavailable at start.
	KindInternal Kind = "internal"
)

// Well-known failure causes. Causes are machine-matchable so the diagnoser
// can pattern-match without string inspection of messages.
const (
	// CauseNotFound marks a lookup against a resource that does not exist.
	CauseNotFound = "not_found"

	// CauseAlreadyExists marks a create call that raced an external writer.
	CauseAlreadyExists = "already_exists"

	// CauseNoExternalAccess marks a remote-source failure whose root cause
	// is the executing zone lacking external network reachability.
	CauseNoExternalAccess = "no_external_access"
)

// Error is a classified error with context.
type Error struct {
	// Kind is the error classification.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Service is the origin service tag for client errors.
	Service string

	// Resource is the resource identifier the error pertains to.
	Resource string

	// Cause is an optional machine-matchable root-cause tag.
	Cause string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if e.Service != "" {
		fmt.Fprintf(&b, " (service=%s", e.Service)
		if e.Resource != "" {
			fmt.Fprintf(&b, ", resource=%s", e.Resource)
		}
		b.WriteString(")")
	} else if e.Resource != "" {
		fmt.Fprintf(&b, " (resource=%s)", e.Resource)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two classified errors match
// when their kind and cause agree.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Cause == t.Cause
}

// NewUsageError creates a usage error.
func NewUsageError(message string) *Error {
	return &Error{Kind: KindUsage, Message: message}
}

// NewClientError creates a client error originating from the named service.
func NewClientError(service, message string, err error) *Error {
	return &Error{Kind: KindClient, Service: service, Message: message, Err: err}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// WithResource adds the affected resource identifier.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// WithCause adds a machine-matchable root-cause tag.
func (e *Error) WithCause(cause string) *Error {
	e.Cause = cause
	return e
}

// IsUsage reports whether err is classified as a usage error.
func IsUsage(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindUsage
}

// IsClient reports whether err is classified as a client error.
func IsClient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindClient
}

// IsInternal reports whether err is classified as an internal error.
func IsInternal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInternal
}

// IsNotFound reports whether err carries the not-found cause.
func IsNotFound(err error) bool {
	return CauseOf(err) == CauseNotFound
}

// CauseOf extracts the root-cause tag from an error chain, or "" when the
// chain carries no classified error.
func CauseOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Cause
	}
	return ""
}

// ResourceOf extracts the resource identifier from an error chain.
func ResourceOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Resource
	}
	return ""
}

// TagResource ensures the error chain carries a resource identifier,
// wrapping unclassified errors as client errors.
func TagResource(err error, resource string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Resource == "" {
			e.Resource = resource
		}
		return err
	}
	return NewClientError("", err.Error(), err).WithResource(resource)
}

// MultiError is the composite failure of two or more independent work units.
// Member order is completion order, not submission order.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	msgs := make([]string, 0, len(m.Errors))
	for _, err := range m.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d errors occurred: %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the member errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Aggregate reduces collected failures to the run-level result: nil for
// none, the sole error verbatim for one, a MultiError for two or more.
// The slice is not copied; callers must not append after resolving.
func Aggregate(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultiError{Errors: errs}
	}
}
