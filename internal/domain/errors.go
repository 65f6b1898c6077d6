package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies domain faults independently of any transport.
type Kind string

const (
	KindNullArgument        Kind = "null_argument"
	KindInvalidArgument     Kind = "invalid_argument"
	KindInvalidOperation    Kind = "invalid_operation"
	KindDomainRuleViolation Kind = "domain_rule_violation"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindNotFound            Kind = "not_found"
)

// Error is the fault returned by aggregate operations and the persistence boundary.
type Error struct {
	Kind    Kind
	Op      string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	fmt.Fprintf(&b, " (%s)", e.Kind)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, field, message string) error {
	return &Error{Kind: kind, Op: op, Field: field, Message: message}
}

// NullArgument reports a required input that was absent.
func NullArgument(op, field string) error {
	return newError(KindNullArgument, op, field, "value is required")
}

// InvalidArgument reports an input that fails a format, length or range check.
func InvalidArgument(op, field, message string) error {
	return newError(KindInvalidArgument, op, field, message)
}

// InvalidOperation reports a state that does not permit the requested change.
func InvalidOperation(op, message string) error {
	return newError(KindInvalidOperation, op, "", message)
}

// RuleViolation reports a business rule blocking an otherwise well-formed change.
func RuleViolation(op, message string) error {
	return newError(KindDomainRuleViolation, op, "", message)
}

// ConcurrencyConflict is raised by the persistence boundary on a stale version.
func ConcurrencyConflict(op, message string, cause error) error {
	return &Error{Kind: KindConcurrencyConflict, Op: op, Message: message, Err: cause}
}

// NotFound is raised by the persistence boundary when an aggregate does not exist.
func NotFound(op, resource string) error {
	return newError(KindNotFound, op, "", resource+" not found")
}

// IsKind reports whether err, or any error it wraps, is a domain fault of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the fault kind, or "" for non-domain errors.
func KindOf(err error) Kind {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return ""
	}
	return domainErr.Kind
}
