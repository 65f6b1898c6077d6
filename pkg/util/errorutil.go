package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

// DomainError standardizes application errors at the HTTP boundary.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

var kindStatus = map[domain.Kind]struct {
	code   string
	status int
}{
	domain.KindNullArgument:        {"VALIDATION_FAILED", http.StatusBadRequest},
	domain.KindInvalidArgument:     {"VALIDATION_FAILED", http.StatusBadRequest},
	domain.KindInvalidOperation:    {"INVALID_OPERATION", http.StatusConflict},
	domain.KindDomainRuleViolation: {"DOMAIN_RULE_VIOLATION", http.StatusUnprocessableEntity},
	domain.KindConcurrencyConflict: {"CONCURRENCY_CONFLICT", http.StatusConflict},
	domain.KindNotFound:            {"NOT_FOUND", http.StatusNotFound},
}

// ToDomainError converts any error to a DomainError. Unknown errors become INTERNAL_ERROR.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var faultErr *domain.Error
	if errors.As(err, &faultErr) {
		mapped, ok := kindStatus[faultErr.Kind]
		if !ok {
			return NewInternalError(err)
		}
		var details map[string]any
		if faultErr.Field != "" {
			details = map[string]any{"field": faultErr.Field}
		}
		message := faultErr.Message
		if message == "" {
			message = http.StatusText(mapped.status)
		}
		return &DomainError{
			Code:       mapped.code,
			Message:    message,
			HTTPStatus: mapped.status,
			Details:    details,
			Err:        err,
		}
	}
	return NewInternalError(err)
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
