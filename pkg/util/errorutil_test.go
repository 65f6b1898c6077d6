package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

func TestToDomainErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"null argument", domain.NullArgument("op", "ticket_number"), "VALIDATION_FAILED", http.StatusBadRequest},
		{"invalid argument", domain.InvalidArgument("op", "title", "too long"), "VALIDATION_FAILED", http.StatusBadRequest},
		{"invalid operation", domain.InvalidOperation("op", "already suspended"), "INVALID_OPERATION", http.StatusConflict},
		{"rule violation", domain.RuleViolation("op", "not in alarm"), "DOMAIN_RULE_VIOLATION", http.StatusUnprocessableEntity},
		{"conflict", domain.ConcurrencyConflict("op", "stale", nil), "CONCURRENCY_CONFLICT", http.StatusConflict},
		{"not found", domain.NotFound("op", "ticket"), "NOT_FOUND", http.StatusNotFound},
		{"wrapped", fmt.Errorf("service: %w", domain.NotFound("op", "machine")), "NOT_FOUND", http.StatusNotFound},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			if got.Code != tc.code || got.HTTPStatus != tc.status {
				t.Fatalf("got %s/%d, want %s/%d", got.Code, got.HTTPStatus, tc.code, tc.status)
			}
		})
	}
}

func TestToDomainErrorKeepsField(t *testing.T) {
	got := ToDomainError(domain.InvalidArgument("organization.create", "email", "invalid email"))
	if got.Details["field"] != "email" || got.Message != "invalid email" {
		t.Fatalf("unexpected mapping %+v", got)
	}
}

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewForbidden("nope")
	if got := ToDomainError(original); got != original {
		t.Fatalf("DomainError should pass through unchanged")
	}
	if MapError(nil) != nil || ToDomainError(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
