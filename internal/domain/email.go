package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const maxEmailLength = 255

var validate = validator.New()

// Email is a trimmed, lower-cased address.
type Email struct {
	value string
}

// NewEmail normalizes and validates raw.
func NewEmail(raw string) (Email, error) {
	const op = "email.new"
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, InvalidArgument(op, "email", "email is required")
	}
	if utf8.RuneCountInString(normalized) > maxEmailLength {
		return Email{}, InvalidArgument(op, "email", "email must be at most 255 characters")
	}
	if err := validate.Var(normalized, "email"); err != nil {
		return Email{}, InvalidArgument(op, "email", "email format is invalid")
	}
	return Email{value: normalized}, nil
}

// String returns the normalized address.
func (e Email) String() string { return e.value }

// IsZero reports whether e was never constructed.
func (e Email) IsZero() bool { return e.value == "" }

// Equal compares normalized forms.
func (e Email) Equal(other Email) bool { return e.value == other.value }
