package domain

import (
	"crypto/rand"
	"encoding/json"
	"regexp"
	"strings"
)

const (
	// MachineTokenPrefix marks credentials issued to machines.
	MachineTokenPrefix = "mch_"
	// OrganizationTokenPrefix marks organization-scoped API credentials.
	OrganizationTokenPrefix = "org_"

	credentialSecretLength = 32
	credentialAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	credentialVisibleChars = 4
)

var credentialSecretPattern = regexp.MustCompile(`^[A-Za-z0-9-]{32,40}$`)

// MachineCredential is an opaque API secret. String masks it; Value exposes it.
type MachineCredential struct {
	value string
}

// GenerateMachineCredential draws a fresh secret from crypto/rand under the given prefix.
func GenerateMachineCredential(prefix string) MachineCredential {
	const limit = 256 - 256%len(credentialAlphabet)
	secret := make([]byte, 0, credentialSecretLength)
	buf := make([]byte, credentialSecretLength*2)
	for len(secret) < credentialSecretLength {
		// crypto/rand.Read never fails on supported platforms.
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			secret = append(secret, credentialAlphabet[int(b)%len(credentialAlphabet)])
			if len(secret) == credentialSecretLength {
				break
			}
		}
	}
	return MachineCredential{value: prefix + string(secret)}
}

// ParseMachineCredential validates a stored or presented credential.
func ParseMachineCredential(raw string) (MachineCredential, error) {
	const op = "credential.parse"
	if raw == "" {
		return MachineCredential{}, NullArgument(op, "credential")
	}
	var secret string
	switch {
	case strings.HasPrefix(raw, MachineTokenPrefix):
		secret = strings.TrimPrefix(raw, MachineTokenPrefix)
	case strings.HasPrefix(raw, OrganizationTokenPrefix):
		secret = strings.TrimPrefix(raw, OrganizationTokenPrefix)
	default:
		return MachineCredential{}, InvalidArgument(op, "credential", "unknown credential prefix")
	}
	if !credentialSecretPattern.MatchString(secret) {
		return MachineCredential{}, InvalidArgument(op, "credential", "credential must carry 32-40 alphanumeric or dash characters")
	}
	return MachineCredential{value: raw}, nil
}

// Value returns the exact secret for storage and comparison.
func (c MachineCredential) Value() string { return c.value }

// IsZero reports whether c was never constructed.
func (c MachineCredential) IsZero() bool { return c.value == "" }

// Equal compares exact values.
func (c MachineCredential) Equal(other MachineCredential) bool { return c.value == other.value }

// String renders the prefix and a few leading secret characters, masking the rest.
func (c MachineCredential) String() string {
	if c.value == "" {
		return ""
	}
	prefix := MachineTokenPrefix
	if strings.HasPrefix(c.value, OrganizationTokenPrefix) {
		prefix = OrganizationTokenPrefix
	}
	secret := strings.TrimPrefix(c.value, prefix)
	if len(secret) > credentialVisibleChars {
		secret = secret[:credentialVisibleChars]
	}
	return prefix + secret + "********"
}

// GoString keeps %#v from leaking the secret.
func (c MachineCredential) GoString() string { return c.String() }

// MarshalJSON renders the masked form.
func (c MachineCredential) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
