package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/daniel-kazarnowicz-baumalog/flowertrack/pkg/util"
)

// Role is the caller's permission level.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
	RoleClient     Role = "CLIENT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleClient:
		return true
	}
	return false
}

// RequireRole ensures the principal has one of the allowed roles. No roles means any authenticated caller.
func RequireRole(allowed ...Role) fiber.Handler {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
