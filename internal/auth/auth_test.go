package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/daniel-kazarnowicz-baumalog/flowertrack/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "flowertrack", 15)
	userID := uuid.New()
	orgID := uuid.New()

	token, expiresAt, err := tm.GenerateToken(userID, RoleClient, &orgID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) > 15*time.Minute {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}
	principal, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if principal.UserID != userID || principal.Role != RoleClient || principal.OrganizationID == nil || *principal.OrganizationID != orgID {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if !principal.CanAccessOrganization(orgID) || principal.CanAccessOrganization(uuid.New()) {
		t.Fatalf("client must be bound to its organization")
	}
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", "flowertrack", 15)
	token, _, err := tm.GenerateToken(uuid.New(), RoleAdmin, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewTokenManager("other", "flowertrack", 15).ParseToken(token); err == nil {
		t.Fatalf("wrong secret must fail")
	}
	if _, err := NewTokenManager("secret", "someone-else", 15).ParseToken(token); err == nil {
		t.Fatalf("wrong issuer must fail")
	}

	expired := NewTokenManager("secret", "flowertrack", 15)
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := expired.ParseToken(token); err == nil {
		t.Fatalf("expired token must fail")
	}

	if _, _, err := tm.GenerateToken(uuid.Nil, RoleAdmin, nil); err == nil {
		t.Fatalf("nil user must fail")
	}
	if _, _, err := tm.GenerateToken(uuid.New(), Role("ROOT"), nil); err == nil {
		t.Fatalf("unknown role must fail")
	}
}

func newTestApp(tm *TokenManager, roles ...Role) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			mapped := apperrors.ToDomainError(err)
			return c.Status(mapped.HTTPStatus).SendString(mapped.Code)
		},
	})
	app.Get("/", NewAuthMiddleware(tm).Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(string(principal.Role))
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", "flowertrack", 15)
	admin, _, _ := tm.GenerateToken(uuid.New(), RoleAdmin, nil)
	tech, _, _ := tm.GenerateToken(uuid.New(), RoleTechnician, nil)
	app := newTestApp(tm, RoleAdmin)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + tech, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}
