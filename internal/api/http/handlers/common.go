package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/api/dto"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/auth"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	apperrors "github.com/daniel-kazarnowicz-baumalog/flowertrack/pkg/util"
)

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("invalid "+name, map[string]any{"field": name})
	}
	return id, nil
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("invalid "+field, map[string]any{"field": field})
	}
	return id, nil
}

func optionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseUUID(*raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func queryList(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func queryString(c *fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

func queryTime(c *fiber.Ctx, key string) *time.Time {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func eventsResponse(events []domain.Event) []dto.EventResponse {
	out := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, dto.EventResponse{Type: string(e.EventType()), OccurredAt: e.OccurredAt()})
	}
	return out
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
