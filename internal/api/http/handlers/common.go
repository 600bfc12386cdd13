package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/domain"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxPage         = 1_000_000
)

type validatable interface {
	Validate() error
}

// decode parses the JSON body into req and validates its shape.
func decode(c *fiber.Ctx, req validatable) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return req.Validate()
}

func actor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{"param": name})
	}
	return id, nil
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}

func queryInt64(c *fiber.Ctx, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.NewValidationError(name+" must be an integer", map[string]any{"param": name})
	}
	return &v, nil
}

// queryDate accepts RFC3339 or YYYY-MM-DD. A bare end date covers the whole day.
func queryDate(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperrors.NewValidationError(name+" must be RFC3339 or YYYY-MM-DD", map[string]any{"param": name})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// pagination maps page/page_size to limit/offset. Without either parameter
// the listing is unbounded. Pages past maxPage are rejected so the offset
// cannot overflow.
func pagination(c *fiber.Ctx) (limit, offset int, err error) {
	if c.Query("page") == "" && c.Query("page_size") == "" {
		return 0, 0, nil
	}
	page := parseInt(c.Query("page"), 1)
	if page > maxPage {
		return 0, 0, apperrors.NewValidationError(fmt.Sprintf("page must be at most %d", maxPage), map[string]any{"param": "page"})
	}
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize, nil
}
