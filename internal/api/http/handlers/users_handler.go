package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dicri/evidence-service/internal/api/dto"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/service"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// UsersHandler exposes account administration.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewUserResponse(user))
}

// List handles GET /api/users?role=&is_active=.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	var filter service.UserFilter
	if raw := c.Query("role"); raw != "" {
		role := domain.Role(raw)
		filter.Role = &role
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewValidationError("is_active must be a boolean", map[string]any{"param": "is_active"})
		}
		filter.IsActive = &active
	}
	users, err := h.users.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserListResponse(users))
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), id, req.Patch(), act)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Deactivate handles DELETE /api/users/:id. Accounts are never removed.
func (h *UsersHandler) Deactivate(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Deactivate(c.UserContext(), id, act); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
