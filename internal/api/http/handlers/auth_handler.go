package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dicri/evidence-service/internal/api/dto"
	"github.com/dicri/evidence-service/internal/service"
)

// AuthHandler exposes sign-up, login and token endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Register(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewAuthResponse(result))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAuthResponse(result))
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAuthResponse(result))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), act.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), act, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
