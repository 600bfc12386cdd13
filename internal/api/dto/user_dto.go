package dto

import (
	"time"

	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/service"
)

// RegisterRequest payload for public sign-up.
type RegisterRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// Validate checks the request shape.
func (r *RegisterRequest) Validate() error {
	f := fieldErrors{}
	validateUsername(f, r.Username)
	if f.required("email", r.Email) {
		f.email("email", r.Email)
	}
	if f.required("password", r.Password) {
		f.length("password", r.Password, auth.MinPasswordLength, 0)
		f.strongPassword("password", r.Password)
	}
	if f.required("full_name", r.FullName) {
		f.length("full_name", r.FullName, 3, 255)
	}
	if r.Role != "" {
		f.role("role", r.Role)
	}
	return f.err()
}

// Input converts the request to the service input.
func (r *RegisterRequest) Input() service.RegisterInput {
	return service.RegisterInput{Username: r.Username, Email: r.Email, Password: r.Password, FullName: r.FullName, Role: r.Role}
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request shape.
func (r *LoginRequest) Validate() error {
	f := fieldErrors{}
	if f.required("email", r.Email) {
		f.email("email", r.Email)
	}
	f.required("password", r.Password)
	return f.err()
}

// RefreshRequest payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate checks the request shape.
func (r *RefreshRequest) Validate() error {
	f := fieldErrors{}
	f.required("refresh_token", r.RefreshToken)
	return f.err()
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate checks the request shape.
func (r *ChangePasswordRequest) Validate() error {
	f := fieldErrors{}
	f.required("current_password", r.CurrentPassword)
	if f.required("new_password", r.NewPassword) {
		f.length("new_password", r.NewPassword, auth.MinPasswordLength, 0)
		f.strongPassword("new_password", r.NewPassword)
	}
	return f.err()
}

// CreateUserRequest payload for administrator-created accounts.
type CreateUserRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// Validate checks the request shape.
func (r *CreateUserRequest) Validate() error {
	f := fieldErrors{}
	validateUsername(f, r.Username)
	if f.required("email", r.Email) {
		f.email("email", r.Email)
	}
	if f.required("password", r.Password) {
		f.length("password", r.Password, auth.MinPasswordLength, 0)
	}
	if f.required("full_name", r.FullName) {
		f.length("full_name", r.FullName, 3, 255)
	}
	f.role("role", r.Role)
	return f.err()
}

// Input converts the request to the service input.
func (r *CreateUserRequest) Input() service.UserCreateInput {
	return service.UserCreateInput{Username: r.Username, Email: r.Email, Password: r.Password, FullName: r.FullName, Role: r.Role}
}

// UpdateUserRequest is a partial account update.
type UpdateUserRequest struct {
	Username *string      `json:"username"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	FullName *string      `json:"full_name"`
	Role     *domain.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// Validate checks the request shape.
func (r *UpdateUserRequest) Validate() error {
	f := fieldErrors{}
	if r.Username != nil {
		validateUsername(f, *r.Username)
	}
	if r.Email != nil {
		f.email("email", *r.Email)
	}
	if r.Password != nil {
		f.length("password", *r.Password, auth.MinPasswordLength, 0)
	}
	if r.FullName != nil {
		f.length("full_name", *r.FullName, 3, 255)
	}
	if r.Role != nil {
		f.role("role", *r.Role)
	}
	return f.err()
}

// Patch converts the request to the service patch.
func (r *UpdateUserRequest) Patch() service.UserPatch {
	return service.UserPatch{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		Role:     r.Role,
		IsActive: r.IsActive,
	}
}

func validateUsername(f fieldErrors, username string) {
	if f.required("username", username) {
		f.length("username", username, 3, 100)
		f.pattern("username", username, usernamePattern, "letters, digits and underscores")
	}
}

// UserResponse is the public account projection.
type UserResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	FullName  string      `json:"full_name"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewUserResponse maps an account; the password hash never leaves the service.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserListResponse maps a listing.
func NewUserListResponse(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User             UserResponse `json:"user"`
	AccessToken      string       `json:"access_token"`
	RefreshToken     string       `json:"refresh_token"`
	TokenType        string       `json:"token_type"`
	ExpiresAt        time.Time    `json:"expires_at"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
}

// NewAuthResponse maps a login result.
func NewAuthResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		User:             NewUserResponse(result.User),
		AccessToken:      result.Tokens.AccessToken,
		RefreshToken:     result.Tokens.RefreshToken,
		TokenType:        "Bearer",
		ExpiresAt:        result.Tokens.AccessExpiresAt,
		RefreshExpiresAt: result.Tokens.RefreshExpiresAt,
	}
}
