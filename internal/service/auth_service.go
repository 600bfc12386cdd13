package service

import (
	"context"
	"errors"

	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// AuthService coordinates registration, login and token refresh.
type AuthService struct {
	store    repository.Store
	users    *UserService
	tokenMgr *auth.TokenManager
	hasher   *auth.PasswordHasher
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Store        repository.Store
	Users        *UserService
	TokenManager *auth.TokenManager
	Hasher       *auth.PasswordHasher
}

// RegisterInput is the public sign-up payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

// AuthResult pairs an account with freshly issued tokens.
type AuthResult struct {
	User   *domain.User
	Tokens *domain.TokenPair
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewPasswordHasher(0)
	}
	return &AuthService{
		store:    deps.Store,
		users:    deps.Users,
		tokenMgr: deps.TokenManager,
		hasher:   hasher,
	}
}

// Register creates a technician account. Privileged roles are created by an
// administrator through the user endpoints.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if input.Role != "" && input.Role != domain.RoleTechnician {
		return nil, apperrors.NewForbidden("self-registration is limited to the TECNICO role")
	}
	user, err := s.users.Create(ctx, UserCreateInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
		Role:     domain.RoleTechnician,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, storeError(resourceUser, err)
	}
	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !ok {
		return nil, errInvalidCredentials()
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("user is inactive")
	}
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokenMgr.ParseToken(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired refresh token")
	}
	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, storeError(resourceUser, err)
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("user is inactive")
	}
	return s.issue(user)
}

// Me returns the account behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(user.PasswordHash, currentPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !ok {
		return errInvalidCredentials()
	}
	_, err = s.users.Update(ctx, user.ID, UserPatch{Password: &newPassword}, actor)
	return err
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	pair, err := s.tokenMgr.GeneratePair(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

func errInvalidCredentials() error {
	return apperrors.NewUnauthorized("invalid credentials")
}
