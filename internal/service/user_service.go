package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/config"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// UserService manages accounts.
type UserService struct {
	store  repository.Store
	hasher *auth.PasswordHasher
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store  repository.Store
	Hasher *auth.PasswordHasher
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

// UserPatch is a partial account update.
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
	FullName *string
	Role     *domain.Role
	IsActive *bool
}

// UserFilter narrows listings.
type UserFilter struct {
	Role     *domain.Role
	IsActive *bool
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewPasswordHasher(0)
	}
	return &UserService{store: deps.Store, hasher: hasher}
}

// Create registers an account with a hashed password.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	user := &domain.User{
		Username: strings.TrimSpace(input.Username),
		Email:    normalizeEmail(input.Email),
		FullName: strings.TrimSpace(input.FullName),
		Role:     input.Role,
		IsActive: true,
	}
	if user.Username == "" {
		return nil, apperrors.NewInvalidInput("username", "username is required")
	}
	if user.Email == "" {
		return nil, apperrors.NewInvalidInput("email", "email is required")
	}
	if user.FullName == "" {
		return nil, apperrors.NewInvalidInput("full_name", "full name is required")
	}
	if !user.Role.Valid() {
		return nil, apperrors.NewInvalidInput("role", "unknown role")
	}
	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := ensureEmailAvailable(ctx, tx, user.Email, 0); err != nil {
			return err
		}
		if err := ensureUsernameAvailable(ctx, tx, user.Username, 0); err != nil {
			return err
		}
		return userWriteError(tx.Users().Create(ctx, user))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns accounts, newest first.
func (s *UserService) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewInvalidInput("role", "unknown role")
	}
	users, err := s.store.Users().List(ctx, repository.UserFilter{Role: filter.Role, IsActive: filter.IsActive})
	if err != nil {
		return nil, storeError(resourceUser, err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// GetByID returns one account.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(resourceUser, id)
		}
		return nil, storeError(resourceUser, err)
	}
	return user, nil
}

// Update applies a partial patch. Email and username uniqueness is re-checked
// only when they change.
func (s *UserService) Update(ctx context.Context, id int64, patch UserPatch, actor domain.Actor) (*domain.User, error) {
	var user *domain.User
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(resourceUser, id)
			}
			return storeError(resourceUser, err)
		}
		user = current

		if patch.Username != nil {
			username := strings.TrimSpace(*patch.Username)
			if username == "" {
				return apperrors.NewInvalidInput("username", "username cannot be empty")
			}
			if username != user.Username {
				if err := ensureUsernameAvailable(ctx, tx, username, user.ID); err != nil {
					return err
				}
				user.Username = username
			}
		}
		if patch.Email != nil {
			email := normalizeEmail(*patch.Email)
			if email == "" {
				return apperrors.NewInvalidInput("email", "email cannot be empty")
			}
			if email != user.Email {
				if err := ensureEmailAvailable(ctx, tx, email, user.ID); err != nil {
					return err
				}
				user.Email = email
			}
		}
		if patch.FullName != nil {
			fullName := strings.TrimSpace(*patch.FullName)
			if fullName == "" {
				return apperrors.NewInvalidInput("full_name", "full name cannot be empty")
			}
			user.FullName = fullName
		}
		if patch.Role != nil {
			if !patch.Role.Valid() {
				return apperrors.NewInvalidInput("role", "unknown role")
			}
			if user.ID == actor.ID && *patch.Role != user.Role {
				return apperrors.NewPreconditionFailed("self_role_change", "administrators cannot change their own role")
			}
			user.Role = *patch.Role
		}
		if patch.IsActive != nil {
			if user.ID == actor.ID && !*patch.IsActive {
				return apperrors.NewPreconditionFailed("self_deactivation", "administrators cannot deactivate their own account")
			}
			user.IsActive = *patch.IsActive
		}
		if patch.Password != nil {
			hash, err := s.hashPassword(*patch.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		return userWriteError(tx.Users().Update(ctx, user))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate soft-deletes an account.
func (s *UserService) Deactivate(ctx context.Context, id int64, actor domain.Actor) error {
	inactive := false
	_, err := s.Update(ctx, id, UserPatch{IsActive: &inactive}, actor)
	return err
}

// EnsureAdmin seeds the first administrator when no account exists. It
// reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if strings.TrimSpace(cfg.AdminEmail) == "" || cfg.AdminPassword == "" {
		return false, nil
	}
	count, err := s.store.Users().Count(ctx)
	if err != nil {
		return false, storeError(resourceUser, err)
	}
	if count > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, UserCreateInput{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) hashPassword(plain string) (string, error) {
	if len(plain) < auth.MinPasswordLength {
		return "", apperrors.NewInvalidInput("password", "password must be at least 8 characters")
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func ensureEmailAvailable(ctx context.Context, tx repository.Store, email string, selfID int64) error {
	existing, err := tx.Users().GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewDuplicate(resourceUser, map[string]any{"field": "email", "value": email})
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return storeError(resourceUser, err)
	}
}

func ensureUsernameAvailable(ctx context.Context, tx repository.Store, username string, selfID int64) error {
	existing, err := tx.Users().GetByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewDuplicate(resourceUser, map[string]any{"field": "username", "value": username})
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return storeError(resourceUser, err)
	}
}

// userWriteError covers the race between the availability checks and the
// unique indexes.
func userWriteError(err error) error {
	return storeError(resourceUser, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
