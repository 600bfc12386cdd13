package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/config"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

type UserServiceSuite struct {
	serviceSuite
	authSvc *AuthService
	tokens  *auth.TokenManager
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.tokens = auth.NewTokenManager("access-secret", "refresh-secret", 15, 60)
	s.authSvc = NewAuthService(AuthDependencies{
		Store:        s.store,
		Users:        s.users,
		TokenManager: s.tokens,
		Hasher:       auth.NewPasswordHasher(4),
	})
}

func (s *UserServiceSuite) TestCreateValidatesAndNormalizes() {
	user, err := s.users.Create(s.ctx, UserCreateInput{
		Username: "coord2",
		Email:    "  Coord2@DICRI.test ",
		Password: "password123",
		FullName: "Second Coordinator",
		Role:     domain.RoleCoordinator,
	})
	s.Require().NoError(err)
	s.Equal("coord2@dicri.test", user.Email)
	s.True(user.IsActive)
	s.NotEqual("password123", user.PasswordHash)

	_, err = s.users.Create(s.ctx, UserCreateInput{Username: "x1", Email: "x1@dicri.test", Password: "short", FullName: "X", Role: domain.RoleTechnician})
	s.requireCode(err, apperrors.CodeInvalidInput)
	_, err = s.users.Create(s.ctx, UserCreateInput{Username: "x1", Email: "x1@dicri.test", Password: "password123", FullName: "X", Role: "JEFE"})
	s.requireCode(err, apperrors.CodeInvalidInput)
	_, err = s.users.Create(s.ctx, UserCreateInput{Username: "coord2", Email: "other@dicri.test", Password: "password123", FullName: "X", Role: domain.RoleTechnician})
	s.requireCode(err, apperrors.CodeDuplicateResource)
	_, err = s.users.Create(s.ctx, UserCreateInput{Username: "other", Email: "COORD2@dicri.test", Password: "password123", FullName: "X", Role: domain.RoleTechnician})
	s.requireCode(err, apperrors.CodeDuplicateResource)
}

func (s *UserServiceSuite) TestListFilters() {
	all, err := s.users.List(s.ctx, UserFilter{})
	s.Require().NoError(err)
	s.Len(all, 4)
	s.Equal(s.admin.ID, all[0].ID)

	role := domain.RoleTechnician
	techs, err := s.users.List(s.ctx, UserFilter{Role: &role})
	s.Require().NoError(err)
	s.Len(techs, 2)

	s.Require().NoError(s.users.Deactivate(s.ctx, s.other.ID, s.admin))
	active := true
	activeTechs, err := s.users.List(s.ctx, UserFilter{Role: &role, IsActive: &active})
	s.Require().NoError(err)
	s.Require().Len(activeTechs, 1)
	s.Equal(s.owner.ID, activeTechs[0].ID)
}

func (s *UserServiceSuite) TestUpdateRechecksUniqueness() {
	_, err := s.users.Update(s.ctx, s.owner.ID, UserPatch{Email: strPtr("tecnico7@dicri.test")}, s.admin)
	s.requireCode(err, apperrors.CodeDuplicateResource)

	_, err = s.users.Update(s.ctx, s.owner.ID, UserPatch{Username: strPtr("tecnico7")}, s.admin)
	s.requireCode(err, apperrors.CodeDuplicateResource)

	same, err := s.users.Update(s.ctx, s.owner.ID, UserPatch{Email: strPtr("TECNICO5@dicri.test"), FullName: strPtr("Renamed")}, s.admin)
	s.Require().NoError(err)
	s.Equal("Renamed", same.FullName)

	role := domain.RoleCoordinator
	promoted, err := s.users.Update(s.ctx, s.owner.ID, UserPatch{Role: &role}, s.admin)
	s.Require().NoError(err)
	s.Equal(domain.RoleCoordinator, promoted.Role)

	_, err = s.users.Update(s.ctx, 999, UserPatch{}, s.admin)
	s.requireCode(err, apperrors.CodeNotFound)
}

func (s *UserServiceSuite) TestAdminCannotLockThemselvesOut() {
	s.requireCode(s.users.Deactivate(s.ctx, s.admin.ID, s.admin), apperrors.CodePreconditionFailed)

	role := domain.RoleTechnician
	_, err := s.users.Update(s.ctx, s.admin.ID, UserPatch{Role: &role}, s.admin)
	s.requireCode(err, apperrors.CodePreconditionFailed)
}

func (s *UserServiceSuite) TestEnsureAdmin() {
	fresh := NewUserService(UserDependencies{Store: repository.NewMemoryStore(), Hasher: auth.NewPasswordHasher(4)})
	cfg := config.BootstrapConfig{AdminEmail: "root@dicri.test", AdminUsername: "root", AdminPassword: "bootstrap-pass"}

	created, err := fresh.EnsureAdmin(s.ctx, config.BootstrapConfig{AdminUsername: "root"})
	s.Require().NoError(err)
	s.False(created)

	created, err = fresh.EnsureAdmin(s.ctx, cfg)
	s.Require().NoError(err)
	s.True(created)

	created, err = fresh.EnsureAdmin(s.ctx, cfg)
	s.Require().NoError(err)
	s.False(created)

	created, err = s.users.EnsureAdmin(s.ctx, cfg)
	s.Require().NoError(err)
	s.False(created)
}

func (s *UserServiceSuite) TestRegisterIsTechnicianOnly() {
	result, err := s.authSvc.Register(s.ctx, RegisterInput{
		Username: "nuevo",
		Email:    "nuevo@dicri.test",
		Password: "password123",
		FullName: "Nuevo Tecnico",
	})
	s.Require().NoError(err)
	s.Equal(domain.RoleTechnician, result.User.Role)
	s.NotEmpty(result.Tokens.AccessToken)
	s.NotEmpty(result.Tokens.RefreshToken)

	claims, err := s.tokens.ParseToken(result.Tokens.AccessToken, domain.TokenTypeAccess)
	s.Require().NoError(err)
	s.Equal(result.User.ID, claims.UserID)

	_, err = s.authSvc.Register(s.ctx, RegisterInput{
		Username: "jefe", Email: "jefe@dicri.test", Password: "password123", FullName: "Jefe", Role: domain.RoleAdmin,
	})
	s.requireCode(err, apperrors.CodeForbidden)

	_, err = s.authSvc.Register(s.ctx, RegisterInput{
		Username: "nuevo2", Email: "nuevo@dicri.test", Password: "password123", FullName: "Dup",
	})
	s.requireCode(err, apperrors.CodeDuplicateResource)
}

func (s *UserServiceSuite) TestLogin() {
	result, err := s.authSvc.Login(s.ctx, "TECNICO5@dicri.test", "password123")
	s.Require().NoError(err)
	s.Equal(s.owner.ID, result.User.ID)
	s.True(result.Tokens.RefreshExpiresAt.After(result.Tokens.AccessExpiresAt))

	_, err = s.authSvc.Login(s.ctx, "tecnico5@dicri.test", "wrong-password")
	s.requireCode(err, apperrors.CodeUnauthorized)
	_, err = s.authSvc.Login(s.ctx, "nobody@dicri.test", "password123")
	s.requireCode(err, apperrors.CodeUnauthorized)

	s.Require().NoError(s.users.Deactivate(s.ctx, s.other.ID, s.admin))
	_, err = s.authSvc.Login(s.ctx, "tecnico7@dicri.test", "password123")
	s.requireCode(err, apperrors.CodeForbidden)
}

func (s *UserServiceSuite) TestChangePassword() {
	err := s.authSvc.ChangePassword(s.ctx, s.owner, "wrong-password", "NewPass1!")
	s.requireCode(err, apperrors.CodeUnauthorized)

	s.Require().NoError(s.authSvc.ChangePassword(s.ctx, s.owner, "password123", "NewPass1!"))

	_, err = s.authSvc.Login(s.ctx, "tecnico5@dicri.test", "password123")
	s.requireCode(err, apperrors.CodeUnauthorized)
	_, err = s.authSvc.Login(s.ctx, "tecnico5@dicri.test", "NewPass1!")
	s.NoError(err)
}

func (s *UserServiceSuite) TestRefreshAndMe() {
	login, err := s.authSvc.Login(s.ctx, "tecnico5@dicri.test", "password123")
	s.Require().NoError(err)

	refreshed, err := s.authSvc.Refresh(s.ctx, login.Tokens.RefreshToken)
	s.Require().NoError(err)
	s.Equal(s.owner.ID, refreshed.User.ID)
	s.WithinDuration(time.Now().Add(15*time.Minute), refreshed.Tokens.AccessExpiresAt, time.Minute)

	_, err = s.authSvc.Refresh(s.ctx, login.Tokens.AccessToken)
	s.requireCode(err, apperrors.CodeUnauthorized)

	me, err := s.authSvc.Me(s.ctx, s.owner.ID)
	s.Require().NoError(err)
	s.Equal("tecnico5", me.Username)

	_, err = s.authSvc.Me(s.ctx, 999)
	s.requireCode(err, apperrors.CodeNotFound)
}
