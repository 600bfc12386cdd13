package service

import (
	"context"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// serviceSuite wires every service over an in-memory store.
type serviceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *repository.MemoryStore
	dispatcher events.Dispatcher
	published  []events.Event

	caseFiles *CaseFileService
	evidence  *EvidenceService
	users     *UserService
	audit     *AuditService

	owner       domain.Actor
	other       domain.Actor
	coordinator domain.Actor
	admin       domain.Actor
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = repository.NewMemoryStore()
	s.dispatcher = events.NewInMemoryDispatcher(nil)
	s.published = nil
	events.SubscribeAll(s.dispatcher, events.AllTypes, func(_ context.Context, e events.Event) error {
		s.published = append(s.published, e)
		return nil
	})

	s.caseFiles = NewCaseFileService(CaseFileDependencies{Store: s.store, Dispatcher: s.dispatcher})
	s.evidence = NewEvidenceService(EvidenceDependencies{Store: s.store, Dispatcher: s.dispatcher})
	s.users = NewUserService(UserDependencies{Store: s.store, Hasher: auth.NewPasswordHasher(bcrypt.MinCost)})
	s.audit = NewAuditService(AuditDependencies{Store: s.store})
	s.audit.RegisterHandlers(s.dispatcher)

	s.owner = s.newActor("tecnico5", domain.RoleTechnician)
	s.other = s.newActor("tecnico7", domain.RoleTechnician)
	s.coordinator = s.newActor("coordinador9", domain.RoleCoordinator)
	s.admin = s.newActor("admin", domain.RoleAdmin)
}

func (s *serviceSuite) newActor(username string, role domain.Role) domain.Actor {
	user, err := s.users.Create(s.ctx, UserCreateInput{
		Username: username,
		Email:    username + "@dicri.test",
		Password: "password123",
		FullName: "User " + username,
		Role:     role,
	})
	s.Require().NoError(err)
	return domain.Actor{ID: user.ID, Role: user.Role}
}

func (s *serviceSuite) createCaseFile(number string) *domain.CaseFile {
	cf, err := s.caseFiles.Create(s.ctx, CaseFileCreateInput{CaseNumber: number, Title: "Case " + number}, s.owner)
	s.Require().NoError(err)
	return cf
}

func (s *serviceSuite) addEvidence(caseFileID int64, code string) *domain.EvidenceItem {
	item, err := s.evidence.Create(s.ctx, EvidenceCreateInput{CaseFileID: caseFileID, Code: code, Description: "Evidence " + code}, s.owner)
	s.Require().NoError(err)
	return item
}

// inReview returns a case file with one evidence item, submitted for review.
func (s *serviceSuite) inReview(number string) *domain.CaseFile {
	cf := s.createCaseFile(number)
	s.addEvidence(cf.ID, "IND-001")
	cf, err := s.caseFiles.Submit(s.ctx, cf.ID, s.owner)
	s.Require().NoError(err)
	return cf
}

func (s *serviceSuite) requireCode(err error, code string) {
	s.T().Helper()
	s.Require().Error(err)
	s.Require().Truef(apperrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func strPtr(v string) *string { return &v }
