package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dicri/evidence-service/internal/domain"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
	tech  domain.User
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	s.tech = domain.User{Username: "tech", Email: "tech@example.com", Role: domain.RoleTechnician, FullName: "Field Tech", IsActive: true}
	s.Require().NoError(s.store.Users().Create(s.ctx, &s.tech))
}

func (s *MemoryStoreSuite) newCaseFile(number string) *domain.CaseFile {
	cf := &domain.CaseFile{
		CaseNumber:   number,
		Title:        "Case " + number,
		Status:       domain.CaseFileStatusRegistering,
		TechnicianID: s.tech.ID,
	}
	s.Require().NoError(s.store.CaseFiles().Create(s.ctx, cf))
	return cf
}

func (s *MemoryStoreSuite) TestCaseFileCreateAssignsIdentity() {
	cf := s.newCaseFile("EXP-1")
	s.NotZero(cf.ID)
	s.False(cf.CreatedAt.IsZero())
	s.Equal(cf.CreatedAt, cf.UpdatedAt)

	dup := &domain.CaseFile{CaseNumber: "EXP-1", Title: "again", Status: domain.CaseFileStatusRegistering, TechnicianID: s.tech.ID}
	err := s.store.CaseFiles().Create(s.ctx, dup)
	s.True(errors.Is(err, ErrDuplicate))
}

func (s *MemoryStoreSuite) TestUpdateKeepsImmutableFields() {
	cf := s.newCaseFile("EXP-2")
	before := cf.UpdatedAt

	changed := *cf
	changed.CaseNumber = "OTHER"
	changed.TechnicianID = 999
	changed.Title = "Renamed"
	s.Require().NoError(s.store.CaseFiles().Update(s.ctx, &changed))

	got, err := s.store.CaseFiles().GetByID(s.ctx, cf.ID)
	s.Require().NoError(err)
	s.Equal("EXP-2", got.CaseNumber)
	s.Equal(s.tech.ID, got.TechnicianID)
	s.Equal("Renamed", got.Title)
	s.True(got.UpdatedAt.After(before))
}

func (s *MemoryStoreSuite) TestListOrdersNewestFirstAndFilters() {
	first := s.newCaseFile("EXP-A")
	second := s.newCaseFile("EXP-B")
	third := s.newCaseFile("EXP-C")

	third.Status = domain.CaseFileStatusInReview
	s.Require().NoError(s.store.CaseFiles().Update(s.ctx, third))

	all, err := s.store.CaseFiles().List(s.ctx, CaseFileFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]int64{third.ID, second.ID, first.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	status := domain.CaseFileStatusRegistering
	registering, err := s.store.CaseFiles().List(s.ctx, CaseFileFilter{Status: &status})
	s.Require().NoError(err)
	s.Len(registering, 2)

	from := second.CreatedAt
	to := second.CreatedAt
	bounded, err := s.store.CaseFiles().List(s.ctx, CaseFileFilter{Created: TimeRange{From: &from, To: &to}})
	s.Require().NoError(err)
	s.Require().Len(bounded, 1)
	s.Equal(second.ID, bounded[0].ID)

	page, err := s.store.CaseFiles().List(s.ctx, CaseFileFilter{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(second.ID, page[0].ID)
}

func (s *MemoryStoreSuite) TestEvidenceCodeUniquePerCaseFile() {
	a := s.newCaseFile("EXP-10")
	b := s.newCaseFile("EXP-11")

	item := &domain.EvidenceItem{CaseFileID: a.ID, Code: "IND-1", Description: "knife", TechnicianID: s.tech.ID}
	s.Require().NoError(s.store.EvidenceItems().Create(s.ctx, item))

	dup := &domain.EvidenceItem{CaseFileID: a.ID, Code: "IND-1", Description: "other", TechnicianID: s.tech.ID}
	s.True(errors.Is(s.store.EvidenceItems().Create(s.ctx, dup), ErrDuplicate))

	elsewhere := &domain.EvidenceItem{CaseFileID: b.ID, Code: "IND-1", Description: "other", TechnicianID: s.tech.ID}
	s.NoError(s.store.EvidenceItems().Create(s.ctx, elsewhere))

	second := &domain.EvidenceItem{CaseFileID: a.ID, Code: "IND-2", Description: "glove", TechnicianID: s.tech.ID}
	s.Require().NoError(s.store.EvidenceItems().Create(s.ctx, second))
	second.Code = "IND-1"
	s.True(errors.Is(s.store.EvidenceItems().Update(s.ctx, second), ErrDuplicate))

	items, err := s.store.EvidenceItems().ListByCaseFile(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("IND-1", items[0].Code)
	s.Equal("IND-2", items[1].Code)
}

func (s *MemoryStoreSuite) TestDeleteCascadesEvidence() {
	cf := s.newCaseFile("EXP-20")
	item := &domain.EvidenceItem{CaseFileID: cf.ID, Code: "IND-1", Description: "shell", TechnicianID: s.tech.ID}
	s.Require().NoError(s.store.EvidenceItems().Create(s.ctx, item))

	s.Require().NoError(s.store.CaseFiles().Delete(s.ctx, cf.ID))

	_, err := s.store.EvidenceItems().GetByID(s.ctx, item.ID)
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.store.CaseFiles().Delete(s.ctx, cf.ID), ErrNotFound)
}

func (s *MemoryStoreSuite) TestInTxRollsBackOnError() {
	cf := s.newCaseFile("EXP-30")
	boom := errors.New("boom")

	err := s.store.InTx(s.ctx, func(tx Store) error {
		locked, err := tx.CaseFiles().GetByIDForUpdate(s.ctx, cf.ID)
		if err != nil {
			return err
		}
		locked.Title = "changed inside tx"
		if err := tx.CaseFiles().Update(s.ctx, locked); err != nil {
			return err
		}
		if err := tx.EvidenceItems().Create(s.ctx, &domain.EvidenceItem{
			CaseFileID: cf.ID, Code: "IND-9", Description: "tx", TechnicianID: s.tech.ID,
		}); err != nil {
			return err
		}
		return tx.InTx(s.ctx, func(nested Store) error { return boom })
	})
	s.ErrorIs(err, boom)

	got, err := s.store.CaseFiles().GetByID(s.ctx, cf.ID)
	s.Require().NoError(err)
	s.Equal("Case EXP-30", got.Title)

	count, err := s.store.EvidenceItems().CountByCaseFile(s.ctx, cf.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *MemoryStoreSuite) TestInTxHonorsCancellation() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	called := false
	err := s.store.InTx(ctx, func(Store) error {
		called = true
		return nil
	})
	s.ErrorIs(err, context.Canceled)
	s.False(called)
}

func (s *MemoryStoreSuite) TestUserUniqueness() {
	dup := domain.User{Username: "tech", Email: "new@example.com", Role: domain.RoleTechnician}
	s.ErrorIs(s.store.Users().Create(s.ctx, &dup), ErrDuplicate)

	other := domain.User{Username: "coord", Email: "coord@example.com", Role: domain.RoleCoordinator, IsActive: true}
	s.Require().NoError(s.store.Users().Create(s.ctx, &other))
	other.Email = s.tech.Email
	s.ErrorIs(s.store.Users().Update(s.ctx, &other), ErrDuplicate)

	role := domain.RoleCoordinator
	coordinators, err := s.store.Users().List(s.ctx, UserFilter{Role: &role})
	s.Require().NoError(err)
	s.Len(coordinators, 1)

	n, err := s.store.Users().Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *MemoryStoreSuite) TestAuditListByCaseFile() {
	cf := s.newCaseFile("EXP-40")
	other := s.newCaseFile("EXP-41")
	entries := []domain.AuditEntry{
		{Action: "case_file_created", EntityType: domain.EntityTypeCaseFile, EntityID: &cf.ID},
		{Action: "evidence_created", EntityType: domain.EntityTypeEvidenceItem, Details: map[string]any{domain.AuditDetailCaseFileID: cf.ID}},
		{Action: "case_file_created", EntityType: domain.EntityTypeCaseFile, EntityID: &other.ID},
	}
	for i := range entries {
		s.Require().NoError(s.store.AuditLogs().Create(s.ctx, &entries[i]))
	}

	history, err := s.store.AuditLogs().ListByCaseFile(s.ctx, cf.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("case_file_created", history[0].Action)
	s.Equal("evidence_created", history[1].Action)
}

func (s *MemoryStoreSuite) TestStats() {
	idle := domain.User{Username: "idle", Email: "idle@example.com", Role: domain.RoleTechnician, FullName: "Idle Tech", IsActive: true}
	s.Require().NoError(s.store.Users().Create(s.ctx, &idle))

	a := s.newCaseFile("EXP-50")
	b := s.newCaseFile("EXP-51")
	b.Status = domain.CaseFileStatusApproved
	s.Require().NoError(s.store.CaseFiles().Update(s.ctx, b))
	s.Require().NoError(s.store.EvidenceItems().Create(s.ctx, &domain.EvidenceItem{
		CaseFileID: a.ID, Code: "IND-1", Description: "x", TechnicianID: s.tech.ID,
	}))

	general, err := s.store.Stats().General(s.ctx, TimeRange{})
	s.Require().NoError(err)
	s.Equal(domain.GeneralStats{TotalCaseFiles: 2, Registering: 1, Approved: 1, TotalEvidence: 1}, *general)

	future := time.Now().Add(time.Hour)
	empty, err := s.store.Stats().General(s.ctx, TimeRange{From: &future})
	s.Require().NoError(err)
	s.Zero(empty.TotalCaseFiles)

	techs, err := s.store.Stats().ByTechnician(s.ctx, TimeRange{})
	s.Require().NoError(err)
	s.Require().Len(techs, 2)
	s.Equal(s.tech.ID, techs[0].ID)
	s.Equal(int64(2), techs[0].TotalCaseFiles)
	s.Equal(int64(1), techs[0].TotalEvidence)
	s.Equal(idle.ID, techs[1].ID)
	s.Zero(techs[1].TotalCaseFiles)

	byStatus, err := s.store.Stats().ByStatus(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.StatusCount{
		{Status: domain.CaseFileStatusApproved, Count: 1},
		{Status: domain.CaseFileStatusRegistering, Count: 1},
	}, byStatus)

	monthly, err := s.store.Stats().Monthly(s.ctx, a.CreatedAt.UTC().Year())
	s.Require().NoError(err)
	var total int64
	for _, m := range monthly {
		total += m.Count
	}
	s.Equal(int64(2), total)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4}
	assert.Equal(t, []int{2, 3}, paginate(items, 2, 1))
	assert.Nil(t, paginate(items, 2, 10))
	assert.Equal(t, items, paginate(items, 0, 0))
	require.Len(t, paginate(items, 10, 0), 4)
}
