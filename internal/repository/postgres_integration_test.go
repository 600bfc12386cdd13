package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/persistence"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}
}

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pool  *pgxpool.Pool
	store Store
	tech  domain.User
}

func TestPostgresStoreSuite(t *testing.T) {
	skipUnlessIntegration(t)
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("evidence_test"),
		postgres.WithUsername("evidence"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	migrationURL := "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
	s.Require().NoError(persistence.RunMigrations(migrationURL, zap.NewNop()))

	s.pool, err = pgxpool.New(s.ctx, dsn)
	s.Require().NoError(err)
	s.T().Cleanup(s.pool.Close)
	s.store = NewPostgresStore(s.pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE audit_log, indicios, expedientes, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)

	s.tech = domain.User{Username: "tech", Email: "tech@example.com", PasswordHash: "x", Role: domain.RoleTechnician, FullName: "Field Tech", IsActive: true}
	s.Require().NoError(s.store.Users().Create(s.ctx, &s.tech))
}

func (s *PostgresStoreSuite) newCaseFile(number string) *domain.CaseFile {
	location := "Zona 1"
	cf := &domain.CaseFile{
		CaseNumber:   number,
		Title:        "Case " + number,
		Location:     &location,
		Status:       domain.CaseFileStatusRegistering,
		TechnicianID: s.tech.ID,
	}
	s.Require().NoError(s.store.CaseFiles().Create(s.ctx, cf))
	return cf
}

func (s *PostgresStoreSuite) TestCaseFileRoundTrip() {
	cf := s.newCaseFile("EXP-1")

	got, err := s.store.CaseFiles().GetByCaseNumber(s.ctx, "EXP-1")
	s.Require().NoError(err)
	s.Equal(cf.ID, got.ID)
	s.Equal(domain.CaseFileStatusRegistering, got.Status)
	s.Require().NotNil(got.Location)
	s.Equal("Zona 1", *got.Location)
	s.Nil(got.CoordinatorID)

	_, err = s.store.CaseFiles().GetByID(s.ctx, 9999)
	s.ErrorIs(err, ErrNotFound)

	err = s.store.CaseFiles().Create(s.ctx, &domain.CaseFile{CaseNumber: "EXP-1", Title: "dup", Status: domain.CaseFileStatusRegistering, TechnicianID: s.tech.ID})
	s.ErrorIs(err, ErrDuplicate)
}

func (s *PostgresStoreSuite) TestEvidenceUniqueAndCascade() {
	cf := s.newCaseFile("EXP-2")
	item := &domain.EvidenceItem{CaseFileID: cf.ID, Code: "IND-1", Description: "casing", TechnicianID: s.tech.ID}
	s.Require().NoError(s.store.EvidenceItems().Create(s.ctx, item))

	dup := &domain.EvidenceItem{CaseFileID: cf.ID, Code: "IND-1", Description: "again", TechnicianID: s.tech.ID}
	s.ErrorIs(s.store.EvidenceItems().Create(s.ctx, dup), ErrDuplicate)

	count, err := s.store.EvidenceItems().CountByCaseFile(s.ctx, cf.ID)
	s.Require().NoError(err)
	s.Equal(1, count)

	s.Require().NoError(s.store.CaseFiles().Delete(s.ctx, cf.ID))
	_, err = s.store.EvidenceItems().GetByID(s.ctx, item.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresStoreSuite) TestInTxRollback() {
	cf := s.newCaseFile("EXP-3")
	boom := errors.New("boom")

	err := s.store.InTx(s.ctx, func(tx Store) error {
		locked, err := tx.CaseFiles().GetByIDForUpdate(s.ctx, cf.ID)
		if err != nil {
			return err
		}
		locked.Title = "inside"
		if err := tx.CaseFiles().Update(s.ctx, locked); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.CaseFiles().GetByID(s.ctx, cf.ID)
	s.Require().NoError(err)
	s.Equal("Case EXP-3", got.Title)
}

func (s *PostgresStoreSuite) TestListFiltersAndOrder() {
	a := s.newCaseFile("EXP-4")
	b := s.newCaseFile("EXP-5")

	list, err := s.store.CaseFiles().List(s.ctx, CaseFileFilter{TechnicianID: &s.tech.ID})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(b.ID, list[0].ID)
	s.Equal(a.ID, list[1].ID)

	status := domain.CaseFileStatusApproved
	list, err = s.store.CaseFiles().List(s.ctx, CaseFileFilter{Status: &status})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *PostgresStoreSuite) TestAuditHistoryIncludesEvidence() {
	cf := s.newCaseFile("EXP-6")
	entries := []domain.AuditEntry{
		{UserID: &s.tech.ID, Action: "case_file_created", EntityType: domain.EntityTypeCaseFile, EntityID: &cf.ID},
		{UserID: &s.tech.ID, Action: "evidence_created", EntityType: domain.EntityTypeEvidenceItem, Details: map[string]any{domain.AuditDetailCaseFileID: cf.ID}},
	}
	for i := range entries {
		s.Require().NoError(s.store.AuditLogs().Create(s.ctx, &entries[i]))
	}

	history, err := s.store.AuditLogs().ListByCaseFile(s.ctx, cf.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("evidence_created", history[1].Action)
}

func (s *PostgresStoreSuite) TestStats() {
	a := s.newCaseFile("EXP-7")
	s.Require().NoError(s.store.EvidenceItems().Create(s.ctx, &domain.EvidenceItem{
		CaseFileID: a.ID, Code: "IND-1", Description: "x", TechnicianID: s.tech.ID,
	}))

	general, err := s.store.Stats().General(s.ctx, TimeRange{})
	s.Require().NoError(err)
	s.Equal(int64(1), general.TotalCaseFiles)
	s.Equal(int64(1), general.Registering)
	s.Equal(int64(1), general.TotalEvidence)

	techs, err := s.store.Stats().ByTechnician(s.ctx, TimeRange{})
	s.Require().NoError(err)
	s.Require().Len(techs, 1)
	s.Equal(int64(1), techs[0].TotalCaseFiles)

	monthly, err := s.store.Stats().Monthly(s.ctx, a.CreatedAt.UTC().Year())
	s.Require().NoError(err)
	s.Require().Len(monthly, 1)
	s.Equal(int(a.CreatedAt.UTC().Month()), monthly[0].Month)
}

func TestStatsCache_Redis(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	cache := NewStatsCache(client, time.Minute)
	want := domain.GeneralStats{TotalCaseFiles: 3, Approved: 1}

	var got domain.GeneralStats
	slot, hit, err := cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.Set(ctx, slot, want))

	slot, hit, err = cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, want, got)

	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Set(ctx, slot, want))
	_, hit, err = cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestStatsCache_Disabled(t *testing.T) {
	cache := NewStatsCache(nil, time.Minute)
	var got domain.GeneralStats
	slot, hit, err := cache.Get(context.Background(), "general", &got)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.Set(context.Background(), slot, got))
	require.NoError(t, cache.Invalidate(context.Background()))
}
