package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dicri/evidence-service/internal/persistence"
)

// Store groups the repositories and runs units of work against them.
type Store interface {
	CaseFiles() CaseFileRepository
	EvidenceItems() EvidenceItemRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
	Stats() StatsRepository
	// InTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling InTx on a transactional view joins the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewPostgresStore returns a Store backed by the pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) CaseFiles() CaseFileRepository         { return NewCaseFileRepository(s.db) }
func (s *pgStore) EvidenceItems() EvidenceItemRepository { return NewEvidenceItemRepository(s.db) }
func (s *pgStore) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *pgStore) AuditLogs() AuditLogRepository         { return NewAuditLogRepository(s.db) }
func (s *pgStore) Stats() StatsRepository                { return NewStatsRepository(s.db) }

func (s *pgStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return persistence.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(&pgStore{pool: s.pool, db: tx, inTx: true})
	})
}
