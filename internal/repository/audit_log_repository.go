package repository

import (
	"context"

	"github.com/dicri/evidence-service/internal/domain"
)

// AuditLogRepository stores audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListByCaseFile(ctx context.Context, caseFileID int64) ([]domain.AuditEntry, error)
}

type auditLogRepository struct {
	db DBTX
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(db DBTX) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_log (user_id, action, entity_type, entity_id, details, ip_address)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Details,
		entry.IPAddress,
	).Scan(&entry.ID, &entry.CreatedAt)
	return mapError(err)
}

// ListByCaseFile returns entries about the case file itself and about evidence
// items registered under it, oldest first.
func (r *auditLogRepository) ListByCaseFile(ctx context.Context, caseFileID int64) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, user_id, action, entity_type, entity_id, details, ip_address, created_at
        FROM audit_log
        WHERE (entity_type=$1 AND entity_id=$3)
           OR (entity_type=$2 AND (details->>'` + domain.AuditDetailCaseFileID + `')::bigint=$3)
        ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, domain.EntityTypeCaseFile, domain.EntityTypeEvidenceItem, caseFileID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Details,
			&entry.IPAddress,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
