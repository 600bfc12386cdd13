package repository

import (
	"context"

	"github.com/dicri/evidence-service/internal/domain"
)

// EvidenceItemRepository encapsulates evidence item persistence.
type EvidenceItemRepository interface {
	Create(ctx context.Context, item *domain.EvidenceItem) error
	Update(ctx context.Context, item *domain.EvidenceItem) error
	Delete(ctx context.Context, id int64) error
	DeleteByCaseFile(ctx context.Context, caseFileID int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.EvidenceItem, error)
	GetByCode(ctx context.Context, caseFileID int64, code string) (*domain.EvidenceItem, error)
	ListByCaseFile(ctx context.Context, caseFileID int64) ([]domain.EvidenceItem, error)
	ListByCaseFileIDs(ctx context.Context, caseFileIDs []int64) ([]domain.EvidenceItem, error)
	CountByCaseFile(ctx context.Context, caseFileID int64) (int, error)
}

type evidenceItemRepository struct {
	db DBTX
}

// NewEvidenceItemRepository builds repository.
func NewEvidenceItemRepository(db DBTX) EvidenceItemRepository {
	return &evidenceItemRepository{db: db}
}

const evidenceColumns = `id, expediente_id, code, description, color, size, weight, location,
               observations, technician_id, created_at, updated_at`

func (r *evidenceItemRepository) Create(ctx context.Context, item *domain.EvidenceItem) error {
	const query = `
        INSERT INTO indicios (expediente_id, code, description, color, size, weight, location, observations, technician_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		item.CaseFileID,
		item.Code,
		item.Description,
		item.Color,
		item.Size,
		item.Weight,
		item.Location,
		item.Observations,
		item.TechnicianID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	return mapError(err)
}

func (r *evidenceItemRepository) Update(ctx context.Context, item *domain.EvidenceItem) error {
	const query = `
        UPDATE indicios SET code=$1, description=$2, color=$3, size=$4, weight=$5, location=$6,
            observations=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		item.Code,
		item.Description,
		item.Color,
		item.Size,
		item.Weight,
		item.Location,
		item.Observations,
		item.ID,
	).Scan(&item.UpdatedAt)
	return mapError(err)
}

func (r *evidenceItemRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM indicios WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *evidenceItemRepository) DeleteByCaseFile(ctx context.Context, caseFileID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM indicios WHERE expediente_id=$1`, caseFileID)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *evidenceItemRepository) GetByID(ctx context.Context, id int64) (*domain.EvidenceItem, error) {
	item, err := scanEvidenceItem(r.db.QueryRow(ctx, `SELECT `+evidenceColumns+` FROM indicios WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return item, nil
}

func (r *evidenceItemRepository) GetByCode(ctx context.Context, caseFileID int64, code string) (*domain.EvidenceItem, error) {
	const query = `SELECT ` + evidenceColumns + ` FROM indicios WHERE expediente_id=$1 AND code=$2`
	item, err := scanEvidenceItem(r.db.QueryRow(ctx, query, caseFileID, code))
	if err != nil {
		return nil, mapError(err)
	}
	return item, nil
}

func (r *evidenceItemRepository) ListByCaseFile(ctx context.Context, caseFileID int64) ([]domain.EvidenceItem, error) {
	const query = `SELECT ` + evidenceColumns + ` FROM indicios WHERE expediente_id=$1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, caseFileID)
}

func (r *evidenceItemRepository) ListByCaseFileIDs(ctx context.Context, caseFileIDs []int64) ([]domain.EvidenceItem, error) {
	if len(caseFileIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + evidenceColumns + ` FROM indicios WHERE expediente_id = ANY($1)
        ORDER BY expediente_id, created_at ASC, id ASC`
	return r.list(ctx, query, caseFileIDs)
}

func (r *evidenceItemRepository) list(ctx context.Context, query string, arg any) ([]domain.EvidenceItem, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.EvidenceItem
	for rows.Next() {
		item, err := scanEvidenceItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func (r *evidenceItemRepository) CountByCaseFile(ctx context.Context, caseFileID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM indicios WHERE expediente_id=$1`, caseFileID).Scan(&count)
	return count, mapError(err)
}

func scanEvidenceItem(row scanner) (*domain.EvidenceItem, error) {
	var item domain.EvidenceItem
	if err := row.Scan(
		&item.ID,
		&item.CaseFileID,
		&item.Code,
		&item.Description,
		&item.Color,
		&item.Size,
		&item.Weight,
		&item.Location,
		&item.Observations,
		&item.TechnicianID,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
