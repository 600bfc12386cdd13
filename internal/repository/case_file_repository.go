package repository

import (
	"context"
	"fmt"

	"github.com/dicri/evidence-service/internal/domain"
)

// CaseFileFilter captures list parameters for case files.
type CaseFileFilter struct {
	Status        *domain.CaseFileStatus
	TechnicianID  *int64
	CoordinatorID *int64
	Created       TimeRange
	Limit         int
	Offset        int
}

// CaseFileRepository encapsulates case file persistence.
type CaseFileRepository interface {
	Create(ctx context.Context, cf *domain.CaseFile) error
	Update(ctx context.Context, cf *domain.CaseFile) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.CaseFile, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.CaseFile, error)
	GetByCaseNumber(ctx context.Context, caseNumber string) (*domain.CaseFile, error)
	List(ctx context.Context, filter CaseFileFilter) ([]domain.CaseFile, error)
}

type caseFileRepository struct {
	db DBTX
}

// NewCaseFileRepository instantiates repository.
func NewCaseFileRepository(db DBTX) CaseFileRepository {
	return &caseFileRepository{db: db}
}

const caseFileColumns = `id, case_number, title, description, location, incident_date, status,
               technician_id, coordinator_id, rejection_reason, created_at, updated_at,
               submitted_at, reviewed_at, approved_at`

func (r *caseFileRepository) Create(ctx context.Context, cf *domain.CaseFile) error {
	const query = `
        INSERT INTO expedientes (case_number, title, description, location, incident_date, status, technician_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		cf.CaseNumber,
		cf.Title,
		cf.Description,
		cf.Location,
		cf.IncidentDate,
		cf.Status,
		cf.TechnicianID,
	).Scan(&cf.ID, &cf.CreatedAt, &cf.UpdatedAt)
	return mapError(err)
}

func (r *caseFileRepository) Update(ctx context.Context, cf *domain.CaseFile) error {
	const query = `
        UPDATE expedientes SET title=$1, description=$2, location=$3, incident_date=$4, status=$5,
            coordinator_id=$6, rejection_reason=$7, submitted_at=$8, reviewed_at=$9, approved_at=$10,
            updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		cf.Title,
		cf.Description,
		cf.Location,
		cf.IncidentDate,
		cf.Status,
		cf.CoordinatorID,
		cf.RejectionReason,
		cf.SubmittedAt,
		cf.ReviewedAt,
		cf.ApprovedAt,
		cf.ID,
	).Scan(&cf.UpdatedAt)
	return mapError(err)
}

func (r *caseFileRepository) Touch(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE expedientes SET updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseFileRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM expedientes WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseFileRepository) GetByID(ctx context.Context, id int64) (*domain.CaseFile, error) {
	return r.fetchSingle(ctx, `SELECT `+caseFileColumns+` FROM expedientes WHERE id=$1`, id)
}

func (r *caseFileRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.CaseFile, error) {
	return r.fetchSingle(ctx, `SELECT `+caseFileColumns+` FROM expedientes WHERE id=$1 FOR UPDATE`, id)
}

func (r *caseFileRepository) GetByCaseNumber(ctx context.Context, caseNumber string) (*domain.CaseFile, error) {
	return r.fetchSingle(ctx, `SELECT `+caseFileColumns+` FROM expedientes WHERE case_number=$1`, caseNumber)
}

func (r *caseFileRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.CaseFile, error) {
	cf, err := scanCaseFile(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	return cf, nil
}

func (r *caseFileRepository) List(ctx context.Context, filter CaseFileFilter) ([]domain.CaseFile, error) {
	var where whereBuilder
	if filter.Status != nil {
		where.add("status=$%d", *filter.Status)
	}
	if filter.TechnicianID != nil {
		where.add("technician_id=$%d", *filter.TechnicianID)
	}
	if filter.CoordinatorID != nil {
		where.add("coordinator_id=$%d", *filter.CoordinatorID)
	}
	where.addRange("created_at", filter.Created)

	query := `SELECT ` + caseFileColumns + ` FROM expedientes` + where.sql() + ` ORDER BY created_at DESC, id DESC`
	args := where.args
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.CaseFile
	for rows.Next() {
		cf, err := scanCaseFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cf)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCaseFile(row scanner) (*domain.CaseFile, error) {
	var cf domain.CaseFile
	if err := row.Scan(
		&cf.ID,
		&cf.CaseNumber,
		&cf.Title,
		&cf.Description,
		&cf.Location,
		&cf.IncidentDate,
		&cf.Status,
		&cf.TechnicianID,
		&cf.CoordinatorID,
		&cf.RejectionReason,
		&cf.CreatedAt,
		&cf.UpdatedAt,
		&cf.SubmittedAt,
		&cf.ReviewedAt,
		&cf.ApprovedAt,
	); err != nil {
		return nil, err
	}
	return &cf, nil
}
