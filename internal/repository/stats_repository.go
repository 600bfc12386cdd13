package repository

import (
	"context"
	"strings"

	"github.com/dicri/evidence-service/internal/domain"
)

// StatsRepository runs the reporting aggregates.
type StatsRepository interface {
	General(ctx context.Context, created TimeRange) (*domain.GeneralStats, error)
	ByTechnician(ctx context.Context, created TimeRange) ([]domain.TechnicianStats, error)
	ByStatus(ctx context.Context) ([]domain.StatusCount, error)
	Monthly(ctx context.Context, year int) ([]domain.MonthlyCount, error)
}

type statsRepository struct {
	db DBTX
}

// NewStatsRepository builds repository.
func NewStatsRepository(db DBTX) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) General(ctx context.Context, created TimeRange) (*domain.GeneralStats, error) {
	var where whereBuilder
	where.addRange("created_at", created)

	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='EN_REGISTRO'),
               COUNT(*) FILTER (WHERE status='EN_REVISION'),
               COUNT(*) FILTER (WHERE status='APROBADO'),
               COUNT(*) FILTER (WHERE status='RECHAZADO'),
               COALESCE((SELECT COUNT(*) FROM indicios i WHERE i.expediente_id IN (SELECT id FROM expedientes` + where.sql() + `)), 0)
        FROM expedientes` + where.sql()

	var stats domain.GeneralStats
	err := r.db.QueryRow(ctx, query, where.args...).Scan(
		&stats.TotalCaseFiles,
		&stats.Registering,
		&stats.InReview,
		&stats.Approved,
		&stats.Rejected,
		&stats.TotalEvidence,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &stats, nil
}

// ByTechnician reports active technicians ordered by case file count. The
// evidence total is not bounded by the range.
func (r *statsRepository) ByTechnician(ctx context.Context, created TimeRange) ([]domain.TechnicianStats, error) {
	join := whereBuilder{args: []any{domain.RoleTechnician}}
	join.clauses = append(join.clauses, "e.technician_id = u.id")
	join.addRange("e.created_at", created)

	query := `
        SELECT u.id, u.full_name,
               COUNT(e.id),
               COUNT(e.id) FILTER (WHERE e.status='APROBADO'),
               COUNT(e.id) FILTER (WHERE e.status='RECHAZADO'),
               COUNT(e.id) FILTER (WHERE e.status='EN_REGISTRO'),
               COUNT(e.id) FILTER (WHERE e.status='EN_REVISION'),
               (SELECT COUNT(*) FROM indicios i WHERE i.technician_id = u.id)
        FROM users u
        LEFT JOIN expedientes e ON ` + strings.Join(join.clauses, " AND ") + `
        WHERE u.role=$1 AND u.is_active
        GROUP BY u.id, u.full_name
        ORDER BY 3 DESC, u.id ASC`

	rows, err := r.db.Query(ctx, query, join.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.TechnicianStats
	for rows.Next() {
		var s domain.TechnicianStats
		if err := rows.Scan(
			&s.ID,
			&s.FullName,
			&s.TotalCaseFiles,
			&s.Approved,
			&s.Rejected,
			&s.Registering,
			&s.InReview,
			&s.TotalEvidence,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *statsRepository) ByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM expedientes GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.StatusCount
	for rows.Next() {
		var s domain.StatusCount
		if err := rows.Scan(&s.Status, &s.Count); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *statsRepository) Monthly(ctx context.Context, year int) ([]domain.MonthlyCount, error) {
	const query = `
        SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month, COUNT(*)
        FROM expedientes
        WHERE EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC') = $1
        GROUP BY month
        ORDER BY month`
	rows, err := r.db.Query(ctx, query, year)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.MonthlyCount
	for rows.Next() {
		var m domain.MonthlyCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
