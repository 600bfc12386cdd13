package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// StatsService serves aggregate reports, cached in Redis when available.
type StatsService struct {
	store  repository.Store
	cache  *repository.StatsCache
	logger *zap.Logger
	now    func() time.Time
}

// StatsDependencies bundles collaborators for the stats service.
type StatsDependencies struct {
	Store  repository.Store
	Cache  *repository.StatsCache
	Logger *zap.Logger
}

// NewStatsService constructs the service. A nil cache disables caching.
func NewStatsService(deps StatsDependencies) *StatsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{store: deps.Store, cache: deps.Cache, logger: logger, now: time.Now}
}

// RegisterHandlers invalidates the cache whenever a mutation commits.
func (s *StatsService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	events.SubscribeAll(dispatcher, events.AllTypes, func(ctx context.Context, _ events.Event) error {
		return s.cache.Invalidate(ctx)
	})
}

// General counts case files per status created within [from, to].
func (s *StatsService) General(ctx context.Context, from, to *time.Time) (*domain.GeneralStats, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return cachedReport(ctx, s, "general:"+rangeKey(from, to), func() (*domain.GeneralStats, error) {
		return s.store.Stats().General(ctx, repository.TimeRange{From: from, To: to})
	})
}

// ByTechnician breaks case files down per active technician.
func (s *StatsService) ByTechnician(ctx context.Context, from, to *time.Time) ([]domain.TechnicianStats, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	out, err := cachedReport(ctx, s, "technicians:"+rangeKey(from, to), func() ([]domain.TechnicianStats, error) {
		return s.store.Stats().ByTechnician(ctx, repository.TimeRange{From: from, To: to})
	})
	if out == nil && err == nil {
		out = []domain.TechnicianStats{}
	}
	return out, err
}

// ByStatus counts case files in each status.
func (s *StatsService) ByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	out, err := cachedReport(ctx, s, "by-status", func() ([]domain.StatusCount, error) {
		return s.store.Stats().ByStatus(ctx)
	})
	if out == nil && err == nil {
		out = []domain.StatusCount{}
	}
	return out, err
}

// Monthly counts case files created per month of year. A zero year means
// the current one.
func (s *StatsService) Monthly(ctx context.Context, year int) ([]domain.MonthlyCount, error) {
	if year == 0 {
		year = s.now().UTC().Year()
	}
	if year < 1 || year > 9999 {
		return nil, apperrors.NewInvalidInput("year", "year is out of range")
	}
	out, err := cachedReport(ctx, s, fmt.Sprintf("monthly:%d", year), func() ([]domain.MonthlyCount, error) {
		return s.store.Stats().Monthly(ctx, year)
	})
	if out == nil && err == nil {
		out = []domain.MonthlyCount{}
	}
	return out, err
}

// cachedReport serves key from the cache or from load. Cache failures are
// logged and fall through to the store.
func cachedReport[T any](ctx context.Context, s *StatsService, key string, load func() (T, error)) (T, error) {
	var out T
	slot, hit, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return out, nil
	}

	out, err = load()
	if err != nil {
		var zero T
		return zero, storeError("stats", err)
	}
	if err := s.cache.Set(ctx, slot, out); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return apperrors.NewInvalidInput("start_date", "start date is after end date")
	}
	return nil
}

func rangeKey(from, to *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return format(from) + ":" + format(to)
}
