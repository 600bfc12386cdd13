package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/observability"
	"github.com/dicri/evidence-service/internal/repository"
)

// AuditService records every committed mutation in the audit log.
type AuditService struct {
	store   repository.Store
	logger  *zap.Logger
	metrics *observability.Metrics
}

// AuditDependencies bundles collaborators for the audit service.
type AuditDependencies struct {
	Store   repository.Store
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewAuditService constructs the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: deps.Store, logger: logger, metrics: deps.Metrics}
}

// RegisterHandlers subscribes the recorder to every event type.
func (a *AuditService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	events.SubscribeAll(dispatcher, events.AllTypes, a.record)
}

func (a *AuditService) record(ctx context.Context, event events.Event) error {
	a.metrics.RecordEvent(string(event.Type))
	a.logger.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("entity_type", event.EntityType),
		zap.Int64("entity_id", event.EntityID),
		zap.Int64("case_file_id", event.CaseFileID),
		zap.Int64("actor_id", event.Actor.UserID),
		zap.String("actor_role", string(event.Actor.Role)),
	)

	entry, err := auditEntryFromEvent(event)
	if err != nil {
		return err
	}
	return a.store.AuditLogs().Create(ctx, entry)
}

func auditEntryFromEvent(event events.Event) (*domain.AuditEntry, error) {
	details := map[string]any{}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &details); err != nil {
			return nil, err
		}
	}
	details[domain.AuditDetailCaseFileID] = event.CaseFileID

	entry := &domain.AuditEntry{
		Action:     string(event.Type),
		EntityType: event.EntityType,
		Details:    details,
	}
	if event.Actor.UserID != 0 {
		userID := event.Actor.UserID
		entry.UserID = &userID
	}
	if event.EntityID != 0 {
		entityID := event.EntityID
		entry.EntityID = &entityID
	}
	if event.IPAddress != "" {
		ip := event.IPAddress
		entry.IPAddress = &ip
	}
	return entry, nil
}
