package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dicri/evidence-service/internal/config"
	"github.com/dicri/evidence-service/internal/events"
)

// NotificationService tells the people involved in a review about its outcome.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger, cfg: cfg}
}

// RegisterHandlers subscribes to review events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventCaseFileSubmitted, n.handleSubmitted)
	dispatcher.Subscribe(events.EventCaseFileApproved, n.handleReviewed)
	dispatcher.Subscribe(events.EventCaseFileRejected, n.handleReviewed)
}

// handleSubmitted notifies coordinators that a case file awaits review.
func (n *NotificationService) handleSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("CaseFileSubmitted", zap.Int64("case_file_id", event.CaseFileID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// handleReviewed notifies the technician about the review decision.
func (n *NotificationService) handleReviewed(ctx context.Context, event events.Event) error {
	n.logger.Info("CaseFileReviewed",
		zap.Int64("case_file_id", event.CaseFileID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("case_file_id", event.CaseFileID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("case_file_id", event.CaseFileID),
		zap.String("event_type", string(event.Type)))
}
