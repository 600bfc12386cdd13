package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dicri/evidence-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseFileCreated   EventType = "case_file_created"
	EventCaseFileUpdated   EventType = "case_file_updated"
	EventCaseFileSubmitted EventType = "case_file_submitted"
	EventCaseFileApproved  EventType = "case_file_approved"
	EventCaseFileRejected  EventType = "case_file_rejected"
	EventCaseFileReopened  EventType = "case_file_reopened"
	EventCaseFileDeleted   EventType = "case_file_deleted"

	EventEvidenceCreated EventType = "evidence_created"
	EventEvidenceUpdated EventType = "evidence_updated"
	EventEvidenceDeleted EventType = "evidence_deleted"
)

// AllTypes lists every published event type.
var AllTypes = []EventType{
	EventCaseFileCreated,
	EventCaseFileUpdated,
	EventCaseFileSubmitted,
	EventCaseFileApproved,
	EventCaseFileRejected,
	EventCaseFileReopened,
	EventCaseFileDeleted,
	EventEvidenceCreated,
	EventEvidenceUpdated,
	EventEvidenceDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	CaseFileID int64     `json:"case_file_id"`
	Actor      Actor     `json:"actor"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload,omitempty"`
}

// NewCaseFileEvent builds an event about a case file.
func NewCaseFileEvent(ctx context.Context, t EventType, actor domain.Actor, caseFileID int64, payload any) Event {
	return newEvent(ctx, t, actor, domain.EntityTypeCaseFile, caseFileID, caseFileID, payload)
}

// NewEvidenceEvent builds an event about an evidence item.
func NewEvidenceEvent(ctx context.Context, t EventType, actor domain.Actor, item *domain.EvidenceItem, payload any) Event {
	return newEvent(ctx, t, actor, domain.EntityTypeEvidenceItem, item.ID, item.CaseFileID, payload)
}

func newEvent(ctx context.Context, t EventType, actor domain.Actor, entityType string, entityID, caseFileID int64, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		EntityType: entityType,
		EntityID:   entityID,
		CaseFileID: caseFileID,
		Actor:      Actor{UserID: actor.ID, Role: actor.Role},
		IPAddress:  ClientIP(ctx),
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// CaseFileCreatedPayload payload.
type CaseFileCreatedPayload struct {
	CaseNumber string `json:"case_number"`
	Title      string `json:"title"`
}

// CaseFileUpdatedPayload lists the fields a patch touched.
type CaseFileUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// CaseFileTransitionPayload payload.
type CaseFileTransitionPayload struct {
	OldStatus       domain.CaseFileStatus `json:"old_status"`
	NewStatus       domain.CaseFileStatus `json:"new_status"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
}

// CaseFileDeletedPayload payload.
type CaseFileDeletedPayload struct {
	CaseNumber       string `json:"case_number"`
	EvidenceRemoved  int64  `json:"evidence_removed"`
	StatusAtDeletion string `json:"status_at_deletion"`
}

// EvidencePayload payload.
type EvidencePayload struct {
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

type clientIPKey struct{}

// WithClientIP attaches the caller address to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the caller address stored by WithClientIP.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
