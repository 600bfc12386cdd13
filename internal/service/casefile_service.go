package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/policy"
	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// MinRejectionReasonLength is the shortest accepted rejection reason, in characters.
const MinRejectionReasonLength = 10

// CaseFileService coordinates the case file workflow.
type CaseFileService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CaseFileDependencies bundles collaborators for the case file service.
type CaseFileDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	// Now defaults to time.Now.
	Now func() time.Time
}

// CaseFileCreateInput describes case file creation payload.
type CaseFileCreateInput struct {
	CaseNumber   string
	Title        string
	Description  *string
	Location     *string
	IncidentDate *string
}

// CaseFilePatch is a partial update; nil fields are left unchanged. An empty
// optional string clears the field.
type CaseFilePatch struct {
	Title        *string
	Description  *string
	Location     *string
	IncidentDate *string
}

// CaseFileFilter describes list filters.
type CaseFileFilter struct {
	Status        *domain.CaseFileStatus
	TechnicianID  *int64
	CoordinatorID *int64
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// NewCaseFileService constructs the service.
func NewCaseFileService(deps CaseFileDependencies) *CaseFileService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CaseFileService{store: deps.Store, dispatcher: deps.Dispatcher, now: now}
}

// Create registers a new case file owned by the acting technician.
func (s *CaseFileService) Create(ctx context.Context, input CaseFileCreateInput, actor domain.Actor) (*domain.CaseFile, error) {
	if err := policy.Evaluate(policy.OpCaseFileCreate, actor, policy.Resource{}).Err(); err != nil {
		return nil, err
	}

	caseNumber := strings.TrimSpace(input.CaseNumber)
	title := strings.TrimSpace(input.Title)
	if caseNumber == "" {
		return nil, apperrors.NewInvalidInput("case_number", "case number is required")
	}
	if title == "" {
		return nil, apperrors.NewInvalidInput("title", "title is required")
	}
	incidentDate, err := parseOptionalDate("incident_date", input.IncidentDate)
	if err != nil {
		return nil, err
	}

	cf := &domain.CaseFile{
		CaseNumber:   caseNumber,
		Title:        title,
		Description:  optionalString(input.Description),
		Location:     optionalString(input.Location),
		IncidentDate: incidentDate,
		Status:       domain.CaseFileStatusRegistering,
		TechnicianID: actor.ID,
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.CaseFiles().GetByCaseNumber(ctx, caseNumber); err == nil {
			return duplicateCaseNumber(caseNumber)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return storeError(resourceCaseFile, err)
		}
		if err := tx.CaseFiles().Create(ctx, cf); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return duplicateCaseNumber(caseNumber)
			}
			return storeError(resourceCaseFile, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewCaseFileEvent(ctx, events.EventCaseFileCreated, actor, cf.ID,
		events.CaseFileCreatedPayload{CaseNumber: cf.CaseNumber, Title: cf.Title}))
	return s.GetByID(ctx, cf.ID)
}

func duplicateCaseNumber(caseNumber string) error {
	return apperrors.NewDuplicate(resourceCaseFile, map[string]any{"field": "case_number", "value": caseNumber})
}

// GetByID returns the case file with its evidence items, technician and coordinator.
func (s *CaseFileService) GetByID(ctx context.Context, id int64) (*domain.CaseFile, error) {
	cf, err := s.store.CaseFiles().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(resourceCaseFile, id)
		}
		return nil, storeError(resourceCaseFile, err)
	}
	list := []domain.CaseFile{*cf}
	if err := hydrateCaseFiles(ctx, s.store, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns hydrated case files matching filter, newest first.
func (s *CaseFileService) List(ctx context.Context, filter CaseFileFilter) ([]domain.CaseFile, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewInvalidInput("status", "unknown case file status")
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, apperrors.NewInvalidInput("start_date", "start date is after end date")
	}

	list, err := s.store.CaseFiles().List(ctx, repository.CaseFileFilter{
		Status:        filter.Status,
		TechnicianID:  filter.TechnicianID,
		CoordinatorID: filter.CoordinatorID,
		Created:       repository.TimeRange{From: filter.CreatedFrom, To: filter.CreatedTo},
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	})
	if err != nil {
		return nil, storeError(resourceCaseFile, err)
	}
	if list == nil {
		list = []domain.CaseFile{}
	}
	if err := hydrateCaseFiles(ctx, s.store, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Update applies a partial patch while the case file is being registered.
func (s *CaseFileService) Update(ctx context.Context, id int64, patch CaseFilePatch, actor domain.Actor) (*domain.CaseFile, error) {
	var fields []string
	err := s.withLockedCaseFile(ctx, id, policy.OpCaseFileUpdate, actor, func(tx repository.Store, cf *domain.CaseFile) error {
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperrors.NewInvalidInput("title", "title cannot be empty")
			}
			cf.Title = title
			fields = append(fields, "title")
		}
		if patch.Description != nil {
			cf.Description = optionalString(patch.Description)
			fields = append(fields, "description")
		}
		if patch.Location != nil {
			cf.Location = optionalString(patch.Location)
			fields = append(fields, "location")
		}
		if patch.IncidentDate != nil {
			date, err := parseOptionalDate("incident_date", patch.IncidentDate)
			if err != nil {
				return err
			}
			cf.IncidentDate = date
			fields = append(fields, "incident_date")
		}
		return storeError(resourceCaseFile, tx.CaseFiles().Update(ctx, cf))
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewCaseFileEvent(ctx, events.EventCaseFileUpdated, actor, id,
		events.CaseFileUpdatedPayload{Fields: fields}))
	return s.GetByID(ctx, id)
}

// Submit sends a registered case file with at least one evidence item to review.
func (s *CaseFileService) Submit(ctx context.Context, id int64, actor domain.Actor) (*domain.CaseFile, error) {
	return s.transition(ctx, id, policy.OpCaseFileSubmit, events.EventCaseFileSubmitted, actor,
		func(tx repository.Store, cf *domain.CaseFile, now time.Time) error {
			count, err := tx.EvidenceItems().CountByCaseFile(ctx, cf.ID)
			if err != nil {
				return storeError(resourceEvidenceItem, err)
			}
			if count == 0 {
				return apperrors.NewPreconditionFailed("evidence_required",
					"a case file needs at least one evidence item before it can be submitted for review")
			}
			cf.SubmittedAt = &now
			return nil
		})
}

// Approve closes a case file under review.
func (s *CaseFileService) Approve(ctx context.Context, id int64, actor domain.Actor) (*domain.CaseFile, error) {
	return s.transition(ctx, id, policy.OpCaseFileApprove, events.EventCaseFileApproved, actor,
		func(_ repository.Store, cf *domain.CaseFile, now time.Time) error {
			coordinatorID := actor.ID
			cf.CoordinatorID = &coordinatorID
			cf.ReviewedAt = &now
			cf.ApprovedAt = &now
			cf.RejectionReason = nil
			return nil
		})
}

// Reject returns a case file under review to its technician with a reason.
func (s *CaseFileService) Reject(ctx context.Context, id int64, reason string, actor domain.Actor) (*domain.CaseFile, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, id, policy.OpCaseFileReject, events.EventCaseFileRejected, actor,
		func(_ repository.Store, cf *domain.CaseFile, now time.Time) error {
			if utf8.RuneCountInString(reason) < MinRejectionReasonLength {
				return apperrors.NewPreconditionFailed("rejection_reason_length",
					"rejection reason must be at least 10 characters")
			}
			coordinatorID := actor.ID
			cf.CoordinatorID = &coordinatorID
			cf.ReviewedAt = &now
			cf.RejectionReason = &reason
			return nil
		})
}

// Reopen moves a rejected case file back to registration. The rejection
// reason survives only in the audit log.
func (s *CaseFileService) Reopen(ctx context.Context, id int64, actor domain.Actor) (*domain.CaseFile, error) {
	return s.transition(ctx, id, policy.OpCaseFileReopen, events.EventCaseFileReopened, actor,
		func(_ repository.Store, cf *domain.CaseFile, _ time.Time) error {
			cf.SubmittedAt = nil
			cf.ReviewedAt = nil
			cf.RejectionReason = nil
			return nil
		})
}

// Delete removes a case file that is not approved, together with its evidence.
func (s *CaseFileService) Delete(ctx context.Context, id int64, actor domain.Actor) error {
	var payload events.CaseFileDeletedPayload
	err := s.withLockedCaseFile(ctx, id, policy.OpCaseFileDelete, actor, func(tx repository.Store, cf *domain.CaseFile) error {
		removed, err := tx.EvidenceItems().DeleteByCaseFile(ctx, cf.ID)
		if err != nil {
			return storeError(resourceEvidenceItem, err)
		}
		if err := tx.CaseFiles().Delete(ctx, cf.ID); err != nil {
			return storeError(resourceCaseFile, err)
		}
		payload = events.CaseFileDeletedPayload{
			CaseNumber:       cf.CaseNumber,
			EvidenceRemoved:  removed,
			StatusAtDeletion: string(cf.Status),
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publishEvent(ctx, events.NewCaseFileEvent(ctx, events.EventCaseFileDeleted, actor, id, payload))
	return nil
}

// History lists the audit entries of a case file and its evidence, oldest first.
func (s *CaseFileService) History(ctx context.Context, id int64) ([]domain.AuditEntry, error) {
	if _, err := s.store.CaseFiles().GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(resourceCaseFile, id)
		}
		return nil, storeError(resourceCaseFile, err)
	}
	entries, err := s.store.AuditLogs().ListByCaseFile(ctx, id)
	if err != nil {
		return nil, storeError("audit log", err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

// transition runs a status change: lock, guard, apply, move to the target
// status, persist, then publish and return the refreshed case file.
func (s *CaseFileService) transition(
	ctx context.Context,
	id int64,
	op policy.Operation,
	eventType events.EventType,
	actor domain.Actor,
	apply func(tx repository.Store, cf *domain.CaseFile, now time.Time) error,
) (*domain.CaseFile, error) {
	var payload events.CaseFileTransitionPayload
	err := s.withLockedCaseFile(ctx, id, op, actor, func(tx repository.Store, cf *domain.CaseFile) error {
		now := s.now().UTC()
		from := cf.Status
		if err := apply(tx, cf, now); err != nil {
			return err
		}
		cf.Status = policy.Target(op, from)
		if err := tx.CaseFiles().Update(ctx, cf); err != nil {
			return storeError(resourceCaseFile, err)
		}
		payload = events.CaseFileTransitionPayload{OldStatus: from, NewStatus: cf.Status}
		if cf.Status == domain.CaseFileStatusRejected && cf.RejectionReason != nil {
			payload.RejectionReason = *cf.RejectionReason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewCaseFileEvent(ctx, eventType, actor, id, payload))
	return s.GetByID(ctx, id)
}

// withLockedCaseFile loads the case file under a row lock inside a
// transaction and evaluates the policy before handing it to fn.
func (s *CaseFileService) withLockedCaseFile(
	ctx context.Context,
	id int64,
	op policy.Operation,
	actor domain.Actor,
	fn func(tx repository.Store, cf *domain.CaseFile) error,
) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		cf, err := tx.CaseFiles().GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(resourceCaseFile, id)
			}
			return storeError(resourceCaseFile, err)
		}
		if err := policy.Evaluate(op, actor, policy.ResourceOf(cf)).Err(); err != nil {
			return err
		}
		return fn(tx, cf)
	})
}

func (s *CaseFileService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// incidentDateLayouts are the accepted incident date formats.
var incidentDateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	for _, layout := range incidentDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.NewInvalidInput(field, "date must be RFC3339 or YYYY-MM-DD")
}

// optionalString trims v and maps empty to nil.
func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
