package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/policy"
	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// EvidenceService manages evidence items under a case file.
type EvidenceService struct {
	store      repository.Store
	dispatcher events.Dispatcher
}

// EvidenceDependencies bundles collaborators for the evidence service.
type EvidenceDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
}

// EvidenceCreateInput describes a new evidence item.
type EvidenceCreateInput struct {
	CaseFileID   int64
	Code         string
	Description  string
	Color        *string
	Size         *string
	Weight       *string
	Location     *string
	Observations *string
}

// EvidencePatch is a partial update. An empty optional string clears the field.
type EvidencePatch struct {
	Code         *string
	Description  *string
	Color        *string
	Size         *string
	Weight       *string
	Location     *string
	Observations *string
}

// NewEvidenceService constructs the service.
func NewEvidenceService(deps EvidenceDependencies) *EvidenceService {
	return &EvidenceService{store: deps.Store, dispatcher: deps.Dispatcher}
}

// Create registers an evidence item under a case file that is still being registered.
func (s *EvidenceService) Create(ctx context.Context, input EvidenceCreateInput, actor domain.Actor) (*domain.EvidenceItem, error) {
	code := strings.TrimSpace(input.Code)
	description := strings.TrimSpace(input.Description)

	item := &domain.EvidenceItem{
		CaseFileID:   input.CaseFileID,
		Code:         code,
		Description:  description,
		Color:        optionalString(input.Color),
		Size:         optionalString(input.Size),
		Weight:       optionalString(input.Weight),
		Location:     optionalString(input.Location),
		Observations: optionalString(input.Observations),
		TechnicianID: actor.ID,
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := lockParent(ctx, tx, input.CaseFileID, policy.OpEvidenceCreate, actor); err != nil {
			return err
		}
		if code == "" {
			return apperrors.NewInvalidInput("code", "code is required")
		}
		if description == "" {
			return apperrors.NewInvalidInput("description", "description is required")
		}
		if err := ensureCodeAvailable(ctx, tx, input.CaseFileID, code); err != nil {
			return err
		}
		if err := tx.EvidenceItems().Create(ctx, item); err != nil {
			return evidenceWriteError(err, code)
		}
		return storeError(resourceCaseFile, tx.CaseFiles().Touch(ctx, input.CaseFileID))
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewEvidenceEvent(ctx, events.EventEvidenceCreated, actor, item,
		events.EvidencePayload{Code: item.Code}))
	return s.GetByID(ctx, item.ID)
}

// GetByID returns an evidence item with its technician.
func (s *EvidenceService) GetByID(ctx context.Context, id int64) (*domain.EvidenceItem, error) {
	item, err := s.store.EvidenceItems().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(resourceEvidenceItem, id)
		}
		return nil, storeError(resourceEvidenceItem, err)
	}
	items := []domain.EvidenceItem{*item}
	if err := hydrateEvidenceItems(ctx, s.store, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// ListByCaseFile returns the evidence of a case file, oldest first.
func (s *EvidenceService) ListByCaseFile(ctx context.Context, caseFileID int64) ([]domain.EvidenceItem, error) {
	if _, err := s.store.CaseFiles().GetByID(ctx, caseFileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(resourceCaseFile, caseFileID)
		}
		return nil, storeError(resourceCaseFile, err)
	}
	items, err := s.store.EvidenceItems().ListByCaseFile(ctx, caseFileID)
	if err != nil {
		return nil, storeError(resourceEvidenceItem, err)
	}
	if items == nil {
		items = []domain.EvidenceItem{}
	}
	if err := hydrateEvidenceItems(ctx, s.store, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies a partial patch to an evidence item.
func (s *EvidenceService) Update(ctx context.Context, id int64, patch EvidencePatch, actor domain.Actor) (*domain.EvidenceItem, error) {
	var (
		item   *domain.EvidenceItem
		fields []string
	)
	err := s.withLockedItem(ctx, id, policy.OpEvidenceUpdate, actor, func(tx repository.Store, current *domain.EvidenceItem) error {
		item = current
		if patch.Code != nil {
			code := strings.TrimSpace(*patch.Code)
			if code == "" {
				return apperrors.NewInvalidInput("code", "code cannot be empty")
			}
			if code != item.Code {
				if err := ensureCodeAvailable(ctx, tx, item.CaseFileID, code); err != nil {
					return err
				}
				item.Code = code
				fields = append(fields, "code")
			}
		}
		if patch.Description != nil {
			description := strings.TrimSpace(*patch.Description)
			if description == "" {
				return apperrors.NewInvalidInput("description", "description cannot be empty")
			}
			item.Description = description
			fields = append(fields, "description")
		}
		optional := []struct {
			name  string
			value *string
			dest  **string
		}{
			{"color", patch.Color, &item.Color},
			{"size", patch.Size, &item.Size},
			{"weight", patch.Weight, &item.Weight},
			{"location", patch.Location, &item.Location},
			{"observations", patch.Observations, &item.Observations},
		}
		for _, f := range optional {
			if f.value == nil {
				continue
			}
			*f.dest = optionalString(f.value)
			fields = append(fields, f.name)
		}

		if err := tx.EvidenceItems().Update(ctx, item); err != nil {
			return evidenceWriteError(err, item.Code)
		}
		return storeError(resourceCaseFile, tx.CaseFiles().Touch(ctx, item.CaseFileID))
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewEvidenceEvent(ctx, events.EventEvidenceUpdated, actor, item,
		events.EvidencePayload{Code: item.Code, Fields: fields}))
	return s.GetByID(ctx, id)
}

// Delete hard-deletes an evidence item.
func (s *EvidenceService) Delete(ctx context.Context, id int64, actor domain.Actor) error {
	var item *domain.EvidenceItem
	err := s.withLockedItem(ctx, id, policy.OpEvidenceDelete, actor, func(tx repository.Store, current *domain.EvidenceItem) error {
		item = current
		if err := tx.EvidenceItems().Delete(ctx, item.ID); err != nil {
			return storeError(resourceEvidenceItem, err)
		}
		return storeError(resourceCaseFile, tx.CaseFiles().Touch(ctx, item.CaseFileID))
	})
	if err != nil {
		return err
	}
	s.publishEvent(ctx, events.NewEvidenceEvent(ctx, events.EventEvidenceDeleted, actor, item,
		events.EvidencePayload{Code: item.Code}))
	return nil
}

// withLockedItem resolves the item, locks its parent case file, re-reads the
// item under the lock and evaluates the policy before running fn.
func (s *EvidenceService) withLockedItem(
	ctx context.Context,
	id int64,
	op policy.Operation,
	actor domain.Actor,
	fn func(tx repository.Store, item *domain.EvidenceItem) error,
) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		item, err := tx.EvidenceItems().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(resourceEvidenceItem, id)
			}
			return storeError(resourceEvidenceItem, err)
		}
		if _, err := lockParent(ctx, tx, item.CaseFileID, op, actor); err != nil {
			return err
		}
		// The item may have been removed while waiting for the parent lock.
		item, err = tx.EvidenceItems().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(resourceEvidenceItem, id)
			}
			return storeError(resourceEvidenceItem, err)
		}
		return fn(tx, item)
	})
}

func (s *EvidenceService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// lockParent loads the case file under a row lock and applies the evidence policy.
func lockParent(ctx context.Context, tx repository.Store, caseFileID int64, op policy.Operation, actor domain.Actor) (*domain.CaseFile, error) {
	cf, err := tx.CaseFiles().GetByIDForUpdate(ctx, caseFileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(resourceCaseFile, caseFileID)
		}
		return nil, storeError(resourceCaseFile, err)
	}
	if err := policy.Evaluate(op, actor, policy.ResourceOf(cf)).Err(); err != nil {
		return nil, err
	}
	return cf, nil
}

func ensureCodeAvailable(ctx context.Context, tx repository.Store, caseFileID int64, code string) error {
	_, err := tx.EvidenceItems().GetByCode(ctx, caseFileID, code)
	switch {
	case err == nil:
		return duplicateCode(caseFileID, code)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return storeError(resourceEvidenceItem, err)
	}
}

func evidenceWriteError(err error, code string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewDuplicate(resourceEvidenceItem, map[string]any{"field": "code", "value": code})
	}
	return storeError(resourceEvidenceItem, err)
}

func duplicateCode(caseFileID int64, code string) error {
	return apperrors.NewDuplicate(resourceEvidenceItem, map[string]any{
		"field":         "code",
		"value":         code,
		"expediente_id": caseFileID,
	})
}
