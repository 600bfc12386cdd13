package service

import (
	"errors"

	"github.com/dicri/evidence-service/internal/repository"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// storeError translates repository sentinels into typed domain errors.
func storeError(resource string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewDuplicate(resource, nil)
	}
	return apperrors.NewInternalError(err)
}

func notFound(resource string, id int64) error {
	return apperrors.NewNotFound(resource, map[string]any{"id": id})
}

const (
	resourceCaseFile     = "case file"
	resourceEvidenceItem = "evidence item"
	resourceUser         = "user"
)
