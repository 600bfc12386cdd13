package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes shared by the service layer and the HTTP error middleware.
const (
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeNotFound               = "NOT_FOUND"
	CodeDuplicateResource      = "DUPLICATE_RESOURCE"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodePreconditionFailed     = "PRECONDITION_FAILED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewInvalidInput reports a value that passed shape validation but cannot be interpreted.
func NewInvalidInput(field, message string) error {
	return NewDomainError(CodeInvalidInput, message, http.StatusBadRequest, map[string]any{"field": field})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["resource"] = resource
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewDuplicate reports a unique constraint violation on resource.
func NewDuplicate(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["resource"] = resource
	return &DomainError{
		Code:       CodeDuplicateResource,
		Message:    fmt.Sprintf("%s already exists", resource),
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

// NewInvalidStateTransition names the current state and the state(s) the operation requires.
func NewInvalidStateTransition(operation, current string, required []string) error {
	return &DomainError{
		Code: CodeInvalidStateTransition,
		Message: fmt.Sprintf("cannot %s a case file in status %s; required status: %s",
			operation, current, strings.Join(required, " or ")),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"operation":       operation,
			"current_status":  current,
			"required_status": required,
		},
	}
}

// NewPreconditionFailed reports an unmet workflow precondition.
func NewPreconditionFailed(condition, message string) error {
	return NewDomainError(CodePreconditionFailed, message, http.StatusUnprocessableEntity, map[string]any{"condition": condition})
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewRateLimited() error {
	return NewDomainError(CodeRateLimited, "too many requests", http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// FromStatus builds a DomainError for transport-level failures that carry only a status.
func FromStatus(status int, message string) *DomainError {
	return &DomainError{Code: codeForStatus(status), Message: message, HTTPStatus: status}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidationFailed
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	}
	if status >= 500 {
		return CodeInternal
	}
	return http.StatusText(status)
}
