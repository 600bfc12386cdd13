package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dicri/evidence-service/internal/api/dto"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/service"
)

// CaseFilesHandler exposes the case file workflow.
type CaseFilesHandler struct {
	service *service.CaseFileService
}

// NewCaseFilesHandler constructs handler.
func NewCaseFilesHandler(caseFileService *service.CaseFileService) *CaseFilesHandler {
	return &CaseFilesHandler{service: caseFileService}
}

// Create POST /api/expedientes.
func (h *CaseFilesHandler) Create(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCaseFileRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	cf, err := h.service.Create(c.UserContext(), req.Input(), act)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewCaseFileResponse(cf))
}

// List GET /api/expedientes.
func (h *CaseFilesHandler) List(c *fiber.Ctx) error {
	filter, err := parseCaseFileQuery(c)
	if err != nil {
		return err
	}
	list, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseFileListResponse(list))
}

// Get GET /api/expedientes/:id.
func (h *CaseFilesHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cf, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseFileResponse(cf))
}

// History GET /api/expedientes/:id/history.
func (h *CaseFilesHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAuditEntryResponses(entries))
}

// Update PUT /api/expedientes/:id.
func (h *CaseFilesHandler) Update(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateCaseFileRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	cf, err := h.service.Update(c.UserContext(), id, req.Patch(), act)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseFileResponse(cf))
}

// Delete DELETE /api/expedientes/:id.
func (h *CaseFilesHandler) Delete(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id, act); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Submit POST /api/expedientes/:id/submit.
func (h *CaseFilesHandler) Submit(c *fiber.Ctx) error {
	return h.transition(c, h.service.Submit)
}

// Approve POST /api/expedientes/:id/approve.
func (h *CaseFilesHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.service.Approve)
}

// Reopen POST /api/expedientes/:id/reopen.
func (h *CaseFilesHandler) Reopen(c *fiber.Ctx) error {
	return h.transition(c, h.service.Reopen)
}

// Reject POST /api/expedientes/:id/reject.
func (h *CaseFilesHandler) Reject(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RejectCaseFileRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	cf, err := h.service.Reject(c.UserContext(), id, req.RejectionReason, act)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseFileResponse(cf))
}

type transitionFunc func(ctx context.Context, id int64, actor domain.Actor) (*domain.CaseFile, error)

func (h *CaseFilesHandler) transition(c *fiber.Ctx, fn transitionFunc) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cf, err := fn(c.UserContext(), id, act)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseFileResponse(cf))
}

func parseCaseFileQuery(c *fiber.Ctx) (service.CaseFileFilter, error) {
	var (
		filter service.CaseFileFilter
		err    error
	)
	if status := c.Query("status"); status != "" {
		s := domain.CaseFileStatus(status)
		filter.Status = &s
	}
	if filter.TechnicianID, err = queryInt64(c, "technician_id"); err != nil {
		return filter, err
	}
	if filter.CoordinatorID, err = queryInt64(c, "coordinator_id"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryDate(c, "start_date", false); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryDate(c, "end_date", true); err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset, err = pagination(c)
	return filter, err
}
