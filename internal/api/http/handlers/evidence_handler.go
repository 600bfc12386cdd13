package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dicri/evidence-service/internal/api/dto"
	"github.com/dicri/evidence-service/internal/service"
)

// EvidenceHandler exposes evidence item endpoints.
type EvidenceHandler struct {
	service *service.EvidenceService
}

// NewEvidenceHandler constructs handler.
func NewEvidenceHandler(evidenceService *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{service: evidenceService}
}

// Create POST /api/indicios.
func (h *EvidenceHandler) Create(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateEvidenceRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	item, err := h.service.Create(c.UserContext(), req.Input(), act)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewEvidenceItemResponse(item))
}

// Get GET /api/indicios/:id.
func (h *EvidenceHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewEvidenceItemResponse(item))
}

// ListByCaseFile GET /api/indicios/expediente/:id.
func (h *EvidenceHandler) ListByCaseFile(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.service.ListByCaseFile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewEvidenceItemListResponse(items))
}

// Update PUT /api/indicios/:id.
func (h *EvidenceHandler) Update(c *fiber.Ctx) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateEvidenceRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	item, err := h.service.Update(c.UserContext(), id, req.Patch(), act)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewEvidenceItemResponse(item))
}

// Delete DELETE /api/indicios/:id.
func (h *EvidenceHandler) Delete(c *fiber.Ctx) error {
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
