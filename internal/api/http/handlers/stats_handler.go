package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dicri/evidence-service/internal/service"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// StatsHandler serves the reporting endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: statsService}
}

// General handles GET /api/stats/general?start_date=&end_date=.
func (h *StatsHandler) General(c *fiber.Ctx) error {
	from, err := queryDate(c, "start_date", false)
	if err != nil {
		return err
	}
	to, err := queryDate(c, "end_date", true)
	if err != nil {
		return err
	}
	stats, err := h.stats.General(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, stats)
}

// Technicians handles GET /api/stats/technicians.
func (h *StatsHandler) Technicians(c *fiber.Ctx) error {
	from, err := queryDate(c, "start_date", false)
	if err != nil {
		return err
	}
	to, err := queryDate(c, "end_date", true)
	if err != nil {
		return err
	}
	stats, err := h.stats.ByTechnician(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, stats)
}

// ByStatus handles GET /api/stats/by-status.
func (h *StatsHandler) ByStatus(c *fiber.Ctx) error {
	stats, err := h.stats.ByStatus(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, stats)
}

// Monthly handles GET /api/stats/monthly/:year?. Without a year the current
// one is reported.
func (h *StatsHandler) Monthly(c *fiber.Ctx) error {
	year := 0
	if raw := c.Params("year"); raw != "" {
		parsed, err := c.ParamsInt("year")
		if err != nil {
			return apperrors.NewValidationError("year must be an integer", map[string]any{"param": "year"})
		}
		year = parsed
	}
	stats, err := h.stats.Monthly(c.UserContext(), year)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, stats)
}
