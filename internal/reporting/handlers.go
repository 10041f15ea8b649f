package reporting

import (
	"time"

	"beacon-backend/internal/middleware"
	"beacon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// GET /api/v1/reporting/revenue-rollup
func (h *Handlers) RevenueRollup(c *fiber.Ctx) error {
	rollups, err := h.Service.GetRevenueRollup(c.Context(), middleware.GetOrgID(c), time.Now().UTC())
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Revenue rollup fetched successfully", rollups, nil)
}

// GET /api/v1/reporting/lifecycle
func (h *Handlers) Lifecycle(c *fiber.Ctx) error {
	stages, err := h.Service.GetLifecycleSnapshot(c.Context(), middleware.GetOrgID(c), time.Now().UTC())
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Lifecycle snapshot fetched successfully", stages, nil)
}

// GET /api/v1/reporting/retention
func (h *Handlers) Retention(c *fiber.Ctx) error {
	rates, err := h.Service.GetRetention(c.Context(), middleware.GetOrgID(c), time.Now().UTC())
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Retention rates fetched successfully", rates, nil)
}
