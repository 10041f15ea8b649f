package funds

import (
	"beacon-backend/internal/middleware"
	"beacon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/funds/create-fund
func (h *Handlers) CreateFund(c *fiber.Ctx) error {
	var body struct {
		Name        string  `json:"name"`
		Code        string  `json:"code"`
		Restriction string  `json:"restriction"`
		ProgramID   *string `json:"program_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	in := CreateFundInput{Name: body.Name, Code: body.Code, Restriction: body.Restriction}
	if body.ProgramID != nil && *body.ProgramID != "" {
		pid, err := uuid.Parse(*body.ProgramID)
		if err != nil {
			return response.Error(c, "Invalid program_id format", 400, nil)
		}
		in.ProgramID = &pid
	}

	fund, err := h.Service.CreateFund(c.Context(), middleware.GetOrgID(c), in)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Fund created successfully", fund, nil)
}

// GET /api/v1/funds/list-funds
func (h *Handlers) ListFunds(c *fiber.Ctx) error {
	funds, err := h.Service.ListFunds(c.Context(), middleware.GetOrgID(c))
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Funds fetched successfully", funds, nil)
}

// PATCH /api/v1/funds/update-fund/:id
func (h *Handlers) UpdateFund(c *fiber.Ctx) error {
	fundID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid fund id format", 400, nil)
	}
	var body struct {
		Name        *string `json:"name"`
		Restriction *string `json:"restriction"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	fund, err := h.Service.UpdateFund(c.Context(), middleware.GetOrgID(c), fundID, UpdateFundInput{
		Name:        body.Name,
		Restriction: body.Restriction,
	})
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Fund updated successfully", fund, nil)
}
