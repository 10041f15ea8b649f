package pledges

import (
	"beacon-backend/internal/middleware"
	"beacon-backend/internal/pkg/response"
	"beacon-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/pledges/create-pledge
func (h *Handlers) CreatePledge(c *fiber.Ctx) error {
	var body struct {
		PartyID     string `json:"party_id"`
		PledgeDate  string `json:"pledge_date"`
		TotalAmount string `json:"total_amount"`
		Currency    string `json:"currency"`
		Frequency   string `json:"frequency"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Periods     int    `json:"periods"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	partyID, err := uuid.Parse(body.PartyID)
	if err != nil {
		return response.Error(c, "Invalid party_id format", 400, nil)
	}
	total, err := decimal.NewFromString(body.TotalAmount)
	if err != nil {
		return response.Error(c, "Invalid total_amount", 400, nil)
	}
	pledgeDate, err := validation.ParseDate(body.PledgeDate)
	if err != nil {
		return response.Error(c, "Invalid pledge_date, expected YYYY-MM-DD", 400, nil)
	}
	startDate, err := validation.ParseDate(body.StartDate)
	if err != nil {
		return response.Error(c, "Invalid start_date, expected YYYY-MM-DD", 400, nil)
	}
	endDate, err := validation.ParseDate(body.EndDate)
	if err != nil {
		return response.Error(c, "Invalid end_date, expected YYYY-MM-DD", 400, nil)
	}

	view, err := h.Service.CreatePledge(c.Context(), middleware.GetOrgID(c), CreatePledgeInput{
		PartyID:     partyID,
		PledgeDate:  pledgeDate,
		TotalAmount: total,
		Currency:    body.Currency,
		Frequency:   body.Frequency,
		StartDate:   startDate,
		EndDate:     endDate,
		Periods:     body.Periods,
	})
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Pledge created successfully", view, nil)
}

// GET /api/v1/pledges/get-pledge/:id
func (h *Handlers) GetPledge(c *fiber.Ctx) error {
	pledgeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid pledge id format", 400, nil)
	}
	view, err := h.Service.GetPledge(c.Context(), middleware.GetOrgID(c), pledgeID)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Pledge fetched successfully", view, nil)
}

// POST /api/v1/pledges/advance-schedule
func (h *Handlers) AdvanceSchedule(c *fiber.Ctx) error {
	var body struct {
		AsOf string `json:"as_of"`
	}
	if err := c.BodyParser(&body); err != nil || body.AsOf == "" {
		return response.Error(c, "as_of is required", 400, nil)
	}
	asOf, err := validation.ParseDate(body.AsOf)
	if err != nil {
		return response.Error(c, "Invalid as_of, expected YYYY-MM-DD", 400, nil)
	}

	marked, err := h.Service.AdvanceSchedule(c.Context(), middleware.GetOrgID(c), asOf)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Schedule advanced successfully", fiber.Map{"marked_late": marked}, nil)
}
