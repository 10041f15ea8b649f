package recurring

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

// POST /api/v1/recurring/create-gift
func (h *Handlers) CreateGift(c *fiber.Ctx) error {
	var body struct {
		PartyID         string `json:"party_id"`
		Amount          string `json:"amount"`
		Currency        string `json:"currency"`
		IntervalUnit    string `json:"interval_unit"`
		IntervalCount   int    `json:"interval_count"`
		NextChargeOn    string `json:"next_charge_on"`
		PaymentMethodID string `json:"payment_method_id"`
		DefaultFundID   string `json:"default_fund_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	partyID, err := uuid.Parse(body.PartyID)
	if err != nil {
		return response.Error(c, "Invalid party_id format", 400, nil)
	}
	methodID, err := uuid.Parse(body.PaymentMethodID)
	if err != nil {
		return response.Error(c, "Invalid payment_method_id format", 400, nil)
	}
	fundID, err := uuid.Parse(body.DefaultFundID)
	if err != nil {
		return response.Error(c, "Invalid default_fund_id format", 400, nil)
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		return response.Error(c, "Invalid amount", 400, nil)
	}
	nextChargeOn, err := validation.ParseDate(body.NextChargeOn)
	if err != nil {
		return response.Error(c, "Invalid next_charge_on, expected YYYY-MM-DD", 400, nil)
	}

	gift, err := h.Service.CreateRecurringGift(c.Context(), middleware.GetOrgID(c), CreateRecurringGiftInput{
		PartyID:         partyID,
		Amount:          amount,
		Currency:        body.Currency,
		IntervalUnit:    body.IntervalUnit,
		IntervalCount:   body.IntervalCount,
		NextChargeOn:    nextChargeOn,
		PaymentMethodID: methodID,
		DefaultFundID:   fundID,
	})
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Recurring gift created successfully", gift, nil)
}

// POST /api/v1/recurring/run-cycle/:id
func (h *Handlers) RunCycle(c *fiber.Ctx) error {
	giftID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid gift id format", 400, nil)
	}
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

	result, err := h.Service.RunCycle(c.Context(), middleware.GetOrgID(c), giftID, asOf)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Cycle run completed", result, nil)
}

// POST /api/v1/recurring/run-due
func (h *Handlers) RunDue(c *fiber.Ctx) error {
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

	results, err := h.Service.RunDue(c.Context(), middleware.GetOrgID(c), asOf)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Due cycles run completed", results, nil)
}
