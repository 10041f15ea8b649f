package donations

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

// POST /api/v1/donations/create-donation
func (h *Handlers) CreateDonation(c *fiber.Ctx) error {
	var body struct {
		PartyID         string  `json:"party_id"`
		TributePartyID  *string `json:"tribute_party_id"`
		AppealPackageID *string `json:"appeal_package_id"`
		ReceivedDate    string  `json:"received_date"`
		IntentAmount    string  `json:"intent_amount"`
		Currency        string  `json:"currency"`
		ReceivedVia     string  `json:"received_via"`
		MatchEligible   bool    `json:"match_eligible"`
		AckStatus       string  `json:"ack_status"`
		Memo            string  `json:"memo"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	partyID, err := uuid.Parse(body.PartyID)
	if err != nil {
		return response.Error(c, "Invalid party_id format", 400, nil)
	}
	amount, err := decimal.NewFromString(body.IntentAmount)
	if err != nil {
		return response.Error(c, "Invalid intent_amount", 400, nil)
	}
	receivedDate, err := validation.ParseDate(body.ReceivedDate)
	if err != nil {
		return response.Error(c, "Invalid received_date, expected YYYY-MM-DD", 400, nil)
	}

	in := CreateDonationInput{
		PartyID:       partyID,
		ReceivedDate:  receivedDate,
		IntentAmount:  amount,
		Currency:      body.Currency,
		ReceivedVia:   body.ReceivedVia,
		MatchEligible: body.MatchEligible,
		AckStatus:     body.AckStatus,
		Memo:          body.Memo,
	}
	if body.TributePartyID != nil && *body.TributePartyID != "" {
		id, err := uuid.Parse(*body.TributePartyID)
		if err != nil {
			return response.Error(c, "Invalid tribute_party_id format", 400, nil)
		}
		in.TributePartyID = &id
	}
	if body.AppealPackageID != nil && *body.AppealPackageID != "" {
		id, err := uuid.Parse(*body.AppealPackageID)
		if err != nil {
			return response.Error(c, "Invalid appeal_package_id format", 400, nil)
		}
		in.AppealPackageID = &id
	}

	donation, err := h.Service.CreateDonation(c.Context(), middleware.GetOrgID(c), in)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Donation created successfully", donation, nil)
}

// GET /api/v1/donations/get-donation/:id
func (h *Handlers) GetDonation(c *fiber.Ctx) error {
	donationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid donation id format", 400, nil)
	}
	view, err := h.Service.GetDonation(c.Context(), middleware.GetOrgID(c), donationID)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Donation fetched successfully", view, nil)
}

// POST /api/v1/donations/allocate/:id
func (h *Handlers) Allocate(c *fiber.Ctx) error {
	donationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid donation id format", 400, nil)
	}

	var body struct {
		Allocations []struct {
			FundID    string  `json:"fund_id"`
			Amount    string  `json:"amount"`
			ProgramID *string `json:"program_id"`
			Notes     string  `json:"notes"`
		} `json:"allocations"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Allocations) == 0 {
		return response.Error(c, "allocations are required", 400, nil)
	}

	lines := make([]AllocationLine, 0, len(body.Allocations))
	for _, a := range body.Allocations {
		fundID, err := uuid.Parse(a.FundID)
		if err != nil {
			return response.Error(c, "Invalid fund_id format", 400, nil)
		}
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil {
			return response.Error(c, "Invalid allocation amount", 400, nil)
		}
		line := AllocationLine{FundID: fundID, Amount: amount, Notes: a.Notes}
		if a.ProgramID != nil && *a.ProgramID != "" {
			pid, err := uuid.Parse(*a.ProgramID)
			if err != nil {
				return response.Error(c, "Invalid program_id format", 400, nil)
			}
			line.ProgramID = &pid
		}
		lines = append(lines, line)
	}

	allocations, err := h.Service.Allocate(c.Context(), middleware.GetOrgID(c), donationID, lines)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Donation allocated successfully", allocations, nil)
}
