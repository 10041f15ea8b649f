package crediting

import (
	"beacon-backend/internal/middleware"
	"beacon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/crediting/add-soft-credit
func (h *Handlers) AddSoftCredit(c *fiber.Ctx) error {
	var body struct {
		DonationID        string `json:"donation_id"`
		InfluencerPartyID string `json:"influencer_party_id"`
		Amount            string `json:"amount"`
		Reason            string `json:"reason"`
		Notes             string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	donationID, err := uuid.Parse(body.DonationID)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	influencerID, err := uuid.Parse(body.InfluencerPartyID)
	if err != nil {
		return response.Error(c, "Invalid influencer_party_id format", 400, nil)
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		return response.Error(c, "Invalid amount", 400, nil)
	}

	credit, err := h.Service.AddSoftCredit(c.Context(), middleware.GetOrgID(c), donationID, AddSoftCreditInput{
		InfluencerPartyID: influencerID,
		Amount:            amount,
		Reason:            body.Reason,
		Notes:             body.Notes,
	})
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Soft credit added successfully", credit, nil)
}

// GET /api/v1/crediting/list-soft-credits/:donation_id
func (h *Handlers) ListSoftCredits(c *fiber.Ctx) error {
	donationID, err := uuid.Parse(c.Params("donation_id"))
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	credits, err := h.Service.ListSoftCredits(c.Context(), middleware.GetOrgID(c), donationID)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Soft credits fetched successfully", credits, nil)
}

// POST /api/v1/crediting/submit-claim
func (h *Handlers) SubmitClaim(c *fiber.Ctx) error {
	var body struct {
		DonationID     string `json:"donation_id"`
		MatcherPartyID string `json:"matcher_party_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	donationID, err := uuid.Parse(body.DonationID)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	matcherID, err := uuid.Parse(body.MatcherPartyID)
	if err != nil {
		return response.Error(c, "Invalid matcher_party_id format", 400, nil)
	}

	claim, err := h.Service.SubmitClaim(c.Context(), middleware.GetOrgID(c), donationID, matcherID)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Matching claim submitted successfully", claim, nil)
}

// POST /api/v1/crediting/transition-claim/:id
func (h *Handlers) TransitionClaim(c *fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid claim id format", 400, nil)
	}
	var body struct {
		Status  string `json:"status"`
		Payment *struct {
			Amount     string  `json:"amount"`
			Method     string  `json:"method"`
			GatewayRef *string `json:"gateway_ref"`
		} `json:"payment"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return response.Error(c, "status is required", 400, nil)
	}

	var pay *MatchPaymentInput
	if body.Payment != nil {
		amount, err := decimal.NewFromString(body.Payment.Amount)
		if err != nil {
			return response.Error(c, "Invalid payment amount", 400, nil)
		}
		pay = &MatchPaymentInput{
			Amount:     amount,
			Method:     body.Payment.Method,
			GatewayRef: body.Payment.GatewayRef,
		}
	}

	claim, err := h.Service.TransitionClaim(c.Context(), middleware.GetOrgID(c), claimID, body.Status, pay)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Matching claim transitioned successfully", claim, nil)
}
