package payments

import (
	"beacon-backend/internal/domain"
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

// POST /api/v1/payments/record-payment
func (h *Handlers) RecordPayment(c *fiber.Ctx) error {
	var body struct {
		DonationID    string  `json:"donation_id"`
		PaymentDate   string  `json:"payment_date"`
		Amount        string  `json:"amount"`
		Currency      string  `json:"currency"`
		Method        string  `json:"method"`
		GatewayRef    *string `json:"gateway_ref"`
		Status        string  `json:"status"`
		InstallmentID *string `json:"installment_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	donationID, err := uuid.Parse(body.DonationID)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		return response.Error(c, "Invalid amount", 400, nil)
	}

	in := RecordPaymentInput{
		Amount:     amount,
		Currency:   body.Currency,
		Method:     body.Method,
		GatewayRef: body.GatewayRef,
		Status:     body.Status,
		Kind:       domain.PaymentKindDonor,
	}
	if body.PaymentDate != "" {
		date, err := validation.ParseDate(body.PaymentDate)
		if err != nil {
			return response.Error(c, "Invalid payment_date, expected YYYY-MM-DD", 400, nil)
		}
		in.PaymentDate = date
	}
	if body.InstallmentID != nil && *body.InstallmentID != "" {
		instID, err := uuid.Parse(*body.InstallmentID)
		if err != nil {
			return response.Error(c, "Invalid installment_id format", 400, nil)
		}
		in.InstallmentID = &instID
	}

	payment, err := h.Service.RecordPayment(c.Context(), middleware.GetOrgID(c), donationID, in)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Payment recorded successfully", payment, nil)
}

// GET /api/v1/payments/list-payments/:donation_id
func (h *Handlers) ListPayments(c *fiber.Ctx) error {
	donationID, err := uuid.Parse(c.Params("donation_id"))
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	payments, err := h.Service.ListPayments(c.Context(), middleware.GetOrgID(c), donationID)
	if err != nil {
		return response.FromLedgerError(c, err)
	}
	return response.Success(c, "Payments fetched successfully", payments, nil)
}
