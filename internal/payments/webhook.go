package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/pkg/ledgererr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WebhookHandler receives settlement notifications from the payment gateway
// and posts them through the reconciler.
type WebhookHandler struct {
	Service       *Service
	WebhookSecret string
}

type gatewayEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type chargeObject struct {
	Ref            string            `json:"ref"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	Method         string            `json:"method"`
	OrganizationID string            `json:"organization_id"`
	DonationID     string            `json:"donation_id"`
	Metadata       map[string]string `json:"metadata"`
}

// HandleWebhook POST /api/v1/gateway/webhook — raw body, signature
// verification, then process. Domain errors still return 200 so the gateway
// does not retry what the ledger has deliberately rejected.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Gateway-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Gateway webhook received empty body")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	if err := verifyGatewaySignature(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Gateway webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event gatewayEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("Gateway webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var status string
	switch event.Type {
	case "charge.settled":
		status = domain.PaymentSettled
	case "charge.refunded":
		status = domain.PaymentRefunded
	default:
		return c.Status(200).SendString("ok")
	}

	var charge chargeObject
	if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
		return c.Status(200).SendString("ok")
	}

	if err := wh.processCharge(c, charge, status, rawBody); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Str("gateway_ref", charge.Ref).Msg("Gateway webhook charge rejected")
		return c.Status(200).SendString("ok")
	}
	return c.Status(200).SendString("ok")
}

func (wh *WebhookHandler) processCharge(c *fiber.Ctx, charge chargeObject, status string, rawBody []byte) error {
	if charge.Ref == "" || charge.DonationID == "" || charge.OrganizationID == "" {
		return nil // malformed metadata, skip silently
	}
	orgID, err := uuid.Parse(charge.OrganizationID)
	if err != nil {
		return nil
	}
	donationID, err := uuid.Parse(charge.DonationID)
	if err != nil {
		return nil
	}
	amount, err := decimal.NewFromString(charge.Amount)
	if err != nil || !amount.IsPositive() {
		return nil
	}

	// Idempotency: a ref the ledger already holds was processed on a
	// previous delivery.
	var existing domain.Payment
	if err := wh.Service.DB.WithContext(c.Context()).Where("gateway_ref = ?", charge.Ref).First(&existing).Error; err == nil {
		return nil
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	method := charge.Method
	if method == "" {
		method = "card"
	}
	in := RecordPaymentInput{
		PaymentDate:     time.Now().UTC(),
		Amount:          amount,
		Currency:        strings.ToUpper(charge.Currency),
		Method:          method,
		GatewayRef:      &charge.Ref,
		Status:          status,
		Kind:            domain.PaymentKindDonor,
		RawGatewayEvent: rawBody,
	}
	if instStr := charge.Metadata["installment_id"]; instStr != "" {
		if instID, err := uuid.Parse(instStr); err == nil && status == domain.PaymentSettled {
			in.InstallmentID = &instID
		}
	}

	_, err = wh.Service.RecordPayment(c.Context(), orgID, donationID, in)
	if err != nil && ledgererr.IsKind(err, ledgererr.NotFound) {
		return nil // unknown donation: not ours to retry
	}
	return err
}

// verifyGatewaySignature verifies the Gateway-Signature header
// ("t=<unix>,v1=<hex hmac-sha256 of t.body>") against the webhook secret.
func verifyGatewaySignature(payload []byte, sigHeader, secret string) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string

	parts := strings.Split(sigHeader, ",")
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedSig)) {
			// Replay tolerance (5 minutes)
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return errors.New("invalid timestamp")
			}
			diff := time.Now().Unix() - ts
			if diff < 0 {
				diff = -diff
			}
			if diff > 300 {
				return errors.New("timestamp too old")
			}
			return nil
		}
	}

	return errors.New("signature mismatch")
}
