package payments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"beacon-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, ts int64) string {
	signed := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func settledEvent(t *testing.T, orgID, donationID, ref string, amount string) []byte {
	body, err := json.Marshal(map[string]interface{}{
		"id":   "evt_" + ref,
		"type": "charge.settled",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"ref":             ref,
				"amount":          amount,
				"currency":        "usd",
				"method":          "card",
				"organization_id": orgID,
				"donation_id":     donationID,
			},
		},
	})
	require.NoError(t, err)
	return body
}

func webhookApp(svc *Service) *fiber.App {
	app := fiber.New()
	wh := &WebhookHandler{Service: svc, WebhookSecret: testWebhookSecret}
	app.Post("/api/v1/gateway/webhook", wh.HandleWebhook)
	return app
}

func postEvent(t *testing.T, app *fiber.App, body []byte, sig string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/gateway/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("Gateway-Signature", sig)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestWebhook_SettlesPayment(t *testing.T) {
	svc, db, orgID, donation := setupPaymentTest(t)
	app := webhookApp(svc)

	body := settledEvent(t, orgID.String(), donation.ID.String(), "ch_100", "250.00")
	postEvent(t, app, body, signPayload(body, testWebhookSecret, time.Now().Unix()))

	var payment domain.Payment
	require.NoError(t, db.First(&payment, "gateway_ref = ?", "ch_100").Error)
	assert.Equal(t, domain.PaymentSettled, payment.Status)
	assert.Equal(t, "USD", payment.Currency)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(250)))
	assert.NotEmpty(t, []byte(payment.RawGatewayEvent))
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	svc, db, orgID, donation := setupPaymentTest(t)
	app := fiber.New()
	wh := &WebhookHandler{Service: svc, WebhookSecret: testWebhookSecret}
	app.Post("/api/v1/gateway/webhook", wh.HandleWebhook)

	body := settledEvent(t, orgID.String(), donation.ID.String(), "ch_bad", "10.00")

	req := httptest.NewRequest("POST", "/api/v1/gateway/webhook", bytes.NewReader(body))
	req.Header.Set("Gateway-Signature", signPayload(body, "wrong_secret", time.Now().Unix()))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	// Stale timestamp fails replay tolerance even with the right secret.
	req = httptest.NewRequest("POST", "/api/v1/gateway/webhook", bytes.NewReader(body))
	req.Header.Set("Gateway-Signature", signPayload(body, testWebhookSecret, time.Now().Add(-10*time.Minute).Unix()))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhook_DuplicateDeliveryIsIdempotent(t *testing.T) {
	svc, db, orgID, donation := setupPaymentTest(t)
	app := webhookApp(svc)

	body := settledEvent(t, orgID.String(), donation.ID.String(), "ch_dup", "250.00")
	sig := signPayload(body, testWebhookSecret, time.Now().Unix())
	postEvent(t, app, body, sig)
	postEvent(t, app, body, sig)

	var count int64
	require.NoError(t, db.Model(&domain.Payment{}).Where("gateway_ref = ?", "ch_dup").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWebhook_DomainRejectionStillAcks(t *testing.T) {
	svc, db, orgID, donation := setupPaymentTest(t)
	app := webhookApp(svc)

	// Over-settles the 250 intent; the ledger rejects it but the gateway
	// must not be told to retry.
	body := settledEvent(t, orgID.String(), donation.ID.String(), "ch_over", "900.00")
	postEvent(t, app, body, signPayload(body, testWebhookSecret, time.Now().Unix()))

	var count int64
	require.NoError(t, db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhook_IgnoresUnknownEventTypes(t *testing.T) {
	svc, db, _, _ := setupPaymentTest(t)
	app := webhookApp(svc)

	body, err := json.Marshal(map[string]interface{}{
		"id": "evt_x", "type": "customer.updated",
		"data": map[string]interface{}{"object": map[string]interface{}{}},
	})
	require.NoError(t, err)
	postEvent(t, app, body, signPayload(body, testWebhookSecret, time.Now().Unix()))

	var count int64
	require.NoError(t, db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}
