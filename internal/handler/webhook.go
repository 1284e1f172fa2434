package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookpay/internal/service"
)

// signatureHeader carries the provider's HMAC digest, optionally prefixed
// with an algorithm tag (e.g. "sha512=").
const signatureHeader = "X-Webhook-Signature"

// maxWebhookBody bounds how much of an untrusted request body is read.
const maxWebhookBody = 1 << 20

// WebhookHandler handles inbound payment provider callbacks.
type WebhookHandler struct {
	payments        *service.PaymentService
	secret          string
	freshnessWindow time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(payments *service.PaymentService, secret string, freshnessWindow time.Duration) *WebhookHandler {
	if freshnessWindow <= 0 {
		freshnessWindow = service.DefaultFreshnessWindow
	}
	return &WebhookHandler{
		payments:        payments,
		secret:          secret,
		freshnessWindow: freshnessWindow,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// webhookPayload is the expected notification schema. The event field tags
// the notification kind; anything outside the known set is malformed, never
// silently coerced.
type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		BookingID string `json:"booking_id"`
	} `json:"data"`
	Timestamp string `json:"timestamp"`
}

var knownWebhookEvents = map[string]struct{}{
	"charge.success":   {},
	"charge.failed":    {},
	"charge.pending":   {},
	"charge.abandoned": {},
	"refund.processed": {},
}

func (p webhookPayload) validate() bool {
	if _, ok := knownWebhookEvents[p.Event]; !ok {
		return false
	}
	return p.Data.Reference != "" && p.Data.BookingID != "" && p.Timestamp != ""
}

// ReceiveProviderWebhook handles POST /v1/payments/webhook
//
// Pipeline: signature -> schema -> freshness -> sanitize -> provider
// confirmation -> reconciliation. Signature and freshness failures are
// resolved here and never reach the reconciler. The response is quick;
// idempotent reconciliation is what makes provider-side retries safe.
func (h *WebhookHandler) ReceiveProviderWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, service.ErrMalformedPayload)
		return
	}

	if !service.VerifySignature(body, c.GetHeader(signatureHeader), h.secret) {
		log.Printf("webhook signature verification failed")
		respondError(c, service.ErrSignatureInvalid)
		return
	}

	payload, sanitized, err := parseWebhookBody(body)
	if err != nil {
		respondError(c, err)
		return
	}

	eventTime, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		respondError(c, service.ErrMalformedPayload)
		return
	}
	now := h.now()
	if !service.IsFresh(eventTime, now, h.freshnessWindow) {
		log.Printf("stale webhook rejected reference=%s age=%s", payload.Data.Reference, now.Sub(eventTime))
		respondError(c, service.ErrTimestampExpired)
		return
	}

	result, _, err := h.payments.ConfirmAndApply(c.Request.Context(), service.ConfirmRequest{
		Reference:  payload.Data.Reference,
		BookingID:  payload.Data.BookingID,
		RawPayload: sanitized,
		ReceivedAt: now,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Conflict {
		// Recorded but not applied. A 2xx stops provider redelivery; the
		// conflict is surfaced to operators out of band.
		respondJSON(c, http.StatusOK, gin.H{"status": "conflict"})
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// parseWebhookBody validates the notification schema and produces the
// sanitized payload that will be persisted.
func parseWebhookBody(body []byte) (*webhookPayload, []byte, error) {
	sanitized, err := service.SanitizeJSON(body)
	if err != nil {
		return nil, nil, service.ErrMalformedPayload
	}

	var payload webhookPayload
	if err := json.Unmarshal(sanitized, &payload); err != nil {
		return nil, nil, service.ErrMalformedPayload
	}
	if !payload.validate() {
		return nil, nil, service.ErrMalformedPayload
	}

	return &payload, sanitized, nil
}
