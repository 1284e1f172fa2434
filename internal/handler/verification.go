package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookpay/internal/service"
)

// VerificationHandler handles client-triggered payment verification, e.g.
// after a checkout redirect. No push payload exists yet, so signature and
// freshness checks do not apply; the provider confirmation is authoritative.
type VerificationHandler struct {
	payments *service.PaymentService
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(payments *service.PaymentService) *VerificationHandler {
	return &VerificationHandler{payments: payments}
}

// VerifyPaymentRequest is the HTTP request body for manual verification.
type VerifyPaymentRequest struct {
	Reference string `json:"reference"`
	BookingID string `json:"booking_id"`
}

// VerifyPaymentData carries the confirmed transaction details.
type VerifyPaymentData struct {
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Applied  bool   `json:"applied"`
}

// VerifyPaymentResponse is the HTTP response for manual verification.
type VerifyPaymentResponse struct {
	Success bool               `json:"success"`
	Data    *VerifyPaymentData `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// VerifyPayment handles POST /v1/payments/verify
func (h *VerificationHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if req.Reference == "" {
		respondError(c, service.ErrInvalidPaymentReference)
		return
	}
	if req.BookingID == "" {
		respondError(c, service.ErrInvalidBookingID)
		return
	}

	result, confirmation, err := h.payments.ConfirmAndApply(c.Request.Context(), service.ConfirmRequest{
		Reference:  req.Reference,
		BookingID:  req.BookingID,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code := mapError(err)
		c.JSON(status, VerifyPaymentResponse{Success: false, Error: code})
		return
	}

	if result.Conflict {
		c.JSON(http.StatusConflict, VerifyPaymentResponse{Success: false, Error: "TRANSITION_CONFLICT"})
		return
	}

	respondJSON(c, http.StatusOK, VerifyPaymentResponse{
		Success: true,
		Data: &VerifyPaymentData{
			Status:   string(result.Status),
			Amount:   confirmation.Amount.StringFixed(2),
			Currency: string(confirmation.Currency),
			Applied:  result.Applied,
		},
	})
}
