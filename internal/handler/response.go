package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookpay/internal/repository"
	"bookpay/internal/service"
)

// ErrorResponse represents an error response. Code is a stable
// machine-readable identifier; Error is a human-readable message that never
// carries secrets or raw provider detail.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are reduced to a generic message; the original error is the
// caller's to log.
func respondError(c *gin.Context, err error) {
	status, code := mapError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "an unexpected error occurred"
	}

	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapError maps service/repository errors to an HTTP status and a stable
// error code.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"

	case errors.Is(err, service.ErrSignatureInvalid):
		return http.StatusUnauthorized, "SIGNATURE_INVALID"
	case errors.Is(err, service.ErrTimestampExpired):
		return http.StatusUnauthorized, "TIMESTAMP_EXPIRED"
	case errors.Is(err, service.ErrMalformedPayload):
		return http.StatusBadRequest, "MALFORMED_PAYLOAD"

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidPaymentReference),
		errors.Is(err, service.ErrInvalidBookingAmount),
		errors.Is(err, service.ErrInvalidCustomerName):
		return http.StatusBadRequest, "INVALID_REQUEST"

	// Provider errors
	case errors.Is(err, service.ErrInvalidReference):
		return http.StatusUnprocessableEntity, "INVALID_REFERENCE"
	case errors.Is(err, service.ErrProviderRejected):
		return http.StatusBadGateway, "PROVIDER_REJECTED"
	case errors.Is(err, service.ErrProviderUnreachable):
		// Retryable: the provider's own retry mechanism re-delivers later.
		return http.StatusServiceUnavailable, "PROVIDER_UNREACHABLE"

	// Conflict errors
	case errors.Is(err, service.ErrTransitionConflict),
		errors.Is(err, repository.ErrStaleState):
		return http.StatusConflict, "TRANSITION_CONFLICT"
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, "DUPLICATE"

	// Retryable contention
	case errors.Is(err, service.ErrLockNotAcquired):
		return http.StatusServiceUnavailable, "RECONCILIATION_BUSY"

	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
