package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bookpay/internal/domain"
	"bookpay/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	CustomerName string `json:"customer_name"`
	ServiceName  string `json:"service_name"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	ID                 string  `json:"id"`
	CustomerName       string  `json:"customer_name"`
	ServiceName        string  `json:"service_name"`
	Amount             string  `json:"amount"`
	Currency           string  `json:"currency"`
	PaymentStatus      string  `json:"payment_status"`
	LastEventReference *string `json:"last_event_reference,omitempty"`
	PaymentUpdatedAt   string  `json:"payment_updated_at"`
	CreatedAt          string  `json:"created_at"`
}

// PaymentEventResponse is the HTTP representation of a recorded payment event.
type PaymentEventResponse struct {
	ID             string `json:"id"`
	Reference      string `json:"reference"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	ProviderStatus string `json:"provider_status"`
	ReceivedAt     string `json:"received_at"`
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(c, service.ErrInvalidBookingAmount)
		return
	}

	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_CURRENCY"})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		CustomerName: req.CustomerName,
		ServiceName:  req.ServiceName,
		Amount:       amount,
		Currency:     currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// GetAll handles GET /v1/bookings
func (h *BookingHandler) GetAll(c *gin.Context) {
	bookings, err := h.bookingService.GetAllBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingResponse(booking))
	}

	respondJSON(c, http.StatusOK, out)
}

// GetPaymentTrail handles GET /v1/bookings/:id/events
func (h *BookingHandler) GetPaymentTrail(c *gin.Context) {
	events, err := h.bookingService.GetPaymentTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]PaymentEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, PaymentEventResponse{
			ID:             event.ID,
			Reference:      event.Reference,
			Amount:         event.Amount.StringFixed(2),
			Currency:       string(event.Currency),
			ProviderStatus: string(event.ProviderStatus),
			ReceivedAt:     event.ReceivedAt.Format(time.RFC3339),
		})
	}

	respondJSON(c, http.StatusOK, out)
}

func toBookingResponse(booking *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:                 booking.ID,
		CustomerName:       booking.CustomerName,
		ServiceName:        booking.ServiceName,
		Amount:             booking.Amount.StringFixed(2),
		Currency:           string(booking.Currency),
		PaymentStatus:      string(booking.PaymentStatus),
		LastEventReference: booking.LastEventReference,
		PaymentUpdatedAt:   booking.PaymentUpdatedAt.Format(time.RFC3339),
		CreatedAt:          booking.CreatedAt.Format(time.RFC3339),
	}
}
