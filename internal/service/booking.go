package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookpay/internal/domain"
	"bookpay/internal/repository"
)

// BookingService handles booking operations.
type BookingService struct {
	bookings repository.BookingRepository
	events   repository.PaymentEventRepository
}

// NewBookingService creates a new BookingService.
func NewBookingService(bookings repository.BookingRepository, events repository.PaymentEventRepository) *BookingService {
	return &BookingService{bookings: bookings, events: events}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	CustomerName string
	ServiceName  string
	Amount       decimal.Decimal
	Currency     domain.Currency
}

// CreateBooking creates a booking in UNPAID state.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, ErrInvalidCustomerName
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidBookingAmount
	}

	now := time.Now().UTC()
	booking := &domain.Booking{
		ID:               uuid.New().String(),
		CustomerName:     strings.TrimSpace(req.CustomerName),
		ServiceName:      strings.TrimSpace(req.ServiceName),
		Amount:           req.Amount,
		Currency:         req.Currency,
		PaymentStatus:    domain.PaymentStatusUnpaid,
		PaymentUpdatedAt: now,
		CreatedAt:        now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	return booking, nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	return s.bookings.GetByID(ctx, bookingID)
}

// GetAllBookings retrieves all bookings.
func (s *BookingService) GetAllBookings(ctx context.Context) ([]*domain.Booking, error) {
	return s.bookings.GetAll(ctx)
}

// GetPaymentTrail retrieves the payment events recorded for a booking.
func (s *BookingService) GetPaymentTrail(ctx context.Context, bookingID string) ([]*domain.PaymentEvent, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	// Ensure the booking exists so an unknown ID is a 404, not an empty list.
	if _, err := s.bookings.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}

	return s.events.ListByBooking(ctx, bookingID)
}
