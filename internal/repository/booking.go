package repository

import (
	"context"
	"time"

	"bookpay/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetAll retrieves all bookings.
	GetAll(ctx context.Context) ([]*domain.Booking, error)

	// UpdatePaymentState sets status, last event reference and the update
	// timestamp in a single write, conditional on the reference the caller
	// read (expectedRef, nil meaning none). Returns ErrStaleState when the
	// row no longer matches and ErrNotFound when the booking is absent.
	UpdatePaymentState(ctx context.Context, id string, status domain.PaymentStatus, eventRef string, expectedRef *string, updatedAt time.Time) error
}
