package repository

import (
	"context"

	"bookpay/internal/domain"
)

// PaymentEventRepository defines the persistence operations for payment
// events. Events are insert-only and retained for audit and replay detection.
// A payment attempt may produce several observations under one reference
// (pending, then success), so uniqueness is per observation: re-delivery of
// the same reference with the same provider status is a duplicate, while a
// new provider status for a known reference is a new event.
type PaymentEventRepository interface {
	// Create persists a new payment event. Returns ErrDuplicate if an event
	// with the same reference and provider status already exists.
	Create(ctx context.Context, event *domain.PaymentEvent) error

	// ListByBooking retrieves all events recorded for a booking, newest first.
	ListByBooking(ctx context.Context, bookingID string) ([]*domain.PaymentEvent, error)
}
