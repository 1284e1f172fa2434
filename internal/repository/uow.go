package repository

import "context"

// UnitOfWork runs booking and payment event writes in one transaction, so a
// recorded event and the booking transition it produced commit or roll back
// together. An event row must never outlive a failed transition.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(bookings BookingRepository, events PaymentEventRepository) error) error
}
