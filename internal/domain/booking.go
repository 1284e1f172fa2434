package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current payment state of a booking.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// CanTransitionTo reports whether a booking may move from s to target.
// Transitions are monotonic: a booking never regresses from PAID to
// PENDING or FAILED, and REFUNDED is terminal. A FAILED booking may
// still be paid by a later payment attempt under a new reference.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusUnpaid:
		return target == PaymentStatusPending || target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusPending:
		return target == PaymentStatusPending || target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusPaid:
		return target == PaymentStatusPaid || target == PaymentStatusRefunded
	case PaymentStatusFailed:
		return target == PaymentStatusPending || target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusRefunded:
		return false
	default:
		return false
	}
}

// Booking represents a customer booking awaiting or holding payment.
type Booking struct {
	ID                 string
	CustomerName       string
	ServiceName        string
	Amount             decimal.Decimal
	Currency           Currency
	PaymentStatus      PaymentStatus
	LastEventReference *string
	PaymentUpdatedAt   time.Time
	CreatedAt          time.Time
}
