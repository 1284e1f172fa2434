package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderStatus is the transaction status reported by the payment provider.
type ProviderStatus string

const (
	ProviderStatusSuccess   ProviderStatus = "success"
	ProviderStatusFailed    ProviderStatus = "failed"
	ProviderStatusPending   ProviderStatus = "pending"
	ProviderStatusAbandoned ProviderStatus = "abandoned"
	ProviderStatusRefunded  ProviderStatus = "refunded"
)

// TargetStatus maps a provider transaction status to the booking payment
// status it should produce.
func (s ProviderStatus) TargetStatus() (PaymentStatus, bool) {
	switch s {
	case ProviderStatusSuccess:
		return PaymentStatusPaid, true
	case ProviderStatusFailed:
		return PaymentStatusFailed, true
	case ProviderStatusPending, ProviderStatusAbandoned:
		return PaymentStatusPending, true
	case ProviderStatusRefunded:
		return PaymentStatusRefunded, true
	default:
		return "", false
	}
}

// PaymentEvent is one provider notification or verification result.
// Events are insert-only; the provider reference is globally unique per
// payment attempt. One attempt can be observed in several states over its
// life (pending, then success), so the idempotency key is the observation:
// re-delivery of the same reference in the same provider status must never
// create a second event record.
type PaymentEvent struct {
	ID             string
	Reference      string
	BookingID      string
	Amount         decimal.Decimal
	Currency       Currency
	ProviderStatus ProviderStatus
	ReceivedAt     time.Time
	RawPayload     json.RawMessage
}
