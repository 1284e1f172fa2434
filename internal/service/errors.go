package service

import "errors"

var (
	// ErrSignatureInvalid is returned when a webhook signature does not verify.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrTimestampExpired is returned when a notification falls outside the freshness window.
	ErrTimestampExpired = errors.New("notification timestamp outside freshness window")

	// ErrMalformedPayload is returned when a webhook payload does not match the expected schema.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrProviderUnreachable is returned when the provider could not be reached
	// after retries. Callers may safely retry later.
	ErrProviderUnreachable = errors.New("payment provider unreachable")

	// ErrProviderRejected is returned when the provider rejected the request.
	// This is terminal and must not be retried.
	ErrProviderRejected = errors.New("payment provider rejected request")

	// ErrInvalidReference is returned when the provider does not know the reference.
	ErrInvalidReference = errors.New("unknown payment reference")

	// ErrTransitionConflict is returned when a verified event demands a payment
	// transition the state machine forbids, e.g. PAID back to PENDING.
	ErrTransitionConflict = errors.New("payment state transition not permitted")

	// ErrLockNotAcquired is returned when the per-booking reconciliation lock
	// could not be acquired within the wait budget. Callers may retry.
	ErrLockNotAcquired = errors.New("booking reconciliation lock not acquired")

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidPaymentReference is returned when the payment reference is empty.
	ErrInvalidPaymentReference = errors.New("invalid payment reference")

	// ErrInvalidBookingAmount is returned when the booking amount is not positive.
	ErrInvalidBookingAmount = errors.New("invalid booking amount")

	// ErrInvalidCustomerName is returned when the customer name is empty.
	ErrInvalidCustomerName = errors.New("invalid customer name")
)
