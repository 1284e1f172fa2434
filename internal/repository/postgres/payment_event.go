package postgres

import (
	"context"
	"database/sql"

	"bookpay/internal/domain"
	"bookpay/internal/repository"
)

// PaymentEventRepository is a PostgreSQL implementation of repository.PaymentEventRepository.
type PaymentEventRepository struct {
	q Querier
}

// NewPaymentEventRepository creates a new PostgreSQL payment event repository.
func NewPaymentEventRepository(db *sql.DB) *PaymentEventRepository {
	return &PaymentEventRepository{q: db}
}

// NewPaymentEventRepositoryWithTx creates a payment event repository using a transaction.
func NewPaymentEventRepositoryWithTx(tx *sql.Tx) *PaymentEventRepository {
	return &PaymentEventRepository{q: tx}
}

// Create persists a new payment event. A unique index on
// (reference, provider_status) makes re-delivery of the same observation
// surface as ErrDuplicate, while a pending attempt that later settles under
// the same reference inserts a fresh row.
func (r *PaymentEventRepository) Create(ctx context.Context, event *domain.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (id, reference, booking_id, amount, currency, provider_status, received_at, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.Reference,
		event.BookingID,
		event.Amount,
		event.Currency,
		event.ProviderStatus,
		event.ReceivedAt,
		[]byte(event.RawPayload),
	)
	if err != nil && isUniqueViolation(err) {
		return repository.ErrDuplicate
	}

	return err
}

// ListByBooking retrieves all events recorded for a booking, newest first.
func (r *PaymentEventRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.PaymentEvent, error) {
	query := `
		SELECT id, reference, booking_id, amount, currency, provider_status, received_at, raw_payload
		FROM payment_events WHERE booking_id = $1 ORDER BY received_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.PaymentEvent
	for rows.Next() {
		var event domain.PaymentEvent
		if err := rows.Scan(
			&event.ID,
			&event.Reference,
			&event.BookingID,
			&event.Amount,
			&event.Currency,
			&event.ProviderStatus,
			&event.ReceivedAt,
			&event.RawPayload,
		); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}
