package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookpay/internal/domain"
	"bookpay/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, customer_name, service_name, amount, currency, payment_status, last_event_reference, payment_updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.CustomerName,
		booking.ServiceName,
		booking.Amount,
		booking.Currency,
		booking.PaymentStatus,
		booking.LastEventReference,
		booking.PaymentUpdatedAt,
		booking.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return repository.ErrDuplicate
	}

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `
		SELECT id, customer_name, service_name, amount, currency, payment_status, last_event_reference, payment_updated_at, created_at
		FROM bookings WHERE id = $1
	`

	return scanBooking(r.q.QueryRowContext(ctx, query, id))
}

// GetAll retrieves all bookings, newest first.
func (r *BookingRepository) GetAll(ctx context.Context) ([]*domain.Booking, error) {
	query := `
		SELECT id, customer_name, service_name, amount, currency, payment_status, last_event_reference, payment_updated_at, created_at
		FROM bookings ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		var booking domain.Booking
		if err := rows.Scan(
			&booking.ID,
			&booking.CustomerName,
			&booking.ServiceName,
			&booking.Amount,
			&booking.Currency,
			&booking.PaymentStatus,
			&booking.LastEventReference,
			&booking.PaymentUpdatedAt,
			&booking.CreatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, &booking)
	}

	return bookings, rows.Err()
}

// UpdatePaymentState applies a payment transition as a single conditional
// write. The update only succeeds while last_event_reference still matches
// the value the caller read, so concurrent reconciliations on the same
// booking cannot interleave.
func (r *BookingRepository) UpdatePaymentState(ctx context.Context, id string, status domain.PaymentStatus, eventRef string, expectedRef *string, updatedAt time.Time) error {
	query := `
		UPDATE bookings
		SET payment_status = $1, last_event_reference = $2, payment_updated_at = $3
		WHERE id = $4 AND last_event_reference IS NOT DISTINCT FROM $5
	`

	result, err := r.q.ExecContext(ctx, query, status, eventRef, updatedAt, id, expectedRef)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish a missing booking from a concurrent update.
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrStaleState
	}

	return nil
}

func scanBooking(row *sql.Row) (*domain.Booking, error) {
	var booking domain.Booking
	err := row.Scan(
		&booking.ID,
		&booking.CustomerName,
		&booking.ServiceName,
		&booking.Amount,
		&booking.Currency,
		&booking.PaymentStatus,
		&booking.LastEventReference,
		&booking.PaymentUpdatedAt,
		&booking.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &booking, nil
}
