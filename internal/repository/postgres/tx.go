package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bookpay/internal/repository"
)

// TxManager runs repository operations inside a single database transaction.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx begins a transaction, hands transactional repositories to fn and
// commits when fn succeeds. Any error from fn rolls the whole transaction back.
func (m *TxManager) WithinTx(ctx context.Context, fn func(bookings repository.BookingRepository, events repository.PaymentEventRepository) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(NewBookingRepositoryWithTx(tx), NewPaymentEventRepositoryWithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

var _ repository.UnitOfWork = (*TxManager)(nil)
