package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bookpay/internal/domain"
	"bookpay/internal/redis"
	"bookpay/internal/repository"
)

const (
	// reconcileLockTTL bounds how long a crashed reconciliation can keep a
	// booking locked.
	reconcileLockTTL = 15 * time.Second

	// reconcileLockWait is the total budget for acquiring the per-booking lock.
	reconcileLockWait = 2 * time.Second

	// reconcileLockRetryDelay is the pause between lock acquisition attempts.
	reconcileLockRetryDelay = 50 * time.Millisecond
)

// ReconcileResult is the outcome of applying a payment event to a booking.
type ReconcileResult struct {
	// Applied is false for a duplicate delivery or a rejected transition.
	Applied bool

	// Status is the booking's payment status after reconciliation.
	Status domain.PaymentStatus

	// Conflict is true when the event demanded a transition the state
	// machine forbids. The event is still recorded for audit.
	Conflict bool

	// Receipt is set when the booking transitioned to PAID.
	Receipt *Receipt
}

// PaymentReconciler maps verified payment events onto booking payment state.
// It is the only writer of BookingPaymentState and enforces at-most-once
// application per provider observation.
type PaymentReconciler struct {
	store    repository.UnitOfWork
	locks    redis.LockStoreInterface
	alerts   *AlertService
	receipts *ReceiptService
}

// NewPaymentReconciler creates a new PaymentReconciler.
func NewPaymentReconciler(
	store repository.UnitOfWork,
	locks redis.LockStoreInterface,
	alerts *AlertService,
	receipts *ReceiptService,
) *PaymentReconciler {
	return &PaymentReconciler{
		store:    store,
		locks:    locks,
		alerts:   alerts,
		receipts: receipts,
	}
}

// Apply reconciles a verified payment event with its booking.
//
// The read-decide-write sequence runs under a per-booking distributed lock
// and inside one database transaction, so an event record and the booking
// transition it produced always commit or roll back together. Duplicate
// identity is the observation (reference plus provider status), never the
// reference alone: a pending attempt that later settles arrives under the
// same reference and must still be applied. A duplicate delivery is an
// idempotent no-op, not an error.
func (r *PaymentReconciler) Apply(ctx context.Context, event *domain.PaymentEvent) (*ReconcileResult, error) {
	if event.BookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if event.Reference == "" {
		return nil, ErrInvalidPaymentReference
	}

	target, ok := event.ProviderStatus.TargetStatus()
	if !ok {
		return nil, fmt.Errorf("%w: provider status %q", ErrMalformedPayload, event.ProviderStatus)
	}

	// A reconciliation that has started must run to completion even if the
	// caller disconnects; partial application is forbidden.
	ctx = context.WithoutCancel(ctx)

	if err := r.acquireLock(ctx, event.BookingID); err != nil {
		return nil, err
	}
	defer func() {
		if err := r.locks.ReleaseBookingLock(ctx, event.BookingID); err != nil {
			log.Printf("failed to release booking lock booking=%s: %v", event.BookingID, err)
		}
	}()

	var result *ReconcileResult

	err := r.store.WithinTx(ctx, func(bookings repository.BookingRepository, events repository.PaymentEventRepository) error {
		booking, err := bookings.GetByID(ctx, event.BookingID)
		if err != nil {
			return err
		}

		// Re-delivery of the observation that already produced the current
		// status. A non-terminal status does not consume the reference.
		if booking.LastEventReference != nil && *booking.LastEventReference == event.Reference && booking.PaymentStatus == target {
			result = &ReconcileResult{Applied: false, Status: booking.PaymentStatus}
			return nil
		}

		// Record the observation; the unique index on reference plus
		// provider status turns a replayed delivery into ErrDuplicate.
		if err := events.Create(ctx, event); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				result = &ReconcileResult{Applied: false, Status: booking.PaymentStatus}
				return nil
			}
			return err
		}

		if !booking.PaymentStatus.CanTransitionTo(target) {
			r.alerts.TransitionConflict(ctx, booking.ID, event.Reference,
				string(booking.PaymentStatus), string(target))
			result = &ReconcileResult{Applied: false, Status: booking.PaymentStatus, Conflict: true}
			return nil
		}

		now := time.Now().UTC()
		if err := bookings.UpdatePaymentState(ctx, booking.ID, target, event.Reference, booking.LastEventReference, now); err != nil {
			return err
		}

		result = &ReconcileResult{Applied: true, Status: target}
		if target == domain.PaymentStatusPaid && booking.PaymentStatus != domain.PaymentStatusPaid {
			result.Receipt = r.receipts.Issue(ctx, booking, event)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// acquireLock polls the per-booking lock within the wait budget. Provider
// calls never run under this lock; it covers only read-decide-write.
func (r *PaymentReconciler) acquireLock(ctx context.Context, bookingID string) error {
	deadline := time.Now().Add(reconcileLockWait)

	for {
		ok, err := r.locks.AcquireBookingLock(ctx, bookingID, reconcileLockTTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockNotAcquired
		}
		if err := sleepContext(ctx, reconcileLockRetryDelay); err != nil {
			return ErrLockNotAcquired
		}
	}
}
