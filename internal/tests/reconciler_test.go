package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bookpay/internal/domain"
	"bookpay/internal/repository"
	"bookpay/internal/service"
)

func newTestReconciler(bookings *MockBookingRepository, events *MockPaymentEventRepository, locks *MockLockStore, notifier *MockNotifier) *service.PaymentReconciler {
	return service.NewPaymentReconciler(
		NewMockUnitOfWork(bookings, events),
		locks,
		service.NewAlertService(notifier),
		service.NewReceiptService(),
	)
}

func unpaidBooking(id string) *domain.Booking {
	now := time.Now().UTC()
	return &domain.Booking{
		ID:               id,
		CustomerName:     "Jane Wanjiku",
		ServiceName:      "Haircut",
		Amount:           decimal.NewFromInt(1000),
		Currency:         domain.CurrencyKES,
		PaymentStatus:    domain.PaymentStatusUnpaid,
		PaymentUpdatedAt: now,
		CreatedAt:        now,
	}
}

func successEvent(reference, bookingID string) *domain.PaymentEvent {
	return &domain.PaymentEvent{
		ID:             reference + "-event",
		Reference:      reference,
		BookingID:      bookingID,
		Amount:         decimal.NewFromInt(1000),
		Currency:       domain.CurrencyKES,
		ProviderStatus: domain.ProviderStatusSuccess,
		ReceivedAt:     time.Now().UTC(),
		RawPayload:     []byte(`{}`),
	}
}

func TestReconciler_AppliesSuccessEvent(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	result, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Applied {
		t.Error("expected event to be applied")
	}
	if result.Status != domain.PaymentStatusPaid {
		t.Errorf("expected status PAID, got %s", result.Status)
	}
	if result.Receipt == nil {
		t.Error("expected receipt on first transition to PAID")
	}

	booking := bookings.GetBooking("booking-1")
	if booking.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected booking PAID, got %s", booking.PaymentStatus)
	}
	if booking.LastEventReference == nil || *booking.LastEventReference != "ref-1" {
		t.Error("expected last event reference updated")
	}
}

func TestReconciler_DuplicateDeliveryIsNoOp(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	first, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Applied {
		t.Fatal("expected first apply to succeed")
	}

	updatedAt := bookings.GetBooking("booking-1").PaymentUpdatedAt

	second, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Applied {
		t.Error("expected duplicate delivery to be a no-op")
	}
	if second.Status != domain.PaymentStatusPaid {
		t.Errorf("expected status PAID after duplicate, got %s", second.Status)
	}
	if events.CountEvents() != 1 {
		t.Errorf("expected 1 event record, got %d", events.CountEvents())
	}
	if !bookings.GetBooking("booking-1").PaymentUpdatedAt.Equal(updatedAt) {
		t.Error("expected booking state unchanged after duplicate")
	}
}

func TestReconciler_RejectsBackwardTransition(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	if _, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A later failed event under a different reference must not revert PAID.
	failed := successEvent("ref-2", "booking-1")
	failed.ProviderStatus = domain.ProviderStatusFailed

	result, err := reconciler.Apply(context.Background(), failed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied {
		t.Error("expected backward transition to be rejected")
	}
	if !result.Conflict {
		t.Error("expected conflict to be reported")
	}
	if bookings.GetBooking("booking-1").PaymentStatus != domain.PaymentStatusPaid {
		t.Error("expected booking to stay PAID")
	}

	// The conflicting event is still recorded for audit.
	if events.CountEvents() != 2 {
		t.Errorf("expected 2 event records, got %d", events.CountEvents())
	}

	alerts := notifier.Alerts()
	if len(alerts) != 1 || alerts[0].Type != service.AlertTransitionConflict {
		t.Errorf("expected a transition conflict alert, got %v", alerts)
	}
}

func TestReconciler_RefundAfterPaid(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	if _, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refund := successEvent("ref-2", "booking-1")
	refund.ProviderStatus = domain.ProviderStatusRefunded

	result, err := reconciler.Apply(context.Background(), refund)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Applied || result.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refund applied, got %+v", result)
	}
}

func TestReconciler_RefundRequiresPaid(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	refund := successEvent("ref-1", "booking-1")
	refund.ProviderStatus = domain.ProviderStatusRefunded

	result, err := reconciler.Apply(context.Background(), refund)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied || !result.Conflict {
		t.Errorf("expected refund of unpaid booking to conflict, got %+v", result)
	}
}

func TestReconciler_FailedThenRetryPays(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	failed := successEvent("ref-1", "booking-1")
	failed.ProviderStatus = domain.ProviderStatusFailed
	if _, err := reconciler.Apply(context.Background(), failed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := reconciler.Apply(context.Background(), successEvent("ref-2", "booking-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Applied || result.Status != domain.PaymentStatusPaid {
		t.Errorf("expected retry under a new reference to pay, got %+v", result)
	}
}

func TestReconciler_BookingNotFound(t *testing.T) {
	t.Parallel()

	reconciler := newTestReconciler(NewMockBookingRepository(), NewMockPaymentEventRepository(), NewMockLockStore(), NewMockNotifier())

	_, err := reconciler.Apply(context.Background(), successEvent("ref-1", "missing"))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReconciler_LockContention(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	locks := NewMockLockStore()
	bookings.AddBooking(unpaidBooking("booking-1"))
	locks.Hold("booking-1")

	reconciler := newTestReconciler(bookings, NewMockPaymentEventRepository(), locks, NewMockNotifier())

	_, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1"))
	if !errors.Is(err, service.ErrLockNotAcquired) {
		t.Errorf("expected ErrLockNotAcquired, got %v", err)
	}
}

func TestReconciler_ReleasesLockOnFailure(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()

	bookings.AddBooking(unpaidBooking("booking-1"))
	events.CreateError = errors.New("storage down")

	reconciler := newTestReconciler(bookings, events, locks, NewMockNotifier())

	if _, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1")); err == nil {
		t.Fatal("expected error from event store")
	}

	if locks.ReleaseCallCount == 0 {
		t.Error("expected lock released on failure path")
	}

	// The booking must be reconcilable again once storage recovers.
	events.CreateError = nil
	result, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1"))
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if !result.Applied {
		t.Error("expected apply to succeed after recovery")
	}
}

func TestReconciler_RunsToCompletionOnCancelledContext(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	reconciler := newTestReconciler(bookings, NewMockPaymentEventRepository(), NewMockLockStore(), NewMockNotifier())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller disconnected before reconciliation started

	result, err := reconciler.Apply(ctx, successEvent("ref-1", "booking-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Applied {
		t.Error("expected reconciliation to complete despite cancelled context")
	}
}

func TestReconciler_PendingThenSettlesUnderSameReference(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	pending := successEvent("ref-1", "booking-1")
	pending.ProviderStatus = domain.ProviderStatusPending

	first, err := reconciler.Apply(context.Background(), pending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Applied || first.Status != domain.PaymentStatusPending {
		t.Fatalf("expected booking to go PENDING, got %+v", first)
	}

	// The provider settles the same attempt: same reference, new status.
	settled := successEvent("ref-1", "booking-1")

	second, err := reconciler.Apply(context.Background(), settled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !second.Applied {
		t.Error("expected settlement under the same reference to be applied")
	}
	if second.Status != domain.PaymentStatusPaid {
		t.Errorf("expected status PAID after settlement, got %s", second.Status)
	}
	if second.Receipt == nil {
		t.Error("expected receipt on settlement to PAID")
	}
	if bookings.GetBooking("booking-1").PaymentStatus != domain.PaymentStatusPaid {
		t.Error("expected booking PAID after settlement")
	}

	// Both observations stay on the trail: the pending one and the settled one.
	if events.CountEvents() != 2 {
		t.Errorf("expected 2 event records, got %d", events.CountEvents())
	}
}

func TestReconciler_PendingRedeliveryAfterPaidIsNoOp(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()
	notifier := NewMockNotifier()

	bookings.AddBooking(unpaidBooking("booking-1"))
	reconciler := newTestReconciler(bookings, events, locks, notifier)

	pending := successEvent("ref-1", "booking-1")
	pending.ProviderStatus = domain.ProviderStatusPending
	if _, err := reconciler.Apply(context.Background(), pending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A stale redelivery of the pending observation arrives after settlement.
	stale := successEvent("ref-1", "booking-1")
	stale.ProviderStatus = domain.ProviderStatusPending

	result, err := reconciler.Apply(context.Background(), stale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied {
		t.Error("expected stale pending redelivery to be a no-op")
	}
	if result.Conflict {
		t.Error("stale redelivery must not be reported as a conflict")
	}
	if bookings.GetBooking("booking-1").PaymentStatus != domain.PaymentStatusPaid {
		t.Error("expected booking to stay PAID")
	}
	if events.CountEvents() != 2 {
		t.Errorf("expected 2 event records, got %d", events.CountEvents())
	}
	if len(notifier.Alerts()) != 0 {
		t.Errorf("expected no alerts, got %v", notifier.Alerts())
	}
}

func TestReconciler_TransientUpdateFailureKeepsNothing(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	events := NewMockPaymentEventRepository()
	locks := NewMockLockStore()

	bookings.AddBooking(unpaidBooking("booking-1"))
	bookings.UpdateStateError = errors.New("connection reset")

	reconciler := newTestReconciler(bookings, events, locks, NewMockNotifier())

	if _, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1")); err == nil {
		t.Fatal("expected error when the state update fails")
	}

	// The event insert rolls back with the failed transition, so the
	// redelivery is not mistaken for a duplicate.
	if events.CountEvents() != 0 {
		t.Errorf("expected no event records after rollback, got %d", events.CountEvents())
	}
	if bookings.GetBooking("booking-1").PaymentStatus != domain.PaymentStatusUnpaid {
		t.Error("expected booking unchanged after rollback")
	}

	bookings.UpdateStateError = nil
	result, err := reconciler.Apply(context.Background(), successEvent("ref-1", "booking-1"))
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if !result.Applied || result.Status != domain.PaymentStatusPaid {
		t.Errorf("expected redelivery to apply after recovery, got %+v", result)
	}
	if events.CountEvents() != 1 {
		t.Errorf("expected 1 event record after recovery, got %d", events.CountEvents())
	}
}
