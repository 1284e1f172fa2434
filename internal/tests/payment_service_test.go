package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bookpay/internal/domain"
	"bookpay/internal/service"
)

func newTestPaymentService(gateway service.ProviderGateway, bookings *MockBookingRepository, events *MockPaymentEventRepository, cache *MockCacheStore, notifier *MockNotifier, maxPending int) *service.PaymentService {
	alerts := service.NewAlertService(notifier)
	reconciler := service.NewPaymentReconciler(NewMockUnitOfWork(bookings, events), NewMockLockStore(), alerts, service.NewReceiptService())
	return service.NewPaymentService(gateway, reconciler, cache, alerts, maxPending)
}

func pendingConfirmation(reference string) *service.ProviderConfirmation {
	return &service.ProviderConfirmation{
		Reference: reference,
		Status:    domain.ProviderStatusPending,
		Amount:    decimal.NewFromInt(1000),
		Currency:  domain.CurrencyKES,
	}
}

func TestPaymentService_ConfirmAndApply(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	gateway := NewMockProviderGateway()
	gateway.Confirmation = &service.ProviderConfirmation{
		Status:   domain.ProviderStatusSuccess,
		Amount:   decimal.NewFromInt(1000),
		Currency: domain.CurrencyKES,
	}

	svc := newTestPaymentService(gateway, bookings, NewMockPaymentEventRepository(), NewMockCacheStore(), NewMockNotifier(), 5)

	result, confirmation, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
		Reference: "ref-1",
		BookingID: "booking-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Applied || result.Status != domain.PaymentStatusPaid {
		t.Errorf("expected applied PAID result, got %+v", result)
	}
	if confirmation.Status != domain.ProviderStatusSuccess {
		t.Errorf("unexpected confirmation status %s", confirmation.Status)
	}
}

func TestPaymentService_ProviderErrorStopsPipeline(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	events := NewMockPaymentEventRepository()
	gateway := NewMockProviderGateway()
	gateway.ConfirmError = service.ErrProviderUnreachable

	svc := newTestPaymentService(gateway, bookings, events, NewMockCacheStore(), NewMockNotifier(), 5)

	_, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
		Reference: "ref-1",
		BookingID: "booking-1",
	})
	if !errors.Is(err, service.ErrProviderUnreachable) {
		t.Errorf("expected ErrProviderUnreachable, got %v", err)
	}

	if events.CountEvents() != 0 {
		t.Error("expected no event recorded when provider is unreachable")
	}
	if bookings.GetBooking("booking-1").PaymentStatus != domain.PaymentStatusUnpaid {
		t.Error("expected booking untouched when provider is unreachable")
	}
}

func TestPaymentService_CachesConfirmation(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	gateway := NewMockProviderGateway()
	gateway.Confirmation = &service.ProviderConfirmation{
		Status:   domain.ProviderStatusSuccess,
		Amount:   decimal.NewFromInt(1000),
		Currency: domain.CurrencyKES,
	}
	cache := NewMockCacheStore()

	svc := newTestPaymentService(gateway, bookings, NewMockPaymentEventRepository(), cache, NewMockNotifier(), 5)

	for i := 0; i < 3; i++ {
		if _, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
			Reference: "ref-1",
			BookingID: "booking-1",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := gateway.ConfirmCallCount; got != 1 {
		t.Errorf("expected 1 provider call with warm cache, got %d", got)
	}
}

func TestPaymentService_PendingEscalation(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	gateway := NewMockProviderGateway()
	gateway.Confirmation = pendingConfirmation("")

	cache := NewMockCacheStore()
	notifier := NewMockNotifier()
	events := NewMockPaymentEventRepository()

	maxPending := 2
	svc := newTestPaymentService(gateway, bookings, events, cache, notifier, maxPending)

	// Re-check the same reference until the budget is exhausted. Each check
	// clears the cached confirmation to force a real provider call.
	for i := 0; i < maxPending+1; i++ {
		cache.DropConfirmation("ref-pending")
		if _, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
			Reference: "ref-pending",
			BookingID: "booking-1",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var escalated bool
	for _, alert := range notifier.Alerts() {
		if alert.Type == service.AlertPendingEscalated {
			escalated = true
		}
	}
	if !escalated {
		t.Error("expected a pending escalation alert after budget exhaustion")
	}
}

func TestPaymentService_TerminalStatusClearsPendingCounter(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	gateway := NewMockProviderGateway()
	gateway.Confirmation = pendingConfirmation("")

	cache := NewMockCacheStore()
	svc := newTestPaymentService(gateway, bookings, NewMockPaymentEventRepository(), cache, NewMockNotifier(), 5)

	if _, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
		Reference: "ref-1",
		BookingID: "booking-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.PendingChecks("ref-1") != 1 {
		t.Fatal("expected pending counter incremented")
	}

	// The provider eventually settles the charge.
	gateway.Confirmation = &service.ProviderConfirmation{
		Status:   domain.ProviderStatusSuccess,
		Amount:   decimal.NewFromInt(1000),
		Currency: domain.CurrencyKES,
	}
	cache.DropConfirmation("ref-1")

	if _, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
		Reference: "ref-1",
		BookingID: "booking-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cache.PendingChecks("ref-1") != 0 {
		t.Error("expected pending counter cleared after terminal status")
	}
}

func TestPaymentService_PendingSettlementAppliesUnderSameReference(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	gateway := NewMockProviderGateway()
	gateway.Confirmation = pendingConfirmation("")

	cache := NewMockCacheStore()
	svc := newTestPaymentService(gateway, bookings, NewMockPaymentEventRepository(), cache, NewMockNotifier(), 5)

	first, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
		Reference: "ref-1",
		BookingID: "booking-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Applied || first.Status != domain.PaymentStatusPending {
		t.Fatalf("expected booking to go PENDING, got %+v", first)
	}

	// The same attempt settles: the provider now reports success for the
	// reference that previously confirmed as pending.
	gateway.Confirmation = &service.ProviderConfirmation{
		Status:   domain.ProviderStatusSuccess,
		Amount:   decimal.NewFromInt(1000),
		Currency: domain.CurrencyKES,
	}
	cache.DropConfirmation("ref-1")

	second, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
		Reference: "ref-1",
		BookingID: "booking-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !second.Applied || second.Status != domain.PaymentStatusPaid {
		t.Errorf("expected settlement applied as PAID, got %+v", second)
	}
	if bookings.GetBooking("booking-1").PaymentStatus != domain.PaymentStatusPaid {
		t.Error("expected booking PAID after settlement")
	}
}

func TestPaymentService_CachedPendingRedeliveryNotCounted(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingRepository()
	bookings.AddBooking(unpaidBooking("booking-1"))

	gateway := NewMockProviderGateway()
	gateway.Confirmation = pendingConfirmation("")

	cache := NewMockCacheStore()
	svc := newTestPaymentService(gateway, bookings, NewMockPaymentEventRepository(), cache, NewMockNotifier(), 5)

	// Only the first call reaches the provider; the rest replay the cached
	// confirmation and must not burn the escalation budget.
	for i := 0; i < 4; i++ {
		if _, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
			Reference: "ref-1",
			BookingID: "booking-1",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := cache.PendingChecks("ref-1"); got != 1 {
		t.Errorf("expected 1 pending check for a single provider confirmation, got %d", got)
	}
}

func TestPaymentService_PendingNotCountedForUnknownBooking(t *testing.T) {
	t.Parallel()

	gateway := NewMockProviderGateway()
	gateway.Confirmation = pendingConfirmation("")

	cache := NewMockCacheStore()
	svc := newTestPaymentService(gateway, NewMockBookingRepository(), NewMockPaymentEventRepository(), cache, NewMockNotifier(), 5)

	_, _, err := svc.ConfirmAndApply(context.Background(), service.ConfirmRequest{
		Reference: "ref-1",
		BookingID: "missing",
	})
	if err == nil {
		t.Fatal("expected error for unknown booking")
	}

	if got := cache.PendingChecks("ref-1"); got != 0 {
		t.Errorf("expected no pending checks for unknown booking, got %d", got)
	}
}
