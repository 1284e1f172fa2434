package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookpay/internal/domain"
	"bookpay/internal/redis"
)

// ConfirmRequest contains the parameters for confirming and applying a payment.
type ConfirmRequest struct {
	Reference  string
	BookingID  string
	RawPayload json.RawMessage
	ReceivedAt time.Time
}

// PaymentService orchestrates provider confirmation and reconciliation.
// Both the webhook pipeline and client-triggered verification end up here:
// never trust the push, always re-pull the transaction state.
type PaymentService struct {
	gateway    ProviderGateway
	reconciler *PaymentReconciler
	cache      redis.CacheStoreInterface
	alerts     *AlertService

	maxPendingChecks int64
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	gateway ProviderGateway,
	reconciler *PaymentReconciler,
	cache redis.CacheStoreInterface,
	alerts *AlertService,
	maxPendingChecks int,
) *PaymentService {
	return &PaymentService{
		gateway:          gateway,
		reconciler:       reconciler,
		cache:            cache,
		alerts:           alerts,
		maxPendingChecks: int64(maxPendingChecks),
	}
}

// ConfirmAndApply confirms a reference with the provider and reconciles the
// result with the booking. The provider call happens before any lock is
// taken; only the reconciler's read-decide-write runs under the per-booking
// lock.
func (s *PaymentService) ConfirmAndApply(ctx context.Context, req ConfirmRequest) (*ReconcileResult, *ProviderConfirmation, error) {
	if req.Reference == "" {
		return nil, nil, ErrInvalidPaymentReference
	}
	if req.BookingID == "" {
		return nil, nil, ErrInvalidBookingID
	}

	confirmation, fromCache, err := s.confirm(ctx, req.Reference)
	if err != nil {
		return nil, nil, err
	}

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	event := &domain.PaymentEvent{
		ID:             uuid.New().String(),
		Reference:      req.Reference,
		BookingID:      req.BookingID,
		Amount:         confirmation.Amount,
		Currency:       confirmation.Currency,
		ProviderStatus: confirmation.Status,
		ReceivedAt:     receivedAt,
		RawPayload:     req.RawPayload,
	}

	result, err := s.reconciler.Apply(ctx, event)
	if err != nil {
		return nil, confirmation, err
	}

	s.trackPending(ctx, req.BookingID, confirmation, fromCache)

	return result, confirmation, nil
}

// confirm asks the provider for the transaction state, serving a short-lived
// cached confirmation when one exists so provider redeliveries do not hammer
// the status API. The second return value reports whether the confirmation
// came from cache.
func (s *PaymentService) confirm(ctx context.Context, reference string) (*ProviderConfirmation, bool, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetConfirmation(ctx, reference); err == nil && cached != nil {
			if confirmation, ok := confirmationFromCache(cached); ok {
				return confirmation, true, nil
			}
		}
	}

	confirmation, err := s.gateway.Confirm(ctx, reference)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		_ = s.cache.SetConfirmation(ctx, &redis.CachedConfirmation{
			Reference: confirmation.Reference,
			Status:    string(confirmation.Status),
			Amount:    confirmation.Amount.String(),
			Currency:  string(confirmation.Currency),
		})
	}

	return confirmation, false, nil
}

// trackPending counts provider round trips that still report pending and
// escalates to manual review once the budget is exhausted. It runs only after
// a successful reconciliation, so an unknown booking never counts, and a
// cache-served confirmation is a redelivery of an answer already counted,
// not a new check. Terminal statuses clear the counter.
func (s *PaymentService) trackPending(ctx context.Context, bookingID string, confirmation *ProviderConfirmation, fromCache bool) {
	if s.cache == nil {
		return
	}

	target, _ := confirmation.Status.TargetStatus()
	if target != domain.PaymentStatusPending {
		_ = s.cache.ClearPendingChecks(ctx, confirmation.Reference)
		return
	}

	if fromCache {
		return
	}

	checks, err := s.cache.IncrementPendingChecks(ctx, confirmation.Reference)
	if err != nil {
		return
	}
	if checks == s.maxPendingChecks+1 {
		s.alerts.PendingEscalated(ctx, bookingID, confirmation.Reference, checks)
	}
}

func confirmationFromCache(cached *redis.CachedConfirmation) (*ProviderConfirmation, bool) {
	amount, err := decimal.NewFromString(cached.Amount)
	if err != nil {
		return nil, false
	}
	currency, err := domain.ParseCurrency(cached.Currency)
	if err != nil {
		return nil, false
	}
	status := domain.ProviderStatus(cached.Status)
	if _, ok := status.TargetStatus(); !ok {
		return nil, false
	}

	return &ProviderConfirmation{
		Reference: cached.Reference,
		Status:    status,
		Amount:    amount,
		Currency:  currency,
	}, true
}
