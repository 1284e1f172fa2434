package service

import (
	"context"
	"log"
	"time"
)

// AlertType represents the type of operator alert.
type AlertType string

const (
	AlertTransitionConflict AlertType = "PAYMENT_TRANSITION_CONFLICT"
	AlertPendingEscalated   AlertType = "PAYMENT_PENDING_ESCALATED"
	AlertPaymentFailed      AlertType = "PAYMENT_FAILED"
)

// Alert represents an operator-facing alert.
type Alert struct {
	Type      AlertType
	BookingID string
	Reference string
	Message   string
	Data      map[string]interface{}
	CreatedAt time.Time
}

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// AlertService raises operator alerts for payment anomalies. Conflicting
// transitions and stuck-pending payments are surfaced here rather than
// silently dropped.
type AlertService struct {
	notifier Notifier
}

// NewAlertService creates a new AlertService.
func NewAlertService(notifier Notifier) *AlertService {
	return &AlertService{notifier: notifier}
}

// TransitionConflict reports a payment event that demanded a forbidden
// booking transition.
func (s *AlertService) TransitionConflict(ctx context.Context, bookingID, reference string, from, to string) {
	s.emit(ctx, Alert{
		Type:      AlertTransitionConflict,
		BookingID: bookingID,
		Reference: reference,
		Message:   "payment event rejected by state machine",
		Data: map[string]interface{}{
			"from": from,
			"to":   to,
		},
		CreatedAt: time.Now().UTC(),
	})
}

// PendingEscalated reports a payment that stayed pending past the re-check
// budget and needs manual review.
func (s *AlertService) PendingEscalated(ctx context.Context, bookingID, reference string, checks int64) {
	s.emit(ctx, Alert{
		Type:      AlertPendingEscalated,
		BookingID: bookingID,
		Reference: reference,
		Message:   "payment still pending after repeated checks, escalate to manual review",
		Data: map[string]interface{}{
			"checks": checks,
		},
		CreatedAt: time.Now().UTC(),
	})
}

func (s *AlertService) emit(ctx context.Context, alert Alert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		log.Printf("failed to deliver operator alert type=%s booking=%s: %v", alert.Type, alert.BookingID, err)
	}
}

// LogNotifier is a Notifier that writes alerts to the process log.
// In a real deployment this would page an on-call channel.
type LogNotifier struct{}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	log.Printf("[ALERT] type=%s booking=%s reference=%s message=%q data=%v",
		alert.Type, alert.BookingID, alert.Reference, alert.Message, alert.Data)
	return nil
}
