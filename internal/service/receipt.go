package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookpay/internal/domain"
)

// Receipt summarizes a settled booking payment.
type Receipt struct {
	BookingID    string
	Reference    string
	CustomerName string
	ServiceName  string
	Amount       string
	Currency     domain.Currency
	IssuedAt     time.Time
}

// ReceiptService issues receipts when a booking payment settles.
type ReceiptService struct{}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// Issue builds a receipt for a booking that just transitioned to PAID.
// Delivery (email, SMS) is a caller concern; the core only produces the
// artifact and records that it was issued.
func (s *ReceiptService) Issue(ctx context.Context, booking *domain.Booking, event *domain.PaymentEvent) *Receipt {
	receipt := &Receipt{
		BookingID:    booking.ID,
		Reference:    event.Reference,
		CustomerName: booking.CustomerName,
		ServiceName:  booking.ServiceName,
		Amount:       event.Amount.StringFixed(2),
		Currency:     event.Currency,
		IssuedAt:     time.Now().UTC(),
	}

	log.Printf("receipt issued booking=%s reference=%s amount=%s",
		receipt.BookingID, receipt.Reference, fmt.Sprintf("%s %s", receipt.Amount, receipt.Currency))

	return receipt
}
