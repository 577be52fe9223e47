package events

import (
	"context"

	bdomain "tourbook/internal/domain/booking"
)

// BookingConfirmationEmail batches every booking settled by one payment
// into a single message per recipient.
type BookingConfirmationEmail struct {
	To              []string
	Locale          string
	PaymentIntentID string
	Items           []bdomain.SettledBooking
	IsAdminCopy     bool
}

type RefundConfirmationEmail struct {
	To                   []string
	Reference            string
	RefundAmountCents    int64
	DeductionAmountCents int64
	OriginalAmountCents  int64
	RefundPercent        int
	Currency             string
	ExternalRefundID     string
	IsAdminCopy          bool
}

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, email BookingConfirmationEmail) error
	SendRefundConfirmation(ctx context.Context, email RefundConfirmationEmail) error
}

type Handler struct {
	notifier        Notifier
	adminRecipients []string
}

func NewHandler(notifier Notifier, adminRecipients []string) *Handler {
	return &Handler{
		notifier:        notifier,
		adminRecipients: adminRecipients,
	}
}
