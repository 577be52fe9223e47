package booking

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	Id             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		Id:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: uuid.NewString(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		Id:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// SettledBooking is the per-booking slice of a settlement event.
type SettledBooking struct {
	BookingID       uuid.UUID `json:"booking_id"`
	Reference       string    `json:"reference"`
	TourID          uuid.UUID `json:"tour_id"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Currency        string    `json:"currency"`
	Travelers       int       `json:"travelers"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
}

// BookingsSettled_v1 is published once per settled payment event, carrying
// every booking confirmed by that payment so downstream notification batches
// a multi-item cart into one email per recipient.
type BookingsSettled_v1 struct {
	Header          EventHeader      `json:"header"`
	UserID          uuid.UUID        `json:"user_id"`
	CustomerEmail   string           `json:"customer_email"`
	Locale          string           `json:"locale"`
	PaymentIntentID string           `json:"payment_intent_id"`
	Bookings        []SettledBooking `json:"bookings"`
	SettledAt       time.Time        `json:"settled_at"`
}

type BookingRefunded_v1 struct {
	Header               EventHeader `json:"header"`
	BookingID            uuid.UUID   `json:"booking_id"`
	Reference            string      `json:"reference"`
	UserID               uuid.UUID   `json:"user_id"`
	CustomerEmail        string      `json:"customer_email"`
	RefundAmountCents    int64       `json:"refund_amount_cents"`
	DeductionAmountCents int64       `json:"deduction_amount_cents"`
	OriginalAmountCents  int64       `json:"original_amount_cents"`
	RefundPercent        int         `json:"refund_percent"`
	Currency             string      `json:"currency"`
	ExternalRefundID     string      `json:"external_refund_id"`
	RefundedAt           time.Time   `json:"refunded_at"`
}
