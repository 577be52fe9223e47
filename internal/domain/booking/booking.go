package booking

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	StatusPending  PaymentStatus = "pending"
	StatusSuccess  PaymentStatus = "success"
	StatusRefunded PaymentStatus = "refunded"
)

// PricingLine is the snapshot of one resolved pricing tier (adult or
// children) taken at creation time. Prices are in minor units.
type PricingLine struct {
	TierID         string `json:"tier_id"`
	Count          int    `json:"count"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

// OptionLine is the snapshot of one resolved tour option.
type OptionLine struct {
	OptionID        string `json:"option_id"`
	Name            string `json:"name"`
	AdultCount      int    `json:"adult_count"`
	ChildCount      int    `json:"child_count"`
	AdultPriceCents int64  `json:"adult_price_cents"`
	ChildPriceCents int64  `json:"child_price_cents"`
	SubtotalCents   int64  `json:"subtotal_cents"`
}

type CouponSnapshot struct {
	Code       string `json:"code"`
	PercentOff int    `json:"percent_off"`
}

// RefundDetails is persisted only once a booking reaches StatusRefunded.
type RefundDetails struct {
	RefundedAt           time.Time `json:"refunded_at"`
	RefundAmountCents    int64     `json:"refund_amount_cents"`
	OriginalAmountCents  int64     `json:"original_amount_cents"`
	RefundPercent        int       `json:"refund_percent"`
	DeductionAmountCents int64     `json:"deduction_amount_cents"`
	DaysBeforeBooking    float64   `json:"days_before_booking"`
	PolicyTierDays       int       `json:"policy_tier_days"`
	ExternalRefundID     string    `json:"external_refund_id"`
}

// Booking is a single cart line for a tour occurrence. The Reference is
// shared by every booking created in one checkout and is the key a payment
// event settles against. TotalPriceCents is immutable after creation.
type Booking struct {
	ID            uuid.UUID
	Reference     string
	TourID        uuid.UUID
	UserID        uuid.UUID
	CustomerEmail string

	Adult    PricingLine
	Children PricingLine
	Options  []OptionLine
	Coupon   *CouponSnapshot

	SubtotalCents   int64
	DiscountCents   int64
	TotalPriceCents int64
	Currency        string

	Date    string
	Time    string
	Weekday string

	Status          PaymentStatus
	PaymentIntentID string
	Refund          *RefundDetails

	CreatedAt time.Time
}

// TravelerCount derives the committed headcount from the stored pricing
// snapshot. Settlement and refund adjust the tour aggregate by this value,
// never by re-resolving the tour's current pricing.
func (b *Booking) TravelerCount() int {
	count := b.Adult.Count + b.Children.Count
	for _, opt := range b.Options {
		count += opt.AdultCount + opt.ChildCount
	}
	return count
}
