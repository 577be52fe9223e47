package pricing

import (
	"errors"
	"fmt"

	"tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
)

// ErrPricingRefNotFound means the selection references a pricing sub-id the
// tour no longer defines. Tour pricing may have changed since the client
// fetched it.
var ErrPricingRefNotFound = errors.New("pricing reference not found on tour")

type OptionSelection struct {
	OptionID   string
	AdultCount int
	ChildCount int
}

// Selection is the typed request a client makes against a tour's current
// pricing. Tier ids left empty mean the component is not requested.
type Selection struct {
	AdultTierID    string
	AdultCount     int
	ChildrenTierID string
	ChildCount     int
	Options        []OptionSelection
	Coupon         *booking.CouponSnapshot
}

// Breakdown is the result of resolving a selection. All amounts are minor
// units; TotalCents = SubtotalCents - DiscountCents always holds.
type Breakdown struct {
	Adult         booking.PricingLine
	Children      booking.PricingLine
	Options       []booking.OptionLine
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
}

// ComputeTotal resolves every requested pricing component by sub-id against
// the tour's current definition and computes subtotal, discount and total.
// Pure: no side effects, identical inputs yield identical output.
func ComputeTotal(tour *tours.Tour, sel Selection) (*Breakdown, error) {
	var b Breakdown

	if sel.AdultCount < 0 || sel.ChildCount < 0 {
		return nil, fmt.Errorf("traveler counts must not be negative: %w", booking.ErrInvalidData)
	}

	if sel.AdultTierID != "" {
		tier, ok := tour.AdultTier(sel.AdultTierID)
		if !ok {
			return nil, fmt.Errorf("adult tier %q: %w", sel.AdultTierID, ErrPricingRefNotFound)
		}
		b.Adult = booking.PricingLine{
			TierID:         tier.ID,
			Count:          sel.AdultCount,
			UnitPriceCents: tier.PriceCents,
			SubtotalCents:  tier.PriceCents * int64(sel.AdultCount),
		}
		b.SubtotalCents += b.Adult.SubtotalCents
	}

	if sel.ChildrenTierID != "" {
		tier, ok := tour.ChildrenTier(sel.ChildrenTierID)
		if !ok {
			return nil, fmt.Errorf("children tier %q: %w", sel.ChildrenTierID, ErrPricingRefNotFound)
		}
		b.Children = booking.PricingLine{
			TierID:         tier.ID,
			Count:          sel.ChildCount,
			UnitPriceCents: tier.PriceCents,
			SubtotalCents:  tier.PriceCents * int64(sel.ChildCount),
		}
		b.SubtotalCents += b.Children.SubtotalCents
	}

	if b.Adult.Count+b.Children.Count == 0 {
		return nil, fmt.Errorf("at least one traveler is required: %w", booking.ErrInvalidData)
	}

	for _, optSel := range sel.Options {
		if optSel.AdultCount < 0 || optSel.ChildCount < 0 {
			return nil, fmt.Errorf("option %q counts must not be negative: %w",
				optSel.OptionID, booking.ErrInvalidData)
		}
		opt, ok := tour.Option(optSel.OptionID)
		if !ok {
			return nil, fmt.Errorf("option %q: %w", optSel.OptionID, ErrPricingRefNotFound)
		}
		line := booking.OptionLine{
			OptionID:        opt.ID,
			Name:            opt.Name,
			AdultCount:      optSel.AdultCount,
			ChildCount:      optSel.ChildCount,
			AdultPriceCents: opt.AdultPriceCents,
			ChildPriceCents: opt.ChildPriceCents,
			SubtotalCents: opt.AdultPriceCents*int64(optSel.AdultCount) +
				opt.ChildPriceCents*int64(optSel.ChildCount),
		}
		b.Options = append(b.Options, line)
		b.SubtotalCents += line.SubtotalCents
	}

	discountPercent := 0
	if tour.HasOffer && tour.DiscountPercent > 0 {
		discountPercent = tour.DiscountPercent
	}
	if sel.Coupon != nil && sel.Coupon.PercentOff > 0 {
		discountPercent += sel.Coupon.PercentOff
	}
	if discountPercent > 100 {
		discountPercent = 100
	}

	b.DiscountCents = PercentOf(b.SubtotalCents, discountPercent)
	b.TotalCents = b.SubtotalCents - b.DiscountCents

	return &b, nil
}

// PercentOf computes pct% of an amount in minor units, rounding half up.
func PercentOf(amountCents int64, pct int) int64 {
	if pct <= 0 || amountCents <= 0 {
		return 0
	}
	return (amountCents*int64(pct) + 50) / 100
}

// FormatDecimal renders minor units as a two-decimal string for API and
// email boundaries.
func FormatDecimal(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
