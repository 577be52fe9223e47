package tours

import "github.com/google/uuid"

// PricingTier is one priced tier inside a tour's adult or children pricing
// list, referenced by clients through its sub-id.
type PricingTier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// TourOption is an add-on with separate adult and child unit prices.
type TourOption struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AdultPriceCents int64  `json:"adult_price_cents"`
	ChildPriceCents int64  `json:"child_price_cents"`
}

// RefundPolicyTier maps a minimum lead time in days to the percentage of
// the original price returned to the customer. The upstream data calls the
// percentage field "discountPercent"; it is a refund percentage, kept under
// an unambiguous name here so it cannot be confused with the promotional
// discount on the tour itself.
type RefundPolicyTier struct {
	DaysBefore    int `json:"daysBeforeBooking"`
	RefundPercent int `json:"discountPercent"`
}

type Tour struct {
	Id              uuid.UUID
	Name            string
	Currency        string
	HasOffer        bool
	DiscountPercent int
	TravelerCount   int

	AdultPricing    []PricingTier
	ChildrenPricing []PricingTier
	Options         []TourOption
	RefundPolicy    []RefundPolicyTier
}

// DefaultRefundPolicy applies when a tour defines no tiers: no refund
// inside four days of the tour date.
func DefaultRefundPolicy() []RefundPolicyTier {
	return []RefundPolicyTier{{DaysBefore: 4, RefundPercent: 0}}
}

func (t *Tour) AdultTier(id string) (PricingTier, bool) {
	for _, tier := range t.AdultPricing {
		if tier.ID == id {
			return tier, true
		}
	}
	return PricingTier{}, false
}

func (t *Tour) ChildrenTier(id string) (PricingTier, bool) {
	for _, tier := range t.ChildrenPricing {
		if tier.ID == id {
			return tier, true
		}
	}
	return PricingTier{}, false
}

func (t *Tour) Option(id string) (TourOption, bool) {
	for _, opt := range t.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return TourOption{}, false
}
