package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
)

func testTour() *tours.Tour {
	return &tours.Tour{
		Id:       uuid.New(),
		Name:     "Old Town Walking Tour",
		Currency: "usd",
		AdultPricing: []tours.PricingTier{
			{ID: "adult-standard", Name: "Adult", PriceCents: 10000},
			{ID: "adult-premium", Name: "Adult premium", PriceCents: 15000},
		},
		ChildrenPricing: []tours.PricingTier{
			{ID: "child-standard", Name: "Child", PriceCents: 5000},
		},
		Options: []tours.TourOption{
			{ID: "lunch", Name: "Lunch", AdultPriceCents: 2000, ChildPriceCents: 1000},
		},
	}
}

func TestComputeTotal(t *testing.T) {
	t.Run("adults and children without discount", func(t *testing.T) {
		b, err := ComputeTotal(testTour(), Selection{
			AdultTierID:    "adult-standard",
			AdultCount:     2,
			ChildrenTierID: "child-standard",
			ChildCount:     1,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(20000), b.Adult.SubtotalCents)
		assert.Equal(t, int64(5000), b.Children.SubtotalCents)
		assert.Equal(t, int64(25000), b.SubtotalCents)
		assert.Equal(t, int64(0), b.DiscountCents)
		assert.Equal(t, int64(25000), b.TotalCents)
	})

	t.Run("options are priced per adult and child", func(t *testing.T) {
		b, err := ComputeTotal(testTour(), Selection{
			AdultTierID: "adult-standard",
			AdultCount:  1,
			Options: []OptionSelection{
				{OptionID: "lunch", AdultCount: 2, ChildCount: 1},
			},
		})
		require.NoError(t, err)

		require.Len(t, b.Options, 1)
		assert.Equal(t, int64(5000), b.Options[0].SubtotalCents)
		assert.Equal(t, int64(15000), b.SubtotalCents)
	})

	t.Run("offer discount applies to the subtotal", func(t *testing.T) {
		tour := testTour()
		tour.HasOffer = true
		tour.DiscountPercent = 10

		b, err := ComputeTotal(tour, Selection{
			AdultTierID: "adult-standard",
			AdultCount:  2,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(20000), b.SubtotalCents)
		assert.Equal(t, int64(2000), b.DiscountCents)
		assert.Equal(t, int64(18000), b.TotalCents)
	})

	t.Run("coupon stacks with the offer", func(t *testing.T) {
		tour := testTour()
		tour.HasOffer = true
		tour.DiscountPercent = 10

		b, err := ComputeTotal(tour, Selection{
			AdultTierID: "adult-standard",
			AdultCount:  2,
			Coupon:      &booking.CouponSnapshot{Code: "SAVE5", PercentOff: 5},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(3000), b.DiscountCents)
		assert.Equal(t, int64(17000), b.TotalCents)
	})

	t.Run("combined discount is capped at 100 percent", func(t *testing.T) {
		tour := testTour()
		tour.HasOffer = true
		tour.DiscountPercent = 80

		b, err := ComputeTotal(tour, Selection{
			AdultTierID: "adult-standard",
			AdultCount:  1,
			Coupon:      &booking.CouponSnapshot{Code: "FREE", PercentOff: 40},
		})
		require.NoError(t, err)

		assert.Equal(t, b.SubtotalCents, b.DiscountCents)
		assert.Equal(t, int64(0), b.TotalCents)
	})

	t.Run("unknown tier id is rejected", func(t *testing.T) {
		_, err := ComputeTotal(testTour(), Selection{
			AdultTierID: "adult-vip",
			AdultCount:  1,
		})
		assert.ErrorIs(t, err, ErrPricingRefNotFound)
	})

	t.Run("unknown option id is rejected", func(t *testing.T) {
		_, err := ComputeTotal(testTour(), Selection{
			AdultTierID: "adult-standard",
			AdultCount:  1,
			Options:     []OptionSelection{{OptionID: "helicopter", AdultCount: 1}},
		})
		assert.ErrorIs(t, err, ErrPricingRefNotFound)
	})

	t.Run("negative traveler counts are rejected", func(t *testing.T) {
		_, err := ComputeTotal(testTour(), Selection{
			AdultTierID: "adult-standard",
			AdultCount:  -2,
		})
		assert.ErrorIs(t, err, booking.ErrInvalidData)
	})

	t.Run("negative option counts are rejected", func(t *testing.T) {
		_, err := ComputeTotal(testTour(), Selection{
			AdultTierID: "adult-standard",
			AdultCount:  1,
			Options:     []OptionSelection{{OptionID: "lunch", AdultCount: -1}},
		})
		assert.ErrorIs(t, err, booking.ErrInvalidData)
	})

	t.Run("at least one traveler is required", func(t *testing.T) {
		_, err := ComputeTotal(testTour(), Selection{
			AdultTierID: "adult-standard",
			AdultCount:  0,
		})
		assert.ErrorIs(t, err, booking.ErrInvalidData)
	})

	t.Run("identical input yields identical output", func(t *testing.T) {
		sel := Selection{
			AdultTierID:    "adult-premium",
			AdultCount:     3,
			ChildrenTierID: "child-standard",
			ChildCount:     2,
			Options:        []OptionSelection{{OptionID: "lunch", AdultCount: 3, ChildCount: 2}},
			Coupon:         &booking.CouponSnapshot{Code: "SAVE5", PercentOff: 5},
		}

		first, err := ComputeTotal(testTour(), sel)
		require.NoError(t, err)
		second, err := ComputeTotal(testTour(), sel)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, int64(0), PercentOf(10000, 0))
	assert.Equal(t, int64(10000), PercentOf(10000, 100))
	assert.Equal(t, int64(5000), PercentOf(10000, 50))

	// rounds half up
	assert.Equal(t, int64(1), PercentOf(1, 50))
	assert.Equal(t, int64(33), PercentOf(3333, 1))
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "200.00", FormatDecimal(20000))
	assert.Equal(t, "0.05", FormatDecimal(5))
	assert.Equal(t, "-12.34", FormatDecimal(-1234))
}
