package refund

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
)

func tieredTour() *tours.Tour {
	return &tours.Tour{
		RefundPolicy: []tours.RefundPolicyTier{
			{DaysBefore: 14, RefundPercent: 100},
			{DaysBefore: 7, RefundPercent: 50},
			{DaysBefore: 4, RefundPercent: 25},
		},
	}
}

func paidBooking(date, clock string) *booking.Booking {
	return &booking.Booking{
		TotalPriceCents: 20000,
		Currency:        "usd",
		Date:            date,
		Time:            clock,
		Status:          booking.StatusSuccess,
	}
}

func TestEvaluate(t *testing.T) {
	// fixed reference point, tour is on 2030-06-15 at 14:00 UTC
	tourDate := time.Date(2030, 6, 15, 14, 0, 0, 0, time.UTC)
	b := paidBooking("2030-06-15", "14:00")

	t.Run("full refund outside the largest tier", func(t *testing.T) {
		eval, err := Evaluate(b, tieredTour(), tourDate.AddDate(0, 0, -20))
		require.NoError(t, err)

		assert.Equal(t, 14, eval.TierDays)
		assert.Equal(t, 100, eval.RefundPercent)
		assert.Equal(t, int64(20000), eval.RefundAmountCents)
		assert.Equal(t, int64(0), eval.DeductionAmountCents)
	})

	t.Run("ten days out falls into the seven day tier", func(t *testing.T) {
		eval, err := Evaluate(b, tieredTour(), tourDate.AddDate(0, 0, -10))
		require.NoError(t, err)

		assert.Equal(t, 7, eval.TierDays)
		assert.Equal(t, 50, eval.RefundPercent)
		assert.Equal(t, int64(10000), eval.RefundAmountCents)
		assert.Equal(t, int64(10000), eval.DeductionAmountCents)
	})

	t.Run("exactly at a tier boundary qualifies for that tier", func(t *testing.T) {
		eval, err := Evaluate(b, tieredTour(), tourDate.AddDate(0, 0, -14))
		require.NoError(t, err)

		assert.Equal(t, 14, eval.TierDays)
		assert.Equal(t, 100, eval.RefundPercent)
	})

	t.Run("refund never shrinks as lead time grows", func(t *testing.T) {
		prev := int64(-1)
		for days := 4; days <= 30; days++ {
			eval, err := Evaluate(b, tieredTour(), tourDate.AddDate(0, 0, -days))
			require.NoError(t, err, "days=%d", days)
			assert.GreaterOrEqual(t, eval.RefundAmountCents, prev, "days=%d", days)
			prev = eval.RefundAmountCents
		}
	})

	t.Run("inside the smallest tier is rejected", func(t *testing.T) {
		_, err := Evaluate(b, tieredTour(), tourDate.AddDate(0, 0, -2))

		var rejection *PolicyRejection
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, CodeOutsideRefundWindow, rejection.Code)
		assert.Equal(t, 4, rejection.TierDays)
	})

	t.Run("past tour date is rejected", func(t *testing.T) {
		_, err := Evaluate(b, tieredTour(), tourDate.Add(time.Hour))

		var rejection *PolicyRejection
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, CodeAlreadyOccurred, rejection.Code)
	})

	t.Run("zero percent tier yields no refund", func(t *testing.T) {
		tour := &tours.Tour{}

		_, err := Evaluate(b, tour, tourDate.AddDate(0, 0, -10))

		var rejection *PolicyRejection
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, CodeNoRefundAvailable, rejection.Code)
	})

	t.Run("twelve hour times parse", func(t *testing.T) {
		afternoon := paidBooking("2030-06-15", "2:00 PM")

		eval, err := Evaluate(afternoon, tieredTour(), tourDate.AddDate(0, 0, -20))
		require.NoError(t, err)
		assert.Equal(t, 100, eval.RefundPercent)
	})

	t.Run("unparseable schedule surfaces as invalid data", func(t *testing.T) {
		broken := paidBooking("June 15th", "noonish")

		_, err := Evaluate(broken, tieredTour(), tourDate.AddDate(0, 0, -20))
		assert.ErrorIs(t, err, booking.ErrInvalidData)
	})
}
