package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
	"tourbook/internal/repository"
)

var db *sqlx.DB
var getDbOnce sync.Once

func getDb(t *testing.T) *sqlx.DB {
	if os.Getenv("POSTGRES_URL") == "" {
		t.Skip("POSTGRES_URL is not set")
	}
	getDbOnce.Do(func() {
		var err error
		db, err = sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
		if err != nil {
			panic(err)
		}
	})
	return db
}

func setupTestDB(t *testing.T) {
	require.NoError(t, repository.InitializeDBSchema(getDb(t)))
	t.Cleanup(func() {
		_, err := getDb(t).Exec("TRUNCATE TABLE bookings, tours")
		require.NoError(t, err)
	})
}

func newRepos(t *testing.T) (*repository.BookingsRepo, *repository.ToursRepo) {
	db := getDb(t)
	trManager := trmanager.Must(trmsqlx.NewDefaultFactory(db))
	return repository.NewBookingsRepo(db, trmsqlx.DefaultCtxGetter, trManager),
		repository.NewToursRepo(db, trmsqlx.DefaultCtxGetter)
}

func storedTour(t *testing.T, toursRepo *repository.ToursRepo) uuid.UUID {
	id, err := toursRepo.CreateTour(context.Background(), &tours.Tour{
		Name:     "Harbor Cruise",
		Currency: "usd",
		AdultPricing: []tours.PricingTier{
			{ID: "adult-standard", Name: "Adult", PriceCents: 10000},
		},
		RefundPolicy: []tours.RefundPolicyTier{
			{DaysBefore: 7, RefundPercent: 50},
		},
	})
	require.NoError(t, err)
	return id
}

func storedBooking(t *testing.T, repo *repository.BookingsRepo, tourID uuid.UUID) *bdomain.Booking {
	b := &bdomain.Booking{
		ID:            uuid.New(),
		Reference:     uuid.NewString()[:8],
		TourID:        tourID,
		UserID:        uuid.New(),
		CustomerEmail: "customer@example.com",
		Adult: bdomain.PricingLine{
			TierID: "adult-standard", Count: 2, UnitPriceCents: 10000, SubtotalCents: 20000,
		},
		Coupon:          &bdomain.CouponSnapshot{Code: "SAVE5", PercentOff: 5},
		SubtotalCents:   20000,
		DiscountCents:   1000,
		TotalPriceCents: 19000,
		Currency:        "usd",
		Date:            "2030-06-15",
		Time:            "14:00",
		Weekday:         "Saturday",
		Status:          bdomain.StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func travelerCount(t *testing.T, tourID uuid.UUID) int {
	var count int
	require.NoError(t, getDb(t).Get(&count,
		"SELECT traveler_count FROM tours WHERE id = $1", tourID))
	return count
}

func TestBookingsRepo_Integration(t *testing.T) {
	setupTestDB(t)
	bookings, toursRepo := newRepos(t)
	ctx := context.Background()

	t.Run("create and read back the snapshot", func(t *testing.T) {
		tourID := storedTour(t, toursRepo)
		created := storedBooking(t, bookings, tourID)

		got, err := bookings.GetByReference(ctx, created.Reference)
		require.NoError(t, err)

		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.Adult, got.Adult)
		assert.Equal(t, created.Coupon, got.Coupon)
		assert.Equal(t, int64(19000), got.TotalPriceCents)
		assert.Equal(t, bdomain.StatusPending, got.Status)
		assert.Empty(t, got.PaymentIntentID)
		assert.False(t, got.CreatedAt.IsZero())

		// replayed create is a no-op
		require.NoError(t, bookings.Create(ctx, created))
	})

	t.Run("owner scoping", func(t *testing.T) {
		tourID := storedTour(t, toursRepo)
		created := storedBooking(t, bookings, tourID)

		_, err := bookings.GetByReferenceAndUser(ctx, created.Reference, created.UserID)
		require.NoError(t, err)

		_, err = bookings.GetByReferenceAndUser(ctx, created.Reference, uuid.New())
		assert.ErrorIs(t, err, bdomain.ErrNotFound)
	})

	t.Run("mark success settles once and commits travelers", func(t *testing.T) {
		tourID := storedTour(t, toursRepo)
		created := storedBooking(t, bookings, tourID)

		settled, err := bookings.MarkSuccess(ctx, created.ID, "pi_123")
		require.NoError(t, err)
		assert.True(t, settled)
		assert.Equal(t, 2, travelerCount(t, tourID))

		got, err := bookings.GetByReference(ctx, created.Reference)
		require.NoError(t, err)
		assert.Equal(t, bdomain.StatusSuccess, got.Status)
		assert.Equal(t, "pi_123", got.PaymentIntentID)

		// second delivery loses the state guard
		settled, err = bookings.MarkSuccess(ctx, created.ID, "pi_123")
		require.NoError(t, err)
		assert.False(t, settled)
		assert.Equal(t, 2, travelerCount(t, tourID))
	})

	t.Run("mark refunded releases travelers and stores details", func(t *testing.T) {
		tourID := storedTour(t, toursRepo)
		created := storedBooking(t, bookings, tourID)

		_, err := bookings.MarkSuccess(ctx, created.ID, "pi_123")
		require.NoError(t, err)

		details := bdomain.RefundDetails{
			RefundedAt:           time.Now().UTC(),
			RefundAmountCents:    9500,
			OriginalAmountCents:  19000,
			RefundPercent:        50,
			DeductionAmountCents: 9500,
			PolicyTierDays:       7,
			ExternalRefundID:     "re_456",
		}
		refunded, err := bookings.MarkRefundedAndRelease(ctx, created.ID, details)
		require.NoError(t, err)
		assert.Equal(t, bdomain.StatusRefunded, refunded.Status)
		assert.Equal(t, 0, travelerCount(t, tourID))

		got, err := bookings.GetByReference(ctx, created.Reference)
		require.NoError(t, err)
		require.NotNil(t, got.Refund)
		assert.Equal(t, "re_456", got.Refund.ExternalRefundID)
		assert.Equal(t, int64(9500), got.Refund.RefundAmountCents)

		_, err = bookings.MarkRefundedAndRelease(ctx, created.ID, details)
		assert.ErrorIs(t, err, bdomain.ErrAlreadyRefunded)
		assert.Equal(t, 0, travelerCount(t, tourID))
	})

	t.Run("pending booking cannot be refunded", func(t *testing.T) {
		tourID := storedTour(t, toursRepo)
		created := storedBooking(t, bookings, tourID)

		_, err := bookings.MarkRefundedAndRelease(ctx, created.ID, bdomain.RefundDetails{})
		assert.ErrorIs(t, err, bdomain.ErrInvalidState)
	})

	t.Run("unknown booking cannot be refunded", func(t *testing.T) {
		_, err := bookings.MarkRefundedAndRelease(ctx, uuid.New(), bdomain.RefundDetails{})
		assert.ErrorIs(t, err, bdomain.ErrNotFound)
	})

	t.Run("find pending filters on user, refs and status", func(t *testing.T) {
		tourID := storedTour(t, toursRepo)
		first := storedBooking(t, bookings, tourID)
		second := storedBooking(t, bookings, tourID)
		second.UserID = first.UserID
		require.NoError(t, getDb(t).Get(new(int),
			"UPDATE bookings SET user_id = $1 WHERE id = $2 RETURNING 1",
			first.UserID, second.ID))

		_, err := bookings.MarkSuccess(ctx, second.ID, "pi_settled")
		require.NoError(t, err)

		pending, err := bookings.FindPendingByUserAndRefs(ctx, first.UserID,
			[]string{first.Reference, second.Reference, "missing"})
		require.NoError(t, err)

		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)
	})

	t.Run("delete stale pending", func(t *testing.T) {
		tourID := storedTour(t, toursRepo)
		stale := storedBooking(t, bookings, tourID)
		fresh := storedBooking(t, bookings, tourID)

		_, err := getDb(t).Exec(
			"UPDATE bookings SET created_at = now() - interval '3 days' WHERE id = $1", stale.ID)
		require.NoError(t, err)

		deleted, err := bookings.DeleteStalePending(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = bookings.GetByReference(ctx, stale.Reference)
		assert.ErrorIs(t, err, bdomain.ErrNotFound)
		_, err = bookings.GetByReference(ctx, fresh.Reference)
		assert.NoError(t, err)
	})
}
