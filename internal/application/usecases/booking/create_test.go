package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
	"tourbook/internal/pricing"
)

type fakeBookingsRepo struct {
	created []*bdomain.Booking
}

func (f *fakeBookingsRepo) Create(_ context.Context, b *bdomain.Booking) error {
	f.created = append(f.created, b)
	return nil
}

func (f *fakeBookingsRepo) GetByReferenceAndUser(_ context.Context, reference string, userID uuid.UUID) (*bdomain.Booking, error) {
	for _, b := range f.created {
		if b.Reference == reference && b.UserID == userID {
			return b, nil
		}
	}
	return nil, bdomain.ErrNotFound
}

type fakeToursRepo struct {
	tour *tours.Tour
}

func (f *fakeToursRepo) GetTour(_ context.Context, id uuid.UUID) (*tours.Tour, error) {
	if f.tour == nil || f.tour.Id != id {
		return nil, bdomain.ErrNotFound
	}
	return f.tour, nil
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	tour := &tours.Tour{
		Id:       uuid.New(),
		Name:     "Harbor Cruise",
		Currency: "usd",
		AdultPricing: []tours.PricingTier{
			{ID: "adult-standard", PriceCents: 10000},
		},
	}

	command := func() CreateCommand {
		return CreateCommand{
			UserID:        uuid.New(),
			CustomerEmail: "customer@example.com",
			TourID:        tour.Id,
			Selection: pricing.Selection{
				AdultTierID: "adult-standard",
				AdultCount:  2,
			},
			Date: "2030-06-15",
			Time: "14:00",
		}
	}

	t.Run("snapshots the resolved price on the booking", func(t *testing.T) {
		repo := &fakeBookingsRepo{}
		u := NewCreateBookingUsecase(repo, &fakeToursRepo{tour: tour})

		b, err := u.Create(ctx, command())
		require.NoError(t, err)

		assert.NotEmpty(t, b.Reference)
		assert.Equal(t, bdomain.StatusPending, b.Status)
		assert.Equal(t, int64(20000), b.TotalPriceCents)
		assert.Equal(t, "usd", b.Currency)
		assert.Equal(t, "Saturday", b.Weekday)
		assert.Equal(t, 2, b.TravelerCount())
		require.Len(t, repo.created, 1)
	})

	t.Run("each creation gets its own reference", func(t *testing.T) {
		repo := &fakeBookingsRepo{}
		u := NewCreateBookingUsecase(repo, &fakeToursRepo{tour: tour})

		first, err := u.Create(ctx, command())
		require.NoError(t, err)
		second, err := u.Create(ctx, command())
		require.NoError(t, err)

		assert.NotEqual(t, first.Reference, second.Reference)
	})

	t.Run("unparseable schedule is invalid data", func(t *testing.T) {
		u := NewCreateBookingUsecase(&fakeBookingsRepo{}, &fakeToursRepo{tour: tour})

		cmd := command()
		cmd.Time = "mid-afternoon"

		_, err := u.Create(ctx, cmd)
		assert.ErrorIs(t, err, bdomain.ErrInvalidData)
	})

	t.Run("unknown tier fails before the store", func(t *testing.T) {
		repo := &fakeBookingsRepo{}
		u := NewCreateBookingUsecase(repo, &fakeToursRepo{tour: tour})

		cmd := command()
		cmd.Selection.AdultTierID = "adult-vip"

		_, err := u.Create(ctx, cmd)
		assert.ErrorIs(t, err, pricing.ErrPricingRefNotFound)
		assert.Empty(t, repo.created)
	})

	t.Run("unknown tour is not found", func(t *testing.T) {
		u := NewCreateBookingUsecase(&fakeBookingsRepo{}, &fakeToursRepo{})

		_, err := u.Create(ctx, command())
		assert.ErrorIs(t, err, bdomain.ErrNotFound)
	})
}
