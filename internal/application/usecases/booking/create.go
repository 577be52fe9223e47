package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
	"tourbook/internal/log"
	"tourbook/internal/pricing"
)

type BookingsRepo interface {
	Create(ctx context.Context, b *bdomain.Booking) error
	GetByReferenceAndUser(ctx context.Context, reference string, userID uuid.UUID) (*bdomain.Booking, error)
}

type ToursRepo interface {
	GetTour(ctx context.Context, id uuid.UUID) (*tours.Tour, error)
}

// CreateCommand is a cart-add: one tour occurrence priced against the
// tour's current pricing.
type CreateCommand struct {
	UserID        uuid.UUID
	CustomerEmail string
	TourID        uuid.UUID
	Selection     pricing.Selection
	Date          string
	Time          string
}

type CreateBookingUsecase struct {
	bookings BookingsRepo
	tours    ToursRepo
}

func NewCreateBookingUsecase(bookings BookingsRepo, tours ToursRepo) *CreateBookingUsecase {
	return &CreateBookingUsecase{bookings: bookings, tours: tours}
}

// Create resolves the selection, snapshots the price and stores a pending
// booking. The price is computed exactly once, here; settlement and refund
// only ever read the snapshot.
func (u *CreateBookingUsecase) Create(ctx context.Context, cmd CreateCommand) (*bdomain.Booking, error) {
	scheduledAt, err := bdomain.ParseSchedule(cmd.Date, cmd.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse scheduled date/time %q %q: %v",
			bdomain.ErrInvalidData, cmd.Date, cmd.Time, err)
	}

	tour, err := u.tours.GetTour(ctx, cmd.TourID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tour %s: %w", cmd.TourID, err)
	}

	breakdown, err := pricing.ComputeTotal(tour, cmd.Selection)
	if err != nil {
		return nil, err
	}

	b := &bdomain.Booking{
		ID:              uuid.New(),
		Reference:       shortuuid.New(),
		TourID:          tour.Id,
		UserID:          cmd.UserID,
		CustomerEmail:   cmd.CustomerEmail,
		Adult:           breakdown.Adult,
		Children:        breakdown.Children,
		Options:         breakdown.Options,
		Coupon:          cmd.Selection.Coupon,
		SubtotalCents:   breakdown.SubtotalCents,
		DiscountCents:   breakdown.DiscountCents,
		TotalPriceCents: breakdown.TotalCents,
		Currency:        tour.Currency,
		Date:            cmd.Date,
		Time:            cmd.Time,
		Weekday:         scheduledAt.Weekday().String(),
		Status:          bdomain.StatusPending,
	}

	if err := u.bookings.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	log.FromContext(ctx).Info("created pending booking ", b.Reference, " for tour ", tour.Id)
	return b, nil
}

// Get returns a booking by reference, scoped to its owner.
func (u *CreateBookingUsecase) Get(ctx context.Context, reference string, userID uuid.UUID) (*bdomain.Booking, error) {
	return u.bookings.GetByReferenceAndUser(ctx, reference, userID)
}
