package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/infrastructure/clients"
	"tourbook/internal/log"
)

type BookingsRepo interface {
	FindPendingByUserAndRefs(ctx context.Context, userID uuid.UUID, refs []string) ([]bdomain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*bdomain.Booking, error)
	// MarkSuccess atomically transitions a pending booking to StatusSuccess
	// and commits its travelers to the tour aggregate. Returns false when
	// the booking was not pending anymore; callers treat that as a no-op.
	MarkSuccess(ctx context.Context, id uuid.UUID, paymentIntentID string) (bool, error)
}

type EventPublisher interface {
	PublishBookingsSettled(ctx context.Context, event *bdomain.BookingsSettled_v1) error
}

// ErrMissingMetadata is returned when a verified webhook event lacks the
// fields settlement needs. The HTTP boundary maps it to a 400.
var ErrMissingMetadata = errors.New("payment event is missing required metadata")

// Command is a typed settlement request extracted from a verified payment
// event. References may settle several bookings created in one checkout.
type Command struct {
	PaymentIntentID string
	UserID          uuid.UUID
	Currency        string
	Locale          string
	References      []string
}

// CommandFromWebhookEvent validates the event's metadata and builds a
// settlement command from it.
func CommandFromWebhookEvent(event clients.WebhookEvent) (Command, error) {
	if !strings.HasPrefix(event.PaymentIntentID, "pi_") {
		return Command{}, fmt.Errorf("%w: malformed payment intent id %q", ErrMissingMetadata, event.PaymentIntentID)
	}

	rawUser := event.Metadata["user_id"]
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return Command{}, fmt.Errorf("%w: bad user_id %q", ErrMissingMetadata, rawUser)
	}

	rawRefs := event.Metadata["booking_references"]
	var refs []string
	for _, ref := range strings.Split(rawRefs, ",") {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return Command{}, fmt.Errorf("%w: no booking references", ErrMissingMetadata)
	}

	return Command{
		PaymentIntentID: event.PaymentIntentID,
		UserID:          userID,
		Currency:        event.Currency,
		Locale:          event.Metadata["locale"],
		References:      refs,
	}, nil
}

// Outcome reports what one settlement invocation did. Failures carry the
// record id and reason so partially-processed events can be reconciled
// manually.
type Outcome struct {
	Settled  []bdomain.SettledBooking
	Failures []SettleFailure
}

type SettleFailure struct {
	BookingID uuid.UUID
	Reference string
	Reason    string
}

type Processor struct {
	bookings  BookingsRepo
	publisher EventPublisher
	now       func() time.Time
}

func NewProcessor(bookings BookingsRepo, publisher EventPublisher) *Processor {
	return &Processor{
		bookings:  bookings,
		publisher: publisher,
		now:       time.Now,
	}
}

// Settle transitions every still-pending booking matched by the command to
// paid. Duplicate deliveries find no pending rows and settle nothing;
// per-record failures are collected, never fatal, so the webhook response
// stays 200 and the provider does not retry a processed event forever.
func (p *Processor) Settle(ctx context.Context, cmd Command) (*Outcome, error) {
	pending, err := p.bookings.FindPendingByUserAndRefs(ctx, cmd.UserID, cmd.References)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending bookings: %w", err)
	}

	if len(pending) == 0 {
		// Already settled or stale: at-least-once delivery makes this an
		// expected case, not an alarm.
		log.FromContext(ctx).Info("no pending bookings for payment ", cmd.PaymentIntentID)
		return &Outcome{}, nil
	}

	outcome := &Outcome{}
	var customerEmail string
	for i := range pending {
		b := &pending[i]
		settled, err := p.bookings.MarkSuccess(ctx, b.ID, cmd.PaymentIntentID)
		if err != nil {
			log.FromContext(ctx).Error("failed to settle booking ", b.ID, ": ", err)
			outcome.Failures = append(outcome.Failures, SettleFailure{
				BookingID: b.ID,
				Reference: b.Reference,
				Reason:    err.Error(),
			})
			continue
		}
		if !settled {
			// Lost the race against a concurrent delivery; the winner owns
			// the increment and the notification.
			continue
		}
		customerEmail = b.CustomerEmail
		outcome.Settled = append(outcome.Settled, bdomain.SettledBooking{
			BookingID:       b.ID,
			Reference:       b.Reference,
			TourID:          b.TourID,
			TotalPriceCents: b.TotalPriceCents,
			Currency:        b.Currency,
			Travelers:       b.TravelerCount(),
			Date:            b.Date,
			Time:            b.Time,
		})
	}

	if len(outcome.Settled) > 0 {
		err := p.publisher.PublishBookingsSettled(ctx, &bdomain.BookingsSettled_v1{
			Header:          bdomain.NewEventHeaderWithIdempotencyKey(cmd.PaymentIntentID),
			UserID:          cmd.UserID,
			CustomerEmail:   customerEmail,
			Locale:          cmd.Locale,
			PaymentIntentID: cmd.PaymentIntentID,
			Bookings:        outcome.Settled,
			SettledAt:       p.now().UTC(),
		})
		if err != nil {
			// Payment state is the source of truth; the confirmation email
			// is best-effort.
			log.FromContext(ctx).Error("failed to publish BookingsSettled_v1 for ", cmd.PaymentIntentID, ": ", err)
		}
	}

	return outcome, nil
}

// SettleOne is the secondary-provider path: one booking reference from a
// verified redirect token. Returns the booking and whether this call
// performed the transition (false means it was already settled and the
// caller should respond idempotently).
func (p *Processor) SettleOne(ctx context.Context, reference, transactionID string) (*bdomain.Booking, bool, error) {
	b, err := p.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, false, err
	}

	if b.Status != bdomain.StatusPending {
		return b, false, nil
	}

	settled, err := p.bookings.MarkSuccess(ctx, b.ID, transactionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to settle booking %s: %w", b.ID, err)
	}
	if !settled {
		return b, false, nil
	}

	err = p.publisher.PublishBookingsSettled(ctx, &bdomain.BookingsSettled_v1{
		Header:          bdomain.NewEventHeaderWithIdempotencyKey(transactionID),
		UserID:          b.UserID,
		CustomerEmail:   b.CustomerEmail,
		PaymentIntentID: transactionID,
		Bookings: []bdomain.SettledBooking{{
			BookingID:       b.ID,
			Reference:       b.Reference,
			TourID:          b.TourID,
			TotalPriceCents: b.TotalPriceCents,
			Currency:        b.Currency,
			Travelers:       b.TravelerCount(),
			Date:            b.Date,
			Time:            b.Time,
		}},
		SettledAt: p.now().UTC(),
	})
	if err != nil {
		log.FromContext(ctx).Error("failed to publish BookingsSettled_v1 for ", reference, ": ", err)
	}

	return b, true, nil
}
