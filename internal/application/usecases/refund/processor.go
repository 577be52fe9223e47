package refund

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
	"tourbook/internal/infrastructure/clients"
	"tourbook/internal/log"
)

type BookingsRepo interface {
	GetByReferenceAndUser(ctx context.Context, reference string, userID uuid.UUID) (*bdomain.Booking, error)
	// MarkRefundedAndRelease atomically transitions a booking in StatusSuccess
	// to StatusRefunded and gives its travelers back to the tour aggregate.
	MarkRefundedAndRelease(ctx context.Context, id uuid.UUID, details bdomain.RefundDetails) (*bdomain.Booking, error)
}

type ToursRepo interface {
	GetTour(ctx context.Context, id uuid.UUID) (*tours.Tour, error)
}

type PaymentGateway interface {
	RetrievePaymentIntent(ctx context.Context, id string) (*clients.PaymentIntent, error)
	ListRefunds(ctx context.Context, paymentIntentID string) ([]clients.GatewayRefund, error)
	CreateRefund(ctx context.Context, req clients.CreateRefundRequest) (*clients.GatewayRefund, error)
}

type EventPublisher interface {
	PublishBookingRefunded(ctx context.Context, event *bdomain.BookingRefunded_v1) error
}

// GatewayError wraps a payment provider failure. The booking state is
// guaranteed unchanged when one is returned.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }

// ErrGatewayStateMismatch means the provider-side payment does not look
// like a settled, positive-amount payment.
var ErrGatewayStateMismatch = errors.New("payment intent state does not allow a refund")

// AlreadyRefundedError reports a refund that already exists, locally or at
// the gateway. errors.Is(err, booking.ErrAlreadyRefunded) holds.
type AlreadyRefundedError struct {
	ExternalRefundID string
}

func (e *AlreadyRefundedError) Error() string {
	return fmt.Sprintf("booking already refunded (refund %s)", e.ExternalRefundID)
}

func (e *AlreadyRefundedError) Unwrap() error { return bdomain.ErrAlreadyRefunded }

type Result struct {
	Reference            string
	RefundAmountCents    int64
	OriginalAmountCents  int64
	DeductionAmountCents int64
	RefundPercent        int
	TierDays             int
	Currency             string
	ExternalRefundID     string
	ExternalStatus       string
	RefundedAt           time.Time
}

type Processor struct {
	bookings  BookingsRepo
	tours     ToursRepo
	gateway   PaymentGateway
	publisher EventPublisher
	now       func() time.Time
}

func NewProcessor(
	bookings BookingsRepo,
	tours ToursRepo,
	gateway PaymentGateway,
	publisher EventPublisher,
) *Processor {
	return &Processor{
		bookings:  bookings,
		tours:     tours,
		gateway:   gateway,
		publisher: publisher,
		now:       time.Now,
	}
}

// Refund runs the full cancellation flow for one booking owned by the
// requesting user. The external refund is created before any local state
// change; a booking is never marked refunded without a confirmed external
// refund id.
func (p *Processor) Refund(ctx context.Context, reference string, userID uuid.UUID) (*Result, error) {
	b, err := p.bookings.GetByReferenceAndUser(ctx, reference, userID)
	if err != nil {
		return nil, err
	}

	switch b.Status {
	case bdomain.StatusSuccess:
	case bdomain.StatusRefunded:
		externalID := ""
		if b.Refund != nil {
			externalID = b.Refund.ExternalRefundID
		}
		return nil, &AlreadyRefundedError{ExternalRefundID: externalID}
	case bdomain.StatusPending:
		return nil, bdomain.ErrNotYetPaid
	default:
		return nil, bdomain.ErrInvalidState
	}

	if b.PaymentIntentID == "" {
		return nil, bdomain.ErrMissingPaymentReference
	}

	tour, err := p.tours.GetTour(ctx, b.TourID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tour %s: %w", b.TourID, err)
	}

	eval, err := Evaluate(b, tour, p.now())
	if err != nil {
		return nil, err
	}

	existing, err := p.gateway.ListRefunds(ctx, b.PaymentIntentID)
	if err != nil {
		return nil, &GatewayError{Op: "list refunds", Err: err}
	}
	if len(existing) > 0 {
		// A refund already exists at the provider: a previous attempt
		// succeeded externally but the local write was lost. Heal the
		// record instead of refunding twice.
		prior := existing[0]
		details := bdomain.RefundDetails{
			RefundedAt:           prior.CreatedAt,
			RefundAmountCents:    prior.AmountCents,
			OriginalAmountCents:  b.TotalPriceCents,
			RefundPercent:        eval.RefundPercent,
			DeductionAmountCents: b.TotalPriceCents - prior.AmountCents,
			DaysBeforeBooking:    eval.DaysUntil,
			PolicyTierDays:       eval.TierDays,
			ExternalRefundID:     prior.ID,
		}
		if _, err := p.bookings.MarkRefundedAndRelease(ctx, b.ID, details); err != nil {
			return nil, fmt.Errorf("failed to reconcile refunded booking %s: %w", b.ID, err)
		}
		return nil, &AlreadyRefundedError{ExternalRefundID: prior.ID}
	}

	pi, err := p.gateway.RetrievePaymentIntent(ctx, b.PaymentIntentID)
	if err != nil {
		return nil, &GatewayError{Op: "retrieve payment intent", Err: err}
	}
	if !strings.HasPrefix(pi.ID, "pi_") || pi.Status != "succeeded" || pi.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: id=%q status=%q amount=%d",
			ErrGatewayStateMismatch, pi.ID, pi.Status, pi.AmountCents)
	}

	created, err := p.gateway.CreateRefund(ctx, clients.CreateRefundRequest{
		PaymentIntentID: b.PaymentIntentID,
		AmountCents:     eval.RefundAmountCents,
		Reason:          "requested_by_customer",
		Metadata: map[string]string{
			"booking_reference": b.Reference,
			"user_id":           b.UserID.String(),
			"policy_tier_days":  fmt.Sprintf("%d", eval.TierDays),
			"refund_percent":    fmt.Sprintf("%d", eval.RefundPercent),
		},
	})
	if err != nil {
		return nil, &GatewayError{Op: "create refund", Err: err}
	}

	refundedAt := p.now().UTC()
	details := bdomain.RefundDetails{
		RefundedAt:           refundedAt,
		RefundAmountCents:    eval.RefundAmountCents,
		OriginalAmountCents:  b.TotalPriceCents,
		RefundPercent:        eval.RefundPercent,
		DeductionAmountCents: eval.DeductionAmountCents,
		DaysBeforeBooking:    eval.DaysUntil,
		PolicyTierDays:       eval.TierDays,
		ExternalRefundID:     created.ID,
	}
	updated, err := p.bookings.MarkRefundedAndRelease(ctx, b.ID, details)
	if err != nil {
		// The external refund exists; the next attempt self-heals through
		// the ListRefunds reconciliation above.
		return nil, fmt.Errorf("refund %s created but local update failed: %w", created.ID, err)
	}

	// Notification is best-effort: a publish failure must not fail a refund
	// that already happened at the gateway.
	publishErr := p.publisher.PublishBookingRefunded(ctx, &bdomain.BookingRefunded_v1{
		Header:               bdomain.NewEventHeader(),
		BookingID:            updated.ID,
		Reference:            updated.Reference,
		UserID:               updated.UserID,
		CustomerEmail:        updated.CustomerEmail,
		RefundAmountCents:    details.RefundAmountCents,
		DeductionAmountCents: details.DeductionAmountCents,
		OriginalAmountCents:  details.OriginalAmountCents,
		RefundPercent:        details.RefundPercent,
		Currency:             updated.Currency,
		ExternalRefundID:     details.ExternalRefundID,
		RefundedAt:           details.RefundedAt,
	})
	if publishErr != nil {
		log.FromContext(ctx).Error("failed to publish BookingRefunded_v1 for ", updated.Reference, ": ", publishErr)
	}

	return &Result{
		Reference:            updated.Reference,
		RefundAmountCents:    details.RefundAmountCents,
		OriginalAmountCents:  details.OriginalAmountCents,
		DeductionAmountCents: details.DeductionAmountCents,
		RefundPercent:        details.RefundPercent,
		TierDays:             details.PolicyTierDays,
		Currency:             updated.Currency,
		ExternalRefundID:     details.ExternalRefundID,
		ExternalStatus:       created.Status,
		RefundedAt:           details.RefundedAt,
	}, nil
}
