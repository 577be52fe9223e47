package refund

import (
	"fmt"
	"sort"
	"time"

	"tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
	"tourbook/internal/pricing"
)

type RejectionCode string

const (
	CodeAlreadyOccurred     RejectionCode = "already_occurred"
	CodeOutsideRefundWindow RejectionCode = "outside_refund_window"
	CodeNoRefundAvailable   RejectionCode = "no_refund_available"
)

// PolicyRejection is a refund denial with the reason and the policy context
// the client needs to render an explanation. It is not a failure: the
// booking state is left untouched.
type PolicyRejection struct {
	Code      RejectionCode
	Message   string
	TierDays  int
	DaysUntil float64
}

func (r *PolicyRejection) Error() string {
	return fmt.Sprintf("refund rejected (%s): %s", r.Code, r.Message)
}

// Evaluation is the accepted outcome of a policy check.
type Evaluation struct {
	TierDays             int
	RefundPercent        int
	RefundAmountCents    int64
	DeductionAmountCents int64
	DaysUntil            float64
}

// Evaluate determines whether the booking can be refunded at `now` and for
// how much, under the tour's tiered policy. Tiers are sorted ascending by
// lead time and the largest threshold the booking still meets wins, so a
// booking further out always gets at least as much back.
func Evaluate(b *booking.Booking, tour *tours.Tour, now time.Time) (*Evaluation, error) {
	scheduledAt, err := booking.ParseSchedule(b.Date, b.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse scheduled date/time %q %q: %v",
			booking.ErrInvalidData, b.Date, b.Time, err)
	}

	if !scheduledAt.After(now) {
		return nil, &PolicyRejection{
			Code:    CodeAlreadyOccurred,
			Message: "the tour date has already passed",
		}
	}

	daysUntil := scheduledAt.Sub(now).Hours() / 24

	policy := tour.RefundPolicy
	if len(policy) == 0 {
		policy = tours.DefaultRefundPolicy()
	}
	tiers := make([]tours.RefundPolicyTier, len(policy))
	copy(tiers, policy)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].DaysBefore < tiers[j].DaysBefore })

	var applicable *tours.RefundPolicyTier
	for i := len(tiers) - 1; i >= 0; i-- {
		if daysUntil >= float64(tiers[i].DaysBefore) {
			applicable = &tiers[i]
			break
		}
	}
	if applicable == nil {
		return nil, &PolicyRejection{
			Code: CodeOutsideRefundWindow,
			Message: fmt.Sprintf("cancellations require at least %d days notice, only %.1f days remain",
				tiers[0].DaysBefore, daysUntil),
			TierDays:  tiers[0].DaysBefore,
			DaysUntil: daysUntil,
		}
	}

	refundAmount := pricing.PercentOf(b.TotalPriceCents, applicable.RefundPercent)
	if refundAmount <= 0 {
		return nil, &PolicyRejection{
			Code: CodeNoRefundAvailable,
			Message: fmt.Sprintf("cancellations within %d days incur a 100%% fee",
				applicable.DaysBefore),
			TierDays:  applicable.DaysBefore,
			DaysUntil: daysUntil,
		}
	}

	return &Evaluation{
		TierDays:             applicable.DaysBefore,
		RefundPercent:        applicable.RefundPercent,
		RefundAmountCents:    refundAmount,
		DeductionAmountCents: b.TotalPriceCents - refundAmount,
		DaysUntil:            daysUntil,
	}, nil
}
