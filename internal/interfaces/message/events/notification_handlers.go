package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/log"
)

// Notification dispatch runs here, off the settlement and refund critical
// paths. A failing send is retried by the router and can never roll back a
// payment-state transition that already committed.

func (h *Handler) BookingConfirmationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"booking_confirmation_handler",
		func(ctx context.Context, event *bdomain.BookingsSettled_v1) error {
			log.FromContext(ctx).Info("Sending booking confirmation for payment ", event.PaymentIntentID)

			err := h.notifier.SendBookingConfirmation(ctx, BookingConfirmationEmail{
				To:              []string{event.CustomerEmail},
				Locale:          event.Locale,
				PaymentIntentID: event.PaymentIntentID,
				Items:           event.Bookings,
			})
			if err != nil {
				return err
			}

			if len(h.adminRecipients) == 0 {
				return nil
			}
			return h.notifier.SendBookingConfirmation(ctx, BookingConfirmationEmail{
				To:              h.adminRecipients,
				Locale:          event.Locale,
				PaymentIntentID: event.PaymentIntentID,
				Items:           event.Bookings,
				IsAdminCopy:     true,
			})
		},
	)
}

func (h *Handler) RefundConfirmationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"refund_confirmation_handler",
		func(ctx context.Context, event *bdomain.BookingRefunded_v1) error {
			log.FromContext(ctx).Info("Sending refund confirmation for booking ", event.Reference)

			email := RefundConfirmationEmail{
				To:                   []string{event.CustomerEmail},
				Reference:            event.Reference,
				RefundAmountCents:    event.RefundAmountCents,
				DeductionAmountCents: event.DeductionAmountCents,
				OriginalAmountCents:  event.OriginalAmountCents,
				RefundPercent:        event.RefundPercent,
				Currency:             event.Currency,
				ExternalRefundID:     event.ExternalRefundID,
			}
			if err := h.notifier.SendRefundConfirmation(ctx, email); err != nil {
				return err
			}

			if len(h.adminRecipients) == 0 {
				return nil
			}
			email.To = h.adminRecipients
			email.IsAdminCopy = true
			return h.notifier.SendRefundConfirmation(ctx, email)
		},
	)
}
