package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"tourbook/internal/application/usecases/settlement"
	"tourbook/internal/infrastructure/clients"
	"tourbook/internal/log"
)

// PaymentWebhookHandler settles bookings from a signed provider event.
// Responses stay 200 for anything past signature and metadata validation:
// a failing row must not make the provider retry an event that already
// settled its siblings.
func (s *Server) PaymentWebhookHandler(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "cannot read payload"})
	}

	event, err := s.webhooks.VerifyWebhookSignature(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, clients.ErrUnhandledEventType) {
			// Acknowledged, not processed.
			return c.NoContent(http.StatusOK)
		}
		log.FromContext(ctx).WithField("error", err).Warn("Rejected webhook payload")
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "signature verification failed"})
	}

	cmd, err := settlement.CommandFromWebhookEvent(*event)
	if err != nil {
		log.FromContext(ctx).WithField("error", err).Warn("Webhook event has bad metadata")
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": err.Error()})
	}

	outcome, err := s.settlement.Settle(ctx, cmd)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"settled": len(outcome.Settled),
		"failed":  len(outcome.Failures),
	})
}
