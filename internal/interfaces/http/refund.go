package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tourbook/internal/application/usecases/refund"
	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/pricing"
)

type RefundResponse struct {
	Reference            string `json:"booking_reference"`
	RefundAmountCents    int64  `json:"refund_amount_cents"`
	DeductionAmountCents int64  `json:"deduction_amount_cents"`
	OriginalAmountCents  int64  `json:"original_amount_cents"`
	RefundPercent        int    `json:"refund_percent"`
	RefundAmount         string `json:"refund_amount"`
	Currency             string `json:"currency"`
	RefundID             string `json:"refund_id"`
}

func (s *Server) RefundBookingHandler(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "reference is required"})
	}

	result, err := s.refunds.Refund(c.Request().Context(), reference, userIDFromContext(c))
	if err != nil {
		return refundErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, RefundResponse{
		Reference:            result.Reference,
		RefundAmountCents:    result.RefundAmountCents,
		DeductionAmountCents: result.DeductionAmountCents,
		OriginalAmountCents:  result.OriginalAmountCents,
		RefundPercent:        result.RefundPercent,
		RefundAmount:         pricing.FormatDecimal(result.RefundAmountCents),
		Currency:             result.Currency,
		RefundID:             result.ExternalRefundID,
	})
}

func refundErrorResponse(c echo.Context, err error) error {
	var rejection *refund.PolicyRejection
	if errors.As(err, &rejection) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"code":       string(rejection.Code),
			"reason":     rejection.Message,
			"tier_days":  rejection.TierDays,
			"days_until": rejection.DaysUntil,
		})
	}

	var already *refund.AlreadyRefundedError
	if errors.As(err, &already) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"reason":    "booking is already refunded",
			"refund_id": already.ExternalRefundID,
		})
	}

	switch {
	case errors.Is(err, bdomain.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"reason": "booking not found"})
	case errors.Is(err, bdomain.ErrAlreadyRefunded):
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "booking is already refunded"})
	case errors.Is(err, bdomain.ErrNotYetPaid):
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "booking has not been paid"})
	case errors.Is(err, bdomain.ErrMissingPaymentReference):
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "booking has no payment reference"})
	case errors.Is(err, bdomain.ErrInvalidState), errors.Is(err, bdomain.ErrInvalidData):
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": err.Error()})
	}

	// Gateway failures and everything unexpected bubble up as 500 through
	// the logging middleware.
	return err
}
