package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tourbook/internal/application/usecases/booking"
	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/pricing"
)

type OptionSelectionRequest struct {
	OptionID   string `json:"option_id"`
	AdultCount int    `json:"adult_count"`
	ChildCount int    `json:"child_count"`
}

type CreateBookingRequest struct {
	TourID         string                   `json:"tour_id"`
	AdultTierID    string                   `json:"adult_tier_id"`
	AdultCount     int                      `json:"adult_count"`
	ChildrenTierID string                   `json:"children_tier_id"`
	ChildCount     int                      `json:"child_count"`
	Options        []OptionSelectionRequest `json:"options"`
	CouponCode     string                   `json:"coupon_code"`
	CouponPercent  int                      `json:"coupon_percent"`
	Date           string                   `json:"date"`
	Time           string                   `json:"time"`
}

type CreateBookingResponse struct {
	ID              uuid.UUID `json:"booking_id"`
	Reference       string    `json:"booking_reference"`
	SubtotalCents   int64     `json:"subtotal_cents"`
	DiscountCents   int64     `json:"discount_cents"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Total           string    `json:"total"`
	Currency        string    `json:"currency"`
}

func (s *Server) CreateBookingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var request CreateBookingRequest
	err := c.Bind(&request)
	if err != nil {
		return err
	}

	tourID, err := uuid.Parse(request.TourID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "tour_id is not a valid UUID"})
	}

	selection := pricing.Selection{
		AdultTierID:    request.AdultTierID,
		AdultCount:     request.AdultCount,
		ChildrenTierID: request.ChildrenTierID,
		ChildCount:     request.ChildCount,
	}
	for _, opt := range request.Options {
		selection.Options = append(selection.Options, pricing.OptionSelection{
			OptionID:   opt.OptionID,
			AdultCount: opt.AdultCount,
			ChildCount: opt.ChildCount,
		})
	}
	if request.CouponCode != "" {
		selection.Coupon = &bdomain.CouponSnapshot{
			Code:       request.CouponCode,
			PercentOff: request.CouponPercent,
		}
	}

	b, err := s.bookingsService.Create(ctx, booking.CreateCommand{
		UserID:        userIDFromContext(c),
		CustomerEmail: emailFromContext(c),
		TourID:        tourID,
		Selection:     selection,
		Date:          request.Date,
		Time:          request.Time,
	})
	if err != nil {
		if errors.Is(err, bdomain.ErrInvalidData) || errors.Is(err, pricing.ErrPricingRefNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"reason": err.Error()})
		}
		if errors.Is(err, bdomain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"reason": "tour not found"})
		}
		return err
	}

	return c.JSON(http.StatusCreated, CreateBookingResponse{
		ID:              b.ID,
		Reference:       b.Reference,
		SubtotalCents:   b.SubtotalCents,
		DiscountCents:   b.DiscountCents,
		TotalPriceCents: b.TotalPriceCents,
		Total:           pricing.FormatDecimal(b.TotalPriceCents),
		Currency:        b.Currency,
	})
}
