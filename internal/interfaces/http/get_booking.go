package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	bdomain "tourbook/internal/domain/booking"
)

type BookingResponse struct {
	ID              string                  `json:"booking_id"`
	Reference       string                  `json:"booking_reference"`
	TourID          string                  `json:"tour_id"`
	Adult           bdomain.PricingLine     `json:"adult"`
	Children        bdomain.PricingLine     `json:"children"`
	Options         []bdomain.OptionLine    `json:"options"`
	Coupon          *bdomain.CouponSnapshot `json:"coupon,omitempty"`
	SubtotalCents   int64                   `json:"subtotal_cents"`
	DiscountCents   int64                   `json:"discount_cents"`
	TotalPriceCents int64                   `json:"total_price_cents"`
	Currency        string                  `json:"currency"`
	Date            string                  `json:"date"`
	Time            string                  `json:"time"`
	Weekday         string                  `json:"weekday"`
	PaymentStatus   string                  `json:"payment_status"`
	Refund          *bdomain.RefundDetails  `json:"refund,omitempty"`
}

func bookingResponse(b *bdomain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID.String(),
		Reference:       b.Reference,
		TourID:          b.TourID.String(),
		Adult:           b.Adult,
		Children:        b.Children,
		Options:         b.Options,
		Coupon:          b.Coupon,
		SubtotalCents:   b.SubtotalCents,
		DiscountCents:   b.DiscountCents,
		TotalPriceCents: b.TotalPriceCents,
		Currency:        b.Currency,
		Date:            b.Date,
		Time:            b.Time,
		Weekday:         b.Weekday,
		PaymentStatus:   string(b.Status),
		Refund:          b.Refund,
	}
}

func (s *Server) GetBookingHandler(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"reason": "reference is required"})
	}

	b, err := s.bookingsService.Get(c.Request().Context(), reference, userIDFromContext(c))
	if err != nil {
		if errors.Is(err, bdomain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"reason": "booking not found"})
		}
		return err
	}

	return c.JSON(http.StatusOK, bookingResponse(b))
}
