package http

import (
	"net/http"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"tourbook/internal/log"
)

// redirectClaims is what the payment page signs into the return-trip token:
// which booking the customer paid and the provider's transaction id.
type redirectClaims struct {
	BookingReference string `json:"booking_reference"`
	TransactionID    string `json:"transaction_id"`
	jwt.RegisteredClaims
}

func (s *Server) parseRedirectToken(raw string) (*redirectClaims, error) {
	tok, err := jwt.ParseWithClaims(raw, &redirectClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*redirectClaims)
	if !ok || !tok.Valid {
		return nil, echo.ErrUnauthorized
	}
	return claims, nil
}

// RedirectSuccessHandler is the browser return path for providers that
// confirm synchronously. Settlement here is idempotent: revisiting the URL
// finds the booking already paid and forwards without a second transition.
func (s *Server) RedirectSuccessHandler(c echo.Context) error {
	ctx := c.Request().Context()

	claims, err := s.parseRedirectToken(c.QueryParam("token"))
	if err != nil {
		log.FromContext(ctx).WithField("error", err).Warn("Rejected redirect token")
		return c.Redirect(http.StatusFound, s.redirects.Failure)
	}

	b, settledNow, err := s.settlement.SettleOne(ctx, claims.BookingReference, claims.TransactionID)
	if err != nil {
		log.FromContext(ctx).
			WithField("reference", claims.BookingReference).
			WithField("error", err).
			Error("Redirect settlement failed")
		return c.Redirect(http.StatusFound, s.redirects.Failure)
	}

	if !settledNow {
		log.FromContext(ctx).Info("booking ", b.Reference, " already settled, forwarding")
	}
	return c.Redirect(http.StatusFound, withReference(s.redirects.Success, b.Reference))
}

func (s *Server) RedirectFailureHandler(c echo.Context) error {
	target := s.redirects.Failure
	if claims, err := s.parseRedirectToken(c.QueryParam("token")); err == nil {
		target = withReference(target, claims.BookingReference)
	}
	return c.Redirect(http.StatusFound, target)
}

func (s *Server) RedirectPendingHandler(c echo.Context) error {
	target := s.redirects.Pending
	if claims, err := s.parseRedirectToken(c.QueryParam("token")); err == nil {
		target = withReference(target, claims.BookingReference)
	}
	return c.Redirect(http.StatusFound, target)
}

func withReference(base, reference string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("reference", reference)
	u.RawQuery = q.Encode()
	return u.String()
}
