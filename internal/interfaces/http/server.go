package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourbook/internal/application/usecases/booking"
	"tourbook/internal/application/usecases/refund"
	"tourbook/internal/application/usecases/settlement"
	"tourbook/internal/infrastructure/clients"
	"tourbook/internal/log"
)

// WebhookVerifier checks a raw webhook payload against the provider's
// signature and reduces it to a typed event.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, signature string) (*clients.WebhookEvent, error)
}

// RedirectURLs are the frontend pages payment redirects forward to.
type RedirectURLs struct {
	Success string
	Failure string
	Pending string
}

type Server struct {
	e    *echo.Echo
	addr string

	bookingsService *booking.CreateBookingUsecase
	settlement      *settlement.Processor
	refunds         *refund.Processor
	webhooks        WebhookVerifier

	jwtSecret []byte
	redirects RedirectURLs
}

func NewServer(
	e *echo.Echo,
	addr string,
	bookingsService *booking.CreateBookingUsecase,
	settlementProcessor *settlement.Processor,
	refundProcessor *refund.Processor,
	webhooks WebhookVerifier,
	jwtSecret string,
	redirects RedirectURLs,
	routerIsRunning func() bool,
) *Server {
	srv := &Server{
		e:               e,
		addr:            addr,
		bookingsService: bookingsService,
		settlement:      settlementProcessor,
		refunds:         refundProcessor,
		webhooks:        webhooks,
		jwtSecret:       []byte(jwtSecret),
		redirects:       redirects,
	}

	authed := e.Group("", srv.RequireAuth)
	authed.POST("/bookings", srv.CreateBookingHandler)
	authed.GET("/bookings/:reference", srv.GetBookingHandler)
	authed.PUT("/bookings/:reference/refund", srv.RefundBookingHandler)

	e.POST("/payments/webhook", srv.PaymentWebhookHandler)
	e.GET("/payments/redirect/success", srv.RedirectSuccessHandler)
	e.GET("/payments/redirect/failure", srv.RedirectFailureHandler)
	e.GET("/payments/redirect/pending", srv.RedirectPendingHandler)

	e.GET("/health", func(c echo.Context) error {
		if !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log.FromContext(c.Request().Context()).
				WithField("path", c.Request().URL.Path).
				Info("Handling a request")

			err := next(c)

			if err != nil {
				log.FromContext(c.Request().Context()).
					WithField("error", err).
					Error("Request handling error")
			}

			return err
		}
	})
	return srv
}

func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
