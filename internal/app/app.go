package app

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	watermillmessage "github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tourbook/internal/application/usecases/booking"
	"tourbook/internal/application/usecases/refund"
	"tourbook/internal/application/usecases/settlement"
	"tourbook/internal/config"
	"tourbook/internal/infrastructure/clients"
	"tourbook/internal/infrastructure/event_publisher"
	httpiface "tourbook/internal/interfaces/http"
	"tourbook/internal/interfaces/message"
	"tourbook/internal/interfaces/message/events"
	"tourbook/internal/outbox"
	"tourbook/internal/repository"
)

type App struct {
	watermillLogger watermill.LoggerAdapter
	logger          zerolog.Logger
	router          *watermillmessage.Router
	forwarder       *outbox.Forwarder
	sweeper         *settlement.Sweeper
	srv             *httpiface.Server
	db              *sqlx.DB
}

func NewApp(
	cfg config.Config,
	watermillLogger watermill.LoggerAdapter,
	redisClient *redis.Client,
	db *sqlx.DB,
) (*App, error) {
	logger := zerolog.New(os.Stdout)

	trManager := trmanager.Must(trmsqlx.NewDefaultFactory(db))
	trGetter := trmsqlx.DefaultCtxGetter

	bookingsRepo := repository.NewBookingsRepo(db, trGetter, trManager)
	toursRepo := repository.NewToursRepo(db, trGetter)

	eventPublisher := event_publisher.NewOutboxEventPublisher(db, trManager, trGetter, watermillLogger)

	bookingsService := booking.NewCreateBookingUsecase(bookingsRepo, toursRepo)
	settlementProcessor := settlement.NewProcessor(bookingsRepo, eventPublisher)

	stripeGateway := clients.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret)
	refundProcessor := refund.NewProcessor(bookingsRepo, toursRepo, stripeGateway, eventPublisher)

	notifier := clients.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom)
	eventHandler := events.NewHandler(notifier, cfg.AdminEmails)

	router, err := message.NewRouter(
		watermillLogger,
		eventHandler,
		events.NewEventProcessorConfig(redisClient, watermillLogger),
	)
	if err != nil {
		return nil, err
	}

	fwd, err := outbox.NewForwarder(db, redisClient, watermillLogger)
	if err != nil {
		return nil, err
	}

	sweeper := settlement.NewSweeper(
		bookingsRepo,
		redisClient,
		cfg.SweepInterval,
		cfg.SweepRetention,
		logger,
	)

	e := echo.New()
	e.HideBanner = true
	srv := httpiface.NewServer(
		e,
		cfg.HTTPAddr,
		bookingsService,
		settlementProcessor,
		refundProcessor,
		stripeGateway,
		cfg.JWTSecret,
		httpiface.RedirectURLs{
			Success: cfg.RedirectSuccessURL,
			Failure: cfg.RedirectFailureURL,
			Pending: cfg.RedirectPendingURL,
		},
		router.IsRunning,
	)

	return &App{
		watermillLogger: watermillLogger,
		logger:          logger,
		router:          router,
		forwarder:       fwd,
		sweeper:         sweeper,
		srv:             srv,
		db:              db,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := repository.InitializeDBSchema(a.db)
	if err != nil {
		return err
	}

	a.forwarder.RunForwarder(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info().Msg("starting router")

		return a.router.Run(ctx)
	})

	g.Go(func() error {
		<-a.router.Running()
		a.logger.Info().Msg("router is running")

		a.logger.Info().Msg("starting server")
		return a.srv.Start()
	})

	g.Go(func() error {
		return a.sweeper.Run(ctx)
	})

	g.Go(func() error {
		// Shut down
		<-ctx.Done()

		err := a.srv.Stop(ctx)
		if err != nil {
			a.logger.Err(err).Msg("error stopping server")
		}

		return err
	})

	// Will block until all goroutines finish
	return g.Wait()
}
