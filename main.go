package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tourbook/internal/app"
	"tourbook/internal/config"
	"tourbook/internal/log"
	"tourbook/internal/observability"
)

func main() {
	log.Init(logrus.InfoLevel)

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.JaegerEndpoint != "" {
		tp := observability.ConfigureTraceProvider(cfg.JaegerEndpoint)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logrus.WithError(err).Error("failed to shut down trace provider")
			}
		}()
	}

	db, err := sqlx.Connect("postgres", cfg.PostgresURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	watermillLogger := watermill.NewStdLogger(false, false)

	a, err := app.NewApp(cfg, watermillLogger, redisClient, db)
	if err != nil {
		logrus.WithError(err).Fatal("failed to build application")
	}

	logrus.Info("Server starting...")

	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("application stopped with error")
	}
}
