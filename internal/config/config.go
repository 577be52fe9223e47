package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the service reads from the
// environment. Required variables are enforced by must(); the process
// refuses to start half-configured.
type Config struct {
	HTTPAddr    string
	PostgresURL string
	RedisAddr   string

	StripeAPIKey        string
	StripeWebhookSecret string

	JWTSecret string

	ResendAPIKey string
	EmailFrom    string
	AdminEmails  []string

	// Frontend pages the payment redirect endpoints forward to after
	// settling (or failing to settle) the customer's bookings.
	RedirectSuccessURL string
	RedirectFailureURL string
	RedirectPendingURL string

	// Stale pending bookings older than SweepRetention are removed every
	// SweepInterval.
	SweepInterval  time.Duration
	SweepRetention time.Duration

	JaegerEndpoint string
}

func Load() Config {
	// .env is optional; in containers everything arrives via the
	// environment directly.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:    withDefault("HTTP_ADDR", ":8080"),
		PostgresURL: must("POSTGRES_URL"),
		RedisAddr:   must("REDIS_ADDR"),

		StripeAPIKey:        must("STRIPE_API_KEY"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),

		JWTSecret: must("JWT_SECRET"),

		ResendAPIKey: must("RESEND_API_KEY"),
		EmailFrom:    must("EMAIL_FROM"),
		AdminEmails:  splitList(os.Getenv("ADMIN_EMAILS")),

		RedirectSuccessURL: must("REDIRECT_SUCCESS_URL"),
		RedirectFailureURL: must("REDIRECT_FAILURE_URL"),
		RedirectPendingURL: must("REDIRECT_PENDING_URL"),

		SweepInterval:  time.Duration(intWithDefault("SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
		SweepRetention: time.Duration(intWithDefault("SWEEP_RETENTION_HOURS", 24)) * time.Hour,

		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func withDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intWithDefault(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
