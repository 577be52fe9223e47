package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for key, value := range map[string]string{
		"POSTGRES_URL":          "postgres://localhost/tourbook",
		"REDIS_ADDR":            "localhost:6379",
		"STRIPE_API_KEY":        "sk_test",
		"STRIPE_WEBHOOK_SECRET": "whsec_test",
		"JWT_SECRET":            "secret",
		"RESEND_API_KEY":        "re_test",
		"EMAIL_FROM":            "bookings@example.com",
		"REDIRECT_SUCCESS_URL":  "https://example.com/success",
		"REDIRECT_FAILURE_URL":  "https://example.com/failure",
		"REDIRECT_PENDING_URL":  "https://example.com/pending",
	} {
		t.Setenv(key, value)
	}
	for _, key := range []string{"HTTP_ADDR", "SWEEP_INTERVAL_MINUTES", "SWEEP_RETENTION_HOURS", "ADMIN_EMAILS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	// pending bookings are kept at most a day before the sweeper removes them
	assert.Equal(t, 24*time.Hour, cfg.SweepRetention)
	assert.Nil(t, cfg.AdminEmails)
}
