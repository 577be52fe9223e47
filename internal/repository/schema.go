package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func InitializeDBSchema(db *sqlx.DB) error {
	_, err := db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS tours (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name VARCHAR(255) NOT NULL,
	currency CHAR(3) NOT NULL DEFAULT 'USD',
	has_offer BOOLEAN NOT NULL DEFAULT FALSE,
	discount_percent INTEGER NOT NULL DEFAULT 0,
	traveler_count INTEGER NOT NULL DEFAULT 0,
	adult_pricing JSONB NOT NULL DEFAULT '[]',
	children_pricing JSONB NOT NULL DEFAULT '[]',
	options JSONB NOT NULL DEFAULT '[]',
	refund_policy JSONB NOT NULL DEFAULT '[]'
);`)
	if err != nil {
		return fmt.Errorf("failed to create tours table: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	booking_reference VARCHAR(64) NOT NULL UNIQUE,
	tour_id UUID NOT NULL,
	user_id UUID NOT NULL,
	customer_email VARCHAR(255) NOT NULL,
	adult_pricing JSONB NOT NULL,
	children_pricing JSONB NOT NULL,
	options JSONB NOT NULL,
	coupon JSONB,
	subtotal_cents BIGINT NOT NULL,
	discount_cents BIGINT NOT NULL,
	total_price_cents BIGINT NOT NULL,
	currency CHAR(3) NOT NULL,
	scheduled_date VARCHAR(10) NOT NULL,
	scheduled_time VARCHAR(10) NOT NULL,
	weekday VARCHAR(10) NOT NULL,
	payment_status VARCHAR(16) NOT NULL DEFAULT 'pending',
	payment_intent_id VARCHAR(255),
	refund_details JSONB,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`)
	if err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
CREATE INDEX IF NOT EXISTS bookings_pending_settle_idx
	ON bookings (user_id, payment_status, booking_reference);`)
	if err != nil {
		return fmt.Errorf("failed to create bookings index: %w", err)
	}

	return nil
}
