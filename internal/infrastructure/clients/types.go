package clients

import "time"

// PaymentIntent is the provider-neutral view of a payment the gateway
// settled or is settling. Amounts are minor units.
type PaymentIntent struct {
	ID          string
	Status      string
	AmountCents int64
	Currency    string
}

// GatewayRefund is a refund as the payment provider reports it.
type GatewayRefund struct {
	ID          string
	Status      string
	AmountCents int64
	Currency    string
	CreatedAt   time.Time
}

// CreateRefundRequest carries the audit metadata the provider stores
// alongside the refund.
type CreateRefundRequest struct {
	PaymentIntentID string
	AmountCents     int64
	Reason          string
	Metadata        map[string]string
}

// WebhookEvent is a verified payment event, already signature-checked and
// reduced to the fields settlement needs.
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	Metadata        map[string]string
}
