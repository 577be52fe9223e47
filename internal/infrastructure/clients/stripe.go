package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrUnhandledEventType marks webhook events the settlement flow does not
// act on. The HTTP layer acknowledges them without processing.
var ErrUnhandledEventType = fmt.Errorf("unhandled webhook event type")

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)

	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// VerifyWebhookSignature checks the payload against the endpoint secret and
// reduces the event to the fields settlement needs. Returns
// ErrUnhandledEventType for event types the service ignores.
func (g *StripeGateway) VerifyWebhookSignature(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to parse payment intent: %w", err)
		}
		return &WebhookEvent{
			Type:            string(event.Type),
			PaymentIntentID: pi.ID,
			AmountCents:     pi.Amount,
			Currency:        string(pi.Currency),
			Metadata:        pi.Metadata,
		}, nil

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		if sess.PaymentIntent == nil {
			return nil, fmt.Errorf("checkout session %s has no payment intent", sess.ID)
		}
		return &WebhookEvent{
			Type:            string(event.Type),
			PaymentIntentID: sess.PaymentIntent.ID,
			AmountCents:     sess.AmountTotal,
			Currency:        string(sess.Currency),
			Metadata:        sess.Metadata,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEventType, event.Type)
	}
}

func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", id, err)
	}

	return &PaymentIntent{
		ID:          pi.ID,
		Status:      string(pi.Status),
		AmountCents: pi.Amount,
		Currency:    string(pi.Currency),
	}, nil
}

func (g *StripeGateway) ListRefunds(ctx context.Context, paymentIntentID string) ([]GatewayRefund, error) {
	params := &stripe.RefundListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	var refunds []GatewayRefund
	iter := g.api.Refunds.List(params)
	for iter.Next() {
		r := iter.Refund()
		refunds = append(refunds, GatewayRefund{
			ID:          r.ID,
			Status:      string(r.Status),
			AmountCents: r.Amount,
			Currency:    string(r.Currency),
			CreatedAt:   time.Unix(r.Created, 0).UTC(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list refunds for %s: %w", paymentIntentID, err)
	}

	return refunds, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, req CreateRefundRequest) (*GatewayRefund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(req.AmountCents),
	}
	params.Context = ctx
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund for %s: %w", req.PaymentIntentID, err)
	}

	return &GatewayRefund{
		ID:          r.ID,
		Status:      string(r.Status),
		AmountCents: r.Amount,
		Currency:    string(r.Currency),
		CreatedAt:   time.Unix(r.Created, 0).UTC(),
	}, nil
}
