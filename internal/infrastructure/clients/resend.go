package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"tourbook/internal/interfaces/message/events"
	"tourbook/internal/pricing"
)

type ResendNotifier struct {
	client *resend.Client
	from   string
}

func NewResendNotifier(apiKey, from string) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (n *ResendNotifier) SendBookingConfirmation(ctx context.Context, email events.BookingConfirmationEmail) error {
	subject := "Your booking is confirmed"
	if email.IsAdminCopy {
		subject = fmt.Sprintf("[admin] New booking settled (%s)", email.PaymentIntentID)
	}

	var rows strings.Builder
	for _, item := range email.Items {
		rows.WriteString(fmt.Sprintf(
			`<tr><td>%s</td><td>%s %s</td><td>%d</td><td>%s %s</td></tr>`,
			item.Reference,
			item.Date,
			item.Time,
			item.Travelers,
			pricing.FormatDecimal(item.TotalPriceCents),
			strings.ToUpper(item.Currency),
		))
	}

	html := fmt.Sprintf(`
		<h2>Booking confirmation</h2>
		<p>Payment reference: %s</p>
		<table border="1">
			<tr><th>Booking</th><th>Date</th><th>Travelers</th><th>Total</th></tr>
			%s
		</table>
	`, email.PaymentIntentID, rows.String())

	_, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      email.To,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send booking confirmation: %w", err)
	}

	return nil
}

func (n *ResendNotifier) SendRefundConfirmation(ctx context.Context, email events.RefundConfirmationEmail) error {
	subject := fmt.Sprintf("Your refund for booking %s", email.Reference)
	if email.IsAdminCopy {
		subject = fmt.Sprintf("[admin] Refund issued for booking %s", email.Reference)
	}

	currency := strings.ToUpper(email.Currency)
	html := fmt.Sprintf(`
		<h2>Refund confirmation</h2>
		<p>Booking: %s</p>
		<table border="1">
			<tr><td>Original amount</td><td>%s %s</td></tr>
			<tr><td>Cancellation fee</td><td>%s %s</td></tr>
			<tr><td>Refunded (%d%%)</td><td>%s %s</td></tr>
		</table>
		<p>Refund reference: %s</p>
	`,
		email.Reference,
		pricing.FormatDecimal(email.OriginalAmountCents), currency,
		pricing.FormatDecimal(email.DeductionAmountCents), currency,
		email.RefundPercent,
		pricing.FormatDecimal(email.RefundAmountCents), currency,
		email.ExternalRefundID,
	)

	_, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      email.To,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send refund confirmation: %w", err)
	}

	return nil
}
