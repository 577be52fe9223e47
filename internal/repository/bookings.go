package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	bdomain "tourbook/internal/domain/booking"
)

type bookingRow struct {
	ID              uuid.UUID      `db:"id"`
	Reference       string         `db:"booking_reference"`
	TourID          uuid.UUID      `db:"tour_id"`
	UserID          uuid.UUID      `db:"user_id"`
	CustomerEmail   string         `db:"customer_email"`
	AdultPricing    []byte         `db:"adult_pricing"`
	ChildrenPricing []byte         `db:"children_pricing"`
	Options         []byte         `db:"options"`
	Coupon          []byte         `db:"coupon"`
	SubtotalCents   int64          `db:"subtotal_cents"`
	DiscountCents   int64          `db:"discount_cents"`
	TotalPriceCents int64          `db:"total_price_cents"`
	Currency        string         `db:"currency"`
	Date            string         `db:"scheduled_date"`
	Time            string         `db:"scheduled_time"`
	Weekday         string         `db:"weekday"`
	Status          string         `db:"payment_status"`
	PaymentIntentID sql.NullString `db:"payment_intent_id"`
	RefundDetails   []byte         `db:"refund_details"`
	CreatedAt       time.Time      `db:"created_at"`
}

const bookingColumns = `
	id, booking_reference, tour_id, user_id, customer_email,
	adult_pricing, children_pricing, options, coupon,
	subtotal_cents, discount_cents, total_price_cents, currency,
	scheduled_date, scheduled_time, weekday,
	payment_status, payment_intent_id, refund_details, created_at`

type BookingsRepo struct {
	db        *sqlx.DB
	getter    *trmsqlx.CtxGetter
	trManager *trmanager.Manager
}

func NewBookingsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter, trManager *trmanager.Manager) *BookingsRepo {
	return &BookingsRepo{db: db, getter: getter, trManager: trManager}
}

const serializationFailure = "40001"

// inSerializableTx runs fn in a serializable transaction, retrying a few
// times when postgres aborts it with a serialization failure. fn must be
// safe to re-run from scratch.
func (r *BookingsRepo) inSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txSettings := trmsql.MustSettings(
		settings.Must(settings.WithCancelable(true)),
		trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelSerializable}),
	)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		lastErr = r.trManager.DoWithSettings(ctx, txSettings, fn)
		if lastErr == nil {
			return nil
		}
		pgErr := &pq.Error{}
		if errors.As(lastErr, &pgErr) && pgErr.Code == serializationFailure {
			continue
		}
		return lastErr
	}
	return lastErr
}

func (r *BookingsRepo) Create(ctx context.Context, b *bdomain.Booking) error {
	row, err := domainToRow(b)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	query := `
		INSERT INTO bookings (
			id, booking_reference, tour_id, user_id, customer_email,
			adult_pricing, children_pricing, options, coupon,
			subtotal_cents, discount_cents, total_price_cents, currency,
			scheduled_date, scheduled_time, weekday, payment_status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		) ON CONFLICT DO NOTHING`

	_, err = r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.Reference, row.TourID, row.UserID, row.CustomerEmail,
		row.AdultPricing, row.ChildrenPricing, row.Options, row.Coupon,
		row.SubtotalCents, row.DiscountCents, row.TotalPriceCents, row.Currency,
		row.Date, row.Time, row.Weekday, row.Status,
	)
	return err
}

func (r *BookingsRepo) GetByReference(ctx context.Context, reference string) (*bdomain.Booking, error) {
	var row bookingRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).GetContext(ctx, &row,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_reference = $1`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bdomain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", reference, err)
	}
	return rowToDomain(&row)
}

func (r *BookingsRepo) GetByReferenceAndUser(ctx context.Context, reference string, userID uuid.UUID) (*bdomain.Booking, error) {
	var row bookingRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).GetContext(ctx, &row,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_reference = $1 AND user_id = $2`,
		reference, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bdomain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", reference, err)
	}
	return rowToDomain(&row)
}

func (r *BookingsRepo) FindPendingByUserAndRefs(ctx context.Context, userID uuid.UUID, refs []string) ([]bdomain.Booking, error) {
	var rows []bookingRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).SelectContext(ctx, &rows,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = $1 AND payment_status = $2 AND booking_reference = ANY($3)
		 ORDER BY created_at`,
		userID, bdomain.StatusPending, pq.Array(refs))
	if err != nil {
		return nil, fmt.Errorf("failed to find pending bookings: %w", err)
	}

	bookings := make([]bdomain.Booking, 0, len(rows))
	for i := range rows {
		b, err := rowToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, nil
}

// MarkSuccess transitions a pending booking to success and commits its
// travelers to the tour aggregate, in one transaction. The state guard in
// the UPDATE makes concurrent webhook deliveries settle each record exactly
// once; the loser sees zero rows and reports false.
func (r *BookingsRepo) MarkSuccess(ctx context.Context, id uuid.UUID, paymentIntentID string) (bool, error) {
	settled := false
	err := r.inSerializableTx(ctx, func(ctx context.Context) error {
		settled = false
		tr := r.getter.DefaultTrOrDB(ctx, r.db)

		var row bookingRow
		err := tr.GetContext(ctx, &row, `
			UPDATE bookings
			SET payment_status = $2, payment_intent_id = $3
			WHERE id = $1 AND payment_status = $4
			RETURNING `+bookingColumns,
			id, bdomain.StatusSuccess, paymentIntentID, bdomain.StatusPending)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark booking %s paid: %w", id, err)
		}

		b, err := rowToDomain(&row)
		if err != nil {
			return err
		}

		_, err = tr.ExecContext(ctx,
			`UPDATE tours SET traveler_count = traveler_count + $2 WHERE id = $1`,
			b.TourID, b.TravelerCount())
		if err != nil {
			return fmt.Errorf("failed to commit travelers for tour %s: %w", b.TourID, err)
		}

		settled = true
		return nil
	})
	return settled, err
}

// MarkRefundedAndRelease transitions a paid booking to refunded, persists
// the refund snapshot and releases its travelers, in one transaction. Fails
// unless the booking is currently in StatusSuccess.
func (r *BookingsRepo) MarkRefundedAndRelease(ctx context.Context, id uuid.UUID, details bdomain.RefundDetails) (*bdomain.Booking, error) {
	var refunded *bdomain.Booking
	err := r.inSerializableTx(ctx, func(ctx context.Context) error {
		refunded = nil
		tr := r.getter.DefaultTrOrDB(ctx, r.db)

		payload, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode refund details: %w", err)
		}

		var row bookingRow
		err = tr.GetContext(ctx, &row, `
			UPDATE bookings
			SET payment_status = $2, refund_details = $3
			WHERE id = $1 AND payment_status = $4
			RETURNING `+bookingColumns,
			id, bdomain.StatusRefunded, payload, bdomain.StatusSuccess)
		if errors.Is(err, sql.ErrNoRows) {
			return r.refundStateError(ctx, id)
		}
		if err != nil {
			return fmt.Errorf("failed to mark booking %s refunded: %w", id, err)
		}

		b, err := rowToDomain(&row)
		if err != nil {
			return err
		}

		_, err = tr.ExecContext(ctx,
			`UPDATE tours SET traveler_count = traveler_count - $2 WHERE id = $1`,
			b.TourID, b.TravelerCount())
		if err != nil {
			return fmt.Errorf("failed to release travelers for tour %s: %w", b.TourID, err)
		}

		refunded = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

func (r *BookingsRepo) refundStateError(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.getter.DefaultTrOrDB(ctx, r.db).GetContext(ctx, &status,
		`SELECT payment_status FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return bdomain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if bdomain.PaymentStatus(status) == bdomain.StatusRefunded {
		return bdomain.ErrAlreadyRefunded
	}
	return bdomain.ErrInvalidState
}

func (r *BookingsRepo) DeleteStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx,
		`DELETE FROM bookings WHERE payment_status = $1 AND created_at < $2`,
		bdomain.StatusPending, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale pending bookings: %w", err)
	}
	return res.RowsAffected()
}

func domainToRow(b *bdomain.Booking) (*bookingRow, error) {
	adult, err := json.Marshal(b.Adult)
	if err != nil {
		return nil, err
	}
	children, err := json.Marshal(b.Children)
	if err != nil {
		return nil, err
	}
	options, err := json.Marshal(b.Options)
	if err != nil {
		return nil, err
	}
	var coupon []byte
	if b.Coupon != nil {
		if coupon, err = json.Marshal(b.Coupon); err != nil {
			return nil, err
		}
	}

	return &bookingRow{
		ID:              b.ID,
		Reference:       b.Reference,
		TourID:          b.TourID,
		UserID:          b.UserID,
		CustomerEmail:   b.CustomerEmail,
		AdultPricing:    adult,
		ChildrenPricing: children,
		Options:         options,
		Coupon:          coupon,
		SubtotalCents:   b.SubtotalCents,
		DiscountCents:   b.DiscountCents,
		TotalPriceCents: b.TotalPriceCents,
		Currency:        b.Currency,
		Date:            b.Date,
		Time:            b.Time,
		Weekday:         b.Weekday,
		Status:          string(b.Status),
	}, nil
}

func rowToDomain(row *bookingRow) (*bdomain.Booking, error) {
	b := &bdomain.Booking{
		ID:              row.ID,
		Reference:       row.Reference,
		TourID:          row.TourID,
		UserID:          row.UserID,
		CustomerEmail:   row.CustomerEmail,
		SubtotalCents:   row.SubtotalCents,
		DiscountCents:   row.DiscountCents,
		TotalPriceCents: row.TotalPriceCents,
		Currency:        row.Currency,
		Date:            row.Date,
		Time:            row.Time,
		Weekday:         row.Weekday,
		Status:          bdomain.PaymentStatus(row.Status),
		PaymentIntentID: row.PaymentIntentID.String,
		CreatedAt:       row.CreatedAt,
	}

	if err := json.Unmarshal(row.AdultPricing, &b.Adult); err != nil {
		return nil, fmt.Errorf("failed to decode adult pricing for %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.ChildrenPricing, &b.Children); err != nil {
		return nil, fmt.Errorf("failed to decode children pricing for %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Options, &b.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options for %s: %w", row.ID, err)
	}
	if len(row.Coupon) > 0 {
		if err := json.Unmarshal(row.Coupon, &b.Coupon); err != nil {
			return nil, fmt.Errorf("failed to decode coupon for %s: %w", row.ID, err)
		}
	}
	if len(row.RefundDetails) > 0 {
		if err := json.Unmarshal(row.RefundDetails, &b.Refund); err != nil {
			return nil, fmt.Errorf("failed to decode refund details for %s: %w", row.ID, err)
		}
	}

	return b, nil
}
