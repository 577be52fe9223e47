package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/domain/tours"
)

type tourRow struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	Currency        string    `db:"currency"`
	HasOffer        bool      `db:"has_offer"`
	DiscountPercent int       `db:"discount_percent"`
	TravelerCount   int       `db:"traveler_count"`
	AdultPricing    []byte    `db:"adult_pricing"`
	ChildrenPricing []byte    `db:"children_pricing"`
	Options         []byte    `db:"options"`
	RefundPolicy    []byte    `db:"refund_policy"`
}

type ToursRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewToursRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *ToursRepo {
	return &ToursRepo{db: db, getter: getter}
}

func (r *ToursRepo) CreateTour(ctx context.Context, t *tours.Tour) (uuid.UUID, error) {
	adult, err := json.Marshal(t.AdultPricing)
	if err != nil {
		return uuid.Nil, err
	}
	children, err := json.Marshal(t.ChildrenPricing)
	if err != nil {
		return uuid.Nil, err
	}
	options, err := json.Marshal(t.Options)
	if err != nil {
		return uuid.Nil, err
	}
	policy, err := json.Marshal(t.RefundPolicy)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO tours (
			name, currency, has_offer, discount_percent,
			adult_pricing, children_pricing, options, refund_policy
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		) RETURNING id`,
		t.Name, t.Currency, t.HasOffer, t.DiscountPercent,
		adult, children, options, policy,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create tour: %w", err)
	}
	return id, nil
}

func (r *ToursRepo) GetTour(ctx context.Context, id uuid.UUID) (*tours.Tour, error) {
	var row tourRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).GetContext(ctx, &row, `
		SELECT id, name, currency, has_offer, discount_percent, traveler_count,
		       adult_pricing, children_pricing, options, refund_policy
		FROM tours WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bdomain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour %s: %w", id, err)
	}

	t := &tours.Tour{
		Id:              row.ID,
		Name:            row.Name,
		Currency:        row.Currency,
		HasOffer:        row.HasOffer,
		DiscountPercent: row.DiscountPercent,
		TravelerCount:   row.TravelerCount,
	}
	if err := json.Unmarshal(row.AdultPricing, &t.AdultPricing); err != nil {
		return nil, fmt.Errorf("failed to decode adult pricing for tour %s: %w", id, err)
	}
	if err := json.Unmarshal(row.ChildrenPricing, &t.ChildrenPricing); err != nil {
		return nil, fmt.Errorf("failed to decode children pricing for tour %s: %w", id, err)
	}
	if err := json.Unmarshal(row.Options, &t.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options for tour %s: %w", id, err)
	}
	if err := json.Unmarshal(row.RefundPolicy, &t.RefundPolicy); err != nil {
		return nil, fmt.Errorf("failed to decode refund policy for tour %s: %w", id, err)
	}
	return t, nil
}

// AddTravelers adjusts the committed headcount aggregate in place. The
// increment happens in SQL so concurrent settlements never lose updates.
func (r *ToursRepo) AddTravelers(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx,
		`UPDATE tours SET traveler_count = traveler_count + $2 WHERE id = $1`,
		id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust traveler count for tour %s: %w", id, err)
	}
	return nil
}
