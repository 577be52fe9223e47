package event_publisher

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"

	bdomain "tourbook/internal/domain/booking"
	"tourbook/internal/interfaces/message/events"
	"tourbook/internal/outbox"
)

// OutboxEventPublisher stores domain events through the transactional
// outbox; the forwarder moves them to redis streams where the notification
// handlers pick them up.
type OutboxEventPublisher struct {
	db              *sqlx.DB
	trManager       *trmanager.Manager
	trGetter        *trmsqlx.CtxGetter
	watermillLogger watermill.LoggerAdapter
}

func NewOutboxEventPublisher(
	db *sqlx.DB,
	trManager *trmanager.Manager,
	trGetter *trmsqlx.CtxGetter,
	watermillLogger watermill.LoggerAdapter,
) *OutboxEventPublisher {
	return &OutboxEventPublisher{
		db:              db,
		trManager:       trManager,
		trGetter:        trGetter,
		watermillLogger: watermillLogger,
	}
}

func (p *OutboxEventPublisher) PublishBookingsSettled(ctx context.Context, event *bdomain.BookingsSettled_v1) error {
	return p.publish(ctx, event)
}

func (p *OutboxEventPublisher) PublishBookingRefunded(ctx context.Context, event *bdomain.BookingRefunded_v1) error {
	return p.publish(ctx, event)
}

func (p *OutboxEventPublisher) publish(ctx context.Context, event any) error {
	return p.trManager.Do(ctx, func(ctx context.Context) error {
		tr := p.trGetter.DefaultTrOrDB(ctx, p.db)
		if tr == nil {
			return fmt.Errorf("failed to get transaction from context")
		}

		publisher, err := outbox.NewPublisher(tr, p.watermillLogger)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}

		eb, err := events.NewEventBus(publisher, p.watermillLogger)
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}

		return eb.Publish(ctx, event)
	})
}
