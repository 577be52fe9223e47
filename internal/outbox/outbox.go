package outbox

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"

	"tourbook/internal/observability"
)

const outboxTopic = "events_to_forward"

// NewPublisher writes messages to the outbox table using the caller's
// transaction, so an event is stored iff the state change commits. The
// forwarder moves them to redis afterwards.
func NewPublisher(
	tx watermillSQL.ContextExecutor,
	logger watermill.LoggerAdapter,
) (message.Publisher, error) {
	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox publisher: %w", err)
	}

	publisherWithTracing := observability.PublisherWithTracing{Publisher: publisher}

	return forwarder.NewPublisher(publisherWithTracing, forwarder.PublisherConfig{
		ForwarderTopic: outboxTopic,
	}), nil
}
