// Package outbox relays committed outbox rows to the event bus. Rows are
// written in the same transaction as the state change they describe; the
// relay publishes them at least once and marks them sent.
package outbox

import (
	"context"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// Publisher is an interface that defines our publisher.
type Publisher interface {
	Publish(ctx context.Context, rec storage.OutboxRecord) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, rec storage.OutboxRecord) error

func (f PublisherFunc) Publish(ctx context.Context, rec storage.OutboxRecord) error {
	return f(ctx, rec)
}
