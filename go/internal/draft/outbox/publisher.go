package outbox

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// LogPublisher logs each row instead of publishing it. Used when no bus is
// configured so the outbox still drains.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, rec storage.OutboxRecord) error {
	log.Info().
		Str("event_id", rec.ID.String()).
		Str("event_type", rec.EventType).
		Str("season_id", rec.SeasonID.String()).
		Str("stream_id", rec.StreamID.String()).
		Int64("sequence", rec.Sequence).
		Msg("outbox event")
	return nil
}

// NotifierPublisher decodes each row back into its envelope and hands it to
// an in-process notifier.
type NotifierPublisher struct {
	Notifier events.Notifier
}

func (p NotifierPublisher) Publish(ctx context.Context, rec storage.OutboxRecord) error {
	env, err := events.Parse(rec.Payload)
	if err != nil {
		// an undecodable row would block the outbox forever
		log.Error().Err(err).Str("event_id", rec.ID.String()).Msg("dropping malformed outbox event")
		return nil
	}
	p.Notifier.Notify(ctx, env)
	return nil
}
