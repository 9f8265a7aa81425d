package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
)

// ConsumerConfig holds configuration for a durable JetStream consumer of the
// relayed events.
type ConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	Description   string
	SubjectFilter string
	DeliverPolicy jetstream.DeliverPolicy
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultConsumerConfig returns the consumer configuration for name. New
// consumers start with the messages published after they were created.
func DefaultConsumerConfig(name string) ConsumerConfig {
	return ConsumerConfig{
		StreamName:    "DRAFT_EVENTS",
		ConsumerName:  name,
		SubjectFilter: "draft.events.>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// EventConsumer hands every relayed envelope to a Notifier. Malformed
// messages are terminated rather than redelivered.
type EventConsumer struct {
	consumer jetstream.Consumer
	notifier events.Notifier
	config   ConsumerConfig
}

// NewEventConsumer creates or binds the durable consumer.
func NewEventConsumer(ctx context.Context, js jetstream.JetStream, cfg ConsumerConfig, notifier events.Notifier) (*EventConsumer, error) {
	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, cfg.ConsumerName)
	switch {
	case errors.Is(err, jetstream.ErrConsumerNotFound):
		consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
			Name:          cfg.ConsumerName,
			Durable:       cfg.ConsumerName,
			Description:   cfg.Description,
			FilterSubject: cfg.SubjectFilter,
			DeliverPolicy: cfg.DeliverPolicy,
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    cfg.MaxDeliver,
			AckWait:       cfg.AckWait,
			MaxAckPending: cfg.MaxAckPending,
			ReplayPolicy:  jetstream.ReplayInstantPolicy,
		})
		if err != nil {
			return nil, fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", cfg.ConsumerName).
			Str("stream", cfg.StreamName).
			Msg("created JetStream consumer")
	case err != nil:
		return nil, fmt.Errorf("get consumer: %w", err)
	default:
		log.Info().
			Str("consumer", cfg.ConsumerName).
			Str("stream", cfg.StreamName).
			Msg("using existing JetStream consumer")
	}

	return &EventConsumer{consumer: consumer, notifier: notifier, config: cfg}, nil
}

// Run consumes until ctx is cancelled.
func (c *EventConsumer) Run(ctx context.Context) error {
	log.Info().
		Str("consumer", c.config.ConsumerName).
		Str("stream", c.config.StreamName).
		Msg("starting JetStream event consumer")

	cc, err := c.consumer.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	log.Info().Str("consumer", c.config.ConsumerName).Msg("event consumer shutting down")
	return nil
}

func (c *EventConsumer) handle(ctx context.Context, msg jetstream.Msg) {
	env, err := events.Parse(msg.Data())
	if err != nil {
		log.Error().
			Err(err).
			Str("subject", msg.Subject()).
			Msg("dropping malformed event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to terminate message")
		}
		return
	}

	log.Debug().
		Str("event_id", env.ID.String()).
		Str("event_type", string(env.Type)).
		Str("stream_id", env.StreamID.String()).
		Int64("sequence", env.Sequence).
		Msg("processing JetStream event")

	c.notifier.Notify(ctx, env)
	if err := msg.Ack(); err != nil {
		log.Error().Err(err).Str("event_id", env.ID.String()).Msg("failed to ACK message")
	}
}

// Info returns the consumer's server-side state.
func (c *EventConsumer) Info(ctx context.Context) (*jetstream.ConsumerInfo, error) {
	return c.consumer.Info(ctx)
}
