// Package gateway fans committed league events out to WebSocket subscribers.
// Events arrive either in-process through Notify or from the relayed
// JetStream stream; subscribers see each (stream, sequence) at most once.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/outbox"
)

// Service is the gateway: connection manager, HTTP routes and an optional
// JetStream consumer feeding the manager.
type Service struct {
	connections *ConnectionManager
	handler     *Handler
	consumer    *outbox.EventConsumer
}

// Config holds configuration for the gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	ConsumerConfig   outbox.ConsumerConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	cc := outbox.DefaultConsumerConfig("draft-gateway")
	cc.Description = "Draft gateway WebSocket consumer"
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		ConsumerConfig:   cc,
	}
}

// NewService creates a gateway fed in-process. Pass the service itself as a
// Notifier to the core.
func NewService(config Config, state StateProvider) *Service {
	cm := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		connections: cm,
		handler:     NewHandler(cm, state),
	}
}

// WithJetStream subscribes the gateway to the relayed stream.
func (s *Service) WithJetStream(ctx context.Context, js jetstream.JetStream, config Config) error {
	consumer, err := outbox.NewEventConsumer(ctx, js, config.ConsumerConfig, s.connections)
	if err != nil {
		return fmt.Errorf("failed to create event consumer: %w", err)
	}
	s.consumer = consumer
	return nil
}

// Notify implements events.Notifier.
func (s *Service) Notify(ctx context.Context, env events.Envelope) {
	s.connections.Notify(ctx, env)
}

// Routes returns the gateway HTTP routes.
func (s *Service) Routes() http.Handler {
	return s.handler.Routes()
}

// Stats returns connection statistics.
func (s *Service) Stats() ConnectionStats {
	return s.connections.Stats()
}

// Start runs the gateway until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting draft gateway service")

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	s.connections.Start(ctx)
	log.Info().Msg("draft gateway service stopped")
	return nil
}
