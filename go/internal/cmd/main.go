package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/config"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.Log.Apply()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	relay, closeRelay, err := setupRelay(ctx, cfg, services)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up outbox relay")
	}
	defer closeRelay()

	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway stopped")
		}
	}()
	if err := services.Orchestrator.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start pick clocks")
	}
	if err := relay.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox relay")
	}

	server := setupServer(cfg, services)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store", string(cfg.Store)).
			Msg("draft league server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to serve")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	services.Orchestrator.Stop()
	if err := relay.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop outbox relay")
	}
	cancel()
	log.Info().Msg("draft league server shutdown complete")
}

// setupRelay drains the outbox to JetStream when NATS is configured and
// otherwise to the log, so external consumers and audits see every event.
func setupRelay(ctx context.Context, cfg config.Server, services *Services) (*outbox.Relay, func(), error) {
	relayCfg := outbox.DefaultConfig()
	relayCfg.PollInterval = cfg.RelayInterval

	if cfg.NATSURL == "" {
		return outbox.NewRelay(services.Store, outbox.LogPublisher{}, relayCfg), func() {}, nil
	}

	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	nc, err := outbox.Connect(jsCfg)
	if err != nil {
		return nil, nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	if err := outbox.EnsureStream(ctx, js, jsCfg); err != nil {
		nc.Close()
		return nil, nil, err
	}
	publisher, err := outbox.NewJetStreamPublisher(nc, jsCfg)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return outbox.NewRelay(services.Store, publisher, relayCfg), nc.Close, nil
}
