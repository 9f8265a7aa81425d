package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/config"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/outbox"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage/postgres"
)

func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg config.Relay
	if err := config.Load(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.Log.Apply()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.Open(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("dsn", cfg.DB.Redacted()).Msg("failed to open database")
	}
	defer store.Close()

	var (
		publisher outbox.Publisher = outbox.LogPublisher{}
		nc        *nats.Conn
	)
	if cfg.NATSURL != "" {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		nc, err = outbox.Connect(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Close()

		js, err := jetstream.New(nc)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create JetStream context")
		}
		if err := outbox.EnsureStream(ctx, js, jsCfg); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure event stream")
		}
		jsp, err := outbox.NewJetStreamPublisher(nc, jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create JetStream publisher")
		}
		publisher = jsp
	} else {
		log.Warn().Msg("NATS_URL not set, events will only be logged")
	}

	relayCfg := outbox.DefaultConfig()
	relayCfg.PollInterval = cfg.PollInterval
	relayCfg.BatchSize = cfg.BatchSize

	counters := outbox.NewCounters()
	relay := outbox.NewRelay(store, publisher, relayCfg, outbox.WithMetrics(counters))

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = cfg.DB.DSN()
	listenerCfg.FallbackInterval = cfg.FallbackInterval
	listener, err := outbox.NewListener(relay, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}

	healthOpts := []outbox.HealthOption{
		outbox.WithDatabase(store.DB()),
		outbox.WithCounters(counters),
		outbox.WithActive(listener.Active),
	}
	if nc != nil {
		healthOpts = append(healthOpts, outbox.WithNATS(nc))
	}
	health := outbox.NewHealthChecker(relay, store, cfg.StallThreshold, healthOpts...)

	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/metrics", health.PrometheusHandler())

	server := &http.Server{
		Addr:         ":" + cfg.HealthPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener stopped")
		}
	}()

	log.Info().
		Str("database", cfg.DB.Redacted()).
		Bool("jetstream", nc != nil).
		Dur("fallback_interval", cfg.FallbackInterval).
		Msg("outbox relay started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}

	// the listener closes its connection on cancel
	cancel()
	<-listenerDone
	log.Info().Msg("outbox relay shutdown complete")
}
