package main

import (
	"context"
	"encoding/json"
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
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/client"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/orchestrator"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/outbox"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg config.TimerService
	if err := config.Load(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.Log.Apply()

	log.Info().
		Str("draft_server", cfg.DraftServerURL).
		Str("nats_url", cfg.NATSURL).
		Int("workers", cfg.Workers).
		Msg("starting draft orchestrator")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	drafts := client.New(httpClient, cfg.DraftServerURL, rpcutil.Caller{Admin: true})
	orch := orchestrator.New(drafts, orchestrator.WithWorkers(cfg.Workers))

	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	nc, err := outbox.Connect(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream context")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := outbox.EnsureStream(ctx, js, jsCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure event stream")
	}

	ccfg := outbox.DefaultConsumerConfig("draft-orchestrator")
	ccfg.Description = "Draft pick timer consumer"
	consumer, err := outbox.NewEventConsumer(ctx, js, ccfg, orch)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup event consumer")
	}

	// Recovery re-arms whatever the consumer missed while the service was down.
	if err := orch.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start orchestrator")
	}

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("NATS event consumer failed")
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := orch.Stats()
		w.Header().Set("Content-Type", "application/json")
		if !stats.Running || nc.Status() != nats.CONNECTED {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(stats)
	})

	server := &http.Server{
		Addr:         ":" + cfg.HealthPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}

	cancel()
	orch.Stop()

	log.Info().Msg("draft orchestrator shutdown complete")
}
