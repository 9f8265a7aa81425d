package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/config"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/client"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/gateway"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/outbox"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg config.Gateway
	if err := config.Load(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.Log.Apply()

	log.Info().
		Str("nats_url", cfg.NATSURL).
		Str("draft_server", cfg.DraftServerURL).
		Str("port", cfg.Port).
		Msg("starting draft gateway")

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

	gwCfg := gateway.DefaultConfig()
	drafts := client.NewDefault(cfg.DraftServerURL, rpcutil.Caller{})
	svc := gateway.NewService(gwCfg, drafts)
	if err := svc.WithJetStream(ctx, js, gwCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe gateway")
	}

	r := chi.NewRouter()
	r.Mount("/", svc.Routes())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"draft-gateway","connections":%d}`, svc.Stats().TotalConnections)
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     cors.New(cors.Options{AllowedOrigins: cfg.AllowedOrigins, AllowedMethods: []string{http.MethodGet}}).Handler(r),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		if err := svc.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("draft gateway shutdown complete")
}
