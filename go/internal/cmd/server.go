package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/config"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/freeagency"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/season"
)

func setupServer(cfg config.Server, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register services
	registerServices(mux, services)

	// Add health check endpoint
	setupHealthCheck(mux, services)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// Register draft service
	draftServicePath, draftServiceHandler := draft.NewDraftServiceHandler(services.Draft)
	mux.Handle(draftServicePath, draftServiceHandler)

	// Register season service
	seasonServicePath, seasonServiceHandler := season.NewSeasonServiceHandler(services.Season)
	mux.Handle(seasonServicePath, seasonServiceHandler)

	// Register free agency service
	freeAgencyServicePath, freeAgencyServiceHandler := freeagency.NewFreeAgencyServiceHandler(services.FreeAgency)
	mux.Handle(freeAgencyServicePath, freeAgencyServiceHandler)

	// WebSocket gateway and session snapshots
	routes := services.Gateway.Routes()
	mux.Handle("/ws/", routes)
	mux.Handle("/sessions/", routes)
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":      "ok",
			"clocks":      services.Orchestrator.Stats(),
			"connections": services.Gateway.Stats(),
		}
		w.Header().Set("Content-Type", "application/json")
		if !services.Orchestrator.Stats().Running {
			body["status"] = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
