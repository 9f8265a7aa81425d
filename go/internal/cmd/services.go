package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/config"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/gateway"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/orchestrator"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/freeagency"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/season"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage/memory"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage/postgres"
)

// backend is a store that can also be drained by the outbox relay.
type backend interface {
	storage.Store
	storage.OutboxReader
}

type Services struct {
	Store        backend
	Draft        *draft.Service
	Season       *season.Service
	FreeAgency   *freeagency.Service
	Gateway      *gateway.Service
	Orchestrator *orchestrator.Orchestrator

	closeStore func() error
}

func setupStore(ctx context.Context, cfg config.Server) (backend, func() error, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("using in-memory store, state is lost on restart")
		return memory.New(), func() error { return nil }, nil
	}

	store, err := postgres.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
	}
	log.Info().Str("database", cfg.DB.Redacted()).Msg("connected to database")
	return store, store.Close, nil
}

func setupServices(ctx context.Context, cfg config.Server) (*Services, error) {
	// Wire up dependency injection chain
	// Store → App layer → Service layer, with events fanned out to the
	// gateway and the pick clocks.
	store, closeStore, err := setupStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up store: %w", err)
	}

	rules, err := config.LoadLeagueRules(cfg.RulesPath)
	if err != nil {
		closeStore()
		return nil, err
	}
	strategy, err := draft.StrategyByName(cfg.AutoPickStrategy)
	if err != nil {
		closeStore()
		return nil, err
	}

	// The gateway and the clocks both read from the draft app, so the
	// fan-out is bound once all three exist and before anything is served.
	var fanout events.Notifier = events.Nop{}
	notifier := events.NotifierFunc(func(ctx context.Context, env events.Envelope) {
		fanout.Notify(ctx, env)
	})

	draftApp := draft.NewApp(store, notifier, draft.WithAutoPickStrategy(strategy))
	gw := gateway.NewService(gateway.DefaultConfig(), draftApp)
	orch := orchestrator.New(draftApp, orchestrator.WithWorkers(cfg.TimerWorkers))
	fanout = events.Fanout{gw, orch}

	seasonApp := season.NewApp(store, season.WithDefaults(rules.Season()))
	freeAgencyApp := freeagency.NewApp(store, notifier)

	return &Services{
		Store:        store,
		Draft:        draft.NewService(draftApp),
		Season:       season.NewService(seasonApp),
		FreeAgency:   freeagency.NewService(freeAgencyApp),
		Gateway:      gw,
		Orchestrator: orch,
		closeStore:   closeStore,
	}, nil
}

func (s *Services) Close() error {
	return s.closeStore()
}
