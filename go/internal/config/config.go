// Package config loads process settings from the environment and league
// rule defaults from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/dbconfig"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

// StoreKind selects the storage backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
)

// Server is the configuration of the draft server binary.
type Server struct {
	Port             string        `env:"PORT" envDefault:"8080"`
	Store            StoreKind     `env:"DRAFTLEAGUE_STORE" envDefault:"memory"`
	Migrate          bool          `env:"DRAFTLEAGUE_MIGRATE" envDefault:"true"`
	RulesPath        string        `env:"DRAFTLEAGUE_RULES"`
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	NATSURL          string        `env:"NATS_URL"`
	TimerWorkers     int           `env:"TIMER_WORKERS" envDefault:"4"`
	AutoPickStrategy string        `env:"AUTOPICK_STRATEGY" envDefault:"lowest_index"`
	RelayInterval    time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Log              Log
	DB               dbconfig.Config
}

// Gateway is the configuration of the standalone WebSocket gateway.
type Gateway struct {
	Port            string        `env:"GATEWAY_PORT" envDefault:"8081"`
	NATSURL         string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	DraftServerURL  string        `env:"DRAFT_SERVER_URL" envDefault:"http://localhost:8080"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Log             Log
}

// TimerService is the configuration of the standalone pick timer.
type TimerService struct {
	NATSURL         string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	DraftServerURL  string        `env:"DRAFT_SERVER_URL" envDefault:"http://localhost:8080"`
	Workers         int           `env:"TIMER_WORKERS" envDefault:"4"`
	HealthPort      string        `env:"TIMER_HEALTH_PORT" envDefault:"8082"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Log             Log
}

// Relay is the configuration of the outbox relay.
type Relay struct {
	NATSURL          string        `env:"NATS_URL"`
	PollInterval     time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"5s"`
	BatchSize        int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	FallbackInterval time.Duration `env:"OUTBOX_FALLBACK_INTERVAL" envDefault:"30s"`
	HealthPort       string        `env:"OUTBOX_HEALTH_PORT" envDefault:"8083"`
	StallThreshold   time.Duration `env:"OUTBOX_STALL_THRESHOLD" envDefault:"5m"`
	Log              Log
	DB               dbconfig.Config
}

// Log configures the global zerolog logger.
type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"true"`
}

// Load parses target from the environment.
func Load(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer parses the server configuration and validates it.
func LoadServer() (Server, error) {
	var cfg Server
	if err := Load(&cfg); err != nil {
		return Server{}, err
	}
	switch cfg.Store {
	case StoreMemory, StorePostgres:
	default:
		return Server{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.TimerWorkers < 1 {
		return Server{}, fmt.Errorf("TIMER_WORKERS must be at least 1")
	}
	return cfg, nil
}

// Apply configures the global logger.
func (l Log) Apply() {
	if l.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// LeagueRules is the YAML form of the defaults new seasons start from.
type LeagueRules struct {
	PointBudgetPerTeam        int    `yaml:"point_budget_per_team"`
	TeraBudget                int    `yaml:"tera_budget"`
	MinRosterSize             int    `yaml:"min_roster_size"`
	MaxRosterSize             int    `yaml:"max_roster_size"`
	MaxFreeAgencyTransactions int    `yaml:"max_free_agency_transactions"`
	FreeAgencyDeadline        int    `yaml:"free_agency_deadline"`
	TotalTeams                int    `yaml:"total_teams"`
	PickTimeLimitSeconds      int    `yaml:"pick_time_limit_seconds"`
	TimeoutPolicy             string `yaml:"timeout_policy"`
}

// DefaultLeagueRules are used when no rules file is configured.
func DefaultLeagueRules() LeagueRules {
	return LeagueRules{
		PointBudgetPerTeam:        120,
		TeraBudget:                15,
		MinRosterSize:             8,
		MaxRosterSize:             10,
		MaxFreeAgencyTransactions: 10,
		FreeAgencyDeadline:        12,
		TotalTeams:                20,
		PickTimeLimitSeconds:      45,
		TimeoutPolicy:             string(models.TimeoutPolicyAutoSkip),
	}
}

// LoadLeagueRules reads path over the defaults. An empty path returns the
// defaults.
func LoadLeagueRules(path string) (LeagueRules, error) {
	rules := DefaultLeagueRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return LeagueRules{}, fmt.Errorf("failed to read league rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return LeagueRules{}, fmt.Errorf("failed to parse league rules: %w", err)
	}
	if err := rules.validate(); err != nil {
		return LeagueRules{}, fmt.Errorf("invalid league rules in %s: %w", path, err)
	}
	return rules, nil
}

func (r LeagueRules) validate() error {
	if r.PointBudgetPerTeam <= 0 {
		return fmt.Errorf("point_budget_per_team must be positive")
	}
	if r.MaxRosterSize <= 0 || r.MinRosterSize < 0 || r.MinRosterSize > r.MaxRosterSize {
		return fmt.Errorf("roster sizes must satisfy 0 <= min <= max and max > 0")
	}
	if r.PickTimeLimitSeconds <= 0 {
		return fmt.Errorf("pick_time_limit_seconds must be positive")
	}
	if !models.TimeoutPolicy(r.TimeoutPolicy).Valid() {
		return fmt.Errorf("unknown timeout_policy %q", r.TimeoutPolicy)
	}
	return nil
}

// Season converts the rules into season defaults.
func (r LeagueRules) Season() models.Season {
	return models.Season{
		PointBudgetPerTeam:        r.PointBudgetPerTeam,
		TeraBudget:                r.TeraBudget,
		MinRosterSize:             r.MinRosterSize,
		MaxRosterSize:             r.MaxRosterSize,
		MaxFreeAgencyTransactions: r.MaxFreeAgencyTransactions,
		FreeAgencyDeadline:        r.FreeAgencyDeadline,
		TotalTeams:                r.TotalTeams,
		DefaultPickTimeLimitSec:   r.PickTimeLimitSeconds,
		DefaultTimeoutPolicy:      models.TimeoutPolicy(r.TimeoutPolicy),
	}
}
