package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "league.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestLoadLeagueRules(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		rules, err := LoadLeagueRules("")
		if err != nil {
			t.Fatalf("LoadLeagueRules: %v", err)
		}
		if rules != DefaultLeagueRules() {
			t.Errorf("expected defaults, got %+v", rules)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeRules(t, "point_budget_per_team: 100\nmax_roster_size: 11\ntimeout_policy: auto_pick\n")
		rules, err := LoadLeagueRules(path)
		if err != nil {
			t.Fatalf("LoadLeagueRules: %v", err)
		}
		s := rules.Season()
		if s.PointBudgetPerTeam != 100 || s.MaxRosterSize != 11 || s.MinRosterSize != 8 {
			t.Errorf("unexpected season defaults %+v", s)
		}
		if s.DefaultTimeoutPolicy != models.TimeoutPolicyAutoPick {
			t.Errorf("expected auto_pick, got %q", s.DefaultTimeoutPolicy)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "point_budget_per_team: [\n"},
		{"zero budget", "point_budget_per_team: 0\n"},
		{"min above max", "min_roster_size: 12\n"},
		{"unknown policy", "timeout_policy: coin_flip\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadLeagueRules(writeRules(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := LoadLeagueRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadServer(t *testing.T) {
	t.Setenv("DRAFTLEAGUE_STORE", "postgres")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TIMER_WORKERS", "2")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Store != StorePostgres || cfg.TimerWorkers != 2 || len(cfg.AllowedOrigins) != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Port != "8080" || cfg.DB.Port != 5432 {
		t.Errorf("defaults not applied: port=%s db port=%d", cfg.Port, cfg.DB.Port)
	}

	t.Setenv("DRAFTLEAGUE_STORE", "sqlite")
	if _, err := LoadServer(); err == nil {
		t.Error("expected unknown store to fail")
	}
}

func TestLoadRelayDefaults(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "25")

	var cfg Relay
	if err := Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BatchSize != 25 || cfg.PollInterval != 5*time.Second || cfg.StallThreshold != 5*time.Minute {
		t.Errorf("unexpected relay config %+v", cfg)
	}
}
