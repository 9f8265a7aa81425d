package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/clients/pokeapi"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/dbconfig"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/season"
)

const defaultPoolFile = "go/internal/assets/pool.yaml"

// usage: seed_pool <season-id> [pool.yaml]
func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: seed_pool <season-id> [pool.yaml]")
		os.Exit(2)
	}
	seasonID, err := uuid.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid season id: %v\n", err)
		os.Exit(2)
	}
	path := defaultPoolFile
	if len(os.Args) > 2 {
		path = os.Args[2]
	}

	// 1) Load the pool snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var inputs []season.AssetInput
	if err := yaml.Unmarshal(data, &inputs); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal YAML: %v\n", err)
		os.Exit(1)
	}

	// Optionally fill missing generations from PokeAPI
	if os.Getenv("POKEAPI_LOOKUP") == "true" {
		api := pokeapi.NewClient(os.Getenv("POKEAPI_BASE_URL"))
		for i := range inputs {
			if inputs[i].Generation != 0 {
				continue
			}
			gen, err := api.Generation(ctx, inputs[i].Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "generation lookup for %s: %v\n", inputs[i].Name, err)
				continue
			}
			inputs[i].Generation = gen
		}
	}

	// 2) Connect using shared dbconfig
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Copy in one transaction, continuing the season's pool order
	n, err := seed(ctx, pool, seasonID, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Pool seed complete: season=%s total=%d copied=%d\n", seasonID, len(inputs), n)
}

func seed(ctx context.Context, pool *pgxpool.Pool, seasonID uuid.UUID, inputs []season.AssetInput) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM seasons WHERE id = $1 FOR UPDATE`, seasonID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("season %s does not exist", seasonID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up season: %w", err)
	}

	var live int
	err = tx.QueryRow(ctx, `
        SELECT count(*) FROM draft_sessions
        WHERE season_id = $1 AND status = ANY($2)
    `, seasonID, []string{
		string(models.DraftStatusActive),
		string(models.DraftStatusPaused),
		string(models.DraftStatusHalted),
	}).Scan(&live)
	if err != nil {
		return 0, fmt.Errorf("failed to check sessions: %w", err)
	}
	if live > 0 {
		return 0, errors.New("season has a draft in progress, the pool is frozen")
	}

	var next int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(pool_index) + 1, 0) FROM draftable_assets WHERE season_id = $1`, seasonID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read pool index: %w", err)
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" || in.PointValue < 0 {
			return 0, fmt.Errorf("entry %d: name is required and points must not be negative", i)
		}
		status := models.AssetStatusAvailable
		switch {
		case in.Banned:
			status = models.AssetStatusBanned
		case in.TeraBanned:
			status = models.AssetStatusTeraBanned
		}
		rows = append(rows, []any{
			uuid.New(), seasonID, name, in.PointValue, string(status),
			in.TeraBanned, next + i, in.Generation, now,
		})
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"draftable_assets"},
		[]string{"id", "season_id", "name", "point_value", "status", "tera_banned", "pool_index", "generation", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy assets: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return n, nil
}
