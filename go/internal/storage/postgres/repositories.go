package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/sqlutil"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

type seasonRepo struct{ q querier }

const seasonColumns = `id, name, point_budget_per_team, tera_budget, min_roster_size, max_roster_size,
	max_free_agency_transactions, free_agency_deadline, total_teams, current_week,
	default_pick_time_limit_sec, default_timeout_policy, created_at, updated_at`

func (r seasonRepo) Create(ctx context.Context, s *models.Season) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO seasons (`+seasonColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.Name, s.PointBudgetPerTeam, s.TeraBudget, s.MinRosterSize, s.MaxRosterSize,
		s.MaxFreeAgencyTransactions, s.FreeAgencyDeadline, s.TotalTeams, s.CurrentWeek,
		s.DefaultPickTimeLimitSec, string(s.DefaultTimeoutPolicy), s.CreatedAt, s.UpdatedAt)
	return mapErr(err, "season "+s.ID.String())
}

// Get takes a share lock: concurrent units may read the rules, only
// SetCurrentWeek-style updates wait.
func (r seasonRepo) Get(ctx context.Context, id uuid.UUID) (*models.Season, error) {
	var (
		s      models.Season
		policy string
	)
	err := r.q.QueryRowContext(ctx, `SELECT `+seasonColumns+` FROM seasons WHERE id = $1 FOR SHARE`, id).Scan(
		&s.ID, &s.Name, &s.PointBudgetPerTeam, &s.TeraBudget, &s.MinRosterSize, &s.MaxRosterSize,
		&s.MaxFreeAgencyTransactions, &s.FreeAgencyDeadline, &s.TotalTeams, &s.CurrentWeek,
		&s.DefaultPickTimeLimitSec, &policy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, "season "+id.String())
	}
	s.DefaultTimeoutPolicy = models.TimeoutPolicy(policy)
	return &s, nil
}

func (r seasonRepo) Update(ctx context.Context, s *models.Season) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE seasons SET name = $2, point_budget_per_team = $3, tera_budget = $4, min_roster_size = $5,
			max_roster_size = $6, max_free_agency_transactions = $7, free_agency_deadline = $8,
			total_teams = $9, current_week = $10, default_pick_time_limit_sec = $11,
			default_timeout_policy = $12, updated_at = $13
		WHERE id = $1`,
		s.ID, s.Name, s.PointBudgetPerTeam, s.TeraBudget, s.MinRosterSize, s.MaxRosterSize,
		s.MaxFreeAgencyTransactions, s.FreeAgencyDeadline, s.TotalTeams, s.CurrentWeek,
		s.DefaultPickTimeLimitSec, string(s.DefaultTimeoutPolicy), s.UpdatedAt)
	if err != nil {
		return mapErr(err, "season "+s.ID.String())
	}
	return expectOne(res, storage.ErrNotFound, "season "+s.ID.String())
}

type teamRepo struct{ q querier }

const teamColumns = `id, team_id, season_id, team_name, points_spent, roster, transactions_used, version, created_at, updated_at`

func (r teamRepo) Create(ctx context.Context, ts *models.TeamSeason) error {
	roster, err := marshalRoster(ts.Roster)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO team_seasons (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ts.ID, ts.TeamID, ts.SeasonID, ts.TeamName, ts.PointsSpent, roster, ts.TransactionsUsed,
		ts.Version, ts.CreatedAt, ts.UpdatedAt)
	return mapErr(err, "team "+ts.TeamID.String())
}

func (r teamRepo) Get(ctx context.Context, seasonID, teamID uuid.UUID) (*models.TeamSeason, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+teamColumns+` FROM team_seasons
		WHERE season_id = $1 AND team_id = $2
		FOR UPDATE`, seasonID, teamID)
	ts, err := scanTeam(row)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("team %s in season %s", teamID, seasonID))
	}
	return ts, nil
}

func (r teamRepo) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.TeamSeason, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+teamColumns+` FROM team_seasons
		WHERE season_id = $1
		ORDER BY created_at, team_id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var out []models.TeamSeason
	for rows.Next() {
		ts, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, *ts)
	}
	return out, rows.Err()
}

func (r teamRepo) Update(ctx context.Context, ts *models.TeamSeason) error {
	roster, err := marshalRoster(ts.Roster)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE team_seasons SET team_name = $4, points_spent = $5, roster = $6,
			transactions_used = $7, updated_at = $8, version = version + 1
		WHERE season_id = $1 AND team_id = $2 AND version = $3`,
		ts.SeasonID, ts.TeamID, ts.Version, ts.TeamName, ts.PointsSpent, roster, ts.TransactionsUsed, ts.UpdatedAt)
	if err != nil {
		return mapErr(err, "team "+ts.TeamID.String())
	}
	if err := expectOne(res, storage.ErrVersionConflict, "team "+ts.TeamID.String()); err != nil {
		return err
	}
	ts.Version++
	return nil
}

func marshalRoster(roster []models.RosterEntry) ([]byte, error) {
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	b, err := json.Marshal(roster)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roster: %w", err)
	}
	return b, nil
}

func scanTeam(row scanner) (*models.TeamSeason, error) {
	var (
		ts     models.TeamSeason
		roster []byte
	)
	if err := row.Scan(&ts.ID, &ts.TeamID, &ts.SeasonID, &ts.TeamName, &ts.PointsSpent, &roster,
		&ts.TransactionsUsed, &ts.Version, &ts.CreatedAt, &ts.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(roster, &ts.Roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster: %w", err)
	}
	return &ts, nil
}

type assetRepo struct{ q querier }

const assetColumns = `id, season_id, name, point_value, status, tera_banned, owner_team_id, pool_index, generation, updated_at`

func (r assetRepo) Create(ctx context.Context, a *models.DraftableAsset) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO draftable_assets (`+assetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.SeasonID, a.Name, a.PointValue, string(a.Status), a.TeraBanned,
		sqlutil.ToNullUUID(a.OwnerTeamID), a.PoolIndex, a.Generation, a.UpdatedAt)
	return mapErr(err, "asset "+a.ID.String())
}

func (r assetRepo) Get(ctx context.Context, id uuid.UUID) (*models.DraftableAsset, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM draftable_assets WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAsset(row)
	if err != nil {
		return nil, mapErr(err, "asset "+id.String())
	}
	return a, nil
}

func (r assetRepo) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.DraftableAsset, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+assetColumns+` FROM draftable_assets
		WHERE season_id = $1
		ORDER BY pool_index`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var out []models.DraftableAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r assetRepo) UpdateStatus(ctx context.Context, a *models.DraftableAsset, expected models.AssetStatus) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE draftable_assets SET status = $3, tera_banned = $4, owner_team_id = $5, updated_at = $6
		WHERE id = $1 AND status = $2`,
		a.ID, string(expected), string(a.Status), a.TeraBanned, sqlutil.ToNullUUID(a.OwnerTeamID), a.UpdatedAt)
	if err != nil {
		return mapErr(err, "asset "+a.ID.String())
	}
	return expectOne(res, storage.ErrConflict, fmt.Sprintf("asset %s expected %s", a.ID, expected))
}

func scanAsset(row scanner) (*models.DraftableAsset, error) {
	var (
		a      models.DraftableAsset
		status string
		owner  uuid.NullUUID
	)
	if err := row.Scan(&a.ID, &a.SeasonID, &a.Name, &a.PointValue, &status, &a.TeraBanned,
		&owner, &a.PoolIndex, &a.Generation, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = models.AssetStatus(status)
	a.OwnerTeamID = sqlutil.FromNullUUID(owner)
	return &a, nil
}

type sessionRepo struct{ q querier }

const sessionColumns = `id, season_id, draft_type, status, turn_order, total_teams, total_rounds,
	current_round, current_pick_number, current_team_id, picks_made, pick_time_limit_seconds,
	timeout_policy, pick_deadline, lot, event_seq, halt_reason, version, created_at, started_at,
	completed_at, updated_at`

func (r sessionRepo) Create(ctx context.Context, s *models.DraftSession) error {
	lot, err := sqlutil.ToNullJSON(s.Lot)
	if err != nil {
		return fmt.Errorf("failed to marshal lot: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO draft_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		s.ID, s.SeasonID, string(s.DraftType), string(s.Status), sqlutil.ToUUIDArray(s.TurnOrder),
		s.TotalTeams, s.TotalRounds, s.CurrentRound, s.CurrentPickNumber,
		sqlutil.ToNullUUIDValue(s.CurrentTeamID), s.PicksMade, s.PickTimeLimitSeconds,
		string(s.TimeoutPolicy), sqlutil.ToSqlTime(s.PickDeadline), lot, s.EventSeq, s.HaltReason,
		s.Version, s.CreatedAt, sqlutil.ToSqlTime(s.StartedAt), sqlutil.ToSqlTime(s.CompletedAt), s.UpdatedAt)
	return mapErr(err, "session "+s.ID.String())
}

func (r sessionRepo) Get(ctx context.Context, id uuid.UUID) (*models.DraftSession, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM draft_sessions WHERE id = $1 FOR UPDATE`, id)
	s, err := scanSession(row)
	if err != nil {
		return nil, mapErr(err, "session "+id.String())
	}
	return s, nil
}

func (r sessionRepo) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.DraftSession, error) {
	return r.list(ctx, `WHERE season_id = $1`, seasonID)
}

func (r sessionRepo) ListByStatus(ctx context.Context, statuses ...models.DraftStatus) ([]models.DraftSession, error) {
	names := make(pq.StringArray, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return r.list(ctx, `WHERE status = ANY($1)`, names)
}

func (r sessionRepo) list(ctx context.Context, where string, arg any) ([]models.DraftSession, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+sessionColumns+` FROM draft_sessions `+where+` ORDER BY created_at`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.DraftSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r sessionRepo) Update(ctx context.Context, s *models.DraftSession) error {
	lot, err := sqlutil.ToNullJSON(s.Lot)
	if err != nil {
		return fmt.Errorf("failed to marshal lot: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE draft_sessions SET status = $3, turn_order = $4, current_round = $5,
			current_pick_number = $6, current_team_id = $7, picks_made = $8, pick_time_limit_seconds = $9,
			timeout_policy = $10, pick_deadline = $11, lot = $12, event_seq = $13, halt_reason = $14,
			started_at = $15, completed_at = $16, updated_at = $17, version = version + 1
		WHERE id = $1 AND version = $2`,
		s.ID, s.Version, string(s.Status), sqlutil.ToUUIDArray(s.TurnOrder), s.CurrentRound,
		s.CurrentPickNumber, sqlutil.ToNullUUIDValue(s.CurrentTeamID), s.PicksMade, s.PickTimeLimitSeconds,
		string(s.TimeoutPolicy), sqlutil.ToSqlTime(s.PickDeadline), lot, s.EventSeq, s.HaltReason,
		sqlutil.ToSqlTime(s.StartedAt), sqlutil.ToSqlTime(s.CompletedAt), s.UpdatedAt)
	if err != nil {
		return mapErr(err, "session "+s.ID.String())
	}
	if err := expectOne(res, storage.ErrVersionConflict, "session "+s.ID.String()); err != nil {
		return err
	}
	s.Version++
	return nil
}

func scanSession(row scanner) (*models.DraftSession, error) {
	var (
		s                            models.DraftSession
		draftType, status, policy    string
		order                        pq.StringArray
		current                      uuid.NullUUID
		deadline, started, completed sql.NullTime
		lot                          pqtype.NullRawMessage
	)
	if err := row.Scan(&s.ID, &s.SeasonID, &draftType, &status, &order, &s.TotalTeams, &s.TotalRounds,
		&s.CurrentRound, &s.CurrentPickNumber, &current, &s.PicksMade, &s.PickTimeLimitSeconds,
		&policy, &deadline, &lot, &s.EventSeq, &s.HaltReason, &s.Version, &s.CreatedAt, &started,
		&completed, &s.UpdatedAt); err != nil {
		return nil, err
	}
	turnOrder, err := sqlutil.FromUUIDArray(order)
	if err != nil {
		return nil, fmt.Errorf("failed to decode turn order: %w", err)
	}
	s.TurnOrder = turnOrder
	s.Lot, err = sqlutil.FromNullJSON[models.AuctionLot](lot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal lot: %w", err)
	}
	s.DraftType = models.DraftType(draftType)
	s.Status = models.DraftStatus(status)
	s.TimeoutPolicy = models.TimeoutPolicy(policy)
	if current.Valid {
		s.CurrentTeamID = current.UUID
	}
	s.PickDeadline = sqlutil.FromSqlTime(deadline)
	s.StartedAt = sqlutil.FromSqlTime(started)
	s.CompletedAt = sqlutil.FromSqlTime(completed)
	return &s, nil
}

type pickRepo struct{ q querier }

const pickColumns = `id, session_id, sequence, round, pick_number, team_id, asset_id,
	point_value_at_pick, resolution, was_auto_resolved, picked_at`

func (r pickRepo) Append(ctx context.Context, p *models.DraftPick) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO draft_picks (`+pickColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.SessionID, p.Sequence, p.Round, p.PickNumber, p.TeamID, sqlutil.ToNullUUID(p.AssetID),
		p.PointValueAtPick, string(p.Resolution), p.WasAutoResolved, p.PickedAt)
	return mapErr(err, fmt.Sprintf("pick %d in session %s", p.PickNumber, p.SessionID))
}

func (r pickRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+pickColumns+` FROM draft_picks
		WHERE session_id = $1
		ORDER BY sequence`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	defer rows.Close()

	var out []models.DraftPick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r pickRepo) Last(ctx context.Context, sessionID uuid.UUID) (*models.DraftPick, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+pickColumns+` FROM draft_picks
		WHERE session_id = $1
		ORDER BY sequence DESC
		LIMIT 1`, sessionID)
	p, err := scanPick(row)
	if err != nil {
		return nil, mapErr(err, "last pick of session "+sessionID.String())
	}
	return p, nil
}

func scanPick(row scanner) (*models.DraftPick, error) {
	var (
		p          models.DraftPick
		asset      uuid.NullUUID
		resolution string
	)
	if err := row.Scan(&p.ID, &p.SessionID, &p.Sequence, &p.Round, &p.PickNumber, &p.TeamID, &asset,
		&p.PointValueAtPick, &resolution, &p.WasAutoResolved, &p.PickedAt); err != nil {
		return nil, err
	}
	p.AssetID = sqlutil.FromNullUUID(asset)
	p.Resolution = models.PickResolution(resolution)
	return &p, nil
}

type txnRepo struct{ q querier }

const txnColumns = `id, team_id, season_id, kind, added_asset_id, dropped_asset_id,
	added_points, refunded_points, point_delta, week, created_at`

func (r txnRepo) Append(ctx context.Context, t *models.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO free_agency_transactions (`+txnColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.TeamID, t.SeasonID, string(t.Kind), sqlutil.ToNullUUID(t.AddedAssetID),
		sqlutil.ToNullUUID(t.DroppedAssetID), t.AddedPoints, t.RefundedPoints, t.PointDelta, t.Week, t.CreatedAt)
	return mapErr(err, "transaction "+t.ID.String())
}

// List returns matching transactions, newest first.
func (r txnRepo) List(ctx context.Context, f storage.TransactionFilter) ([]models.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if f.SeasonID != uuid.Nil {
		args = append(args, f.SeasonID)
		conds = append(conds, fmt.Sprintf("season_id = $%d", len(args)))
	}
	if f.TeamID != uuid.Nil {
		args = append(args, f.TeamID)
		conds = append(conds, fmt.Sprintf("team_id = $%d", len(args)))
	}
	query := `SELECT ` + txnColumns + ` FROM free_agency_transactions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY position DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			t              models.Transaction
			kind           string
			added, dropped uuid.NullUUID
		)
		if err := rows.Scan(&t.ID, &t.TeamID, &t.SeasonID, &kind, &added, &dropped,
			&t.AddedPoints, &t.RefundedPoints, &t.PointDelta, &t.Week, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Kind = models.TransactionKind(kind)
		t.AddedAssetID = sqlutil.FromNullUUID(added)
		t.DroppedAssetID = sqlutil.FromNullUUID(dropped)
		out = append(out, t)
	}
	return out, rows.Err()
}

type outboxRepo struct{ q querier }

// Insert fires the draft_outbox_events NOTIFY on commit.
func (r outboxRepo) Insert(ctx context.Context, rec storage.OutboxRecord) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO draft_outbox (id, season_id, stream_id, sequence, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.SeasonID, rec.StreamID, rec.Sequence, rec.EventType, rec.Payload, rec.CreatedAt)
	return mapErr(err, "outbox event "+rec.ID.String())
}
