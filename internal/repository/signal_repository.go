package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/hoop-signals/internal/database"
	"github.com/yourusername/hoop-signals/internal/models"
)

const signalColumns = `id, game_id, strategy_id, strategy_name, status, leading_team_at_entry,
	entry_home_score, entry_away_score, entry_quarter, entry_clock, required_odds, actual_odds,
	odds_type, bet_side, final_home_score, final_away_score, outcome, summary, note,
	created_at, watching_at, bet_taken_at, resolved_at, updated_at`

// PostgresSignalRepository implements SignalRepository for PostgreSQL
type PostgresSignalRepository struct {
	db *database.DB
}

// NewPostgresSignalRepository creates a new signal repository
func NewPostgresSignalRepository(db *database.DB) SignalRepository {
	return &PostgresSignalRepository{db: db}
}

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// Save upserts a signal by ID. A second signal for the same (game, strategy) pair is rejected
// with models.ErrDuplicateKey.
func (r *PostgresSignalRepository) Save(ctx context.Context, sig *models.Signal) error {
	query := `
		INSERT INTO signals (` + signalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		        $20, $21, $22, $23, $24)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			actual_odds = EXCLUDED.actual_odds,
			odds_type = EXCLUDED.odds_type,
			bet_side = EXCLUDED.bet_side,
			final_home_score = EXCLUDED.final_home_score,
			final_away_score = EXCLUDED.final_away_score,
			outcome = EXCLUDED.outcome,
			summary = EXCLUDED.summary,
			note = EXCLUDED.note,
			watching_at = EXCLUDED.watching_at,
			bet_taken_at = EXCLUDED.bet_taken_at,
			resolved_at = EXCLUDED.resolved_at,
			updated_at = EXCLUDED.updated_at
	`

	var outcome *string
	if sig.Outcome != nil {
		o := string(*sig.Outcome)
		outcome = &o
	}

	_, err := r.db.Exec(ctx, query,
		sig.ID, sig.GameID, sig.StrategyID, sig.StrategyName, string(sig.Status), string(sig.LeadingTeamAtEntry),
		sig.EntryHomeScore, sig.EntryAwayScore, sig.EntryQuarter, sig.EntryClock, sig.RequiredOdds, sig.ActualOdds,
		string(sig.OddsType), string(sig.BetSide), sig.FinalHomeScore, sig.FinalAwayScore, outcome, sig.Summary, sig.Note,
		sig.CreatedAt, sig.WatchingAt, sig.BetTakenAt, sig.ResolvedAt, sig.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("signal for %s: %w", sig.Key(), models.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to save signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by ID
func (r *PostgresSignalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Signal, error) {
	sig, err := scanSignal(r.db.QueryRow(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return sig, nil
}

// GetByGame retrieves every signal of a game ordered by creation
func (r *PostgresSignalRepository) GetByGame(ctx context.Context, gameID string) ([]*models.Signal, error) {
	return r.list(ctx, `SELECT `+signalColumns+` FROM signals WHERE game_id = $1 ORDER BY created_at ASC`, gameID)
}

// GetOpen retrieves every signal that has not reached a terminal status
func (r *PostgresSignalRepository) GetOpen(ctx context.Context) ([]*models.Signal, error) {
	return r.list(ctx, `SELECT `+signalColumns+` FROM signals WHERE status = ANY($1) ORDER BY created_at ASC`,
		[]string{
			string(models.SignalStatusMonitoring),
			string(models.SignalStatusWatching),
			string(models.SignalStatusBetTaken),
		})
}

func (r *PostgresSignalRepository) list(ctx context.Context, query string, args ...any) ([]*models.Signal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

func scanSignal(row pgx.Row) (*models.Signal, error) {
	sig := &models.Signal{}
	var status, leading, oddsType, betSide string
	var outcome *string
	err := row.Scan(
		&sig.ID, &sig.GameID, &sig.StrategyID, &sig.StrategyName, &status, &leading,
		&sig.EntryHomeScore, &sig.EntryAwayScore, &sig.EntryQuarter, &sig.EntryClock, &sig.RequiredOdds, &sig.ActualOdds,
		&oddsType, &betSide, &sig.FinalHomeScore, &sig.FinalAwayScore, &outcome, &sig.Summary, &sig.Note,
		&sig.CreatedAt, &sig.WatchingAt, &sig.BetTakenAt, &sig.ResolvedAt, &sig.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sig.Status = models.SignalStatus(status)
	sig.LeadingTeamAtEntry = models.TeamSide(leading)
	sig.OddsType = models.OddsType(oddsType)
	sig.BetSide = models.BetSide(betSide)
	if outcome != nil {
		o := models.Outcome(*outcome)
		sig.Outcome = &o
	}
	return sig, nil
}
