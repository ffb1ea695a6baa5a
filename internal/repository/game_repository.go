package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/hoop-signals/internal/database"
	"github.com/yourusername/hoop-signals/internal/models"
)

const gameColumns = `game_id, home_team_id, home_team_name, away_team_id, away_team_name,
	home_score, away_score, quarter, clock, quarter_scores, halftime, final,
	spread, home_moneyline, away_moneyline, total_line, status, updated_at`

// PostgresGameRepository implements GameRepository for PostgreSQL
type PostgresGameRepository struct {
	db *database.DB
}

// NewPostgresGameRepository creates a new game repository
func NewPostgresGameRepository(db *database.DB) GameRepository {
	return &PostgresGameRepository{db: db}
}

// GetUpdatedSince retrieves in-progress and final games touched after since
func (g *PostgresGameRepository) GetUpdatedSince(ctx context.Context, since time.Time) ([]*models.GameSnapshot, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = ANY($1) AND updated_at > $2
		ORDER BY updated_at ASC
	`

	rows, err := g.db.Query(ctx, query, []string{
		string(models.GameStatusLive),
		string(models.GameStatusHalftime),
		string(models.GameStatusFinal),
	}, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []*models.GameSnapshot
	for rows.Next() {
		snap, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, snap)
	}
	return games, rows.Err()
}

// GetByID retrieves the latest snapshot of a game
func (g *PostgresGameRepository) GetByID(ctx context.Context, gameID string) (*models.GameSnapshot, error) {
	snap, err := scanGame(g.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE game_id = $1`, gameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return snap, nil
}

// GetPlayerStats retrieves the player side table for a game; games without stats return nil
func (g *PostgresGameRepository) GetPlayerStats(ctx context.Context, gameID string) ([]models.PlayerStat, error) {
	rows, err := g.db.Query(ctx, `
		SELECT player_id, name, side, points, rebounds, assists
		FROM player_stats
		WHERE game_id = $1
		ORDER BY player_id
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query player stats: %w", err)
	}
	defer rows.Close()

	var stats []models.PlayerStat
	for rows.Next() {
		var ps models.PlayerStat
		var side string
		if err := rows.Scan(&ps.PlayerID, &ps.Name, &side, &ps.Points, &ps.Rebounds, &ps.Assists); err != nil {
			return nil, fmt.Errorf("failed to scan player stat: %w", err)
		}
		ps.Side = models.TeamSide(side)
		stats = append(stats, ps)
	}
	return stats, rows.Err()
}

// Upsert writes a game snapshot. Used by the simulation feed and tests.
func (g *PostgresGameRepository) Upsert(ctx context.Context, snap *models.GameSnapshot) error {
	quarters, err := json.Marshal(snap.QuarterScores)
	if err != nil {
		return fmt.Errorf("failed to encode quarter scores: %w", err)
	}
	if snap.QuarterScores == nil {
		quarters = []byte("[]")
	}
	halftime, err := pairJSON(snap.Halftime)
	if err != nil {
		return err
	}
	final, err := pairJSON(snap.Final)
	if err != nil {
		return err
	}

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = g.db.Exec(ctx, `
		INSERT INTO games (`+gameColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (game_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			quarter = EXCLUDED.quarter,
			clock = EXCLUDED.clock,
			quarter_scores = EXCLUDED.quarter_scores,
			halftime = EXCLUDED.halftime,
			final = EXCLUDED.final,
			spread = EXCLUDED.spread,
			home_moneyline = EXCLUDED.home_moneyline,
			away_moneyline = EXCLUDED.away_moneyline,
			total_line = EXCLUDED.total_line,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`,
		snap.GameID, snap.HomeTeam.ID, snap.HomeTeam.Name, snap.AwayTeam.ID, snap.AwayTeam.Name,
		snap.HomeScore, snap.AwayScore, snap.Quarter, snap.Clock, string(quarters), halftime, final,
		snap.Spread, snap.HomeMoneyline, snap.AwayMoneyline, snap.TotalLine, string(snap.Status), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}

func scanGame(row pgx.Row) (*models.GameSnapshot, error) {
	snap := &models.GameSnapshot{}
	var quarters, halftime, final []byte
	var status string
	err := row.Scan(
		&snap.GameID, &snap.HomeTeam.ID, &snap.HomeTeam.Name, &snap.AwayTeam.ID, &snap.AwayTeam.Name,
		&snap.HomeScore, &snap.AwayScore, &snap.Quarter, &snap.Clock, &quarters, &halftime, &final,
		&snap.Spread, &snap.HomeMoneyline, &snap.AwayMoneyline, &snap.TotalLine, &status, &snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	snap.Status = models.GameStatus(status)

	if len(quarters) > 0 {
		if err := json.Unmarshal(quarters, &snap.QuarterScores); err != nil {
			return nil, fmt.Errorf("failed to decode quarter scores for %s: %w", snap.GameID, err)
		}
	}
	if snap.Halftime, err = decodePair(halftime); err != nil {
		return nil, fmt.Errorf("failed to decode halftime for %s: %w", snap.GameID, err)
	}
	if snap.Final, err = decodePair(final); err != nil {
		return nil, fmt.Errorf("failed to decode final for %s: %w", snap.GameID, err)
	}
	return snap, nil
}

func decodePair(raw []byte) (*models.ScorePair, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p models.ScorePair
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func pairJSON(p *models.ScorePair) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score pair: %w", err)
	}
	return string(b), nil
}
