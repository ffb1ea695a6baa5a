package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/hoop-signals/internal/config"
)

// requiredTables are owned by the ingestion and strategy-authoring collaborators, except signals
var requiredTables = []string{"games", "player_stats", "strategies", "strategy_triggers", "signals"}

// Schema creates the tables the engine reads and writes. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id         TEXT PRIMARY KEY,
	home_team_id    TEXT NOT NULL DEFAULT '',
	home_team_name  TEXT NOT NULL DEFAULT '',
	away_team_id    TEXT NOT NULL DEFAULT '',
	away_team_name  TEXT NOT NULL DEFAULT '',
	home_score      INTEGER NOT NULL DEFAULT 0,
	away_score      INTEGER NOT NULL DEFAULT 0,
	quarter         INTEGER NOT NULL DEFAULT 0,
	clock           TEXT NOT NULL DEFAULT '',
	quarter_scores  JSONB NOT NULL DEFAULT '[]',
	halftime        JSONB,
	final           JSONB,
	spread          DOUBLE PRECISION,
	home_moneyline  DOUBLE PRECISION,
	away_moneyline  DOUBLE PRECISION,
	total_line      DOUBLE PRECISION,
	status          TEXT NOT NULL DEFAULT 'scheduled',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS player_stats (
	game_id    TEXT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
	player_id  TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	side       TEXT NOT NULL,
	points     INTEGER NOT NULL DEFAULT 0,
	rebounds   INTEGER NOT NULL DEFAULT 0,
	assists    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS strategies (
	id                UUID PRIMARY KEY,
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	two_stage         BOOLEAN NOT NULL DEFAULT FALSE,
	expiry_clock      TEXT NOT NULL DEFAULT '',
	rules             JSONB,
	odds_requirement  JSONB,
	win_requirements  JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS strategy_triggers (
	id           UUID PRIMARY KEY,
	strategy_id  UUID NOT NULL REFERENCES strategies(id) ON DELETE CASCADE,
	ordinal      INTEGER NOT NULL,
	role         TEXT NOT NULL,
	conditions   JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS signals (
	id                     UUID PRIMARY KEY,
	game_id                TEXT NOT NULL,
	strategy_id            UUID NOT NULL,
	strategy_name          TEXT NOT NULL DEFAULT '',
	status                 TEXT NOT NULL,
	leading_team_at_entry  TEXT NOT NULL DEFAULT '',
	entry_home_score       INTEGER NOT NULL DEFAULT 0,
	entry_away_score       INTEGER NOT NULL DEFAULT 0,
	entry_quarter          INTEGER NOT NULL DEFAULT 0,
	entry_clock            TEXT NOT NULL DEFAULT '',
	required_odds          TEXT NOT NULL DEFAULT '',
	actual_odds            DOUBLE PRECISION,
	odds_type              TEXT NOT NULL DEFAULT '',
	bet_side               TEXT NOT NULL DEFAULT '',
	final_home_score       INTEGER,
	final_away_score       INTEGER,
	outcome                TEXT,
	summary                TEXT NOT NULL DEFAULT '',
	note                   TEXT NOT NULL DEFAULT '',
	created_at             TIMESTAMPTZ NOT NULL,
	watching_at            TIMESTAMPTZ,
	bet_taken_at           TIMESTAMPTZ,
	resolved_at            TIMESTAMPTZ,
	updated_at             TIMESTAMPTZ NOT NULL,
	UNIQUE (game_id, strategy_id)
);

CREATE INDEX IF NOT EXISTS idx_signals_status ON signals (status);
CREATE INDEX IF NOT EXISTS idx_games_status ON games (status);
`

// Initialize creates a database connection pool and verifies the schema the engine depends on
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	missing, err := db.missingTables(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(missing) > 0 {
		if !cfg.IsDevelopment() {
			db.Close()
			return nil, fmt.Errorf("database schema incomplete, missing tables: %v", missing)
		}
		log.WithField("tables", missing).Warn("Creating missing tables in development database")
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// EnsureSchema applies Schema
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (db *DB) missingTables(ctx context.Context) ([]string, error) {
	var missing []string
	for _, table := range requiredTables {
		var exists bool
		err := db.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	return missing, nil
}
