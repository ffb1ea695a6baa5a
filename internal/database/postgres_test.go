package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))
	assert.NoError(t, db.HealthCheck(ctx))
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO games (game_id, status) VALUES ('g-rollback', 'live')`); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM games WHERE game_id = 'g-rollback'`).Scan(&count))
	assert.Equal(t, 0, count)
}
