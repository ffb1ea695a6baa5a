package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/hoop-signals/internal/database"
	"github.com/yourusername/hoop-signals/internal/models"
)

const strategyColumns = `id, name, description, active, two_stage, expiry_clock,
	rules, odds_requirement, win_requirements, created_at, updated_at`

// PostgresStrategyRepository implements StrategyRepository for PostgreSQL
type PostgresStrategyRepository struct {
	db *database.DB
}

// NewPostgresStrategyRepository creates a new strategy repository
func NewPostgresStrategyRepository(db *database.DB) StrategyRepository {
	return &PostgresStrategyRepository{db: db}
}

// Create inserts a strategy and its triggers in one transaction
func (s *PostgresStrategyRepository) Create(ctx context.Context, strategy *models.Strategy) error {
	if err := strategy.Validate(); err != nil {
		return err
	}

	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO strategies (id, name, description, active, two_stage, expiry_clock,
			                        rules, odds_requirement, win_requirements)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			strategy.ID, strategy.Name, strategy.Description, strategy.Active, strategy.TwoStage,
			strategy.ExpiryClock, nullJSON(strategy.Rules), nullJSON(strategy.OddsRequirement),
			nullJSON(strategy.WinRequirements),
		)
		if err != nil {
			return fmt.Errorf("failed to create strategy: %w", err)
		}

		batch := &pgx.Batch{}
		for _, t := range strategy.Triggers {
			if t == nil {
				continue
			}
			batch.Queue(`
				INSERT INTO strategy_triggers (id, strategy_id, ordinal, role, conditions)
				VALUES ($1, $2, $3, $4, $5)
			`, t.ID, strategy.ID, t.Ordinal, string(t.Role), conditionsJSON(t.Conditions))
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to create strategy triggers: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a strategy and its triggers by ID
func (s *PostgresStrategyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies WHERE id = $1`

	strategy, err := scanStrategy(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}

	if err := s.attachTriggers(ctx, []*models.Strategy{strategy}); err != nil {
		return nil, err
	}
	return strategy, nil
}

// GetActive retrieves all active strategies with their triggers
func (s *PostgresStrategyRepository) GetActive(ctx context.Context) ([]*models.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies WHERE active = true ORDER BY name ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*models.Strategy
	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, strategy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategies: %w", err)
	}

	if err := s.attachTriggers(ctx, strategies); err != nil {
		return nil, err
	}
	return strategies, nil
}

// SetActive toggles a strategy's active flag
func (s *PostgresStrategyRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	commandTag, err := s.db.Exec(ctx,
		"UPDATE strategies SET active = $2, updated_at = NOW() WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete deletes a strategy; its triggers cascade
func (s *PostgresStrategyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	commandTag, err := s.db.Exec(ctx, "DELETE FROM strategies WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// attachTriggers loads the triggers of every strategy in one query
func (s *PostgresStrategyRepository) attachTriggers(ctx context.Context, strategies []*models.Strategy) error {
	if len(strategies) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(strategies))
	byID := make(map[uuid.UUID]*models.Strategy, len(strategies))
	for _, st := range strategies {
		ids = append(ids, st.ID)
		byID[st.ID] = st
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, strategy_id, ordinal, role, conditions
		FROM strategy_triggers
		WHERE strategy_id = ANY($1)
		ORDER BY strategy_id, ordinal ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query strategy triggers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &models.Trigger{}
		var role string
		var conditions []byte
		if err := rows.Scan(&t.ID, &t.StrategyID, &t.Ordinal, &role, &conditions); err != nil {
			return fmt.Errorf("failed to scan strategy trigger: %w", err)
		}
		t.Role = models.TriggerRole(role)
		t.Conditions = conditions
		if st, ok := byID[t.StrategyID]; ok {
			st.Triggers = append(st.Triggers, t)
		}
	}
	return rows.Err()
}

func scanStrategy(row pgx.Row) (*models.Strategy, error) {
	st := &models.Strategy{}
	var rules, odds, wins []byte
	err := row.Scan(
		&st.ID, &st.Name, &st.Description, &st.Active, &st.TwoStage, &st.ExpiryClock,
		&rules, &odds, &wins, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.Rules = rules
	st.OddsRequirement = odds
	st.WinRequirements = wins
	return st, nil
}

// nullJSON maps an empty raw message to SQL NULL
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func conditionsJSON(raw []byte) string {
	if len(raw) == 0 {
		return "[]"
	}
	return string(raw)
}
