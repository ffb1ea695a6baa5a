package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/hoop-signals/internal/models"
)

// StrategyRepository defines the interface for strategy catalog access
type StrategyRepository interface {
	Create(ctx context.Context, strategy *models.Strategy) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error)
	// GetActive returns active strategies with their triggers attached, ordered by name
	GetActive(ctx context.Context) ([]*models.Strategy, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SignalRepository defines the interface for signal persistence
type SignalRepository interface {
	// Save upserts the signal keyed by its ID
	Save(ctx context.Context, signal *models.Signal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Signal, error)
	GetByGame(ctx context.Context, gameID string) ([]*models.Signal, error)
	// GetOpen returns every non-terminal signal
	GetOpen(ctx context.Context) ([]*models.Signal, error)
}

// GameRepository defines the interface for live game snapshot access
type GameRepository interface {
	// GetUpdatedSince returns live, halftime and final games updated after since
	GetUpdatedSince(ctx context.Context, since time.Time) ([]*models.GameSnapshot, error)
	GetByID(ctx context.Context, gameID string) (*models.GameSnapshot, error)
	GetPlayerStats(ctx context.Context, gameID string) ([]models.PlayerStat, error)
	Upsert(ctx context.Context, snap *models.GameSnapshot) error
}
