package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/signal"
)

// StrategySource supplies strategy records with their triggers attached
type StrategySource interface {
	GetActive(ctx context.Context) ([]*models.Strategy, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error)
}

// SignalRepository persists signal snapshots
type SignalRepository interface {
	Save(ctx context.Context, signal *models.Signal) error
	GetOpen(ctx context.Context) ([]*models.Signal, error)
}

// GameSource supplies live game snapshots and the optional player side table
type GameSource interface {
	GetUpdatedSince(ctx context.Context, since time.Time) ([]*models.GameSnapshot, error)
	GetPlayerStats(ctx context.Context, gameID string) ([]models.PlayerStat, error)
}

// Alerter delivers transitions to the alerting collaborator
type Alerter interface {
	Notify(ctx context.Context, t signal.Transition) error
}
