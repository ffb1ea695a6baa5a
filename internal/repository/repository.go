package repository

import (
	"fmt"

	"github.com/yourusername/hoop-signals/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Strategy StrategyRepository
	Signal   SignalRepository
	Game     GameRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Strategy: NewPostgresStrategyRepository(db),
		Signal:   NewPostgresSignalRepository(db),
		Game:     NewPostgresGameRepository(db),
	}, nil
}
