package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/yourusername/hoop-signals/internal/logger"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/signal"
)

// MockStrategySource mocks the strategy catalog source
type MockStrategySource struct {
	mock.Mock
}

func (m *MockStrategySource) GetActive(ctx context.Context) ([]*models.Strategy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Strategy), args.Error(1)
}

func (m *MockStrategySource) GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Strategy), args.Error(1)
}

// MockSignalRepository mocks signal persistence
type MockSignalRepository struct {
	mock.Mock
}

func (m *MockSignalRepository) Save(ctx context.Context, sig *models.Signal) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

func (m *MockSignalRepository) GetOpen(ctx context.Context) ([]*models.Signal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Signal), args.Error(1)
}

// MockGameSource mocks the live game feed
type MockGameSource struct {
	mock.Mock
}

func (m *MockGameSource) GetUpdatedSince(ctx context.Context, since time.Time) ([]*models.GameSnapshot, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GameSnapshot), args.Error(1)
}

func (m *MockGameSource) GetPlayerStats(ctx context.Context, gameID string) ([]models.PlayerStat, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PlayerStat), args.Error(1)
}

// MockAlerter mocks the webhook notifier
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Notify(ctx context.Context, t signal.Transition) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func quietStrategyLogger() *logger.StrategyLogger {
	return logger.NewStrategyLogger(quietLogger())
}
