package signal

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hoop-signals/internal/models"
)

func newSignal(gameID string, status models.SignalStatus) *models.Signal {
	now := time.Now()
	return &models.Signal{
		ID:         uuid.New(),
		GameID:     gameID,
		StrategyID: uuid.New(),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestStoreUpdateCreatesAndReturnsCopies(t *testing.T) {
	store := NewStore()
	sig := newSignal("g1", models.SignalStatusMonitoring)

	stored, err := store.Update(sig.Key(), func(current *models.Signal) (*models.Signal, error) {
		assert.Nil(t, current)
		return sig, nil
	})
	require.NoError(t, err)
	require.NotNil(t, stored)

	got, ok := store.Get(sig.Key())
	require.True(t, ok)
	assert.Equal(t, sig.ID, got.ID)

	// mutating the returned copy must not leak into the store
	got.Status = models.SignalStatusClosed
	again, _ := store.Get(sig.Key())
	assert.Equal(t, models.SignalStatusMonitoring, again.Status)
}

func TestStoreUpdateNoChange(t *testing.T) {
	store := NewStore()
	key := models.SignalKey{GameID: "g1", StrategyID: uuid.New()}

	got, err := store.Update(key, func(current *models.Signal) (*models.Signal, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok := store.Get(key)
	assert.False(t, ok)
	assert.Empty(t, store.ListByGame("g1"))
}

func TestStoreUpdateError(t *testing.T) {
	store := NewStore()
	sig := newSignal("g1", models.SignalStatusMonitoring)
	boom := errors.New("boom")

	_, err := store.Update(sig.Key(), func(current *models.Signal) (*models.Signal, error) {
		return sig, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := store.Get(sig.Key())
	assert.False(t, ok)
}

func TestStoreUpdateRejectsMismatchedKey(t *testing.T) {
	store := NewStore()
	sig := newSignal("g1", models.SignalStatusMonitoring)
	other := models.SignalKey{GameID: "g2", StrategyID: sig.StrategyID}

	_, err := store.Update(other, func(current *models.Signal) (*models.Signal, error) {
		return sig, nil
	})
	assert.Error(t, err)
}

func TestStoreConcurrentCreateProducesOneSignal(t *testing.T) {
	store := NewStore()
	key := models.SignalKey{GameID: "g1", StrategyID: uuid.New()}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(key, func(current *models.Signal) (*models.Signal, error) {
				if current != nil {
					return nil, nil
				}
				mu.Lock()
				created++
				mu.Unlock()
				return &models.Signal{ID: uuid.New(), GameID: key.GameID, StrategyID: key.StrategyID, Status: models.SignalStatusMonitoring}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, store.ListByGame("g1"), 1)
}

func TestStoreListByGameAndAll(t *testing.T) {
	store := NewStore()
	a := newSignal("g1", models.SignalStatusMonitoring)
	b := newSignal("g1", models.SignalStatusWatching)
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	c := newSignal("g2", models.SignalStatusBetTaken)

	assert.Equal(t, 3, store.Restore([]*models.Signal{b, c, a}))

	g1 := store.ListByGame("g1")
	require.Len(t, g1, 2)
	assert.Equal(t, a.ID, g1[0].ID)
	assert.Equal(t, b.ID, g1[1].ID)

	assert.Len(t, store.All(), 3)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, []string{"g1", "g2"}, store.Games())
}

func TestStoreRestoreSkipsTerminalAndExisting(t *testing.T) {
	store := NewStore()
	open := newSignal("g1", models.SignalStatusWatching)
	done := newSignal("g1", models.SignalStatusWon)

	assert.Equal(t, 1, store.Restore([]*models.Signal{open, done, nil}))

	dup := open.Clone()
	dup.ID = uuid.New()
	assert.Equal(t, 0, store.Restore([]*models.Signal{dup}))

	got, ok := store.Get(open.Key())
	require.True(t, ok)
	assert.Equal(t, open.ID, got.ID)
}

func TestStoreDeleteGame(t *testing.T) {
	store := NewStore()
	sig := newSignal("g1", models.SignalStatusMonitoring)
	store.Restore([]*models.Signal{sig})

	err := store.DeleteGame("g1")
	assert.ErrorIs(t, err, ErrActiveSignals)
	assert.Len(t, store.ListByGame("g1"), 1)

	_, err = store.Update(sig.Key(), func(current *models.Signal) (*models.Signal, error) {
		current.Status = models.SignalStatusExpired
		return current, nil
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteGame("g1"))
	assert.Empty(t, store.ListByGame("g1"))
	assert.Empty(t, store.Games())
	_, ok := store.Get(sig.Key())
	assert.False(t, ok)

	// deleting an unknown game is a no-op
	assert.NoError(t, store.DeleteGame("nope"))
}

func TestStoreUnrelatedKeysDoNotBlock(t *testing.T) {
	store := NewStore()
	slow := models.SignalKey{GameID: "g1", StrategyID: uuid.New()}
	fast := models.SignalKey{GameID: "g2", StrategyID: uuid.New()}

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = store.Update(slow, func(current *models.Signal) (*models.Signal, error) {
			close(entered)
			<-release
			return nil, nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_, _ = store.Update(fast, func(current *models.Signal) (*models.Signal, error) {
			return &models.Signal{GameID: fast.GameID, StrategyID: fast.StrategyID, Status: models.SignalStatusMonitoring}, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update on an unrelated key blocked")
	}
	close(release)
}
