package signal

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/hoop-signals/internal/models"
)

// ErrActiveSignals is returned when a game is removed while it still has open signals
var ErrActiveSignals = errors.New("game has active signals")

// UpdateFunc receives a copy of the current signal (nil when none exists) and returns the
// signal to store, or nil to leave the slot unchanged.
type UpdateFunc func(current *models.Signal) (*models.Signal, error)

type slot struct {
	mu      sync.Mutex
	signal  *models.Signal
	removed bool
}

// Store is the registry of signals keyed by (game, strategy). Each key has its own lock,
// so work on one key never waits on another.
type Store struct {
	mu     sync.Mutex
	slots  map[models.SignalKey]*slot
	byGame map[string]map[models.SignalKey]struct{}
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		slots:  make(map[models.SignalKey]*slot),
		byGame: make(map[string]map[models.SignalKey]struct{}),
	}
}

// acquire returns the locked slot for key, creating it if needed
func (s *Store) acquire(key models.SignalKey) *slot {
	for {
		s.mu.Lock()
		sl, ok := s.slots[key]
		if !ok {
			sl = &slot{}
			s.slots[key] = sl
			keys, ok := s.byGame[key.GameID]
			if !ok {
				keys = make(map[models.SignalKey]struct{})
				s.byGame[key.GameID] = keys
			}
			keys[key] = struct{}{}
		}
		s.mu.Unlock()

		sl.mu.Lock()
		if !sl.removed {
			return sl
		}
		// removed between lookup and lock; retry against the fresh map
		sl.mu.Unlock()
	}
}

// Update runs fn inside the key's critical section. The check of the current state and the
// write of the next state happen under one lock.
func (s *Store) Update(key models.SignalKey, fn UpdateFunc) (*models.Signal, error) {
	sl := s.acquire(key)
	defer sl.mu.Unlock()

	next, err := fn(sl.signal.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return sl.signal.Clone(), nil
	}
	if next.Key() != key {
		return nil, fmt.Errorf("signal key %s does not match slot %s", next.Key(), key)
	}
	sl.signal = next.Clone()
	return next, nil
}

// Get returns a copy of the signal stored for key
func (s *Store) Get(key models.SignalKey) (*models.Signal, bool) {
	s.mu.Lock()
	sl, ok := s.slots[key]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.removed || sl.signal == nil {
		return nil, false
	}
	return sl.signal.Clone(), true
}

// ListByGame returns copies of every signal for a game, ordered by creation time
func (s *Store) ListByGame(gameID string) []*models.Signal {
	s.mu.Lock()
	slots := make([]*slot, 0, len(s.byGame[gameID]))
	for key := range s.byGame[gameID] {
		slots = append(slots, s.slots[key])
	}
	s.mu.Unlock()

	return collect(slots)
}

// All returns copies of every stored signal
func (s *Store) All() []*models.Signal {
	s.mu.Lock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	return collect(slots)
}

// Games returns the IDs of every game with at least one slot
func (s *Store) Games() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	games := make([]string, 0, len(s.byGame))
	for id := range s.byGame {
		games = append(games, id)
	}
	sort.Strings(games)
	return games
}

// Restore seeds the store with previously persisted open signals. Terminal signals and keys
// already present are skipped. It returns the number restored.
func (s *Store) Restore(signals []*models.Signal) int {
	restored := 0
	for _, sig := range signals {
		if sig == nil || !sig.IsActive() {
			continue
		}
		seed := sig.Clone()
		// the key comes from the seed itself, so Update cannot reject it
		_, _ = s.Update(seed.Key(), func(current *models.Signal) (*models.Signal, error) {
			if current != nil {
				return nil, nil
			}
			restored++
			return seed, nil
		})
	}
	return restored
}

// DeleteGame drops every key of a game. It refuses while any of them is still active.
func (s *Store) DeleteGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.byGame[gameID]
	locked := make([]*slot, 0, len(keys))
	defer func() {
		for _, sl := range locked {
			sl.mu.Unlock()
		}
	}()

	for key := range keys {
		sl := s.slots[key]
		sl.mu.Lock()
		locked = append(locked, sl)
		if sl.signal != nil && sl.signal.IsActive() {
			return fmt.Errorf("%w: %s", ErrActiveSignals, key)
		}
	}

	for key := range keys {
		s.slots[key].removed = true
		delete(s.slots, key)
	}
	delete(s.byGame, gameID)
	return nil
}

// Len returns the number of stored signals
func (s *Store) Len() int {
	return len(s.All())
}

func collect(slots []*slot) []*models.Signal {
	out := make([]*models.Signal, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		if !sl.removed && sl.signal != nil {
			out = append(out, sl.signal.Clone())
		}
		sl.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Key().String() < out[j].Key().String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
