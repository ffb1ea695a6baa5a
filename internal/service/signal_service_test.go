package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/signal"
)

const spreadAtMostMinusEight = `{"type": "spread", "side": "leading", "operator": "less_than_or_equal", "value": -8}`

type fixture struct {
	svc     *SignalService
	source  *MockStrategySource
	repo    *MockSignalRepository
	games   *MockGameSource
	alerter *MockAlerter
	clock   *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, active ...*models.Strategy) *fixture {
	t.Helper()
	f := &fixture{
		source:  new(MockStrategySource),
		repo:    new(MockSignalRepository),
		games:   new(MockGameSource),
		alerter: new(MockAlerter),
		clock:   &fakeClock{now: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)},
	}
	f.source.On("GetActive", mock.Anything).Return(active, nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.alerter.On("Notify", mock.Anything, mock.Anything).Return(nil)

	catalog := NewCatalog(f.source, time.Minute, "", quietStrategyLogger())
	f.svc = NewSignalService(signal.NewMachine(signal.NewStore()), catalog, f.repo, f.games, f.alerter, quietLogger(), Options{
		StaleGameTimeout: 10 * time.Minute,
		Workers:          4,
		Now:              f.clock.Now,
	})
	return f
}

func liveSnap(gameID string, quarter int, clock string, home, away int, spread float64) *models.GameSnapshot {
	homeML, awayML := -250.0, 200.0
	return &models.GameSnapshot{
		GameID:        gameID,
		HomeScore:     home,
		AwayScore:     away,
		Quarter:       quarter,
		Clock:         clock,
		Spread:        &spread,
		HomeMoneyline: &homeML,
		AwayMoneyline: &awayML,
		Status:        models.GameStatusLive,
	}
}

func finalSnap(gameID string, home, away int) *models.GameSnapshot {
	return &models.GameSnapshot{
		GameID:    gameID,
		HomeScore: home,
		AwayScore: away,
		Quarter:   4,
		Clock:     "0:00",
		Final:     &models.ScorePair{Home: home, Away: away},
		Status:    models.GameStatusFinal,
	}
}

func statusesOf(transitions []signal.Transition) []models.SignalStatus {
	out := make([]models.SignalStatus, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, t.To)
	}
	return out
}

func TestProcessSnapshotOpensAndBets(t *testing.T) {
	rec := strategyRec("Q3 blowout", "")
	f := newFixture(t, rec)
	ctx := context.Background()

	transitions, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)
	assert.Equal(t, []models.SignalStatus{models.SignalStatusWatching, models.SignalStatusBetTaken}, statusesOf(transitions))

	f.repo.AssertNumberOfCalls(t, "Save", 2)
	f.alerter.AssertNumberOfCalls(t, "Notify", 2)
	assert.Equal(t, 1, f.svc.TrackedGames())

	// the same entry again is a duplicate and produces nothing
	transitions, err = f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "4:30", 72, 58, -6.5), nil)
	require.NoError(t, err)
	assert.Empty(t, transitions)
	f.repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestProcessSnapshotRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessSnapshot(context.Background(), &models.GameSnapshot{Status: models.GameStatusLive}, nil)
	assert.Error(t, err)

	snap := liveSnap("g1", 3, "5:00", 70, 58, -6.5)
	snap.Status = "paused"
	_, err = f.svc.ProcessSnapshot(context.Background(), snap, nil)
	assert.Error(t, err)
	f.source.AssertNotCalled(t, "GetActive", mock.Anything)
}

func TestProcessFinalScoresAndStopsTracking(t *testing.T) {
	rec := strategyRec("Q3 blowout", "")
	f := newFixture(t, rec)
	ctx := context.Background()

	_, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)

	transitions, err := f.svc.ProcessFinal(ctx, finalSnap("g1", 101, 95))
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.SignalStatusWon, transitions[0].To)
	require.NotNil(t, transitions[0].Outcome)
	assert.Equal(t, models.OutcomeWin, transitions[0].Outcome.Outcome)
	assert.Equal(t, 0, f.svc.TrackedGames())
	assert.Empty(t, f.svc.machine.Store().ListByGame("g1"))

	// late live snapshots for a finished game are ignored
	transitions, err = f.svc.ProcessSnapshot(ctx, liveSnap("g1", 4, "1:00", 99, 80, -6.5), nil)
	require.NoError(t, err)
	assert.Empty(t, transitions)
	assert.Equal(t, 0, f.svc.TrackedGames())
}

func TestProcessSnapshotRoutesFinal(t *testing.T) {
	rec := strategyRec("Q3 blowout", spreadAtMostMinusEight)
	f := newFixture(t, rec)
	ctx := context.Background()

	transitions, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)
	assert.Equal(t, []models.SignalStatus{models.SignalStatusWatching}, statusesOf(transitions))

	transitions, err = f.svc.ProcessSnapshot(ctx, finalSnap("g1", 101, 95), nil)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.SignalStatusExpired, transitions[0].To)
}

func TestOrphanedSignalIsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	orphan := &models.Signal{
		ID:                 uuid.New(),
		GameID:             "g1",
		StrategyID:         uuid.New(),
		StrategyName:       "deleted",
		Status:             models.SignalStatusWatching,
		LeadingTeamAtEntry: models.SideHome,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.repo.On("GetOpen", mock.Anything).Return([]*models.Signal{orphan}, nil)
	f.source.On("GetByID", mock.Anything, orphan.StrategyID).Return(nil, models.ErrNotFound).Once()

	restored, err := f.svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 1, f.svc.TrackedGames())

	transitions, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.SignalStatusClosed, transitions[0].To)
	assert.NotEmpty(t, transitions[0].Signal.Note)

	transitions, err = f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "4:00", 72, 58, -6.5), nil)
	require.NoError(t, err)
	assert.Empty(t, transitions)
	f.source.AssertExpectations(t)
}

func TestDeactivatedStrategyStillSettles(t *testing.T) {
	rec := strategyRec("retired", spreadAtMostMinusEight)
	rec.Active = false
	f := newFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	open := &models.Signal{
		ID:                 uuid.New(),
		GameID:             "g1",
		StrategyID:         rec.ID,
		StrategyName:       rec.Name,
		Status:             models.SignalStatusWatching,
		LeadingTeamAtEntry: models.SideHome,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.repo.On("GetOpen", mock.Anything).Return([]*models.Signal{open}, nil)
	f.source.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)

	_, err := f.svc.Restore(ctx)
	require.NoError(t, err)

	transitions, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 4, "8:00", 88, 76, -9), nil)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.SignalStatusBetTaken, transitions[0].To)
	assert.Equal(t, models.BetSideHome, transitions[0].Signal.BetSide)

	transitions, err = f.svc.ProcessFinal(ctx, finalSnap("g1", 100, 95))
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	// home -9 with a five point margin
	assert.Equal(t, models.SignalStatusLost, transitions[0].To)
}

func TestSweepStaleGames(t *testing.T) {
	rec := strategyRec("Q3 blowout", spreadAtMostMinusEight)
	f := newFixture(t, rec)
	ctx := context.Background()

	_, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)

	removed, err := f.svc.SweepStaleGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)

	f.clock.Advance(11 * time.Minute)
	removed, err = f.svc.SweepStaleGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, removed)
	assert.Equal(t, 0, f.svc.TrackedGames())
	assert.Empty(t, f.svc.machine.Store().ListByGame("g1"))

	// watching -> expired was persisted and alerted
	last := f.repo.Calls[len(f.repo.Calls)-1].Arguments.Get(1).(*models.Signal)
	assert.Equal(t, models.SignalStatusExpired, last.Status)
}

func TestSnapshotQueuedBehindFinalDoesNotReopenGame(t *testing.T) {
	rec := strategyRec("Q3 blowout", "")
	f := newFixture(t, rec)
	ctx := context.Background()

	unlock := f.svc.lockGame("g1")

	type result struct {
		transitions []signal.Transition
		err         error
	}
	done := make(chan result, 1)
	go func() {
		ts, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
		done <- result{ts, err}
	}()

	// wait until the tick is queued on the game's lock
	assert.Eventually(t, func() bool {
		f.svc.mu.Lock()
		defer f.svc.mu.Unlock()
		gl, ok := f.svc.gameLocks["g1"]
		return ok && gl.refs == 2
	}, 2*time.Second, 5*time.Millisecond)

	// the game finishes while the tick waits
	_, err := f.svc.removeGame(ctx, "g1", "game final")
	require.NoError(t, err)
	unlock()

	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.transitions)
	assert.Empty(t, f.svc.machine.Store().ListByGame("g1"))
	assert.Equal(t, 0, f.svc.TrackedGames())
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSweepSkipsGameRefreshedWhileWaiting(t *testing.T) {
	rec := strategyRec("Q3 blowout", spreadAtMostMinusEight)
	f := newFixture(t, rec)
	ctx := context.Background()

	_, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)

	cutoff := f.clock.Now().Add(time.Second)
	f.clock.Advance(2 * time.Second)
	_, err = f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "4:30", 72, 58, -6.5), nil)
	require.NoError(t, err)

	removed, err := f.svc.removeStaleGame(ctx, "g1", cutoff)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, f.svc.TrackedGames())
	assert.Len(t, f.svc.machine.Store().ListByGame("g1"), 1)
}

func TestGameLocksAreReleased(t *testing.T) {
	rec := strategyRec("Q3 blowout", "")
	f := newFixture(t, rec)
	ctx := context.Background()

	_, err := f.svc.ProcessSnapshot(ctx, liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)
	_, err = f.svc.ProcessSnapshot(ctx, finalSnap("g1", 101, 95), nil)
	require.NoError(t, err)

	f.svc.mu.Lock()
	defer f.svc.mu.Unlock()
	assert.Empty(t, f.svc.gameLocks)
}

func TestPersistenceFailureDoesNotStopAlerts(t *testing.T) {
	rec := strategyRec("Q3 blowout", "")
	f := newFixture(t, rec)
	f.repo.ExpectedCalls = nil
	f.repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	transitions, err := f.svc.ProcessSnapshot(context.Background(), liveSnap("g1", 3, "5:00", 70, 58, -6.5), nil)
	require.NoError(t, err)
	assert.Len(t, transitions, 2)
	f.alerter.AssertNumberOfCalls(t, "Notify", 2)
}

func TestPollGamesAdvancesWatermark(t *testing.T) {
	rec := strategyRec("Q3 blowout", "")
	f := newFixture(t, rec)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 19, 5, 0, 0, time.UTC)
	t2 := t1.Add(3 * time.Second)
	a := liveSnap("g1", 3, "5:00", 70, 58, -6.5)
	a.UpdatedAt = t1
	b := liveSnap("g2", 2, "3:00", 40, 41, 1.5)
	b.UpdatedAt = t2

	f.games.On("GetUpdatedSince", mock.Anything, time.Time{}).Return([]*models.GameSnapshot{a, b}, nil).Once()
	f.games.On("GetUpdatedSince", mock.Anything, t2).Return([]*models.GameSnapshot{}, nil).Once()
	f.games.On("GetPlayerStats", mock.Anything, "g1").Return(nil, nil)
	f.games.On("GetPlayerStats", mock.Anything, "g2").Return(nil, errors.New("no table"))

	n, err := f.svc.PollGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.svc.machine.Store().ListByGame("g1"), 1)
	assert.Empty(t, f.svc.machine.Store().ListByGame("g2"))
	assert.Equal(t, 2, f.svc.TrackedGames())

	n, err = f.svc.PollGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	f.games.AssertExpectations(t)
}

func TestPollGamesSourceError(t *testing.T) {
	f := newFixture(t)
	f.games.On("GetUpdatedSince", mock.Anything, time.Time{}).Return(nil, errors.New("timeout"))

	_, err := f.svc.PollGames(context.Background())
	assert.Error(t, err)
}

func TestRestoreError(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetOpen", mock.Anything).Return(nil, errors.New("db down"))

	_, err := f.svc.Restore(context.Background())
	assert.Error(t, err)
}
