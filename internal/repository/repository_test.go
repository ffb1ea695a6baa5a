package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hoop-signals/internal/database"
	"github.com/yourusername/hoop-signals/internal/models"
)

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}

func TestNullJSON(t *testing.T) {
	assert.Nil(t, nullJSON(nil))
	assert.Equal(t, `{"a":1}`, nullJSON([]byte(`{"a":1}`)))
	assert.Equal(t, "[]", conditionsJSON(nil))
}

func TestDecodePair(t *testing.T) {
	p, err := decodePair(nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = decodePair([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = decodePair([]byte(`{"home": 101, "away": 99}`))
	require.NoError(t, err)
	assert.Equal(t, &models.ScorePair{Home: 101, Away: 99}, p)

	_, err = decodePair([]byte(`{`))
	assert.Error(t, err)
}

func TestStrategyRepositoryRoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uuid.New()
	st := &models.Strategy{
		ID:              id,
		Name:            "Q3 blowout",
		Active:          true,
		TwoStage:        true,
		Rules:           json.RawMessage(`[{"type": "second_half_only"}]`),
		OddsRequirement: json.RawMessage(`{"type": "spread", "operator": "less_than_or_equal", "value": -7}`),
		Triggers: []*models.Trigger{
			{ID: uuid.New(), Ordinal: 2, Role: models.TriggerRoleClose, Conditions: json.RawMessage(`[{"field": "quarter", "operator": "equals", "value": 4}]`)},
			{ID: uuid.New(), Ordinal: 1, Role: models.TriggerRoleEntry, Conditions: json.RawMessage(`[{"field": "current_lead", "operator": "greater_than_or_equal", "value": 15}]`)},
		},
	}
	require.NoError(t, repos.Strategy.Create(ctx, st))

	active, err := repos.Strategy.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	got := active[0]
	assert.Equal(t, id, got.ID)
	assert.True(t, got.TwoStage)
	assert.JSONEq(t, string(st.Rules), string(got.Rules))
	assert.Nil(t, got.WinRequirements)
	require.Len(t, got.Triggers, 2)
	assert.Equal(t, 1, got.Triggers[0].Ordinal)
	assert.Equal(t, models.TriggerRoleEntry, got.Triggers[0].Role)

	require.NoError(t, repos.Strategy.SetActive(ctx, id, false))
	active, err = repos.Strategy.GetActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, repos.Strategy.Delete(ctx, id))
	_, err = repos.Strategy.GetByID(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSignalRepositorySaveAndGetOpen(t *testing.T) {
	db := database.SetupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Microsecond)
	sig := &models.Signal{
		ID:                 uuid.New(),
		GameID:             "g1",
		StrategyID:         uuid.New(),
		StrategyName:       "Q3 blowout",
		Status:             models.SignalStatusMonitoring,
		LeadingTeamAtEntry: models.SideHome,
		EntryHomeScore:     70,
		EntryAwayScore:     55,
		EntryQuarter:       3,
		EntryClock:         "5:00",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, repos.Signal.Save(ctx, sig))

	open, err := repos.Signal.GetOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, sig.ID, open[0].ID)
	assert.Nil(t, open[0].Outcome)

	line := -8.5
	outcome := models.OutcomeWin
	home, away := 110, 95
	sig.Status = models.SignalStatusWon
	sig.ActualOdds = &line
	sig.Outcome = &outcome
	sig.FinalHomeScore = &home
	sig.FinalAwayScore = &away
	sig.ResolvedAt = &now
	require.NoError(t, repos.Signal.Save(ctx, sig))

	open, err = repos.Signal.GetOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	got, err := repos.Signal.GetByID(ctx, sig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusWon, got.Status)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, models.OutcomeWin, *got.Outcome)
	assert.Equal(t, 110, *got.FinalHomeScore)

	byGame, err := repos.Signal.GetByGame(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, byGame, 1)
}

func TestGameRepositoryUpsertAndPoll(t *testing.T) {
	db := database.SetupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	before := time.Now().Add(-time.Minute)
	spread := -4.5
	snap := &models.GameSnapshot{
		GameID:        "g1",
		HomeTeam:      models.Team{ID: "h", Name: "Harbor"},
		AwayTeam:      models.Team{ID: "a", Name: "Summit"},
		HomeScore:     48,
		AwayScore:     44,
		Quarter:       3,
		Clock:         "11:40",
		QuarterScores: []models.ScorePair{{Home: 25, Away: 20}, {Home: 23, Away: 24}},
		Halftime:      &models.ScorePair{Home: 48, Away: 44},
		Spread:        &spread,
		Status:        models.GameStatusLive,
	}
	require.NoError(t, repos.Game.Upsert(ctx, snap))

	games, err := repos.Game.GetUpdatedSince(ctx, before)
	require.NoError(t, err)
	require.Len(t, games, 1)
	got := games[0]
	assert.Equal(t, snap.QuarterScores, got.QuarterScores)
	assert.Equal(t, snap.Halftime, got.Halftime)
	assert.Nil(t, got.Final)
	require.NotNil(t, got.Spread)
	assert.Equal(t, spread, *got.Spread)
	assert.Nil(t, got.TotalLine)

	stats, err := repos.Game.GetPlayerStats(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stats)

	_, err = repos.Game.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
