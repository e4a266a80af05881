package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confidence-pickem/database"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

func TestSweepRecomputesRecentlyFinalWeeks(t *testing.T) {
	now := time.Now()
	game := func(id, wk int, start time.Time, status models.GameStatus, scored bool) *models.Game {
		g := &models.Game{ID: id, Season: season, Week: wk, Home: "KC", Away: "BUF", StartTime: start, Status: status}
		if scored {
			g.HomeScore, g.AwayScore = models.IntPtr(1), models.IntPtr(0)
		}
		return g
	}
	games := database.NewMemoryGameStore(
		game(1, 1, now.Add(-72*time.Hour), models.GameStatusFinal, true),
		game(2, 2, now.Add(-3*time.Hour), models.GameStatusFinal, true),
		game(3, 3, now.Add(-2*time.Hour), models.GameStatusFinal, false),
		game(4, 4, now.Add(-time.Hour), models.GameStatusLive, true),
		game(5, 5, now.Add(-time.Hour), models.GameStatusFinal, true),
		&models.Game{ID: 6, Season: season - 1, Week: 6, Home: "KC", Away: "BUF",
			StartTime: now.Add(-time.Hour), Status: models.GameStatusFinal,
			HomeScore: models.IntPtr(1), AwayScore: models.IntPtr(0)},
	)
	rec := &recordingRecalculator{}

	sweeper, err := services.NewScoreSweeper(games, rec, season, time.Minute)
	require.NoError(t, err)

	summaries, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, []recalcCall{{season, 2}, {season, 5}}, rec.Calls())
}

func TestSweepContinuesPastFailedWeek(t *testing.T) {
	now := time.Now()
	final := func(id, wk int) *models.Game {
		return &models.Game{ID: id, Season: season, Week: wk, Home: "KC", Away: "BUF",
			StartTime: now.Add(-time.Hour), Status: models.GameStatusFinal,
			HomeScore: models.IntPtr(1), AwayScore: models.IntPtr(0)}
	}
	games := database.NewMemoryGameStore(final(1, 1), final(2, 2), final(3, 3))
	storeErr := errors.New("scores unavailable")
	rec := &recordingRecalculator{err: storeErr, failWeek: 2}

	sweeper, err := services.NewScoreSweeper(games, rec, season, time.Minute)
	require.NoError(t, err)

	summaries, err := sweeper.Sweep(context.Background())
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, []recalcCall{{season, 1}, {season, 2}, {season, 3}}, rec.Calls())
	require.Len(t, summaries, 2)
	assert.Equal(t, 1, summaries[0].Week)
	assert.Equal(t, 3, summaries[1].Week)
}

func TestSweepWithNothingToDo(t *testing.T) {
	rec := &recordingRecalculator{}
	sweeper, err := services.NewScoreSweeper(database.NewMemoryGameStore(), rec, season, time.Minute)
	require.NoError(t, err)

	summaries, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Empty(t, rec.Calls())
}

func TestScoreSweeperLifecycle(t *testing.T) {
	_, err := services.NewScoreSweeper(database.NewMemoryGameStore(), &recordingRecalculator{}, season, 0)
	assert.Error(t, err)

	sweeper, err := services.NewScoreSweeper(database.NewMemoryGameStore(), &recordingRecalculator{}, season, time.Hour)
	require.NoError(t, err)
	require.NoError(t, sweeper.Start())
	assert.NoError(t, sweeper.Stop())
}
