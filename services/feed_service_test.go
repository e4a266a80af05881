package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confidence-pickem/database"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

type recalcCall struct {
	season int
	week   int
}

// recordingRecalculator records calls and delegates to an optional inner.
// err fails every week, or only failWeek when that is set.
type recordingRecalculator struct {
	mu       sync.Mutex
	calls    []recalcCall
	inner    services.WeekRecalculator
	err      error
	failWeek int
}

func (r *recordingRecalculator) RecalculateWeek(ctx context.Context, season, week int) (*services.RecalculationSummary, error) {
	r.mu.Lock()
	r.calls = append(r.calls, recalcCall{season, week})
	r.mu.Unlock()
	if r.err != nil && (r.failWeek == 0 || r.failWeek == week) {
		return nil, r.err
	}
	if r.inner != nil {
		return r.inner.RecalculateWeek(ctx, season, week)
	}
	return &services.RecalculationSummary{Season: season, Week: week}, nil
}

func (r *recordingRecalculator) Calls() []recalcCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recalcCall(nil), r.calls...)
}

func scheduled(id, wk int, home, away string) *models.Game {
	return &models.Game{ID: id, Season: season, Week: wk, Home: home, Away: away,
		StartTime: baseTime.Add(time.Duration(id) * time.Hour), Status: models.GameStatusScheduled}
}

func finished(g *models.Game, home, away int) *models.Game {
	c := *g
	c.Status = models.GameStatusFinal
	c.HomeScore = models.IntPtr(home)
	c.AwayScore = models.IntPtr(away)
	return &c
}

func TestIngestGamesSchedule(t *testing.T) {
	games := database.NewMemoryGameStore()
	rec := &recordingRecalculator{}
	feed := services.NewFeedService(games, database.NewMemoryPickStore(), rec)

	res, err := feed.IngestGames(context.Background(), []*models.Game{
		scheduled(1, 1, "kc", "buf"),
		scheduled(2, 1, "DAL", "PHI"),
		{ID: 3, Season: season, Week: 40, Home: "SF", Away: "SEA", StartTime: baseTime, Status: models.GameStatusScheduled},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Received)
	assert.Equal(t, 2, res.Upserted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 3, res.Rejected[0].GameID)
	assert.Empty(t, rec.Calls())

	g, _ := games.FindByID(context.Background(), 1)
	assert.Equal(t, "KC", g.Home)
}

func TestIngestGamesFinalTriggersOneRecalcPerWeek(t *testing.T) {
	ctx := context.Background()
	g1, g2, g3 := scheduled(1, 1, "KC", "BUF"), scheduled(2, 1, "DAL", "PHI"), scheduled(3, 2, "SF", "SEA")
	games := database.NewMemoryGameStore(g1, g2, g3)
	rec := &recordingRecalculator{}
	feed := services.NewFeedService(games, database.NewMemoryPickStore(), rec)

	res, err := feed.IngestGames(ctx, []*models.Game{finished(g1, 24, 17), finished(g2, 10, 13), g3})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, res.Rescored)
	assert.Equal(t, []recalcCall{{season, 1}}, rec.Calls())
	assert.Len(t, res.Recalculated, 1)

	// the same results again change nothing
	_, err = feed.IngestGames(ctx, []*models.Game{finished(g1, 24, 17)})
	require.NoError(t, err)
	assert.Len(t, rec.Calls(), 1)

	// a corrected score does
	_, err = feed.IngestGames(ctx, []*models.Game{finished(g1, 24, 27)})
	require.NoError(t, err)
	assert.Len(t, rec.Calls(), 2)
}

func TestIngestGamesFinalWithoutScoresIsStoredNotScored(t *testing.T) {
	g := scheduled(1, 1, "KC", "BUF")
	games := database.NewMemoryGameStore(g)
	rec := &recordingRecalculator{}
	feed := services.NewFeedService(games, database.NewMemoryPickStore(), rec)

	partial := *g
	partial.Status = models.GameStatusFinal
	partial.HomeScore = models.IntPtr(21)

	res, err := feed.IngestGames(context.Background(), []*models.Game{&partial})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Empty(t, rec.Calls())

	stored, _ := games.FindByID(context.Background(), 1)
	assert.True(t, stored.IsFinal())
}

func TestIngestGamesScoresPicks(t *testing.T) {
	ctx := context.Background()
	g1 := scheduled(1, 1, "KC", "BUF")
	games := database.NewMemoryGameStore(g1)
	picks := database.NewMemoryPickStore()
	scores := database.NewMemoryScoreStore()
	seedPick(t, picks, 1, g1, "KC", 8)

	feed := services.NewFeedService(games, picks, services.NewScoringService(picks, games, scores, 0))
	_, err := feed.IngestGames(ctx, []*models.Game{finished(g1, 31, 3)})
	require.NoError(t, err)

	rows, _ := scores.FindBySeasonWeek(ctx, season, 1)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].Points)
	assert.Equal(t, 1, rows[0].CorrectPicks)
}

func TestIngestGamesReportsRecalcFailure(t *testing.T) {
	g1 := scheduled(1, 1, "KC", "BUF")
	rec := &recordingRecalculator{err: errors.New("picks unavailable")}
	feed := services.NewFeedService(database.NewMemoryGameStore(g1), database.NewMemoryPickStore(), rec)

	res, err := feed.IngestGames(context.Background(), []*models.Game{finished(g1, 1, 0)})
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Upserted)
}

type failingUpsertGameStore struct {
	*database.MemoryGameStore
	failID int
}

func (s *failingUpsertGameStore) Upsert(ctx context.Context, game *models.Game) error {
	if game.ID == s.failID {
		return errors.New("write timeout")
	}
	return s.MemoryGameStore.Upsert(ctx, game)
}

func TestIngestGamesRecalculatesWeeksBeforeStoreFailure(t *testing.T) {
	ctx := context.Background()
	g1, g2, g3 := scheduled(1, 1, "KC", "BUF"), scheduled(2, 1, "DAL", "PHI"), scheduled(3, 1, "SF", "SEA")
	games := &failingUpsertGameStore{MemoryGameStore: database.NewMemoryGameStore(g1, g2, g3), failID: 2}
	rec := &recordingRecalculator{}
	feed := services.NewFeedService(games, database.NewMemoryPickStore(), rec)

	res, err := feed.IngestGames(ctx, []*models.Game{finished(g1, 24, 17), finished(g2, 10, 13), finished(g3, 7, 3)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write timeout")
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Upserted)
	assert.Equal(t, []int{1}, res.Rescored)
	assert.Equal(t, []recalcCall{{season, 1}}, rec.Calls())
	assert.Len(t, res.Recalculated, 1)

	stored, _ := games.FindByID(ctx, 3)
	assert.False(t, stored.IsFinal())
}

type movedGameFixture struct {
	games  *database.MemoryGameStore
	picks  *database.MemoryPickStore
	scores *database.MemoryScoreStore
	feed   *services.FeedService
	engine *services.ConfidenceEngine
}

func newMovedGameFixture(t *testing.T, games ...*models.Game) *movedGameFixture {
	t.Helper()
	f := &movedGameFixture{
		games:  database.NewMemoryGameStore(games...),
		picks:  database.NewMemoryPickStore(),
		scores: database.NewMemoryScoreStore(),
	}
	f.feed = services.NewFeedService(f.games, f.picks, services.NewScoringService(f.picks, f.games, f.scores, 0))
	f.engine = services.NewConfidenceEngine(f.games, f.picks, services.NewLockPolicy(services.DefaultLockOffset)).
		WithClock(func() time.Time { return baseTime })
	return f
}

func TestIngestGamesMovesPicksWithRescheduledGame(t *testing.T) {
	ctx := context.Background()
	g1 := scheduled(1, 1, "KC", "BUF")
	f := newMovedGameFixture(t, g1)
	seedPick(t, f.picks, userID, g1, "KC", 1)

	moved := scheduled(1, 2, "KC", "BUF")
	res, err := f.feed.IngestGames(ctx, []*models.Game{moved})
	require.NoError(t, err)
	assert.Empty(t, res.Rescored)
	assert.Len(t, res.Recalculated, 2)

	old, _ := f.picks.FindByUserAndWeek(ctx, userID, season, 1)
	assert.Empty(t, old)
	current, _ := f.picks.FindByUserAndWeek(ctx, userID, season, 2)
	require.Len(t, current, 1)
	assert.Equal(t, 1, current[0].ConfidencePoints)

	_, err = f.engine.SubmitPick(ctx, services.SubmitPickRequest{
		UserID: userID, GameID: 1, PickedTeam: "BUF", ConfidenceValue: 1, Mode: services.SubmitCreate})
	assert.ErrorIs(t, err, services.ErrDuplicate)

	updated, err := f.engine.SubmitPick(ctx, services.SubmitPickRequest{
		UserID: userID, GameID: 1, PickedTeam: "BUF", ConfidenceValue: 1, Mode: services.SubmitUpdate})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Pick.Week)
	assert.Equal(t, "BUF", updated.Pick.PickedTeam)

	_, err = f.feed.IngestGames(ctx, []*models.Game{finished(moved, 10, 20)})
	require.NoError(t, err)
	rows, _ := f.scores.FindBySeasonWeek(ctx, season, 2)
	require.Len(t, rows, 1)
	assert.Equal(t, models.WeeklyScore{UserID: userID, Week: 2, Season: season, Points: 1, CorrectPicks: 1, TotalPicks: 1}, *rows[0])
}

func TestIngestGamesMovedPickYieldsHeldConfidence(t *testing.T) {
	ctx := context.Background()
	g1, g2 := scheduled(1, 1, "KC", "BUF"), scheduled(2, 2, "DAL", "PHI")
	f := newMovedGameFixture(t, g1, g2)
	seedPick(t, f.picks, userID, g1, "KC", 2)
	seedPick(t, f.picks, userID, g2, "DAL", 2)
	seedPick(t, f.picks, userID+1, g1, "BUF", 2)

	_, err := f.feed.IngestGames(ctx, []*models.Game{scheduled(1, 2, "KC", "BUF")})
	require.NoError(t, err)

	mine, _ := f.picks.FindByUserAndWeek(ctx, userID, season, 2)
	require.Len(t, mine, 2)
	assert.Equal(t, 0, mine[0].ConfidencePoints)
	assert.Equal(t, "KC", mine[0].PickedTeam)
	assert.Equal(t, 2, mine[1].ConfidencePoints)

	theirs, _ := f.picks.FindByUserAndWeek(ctx, userID+1, season, 2)
	require.Len(t, theirs, 1)
	assert.Equal(t, 2, theirs[0].ConfidencePoints)
}
