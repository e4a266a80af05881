package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confidence-pickem/database"
	"confidence-pickem/metrics"
	"confidence-pickem/middleware"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

const (
	testSeason     = 2025
	testAdminToken = "admin-secret"
)

var testNow = time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)

type apiFixture struct {
	server *httptest.Server
	token  string
	other  string
	picks  *database.MemoryPickStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	games := database.NewMemoryGameStore(
		&models.Game{ID: 1, Season: testSeason, Week: 1, Home: "KC", Away: "BUF", StartTime: testNow.Add(24 * time.Hour), Status: models.GameStatusScheduled},
		&models.Game{ID: 2, Season: testSeason, Week: 1, Home: "DAL", Away: "PHI", StartTime: testNow.Add(25 * time.Hour), Status: models.GameStatusScheduled},
		&models.Game{ID: 3, Season: testSeason, Week: 1, Home: "SEA", Away: "SF", StartTime: testNow.Add(-time.Hour), Status: models.GameStatusLive},
	)
	picks := database.NewMemoryPickStore()
	scores := database.NewMemoryScoreStore()
	users := database.NewMemoryUserStore()

	var tokens []string
	auth := services.NewAuthService(users, "test-secret", time.Hour)
	for _, email := range []string{"alex@example.com", "blake@example.com"} {
		u := &models.User{Name: email, Email: email}
		require.NoError(t, u.HashPassword("password123"))
		require.NoError(t, users.CreateUser(ctx, u))
		token, err := auth.GenerateToken(u)
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	engine := services.NewConfidenceEngine(games, picks, services.NewLockPolicy(services.DefaultLockOffset)).
		WithClock(func() time.Time { return testNow })
	scoring := services.NewScoringService(picks, games, scores, 2)

	router := NewRouter(Router{
		Auth:           NewAuthHandler(auth),
		Games:          NewGameHandler(engine, testSeason),
		Picks:          NewPickHandler(engine, testSeason),
		Scores:         NewScoreHandler(scoring, testSeason),
		Feed:           NewFeedHandler(services.NewFeedService(games, picks, scoring)),
		Health:         NewHealthHandler(nil),
		Metrics:        metrics.Global().Handler(),
		AuthMiddleware: middleware.NewAuthMiddleware(auth, testAdminToken),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiFixture{server: srv, token: tokens[0], other: tokens[1], picks: picks}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Code
}

func TestPicksRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/picks", "", models.PickRequest{GameID: 1, PickedTeam: "KC", ConfidenceValue: 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, body))

	resp, _ = f.do(t, http.MethodGet, "/api/picks?week=1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndReassignPick(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/picks", f.token, models.PickRequest{GameID: 1, PickedTeam: "KC", ConfidenceValue: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	var created PickResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, 1, created.GameID)
	assert.Equal(t, 2, created.ConfidencePoints)
	assert.Nil(t, created.Demoted)

	resp, body = f.do(t, http.MethodPost, "/api/picks", f.token, models.PickRequest{GameID: 2, PickedTeam: "PHI", ConfidenceValue: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var moved PickResponse
	require.NoError(t, json.Unmarshal(body, &moved))
	require.NotNil(t, moved.Demoted)
	assert.Equal(t, 1, moved.Demoted.GameID)
	assert.Equal(t, 0, moved.Demoted.ConfidencePoints)

	resp, body = f.do(t, http.MethodPut, "/api/picks", f.token, models.PickRequest{GameID: 1, PickedTeam: "BUF", ConfidenceValue: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/picks?season=2025&week=1", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []models.Pick
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "BUF", listed[0].PickedTeam)
	assert.Equal(t, 1, listed[0].ConfidencePoints)
	assert.Equal(t, 2, listed[1].ConfidencePoints)

	resp, body = f.do(t, http.MethodGet, "/api/picks?week=1", f.other, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))
}

func TestPickErrorStatuses(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/api/picks", f.token, models.PickRequest{GameID: 1, PickedTeam: "KC", ConfidenceValue: 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// alex holds 2 on the live game, made before kickoff
	ctx := context.Background()
	live := &models.Game{ID: 3, Season: testSeason, Week: 1, Home: "SEA", Away: "SF", StartTime: testNow.Add(-time.Hour)}
	require.NoError(t, f.picks.WithinUserWeek(ctx, 1, testSeason, 1, func(tx services.PickTx) error {
		return tx.Save(ctx, models.NewPick(1, live, "SEA", 2, testNow.Add(-2*time.Hour)))
	}))

	tests := []struct {
		name   string
		method string
		body   interface{}
		status int
		code   string
	}{
		{"duplicate create", http.MethodPost, models.PickRequest{GameID: 1, PickedTeam: "BUF", ConfidenceValue: 2}, http.StatusConflict, "duplicate_pick"},
		{"locked game", http.MethodPost, models.PickRequest{GameID: 3, PickedTeam: "SEA", ConfidenceValue: 2}, http.StatusBadRequest, "picks_locked"},
		{"value committed to locked game", http.MethodPost, models.PickRequest{GameID: 2, PickedTeam: "DAL", ConfidenceValue: 2}, http.StatusConflict, "confidence_committed"},
		{"unknown game", http.MethodPost, models.PickRequest{GameID: 42, PickedTeam: "SEA", ConfidenceValue: 2}, http.StatusNotFound, "not_found"},
		{"update without pick", http.MethodPut, models.PickRequest{GameID: 2, PickedTeam: "DAL", ConfidenceValue: 2}, http.StatusNotFound, "not_found"},
		{"confidence out of range", http.MethodPost, models.PickRequest{GameID: 2, PickedTeam: "DAL", ConfidenceValue: 17}, http.StatusBadRequest, "validation_error"},
		{"malformed body", http.MethodPost, `{"gameId": "one"}`, http.StatusBadRequest, "validation_error"},
		{"unknown field", http.MethodPost, `{"gameId": 2, "team": "DAL"}`, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, tt.method, "/api/picks", f.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, errorCode(t, body))
		})
	}

	resp, body := f.do(t, http.MethodGet, "/api/picks", f.token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errorCode(t, body))
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/scores/recompute?week=1", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/scores/recompute?week=1", f.token, nil, middleware.AdminTokenHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/scores/recompute?week=1", "", nil, middleware.AdminTokenHeader, testAdminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var summary services.RecalculationSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 1, summary.Week)
}

func TestFeedIngestScoresLeaderboard(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/api/picks", f.token, models.PickRequest{GameID: 1, PickedTeam: "KC", ConfidenceValue: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/picks", f.other, models.PickRequest{GameID: 1, PickedTeam: "BUF", ConfidenceValue: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	final := []models.Game{{
		ID: 1, Season: testSeason, Week: 1, Home: "KC", Away: "BUF",
		StartTime: testNow.Add(24 * time.Hour), Status: models.GameStatusFinal,
		HomeScore: models.IntPtr(27), AwayScore: models.IntPtr(20),
	}}
	resp, body := f.do(t, http.MethodPost, "/api/feed/games", "", final, middleware.AdminTokenHeader, testAdminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result services.IngestResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, []int{1}, result.Rescored)

	resp, body = f.do(t, http.MethodGet, "/api/scores?week=1", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var board []models.LeaderboardEntry
	require.NoError(t, json.Unmarshal(body, &board))
	require.Len(t, board, 2)
	assert.Equal(t, 3, board[0].Points)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 0, board[1].Points)
	assert.Equal(t, 2, board[1].Rank)

	resp, _ = f.do(t, http.MethodPost, "/api/feed/games", "", "{", middleware.AdminTokenHeader, testAdminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginAndHealth(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/login", "", models.LoginRequest{Email: "alex@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var auth models.AuthResponse
	require.NoError(t, json.Unmarshal(body, &auth))
	assert.NotEmpty(t, auth.Token)

	resp, _ = f.do(t, http.MethodGet, "/api/me", auth.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/login", "", models.LoginRequest{Email: "alex@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","database":"memory"}`, string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, _ = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGamesShowLockState(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/games?week=1", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var week WeekGamesResponse
	require.NoError(t, json.Unmarshal(body, &week))
	assert.Equal(t, testSeason, week.Season)
	assert.Equal(t, 3, week.MaxConfidence)
	require.Len(t, week.Games, 3)
	assert.Equal(t, 3, week.Games[0].ID)
	assert.True(t, week.Games[0].Locked)
	assert.False(t, week.Games[1].Locked)

	resp, _ = f.do(t, http.MethodGet, "/api/games?week=1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/games?week=40", f.token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return fmt.Errorf("no reachable servers") }

func TestHealthDegraded(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(downPinger{}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&services.RuleError{Kind: services.ErrValidation, Reason: "bad"}, http.StatusBadRequest, "validation_error"},
		{&services.RuleError{Kind: services.ErrNotFound, Reason: "missing"}, http.StatusNotFound, "not_found"},
		{&services.RuleError{Kind: services.ErrDuplicate, Reason: "dup"}, http.StatusConflict, "duplicate_pick"},
		{&services.RuleError{Kind: services.ErrConflict, Reason: services.ReasonPicksLocked}, http.StatusBadRequest, "picks_locked"},
		{&services.RuleError{Kind: services.ErrConflict, Reason: services.ReasonConfidenceCommitted}, http.StatusConflict, "confidence_committed"},
		{fmt.Errorf("commit: %w", services.ErrConcurrentUpdate), http.StatusServiceUnavailable, "concurrent_update"},
		{fmt.Errorf("socket closed"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		status, code := statusForError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
