package handlers

import (
	"net/http"

	"confidence-pickem/logging"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

// ScoreHandler serves weekly scores and the operator recompute
type ScoreHandler struct {
	scoring       *services.ScoringService
	currentSeason int
	logger        *logging.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(scoring *services.ScoringService, currentSeason int) *ScoreHandler {
	return &ScoreHandler{
		scoring:       scoring,
		currentSeason: currentSeason,
		logger:        logging.WithPrefix("ScoreHandler"),
	}
}

// Recompute handles POST /api/scores/recompute?season=&week=
func (h *ScoreHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	season, week, msg := seasonWeekParams(r, h.currentSeason)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	summary, err := h.scoring.RecalculateWeek(r.Context(), season, week)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Leaderboard handles GET /api/scores?season=&week=
func (h *ScoreHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	season, week, msg := seasonWeekParams(r, h.currentSeason)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	board, err := h.scoring.Leaderboard(r.Context(), season, week)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if board == nil {
		board = []models.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, board)
}
