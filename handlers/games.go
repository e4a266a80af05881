package handlers

import (
	"net/http"

	"confidence-pickem/logging"
	"confidence-pickem/services"
)

// GameHandler serves the week's schedule with lock state
type GameHandler struct {
	engine        *services.ConfidenceEngine
	currentSeason int
	logger        *logging.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(engine *services.ConfidenceEngine, currentSeason int) *GameHandler {
	return &GameHandler{
		engine:        engine,
		currentSeason: currentSeason,
		logger:        logging.WithPrefix("GameHandler"),
	}
}

// WeekGamesResponse lists a week's games and the highest assignable value
type WeekGamesResponse struct {
	Season        int                         `json:"season"`
	Week          int                         `json:"week"`
	MaxConfidence int                         `json:"max_confidence"`
	Games         []services.GameAvailability `json:"games"`
}

// GetGames handles GET /api/games?season=&week=
func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	season, week, msg := seasonWeekParams(r, h.currentSeason)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	games, maxConfidence, err := h.engine.ListGames(r.Context(), season, week)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if games == nil {
		games = []services.GameAvailability{}
	}

	writeJSON(w, http.StatusOK, WeekGamesResponse{
		Season:        season,
		Week:          week,
		MaxConfidence: maxConfidence,
		Games:         games,
	})
}
