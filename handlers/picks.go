package handlers

import (
	"encoding/json"
	"net/http"

	"confidence-pickem/logging"
	"confidence-pickem/middleware"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

// PickHandler serves the caller's own picks
type PickHandler struct {
	engine        *services.ConfidenceEngine
	currentSeason int
	logger        *logging.Logger
}

// NewPickHandler creates a new pick handler
func NewPickHandler(engine *services.ConfidenceEngine, currentSeason int) *PickHandler {
	return &PickHandler{
		engine:        engine,
		currentSeason: currentSeason,
		logger:        logging.WithPrefix("PickHandler"),
	}
}

// PickResponse is the stored pick plus the pick that gave up its
// confidence value, when there was one
type PickResponse struct {
	*models.Pick
	Demoted *models.Pick `json:"demoted,omitempty"`
}

// CreatePick handles POST /api/picks
func (h *PickHandler) CreatePick(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, services.SubmitCreate, http.StatusCreated)
}

// UpdatePick handles PUT /api/picks
func (h *PickHandler) UpdatePick(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, services.SubmitUpdate, http.StatusOK)
}

func (h *PickHandler) submit(w http.ResponseWriter, r *http.Request, mode services.SubmitMode, okStatus int) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req models.PickRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	result, err := h.engine.SubmitPick(r.Context(), services.SubmitPickRequest{
		UserID:          user.ID,
		GameID:          req.GameID,
		PickedTeam:      req.PickedTeam,
		ConfidenceValue: req.ConfidenceValue,
		Mode:            mode,
	})
	if err != nil {
		h.logger.Debugf("User %d %s pick for game %d rejected: %v", user.ID, mode, req.GameID, err)
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, okStatus, PickResponse{Pick: result.Pick, Demoted: result.Demoted})
}

// ListPicks handles GET /api/picks?season=&week=
func (h *PickHandler) ListPicks(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	season, week, msg := seasonWeekParams(r, h.currentSeason)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	picks, err := h.engine.ListPicks(r.Context(), user.ID, season, week)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if picks == nil {
		picks = []*models.Pick{}
	}
	writeJSON(w, http.StatusOK, picks)
}
