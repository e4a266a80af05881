package handlers

import (
	"encoding/json"
	"net/http"

	"confidence-pickem/logging"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

// maxFeedBody bounds one feed batch; a full season is well under this
const maxFeedBody = 4 << 20

// FeedHandler accepts normalized game records from the schedule feed
type FeedHandler struct {
	feed   *services.FeedService
	logger *logging.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed, logger: logging.WithPrefix("FeedHandler")}
}

// IngestGames handles POST /api/feed/games with a JSON array of games
func (h *FeedHandler) IngestGames(w http.ResponseWriter, r *http.Request) {
	var games []*models.Game
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedBody)).Decode(&games); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "body must be a JSON array of games")
		return
	}

	result, err := h.feed.IngestGames(r.Context(), games)
	if err != nil {
		h.logger.Errorf("Feed ingestion failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "feed ingestion failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
