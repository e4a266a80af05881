package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"confidence-pickem/logging"
	"confidence-pickem/services"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// statusForError maps service errors onto HTTP statuses and error codes.
// A locked game is a 400 because the request can never succeed; a value
// committed to a locked game is a 409 because another pick is in the way.
func statusForError(err error) (int, string) {
	var ruleErr *services.RuleError
	if errors.As(err, &ruleErr) {
		switch {
		case errors.Is(err, services.ErrValidation):
			return http.StatusBadRequest, "validation_error"
		case errors.Is(err, services.ErrNotFound):
			return http.StatusNotFound, "not_found"
		case errors.Is(err, services.ErrDuplicate):
			return http.StatusConflict, "duplicate_pick"
		case errors.Is(err, services.ErrConflict):
			if ruleErr.Reason == services.ReasonPicksLocked {
				return http.StatusBadRequest, "picks_locked"
			}
			return http.StatusConflict, "confidence_committed"
		}
	}
	if errors.Is(err, services.ErrConcurrentUpdate) {
		return http.StatusServiceUnavailable, "concurrent_update"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError reports rule errors verbatim and hides store failures
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status, code := statusForError(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Errorf("Internal error: %v", err)
		writeError(w, status, code, "internal server error")
	case http.StatusServiceUnavailable:
		logger.Warnf("Concurrent update: %v", err)
		writeError(w, status, code, "another update for this week is in progress, retry")
	default:
		writeError(w, status, code, services.ReasonOf(err))
	}
}

// seasonWeekParams reads ?season=&week=. Season defaults to the current
// one; week is required.
func seasonWeekParams(r *http.Request, defaultSeason int) (season, week int, msg string) {
	season = defaultSeason
	if s := r.URL.Query().Get("season"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, "invalid season parameter"
		}
		season = v
	}

	w := r.URL.Query().Get("week")
	if w == "" {
		return 0, 0, "week parameter is required"
	}
	week, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, "invalid week parameter"
	}
	return season, week, ""
}
