package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"confidence-pickem/logging"
	"confidence-pickem/middleware"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logging.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logging.WithPrefix("AuthHandler"),
	}
}

// LoginAPI handles JSON login requests
func (h *AuthHandler) LoginAPI(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	authResponse, err := h.authService.Login(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.logger.Infof("Login failed for %s", loginReq.Email)
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
			return
		}
		h.logger.Errorf("Login error for %s: %v", loginReq.Email, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.logger.Infof("User %s (%s) logged in", authResponse.User.Name, authResponse.User.Email)
	writeJSON(w, http.StatusOK, authResponse)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user.ToSafeUser())
}
