package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"confidence-pickem/logging"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

// UserContextKey is the key used to store user in request context
type UserContextKey string

const UserKey UserContextKey = "user"

// AdminTokenHeader carries the operator token for recompute and feed calls
const AdminTokenHeader = "X-Admin-Token"

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	authService *services.AuthService
	adminToken  string
	logger      *logging.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *services.AuthService, adminToken string) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		adminToken:  adminToken,
		logger:      logging.WithPrefix("Auth"),
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// user in the request context
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			deny(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		user, err := m.authService.GetUserFromToken(r.Context(), token)
		if err != nil {
			m.logger.Debugf("Rejected token for %s %s: %v", r.Method, r.URL.Path, err)
			deny(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin guards operator endpoints with the shared admin token
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.adminToken == "" {
			deny(w, http.StatusForbidden, "forbidden", "admin endpoints are disabled")
			return
		}
		got := r.Header.Get(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(m.adminToken)) != 1 {
			m.logger.Warnf("Invalid admin token for %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
			deny(w, http.StatusForbidden, "forbidden", "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func deny(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

// GetUserFromContext retrieves the authenticated user from request context
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}
