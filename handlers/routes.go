package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"confidence-pickem/middleware"
)

// Router groups the handlers mounted by NewRouter
type Router struct {
	Auth    *AuthHandler
	Games   *GameHandler
	Picks   *PickHandler
	Scores  *ScoreHandler
	Feed    *FeedHandler
	Health  *HealthHandler
	Metrics http.Handler // optional

	AuthMiddleware *middleware.AuthMiddleware
	UseTLS         bool
}

// NewRouter builds the API routes
func NewRouter(h Router) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityMiddleware(h.UseTLS))
	r.Use(middleware.Instrument)

	r.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", h.Auth.LoginAPI).Methods(http.MethodPost)

	user := api.NewRoute().Subrouter()
	user.Use(h.AuthMiddleware.RequireAuth)
	user.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)
	user.HandleFunc("/games", h.Games.GetGames).Methods(http.MethodGet)
	user.HandleFunc("/picks", h.Picks.CreatePick).Methods(http.MethodPost)
	user.HandleFunc("/picks", h.Picks.UpdatePick).Methods(http.MethodPut)
	user.HandleFunc("/picks", h.Picks.ListPicks).Methods(http.MethodGet)
	user.HandleFunc("/scores", h.Scores.Leaderboard).Methods(http.MethodGet)

	admin := api.NewRoute().Subrouter()
	admin.Use(h.AuthMiddleware.RequireAdmin)
	admin.HandleFunc("/scores/recompute", h.Scores.Recompute).Methods(http.MethodPost)
	admin.HandleFunc("/feed/games", h.Feed.IngestGames).Methods(http.MethodPost)

	return r
}
