package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confidence-pickem/config"
	"confidence-pickem/database"
	"confidence-pickem/handlers"
	"confidence-pickem/logging"
	"confidence-pickem/metrics"
	"confidence-pickem/middleware"
	"confidence-pickem/services"
)

// stores bundles the repositories used by the services, backed either by
// MongoDB or by the in-memory demo data
type stores struct {
	games  services.GameStore
	picks  services.PickStore
	scores services.ScoreStore
	users  services.UserRepository

	db        *database.MongoDB
	gameWatch services.FinalGameSource
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Configure(cfg.ToLoggingConfig())
	metrics.Configure(cfg.ToMetricsOptions()...)
	cfg.LogConfiguration()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStores(ctx, cfg)
	if st.db != nil {
		defer st.db.Close()
	}

	engine := services.NewConfidenceEngine(st.games, st.picks, cfg.ToLockPolicy())
	scoring := services.NewScoringService(st.picks, st.games, st.scores, cfg.Scoring.Concurrency)
	feed := services.NewFeedService(st.games, st.picks, scoring)
	auth := services.NewAuthService(st.users, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	if cfg.IsSweepEnabled() {
		sweeper, err := services.NewScoreSweeper(st.games, scoring, cfg.App.CurrentSeason, cfg.Scoring.SweepInterval)
		if err != nil {
			logging.Fatalf("Failed to create score sweeper: %v", err)
		}
		if err := sweeper.Start(); err != nil {
			logging.Fatalf("Failed to start score sweeper: %v", err)
		}
		defer func() {
			if err := sweeper.Stop(); err != nil {
				logging.Warnf("Score sweeper shutdown: %v", err)
			}
		}()
	}

	if cfg.Scoring.FinalizationWatcherEnabled && st.gameWatch != nil {
		go services.NewFinalizationWatcher(st.gameWatch, scoring).Run(ctx)
	}

	health := handlers.NewHealthHandler(nil)
	if st.db != nil {
		health = handlers.NewHealthHandler(st.db)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Global().Handler()
	}

	router := handlers.NewRouter(handlers.Router{
		Auth:           handlers.NewAuthHandler(auth),
		Games:          handlers.NewGameHandler(engine, cfg.App.CurrentSeason),
		Picks:          handlers.NewPickHandler(engine, cfg.App.CurrentSeason),
		Scores:         handlers.NewScoreHandler(scoring, cfg.App.CurrentSeason),
		Feed:           handlers.NewFeedHandler(feed),
		Health:         health,
		Metrics:        metricsHandler,
		AuthMiddleware: middleware.NewAuthMiddleware(auth, cfg.Auth.AdminToken),
		UseTLS:         cfg.Server.UseTLS,
	})

	server := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if cfg.Server.UseTLS {
			logging.Infof("Server starting on https://%s", server.Addr)
			serveErr <- server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
			return
		}
		logging.Infof("Server starting on http://%s", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		logging.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Graceful shutdown failed: %v", err)
	}
	logging.Info("Server stopped")
}

// openStores connects to MongoDB, falling back to seeded in-memory stores
// in demo mode or when the database is unreachable
func openStores(ctx context.Context, cfg *config.Config) stores {
	if !cfg.App.DemoMode {
		db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
		if err == nil {
			gameRepo := database.NewMongoGameRepository(db)
			return stores{
				games:     gameRepo,
				picks:     database.NewMongoPickRepository(db),
				scores:    database.NewMongoWeeklyScoreRepository(db),
				users:     database.NewMongoUserRepository(db),
				db:        db,
				gameWatch: gameRepo,
			}
		}
		logging.Errorf("Database connection failed: %v", err)
		logging.Warnf("Continuing with in-memory demo data for season %d", cfg.App.CurrentSeason)
	}

	games := database.NewMemoryGameStore()
	users := database.NewMemoryUserStore()
	if err := database.SeedDemo(ctx, games, users, cfg.App.CurrentSeason, time.Now()); err != nil {
		logging.Fatalf("Failed to seed demo data: %v", err)
	}
	return stores{
		games:  games,
		picks:  database.NewMemoryPickStore(),
		scores: database.NewMemoryScoreStore(),
		users:  users,
	}
}
