// Command recompute_scores rebuilds weekly scores from stored picks and
// final results.
//
// Usage:
//
//	recompute_scores -season 2025            # every week with games
//	recompute_scores -season 2025 -week 3    # one week
package main

import (
	"context"
	"flag"
	"sort"

	"confidence-pickem/config"
	"confidence-pickem/database"
	"confidence-pickem/logging"
	"confidence-pickem/services"
)

func main() {
	season := flag.Int("season", 0, "season to recompute (defaults to CURRENT_SEASON)")
	week := flag.Int("week", 0, "single week to recompute; 0 means every week with games")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	if *season == 0 {
		*season = cfg.App.CurrentSeason
	}

	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logging.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	gameRepo := database.NewMongoGameRepository(db)
	scoring := services.NewScoringService(
		database.NewMongoPickRepository(db),
		gameRepo,
		database.NewMongoWeeklyScoreRepository(db),
		cfg.Scoring.Concurrency,
	)

	weeks := []int{*week}
	if *week == 0 {
		games, err := gameRepo.FindBySeason(ctx, *season)
		if err != nil {
			logging.Fatalf("Failed to load games: %v", err)
		}
		seen := make(map[int]bool)
		weeks = weeks[:0]
		for _, g := range games {
			if !seen[g.Week] {
				seen[g.Week] = true
				weeks = append(weeks, g.Week)
			}
		}
		sort.Ints(weeks)
	}

	failed := 0
	for _, w := range weeks {
		summary, err := scoring.RecalculateWeek(ctx, *season, w)
		if err != nil {
			logging.Errorf("Week %d: %v", w, err)
			failed++
			continue
		}
		logging.Infof("Week %d: %d users scored, %d failed (%v)",
			w, summary.UsersProcessed, summary.UsersFailed, summary.Duration)
		failed += summary.UsersFailed
	}

	if failed > 0 {
		logging.Fatalf("Recompute finished with %d failures", failed)
	}
	logging.Infof("Recomputed %d weeks of season %d", len(weeks), *season)
}
