// Command seed_picks fills a season with random confidence picks for every
// user, submitting them through the confidence engine so that every stored
// week satisfies the allocation rules.
package main

import (
	"context"
	"flag"
	"math/rand"
	"sort"
	"time"

	"confidence-pickem/config"
	"confidence-pickem/database"
	"confidence-pickem/logging"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

func main() {
	season := flag.Int("season", 0, "season to seed (defaults to CURRENT_SEASON)")
	fromWeek := flag.Int("from", 1, "first week to seed")
	toWeek := flag.Int("to", models.MaxWeek, "last week to seed")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
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
	pickRepo := database.NewMongoPickRepository(db)
	userRepo := database.NewMongoUserRepository(db)

	games, err := gameRepo.FindBySeason(ctx, *season)
	if err != nil {
		logging.Fatalf("Failed to load games: %v", err)
	}
	if len(games) == 0 {
		logging.Fatalf("No games found for %d season. Ingest the schedule first.", *season)
	}
	users, err := userRepo.GetAllUsers(ctx)
	if err != nil {
		logging.Fatalf("Failed to load users: %v", err)
	}

	gamesByWeek := make(map[int][]*models.Game)
	for _, g := range games {
		gamesByWeek[g.Week] = append(gamesByWeek[g.Week], g)
	}

	// Picks are backfilled as of just before each week's first kickoff so
	// that games already played are still open.
	var clock time.Time
	engine := services.NewConfidenceEngine(preKickoff{gameRepo}, pickRepo, cfg.ToLockPolicy()).
		WithClock(func() time.Time { return clock })

	rng := rand.New(rand.NewSource(*seed))
	created, rejected := 0, 0
	for week := *fromWeek; week <= *toWeek; week++ {
		weekGames := gamesByWeek[week]
		if len(weekGames) == 0 {
			continue
		}
		clock = earliestKickoff(weekGames).Add(-cfg.Picks.LockOffset - time.Hour)

		for _, user := range users {
			n := len(weekGames)
			if n > models.MaxConfidence {
				n = models.MaxConfidence
			}
			values := rng.Perm(n)
			for i, game := range weekGames {
				team := game.Home
				if rng.Intn(2) == 0 {
					team = game.Away
				}
				confidence := 0
				if i < n {
					confidence = values[i] + 1
				}

				_, err := engine.SubmitPick(ctx, services.SubmitPickRequest{
					UserID:          user.ID,
					GameID:          game.ID,
					PickedTeam:      team,
					ConfidenceValue: confidence,
					Mode:            services.SubmitCreate,
				})
				if err != nil {
					logging.Warnf("User %s week %d game %d: %v", user.Name, week, game.ID, err)
					rejected++
					continue
				}
				created++
			}
		}
		logging.Infof("Seeded week %d for %d users", week, len(users))
	}

	logging.Infof("Done: %d picks created, %d rejected", created, rejected)
}

// preKickoff presents every game as not yet started
type preKickoff struct {
	services.GameStore
}

func (p preKickoff) FindByID(ctx context.Context, gameID int) (*models.Game, error) {
	g, err := p.GameStore.FindByID(ctx, gameID)
	if err != nil || g == nil {
		return g, err
	}
	return asScheduled(g), nil
}

func (p preKickoff) FindByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	games, err := p.GameStore.FindByWeek(ctx, season, week)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Game, len(games))
	for i, g := range games {
		out[i] = asScheduled(g)
	}
	return out, nil
}

func asScheduled(g *models.Game) *models.Game {
	c := *g
	c.Status = models.GameStatusScheduled
	c.HomeScore, c.AwayScore = nil, nil
	return &c
}

func earliestKickoff(games []*models.Game) time.Time {
	sorted := append([]*models.Game(nil), games...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })
	return sorted[0].StartTime
}
