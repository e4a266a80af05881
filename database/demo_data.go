package database

import (
	"context"
	"fmt"
	"time"

	"confidence-pickem/models"
)

// demoTeams holds the team codes in a fixed order
var demoTeams = func() []string {
	codes := make([]string, len(models.NFLTeams))
	for i, t := range models.NFLTeams {
		codes[i] = t.Abbr
	}
	return codes
}()

var demoUsers = []struct {
	Name  string
	Email string
}{
	{"ALEX", "alex@example.com"},
	{"BLAKE", "blake@example.com"},
	{"CASEY", "casey@example.com"},
	{"DREW", "drew@example.com"},
	{"EMERY", "emery@example.com"},
}

// DemoPassword is the password of every seeded demo user
const DemoPassword = "password123"

// DemoSchedule builds three weeks of 16 games around now: week 1 is final,
// week 2 kicked off an hour ago and week 3 starts in two days
func DemoSchedule(season int, now time.Time) []*models.Game {
	starts := map[int]time.Time{
		1: now.Add(-7 * 24 * time.Hour),
		2: now.Add(-time.Hour),
		3: now.Add(48 * time.Hour),
	}

	var games []*models.Game
	for week := 1; week <= 3; week++ {
		for i := 0; i < len(demoTeams)/2; i++ {
			g := &models.Game{
				ID:        season*1000 + week*100 + i + 1,
				Season:    season,
				Week:      week,
				Away:      demoTeams[(2*i+week)%len(demoTeams)],
				Home:      demoTeams[(2*i+week+1)%len(demoTeams)],
				StartTime: starts[week].Add(time.Duration(i%4) * 3 * time.Hour).Truncate(time.Minute),
				Status:    models.GameStatusScheduled,
			}
			switch week {
			case 1:
				g.Status = models.GameStatusFinal
				g.HomeScore = models.IntPtr(17 + (i*7)%14)
				g.AwayScore = models.IntPtr(13 + (i*5)%17)
			case 2:
				if i%4 == 0 {
					g.Status = models.GameStatusLive
					g.HomeScore = models.IntPtr(7)
					g.AwayScore = models.IntPtr(3)
				}
			}
			games = append(games, g)
		}
	}
	return games
}

// SeedDemo loads the demo schedule and users into the given stores
func SeedDemo(ctx context.Context, games *MemoryGameStore, users *MemoryUserStore, season int, now time.Time) error {
	for _, g := range DemoSchedule(season, now) {
		if err := games.Upsert(ctx, g); err != nil {
			return err
		}
	}
	for _, u := range demoUsers {
		user := &models.User{Name: u.Name, Email: u.Email}
		if err := user.HashPassword(DemoPassword); err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		if err := users.CreateUser(ctx, user); err != nil {
			return err
		}
	}
	return nil
}
