package models

import (
	"fmt"
	"time"
)

// GameStatus represents where a game is in its lifecycle
type GameStatus string

const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusLive      GameStatus = "live"
	GameStatusFinal     GameStatus = "final"
	GameStatusCancelled GameStatus = "cancelled"
)

// MaxWeek is the last regular-season week
const MaxWeek = 18

// IsValid reports whether the status is one of the known values
func (s GameStatus) IsValid() bool {
	switch s {
	case GameStatusScheduled, GameStatusLive, GameStatusFinal, GameStatusCancelled:
		return true
	}
	return false
}

// Game represents an NFL game as supplied by the schedule feed.
// Scores are nil until the game is live or final.
type Game struct {
	ID        int        `json:"id" bson:"id"`
	Season    int        `json:"season" bson:"season"`
	Week      int        `json:"week" bson:"week"`
	Home      string     `json:"home" bson:"home"`
	Away      string     `json:"away" bson:"away"`
	StartTime time.Time  `json:"start_time" bson:"start_time"`
	Status    GameStatus `json:"status" bson:"status"`
	HomeScore *int       `json:"home_score,omitempty" bson:"home_score,omitempty"`
	AwayScore *int       `json:"away_score,omitempty" bson:"away_score,omitempty"`
}

// IsFinal returns true if the game is finished
func (g *Game) IsFinal() bool {
	return g.Status == GameStatusFinal
}

// HasScores returns true when both scores are present
func (g *Game) HasScores() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// Winner returns the winning team code, or empty string when the game is
// not final, a score is missing, or the game ended in a tie
func (g *Game) Winner() string {
	if !g.IsFinal() || !g.HasScores() {
		return ""
	}
	if *g.HomeScore > *g.AwayScore {
		return g.Home
	} else if *g.AwayScore > *g.HomeScore {
		return g.Away
	}
	return "" // tie
}

// HasTeam reports whether the team code plays in this game
func (g *Game) HasTeam(team string) bool {
	return team != "" && (team == g.Home || team == g.Away)
}

// Matchup returns a short "AWAY @ HOME" description
func (g *Game) Matchup() string {
	return fmt.Sprintf("%s @ %s", g.Away, g.Home)
}

// Validate checks the fields the feed must always supply
func (g *Game) Validate() error {
	if g.ID <= 0 {
		return fmt.Errorf("game id must be positive")
	}
	if g.Week < 1 || g.Week > MaxWeek {
		return fmt.Errorf("game %d: week %d out of range 1..%d", g.ID, g.Week, MaxWeek)
	}
	if g.Home == "" || g.Away == "" {
		return fmt.Errorf("game %d: home and away teams are required", g.ID)
	}
	if g.Home == g.Away {
		return fmt.Errorf("game %d: home and away teams must differ", g.ID)
	}
	if !g.Status.IsValid() {
		return fmt.Errorf("game %d: unknown status %q", g.ID, g.Status)
	}
	if g.StartTime.IsZero() {
		return fmt.Errorf("game %d: start time is required", g.ID)
	}
	return nil
}

// IntPtr is a convenience for building scores
func IntPtr(v int) *int {
	return &v
}
