package services

import (
	"time"

	"confidence-pickem/models"
)

// DefaultLockOffset is how long before kickoff a game's picks freeze
const DefaultLockOffset = 5 * time.Minute

// IsLocked reports whether picks for a game are frozen. A game is locked
// once it is live or final, or once now reaches startTime - lockOffset.
// The current time is always passed in.
func IsLocked(status models.GameStatus, startTime, now time.Time, lockOffset time.Duration) bool {
	if status == models.GameStatusLive || status == models.GameStatusFinal {
		return true
	}
	return !now.Before(startTime.Add(-lockOffset))
}

// LockPolicy applies IsLocked with a configured offset
type LockPolicy struct {
	Offset time.Duration
}

// NewLockPolicy creates a lock policy; a negative offset falls back to the default
func NewLockPolicy(offset time.Duration) LockPolicy {
	if offset < 0 {
		offset = DefaultLockOffset
	}
	return LockPolicy{Offset: offset}
}

// GameLocked reports whether the game is locked at now
func (p LockPolicy) GameLocked(game *models.Game, now time.Time) bool {
	return IsLocked(game.Status, game.StartTime, now, p.Offset)
}
