package services

import (
	"context"

	"confidence-pickem/models"
)

// GameStore is the read side of the schedule feed plus the upsert used by
// feed ingestion. Lookups return (nil, nil) when nothing matches.
type GameStore interface {
	FindByID(ctx context.Context, gameID int) (*models.Game, error)
	FindByWeek(ctx context.Context, season, week int) ([]*models.Game, error)
	FindBySeason(ctx context.Context, season int) ([]*models.Game, error)
	Upsert(ctx context.Context, game *models.Game) error
}

// PickStore persists picks. All writes go through WithinUserWeek.
type PickStore interface {
	FindByUserAndWeek(ctx context.Context, userID, season, week int) ([]*models.Pick, error)
	FindByWeek(ctx context.Context, season, week int) ([]*models.Pick, error)

	// FindByGame returns every user's pick on the game, whatever week it
	// is stored under
	FindByGame(ctx context.Context, gameID int) ([]*models.Pick, error)

	// WithinUserWeek runs fn against a consistent snapshot of one user's
	// picks for (season, week). Writes made through the PickTx are applied
	// as a single atomic unit if and only if fn returns nil.
	WithinUserWeek(ctx context.Context, userID, season, week int, fn func(tx PickTx) error) error
}

// PickTx is the transactional view handed to WithinUserWeek callbacks
type PickTx interface {
	// Picks returns the user's picks for the week as seen by this unit
	Picks(ctx context.Context) ([]*models.Pick, error)

	// Demote sets a pick's confidence to 0, provided it still holds expected
	Demote(ctx context.Context, pick *models.Pick, expected int) error

	// Save inserts or replaces the pick keyed by (user, game)
	Save(ctx context.Context, pick *models.Pick) error
}

// ScoreStore persists weekly score rows keyed by (user, week, season)
type ScoreStore interface {
	Upsert(ctx context.Context, score *models.WeeklyScore) error
	FindBySeasonWeek(ctx context.Context, season, week int) ([]*models.WeeklyScore, error)
}

// UserRepository is the user lookup used by authentication
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetAllUsers(ctx context.Context) ([]*models.User, error)
}
