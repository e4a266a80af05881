package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Confidence bounds. Zero means the team is chosen but no value is assigned.
const (
	MinConfidence = 0
	MaxConfidence = 16
)

// Pick represents a user's selection for one game.
// Exactly one pick exists per (user, game); picks are never deleted.
type Pick struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           int                `bson:"user_id" json:"user_id"`
	GameID           int                `bson:"game_id" json:"game_id"`
	Season           int                `bson:"season" json:"season"`
	Week             int                `bson:"week" json:"week"`
	PickedTeam       string             `bson:"picked_team" json:"picked_team"`
	ConfidencePoints int                `bson:"confidence_points" json:"confidence_points"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsComplete returns true once a confidence value has been assigned
func (p *Pick) IsComplete() bool {
	return p.ConfidencePoints > 0
}

// Clone returns a copy safe to mutate
func (p *Pick) Clone() *Pick {
	c := *p
	return &c
}

// NewPick creates a pick for a game with creation timestamps set
func NewPick(userID int, game *Game, pickedTeam string, confidence int, now time.Time) *Pick {
	return &Pick{
		ID:               primitive.NewObjectID(),
		UserID:           userID,
		GameID:           game.ID,
		Season:           game.Season,
		Week:             game.Week,
		PickedTeam:       pickedTeam,
		ConfidencePoints: confidence,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// PickRequest is the JSON body for creating or updating a pick
type PickRequest struct {
	GameID          int    `json:"gameId"`
	PickedTeam      string `json:"pickedTeam"`
	ConfidenceValue int    `json:"confidenceValue"`
}

// UsedConfidenceValues returns the confidence values held by complete picks
func UsedConfidenceValues(picks []*Pick) []int {
	var used []int
	for _, p := range picks {
		if p.IsComplete() {
			used = append(used, p.ConfidencePoints)
		}
	}
	return used
}
