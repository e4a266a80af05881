package models

// WeeklyScore is a user's aggregate for one (season, week).
// It is always recomputed in full and replaced, never incremented, so it
// carries no timestamps.
type WeeklyScore struct {
	UserID       int `json:"user_id" bson:"user_id"`
	Week         int `json:"week" bson:"week"`
	Season       int `json:"season" bson:"season"`
	Points       int `json:"points" bson:"points"`
	CorrectPicks int `json:"correct_picks" bson:"correct_picks"`
	TotalPicks   int `json:"total_picks" bson:"total_picks"`
}

// LeaderboardEntry is a ranked weekly score
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	WeeklyScore
}

// Accuracy returns correct/total as a fraction, 0 for no picks
func (ws *WeeklyScore) Accuracy() float64 {
	if ws.TotalPicks == 0 {
		return 0.0
	}
	return float64(ws.CorrectPicks) / float64(ws.TotalPicks)
}
