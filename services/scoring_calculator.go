package services

import "confidence-pickem/models"

// ScoreTotals is the result of scoring one user's picks for a week
type ScoreTotals struct {
	Points       int `json:"points"`
	CorrectPicks int `json:"correct_picks"`
	TotalPicks   int `json:"total_picks"`
}

// ComputeWeeklyScore turns a user's picks and the week's games into totals.
//
// Picks with confidence 0 are ignored. Every other pick on a known game
// counts toward TotalPicks, including picks on games that are not final
// yet. A pick earns its confidence value when the game is final with both
// scores and the picked team won; ties and unfinished games earn nothing.
func ComputeWeeklyScore(picks []*models.Pick, games []*models.Game) ScoreTotals {
	winners := make(map[int]string, len(games))
	for _, g := range games {
		winners[g.ID] = g.Winner()
	}

	var totals ScoreTotals
	for _, pick := range picks {
		if pick.ConfidencePoints <= 0 {
			continue
		}
		winner, ok := winners[pick.GameID]
		if !ok {
			continue
		}

		totals.TotalPicks++

		if winner == "" || pick.PickedTeam != winner {
			continue
		}
		totals.Points += pick.ConfidencePoints
		totals.CorrectPicks++
	}

	return totals
}
