package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"confidence-pickem/logging"
	"confidence-pickem/metrics"
	"confidence-pickem/models"
)

// DefaultScoringConcurrency bounds parallel score upserts in one recompute
const DefaultScoringConcurrency = 8

// RecalculationSummary reports the outcome of one weekly recompute
type RecalculationSummary struct {
	Season         int           `json:"season"`
	Week           int           `json:"week"`
	UsersProcessed int           `json:"users_processed"`
	UsersFailed    int           `json:"users_failed"`
	FailedUserIDs  []int         `json:"failed_user_ids,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// ScoringService recomputes weekly scores from picks and final results
type ScoringService struct {
	picks       PickStore
	games       GameStore
	scores      ScoreStore
	concurrency int
	logger      *logging.Logger
}

// NewScoringService creates a new scoring service
func NewScoringService(picks PickStore, games GameStore, scores ScoreStore, concurrency int) *ScoringService {
	if concurrency <= 0 {
		concurrency = DefaultScoringConcurrency
	}
	return &ScoringService{
		picks:       picks,
		games:       games,
		scores:      scores,
		concurrency: concurrency,
		logger:      logging.WithPrefix("ScoringService"),
	}
}

// RecalculateWeek recomputes and replaces the score row of every user with
// picks in (season, week). Loading failures abort; a failed upsert for one
// user is logged and counted without affecting the others. Safe to run any
// number of times.
func (s *ScoringService) RecalculateWeek(ctx context.Context, season, week int) (*RecalculationSummary, error) {
	if week < 1 || week > models.MaxWeek {
		return nil, validationErr("week must be between 1 and %d", models.MaxWeek)
	}

	start := time.Now()
	s.logger.Infof("Recalculating scores for season %d, week %d", season, week)

	allPicks, err := s.picks.FindByWeek(ctx, season, week)
	if err != nil {
		return nil, fmt.Errorf("failed to get picks for week: %w", err)
	}
	games, err := s.games.FindByWeek(ctx, season, week)
	if err != nil {
		return nil, fmt.Errorf("failed to get games for week: %w", err)
	}

	picksByUser := make(map[int][]*models.Pick)
	for _, pick := range allPicks {
		picksByUser[pick.UserID] = append(picksByUser[pick.UserID], pick)
	}

	// Users whose picks all moved out of the week keep a row, zeroed.
	existing, err := s.scores.FindBySeasonWeek(ctx, season, week)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing scores for week: %w", err)
	}
	for _, score := range existing {
		if _, ok := picksByUser[score.UserID]; !ok {
			picksByUser[score.UserID] = nil
		}
	}

	userIDs := make([]int, 0, len(picksByUser))
	for userID := range picksByUser {
		userIDs = append(userIDs, userID)
	}
	sort.Ints(userIDs)

	summary := &RecalculationSummary{Season: season, Week: week}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			totals := ComputeWeeklyScore(picksByUser[userID], games)
			score := &models.WeeklyScore{
				UserID:       userID,
				Week:         week,
				Season:       season,
				Points:       totals.Points,
				CorrectPicks: totals.CorrectPicks,
				TotalPicks:   totals.TotalPicks,
			}

			err := s.scores.Upsert(gctx, score)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Errorf("Error saving weekly score for user %d, season %d, week %d: %v", userID, season, week, err)
				summary.UsersFailed++
				summary.FailedUserIDs = append(summary.FailedUserIDs, userID)
				metrics.RecordScoreFailure()
				return nil
			}
			summary.UsersProcessed++
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(summary.FailedUserIDs)
	summary.Duration = time.Since(start)
	metrics.ObserveRecalculation(summary.Duration)

	s.logger.Infof("Recalculated season %d week %d: %d users updated, %d failed in %v",
		season, week, summary.UsersProcessed, summary.UsersFailed, summary.Duration)

	return summary, nil
}

// Leaderboard returns the week's scores ranked by points. Ties share a rank.
func (s *ScoringService) Leaderboard(ctx context.Context, season, week int) ([]models.LeaderboardEntry, error) {
	if week < 1 || week > models.MaxWeek {
		return nil, validationErr("week must be between 1 and %d", models.MaxWeek)
	}

	scores, err := s.scores.FindBySeasonWeek(ctx, season, week)
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly scores: %w", err)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Points != scores[j].Points {
			return scores[i].Points > scores[j].Points
		}
		return scores[i].UserID < scores[j].UserID
	})

	entries := make([]models.LeaderboardEntry, len(scores))
	for i, score := range scores {
		rank := i + 1
		if i > 0 && score.Points == scores[i-1].Points {
			rank = entries[i-1].Rank
		}
		entries[i] = models.LeaderboardEntry{Rank: rank, WeeklyScore: *score}
	}
	return entries, nil
}
