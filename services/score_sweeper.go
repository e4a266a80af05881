package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-co-op/gocron/v2"

	"confidence-pickem/logging"
	"confidence-pickem/models"
)

// DefaultSweepLookback is how far back a final game's kickoff may be for its
// week to be swept
const DefaultSweepLookback = 24 * time.Hour

// ScoreSweeper periodically recomputes the current season's weeks that
// have recently finished games. It catches results whose finalization
// trigger was missed.
type ScoreSweeper struct {
	scheduler gocron.Scheduler
	games     GameStore
	scorer    WeekRecalculator
	season    int
	interval  time.Duration
	lookback  time.Duration
	now       func() time.Time
	logger    *logging.Logger
}

// NewScoreSweeper creates the sweeper and its scheduler; call Start to run it
func NewScoreSweeper(games GameStore, scorer WeekRecalculator, season int, interval time.Duration) (*ScoreSweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %v", interval)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &ScoreSweeper{
		scheduler: s,
		games:     games,
		scorer:    scorer,
		season:    season,
		interval:  interval,
		lookback:  DefaultSweepLookback,
		now:       time.Now,
		logger:    logging.WithPrefix("ScoreSweeper"),
	}, nil
}

// Start registers the sweep job and starts the scheduler
func (s *ScoreSweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runSweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("score-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to create score sweep job: %w", err)
	}

	s.scheduler.Start()
	s.logger.Infof("Sweeping season %d scores every %v", s.season, s.interval)
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish
func (s *ScoreSweeper) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *ScoreSweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Errorf("Score sweep failed: %v", err)
	}
}

// Sweep recomputes every week of the season with a final, scored game that
// kicked off within the lookback window. A failed week does not stop the
// others; the failures are returned joined.
func (s *ScoreSweeper) Sweep(ctx context.Context) ([]*RecalculationSummary, error) {
	games, err := s.games.FindBySeason(ctx, s.season)
	if err != nil {
		return nil, fmt.Errorf("failed to load season %d games: %w", s.season, err)
	}

	weeks := recentlyFinalWeeks(games, s.now().Add(-s.lookback))
	if len(weeks) == 0 {
		s.logger.Debugf("No recently finished games in season %d", s.season)
		return nil, nil
	}

	var summaries []*RecalculationSummary
	var errs []error
	for _, week := range weeks {
		summary, err := s.scorer.RecalculateWeek(ctx, s.season, week)
		if err != nil {
			s.logger.Errorf("Sweep of season %d week %d failed: %v", s.season, week, err)
			errs = append(errs, fmt.Errorf("week %d: %w", week, err))
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, errors.Join(errs...)
}

func recentlyFinalWeeks(games []*models.Game, since time.Time) []int {
	seen := make(map[int]bool)
	for _, g := range games {
		if g.IsFinal() && g.HasScores() && !g.StartTime.Before(since) {
			seen[g.Week] = true
		}
	}
	weeks := make([]int, 0, len(seen))
	for w := range seen {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}
