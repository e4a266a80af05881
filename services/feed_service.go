package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"confidence-pickem/logging"
	"confidence-pickem/metrics"
	"confidence-pickem/models"
)

// WeekRecalculator is implemented by ScoringService. The feed, the
// finalization watcher and the sweeper all trigger recomputes through it.
type WeekRecalculator interface {
	RecalculateWeek(ctx context.Context, season, week int) (*RecalculationSummary, error)
}

// IngestRejection describes a feed record that failed validation
type IngestRejection struct {
	GameID int    `json:"game_id"`
	Reason string `json:"reason"`
}

// IngestResult reports what one feed batch changed
type IngestResult struct {
	Received     int                     `json:"received"`
	Upserted     int                     `json:"upserted"`
	Rejected     []IngestRejection       `json:"rejected,omitempty"`
	Rescored     []int                   `json:"rescored,omitempty"`
	Recalculated []*RecalculationSummary `json:"recalculated,omitempty"`
}

// FeedService applies normalized schedule and result records
type FeedService struct {
	games  GameStore
	picks  PickStore
	scorer WeekRecalculator
	logger *logging.Logger
}

// NewFeedService creates a new feed ingestion service
func NewFeedService(games GameStore, picks PickStore, scorer WeekRecalculator) *FeedService {
	return &FeedService{
		games:  games,
		picks:  picks,
		scorer: scorer,
		logger: logging.WithPrefix("FeedService"),
	}
}

type seasonWeek struct {
	season int
	week   int
}

// IngestGames upserts games by feed id. Invalid records are rejected
// individually. Picks on a game the feed moved to another week follow the
// game. Each (season, week) containing a game whose scoreable result
// changed, or that gained or lost picks, is recomputed once after the
// records are stored: a game becoming final with both scores, a corrected
// final score, or a final reverted. A store failure stops the batch, but
// the weeks already affected are still recomputed.
func (f *FeedService) IngestGames(ctx context.Context, games []*models.Game) (*IngestResult, error) {
	result := &IngestResult{Received: len(games)}
	affected := make(map[seasonWeek]bool)
	var errs []error

	for _, game := range games {
		if game == nil {
			continue
		}
		game.Home = strings.ToUpper(strings.TrimSpace(game.Home))
		game.Away = strings.ToUpper(strings.TrimSpace(game.Away))

		if err := game.Validate(); err != nil {
			result.Rejected = append(result.Rejected, IngestRejection{GameID: game.ID, Reason: err.Error()})
			continue
		}
		if game.IsFinal() && !game.HasScores() {
			f.logger.Warnf("Game %d (%s) is final without both scores; storing without scoring", game.ID, game.Matchup())
		}

		previous, err := f.games.FindByID(ctx, game.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load game %d: %w", game.ID, err))
			break
		}
		if err := f.games.Upsert(ctx, game); err != nil {
			errs = append(errs, err)
			break
		}
		result.Upserted++

		if resultChanged(previous, game) {
			result.Rescored = append(result.Rescored, game.ID)
			affected[seasonWeek{game.Season, game.Week}] = true
			if previous != nil && (previous.Season != game.Season || previous.Week != game.Week) {
				affected[seasonWeek{previous.Season, previous.Week}] = true
			}
		}

		moved, err := f.followGame(ctx, game)
		for _, sw := range moved {
			affected[sw] = true
		}
		if err != nil {
			errs = append(errs, err)
			break
		}
	}

	weeks := make([]seasonWeek, 0, len(affected))
	for sw := range affected {
		weeks = append(weeks, sw)
	}
	sort.Slice(weeks, func(i, j int) bool {
		if weeks[i].season != weeks[j].season {
			return weeks[i].season < weeks[j].season
		}
		return weeks[i].week < weeks[j].week
	})

	for _, sw := range weeks {
		metrics.RecordFinalizationTrigger()
		summary, err := f.scorer.RecalculateWeek(ctx, sw.season, sw.week)
		if err != nil {
			f.logger.Errorf("Recalculation for season %d week %d failed: %v", sw.season, sw.week, err)
			errs = append(errs, err)
			continue
		}
		result.Recalculated = append(result.Recalculated, summary)
	}

	f.logger.Infof("Ingested %d/%d games, %d results changed, %d weeks recalculated",
		result.Upserted, result.Received, len(result.Rescored), len(result.Recalculated))

	return result, errors.Join(errs...)
}

// followGame re-keys picks stored under a week the game no longer belongs
// to. Each pick moves in its owner's unit for the new week; a confidence
// value already held there is dropped to 0 on the moved pick. It returns
// every week that lost or gained picks, including those moved before a
// failure.
func (f *FeedService) followGame(ctx context.Context, game *models.Game) ([]seasonWeek, error) {
	picks, err := f.picks.FindByGame(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks for game %d: %w", game.ID, err)
	}

	var touched []seasonWeek
	for _, stale := range picks {
		if stale.Season == game.Season && stale.Week == game.Week {
			continue
		}
		from := seasonWeek{stale.Season, stale.Week}

		err := f.picks.WithinUserWeek(ctx, stale.UserID, game.Season, game.Week, func(tx PickTx) error {
			current, err := tx.Picks(ctx)
			if err != nil {
				return err
			}
			moved := stale.Clone()
			moved.Season = game.Season
			moved.Week = game.Week
			if moved.IsComplete() && findConfidenceHolder(current, game.ID, moved.ConfidencePoints) != nil {
				f.logger.Warnf("User %d: confidence %d on game %d already used in week %d; cleared on move",
					moved.UserID, moved.ConfidencePoints, game.ID, game.Week)
				moved.ConfidencePoints = 0
			}
			return tx.Save(ctx, moved)
		})
		if err != nil {
			return touched, fmt.Errorf("failed to move user %d pick for game %d to week %d: %w",
				stale.UserID, game.ID, game.Week, err)
		}
		touched = append(touched, from, seasonWeek{game.Season, game.Week})
		f.logger.Infof("Moved user %d pick for game %d from week %d to week %d",
			stale.UserID, game.ID, from.week, game.Week)
	}
	return touched, nil
}

// resultChanged reports whether the scoreable result of a game differs
// between previous and next
func resultChanged(previous, next *models.Game) bool {
	prevScored := previous != nil && previous.IsFinal() && previous.HasScores()
	nextScored := next.IsFinal() && next.HasScores()
	if !prevScored || !nextScored {
		return prevScored != nextScored
	}
	return *previous.HomeScore != *next.HomeScore ||
		*previous.AwayScore != *next.AwayScore ||
		previous.Home != next.Home ||
		previous.Away != next.Away ||
		previous.Week != next.Week ||
		previous.Season != next.Season
}
