package services

import (
	"context"
	"time"

	"confidence-pickem/logging"
	"confidence-pickem/metrics"
	"confidence-pickem/models"
)

// DefaultWatchRetryDelay is the pause before reopening a failed stream
const DefaultWatchRetryDelay = 5 * time.Second

// FinalGameSource streams games as they are written with a final status.
// WatchFinalGames blocks until ctx is done or the stream breaks.
type FinalGameSource interface {
	WatchFinalGames(ctx context.Context, handle func(*models.Game)) error
}

// FinalizationWatcher recomputes a week whenever one of its games is
// written as final, independently of which writer stored it
type FinalizationWatcher struct {
	source     FinalGameSource
	scorer     WeekRecalculator
	retryDelay time.Duration
	logger     *logging.Logger
}

// NewFinalizationWatcher creates a new watcher
func NewFinalizationWatcher(source FinalGameSource, scorer WeekRecalculator) *FinalizationWatcher {
	return &FinalizationWatcher{
		source:     source,
		scorer:     scorer,
		retryDelay: DefaultWatchRetryDelay,
		logger:     logging.WithPrefix("FinalizationWatcher"),
	}
}

// WithRetryDelay overrides the reconnect delay
func (w *FinalizationWatcher) WithRetryDelay(d time.Duration) *FinalizationWatcher {
	w.retryDelay = d
	return w
}

// Run watches until ctx is cancelled, reopening the stream after errors
func (w *FinalizationWatcher) Run(ctx context.Context) {
	for {
		err := w.source.WatchFinalGames(ctx, func(game *models.Game) {
			w.handle(ctx, game)
		})
		if ctx.Err() != nil {
			w.logger.Info("Stopped")
			return
		}

		w.logger.Warnf("Change stream closed: %v; reconnecting in %v", err, w.retryDelay)
		select {
		case <-ctx.Done():
			w.logger.Info("Stopped")
			return
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *FinalizationWatcher) handle(ctx context.Context, game *models.Game) {
	if !game.IsFinal() || !game.HasScores() {
		return
	}

	metrics.RecordFinalizationTrigger()
	w.logger.Infof("Game %d (%s) is final, recalculating season %d week %d",
		game.ID, game.Matchup(), game.Season, game.Week)

	if _, err := w.scorer.RecalculateWeek(ctx, game.Season, game.Week); err != nil {
		w.logger.Errorf("Recalculation for season %d week %d failed: %v", game.Season, game.Week, err)
	}
}
