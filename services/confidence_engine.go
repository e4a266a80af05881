package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"confidence-pickem/logging"
	"confidence-pickem/metrics"
	"confidence-pickem/models"
)

// SubmitMode selects between creating a new pick and updating an existing one
type SubmitMode string

const (
	SubmitCreate SubmitMode = "create"
	SubmitUpdate SubmitMode = "update"
)

// SubmitPickRequest is a single pick submission from a user
type SubmitPickRequest struct {
	UserID          int
	GameID          int
	PickedTeam      string
	ConfidenceValue int
	Mode            SubmitMode
}

// SubmitResult is the stored pick plus the pick that lost its confidence
// value to it, if any
type SubmitResult struct {
	Pick    *models.Pick
	Demoted *models.Pick
}

// ConfidenceEngine validates and persists picks while keeping each user's
// confidence values unique within a week. It is the only writer of picks:
// the HTTP handlers and the seeding tool both go through it.
type ConfidenceEngine struct {
	games  GameStore
	picks  PickStore
	policy LockPolicy
	now    func() time.Time
	logger *logging.Logger
}

// NewConfidenceEngine creates a new allocation engine using the wall clock
func NewConfidenceEngine(games GameStore, picks PickStore, policy LockPolicy) *ConfidenceEngine {
	return &ConfidenceEngine{
		games:  games,
		picks:  picks,
		policy: policy,
		now:    time.Now,
		logger: logging.WithPrefix("ConfidenceEngine"),
	}
}

// WithClock replaces the time source, used by tests and backfills
func (e *ConfidenceEngine) WithClock(now func() time.Time) *ConfidenceEngine {
	e.now = now
	return e
}

// SubmitPick creates or updates a pick. Rule violations are returned as
// *RuleError wrapping ErrValidation, ErrNotFound, ErrConflict or
// ErrDuplicate; anything else is a store failure.
func (e *ConfidenceEngine) SubmitPick(ctx context.Context, req SubmitPickRequest) (*SubmitResult, error) {
	result, err := e.submit(ctx, req)
	metrics.RecordPickSubmission(submissionOutcome(req.Mode, err))
	if result != nil && result.Demoted != nil {
		metrics.RecordConfidenceDemotion()
	}
	return result, err
}

func (e *ConfidenceEngine) submit(ctx context.Context, req SubmitPickRequest) (*SubmitResult, error) {
	team := strings.ToUpper(strings.TrimSpace(req.PickedTeam))
	if team == "" {
		return nil, validationErr("picked team is required")
	}
	if req.ConfidenceValue < models.MinConfidence || req.ConfidenceValue > models.MaxConfidence {
		return nil, validationErr("confidence value must be between %d and %d, got %d",
			models.MinConfidence, models.MaxConfidence, req.ConfidenceValue)
	}
	if req.Mode != SubmitCreate && req.Mode != SubmitUpdate {
		return nil, validationErr("unknown submit mode %q", req.Mode)
	}

	game, err := e.games.FindByID(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, notFoundErr("game %d not found", req.GameID)
	}

	now := e.now()
	if e.policy.GameLocked(game, now) {
		return nil, conflictErr(ReasonPicksLocked)
	}

	if !game.HasTeam(team) {
		return nil, validationErr("team %s is not playing in %s", team, game.Matchup())
	}

	weekGames, err := e.games.FindByWeek(ctx, game.Season, game.Week)
	if err != nil {
		return nil, err
	}
	gamesByID := make(map[int]*models.Game, len(weekGames))
	for _, g := range weekGames {
		gamesByID[g.ID] = g
	}
	gamesByID[game.ID] = game

	if maxValue := weekConfidenceCap(len(gamesByID)); req.ConfidenceValue > maxValue {
		return nil, validationErr("confidence value %d exceeds %d for week %d", req.ConfidenceValue, maxValue, game.Week)
	}

	result := &SubmitResult{}
	err = e.picks.WithinUserWeek(ctx, req.UserID, game.Season, game.Week, func(tx PickTx) error {
		current, err := tx.Picks(ctx)
		if err != nil {
			return err
		}

		var existing *models.Pick
		for _, p := range current {
			if p.GameID == game.ID {
				existing = p
				break
			}
		}

		switch req.Mode {
		case SubmitCreate:
			if existing != nil {
				return duplicateErr("pick for game %d already exists", game.ID)
			}
		case SubmitUpdate:
			if existing == nil {
				return notFoundErr("no pick for game %d", game.ID)
			}
		}

		claims := req.ConfidenceValue > 0 &&
			(existing == nil || existing.ConfidencePoints != req.ConfidenceValue)
		if claims {
			holder := findConfidenceHolder(current, game.ID, req.ConfidenceValue)
			if holder != nil {
				holderGame, err := e.resolveGame(ctx, gamesByID, holder.GameID)
				if err != nil {
					return err
				}
				if holderGame != nil && e.policy.GameLocked(holderGame, now) {
					return conflictErr(ReasonConfidenceCommitted)
				}
				if err := tx.Demote(ctx, holder, req.ConfidenceValue); err != nil {
					return err
				}
				demoted := holder.Clone()
				demoted.ConfidencePoints = 0
				demoted.UpdatedAt = now
				result.Demoted = demoted
			}
		}

		var pick *models.Pick
		if existing != nil {
			pick = existing.Clone()
			pick.PickedTeam = team
			pick.ConfidencePoints = req.ConfidenceValue
			pick.UpdatedAt = now
		} else {
			pick = models.NewPick(req.UserID, game, team, req.ConfidenceValue, now)
		}

		if err := tx.Save(ctx, pick); err != nil {
			return err
		}
		result.Pick = pick
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Demoted != nil {
		e.logger.Infof("User %d: confidence %d moved from game %d to game %d (week %d)",
			req.UserID, req.ConfidenceValue, result.Demoted.GameID, game.ID, game.Week)
	}
	e.logger.Debugf("User %d %s pick game=%d team=%s confidence=%d",
		req.UserID, req.Mode, game.ID, team, req.ConfidenceValue)

	return result, nil
}

// ListPicks returns a user's own picks for a week ordered by kickoff
func (e *ConfidenceEngine) ListPicks(ctx context.Context, userID, season, week int) ([]*models.Pick, error) {
	if week < 1 || week > models.MaxWeek {
		return nil, validationErr("week must be between 1 and %d", models.MaxWeek)
	}

	picks, err := e.picks.FindByUserAndWeek(ctx, userID, season, week)
	if err != nil {
		return nil, err
	}
	games, err := e.games.FindByWeek(ctx, season, week)
	if err != nil {
		return nil, err
	}

	kickoff := make(map[int]time.Time, len(games))
	for _, g := range games {
		kickoff[g.ID] = g.StartTime
	}
	sort.SliceStable(picks, func(i, j int) bool {
		ti, tj := kickoff[picks[i].GameID], kickoff[picks[j].GameID]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return picks[i].GameID < picks[j].GameID
	})

	return picks, nil
}

// GameAvailability is a game plus whether picks on it are still open
type GameAvailability struct {
	*models.Game
	Locked bool `json:"locked"`
}

// ListGames returns the week's games in kickoff order with their lock state
// and the largest confidence value the week allows
func (e *ConfidenceEngine) ListGames(ctx context.Context, season, week int) ([]GameAvailability, int, error) {
	if week < 1 || week > models.MaxWeek {
		return nil, 0, validationErr("week must be between 1 and %d", models.MaxWeek)
	}

	games, err := e.games.FindByWeek(ctx, season, week)
	if err != nil {
		return nil, 0, err
	}

	now := e.now()
	out := make([]GameAvailability, len(games))
	for i, g := range games {
		out[i] = GameAvailability{Game: g, Locked: e.policy.GameLocked(g, now)}
	}
	return out, weekConfidenceCap(len(games)), nil
}

// resolveGame looks a game up in the week map and falls back to the store
// for picks whose game was moved out of the week by the feed
func (e *ConfidenceEngine) resolveGame(ctx context.Context, gamesByID map[int]*models.Game, gameID int) (*models.Game, error) {
	if g, ok := gamesByID[gameID]; ok {
		return g, nil
	}
	return e.games.FindByID(ctx, gameID)
}

// findConfidenceHolder returns the user's other pick currently holding value
func findConfidenceHolder(picks []*models.Pick, excludeGameID, value int) *models.Pick {
	for _, p := range picks {
		if p.GameID != excludeGameID && p.ConfidencePoints == value {
			return p
		}
	}
	return nil
}

// weekConfidenceCap is N: the number of games in the week, capped at MaxConfidence
func weekConfidenceCap(gamesInWeek int) int {
	if gamesInWeek > models.MaxConfidence {
		return models.MaxConfidence
	}
	if gamesInWeek < 1 {
		return 1
	}
	return gamesInWeek
}

func submissionOutcome(mode SubmitMode, err error) string {
	if err == nil {
		if mode == SubmitCreate {
			return "created"
		}
		return "updated"
	}
	switch {
	case isKind(err, ErrValidation):
		return "validation"
	case isKind(err, ErrNotFound):
		return "not_found"
	case isKind(err, ErrConflict):
		return "conflict"
	case isKind(err, ErrDuplicate):
		return "duplicate"
	}
	return "error"
}
