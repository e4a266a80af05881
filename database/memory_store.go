package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"confidence-pickem/models"
	"confidence-pickem/services"
)

// The in-memory stores back demo mode and tests. They follow the same
// contracts as the Mongo repositories, including nil results for misses.

// MemoryGameStore implements services.GameStore in memory
type MemoryGameStore struct {
	mu    sync.RWMutex
	games map[int]*models.Game
}

// NewMemoryGameStore creates a game store seeded with games
func NewMemoryGameStore(games ...*models.Game) *MemoryGameStore {
	s := &MemoryGameStore{games: make(map[int]*models.Game)}
	for _, g := range games {
		c := *g
		s.games[g.ID] = &c
	}
	return s
}

func (s *MemoryGameStore) FindByID(_ context.Context, gameID int) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[gameID]
	if !ok {
		return nil, nil
	}
	c := *g
	return &c, nil
}

func (s *MemoryGameStore) FindByWeek(_ context.Context, season, week int) ([]*models.Game, error) {
	return s.filter(func(g *models.Game) bool { return g.Season == season && g.Week == week }), nil
}

func (s *MemoryGameStore) FindBySeason(_ context.Context, season int) ([]*models.Game, error) {
	return s.filter(func(g *models.Game) bool { return g.Season == season }), nil
}

func (s *MemoryGameStore) Upsert(_ context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *game
	s.games[game.ID] = &c
	return nil
}

func (s *MemoryGameStore) filter(keep func(*models.Game) bool) []*models.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Game
	for _, g := range s.games {
		if keep(g) {
			c := *g
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type pickKey struct {
	userID int
	gameID int
}

type userWeekKey struct {
	userID int
	season int
	week   int
}

// MemoryPickStore implements services.PickStore in memory. Units of work
// for the same user-week are serialized; writes are staged and applied
// only when the unit succeeds.
type MemoryPickStore struct {
	mu    sync.RWMutex
	picks map[pickKey]*models.Pick
	locks map[userWeekKey]*sync.Mutex
	now   func() time.Time
}

// NewMemoryPickStore creates an empty pick store
func NewMemoryPickStore() *MemoryPickStore {
	return &MemoryPickStore{
		picks: make(map[pickKey]*models.Pick),
		locks: make(map[userWeekKey]*sync.Mutex),
		now:   time.Now,
	}
}

func (s *MemoryPickStore) FindByUserAndWeek(_ context.Context, userID, season, week int) ([]*models.Pick, error) {
	return s.filter(func(p *models.Pick) bool {
		return p.UserID == userID && p.Season == season && p.Week == week
	}), nil
}

func (s *MemoryPickStore) FindByWeek(_ context.Context, season, week int) ([]*models.Pick, error) {
	return s.filter(func(p *models.Pick) bool { return p.Season == season && p.Week == week }), nil
}

func (s *MemoryPickStore) FindByGame(_ context.Context, gameID int) ([]*models.Pick, error) {
	return s.filter(func(p *models.Pick) bool { return p.GameID == gameID }), nil
}

func (s *MemoryPickStore) filter(keep func(*models.Pick) bool) []*models.Pick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Pick
	for _, p := range s.picks {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sortPicks(out)
	return out
}

func (s *MemoryPickStore) userWeekLock(key userWeekKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *MemoryPickStore) WithinUserWeek(ctx context.Context, userID, season, week int, fn func(tx services.PickTx) error) error {
	key := userWeekKey{userID: userID, season: season, week: week}
	l := s.userWeekLock(key)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	base, err := s.FindByUserAndWeek(ctx, userID, season, week)
	if err != nil {
		return err
	}
	tx := &memoryPickTx{
		key:    key,
		now:    s.now,
		base:   make(map[int]*models.Pick, len(base)),
		staged: make(map[int]*models.Pick),
	}
	for _, p := range base {
		tx.base[p.GameID] = p
	}

	if err := fn(tx); err != nil {
		return err
	}
	return s.apply(tx)
}

// apply commits staged writes after checking that no positive confidence
// value would end up held twice
func (s *MemoryPickStore) apply(tx *memoryPickTx) error {
	merged := tx.view()
	seen := make(map[int]int, len(merged))
	for _, p := range merged {
		if !p.IsComplete() {
			continue
		}
		if other, dup := seen[p.ConfidencePoints]; dup {
			return fmt.Errorf("confidence %d held by games %d and %d: %w",
				p.ConfidencePoints, other, p.GameID, services.ErrConcurrentUpdate)
		}
		seen[p.ConfidencePoints] = p.GameID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range tx.staged {
		s.picks[pickKey{userID: p.UserID, gameID: p.GameID}] = p.Clone()
	}
	return nil
}

type memoryPickTx struct {
	key    userWeekKey
	now    func() time.Time
	base   map[int]*models.Pick
	staged map[int]*models.Pick
}

func (t *memoryPickTx) view() []*models.Pick {
	out := make([]*models.Pick, 0, len(t.base)+len(t.staged))
	for id, p := range t.base {
		if _, ok := t.staged[id]; !ok {
			out = append(out, p.Clone())
		}
	}
	for _, p := range t.staged {
		out = append(out, p.Clone())
	}
	sortPicks(out)
	return out
}

func (t *memoryPickTx) current(gameID int) *models.Pick {
	if p, ok := t.staged[gameID]; ok {
		return p
	}
	return t.base[gameID]
}

func (t *memoryPickTx) Picks(context.Context) ([]*models.Pick, error) {
	return t.view(), nil
}

func (t *memoryPickTx) Demote(_ context.Context, pick *models.Pick, expected int) error {
	cur := t.current(pick.GameID)
	if cur == nil || cur.ConfidencePoints != expected {
		return fmt.Errorf("pick for game %d no longer holds %d: %w", pick.GameID, expected, services.ErrConcurrentUpdate)
	}
	demoted := cur.Clone()
	demoted.ConfidencePoints = 0
	demoted.UpdatedAt = t.now()
	t.staged[pick.GameID] = demoted
	return nil
}

func (t *memoryPickTx) Save(_ context.Context, pick *models.Pick) error {
	if pick.UserID != t.key.userID || pick.Season != t.key.season || pick.Week != t.key.week {
		return fmt.Errorf("pick for user %d week %d saved outside its unit", pick.UserID, pick.Week)
	}
	t.staged[pick.GameID] = pick.Clone()
	return nil
}

func sortPicks(picks []*models.Pick) {
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].UserID != picks[j].UserID {
			return picks[i].UserID < picks[j].UserID
		}
		return picks[i].GameID < picks[j].GameID
	})
}

type scoreKey struct {
	userID int
	week   int
	season int
}

// MemoryScoreStore implements services.ScoreStore in memory
type MemoryScoreStore struct {
	mu     sync.RWMutex
	scores map[scoreKey]*models.WeeklyScore
}

// NewMemoryScoreStore creates an empty score store
func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{scores: make(map[scoreKey]*models.WeeklyScore)}
}

func (s *MemoryScoreStore) Upsert(_ context.Context, score *models.WeeklyScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *score
	s.scores[scoreKey{userID: score.UserID, week: score.Week, season: score.Season}] = &c
	return nil
}

func (s *MemoryScoreStore) FindBySeasonWeek(_ context.Context, season, week int) ([]*models.WeeklyScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.WeeklyScore
	for k, v := range s.scores {
		if k.season == season && k.week == week {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// MemoryUserStore implements services.UserRepository in memory
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[int]*models.User
	nextID int
}

// NewMemoryUserStore creates an empty user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[int]*models.User), nextID: 1}
}

func (s *MemoryUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (s *MemoryUserStore) GetUserByID(_ context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (s *MemoryUserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user %s already exists", user.Email)
		}
	}
	if user.ID == 0 {
		user.ID = s.nextID
	}
	if user.ID >= s.nextID {
		s.nextID = user.ID + 1
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *MemoryUserStore) GetAllUsers(context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
