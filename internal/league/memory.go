package league

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for development and tests.
// It mirrors PostgresRepository semantics, including derived stats.
type MemoryRepository struct {
	mu sync.Mutex

	nextPlayerID int64
	nextMatchID  int64
	nextGameID   int64

	players map[int64]*Player
	matches map[int64]*Match
	games   map[int64]*Game
	streaks map[int64]Streak
	unlocks map[int64]map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		players: make(map[int64]*Player),
		matches: make(map[int64]*Match),
		games:   make(map[int64]*Game),
		streaks: make(map[int64]Streak),
		unlocks: make(map[int64]map[string]time.Time),
	}
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) CreatePlayer(ctx context.Context, name, email, venmo string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return 0, ErrNameTaken
		}
	}
	r.nextPlayerID++
	id := r.nextPlayerID
	r.players[id] = &Player{
		ID:        id,
		Name:      name,
		Email:     strings.TrimSpace(email),
		Venmo:     strings.TrimSpace(venmo),
		Active:    true,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (r *MemoryRepository) UpdatePlayer(ctx context.Context, id int64, name, email, venmo string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return ErrNotFound
	}
	p.Name = name
	p.Email = strings.TrimSpace(email)
	p.Venmo = strings.TrimSpace(venmo)
	return nil
}

func (r *MemoryRepository) DeactivatePlayer(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	return nil
}

func (r *MemoryRepository) Player(ctx context.Context, id int64) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return Player{}, ErrNotFound
	}
	out := *p
	byID := map[int64]*Player{id: &out}
	r.foldStatsLocked(byID)
	return out, nil
}

func (r *MemoryRepository) Players(ctx context.Context, activeOnly bool) ([]Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var players []Player
	for _, p := range r.players {
		if activeOnly && !p.Active {
			continue
		}
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

	byID := make(map[int64]*Player, len(players))
	for i := range players {
		byID[players[i].ID] = &players[i]
	}
	r.foldStatsLocked(byID)
	return players, nil
}

func (r *MemoryRepository) foldStatsLocked(byID map[int64]*Player) {
	for _, g := range r.games {
		m, ok := r.matches[g.MatchID]
		if !ok {
			continue
		}
		accumulateStats(byID, *m, *g)
	}
}

func (r *MemoryRepository) CreateMatch(ctx context.Context, m Match) (int64, error) {
	if m.Team1Player1 == 0 || m.Team2Player1 == 0 {
		return 0, ErrBadMatch
	}
	if m.BestOf <= 0 {
		m.BestOf = 3
	}
	if m.Table <= 0 {
		m.Table = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextMatchID++
	m.ID = r.nextMatchID
	m.CreatedAt = time.Now()
	m.Complete = false
	r.matches[m.ID] = &m
	return m.ID, nil
}

func (r *MemoryRepository) Match(ctx context.Context, id int64) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	return *m, nil
}

func (r *MemoryRepository) Matches(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) CompleteMatch(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[id]
	if !ok {
		return ErrNotFound
	}
	m.Complete = true
	return nil
}

func (r *MemoryRepository) CreateGame(ctx context.Context, matchID int64, gameNum, breakingTeam int) (int64, error) {
	if breakingTeam != 2 {
		breakingTeam = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[matchID]; !ok {
		return 0, ErrNotFound
	}
	for id, g := range r.games {
		if g.MatchID == matchID && g.GameNum == gameNum {
			g.BreakingTeam = breakingTeam
			return id, nil
		}
	}
	r.nextGameID++
	id := r.nextGameID
	r.games[id] = &Game{
		ID:           id,
		MatchID:      matchID,
		GameNum:      gameNum,
		BreakingTeam: breakingTeam,
	}
	return id, nil
}

func (r *MemoryRepository) SaveGame(ctx context.Context, g Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[g.MatchID]; !ok {
		return ErrNotFound
	}
	balls := make(map[int]string, len(g.BallStates))
	for k, v := range g.BallStates {
		balls[k] = v
	}
	g.BallStates = balls

	for id, existing := range r.games {
		if existing.MatchID == g.MatchID && existing.GameNum == g.GameNum {
			g.ID = id
			r.games[id] = &g
			return nil
		}
	}
	r.nextGameID++
	g.ID = r.nextGameID
	r.games[g.ID] = &g
	return nil
}

func (r *MemoryRepository) GamesForMatch(ctx context.Context, matchID int64) ([]Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Game
	for _, g := range r.games {
		if g.MatchID == matchID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameNum < out[j].GameNum })
	return out, nil
}

func (r *MemoryRepository) Streak(ctx context.Context, playerID int64) (Streak, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streaks[playerID]; ok {
		return s, nil
	}
	return Streak{PlayerID: playerID}, nil
}

func (r *MemoryRepository) SaveStreak(ctx context.Context, s Streak) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streaks[s.PlayerID] = s
	return nil
}

func (r *MemoryRepository) Unlocks(ctx context.Context, playerID int64) ([]Unlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Unlock
	for aid, at := range r.unlocks[playerID] {
		out = append(out, Unlock{PlayerID: playerID, AchievementID: aid, UnlockedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}

func (r *MemoryRepository) RecordUnlock(ctx context.Context, playerID int64, achievementID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byAch, ok := r.unlocks[playerID]
	if !ok {
		byAch = make(map[string]time.Time)
		r.unlocks[playerID] = byAch
	}
	if _, done := byAch[achievementID]; done {
		return false, nil
	}
	byAch[achievementID] = time.Now()
	return true, nil
}

var _ Repository = (*MemoryRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)
