package achievements

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ecopool/league-server/internal/league"
	"github.com/ecopool/league-server/internal/obslog"
	"go.uber.org/zap"
)

// matchScanLimit bounds the history walked for the special achievements.
const matchScanLimit = 1000

// Status is one achievement's state for a player.
type Status struct {
	Achievement     Achievement `json:"achievement"`
	Unlocked        bool        `json:"unlocked"`
	UnlockedAt      time.Time   `json:"unlocked_at,omitempty"`
	Progress        int         `json:"progress"`
	ProgressPercent int         `json:"progress_percent"`
}

// Standing is one row of the achievement-points leaderboard.
type Standing struct {
	Player            league.Player `json:"player"`
	AchievementPoints int           `json:"achievement_points"`
	Unlocked          int           `json:"achievements_unlocked"`
	Total             int           `json:"achievements_total"`
}

// Manager checks player stats against the catalog and records unlocks.
type Manager struct {
	repo league.Repository

	mu        sync.Mutex
	callbacks []func(playerID int64, a Achievement)
}

func NewManager(repo league.Repository) *Manager {
	return &Manager{repo: repo}
}

// OnUnlock registers a callback fired for each new unlock. Panics in the
// callback are recovered and logged.
func (m *Manager) OnUnlock(fn func(playerID int64, a Achievement)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

func (m *Manager) notify(playerID int64, a Achievement) {
	m.mu.Lock()
	cbs := make([]func(int64, Achievement), len(m.callbacks))
	copy(cbs, m.callbacks)
	m.mu.Unlock()

	for _, fn := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					obslog.L().Error("achievement_callback_panic",
						zap.Int64("player_id", playerID),
						zap.String("achievement_id", a.ID),
						zap.Any("panic", r),
					)
				}
			}()
			fn(playerID, a)
		}()
	}
}

// PlayerAchievements returns catalog order with unlock state and progress.
func (m *Manager) PlayerAchievements(ctx context.Context, playerID int64) ([]Status, error) {
	player, err := m.repo.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	unlocks, err := m.repo.Unlocks(ctx, playerID)
	if err != nil {
		return nil, err
	}
	unlockedAt := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}

	out := make([]Status, 0, len(Catalog))
	for _, a := range Catalog {
		progress, err := m.progress(ctx, player, a)
		if err != nil {
			return nil, err
		}
		at, unlocked := unlockedAt[a.ID]
		pct := 0
		if a.Requirement > 0 {
			pct = progress * 100 / a.Requirement
			if pct > 100 {
				pct = 100
			}
		}
		out = append(out, Status{
			Achievement:     a,
			Unlocked:        unlocked,
			UnlockedAt:      at,
			Progress:        progress,
			ProgressPercent: pct,
		})
	}
	return out, nil
}

// CheckAndUnlock evaluates every achievement and records the ones newly
// earned, returning them in catalog order.
func (m *Manager) CheckAndUnlock(ctx context.Context, playerID int64) ([]Achievement, error) {
	player, err := m.repo.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var newly []Achievement
	for _, a := range Catalog {
		progress, err := m.progress(ctx, player, a)
		if err != nil {
			return nil, err
		}
		if progress < a.Requirement {
			continue
		}
		fresh, err := m.repo.RecordUnlock(ctx, playerID, a.ID)
		if err != nil {
			return nil, err
		}
		if !fresh {
			continue
		}
		newly = append(newly, a)
		obslog.L().Info("achievement_unlocked",
			zap.Int64("player_id", playerID),
			zap.String("achievement_id", a.ID),
			zap.String("tier", a.Tier),
		)
		m.notify(playerID, a)
	}
	return newly, nil
}

// UpdateStreak records a game result into the player's win streak.
func (m *Manager) UpdateStreak(ctx context.Context, playerID int64, won bool) error {
	s, err := m.repo.Streak(ctx, playerID)
	if err != nil {
		return err
	}
	if won {
		s.Current++
		if s.Current > s.Max {
			s.Max = s.Current
		}
	} else {
		s.Current = 0
	}
	s.PlayerID = playerID
	return m.repo.SaveStreak(ctx, s)
}

// TotalPoints sums the points of a player's unlocked achievements.
func (m *Manager) TotalPoints(ctx context.Context, playerID int64) (int, error) {
	unlocks, err := m.repo.Unlocks(ctx, playerID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, u := range unlocks {
		if a, ok := ByID[u.AchievementID]; ok {
			total += a.Points
		}
	}
	return total, nil
}

// Leaderboard ranks active players by achievement points, then unlock count.
func (m *Manager) Leaderboard(ctx context.Context) ([]Standing, error) {
	players, err := m.repo.Players(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]Standing, 0, len(players))
	for _, p := range players {
		unlocks, err := m.repo.Unlocks(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		points := 0
		for _, u := range unlocks {
			if a, ok := ByID[u.AchievementID]; ok {
				points += a.Points
			}
		}
		out = append(out, Standing{
			Player:            p,
			AchievementPoints: points,
			Unlocked:          len(unlocks),
			Total:             len(Catalog),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AchievementPoints != out[j].AchievementPoints {
			return out[i].AchievementPoints > out[j].AchievementPoints
		}
		return out[i].Unlocked > out[j].Unlocked
	})
	return out, nil
}

func (m *Manager) progress(ctx context.Context, p league.Player, a Achievement) (int, error) {
	switch a.RequirementType {
	case ReqGamesPlayed:
		return p.GamesPlayed, nil
	case ReqGamesWon:
		return p.GamesWon, nil
	case ReqGoldenBreaks:
		return p.GoldenBreaks, nil
	case ReqEightBallSinks:
		return p.EightBallSinks, nil
	case ReqTotalPoints:
		return p.TotalPoints, nil
	case ReqWinStreak:
		s, err := m.repo.Streak(ctx, p.ID)
		if err != nil {
			return 0, err
		}
		return s.Max, nil
	case "comeback_win":
		return m.comebackWins(ctx, p.ID)
	case "partner_wins":
		return m.bestPartnerWins(ctx, p.ID)
	}
	if strings.HasPrefix(a.RequirementType, reqWinRatePrefix) {
		minGames, err := strconv.Atoi(strings.TrimPrefix(a.RequirementType, reqWinRatePrefix))
		if err != nil {
			return 0, nil
		}
		if p.GamesPlayed >= minGames {
			return int(p.WinRate()), nil
		}
		return 0, nil
	}
	return 0, nil
}

// comebackWins counts completed matches the player's team won after losing
// the first game.
func (m *Manager) comebackWins(ctx context.Context, playerID int64) (int, error) {
	matches, err := m.repo.Matches(ctx, matchScanLimit)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, match := range matches {
		if !match.Complete {
			continue
		}
		team := teamOf(match, playerID)
		if team == 0 {
			continue
		}
		games, err := m.repo.GamesForMatch(ctx, match.ID)
		if err != nil {
			return 0, err
		}
		if len(games) == 0 || games[0].WinnerTeam == 0 || games[0].WinnerTeam == team {
			continue
		}
		wins := 0
		for _, g := range games {
			if g.WinnerTeam == team {
				wins++
			}
		}
		if wins >= match.WinsNeeded() {
			count++
		}
	}
	return count, nil
}

// bestPartnerWins is the player's highest win count with a single partner.
func (m *Manager) bestPartnerWins(ctx context.Context, playerID int64) (int, error) {
	matches, err := m.repo.Matches(ctx, matchScanLimit)
	if err != nil {
		return 0, err
	}
	wins := make(map[int64]int)
	for _, match := range matches {
		team := teamOf(match, playerID)
		if team == 0 {
			continue
		}
		partner := partnerOf(match, playerID, team)
		if partner == 0 {
			continue
		}
		games, err := m.repo.GamesForMatch(ctx, match.ID)
		if err != nil {
			return 0, err
		}
		for _, g := range games {
			if g.WinnerTeam == team {
				wins[partner]++
			}
		}
	}
	best := 0
	for _, n := range wins {
		if n > best {
			best = n
		}
	}
	return best, nil
}

func teamOf(m league.Match, playerID int64) int {
	switch playerID {
	case m.Team1Player1, m.Team1Player2:
		return 1
	case m.Team2Player1, m.Team2Player2:
		return 2
	}
	return 0
}

func partnerOf(m league.Match, playerID int64, team int) int64 {
	if team == 1 {
		if m.Team1Player1 == playerID {
			return m.Team1Player2
		}
		return m.Team1Player1
	}
	if m.Team2Player1 == playerID {
		return m.Team2Player2
	}
	return m.Team2Player1
}
