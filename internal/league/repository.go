package league

import (
	"context"
	"sort"
)

// Errors
var (
	ErrNotFound  = errf("not found")
	ErrNameTaken = errf("player name already exists")
	ErrEmptyName = errf("player name must not be empty")
	ErrBadMatch   = errf("match needs one player per team")
	ErrBadSortKey = errf("unknown leaderboard sort key")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Repository persists players, matches, games, streaks, and achievement
// unlocks. Player stats are derived from finished games on read.
type Repository interface {
	CreatePlayer(ctx context.Context, name, email, venmo string) (int64, error)
	UpdatePlayer(ctx context.Context, id int64, name, email, venmo string) error
	DeactivatePlayer(ctx context.Context, id int64) error
	Player(ctx context.Context, id int64) (Player, error)
	Players(ctx context.Context, activeOnly bool) ([]Player, error)

	CreateMatch(ctx context.Context, m Match) (int64, error)
	Match(ctx context.Context, id int64) (Match, error)
	Matches(ctx context.Context, limit int) ([]Match, error)
	CompleteMatch(ctx context.Context, id int64) error

	// CreateGame reserves a game row before play; calling it again for the
	// same (match, game number) only updates the breaking team.
	CreateGame(ctx context.Context, matchID int64, gameNum, breakingTeam int) (int64, error)
	// SaveGame upserts the full game state keyed by (match, game number).
	SaveGame(ctx context.Context, g Game) error
	GamesForMatch(ctx context.Context, matchID int64) ([]Game, error)

	Streak(ctx context.Context, playerID int64) (Streak, error)
	SaveStreak(ctx context.Context, s Streak) error

	Unlocks(ctx context.Context, playerID int64) ([]Unlock, error)
	// RecordUnlock returns false when the achievement was already unlocked.
	RecordUnlock(ctx context.Context, playerID int64, achievementID string) (bool, error)

	Close() error
}

// Leaderboard sorts players by the given key, ties broken like the original
// league rankings.
func Leaderboard(players []Player, sortBy string) ([]Player, error) {
	out := make([]Player, len(players))
	copy(out, players)

	switch sortBy {
	case SortByWins, "":
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].GamesWon != out[j].GamesWon {
				return out[i].GamesWon > out[j].GamesWon
			}
			return out[i].WinRate() > out[j].WinRate()
		})
	case SortByWinRate:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].WinRate() != out[j].WinRate() {
				return out[i].WinRate() > out[j].WinRate()
			}
			return out[i].GamesWon > out[j].GamesWon
		})
	case SortByPoints:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].TotalPoints != out[j].TotalPoints {
				return out[i].TotalPoints > out[j].TotalPoints
			}
			return out[i].GamesWon > out[j].GamesWon
		})
	case SortByAvgPoints:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].AvgPoints() != out[j].AvgPoints() {
				return out[i].AvgPoints() > out[j].AvgPoints()
			}
			return out[i].GamesWon > out[j].GamesWon
		})
	default:
		return nil, ErrBadSortKey
	}
	return out, nil
}

// accumulateStats folds one finished game into each participating player's
// stats. Golden breaks credit the breaking team; a legal 8-ball sink is a win
// that was neither a golden break nor an early 8-ball forfeit.
func accumulateStats(byID map[int64]*Player, m Match, g Game) {
	if g.WinnerTeam == 0 {
		return
	}
	apply := func(pid int64, team int) {
		if pid == 0 {
			return
		}
		p, ok := byID[pid]
		if !ok {
			return
		}
		p.GamesPlayed++
		if team == 1 {
			p.TotalPoints += g.Team1Score
		} else {
			p.TotalPoints += g.Team2Score
		}
		if g.WinnerTeam == team {
			p.GamesWon++
			if !g.GoldenBreak && g.EarlyEightTeam == 0 {
				p.EightBallSinks++
			}
		}
		if g.GoldenBreak && g.BreakingTeam == team {
			p.GoldenBreaks++
		}
	}
	apply(m.Team1Player1, 1)
	apply(m.Team1Player2, 1)
	apply(m.Team2Player1, 2)
	apply(m.Team2Player2, 2)
}
