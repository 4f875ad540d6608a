package league

import "time"

// Player is a league member with stats derived from completed games.
// Stats count every game the player's team finished, regardless of partner.
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Venmo     string    `json:"venmo,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`

	GamesPlayed    int `json:"games_played"`
	GamesWon       int `json:"games_won"`
	TotalPoints    int `json:"total_points"`
	GoldenBreaks   int `json:"golden_breaks"`
	EightBallSinks int `json:"eight_ball_sinks"`
}

// WinRate is the win percentage, 0 when no games were played.
func (p Player) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) / float64(p.GamesPlayed) * 100
}

// AvgPoints is points per game, 0 when no games were played.
func (p Player) AvgPoints() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.TotalPoints) / float64(p.GamesPlayed)
}

// Match is a best-of series between two teams. Second player IDs are 0 for
// lone-wolf teams.
type Match struct {
	ID           int64     `json:"id"`
	Team1Player1 int64     `json:"team1_player1_id"`
	Team1Player2 int64     `json:"team1_player2_id,omitempty"`
	Team2Player1 int64     `json:"team2_player1_id"`
	Team2Player2 int64     `json:"team2_player2_id,omitempty"`
	Table        int       `json:"table"`
	BestOf       int       `json:"best_of"`
	IsFinals     bool      `json:"is_finals"`
	Complete     bool      `json:"is_complete"`
	CreatedAt    time.Time `json:"created_at"`
}

// WinsNeeded is the games a team must win to take the match.
func (m Match) WinsNeeded() int { return m.BestOf/2 + 1 }

// Game is one finished or in-progress game inside a match.
type Game struct {
	ID             int64          `json:"id"`
	MatchID        int64          `json:"match_id"`
	GameNum        int            `json:"game_num"`
	Team1Score     int            `json:"team1_score"`
	Team2Score     int            `json:"team2_score"`
	Team1Group     string         `json:"team1_group,omitempty"`
	BallStates     map[int]string `json:"ball_states,omitempty"`
	WinnerTeam     int            `json:"winner_team"`
	GoldenBreak    bool           `json:"golden_break"`
	EarlyEightTeam int            `json:"early_8ball_team"`
	BreakingTeam   int            `json:"breaking_team"`
}

// Streak is a player's consecutive-win record.
type Streak struct {
	PlayerID int64 `json:"player_id"`
	Current  int   `json:"current_win_streak"`
	Max      int   `json:"max_win_streak"`
}

// Unlock is a recorded achievement unlock.
type Unlock struct {
	PlayerID      int64     `json:"player_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// Leaderboard sort keys.
const (
	SortByWins      = "wins"
	SortByWinRate   = "win_rate"
	SortByPoints    = "points"
	SortByAvgPoints = "avg_points"
)
