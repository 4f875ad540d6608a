// Package leaguedto holds the JSON shapes shared by the overlay API, the
// WebSocket feed, and the leaguecheck probe.
package leaguedto

import "time"

// Scoreboard is the full overlay state. Version increases on every change so
// clients can drop stale frames.
type Scoreboard struct {
	LeagueName string       `json:"league_name"`
	Version    uint64       `json:"version"`
	Tables     []TableState `json:"tables"`
	Reactions  []Reaction   `json:"reactions"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableState mirrors one scorecard session.
type TableState struct {
	SessionID    string         `json:"session_id"`
	Table        int            `json:"table"`
	MatchID      int64          `json:"match_id,omitempty"`
	GameNum      int            `json:"game_num"`
	Team1Name    string         `json:"team1_name"`
	Team2Name    string         `json:"team2_name"`
	Team1Score   int            `json:"team1_score"`
	Team2Score   int            `json:"team2_score"`
	Team1Group   string         `json:"team1_group,omitempty"`
	BallStates   map[int]string `json:"ball_states"`
	ShootingTeam int            `json:"shooting_team"`
	WinnerTeam   int            `json:"winner_team,omitempty"`
	GoldenBreak  bool           `json:"golden_break,omitempty"`
	CanUndo      bool           `json:"can_undo"`
	CanRedo      bool           `json:"can_redo"`
	UndoLabel    string         `json:"undo_label,omitempty"`
	RedoLabel    string         `json:"redo_label,omitempty"`
}

// Reaction is a spectator reaction as shown on the overlay.
type Reaction struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Emoji     string    `json:"emoji"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is one WebSocket frame.
type Event struct {
	Kind       string      `json:"kind"` // "scoreboard" or "reaction"
	Scoreboard *Scoreboard `json:"scoreboard,omitempty"`
	Reaction   *Reaction   `json:"reaction,omitempty"`
}

// Error is the JSON error envelope of the HTTP API.
type Error struct {
	Error string `json:"error"`
}

// PostReactionRequest is the body of POST /api/reactions.
type PostReactionRequest struct {
	Type   string `json:"type"`
	Sender string `json:"sender"`
}

// ScorecardOpRequest is the body of the scorecard mutation endpoints.
type ScorecardOpRequest struct {
	Ball  int    `json:"ball,omitempty"`
	Team  int    `json:"team,omitempty"`
	Group string `json:"group,omitempty"`
}

// StartSessionRequest is the body of POST /api/tables/{n}/session.
// BreakingTeam defaults to team 1 for match games.
type StartSessionRequest struct {
	MatchID      int64  `json:"match_id,omitempty"`
	GameNum      int    `json:"game_num"`
	Team1Name    string `json:"team1_name"`
	Team2Name    string `json:"team2_name"`
	BreakingTeam int    `json:"breaking_team,omitempty"`
}

// CreateMatchRequest is the body of POST /api/matches. Second player IDs are
// omitted for lone-wolf teams; best_of falls back to the server default.
type CreateMatchRequest struct {
	Team1Player1ID int64 `json:"team1_player1_id"`
	Team1Player2ID int64 `json:"team1_player2_id,omitempty"`
	Team2Player1ID int64 `json:"team2_player1_id"`
	Team2Player2ID int64 `json:"team2_player2_id,omitempty"`
	Table          int   `json:"table"`
	BestOf         int   `json:"best_of,omitempty"`
	IsFinals       bool  `json:"is_finals,omitempty"`
}

// CreatePlayerRequest is the body of POST /api/players.
type CreatePlayerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Venmo string `json:"venmo"`
}
