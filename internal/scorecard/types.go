package scorecard

import "time"

// Ball states as stored per ball number (1-15).
const (
	BallOnTable       = "table"
	BallPocketedTeam1 = "pocketed_team1"
	BallPocketedTeam2 = "pocketed_team2"
)

// Group is team 1's assigned ball group. Team 2 implicitly has the other.
type Group string

const (
	GroupNone    Group = ""
	GroupSolids  Group = "solids"
	GroupStripes Group = "stripes"
)

// Scoring rules for the league's 8-ball variant.
const (
	BallPoints       = 1
	EightBallPoints  = 3
	GoldenBreakScore = 17
	EarlyEightScore  = 10
)

// GameState is the serializable state of one game on one table. It is what
// gets persisted to Redis and published to the spectator overlay.
type GameState struct {
	SessionID string `json:"session_id"`
	Table     int    `json:"table"`
	MatchID   int64  `json:"match_id,omitempty"`
	GameNum   int    `json:"game_num"`

	Team1Name string `json:"team1_name"`
	Team2Name string `json:"team2_name"`

	BallStates   map[int]string `json:"ball_states"`
	Team1Score   int            `json:"team1_score"`
	Team2Score   int            `json:"team2_score"`
	TeamOneGroup Group          `json:"team1_group,omitempty"`
	ShootingTeam int            `json:"shooting_team"`

	WinnerTeam     int  `json:"winner_team,omitempty"`
	GoldenBreak    bool `json:"golden_break,omitempty"`
	EarlyEightTeam int  `json:"early_8ball_team,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Derived, for rendering "Undo: <description>" controls.
	CanUndo   bool   `json:"can_undo"`
	CanRedo   bool   `json:"can_redo"`
	UndoLabel string `json:"undo_label,omitempty"`
	RedoLabel string `json:"redo_label,omitempty"`
}

// Complete reports whether the game has a declared winner.
func (g GameState) Complete() bool { return g.WinnerTeam > 0 }

// Errors
var (
	ErrInvalidBall    = errf("ball number must be 1-15")
	ErrInvalidTeam    = errf("team must be 1 or 2")
	ErrInvalidGroup   = errf("group must be solids or stripes")
	ErrBallNotOnTable = errf("ball is not on the table")
	ErrBallOnTable    = errf("ball is already on the table")
	ErrGameComplete   = errf("game already has a winner")
	ErrTableBusy      = errf("table already has an active session")
	ErrNoSession      = errf("no active session on this table")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
