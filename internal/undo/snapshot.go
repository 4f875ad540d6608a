package undo

// View is the contract a scorecard view must satisfy for snapshot capture and
// restore. It is deliberately explicit: a view missing an aspect fails to
// compile instead of being silently skipped.
type View interface {
	// Canonical state
	BallStates() map[int]string
	SetBallStates(states map[int]string)
	TeamOneGroup() string
	SetTeamOneGroup(group string)
	Scores() (team1, team2 int)
	SetScores(team1, team2 int)
	ShootingTeam() int
	SetShootingTeam(team int)
	Outcome() (winner int, goldenBreak bool)
	SetOutcome(winner int, goldenBreak bool)

	// RefreshDisplay recomputes the view's derived/display state after a
	// restore. The snapshot never renders anything itself.
	RefreshDisplay()
}

// Snapshot is a full copy of mutable game state, usable to restore a view
// exactly. It owns its copies and never aliases the view's containers.
type Snapshot struct {
	BallStates   map[int]string `json:"ball_states"`
	Team1Score   int            `json:"team1_score"`
	Team2Score   int            `json:"team2_score"`
	TeamOneGroup string         `json:"team1_group,omitempty"`
	ShootingTeam int            `json:"shooting_team"`
	GameComplete bool           `json:"game_complete"`
	WinnerTeam   int            `json:"winner_team"`
	GoldenBreak  bool           `json:"golden_break"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		BallStates:   make(map[int]string),
		ShootingTeam: 1,
	}
}

// Capture copies the current game state out of the view. Returns the snapshot
// for chained construction.
func (s *Snapshot) Capture(view View) *Snapshot {
	s.BallStates = copyBallStates(view.BallStates())
	s.TeamOneGroup = view.TeamOneGroup()
	s.Team1Score, s.Team2Score = view.Scores()
	s.ShootingTeam = view.ShootingTeam()
	s.WinnerTeam, s.GoldenBreak = view.Outcome()
	s.GameComplete = s.WinnerTeam > 0
	return s
}

// Restore writes the stored state back into the view, then asks the view to
// refresh its derived display state.
func (s *Snapshot) Restore(view View) {
	view.SetBallStates(copyBallStates(s.BallStates))
	view.SetTeamOneGroup(s.TeamOneGroup)
	view.SetScores(s.Team1Score, s.Team2Score)
	view.SetShootingTeam(s.ShootingTeam)
	view.SetOutcome(s.WinnerTeam, s.GoldenBreak)
	view.RefreshDisplay()
}

// Clone returns an independent copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.BallStates = copyBallStates(s.BallStates)
	return &c
}

func copyBallStates(src map[int]string) map[int]string {
	dst := make(map[int]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
