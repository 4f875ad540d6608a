package undo

import "fmt"

// Recorder is a scorecard specialization of Manager that pre-builds payloads
// for the recognized action kinds. Pure payload shaping, no new control flow.
type Recorder struct {
	*Manager
}

const scorecardMaxHistory = 100

func NewRecorder(opts ...Option) *Recorder {
	base := []Option{WithMaxHistory(scorecardMaxHistory)}
	return &Recorder{Manager: NewManager(append(base, opts...)...)}
}

// RecordBallPocket records pocketing a ball, with the pre-image ball state
// and both team scores.
func (r *Recorder) RecordBallPocket(ballNum, team int, prevBallState string, prevTeam1Score, prevTeam2Score int) Action {
	return r.RecordAction(
		KindPocketBall,
		map[string]any{
			"ball_num":             ballNum,
			"team":                 team,
			"previous_ball_state":  prevBallState,
			"previous_team1_score": prevTeam1Score,
			"previous_team2_score": prevTeam2Score,
		},
		fmt.Sprintf("Pocket ball %d for Team %d", ballNum, team),
	)
}

// RecordGroupSet records a solids/stripes assignment for team 1.
func (r *Recorder) RecordGroupSet(group, previousGroup string) Action {
	return r.RecordAction(
		KindSetGroup,
		map[string]any{
			"new_group":      group,
			"previous_group": previousGroup,
		},
		fmt.Sprintf("Set Team 1 to %s", group),
	)
}

// RecordGoldenBreak records a golden break for a team.
func (r *Recorder) RecordGoldenBreak(team int, prev *Snapshot) Action {
	return r.RecordAction(
		KindGoldenBreak,
		map[string]any{
			"team":           team,
			"previous_state": prev,
		},
		fmt.Sprintf("Golden break for Team %d", team),
	)
}

// RecordEarlyEightBall records an early 8-ball foul by a team.
func (r *Recorder) RecordEarlyEightBall(team int, prev *Snapshot) Action {
	return r.RecordAction(
		KindEarlyEightBall,
		map[string]any{
			"team":           team,
			"previous_state": prev,
		},
		fmt.Sprintf("Team %d early 8-ball (Team %d wins)", team, 3-team),
	)
}

// RecordDeclareWinner records declaring a winner.
func (r *Recorder) RecordDeclareWinner(team int, prev *Snapshot) Action {
	return r.RecordAction(
		KindDeclareWinner,
		map[string]any{
			"team":           team,
			"previous_state": prev,
		},
		fmt.Sprintf("Declare Team %d winner", team),
	)
}
