package scorecard

import (
	"strings"
	"sync"
	"time"

	"github.com/ecopool/league-server/internal/obslog"
	"github.com/ecopool/league-server/internal/undo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// gameView holds the canonical mutable game state and satisfies undo.View so
// snapshots can capture and restore it. Sessions keep it private; all access
// goes through Session methods under the session lock.
type gameView struct {
	balls    map[int]string
	group    Group
	t1Score  int
	t2Score  int
	shooting int
	winner   int
	golden   bool

	refresh func()
}

func newGameView(refresh func()) *gameView {
	balls := make(map[int]string, 15)
	for i := 1; i <= 15; i++ {
		balls[i] = BallOnTable
	}
	return &gameView{balls: balls, shooting: 1, refresh: refresh}
}

func (v *gameView) BallStates() map[int]string {
	out := make(map[int]string, len(v.balls))
	for k, s := range v.balls {
		out[k] = s
	}
	return out
}

func (v *gameView) SetBallStates(states map[int]string) {
	v.balls = make(map[int]string, len(states))
	for k, s := range states {
		v.balls[k] = s
	}
}

func (v *gameView) TeamOneGroup() string         { return string(v.group) }
func (v *gameView) SetTeamOneGroup(group string) { v.group = Group(group) }
func (v *gameView) Scores() (int, int)           { return v.t1Score, v.t2Score }
func (v *gameView) SetScores(t1, t2 int)         { v.t1Score, v.t2Score = t1, t2 }
func (v *gameView) ShootingTeam() int            { return v.shooting }
func (v *gameView) SetShootingTeam(team int)     { v.shooting = team }
func (v *gameView) Outcome() (int, bool)         { return v.winner, v.golden }
func (v *gameView) SetOutcome(w int, g bool)     { v.winner, v.golden = w, g }
func (v *gameView) RefreshDisplay() {
	if v.refresh != nil {
		v.refresh()
	}
}

// Session scores one live game on one table. It owns the undo recorder and is
// the "owning view" that applies action inverses; the recorder itself never
// interprets payloads.
type Session struct {
	mu sync.Mutex

	id        string
	table     int
	matchID   int64
	gameNum   int
	team1Name string
	team2Name string

	view       *gameView
	earlyEight int

	createdAt time.Time
	updatedAt time.Time

	rec      *undo.Recorder
	onChange func(GameState)
}

func NewSession(table int, matchID int64, gameNum int, team1Name, team2Name string, opts ...undo.Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		table:     table,
		matchID:   matchID,
		gameNum:   gameNum,
		team1Name: strings.TrimSpace(team1Name),
		team2Name: strings.TrimSpace(team2Name),
		createdAt: time.Now(),
		updatedAt: time.Now(),
		rec:       undo.NewRecorder(opts...),
	}
	s.view = newGameView(s.publish)
	return s
}

func (s *Session) ID() string { return s.id }
func (s *Session) Table() int { return s.table }

// PocketBall marks a ball as pocketed by a team and records the undoable
// action with its pre-image.
func (s *Session) PocketBall(ballNum, team int) error {
	if ballNum < 1 || ballNum > 15 {
		return ErrInvalidBall
	}
	if team != 1 && team != 2 {
		return ErrInvalidTeam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view.winner > 0 {
		return ErrGameComplete
	}
	if s.view.balls[ballNum] != BallOnTable {
		return ErrBallNotOnTable
	}

	prevState := s.view.balls[ballNum]
	prevT1, prevT2 := s.view.t1Score, s.view.t2Score

	s.view.balls[ballNum] = pocketedState(team)
	s.recomputeScores()
	s.rec.RecordBallPocket(ballNum, team, prevState, prevT1, prevT2)

	obslog.L().Info("scorecard_pocket",
		zap.Int("table", s.table),
		zap.Int("ball", ballNum),
		zap.Int("team", team),
		zap.Int("team1_score", s.view.t1Score),
		zap.Int("team2_score", s.view.t2Score),
	)
	s.publish()
	return nil
}

// UnpocketBall returns a ball to the table. This is a correction, not a
// recorded action, matching the click-to-toggle behavior of the scorecard.
func (s *Session) UnpocketBall(ballNum int) error {
	if ballNum < 1 || ballNum > 15 {
		return ErrInvalidBall
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view.winner > 0 {
		return ErrGameComplete
	}
	if s.view.balls[ballNum] == BallOnTable {
		return ErrBallOnTable
	}

	s.view.balls[ballNum] = BallOnTable
	s.recomputeScores()
	s.publish()
	return nil
}

// SetGroup assigns team 1's ball group.
func (s *Session) SetGroup(group Group) error {
	if group != GroupSolids && group != GroupStripes {
		return ErrInvalidGroup
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view.winner > 0 {
		return ErrGameComplete
	}

	prev := s.view.group
	s.view.group = group
	s.rec.RecordGroupSet(string(group), string(prev))

	obslog.L().Info("scorecard_group",
		zap.Int("table", s.table),
		zap.String("group", string(group)),
	)
	s.publish()
	return nil
}

// GoldenBreak awards the break bonus: all balls down, 17 points, instant win.
func (s *Session) GoldenBreak(team int) error {
	if team != 1 && team != 2 {
		return ErrInvalidTeam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view.winner > 0 {
		return ErrGameComplete
	}

	prev := undo.NewSnapshot().Capture(s.view)
	s.rec.RecordGoldenBreak(team, prev)
	s.applyGoldenBreak(team)

	obslog.L().Info("scorecard_golden_break",
		zap.Int("table", s.table),
		zap.Int("team", team),
	)
	s.publish()
	return nil
}

// EarlyEightBall records an early 8-ball foul: the opponent wins with the
// foul score.
func (s *Session) EarlyEightBall(offendingTeam int) error {
	if offendingTeam != 1 && offendingTeam != 2 {
		return ErrInvalidTeam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view.winner > 0 {
		return ErrGameComplete
	}

	prev := undo.NewSnapshot().Capture(s.view)
	s.rec.RecordEarlyEightBall(offendingTeam, prev)
	s.applyEarlyEight(offendingTeam)

	obslog.L().Info("scorecard_early_8ball",
		zap.Int("table", s.table),
		zap.Int("offending_team", offendingTeam),
		zap.Int("winner", s.view.winner),
	)
	s.publish()
	return nil
}

// DeclareWinner ends the game in favor of a team with the current scores.
func (s *Session) DeclareWinner(team int) error {
	if team != 1 && team != 2 {
		return ErrInvalidTeam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view.winner > 0 {
		return ErrGameComplete
	}

	prev := undo.NewSnapshot().Capture(s.view)
	s.rec.RecordDeclareWinner(team, prev)
	s.view.winner = team

	obslog.L().Info("scorecard_winner",
		zap.Int("table", s.table),
		zap.Int("team", team),
		zap.Int("team1_score", s.view.t1Score),
		zap.Int("team2_score", s.view.t2Score),
	)
	s.publish()
	return nil
}

// SetShootingTeam updates the turn indicator. Not a recorded action.
func (s *Session) SetShootingTeam(team int) error {
	if team != 1 && team != 2 {
		return ErrInvalidTeam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.shooting = team
	s.publish()
	return nil
}

// Undo reverses the most recent recorded action. The returned bool is false
// when there is nothing to undo.
func (s *Session) Undo() (undo.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.rec.Undo()
	if !ok {
		return undo.Action{}, false
	}
	s.applyInverse(action)

	obslog.L().Info("scorecard_undo",
		zap.Int("table", s.table),
		zap.String("kind", string(action.Kind)),
		zap.String("description", action.Description),
	)
	s.publish()
	return action, true
}

// Redo reapplies the most recently undone action.
func (s *Session) Redo() (undo.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.rec.Redo()
	if !ok {
		return undo.Action{}, false
	}
	s.applyForward(action)

	obslog.L().Info("scorecard_redo",
		zap.Int("table", s.table),
		zap.String("kind", string(action.Kind)),
		zap.String("description", action.Description),
	)
	s.publish()
	return action, true
}

// Recorder exposes the undo recorder for listener registration.
func (s *Session) Recorder() *undo.Recorder { return s.rec }

// State returns an independent copy of the current game state.
func (s *Session) State() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() GameState {
	return GameState{
		SessionID:      s.id,
		Table:          s.table,
		MatchID:        s.matchID,
		GameNum:        s.gameNum,
		Team1Name:      s.team1Name,
		Team2Name:      s.team2Name,
		BallStates:     s.view.BallStates(),
		Team1Score:     s.view.t1Score,
		Team2Score:     s.view.t2Score,
		TeamOneGroup:   s.view.group,
		ShootingTeam:   s.view.shooting,
		WinnerTeam:     s.view.winner,
		GoldenBreak:    s.view.golden,
		EarlyEightTeam: s.earlyEight,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
		CanUndo:        s.rec.CanUndo(),
		CanRedo:        s.rec.CanRedo(),
		UndoLabel:      s.rec.UndoDescription(),
		RedoLabel:      s.rec.RedoDescription(),
	}
}

// restoreState loads a persisted game state into the session. Undo history is
// in-memory only and does not survive a restart.
func (s *Session) restoreState(g GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = g.SessionID
	s.matchID = g.MatchID
	s.gameNum = g.GameNum
	s.team1Name = g.Team1Name
	s.team2Name = g.Team2Name
	s.view.SetBallStates(g.BallStates)
	s.view.group = g.TeamOneGroup
	s.view.t1Score = g.Team1Score
	s.view.t2Score = g.Team2Score
	s.view.shooting = g.ShootingTeam
	s.view.winner = g.WinnerTeam
	s.view.golden = g.GoldenBreak
	s.earlyEight = g.EarlyEightTeam
	s.createdAt = g.CreatedAt
	s.rec.Clear()
}

// applyInverse reverses one action's effect on the view.
func (s *Session) applyInverse(action undo.Action) {
	switch action.Kind {
	case undo.KindPocketBall:
		ball := dataInt(action.Data, "ball_num")
		s.view.balls[ball] = dataString(action.Data, "previous_ball_state")
		s.view.t1Score = dataInt(action.Data, "previous_team1_score")
		s.view.t2Score = dataInt(action.Data, "previous_team2_score")
	case undo.KindSetGroup:
		s.view.group = Group(dataString(action.Data, "previous_group"))
	case undo.KindGoldenBreak, undo.KindEarlyEightBall, undo.KindDeclareWinner:
		if prev, ok := action.Data["previous_state"].(*undo.Snapshot); ok && prev != nil {
			prev.Restore(s.view)
		}
		if action.Kind == undo.KindEarlyEightBall {
			s.earlyEight = 0
		}
	}
}

// applyForward reapplies one action's effect on the view.
func (s *Session) applyForward(action undo.Action) {
	switch action.Kind {
	case undo.KindPocketBall:
		ball := dataInt(action.Data, "ball_num")
		team := dataInt(action.Data, "team")
		s.view.balls[ball] = pocketedState(team)
		s.recomputeScores()
	case undo.KindSetGroup:
		s.view.group = Group(dataString(action.Data, "new_group"))
	case undo.KindGoldenBreak:
		s.applyGoldenBreak(dataInt(action.Data, "team"))
	case undo.KindEarlyEightBall:
		s.applyEarlyEight(dataInt(action.Data, "team"))
	case undo.KindDeclareWinner:
		s.view.winner = dataInt(action.Data, "team")
	}
}

func (s *Session) applyGoldenBreak(team int) {
	for i := 1; i <= 15; i++ {
		s.view.balls[i] = pocketedState(team)
	}
	if team == 1 {
		s.view.t1Score, s.view.t2Score = GoldenBreakScore, 0
	} else {
		s.view.t1Score, s.view.t2Score = 0, GoldenBreakScore
	}
	s.view.golden = true
	s.view.winner = team
}

func (s *Session) applyEarlyEight(offendingTeam int) {
	winner := 3 - offendingTeam
	if winner == 1 {
		s.view.t1Score = EarlyEightScore
	} else {
		s.view.t2Score = EarlyEightScore
	}
	s.earlyEight = offendingTeam
	s.view.winner = winner
}

// recomputeScores derives scores from ball states: 8-ball is worth 3, every
// other ball 1.
func (s *Session) recomputeScores() {
	t1, t2 := 0, 0
	for ball, state := range s.view.balls {
		points := BallPoints
		if ball == 8 {
			points = EightBallPoints
		}
		switch state {
		case BallPocketedTeam1:
			t1 += points
		case BallPocketedTeam2:
			t2 += points
		}
	}
	s.view.t1Score, s.view.t2Score = t1, t2
}

// publish marks the session dirty and hands a state copy to the owner.
// Called with the session lock held; the callback must not call back into
// Session methods that take the lock.
func (s *Session) publish() {
	s.updatedAt = time.Now()
	if s.onChange != nil {
		s.onChange(s.stateLocked())
	}
}

func pocketedState(team int) string {
	if team == 1 {
		return BallPocketedTeam1
	}
	return BallPocketedTeam2
}

func dataInt(data map[string]any, key string) int {
	if v, ok := data[key].(int); ok {
		return v
	}
	return 0
}

func dataString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
