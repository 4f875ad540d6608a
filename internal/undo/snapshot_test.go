package undo

import "testing"

// fakeView is a minimal View implementation for snapshot tests.
type fakeView struct {
	balls     map[int]string
	group     string
	t1, t2    int
	shooting  int
	winner    int
	golden    bool
	refreshed int
}

func newFakeView() *fakeView {
	return &fakeView{
		balls:    map[int]string{1: "table", 8: "table", 9: "table"},
		shooting: 1,
	}
}

func (v *fakeView) BallStates() map[int]string { return v.balls }
func (v *fakeView) SetBallStates(states map[int]string) {
	v.balls = states
}
func (v *fakeView) TeamOneGroup() string          { return v.group }
func (v *fakeView) SetTeamOneGroup(group string)  { v.group = group }
func (v *fakeView) Scores() (int, int)            { return v.t1, v.t2 }
func (v *fakeView) SetScores(t1, t2 int)          { v.t1, v.t2 = t1, t2 }
func (v *fakeView) ShootingTeam() int             { return v.shooting }
func (v *fakeView) SetShootingTeam(team int)      { v.shooting = team }
func (v *fakeView) Outcome() (int, bool)          { return v.winner, v.golden }
func (v *fakeView) SetOutcome(w int, g bool)      { v.winner, v.golden = w, g }
func (v *fakeView) RefreshDisplay()               { v.refreshed++ }

func TestSnapshotCaptureRestore(t *testing.T) {
	v := newFakeView()
	v.balls[1] = "pocketed_team1"
	v.group = "solids"
	v.t1, v.t2 = 4, 2
	v.shooting = 2
	v.winner, v.golden = 0, false

	snap := NewSnapshot().Capture(v)

	// Mutate the live view past the capture point.
	v.balls[8] = "pocketed_team2"
	v.t1, v.t2 = 4, 5
	v.shooting = 1
	v.winner = 2

	snap.Restore(v)

	if v.balls[8] != "table" || v.balls[1] != "pocketed_team1" {
		t.Fatalf("ball states not restored: %v", v.balls)
	}
	if v.t1 != 4 || v.t2 != 2 {
		t.Fatalf("scores not restored: %d-%d", v.t1, v.t2)
	}
	if v.shooting != 2 {
		t.Fatalf("shooting team not restored: %d", v.shooting)
	}
	if v.winner != 0 || v.golden {
		t.Fatalf("outcome not restored: winner=%d golden=%v", v.winner, v.golden)
	}
	if v.refreshed != 1 {
		t.Fatalf("restore must invoke the view's refresh hook exactly once, got %d", v.refreshed)
	}
}

func TestSnapshotOwnsItsCopies(t *testing.T) {
	v := newFakeView()
	snap := NewSnapshot().Capture(v)

	v.balls[1] = "pocketed_team2"
	if snap.BallStates[1] != "table" {
		t.Fatalf("snapshot aliased the live view's ball map")
	}

	snap.Restore(v)
	v.balls[9] = "pocketed_team1"
	if snap.BallStates[9] != "table" {
		t.Fatalf("restore handed the snapshot's own map to the view")
	}
}

func TestSnapshotClone(t *testing.T) {
	v := newFakeView()
	v.winner, v.golden = 1, true
	snap := NewSnapshot().Capture(v)

	c := snap.Clone()
	c.BallStates[1] = "pocketed_team1"

	if snap.BallStates[1] != "table" {
		t.Fatalf("clone shares ball state map")
	}
	if c.WinnerTeam != 1 || !c.GoldenBreak {
		t.Fatalf("clone lost scalar fields: %+v", c)
	}
}

func TestGameCompleteDerivedFromWinner(t *testing.T) {
	v := newFakeView()
	v.winner = 2
	snap := NewSnapshot().Capture(v)
	if !snap.GameComplete {
		t.Fatalf("winner set but GameComplete false")
	}
}
