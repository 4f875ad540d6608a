package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/ecopool/league-server/internal/scorecard"
)

func fullTableState() scorecard.GameState {
	balls := make(map[int]string, 15)
	for i := 1; i <= 15; i++ {
		balls[i] = scorecard.BallOnTable
	}
	return scorecard.GameState{
		Table:      1,
		GameNum:    1,
		Team1Name:  "Sharks",
		Team2Name:  "Jets",
		BallStates: balls,
	}
}

func TestRenderPNGDecodes(t *testing.T) {
	r := NewTableRenderer()

	state := fullTableState()
	state.BallStates[3] = scorecard.BallPocketedTeam1
	state.BallStates[12] = scorecard.BallPocketedTeam2
	state.Team1Score = 1
	state.Team2Score = 1
	state.TeamOneGroup = scorecard.GroupSolids

	raw, err := r.RenderPNG(context.Background(), state)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestRenderPNGCancelled(t *testing.T) {
	r := NewTableRenderer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.RenderPNG(ctx, fullTableState()); err == nil {
		t.Fatal("expected context error")
	}
}

func TestBallBadgeCachedPerSize(t *testing.T) {
	a, err := ballBadge(8, 32)
	if err != nil {
		t.Fatalf("badge: %v", err)
	}
	b, err := ballBadge(8, 32)
	if err != nil {
		t.Fatalf("badge: %v", err)
	}
	if a != b {
		t.Fatal("same ball and size not served from cache")
	}
	c, err := ballBadge(8, 64)
	if err != nil {
		t.Fatalf("badge: %v", err)
	}
	if a == c {
		t.Fatal("different sizes share a cache entry")
	}
}

func TestBallSVGStripes(t *testing.T) {
	solid := string(ballSVG(3))
	stripe := string(ballSVG(11))
	if bytes.Contains([]byte(solid), []byte("<rect")) {
		t.Fatal("solid ball has a stripe band")
	}
	if !bytes.Contains([]byte(stripe), []byte("<rect")) {
		t.Fatal("stripe ball missing its band")
	}
}
