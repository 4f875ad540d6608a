package achievements

import (
	"context"
	"testing"

	"github.com/ecopool/league-server/internal/league"
)

// seedFinishedGames records n finished games for a two-player match, winLast
// of them won by team 1.
func seedRepo(t *testing.T) (*league.MemoryRepository, int64, int64) {
	t.Helper()
	repo := league.NewMemoryRepository()
	ctx := context.Background()
	p1, err := repo.CreatePlayer(ctx, "Alice", "", "")
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	p2, err := repo.CreatePlayer(ctx, "Bob", "", "")
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	return repo, p1, p2
}

func playGames(t *testing.T, repo *league.MemoryRepository, p1, p2 int64, team1Wins, team2Wins int) {
	t.Helper()
	ctx := context.Background()
	matchID, err := repo.CreateMatch(ctx, league.Match{Team1Player1: p1, Team2Player1: p2})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	num := 0
	for i := 0; i < team1Wins; i++ {
		num++
		if err := repo.SaveGame(ctx, league.Game{MatchID: matchID, GameNum: num, Team1Score: 10, WinnerTeam: 1}); err != nil {
			t.Fatalf("save game: %v", err)
		}
	}
	for i := 0; i < team2Wins; i++ {
		num++
		if err := repo.SaveGame(ctx, league.Game{MatchID: matchID, GameNum: num, Team2Score: 10, WinnerTeam: 2}); err != nil {
			t.Fatalf("save game: %v", err)
		}
	}
}

func TestCheckAndUnlockMilestones(t *testing.T) {
	repo, p1, p2 := seedRepo(t)
	m := NewManager(repo)
	ctx := context.Background()

	playGames(t, repo, p1, p2, 1, 0)

	newly, err := m.CheckAndUnlock(ctx, p1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	ids := make(map[string]bool, len(newly))
	for _, a := range newly {
		ids[a.ID] = true
	}
	if !ids["first_game"] || !ids["first_win"] {
		t.Fatalf("unlocked = %v, want first_game and first_win", ids)
	}

	// Second check must not re-unlock.
	again, err := m.CheckAndUnlock(ctx, p1)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("re-unlocked %d achievements", len(again))
	}

	// The losing player earned first_game but not first_win.
	bobNew, err := m.CheckAndUnlock(ctx, p2)
	if err != nil {
		t.Fatalf("check bob: %v", err)
	}
	bobIDs := make(map[string]bool, len(bobNew))
	for _, a := range bobNew {
		bobIDs[a.ID] = true
	}
	if !bobIDs["first_game"] || bobIDs["first_win"] {
		t.Fatalf("bob unlocked = %v", bobIDs)
	}
}

func TestStreakAchievements(t *testing.T) {
	repo, p1, _ := seedRepo(t)
	m := NewManager(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.UpdateStreak(ctx, p1, true); err != nil {
			t.Fatalf("update streak: %v", err)
		}
	}
	if err := m.UpdateStreak(ctx, p1, false); err != nil {
		t.Fatalf("update streak: %v", err)
	}

	s, err := repo.Streak(ctx, p1)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if s.Current != 0 || s.Max != 3 {
		t.Fatalf("streak = %+v, want current 0 max 3", s)
	}

	newly, err := m.CheckAndUnlock(ctx, p1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	found := false
	for _, a := range newly {
		if a.ID == "streak_3" {
			found = true
		}
		if a.ID == "streak_5" {
			t.Fatal("streak_5 unlocked at max streak 3")
		}
	}
	if !found {
		t.Fatal("streak_3 not unlocked at max streak 3")
	}
}

func TestWinRateRequiresMinimumGames(t *testing.T) {
	repo, p1, p2 := seedRepo(t)
	m := NewManager(repo)
	ctx := context.Background()

	// 10 straight wins: 100% win rate but below the 20-game minimum.
	playGames(t, repo, p1, p2, 10, 0)

	statuses, err := m.PlayerAchievements(ctx, p1)
	if err != nil {
		t.Fatalf("achievements: %v", err)
	}
	for _, st := range statuses {
		if st.Achievement.ID == "winrate_60" && st.Progress != 0 {
			t.Fatalf("winrate_60 progress = %d below min games, want 0", st.Progress)
		}
	}

	// 12 more games, 5 wins: 24 games at 62% clears the bar.
	playGames(t, repo, p1, p2, 5, 9)
	newly, err := m.CheckAndUnlock(ctx, p1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	found := false
	for _, a := range newly {
		if a.ID == "winrate_60" {
			found = true
		}
	}
	if !found {
		t.Fatal("winrate_60 not unlocked at 62% over 24 games")
	}
}

func TestComebackWin(t *testing.T) {
	repo, p1, p2 := seedRepo(t)
	m := NewManager(repo)
	ctx := context.Background()

	matchID, err := repo.CreateMatch(ctx, league.Match{Team1Player1: p1, Team2Player1: p2})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	// Lose game 1, win games 2 and 3.
	for i, winner := range []int{2, 1, 1} {
		if err := repo.SaveGame(ctx, league.Game{MatchID: matchID, GameNum: i + 1, WinnerTeam: winner}); err != nil {
			t.Fatalf("save game: %v", err)
		}
	}
	if err := repo.CompleteMatch(ctx, matchID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	newly, err := m.CheckAndUnlock(ctx, p1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	found := false
	for _, a := range newly {
		if a.ID == "comeback_king" {
			found = true
		}
	}
	if !found {
		t.Fatal("comeback_king not unlocked after losing game 1 and winning the match")
	}
}

func TestUnlockCallbacksPanicSafe(t *testing.T) {
	repo, p1, p2 := seedRepo(t)
	m := NewManager(repo)
	ctx := context.Background()

	m.OnUnlock(func(int64, Achievement) { panic("boom") })
	var got []string
	m.OnUnlock(func(_ int64, a Achievement) { got = append(got, a.ID) })

	playGames(t, repo, p1, p2, 1, 0)
	newly, err := m.CheckAndUnlock(ctx, p1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(got) != len(newly) {
		t.Fatalf("callback saw %d unlocks, want %d", len(got), len(newly))
	}
}

func TestTotalPointsAndLeaderboard(t *testing.T) {
	repo, p1, p2 := seedRepo(t)
	m := NewManager(repo)
	ctx := context.Background()

	playGames(t, repo, p1, p2, 1, 0)
	if _, err := m.CheckAndUnlock(ctx, p1); err != nil {
		t.Fatalf("check p1: %v", err)
	}
	if _, err := m.CheckAndUnlock(ctx, p2); err != nil {
		t.Fatalf("check p2: %v", err)
	}

	// Alice: first_game (10) + first_win (15) + points_100? no (10 points scored).
	points, err := m.TotalPoints(ctx, p1)
	if err != nil {
		t.Fatalf("total points: %v", err)
	}
	if points != 25 {
		t.Fatalf("alice achievement points = %d, want 25", points)
	}

	lb, err := m.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 2 || lb[0].Player.ID != p1 {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if lb[0].Total != len(Catalog) {
		t.Fatalf("total = %d, want %d", lb[0].Total, len(Catalog))
	}
}
