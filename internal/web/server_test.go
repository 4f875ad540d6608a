package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ecopool/league-server/internal/achievements"
	"github.com/ecopool/league-server/internal/league"
	"github.com/ecopool/league-server/internal/reactions"
	"github.com/ecopool/league-server/internal/render"
	"github.com/ecopool/league-server/internal/scorecard"
	"github.com/ecopool/league-server/pkg/leaguedto"
	"github.com/redis/go-redis/v9"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cards := scorecard.NewManager(rdb, 3600, 0)
	repo := league.NewMemoryRepository()
	ach := achievements.NewManager(repo)
	cat, err := reactions.NewCatalog("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	reacts := reactions.NewManager(cat, 5, 20)
	return NewServer("127.0.0.1:0", "EcoPOOL Test League", 3, cards, repo, ach, reacts, render.NewTableRenderer(), NewHub())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestOverlayServedAtRootOnly(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "EcoPOOL") {
		t.Fatalf("root: status=%d", rec.Code)
	}
	rec = doJSON(t, s.Handler(), http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/tables/1/session", leaguedto.StartSessionRequest{
		GameNum: 1, Team1Name: "Sharks", Team2Name: "Jets",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}

	// Starting again on the same table conflicts.
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/session", leaguedto.StartSessionRequest{
		GameNum: 1, Team1Name: "A", Team2Name: "B",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double start status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/pocket", leaguedto.ScorecardOpRequest{Ball: 8, Team: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("pocket status = %d: %s", rec.Code, rec.Body.String())
	}
	var state leaguedto.TableState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Team2Score != 3 || !state.CanUndo {
		t.Fatalf("state = %+v", state)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo status = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Team2Score != 0 || !state.CanRedo {
		t.Fatalf("state after undo = %+v", state)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/tables/1/session", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("end status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/pocket", leaguedto.ScorecardOpRequest{Ball: 1, Team: 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("pocket after end status = %d", rec.Code)
	}
}

func TestScoreboardVersionIncreases(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/scoreboard", nil)
	var first leaguedto.Scoreboard
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/scoreboard", nil)
	var second leaguedto.Scoreboard
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Version <= first.Version {
		t.Fatalf("version %d then %d, want increasing", first.Version, second.Version)
	}
	if second.LeagueName != "EcoPOOL Test League" {
		t.Fatalf("league name = %q", second.LeagueName)
	}
}

func TestReactionEndpoints(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/reaction-types", nil)
	var types []string
	if err := json.Unmarshal(rec.Body.Bytes(), &types); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(types) != 13 {
		t.Fatalf("types = %d, want 13", len(types))
	}

	rec = doJSON(t, h, http.MethodPost, "/api/reactions", leaguedto.PostReactionRequest{Type: "gg", Sender: "Sam"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post status = %d: %s", rec.Code, rec.Body.String())
	}

	// Same client immediately again is rate limited.
	rec = doJSON(t, h, http.MethodPost, "/api/reactions", leaguedto.PostReactionRequest{Type: "gg", Sender: "Sam"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("rate-limited status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/reactions", nil)
	var active []leaguedto.Reaction
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(active) != 1 || active[0].Sender != "Sam" {
		t.Fatalf("active = %+v", active)
	}
}

func TestPlayerEndpoints(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/players", leaguedto.CreatePlayerRequest{Name: "Alice Nguyen"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var p league.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/players", leaguedto.CreatePlayerRequest{Name: "Alice Nguyen"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/players?sort=wins", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/players?sort=elo", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad sort status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/players/999/achievements", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing player status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/players/1/achievements", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("achievements status = %d: %s", rec.Code, rec.Body.String())
	}
	var statuses []achievements.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(statuses) != len(achievements.Catalog) {
		t.Fatalf("statuses = %d, want %d", len(statuses), len(achievements.Catalog))
	}

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/players/%d", p.ID), leaguedto.CreatePlayerRequest{Name: "Alice N.", Venmo: "@alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "Alice N." || p.Venmo != "@alice" {
		t.Fatalf("updated player = %+v", p)
	}
	rec = doJSON(t, h, http.MethodPut, "/api/players/999", leaguedto.CreatePlayerRequest{Name: "X"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update missing status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/players/%d", p.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("deactivate status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/players", nil)
	var active []league.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active players after deactivate = %d", len(active))
	}
}

func TestMatchFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/players", leaguedto.CreatePlayerRequest{Name: "Alice Nguyen"})
	var alice league.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &alice); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/players", leaguedto.CreatePlayerRequest{Name: "Bob Reyes"})
	var bob league.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &bob); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/matches", leaguedto.CreateMatchRequest{
		Team1Player1ID: alice.ID, Team2Player1ID: bob.ID, Table: 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create match status = %d: %s", rec.Code, rec.Body.String())
	}
	var m league.Match
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.BestOf != 3 {
		t.Fatalf("best of = %d, want server default 3", m.BestOf)
	}

	// Missing team players are rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/matches", leaguedto.CreateMatchRequest{Team1Player1ID: alice.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad match status = %d", rec.Code)
	}

	// Recording without a match attached is a client error.
	rec = doJSON(t, h, http.MethodPost, "/api/tables/2/session", leaguedto.StartSessionRequest{
		GameNum: 1, Team1Name: "X", Team2Name: "Y",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("free session status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/tables/2/record", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("record free session status = %d", rec.Code)
	}

	type recorded struct {
		Game          league.Game         `json:"game"`
		MatchComplete bool                `json:"match_complete"`
		Unlocked      map[string][]string `json:"unlocked"`
	}

	// Game 1: Alice wins on a golden break.
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/session", leaguedto.StartSessionRequest{
		MatchID: m.ID, GameNum: 1, Team1Name: "Alice", Team2Name: "Bob",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/golden-break", leaguedto.ScorecardOpRequest{Team: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("golden break status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/record", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("record status = %d: %s", rec.Code, rec.Body.String())
	}
	var r1 recorded
	if err := json.Unmarshal(rec.Body.Bytes(), &r1); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r1.MatchComplete {
		t.Fatal("match complete after one win of a best-of-3")
	}
	if r1.Game.WinnerTeam != 1 || !r1.Game.GoldenBreak || r1.Game.BreakingTeam != 1 {
		t.Fatalf("game = %+v", r1.Game)
	}
	if len(r1.Unlocked) == 0 {
		t.Fatal("no achievements unlocked after first game")
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/tables/1/session", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("end status = %d", rec.Code)
	}

	// Game 2: Alice takes the match.
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/session", leaguedto.StartSessionRequest{
		MatchID: m.ID, GameNum: 2, Team1Name: "Alice", Team2Name: "Bob",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start game 2 status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/winner", leaguedto.ScorecardOpRequest{Team: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("winner status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/record", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("record game 2 status = %d: %s", rec.Code, rec.Body.String())
	}
	var r2 recorded
	if err := json.Unmarshal(rec.Body.Bytes(), &r2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !r2.MatchComplete {
		t.Fatal("match not complete after two wins")
	}

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/matches/%d", m.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("match detail status = %d: %s", rec.Code, rec.Body.String())
	}
	var detail struct {
		Match league.Match  `json:"match"`
		Games []league.Game `json:"games"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !detail.Match.Complete || len(detail.Games) != 2 {
		t.Fatalf("detail = %+v", detail)
	}

	// Stats folded into the player row.
	p, err := s.repo.Player(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	if p.GamesWon != 2 || p.GoldenBreaks != 1 {
		t.Fatalf("alice stats = %+v", p)
	}
}

func TestTablePNG(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/tables/1/table.png", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no session status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/tables/1/session", leaguedto.StartSessionRequest{
		GameNum: 1, Team1Name: "A", Team2Name: "B",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/tables/1/table.png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("png status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty png body")
	}
}

func TestWeekExportDownload(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	ctx := context.Background()

	p1, _ := s.repo.CreatePlayer(ctx, "Alice Nguyen", "", "")
	p2, _ := s.repo.CreatePlayer(ctx, "Bob Reyes", "", "")
	matchID, err := s.repo.CreateMatch(ctx, league.Match{Team1Player1: p1, Team2Player1: p2})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if err := s.repo.SaveGame(ctx, league.Game{MatchID: matchID, GameNum: 1, Team1Score: 9, WinnerTeam: 1}); err != nil {
		t.Fatalf("game: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/export/week.xlsx?week=Week+1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Week_1.xlsx") {
		t.Fatalf("content disposition = %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty workbook body")
	}
}
