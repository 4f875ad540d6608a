package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ecopool/league-server/internal/league"
	"github.com/ecopool/league-server/internal/obslog"
	"github.com/ecopool/league-server/pkg/leaguedto"
	"go.uber.org/zap"
)

type matchDetail struct {
	Match league.Match  `json:"match"`
	Games []league.Game `json:"games"`
}

// recordedGame is the answer to POST /api/tables/{n}/record: the saved game
// row plus whatever the result settled league-side.
type recordedGame struct {
	Game          league.Game        `json:"game"`
	MatchComplete bool               `json:"match_complete"`
	Unlocked      map[int64][]string `json:"unlocked,omitempty"`
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = n
	}
	matches, err := s.repo.Matches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req leaguedto.CreateMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.BestOf <= 0 {
		req.BestOf = s.bestOf
	}
	id, err := s.repo.CreateMatch(r.Context(), league.Match{
		Team1Player1: req.Team1Player1ID,
		Team1Player2: req.Team1Player2ID,
		Team2Player1: req.Team2Player1ID,
		Team2Player2: req.Team2Player2ID,
		Table:        req.Table,
		BestOf:       req.BestOf,
		IsFinals:     req.IsFinals,
	})
	if err != nil {
		if errors.Is(err, league.ErrBadMatch) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	m, err := s.repo.Match(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid match id"))
		return
	}
	m, err := s.repo.Match(r.Context(), id)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	games, err := s.repo.GamesForMatch(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, matchDetail{Match: m, Games: games})
}

// handleRecordGame snapshots the table's current game into its match. The
// upsert keys on (match, game number), so re-recording after an undo simply
// overwrites the row. A decided game also settles streaks, achievements, and
// match completion.
func (s *Server) handleRecordGame(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.cards.Session(table)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	g := sess.State()
	if g.MatchID == 0 {
		writeError(w, http.StatusBadRequest, errors.New("session is not attached to a match"))
		return
	}
	m, err := s.repo.Match(r.Context(), g.MatchID)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	game := league.Game{
		MatchID:        g.MatchID,
		GameNum:        g.GameNum,
		Team1Score:     g.Team1Score,
		Team2Score:     g.Team2Score,
		Team1Group:     string(g.TeamOneGroup),
		BallStates:     g.BallStates,
		WinnerTeam:     g.WinnerTeam,
		GoldenBreak:    g.GoldenBreak,
		EarlyEightTeam: g.EarlyEightTeam,
	}
	// The breaking team lives on the row reserved at session start; the
	// upsert would otherwise clobber it.
	if rows, err := s.repo.GamesForMatch(r.Context(), g.MatchID); err == nil {
		for _, prev := range rows {
			if prev.GameNum == g.GameNum {
				game.BreakingTeam = prev.BreakingTeam
				break
			}
		}
	}
	if g.GoldenBreak && game.BreakingTeam == 0 {
		game.BreakingTeam = g.WinnerTeam
	}
	if err := s.repo.SaveGame(r.Context(), game); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := recordedGame{Game: game}
	if g.WinnerTeam != 0 {
		resp.Unlocked = s.settleGame(r.Context(), m, g.WinnerTeam)
		complete, err := s.maybeCompleteMatch(r.Context(), m)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.MatchComplete = complete
	}
	writeJSON(w, http.StatusOK, resp)
}

// settleGame updates win streaks and runs the achievement checks for every
// player on the match. Failures are logged, not fatal: the game row is
// already saved.
func (s *Server) settleGame(ctx context.Context, m league.Match, winner int) map[int64][]string {
	members := []struct {
		id   int64
		team int
	}{
		{m.Team1Player1, 1},
		{m.Team1Player2, 1},
		{m.Team2Player1, 2},
		{m.Team2Player2, 2},
	}

	unlocked := make(map[int64][]string)
	for _, mm := range members {
		if mm.id == 0 {
			continue
		}
		if err := s.ach.UpdateStreak(ctx, mm.id, mm.team == winner); err != nil {
			obslog.L().Warn("streak_update_error", zap.Int64("player", mm.id), zap.Error(err))
		}
		fresh, err := s.ach.CheckAndUnlock(ctx, mm.id)
		if err != nil {
			obslog.L().Warn("achievement_check_error", zap.Int64("player", mm.id), zap.Error(err))
			continue
		}
		for _, a := range fresh {
			unlocked[mm.id] = append(unlocked[mm.id], a.ID)
		}
	}
	if len(unlocked) == 0 {
		return nil
	}
	return unlocked
}

// maybeCompleteMatch marks the match complete once either team has the wins.
func (s *Server) maybeCompleteMatch(ctx context.Context, m league.Match) (bool, error) {
	if m.Complete {
		return true, nil
	}
	games, err := s.repo.GamesForMatch(ctx, m.ID)
	if err != nil {
		return false, err
	}
	var wins [3]int
	for _, g := range games {
		if g.WinnerTeam == 1 || g.WinnerTeam == 2 {
			wins[g.WinnerTeam]++
		}
	}
	if wins[1] < m.WinsNeeded() && wins[2] < m.WinsNeeded() {
		return false, nil
	}
	if err := s.repo.CompleteMatch(ctx, m.ID); err != nil {
		return false, err
	}
	return true, nil
}
