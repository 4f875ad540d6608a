package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ecopool/league-server/internal/export"
	"github.com/ecopool/league-server/internal/league"
	"github.com/ecopool/league-server/internal/obslog"
	"github.com/ecopool/league-server/internal/scorecard"
	"github.com/ecopool/league-server/pkg/leaguedto"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("write_json_error", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, leaguedto.Error{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(overlayHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"ws_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.scoreboard)
}

func (s *Server) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scoreboard())
}

func (s *Server) handleReactionsGet(w http.ResponseWriter, r *http.Request) {
	active := s.reactions.Active()
	out := make([]leaguedto.Reaction, 0, len(active))
	for _, re := range active {
		out = append(out, reactionDTO(re))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReactionsPost(w http.ResponseWriter, r *http.Request) {
	var req leaguedto.PostReactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	re := s.reactions.Add(req.Type, req.Sender, clientIP(r))
	if re == nil {
		writeError(w, http.StatusTooManyRequests, errors.New("reaction rejected"))
		return
	}
	writeJSON(w, http.StatusCreated, reactionDTO(*re))
}

func (s *Server) handleReactionTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reactions.Types())
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.repo.Players(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sortBy := r.URL.Query().Get("sort"); sortBy != "" {
		players, err = league.Leaderboard(players, sortBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req leaguedto.CreatePlayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.repo.CreatePlayer(r.Context(), req.Name, req.Email, req.Venmo)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, league.ErrNameTaken) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	p, err := s.repo.Player(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func playerParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid player id")
	}
	return id, nil
}

func (s *Server) handleUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := playerParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req leaguedto.CreatePlayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.repo.UpdatePlayer(r.Context(), id, req.Name, req.Email, req.Venmo); err != nil {
		switch {
		case errors.Is(err, league.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, league.ErrNameTaken):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, league.ErrEmptyName):
			writeError(w, http.StatusBadRequest, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	p, err := s.repo.Player(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeactivatePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := playerParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.repo.DeactivatePlayer(r.Context(), id); err != nil {
		if errors.Is(err, league.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerAchievements(w http.ResponseWriter, r *http.Request) {
	id, err := playerParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	statuses, err := s.ach.PlayerAchievements(r.Context(), id)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleAchievementBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.ach.Leaderboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func tableParam(r *http.Request) (int, error) {
	table, err := strconv.Atoi(r.PathValue("table"))
	if err != nil || table <= 0 {
		return 0, errors.New("invalid table number")
	}
	return table, nil
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req leaguedto.StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.GameNum <= 0 {
		req.GameNum = 1
	}
	if req.MatchID != 0 {
		// Reserve the game row with the breaking team; validates the match.
		if _, err := s.repo.CreateGame(r.Context(), req.MatchID, req.GameNum, req.BreakingTeam); err != nil {
			if errors.Is(err, league.ErrNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	sess, err := s.cards.StartSession(r.Context(), table, req.MatchID, req.GameNum, req.Team1Name, req.Team2Name)
	if err != nil {
		if errors.Is(err, scorecard.ErrTableBusy) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, tableDTO(sess.State()))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.cards.EndSession(r.Context(), table); err != nil {
		writeSessionError(w, err)
		return
	}
	s.requestBroadcast()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTablePNG(w http.ResponseWriter, r *http.Request) {
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
	raw, err := s.renderer.RenderPNG(r.Context(), sess.State())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(raw)
}

// mutateSession runs one scorecard operation and answers with the new state.
func (s *Server) mutateSession(w http.ResponseWriter, r *http.Request, op func(*scorecard.Session, leaguedto.ScorecardOpRequest) error) {
	table, err := tableParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req leaguedto.ScorecardOpRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	sess, err := s.cards.Session(table)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if err := op(sess, req); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, scorecard.ErrGameComplete) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, tableDTO(sess.State()))
}

func (s *Server) handlePocket(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, req leaguedto.ScorecardOpRequest) error {
		return sess.PocketBall(req.Ball, req.Team)
	})
}

func (s *Server) handleUnpocket(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, req leaguedto.ScorecardOpRequest) error {
		return sess.UnpocketBall(req.Ball)
	})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, req leaguedto.ScorecardOpRequest) error {
		return sess.SetGroup(scorecard.Group(strings.ToLower(req.Group)))
	})
}

func (s *Server) handleGoldenBreak(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, req leaguedto.ScorecardOpRequest) error {
		return sess.GoldenBreak(req.Team)
	})
}

func (s *Server) handleEarlyEight(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, req leaguedto.ScorecardOpRequest) error {
		return sess.EarlyEightBall(req.Team)
	})
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, req leaguedto.ScorecardOpRequest) error {
		return sess.DeclareWinner(req.Team)
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, _ leaguedto.ScorecardOpRequest) error {
		if _, ok := sess.Undo(); !ok {
			return errors.New("nothing to undo")
		}
		return nil
	})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.mutateSession(w, r, func(sess *scorecard.Session, _ leaguedto.ScorecardOpRequest) error {
		if _, ok := sess.Redo(); !ok {
			return errors.New("nothing to redo")
		}
		return nil
	})
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, scorecard.ErrNoSession) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

// handleWeekExport builds the weekly workbook from current players and
// recent matches.
func (s *Server) handleWeekExport(w http.ResponseWriter, r *http.Request) {
	week := strings.TrimSpace(r.URL.Query().Get("week"))
	if week == "" {
		week = "Week"
	}

	players, err := s.repo.Players(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	matches, err := s.repo.Matches(r.Context(), 200)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	participants := make([]export.Participant, 0, len(players))
	byID := make(map[int64]league.Player, len(players))
	for _, p := range players {
		first, last := splitName(p.Name)
		participants = append(participants, export.Participant{First: first, Last: last, Email: p.Email})
		byID[p.ID] = p
	}

	pairs, matchups := weekSections(r.Context(), s.repo, matches, byID)

	raw, err := export.WeekWorkbook(week, participants, pairs, matchups)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SafeFilename(week)))
	_, _ = w.Write(raw)
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
