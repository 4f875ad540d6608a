package web

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ecopool/league-server/internal/achievements"
	"github.com/ecopool/league-server/internal/league"
	"github.com/ecopool/league-server/internal/obslog"
	"github.com/ecopool/league-server/internal/reactions"
	"github.com/ecopool/league-server/internal/render"
	"github.com/ecopool/league-server/internal/scorecard"
	"github.com/ecopool/league-server/pkg/leaguedto"
	"go.uber.org/zap"
)

//go:embed overlay.html
var overlayHTML []byte

// Server is the spectator overlay: a JSON API, the embedded overlay page,
// and a WebSocket feed of scoreboard and reaction events.
type Server struct {
	leagueName string
	bestOf     int

	cards     *scorecard.Manager
	repo      league.Repository
	ach       *achievements.Manager
	reactions *reactions.Manager
	renderer  render.TableRenderer
	hub       *Hub

	httpSrv  *http.Server
	notifyCh chan struct{}
}

func NewServer(addr, leagueName string, bestOf int, cards *scorecard.Manager, repo league.Repository,
	ach *achievements.Manager, reacts *reactions.Manager, renderer render.TableRenderer, hub *Hub) *Server {

	if bestOf <= 0 {
		bestOf = 3
	}
	s := &Server{
		leagueName: leagueName,
		bestOf:     bestOf,
		cards:      cards,
		repo:       repo,
		ach:        ach,
		reactions:  reacts,
		renderer:   renderer,
		hub:        hub,
		notifyCh:   make(chan struct{}, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleOverlay)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /api/scoreboard", s.handleScoreboard)
	mux.HandleFunc("GET /api/reactions", s.handleReactionsGet)
	mux.HandleFunc("POST /api/reactions", s.handleReactionsPost)
	mux.HandleFunc("GET /api/reaction-types", s.handleReactionTypes)

	mux.HandleFunc("GET /api/players", s.handlePlayers)
	mux.HandleFunc("POST /api/players", s.handleCreatePlayer)
	mux.HandleFunc("PUT /api/players/{id}", s.handleUpdatePlayer)
	mux.HandleFunc("DELETE /api/players/{id}", s.handleDeactivatePlayer)
	mux.HandleFunc("GET /api/players/{id}/achievements", s.handlePlayerAchievements)
	mux.HandleFunc("GET /api/achievements/leaderboard", s.handleAchievementBoard)

	mux.HandleFunc("GET /api/matches", s.handleMatches)
	mux.HandleFunc("POST /api/matches", s.handleCreateMatch)
	mux.HandleFunc("GET /api/matches/{id}", s.handleMatch)

	mux.HandleFunc("POST /api/tables/{table}/session", s.handleStartSession)
	mux.HandleFunc("DELETE /api/tables/{table}/session", s.handleEndSession)
	mux.HandleFunc("GET /api/tables/{table}/table.png", s.handleTablePNG)
	mux.HandleFunc("POST /api/tables/{table}/pocket", s.handlePocket)
	mux.HandleFunc("POST /api/tables/{table}/unpocket", s.handleUnpocket)
	mux.HandleFunc("POST /api/tables/{table}/group", s.handleGroup)
	mux.HandleFunc("POST /api/tables/{table}/golden-break", s.handleGoldenBreak)
	mux.HandleFunc("POST /api/tables/{table}/early-8ball", s.handleEarlyEight)
	mux.HandleFunc("POST /api/tables/{table}/winner", s.handleWinner)
	mux.HandleFunc("POST /api/tables/{table}/undo", s.handleUndo)
	mux.HandleFunc("POST /api/tables/{table}/redo", s.handleRedo)
	mux.HandleFunc("POST /api/tables/{table}/record", s.handleRecordGame)

	mux.HandleFunc("GET /api/export/week.xlsx", s.handleWeekExport)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routing for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Start wires the change feeds and serves until Shutdown. Scoreboard
// broadcasts go through a coalescing channel so session callbacks never
// re-enter session locks.
func (s *Server) Start() error {
	s.cards.OnChange(func(scorecard.GameState) { s.requestBroadcast() })
	s.reactions.OnReaction(func(r reactions.Reaction) {
		dto := reactionDTO(r)
		s.hub.Broadcast(leaguedto.Event{Kind: "reaction", Reaction: &dto})
		s.requestBroadcast()
	})
	go s.broadcastLoop()

	obslog.L().Info("web_listen", zap.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) requestBroadcast() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *Server) broadcastLoop() {
	for range s.notifyCh {
		sb := s.scoreboard()
		s.hub.Broadcast(leaguedto.Event{Kind: "scoreboard", Scoreboard: &sb})
	}
}

// scoreboard builds the full overlay state with a fresh version number.
func (s *Server) scoreboard() leaguedto.Scoreboard {
	states := s.cards.States()
	tables := make([]leaguedto.TableState, 0, len(states))
	for _, g := range states {
		tables = append(tables, tableDTO(g))
	}
	active := s.reactions.Active()
	reacts := make([]leaguedto.Reaction, 0, len(active))
	for _, r := range active {
		reacts = append(reacts, reactionDTO(r))
	}
	return leaguedto.Scoreboard{
		LeagueName: s.leagueName,
		Version:    s.hub.NextVersion(),
		Tables:     tables,
		Reactions:  reacts,
		UpdatedAt:  time.Now(),
	}
}

func tableDTO(g scorecard.GameState) leaguedto.TableState {
	return leaguedto.TableState{
		SessionID:    g.SessionID,
		Table:        g.Table,
		MatchID:      g.MatchID,
		GameNum:      g.GameNum,
		Team1Name:    g.Team1Name,
		Team2Name:    g.Team2Name,
		Team1Score:   g.Team1Score,
		Team2Score:   g.Team2Score,
		Team1Group:   string(g.TeamOneGroup),
		BallStates:   g.BallStates,
		ShootingTeam: g.ShootingTeam,
		WinnerTeam:   g.WinnerTeam,
		GoldenBreak:  g.GoldenBreak,
		CanUndo:      g.CanUndo,
		CanRedo:      g.CanRedo,
		UndoLabel:    g.UndoLabel,
		RedoLabel:    g.RedoLabel,
	}
}

func reactionDTO(r reactions.Reaction) leaguedto.Reaction {
	return leaguedto.Reaction{
		ID:        r.ID,
		Type:      r.Type,
		Emoji:     r.Emoji,
		Text:      r.Text,
		Sender:    r.Sender,
		Timestamp: r.Timestamp,
	}
}

// clientIP prefers the first X-Forwarded-For hop since the overlay usually
// sits behind the tunnel.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
