package scorecard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ecopool/league-server/internal/obslog"
	"github.com/ecopool/league-server/internal/undo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Manager owns the live scorecard sessions, one per table, and persists their
// canonical state to Redis so the overlay and a restarted server can read it.
// Undo history stays in-memory per session and is dropped on teardown.
type Manager struct {
	rdb *redis.Client
	ttl time.Duration

	mu       sync.Mutex
	sessions map[int]*Session

	maxHistory int
	onChange   func(GameState)
}

// Dial connects a Redis client from a redis:// URL and verifies it.
func Dial(redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for scorecard manager")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewManager(rdb *redis.Client, ttlSec int, maxHistory int) *Manager {
	ttl := 24 * time.Hour
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	return &Manager{
		rdb:        rdb,
		ttl:        ttl,
		sessions:   make(map[int]*Session),
		maxHistory: maxHistory,
	}
}

// OnChange registers the single downstream consumer of state changes
// (the overlay hub). Must be set before sessions start.
func (m *Manager) OnChange(fn func(GameState)) { m.onChange = fn }

// StartSession opens a new game on a table.
func (m *Manager) StartSession(ctx context.Context, table int, matchID int64, gameNum int, team1Name, team2Name string) (*Session, error) {
	if table <= 0 {
		return nil, fmt.Errorf("invalid table %d", table)
	}

	m.mu.Lock()
	if existing, ok := m.sessions[table]; ok && existing.State().WinnerTeam == 0 {
		m.mu.Unlock()
		return nil, ErrTableBusy
	}

	var opts []undo.Option
	if m.maxHistory > 0 {
		opts = append(opts, undo.WithMaxHistory(m.maxHistory))
	}
	s := NewSession(table, matchID, gameNum, team1Name, team2Name, opts...)
	s.onChange = m.changed
	m.sessions[table] = s
	m.mu.Unlock()

	if err := m.persist(ctx, s.State()); err != nil {
		return nil, err
	}
	obslog.L().Info("scorecard_session_start",
		zap.Int("table", table),
		zap.String("session_id", s.ID()),
		zap.Int64("match_id", matchID),
		zap.Int("game_num", gameNum),
	)
	return s, nil
}

// Session returns the live session for a table.
func (m *Manager) Session(table int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[table]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// EndSession tears a session down and removes its persisted state.
func (m *Manager) EndSession(ctx context.Context, table int) error {
	m.mu.Lock()
	s, ok := m.sessions[table]
	if ok {
		delete(m.sessions, table)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	s.rec.Clear()
	pipe := m.rdb.TxPipeline()
	pipe.Del(ctx, stateKey(table))
	pipe.SRem(ctx, idxTablesKey, strconv.Itoa(table))
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	obslog.L().Info("scorecard_session_end",
		zap.Int("table", table),
		zap.String("session_id", s.ID()),
	)
	return nil
}

// States returns a copy of every live session's state, ordered by table.
func (m *Manager) States() []GameState {
	m.mu.Lock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()

	out := make([]GameState, 0, len(list))
	for _, s := range list {
		out = append(out, s.State())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out
}

// Restore rebuilds sessions from persisted state after a restart. Undo
// history does not survive; only canonical game state does.
func (m *Manager) Restore(ctx context.Context) error {
	tables, err := m.rdb.SMembers(ctx, idxTablesKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, t := range tables {
		table, err := strconv.Atoi(t)
		if err != nil {
			continue
		}
		raw, err := m.rdb.Get(ctx, stateKey(table)).Bytes()
		if err == redis.Nil {
			_ = m.rdb.SRem(ctx, idxTablesKey, t).Err()
			continue
		}
		if err != nil {
			return err
		}
		var g GameState
		if err := json.Unmarshal(raw, &g); err != nil {
			obslog.L().Warn("scorecard_restore_decode_error", zap.Int("table", table), zap.Error(err))
			continue
		}

		var opts []undo.Option
		if m.maxHistory > 0 {
			opts = append(opts, undo.WithMaxHistory(m.maxHistory))
		}
		s := NewSession(table, g.MatchID, g.GameNum, g.Team1Name, g.Team2Name, opts...)
		s.restoreState(g)
		s.onChange = m.changed

		m.mu.Lock()
		m.sessions[table] = s
		m.mu.Unlock()

		obslog.L().Info("scorecard_session_restore",
			zap.Int("table", table),
			zap.String("session_id", g.SessionID),
		)
	}
	return nil
}

// changed persists the new state and forwards it downstream. Runs on the
// mutating caller's goroutine with the session lock held, so it only touches
// the state copy.
func (m *Manager) changed(g GameState) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.persist(ctx, g); err != nil {
		obslog.L().Error("scorecard_persist_error", zap.Int("table", g.Table), zap.Error(err))
	}
	if m.onChange != nil {
		m.onChange(g)
	}
}

func (m *Manager) persist(ctx context.Context, g GameState) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, stateKey(g.Table), raw, m.ttl)
	pipe.SAdd(ctx, idxTablesKey, strconv.Itoa(g.Table))
	pipe.Expire(ctx, idxTablesKey, m.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

const idxTablesKey = "scorecard:tables"

func stateKey(table int) string { return "scorecard:table:" + strconv.Itoa(table) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
