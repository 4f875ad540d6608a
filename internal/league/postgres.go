package league

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRepository stores league data in PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	r := &PostgresRepository{db: db}
	if err := r.initSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			venmo TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			team1_player1_id BIGINT NOT NULL REFERENCES players(id),
			team1_player2_id BIGINT REFERENCES players(id),
			team2_player1_id BIGINT NOT NULL REFERENCES players(id),
			team2_player2_id BIGINT REFERENCES players(id),
			table_number INT NOT NULL DEFAULT 1,
			best_of INT NOT NULL DEFAULT 3,
			is_finals BOOLEAN NOT NULL DEFAULT FALSE,
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id),
			game_number INT NOT NULL,
			team1_score INT NOT NULL DEFAULT 0,
			team2_score INT NOT NULL DEFAULT 0,
			team1_group TEXT NOT NULL DEFAULT '',
			ball_states TEXT NOT NULL DEFAULT '{}',
			winner_team INT NOT NULL DEFAULT 0,
			golden_break BOOLEAN NOT NULL DEFAULT FALSE,
			early_8ball_team INT NOT NULL DEFAULT 0,
			breaking_team INT NOT NULL DEFAULT 1,
			UNIQUE(match_id, game_number)
		)`,
		`CREATE TABLE IF NOT EXISTS player_streaks (
			player_id BIGINT PRIMARY KEY REFERENCES players(id),
			current_win_streak INT NOT NULL DEFAULT 0,
			max_win_streak INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS player_achievements (
			player_id BIGINT NOT NULL REFERENCES players(id),
			achievement_id TEXT NOT NULL,
			unlocked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (player_id, achievement_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) CreatePlayer(ctx context.Context, name, email, venmo string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO players (name, email, venmo) VALUES ($1,$2,$3)
		 ON CONFLICT (name) DO NOTHING RETURNING id`,
		name, strings.TrimSpace(email), strings.TrimSpace(venmo),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNameTaken
	}
	return id, err
}

func (r *PostgresRepository) UpdatePlayer(ctx context.Context, id int64, name, email, venmo string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE players SET name=$2, email=$3, venmo=$4 WHERE id=$1`,
		id, name, strings.TrimSpace(email), strings.TrimSpace(venmo))
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// DeactivatePlayer is a soft delete; history referencing the player stays.
func (r *PostgresRepository) DeactivatePlayer(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE players SET active=FALSE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *PostgresRepository) Player(ctx context.Context, id int64) (Player, error) {
	var p Player
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, venmo, active, created_at FROM players WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Venmo, &p.Active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, err
	}
	byID := map[int64]*Player{p.ID: &p}
	if err := r.foldStats(ctx, byID); err != nil {
		return Player{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Players(ctx context.Context, activeOnly bool) ([]Player, error) {
	q := `SELECT id, name, email, venmo, active, created_at FROM players`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	byID := make(map[int64]*Player)
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Venmo, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range players {
		byID[players[i].ID] = &players[i]
	}
	if err := r.foldStats(ctx, byID); err != nil {
		return nil, err
	}
	return players, nil
}

// foldStats derives stats for the given players from all finished games in
// one query, mirroring the batch computation the desktop app settled on.
func (r *PostgresRepository) foldStats(ctx context.Context, byID map[int64]*Player) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.team1_player1_id, COALESCE(m.team1_player2_id, 0),
		       m.team2_player1_id, COALESCE(m.team2_player2_id, 0),
		       g.team1_score, g.team2_score, g.winner_team,
		       g.golden_break, g.early_8ball_team, g.breaking_team
		FROM matches m
		JOIN games g ON g.match_id = m.id
		WHERE g.winner_team > 0`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m Match
		var g Game
		if err := rows.Scan(
			&m.Team1Player1, &m.Team1Player2, &m.Team2Player1, &m.Team2Player2,
			&g.Team1Score, &g.Team2Score, &g.WinnerTeam,
			&g.GoldenBreak, &g.EarlyEightTeam, &g.BreakingTeam,
		); err != nil {
			return err
		}
		accumulateStats(byID, m, g)
	}
	return rows.Err()
}

func (r *PostgresRepository) CreateMatch(ctx context.Context, m Match) (int64, error) {
	if m.Team1Player1 == 0 || m.Team2Player1 == 0 {
		return 0, ErrBadMatch
	}
	if m.BestOf <= 0 {
		m.BestOf = 3
	}
	if m.Table <= 0 {
		m.Table = 1
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches
		   (team1_player1_id, team1_player2_id, team2_player1_id, team2_player2_id,
		    table_number, best_of, is_finals)
		 VALUES ($1, NULLIF($2, 0), $3, NULLIF($4, 0), $5, $6, $7)
		 RETURNING id`,
		m.Team1Player1, m.Team1Player2, m.Team2Player1, m.Team2Player2,
		m.Table, m.BestOf, m.IsFinals,
	).Scan(&id)
	return id, err
}

func (r *PostgresRepository) Match(ctx context.Context, id int64) (Match, error) {
	var m Match
	var p2, p4 sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, team1_player1_id, team1_player2_id, team2_player1_id, team2_player2_id,
		        table_number, best_of, is_finals, is_complete, created_at
		 FROM matches WHERE id=$1`, id,
	).Scan(&m.ID, &m.Team1Player1, &p2, &m.Team2Player1, &p4,
		&m.Table, &m.BestOf, &m.IsFinals, &m.Complete, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return Match{}, ErrNotFound
	}
	if err != nil {
		return Match{}, err
	}
	m.Team1Player2 = p2.Int64
	m.Team2Player2 = p4.Int64
	return m, nil
}

func (r *PostgresRepository) Matches(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, team1_player1_id, team1_player2_id, team2_player1_id, team2_player2_id,
		        table_number, best_of, is_finals, is_complete, created_at
		 FROM matches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var p2, p4 sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Team1Player1, &p2, &m.Team2Player1, &p4,
			&m.Table, &m.BestOf, &m.IsFinals, &m.Complete, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Team1Player2 = p2.Int64
		m.Team2Player2 = p4.Int64
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CompleteMatch(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE matches SET is_complete=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *PostgresRepository) CreateGame(ctx context.Context, matchID int64, gameNum, breakingTeam int) (int64, error) {
	if breakingTeam != 2 {
		breakingTeam = 1
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM matches WHERE id=$1)`, matchID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO games (match_id, game_number, breaking_team) VALUES ($1,$2,$3)
		 ON CONFLICT (match_id, game_number) DO UPDATE SET breaking_team=EXCLUDED.breaking_team
		 RETURNING id`,
		matchID, gameNum, breakingTeam,
	).Scan(&id)
	return id, err
}

// SaveGame upserts the full game state keyed by (match_id, game_number).
func (r *PostgresRepository) SaveGame(ctx context.Context, g Game) error {
	balls, err := json.Marshal(g.BallStates)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO games (
		   match_id, game_number, team1_score, team2_score, team1_group,
		   ball_states, winner_team, golden_break, early_8ball_team, breaking_team
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (match_id, game_number) DO UPDATE SET
		   team1_score=EXCLUDED.team1_score,
		   team2_score=EXCLUDED.team2_score,
		   team1_group=EXCLUDED.team1_group,
		   ball_states=EXCLUDED.ball_states,
		   winner_team=EXCLUDED.winner_team,
		   golden_break=EXCLUDED.golden_break,
		   early_8ball_team=EXCLUDED.early_8ball_team,
		   breaking_team=EXCLUDED.breaking_team`,
		g.MatchID, g.GameNum, g.Team1Score, g.Team2Score, g.Team1Group,
		string(balls), g.WinnerTeam, g.GoldenBreak, g.EarlyEightTeam, g.BreakingTeam)
	return err
}

func (r *PostgresRepository) GamesForMatch(ctx context.Context, matchID int64) ([]Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, game_number, team1_score, team2_score, team1_group,
		        ball_states, winner_team, golden_break, early_8ball_team, breaking_team
		 FROM games WHERE match_id=$1 ORDER BY game_number`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		var g Game
		var balls string
		if err := rows.Scan(&g.ID, &g.MatchID, &g.GameNum, &g.Team1Score, &g.Team2Score,
			&g.Team1Group, &balls, &g.WinnerTeam, &g.GoldenBreak,
			&g.EarlyEightTeam, &g.BreakingTeam); err != nil {
			return nil, err
		}
		if balls != "" {
			if err := json.Unmarshal([]byte(balls), &g.BallStates); err != nil {
				return nil, fmt.Errorf("decode ball states: %w", err)
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Streak(ctx context.Context, playerID int64) (Streak, error) {
	s := Streak{PlayerID: playerID}
	err := r.db.QueryRowContext(ctx,
		`SELECT current_win_streak, max_win_streak FROM player_streaks WHERE player_id=$1`,
		playerID,
	).Scan(&s.Current, &s.Max)
	if err == sql.ErrNoRows {
		return s, nil
	}
	return s, err
}

func (r *PostgresRepository) SaveStreak(ctx context.Context, s Streak) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO player_streaks (player_id, current_win_streak, max_win_streak)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (player_id) DO UPDATE SET
		   current_win_streak=EXCLUDED.current_win_streak,
		   max_win_streak=EXCLUDED.max_win_streak`,
		s.PlayerID, s.Current, s.Max)
	return err
}

func (r *PostgresRepository) Unlocks(ctx context.Context, playerID int64) ([]Unlock, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT achievement_id, unlocked_at FROM player_achievements
		 WHERE player_id=$1 ORDER BY unlocked_at`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Unlock
	for rows.Next() {
		u := Unlock{PlayerID: playerID}
		if err := rows.Scan(&u.AchievementID, &u.UnlockedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) RecordUnlock(ctx context.Context, playerID int64, achievementID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO player_achievements (player_id, achievement_id)
		 VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		playerID, achievementID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
