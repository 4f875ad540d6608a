package web

import (
	"context"
	"sort"

	"github.com/ecopool/league-server/internal/export"
	"github.com/ecopool/league-server/internal/league"
	"github.com/ecopool/league-server/internal/obslog"
	"go.uber.org/zap"
)

// weekSections derives the partners and matchups sheet sections from recent
// matches. Teams are numbered by first appearance, oldest match first.
func weekSections(ctx context.Context, repo league.Repository, matches []league.Match, players map[int64]league.Player) ([]export.Pair, []export.Matchup) {
	ordered := make([]league.Match, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })

	type teamKey struct{ a, b int64 }
	norm := func(p1, p2 int64) teamKey {
		if p2 != 0 && p2 < p1 {
			p1, p2 = p2, p1
		}
		return teamKey{a: p1, b: p2}
	}

	teamNums := make(map[teamKey]int)
	var pairs []export.Pair
	teamNum := func(p1, p2 int64) int {
		key := norm(p1, p2)
		if n, ok := teamNums[key]; ok {
			return n
		}
		n := len(teamNums) + 1
		teamNums[key] = n

		pair := export.Pair{TeamNum: n}
		if p, ok := players[key.a]; ok {
			pair.Player1First, pair.Player1Last = splitName(p.Name)
		}
		if p, ok := players[key.b]; ok {
			pair.Player2First, pair.Player2Last = splitName(p.Name)
		}
		pairs = append(pairs, pair)
		return n
	}

	var matchups []export.Matchup
	for i, m := range ordered {
		t1 := teamNum(m.Team1Player1, m.Team1Player2)
		t2 := teamNum(m.Team2Player1, m.Team2Player2)
		matchups = append(matchups, export.Matchup{SetNum: i + 1, Team1Num: t1, Team2Num: t2})

		games, err := repo.GamesForMatch(ctx, m.ID)
		if err != nil {
			obslog.L().Warn("export_games_error", zap.Int64("match_id", m.ID), zap.Error(err))
			continue
		}
		for _, g := range games {
			if g.WinnerTeam == 0 {
				continue
			}
			recordScore(&pairs[t1-1], g.Team1Score, g.WinnerTeam == 1)
			recordScore(&pairs[t2-1], g.Team2Score, g.WinnerTeam == 2)
		}
	}
	return pairs, matchups
}

func recordScore(p *export.Pair, score int, won bool) {
	p.Scores = append(p.Scores, score)
	p.Total += score
	if won {
		p.Wins++
	} else {
		p.Losses++
	}
}
