package achievements

// Achievement is a badge a player can earn. Requirement is interpreted per
// RequirementType; Points feed the achievement leaderboard.
type Achievement struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Icon            string `json:"icon"`
	Category        string `json:"category"`
	Tier            string `json:"tier"`
	Requirement     int    `json:"requirement"`
	RequirementType string `json:"requirement_type"`
	Points          int    `json:"points"`
}

// Categories and tiers.
const (
	CategoryMilestone = "milestone"
	CategorySkill     = "skill"
	CategoryStreak    = "streak"
	CategorySpecial   = "special"

	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// Requirement types driving progress calculation.
const (
	ReqGamesPlayed    = "games_played"
	ReqGamesWon       = "games_won"
	ReqWinStreak      = "win_streak"
	ReqGoldenBreaks   = "golden_breaks"
	ReqEightBallSinks = "eight_ball_sinks"
	ReqTotalPoints    = "total_points"
	// win_rate_<minGames> requires the percentage with a minimum game count.
	reqWinRatePrefix = "win_rate_"
)

// Catalog is every achievement the league awards, in display order.
var Catalog = []Achievement{
	{"first_game", "First Steps", "Play your first game", "🎱", CategoryMilestone, TierBronze, 1, ReqGamesPlayed, 10},
	{"games_10", "Getting Started", "Play 10 games", "🎯", CategoryMilestone, TierBronze, 10, ReqGamesPlayed, 25},
	{"games_25", "Regular", "Play 25 games", "⭐", CategoryMilestone, TierSilver, 25, ReqGamesPlayed, 50},
	{"games_50", "Dedicated", "Play 50 games", "🌟", CategoryMilestone, TierSilver, 50, ReqGamesPlayed, 100},
	{"games_100", "Century Club", "Play 100 games", "💯", CategoryMilestone, TierGold, 100, ReqGamesPlayed, 200},
	{"games_250", "League Veteran", "Play 250 games", "🏅", CategoryMilestone, TierGold, 250, ReqGamesPlayed, 500},
	{"games_500", "Pool Legend", "Play 500 games", "👑", CategoryMilestone, TierPlatinum, 500, ReqGamesPlayed, 1000},

	{"first_win", "Winner!", "Win your first game", "🏆", CategoryMilestone, TierBronze, 1, ReqGamesWon, 15},
	{"wins_10", "On a Roll", "Win 10 games", "🔥", CategoryMilestone, TierBronze, 10, ReqGamesWon, 30},
	{"wins_25", "Competitor", "Win 25 games", "💪", CategoryMilestone, TierSilver, 25, ReqGamesWon, 75},
	{"wins_50", "Champion", "Win 50 games", "🏆", CategoryMilestone, TierSilver, 50, ReqGamesWon, 150},
	{"wins_100", "Master", "Win 100 games", "🎖️", CategoryMilestone, TierGold, 100, ReqGamesWon, 300},
	{"wins_200", "Grandmaster", "Win 200 games", "👑", CategoryMilestone, TierPlatinum, 200, ReqGamesWon, 600},

	{"streak_3", "Hat Trick", "Win 3 games in a row", "🎩", CategoryStreak, TierBronze, 3, ReqWinStreak, 30},
	{"streak_5", "Hot Hand", "Win 5 games in a row", "🔥", CategoryStreak, TierSilver, 5, ReqWinStreak, 75},
	{"streak_7", "Unstoppable", "Win 7 games in a row", "💥", CategoryStreak, TierGold, 7, ReqWinStreak, 150},
	{"streak_10", "Legendary Streak", "Win 10 games in a row", "⚡", CategoryStreak, TierPlatinum, 10, ReqWinStreak, 300},

	{"first_golden", "Golden!", "Get your first Golden Break", "✨", CategorySkill, TierSilver, 1, ReqGoldenBreaks, 50},
	{"golden_3", "Golden Touch", "Get 3 Golden Breaks", "🌟", CategorySkill, TierGold, 3, ReqGoldenBreaks, 100},
	{"golden_5", "Midas", "Get 5 Golden Breaks", "👑", CategorySkill, TierPlatinum, 5, ReqGoldenBreaks, 200},
	{"golden_10", "Golden God", "Get 10 Golden Breaks", "🏆", CategorySkill, TierPlatinum, 10, ReqGoldenBreaks, 500},

	{"eight_ball_10", "8-Ball Expert", "Legally sink the 8-ball 10 times", "🎱", CategorySkill, TierBronze, 10, ReqEightBallSinks, 25},
	{"eight_ball_25", "8-Ball Master", "Legally sink the 8-ball 25 times", "🎱", CategorySkill, TierSilver, 25, ReqEightBallSinks, 75},
	{"eight_ball_50", "8-Ball Legend", "Legally sink the 8-ball 50 times", "🎱", CategorySkill, TierGold, 50, ReqEightBallSinks, 150},

	{"points_100", "Point Scorer", "Accumulate 100 total points", "💎", CategoryMilestone, TierBronze, 100, ReqTotalPoints, 20},
	{"points_500", "Point Collector", "Accumulate 500 total points", "💎", CategoryMilestone, TierSilver, 500, ReqTotalPoints, 75},
	{"points_1000", "Point Master", "Accumulate 1000 total points", "💎", CategoryMilestone, TierGold, 1000, ReqTotalPoints, 200},
	{"points_2500", "Point Legend", "Accumulate 2500 total points", "💎", CategoryMilestone, TierPlatinum, 2500, ReqTotalPoints, 500},

	{"winrate_60", "Above Average", "Maintain 60%+ win rate (min 20 games)", "📈", CategorySkill, TierBronze, 60, "win_rate_20", 50},
	{"winrate_70", "Skilled Player", "Maintain 70%+ win rate (min 30 games)", "📈", CategorySkill, TierSilver, 70, "win_rate_30", 100},
	{"winrate_80", "Elite Player", "Maintain 80%+ win rate (min 50 games)", "📈", CategorySkill, TierGold, 80, "win_rate_50", 250},

	{"comeback_king", "Comeback King", "Win a match after losing the first game", "👑", CategorySpecial, TierSilver, 1, "comeback_win", 75},
	{"dynamic_duo", "Dynamic Duo", "Win 10 games with the same partner", "🤝", CategorySpecial, TierSilver, 10, "partner_wins", 75},
	{"perfect_partners", "Perfect Partners", "Win 25 games with the same partner", "💫", CategorySpecial, TierGold, 25, "partner_wins", 200},
}

// ByID indexes the catalog.
var ByID = func() map[string]Achievement {
	m := make(map[string]Achievement, len(Catalog))
	for _, a := range Catalog {
		m[a.ID] = a
	}
	return m
}()

// Tier colors for overlay display.
var TierColors = map[string]string{
	TierBronze:   "#CD7F32",
	TierSilver:   "#C0C0C0",
	TierGold:     "#FFD700",
	TierPlatinum: "#E5E4E2",
}
