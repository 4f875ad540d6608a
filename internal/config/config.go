package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	HTTPAddr string

	LeagueName string

	RedisURL    string
	DatabaseURL string

	MaxUndoHistory  int
	ScorecardTTLSec int
	MatchBestOf     int

	ReactionDisplaySec  int
	ReactionMax         int
	ReactionTemplateDir string

	NgrokEnabled   bool
	NgrokPath      string
	NgrokAuthToken string
	NgrokAPIAddr   string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:           ":8080",
		LeagueName:         "EcoPOOL League",
		MaxUndoHistory:     50,
		ScorecardTTLSec:    86400,
		MatchBestOf:        3,
		ReactionDisplaySec: 5,
		ReactionMax:        20,
		NgrokPath:          "ngrok",
		NgrokAPIAddr:       "127.0.0.1:4040",
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LEAGUE_NAME")); v != "" {
		cfg.LeagueName = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("MAX_UNDO_HISTORY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxUndoHistory = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCORECARD_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScorecardTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_BEST_OF")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n%2 == 1 {
			cfg.MatchBestOf = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REACTION_DISPLAY_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReactionDisplaySec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REACTION_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReactionMax = n
		}
	}
	cfg.ReactionTemplateDir = strings.TrimSpace(os.Getenv("REACTION_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("NGROK_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.NgrokEnabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("NGROK_PATH")); v != "" {
		cfg.NgrokPath = v
	}
	cfg.NgrokAuthToken = strings.TrimSpace(os.Getenv("NGROK_AUTHTOKEN"))
	if v := strings.TrimSpace(os.Getenv("NGROK_API_ADDR")); v != "" {
		cfg.NgrokAPIAddr = v
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
