package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecopool/league-server/internal/achievements"
	appcfg "github.com/ecopool/league-server/internal/config"
	"github.com/ecopool/league-server/internal/league"
	"github.com/ecopool/league-server/internal/obslog"
	"github.com/ecopool/league-server/internal/reactions"
	"github.com/ecopool/league-server/internal/render"
	"github.com/ecopool/league-server/internal/scorecard"
	"github.com/ecopool/league-server/internal/tunnel"
	"github.com/ecopool/league-server/internal/web"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	var repo league.Repository
	if cfg.DatabaseURL != "" {
		pg, perr := league.NewPostgresRepository(cfg.DatabaseURL)
		if perr != nil {
			log.Fatalf("postgres init error: %v", perr)
		}
		repo = pg
	} else {
		obslog.L().Warn("no DATABASE_URL set, league data is in-memory only")
		repo = league.NewMemoryRepository()
	}

	rdb, err := scorecard.Dial(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	cards := scorecard.NewManager(rdb, cfg.ScorecardTTLSec, cfg.MaxUndoHistory)
	rctx, rcancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := cards.Restore(rctx); err != nil {
		obslog.L().Warn("scorecard_restore_error", zap.Error(err))
	}
	rcancel()

	ach := achievements.NewManager(repo)

	cat, err := reactions.NewCatalog(cfg.ReactionTemplateDir)
	if err != nil {
		log.Fatalf("reaction catalog error: %v", err)
	}
	reacts := reactions.NewManager(cat, cfg.ReactionDisplaySec, cfg.ReactionMax)

	srv := web.NewServer(cfg.HTTPAddr, cfg.LeagueName, cfg.MatchBestOf,
		cards, repo, ach, reacts, render.NewTableRenderer(), web.NewHub())
	go func() {
		if err := srv.Start(); err != nil {
			obslog.L().Fatal("web_server_error", zap.Error(err))
		}
	}()

	var tun *tunnel.Tunnel
	if cfg.NgrokEnabled {
		tun = tunnel.New(tunnel.Options{
			BinaryPath: cfg.NgrokPath,
			AuthToken:  cfg.NgrokAuthToken,
			LocalAddr:  localAddr(cfg.HTTPAddr),
			APIAddr:    cfg.NgrokAPIAddr,
		})
		tctx, tcancel := context.WithTimeout(context.Background(), 45*time.Second)
		url, terr := tun.Start(tctx)
		tcancel()
		if terr != nil {
			obslog.L().Warn("tunnel_start_error", zap.Error(terr))
		} else {
			obslog.L().Info("overlay_public", zap.String("url", url))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(sctx); err != nil {
		obslog.L().Warn("shutdown_error", zap.Error(err))
	}
	scancel()
	if tun != nil {
		tun.Stop()
	}
	_ = rdb.Close()
	_ = repo.Close()
}

// localAddr rewrites the listen address into one the tunnel agent can dial.
func localAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
