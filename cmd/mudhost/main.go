// Package main provides the mudhost binary: a Telnet-facing host for
// small multiplayer dungeons with optional PostgreSQL snapshots.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudhost/internal/config"
	"github.com/cory-johannsen/mudhost/internal/frontend/handlers"
	"github.com/cory-johannsen/mudhost/internal/frontend/telnet"
	"github.com/cory-johannsen/mudhost/internal/game/world"
	"github.com/cory-johannsen/mudhost/internal/gameserver"
	"github.com/cory-johannsen/mudhost/internal/observability"
	"github.com/cory-johannsen/mudhost/internal/server"
	"github.com/cory-johannsen/mudhost/internal/storage"
	"github.com/cory-johannsen/mudhost/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	templatesDir := flag.String("templates", "", "override the dungeon template directory")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	dir := cfg.Game.TemplatesDir
	if *templatesDir != "" {
		dir = *templatesDir
	}
	tmplStart := time.Now()
	templates, err := world.LoadTemplatesFromDir(dir)
	if err != nil {
		logger.Fatal("loading dungeon templates", zap.Error(err))
	}
	logger.Info("dungeon templates loaded",
		zap.Int("count", len(templates)),
		zap.String("dir", dir),
		zap.Duration("elapsed", time.Since(tmplStart)),
	)

	// Connect to PostgreSQL for snapshot persistence, when enabled.
	var (
		store storage.Store
		pool  *postgres.Pool
	)
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewSnapshotRepository(pool.DB())
	} else {
		logger.Info("snapshot persistence disabled, running memory-only")
	}

	svc, err := gameserver.NewService(cfg.Game, templates, store, logger)
	if err != nil {
		logger.Fatal("creating game service", zap.Error(err))
	}
	// Restore or build the dungeon registry before accepting players.
	if err := svc.Start(ctx); err != nil {
		logger.Fatal("starting game service", zap.Error(err))
	}

	handler := handlers.NewPlayerHandler(cfg.Server.Name, cfg.Game, svc, logger)
	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)

	// Wire lifecycle: stop order is telnet first (no new input), then
	// the game service (snapshots), then the database pool.
	lifecycle := server.NewLifecycle(logger)

	if pool != nil {
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				for {
					time.Sleep(30 * time.Second)
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			},
			StopFn: func() {
				pool.Close()
			},
		})
	}

	lifecycle.Add("game", &server.FuncService{
		StartFn: func() error {
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := svc.Shutdown(shutdownCtx); err != nil {
				logger.Error("saving snapshots on shutdown", zap.Error(err))
			}
		},
	})

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("mudhost initialized",
		zap.String("server", cfg.Server.Name),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
