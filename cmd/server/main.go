// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Rollcall/internal/cache"
	"github.com/codr1/Rollcall/internal/config"
	"github.com/codr1/Rollcall/internal/db"
	"github.com/codr1/Rollcall/internal/games"
	"github.com/codr1/Rollcall/internal/matchmaking"
	"github.com/codr1/Rollcall/internal/scheduler"
)

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config/app.yaml", "Path to the yaml configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	statsCache, closeCache := openStatsCache(ctx, cfg.Redis)
	defer closeCache()

	defaultMode, err := matchmaking.ParseMode(cfg.Matchmaking.DefaultMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid matchmaking mode")
	}
	gameService := games.NewService(database,
		games.WithStatsCache(statsCache),
		games.WithDefaultMode(defaultMode),
	)

	if err := startScheduler(cfg, gameService); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer func() {
		if err := scheduler.Stop(); err != nil && err != scheduler.ErrNotInitialized {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}()

	server, limiter := newServer(cfg, gameService)
	if limiter != nil {
		defer limiter.Close()
	}

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

// openStatsCache connects to redis when configured. A failed connection falls
// back to the no-op cache so statistics are computed on every request.
func openStatsCache(ctx context.Context, cfg config.RedisConfig) (cache.Stats, func()) {
	if !cfg.Enabled() {
		log.Info().Msg("Redis not configured, team stats are not cached")
		return cache.Noop{}, func() {}
	}
	redisStats, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, team stats are not cached")
		return cache.Noop{}, func() {}
	}
	log.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.StatsTTL).Msg("Team stats cache connected")
	return redisStats, func() {
		if err := redisStats.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}

func startScheduler(cfg *config.Config, gameService *games.Service) error {
	job := cfg.Jobs.LedgerBackfill
	if !job.Enabled {
		log.Info().Msg("Ledger backfill job disabled")
		return nil
	}
	if err := scheduler.Init(); err != nil {
		return err
	}
	if err := scheduler.RegisterLedgerBackfillJob(gameService, job.Cron, job.BatchSize); err != nil {
		return err
	}
	return scheduler.Start()
}
