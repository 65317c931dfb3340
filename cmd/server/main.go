package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/income-trader/internal/config"
	"github.com/aristath/income-trader/internal/database"
	"github.com/aristath/income-trader/internal/modules/optimization"
	"github.com/aristath/income-trader/internal/modules/universe"
	"github.com/aristath/income-trader/internal/scheduler"
	"github.com/aristath/income-trader/internal/server"
	"github.com/aristath/income-trader/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Income Trader")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Seed the default universe on first start
	securityRepo := universe.NewSecurityRepository(db.Conn(), log)
	if err := securityRepo.SeedDefaults(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed universe")
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	snapshotJob := scheduler.NewPlanSnapshotJob(scheduler.PlanSnapshotConfig{
		Service:          optimization.NewService(log),
		SecurityRepo:     securityRepo,
		SnapshotRepo:     optimization.NewSnapshotRepository(db.Conn(), log),
		Budget:           cfg.DefaultBudget,
		MaxConcentration: cfg.MaxConcentration,
		Log:              log,
	})
	// Nightly, after market close
	if err := sched.AddJob("0 0 2 * * *", snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	if err := sched.RunNow(snapshotJob); err != nil {
		log.Warn().Err(err).Msg("Initial plan snapshot failed")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		Config:  cfg,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
