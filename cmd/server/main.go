// Package main is the entry point for the portfolio rebalancing service.
// The engine itself is a pure computation; this binary wraps it with an
// HTTP API, a Price Source client and a plan audit log.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasfin/rebalancer/internal/clients/pricing"
	"github.com/atlasfin/rebalancer/internal/config"
	"github.com/atlasfin/rebalancer/internal/database"
	"github.com/atlasfin/rebalancer/internal/modules/classify"
	"github.com/atlasfin/rebalancer/internal/modules/history"
	"github.com/atlasfin/rebalancer/internal/modules/planning"
	planninghandlers "github.com/atlasfin/rebalancer/internal/modules/planning/handlers"
	"github.com/atlasfin/rebalancer/internal/modules/synthesis"
	"github.com/atlasfin/rebalancer/internal/server"
	"github.com/atlasfin/rebalancer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Int("port", cfg.Port).Msg("Starting rebalancer")

	historyDB, err := database.New(database.Config{
		Path: cfg.HistoryDBPath(),
		Name: "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	historyRepo := history.NewRepository(historyDB.Conn(), log)
	if err := historyRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history schema")
	}

	planner := planning.NewPlanner(synthesis.DefaultLotPolicy(), log)
	priceSource := pricing.NewClient(cfg.PricingBaseURL, cfg.PricingTimeout, log)
	classifier := classify.NewClassifier(log)

	handlers := planninghandlers.NewHandler(planner, priceSource, classifier, historyRepo, log)

	srv := server.New(server.Config{
		Log:              log,
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		PlanningHandlers: handlers,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Rebalancer stopped")
}
