package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"github.com/ligamaster/livematch/config"
	"github.com/ligamaster/livematch/db"
	"github.com/ligamaster/livematch/handlers"
	"github.com/ligamaster/livematch/live"
	"github.com/ligamaster/livematch/repositories"
	api "github.com/ligamaster/livematch/routes"
	"github.com/ligamaster/livematch/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	hub := live.NewHub(cfg.LiveHistorySize, logger)
	logger.Info("live hub initialized", slog.Int("history_size", cfg.LiveHistorySize))

	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	incidentRepo := repositories.NewPostgresIncidentRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	logger.Info("repositories initialized")

	txRunner := repositories.NewTxRunner(dbConn)
	matchLocks := services.NewMatchLocks()
	clk := clockwork.NewRealClock()

	standingsService := services.NewStandingsService(
		txRunner,
		matchRepo,
		incidentRepo,
		standingRepo,
		services.StandingsConfig{WalkoverGoals: cfg.WalkoverGoals},
		logger,
	)
	matchService := services.NewMatchService(
		txRunner,
		matchRepo,
		incidentRepo,
		hub,
		standingsService,
		clk,
		matchLocks,
		logger,
	)
	incidentService := services.NewIncidentService(
		txRunner,
		matchRepo,
		incidentRepo,
		rosterRepo,
		hub,
		clk,
		matchLocks,
		services.LedgerConfig{EventualPlayerCap: cfg.EventualPlayerCap},
		logger,
	)
	logger.Info("services initialized")

	router := api.SetupRoutes(api.Handlers{
		Match:     handlers.NewMatchHandler(matchService),
		Incident:  handlers.NewIncidentHandler(incidentService),
		Standings: handlers.NewStandingsHandler(standingsService),
		Live:      handlers.NewLiveHandler(hub, matchService, logger),
	}, cfg.JWTSecretKey, cfg.CORSAllowedOrigins)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
