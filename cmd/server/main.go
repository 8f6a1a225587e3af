// soupd - turtle-soup deduction game server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/konpigg/soupd/internal/api"
	"github.com/konpigg/soupd/internal/config"
	"github.com/konpigg/soupd/internal/game"
	"github.com/konpigg/soupd/internal/generator"
	"github.com/konpigg/soupd/internal/identity"
	"github.com/konpigg/soupd/internal/middleware"
	"github.com/konpigg/soupd/internal/oracle"
	"github.com/konpigg/soupd/internal/puzzle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Puzzle store: mutable local corpus plus optional static artifact.
	store := puzzle.NewStore()
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close puzzle store", "error", closeErr)
		}
	}()

	local, err := puzzle.NewLocal(cfg.DBPath, cfg.StorageMaxSize)
	if err != nil {
		slog.Error("Failed to initialize local puzzle database", "error", err)
		os.Exit(1)
	}
	if err := store.Register(cfg.DataDir, local); err != nil {
		slog.Error("Failed to register local namespace", "error", err)
		os.Exit(1)
	}
	slog.Info("Local puzzle database connected", "path", cfg.DBPath)

	if cfg.PuzzlesFile != "" {
		static, err := puzzle.NewStatic(cfg.PuzzlesFile)
		if err != nil {
			slog.Error("Failed to load static puzzle corpus", "error", err, "path", cfg.PuzzlesFile)
			os.Exit(1)
		}
		if err := store.Register(cfg.DataDir, static); err != nil {
			slog.Error("Failed to register static namespace", "error", err)
			os.Exit(1)
		}
		slog.Info("Static puzzle corpus loaded", "path", cfg.PuzzlesFile)
	}

	// Oracle (optional): without credentials the server still serves status
	// and storage endpoints, but games cannot start.
	var judge oracle.Client
	var gen oracle.Generator
	client, err := oracle.NewOpenAI(oracle.OpenAIConfig{
		APIKey:        cfg.OpenAIKey,
		BaseURL:       cfg.OpenAIBaseURL,
		JudgeModel:    cfg.JudgeModel,
		GenerateModel: cfg.GenerateModel,
		Timeout:       cfg.OracleTimeout,
	}, logger)
	if err != nil {
		slog.Warn("Oracle not configured, games cannot start", "error", err)
	} else {
		judge = client
		gen = client
		slog.Info("Oracle configured", "judge_model", cfg.JudgeModel, "generate_model", cfg.GenerateModel)
	}

	svc := game.NewService(store, judge, gen, game.Params{
		TurnTimeout:   cfg.TurnTimeout,
		OracleRetries: cfg.OracleRetries,
		MaxTurns:      cfg.MaxTurns,
	}, nil, logger)

	worker := generator.New(store, gen, generator.Config{
		Enabled:   cfg.Autogen.Enabled,
		StartHour: cfg.Autogen.StartHour,
		EndHour:   cfg.Autogen.EndHour,
		Interval:  cfg.Autogen.Interval,
		Namespace: "local",
	}, logger)

	// Handlers.
	handler := api.NewHandler(svc, store, worker, cfg)
	healthHandler := api.NewHealthHandler(local)
	wsHandler := api.NewWSHandler(svc, cfg.FrontendURL, cfg.IsDevelopment())

	// Router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(!cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)
	r.Get("/ws/game", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // game channels stay open for the whole session
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker.Start(ctx)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	svc.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
