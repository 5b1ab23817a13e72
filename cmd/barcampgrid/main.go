package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"barcampgrid/config"
	"barcampgrid/internal/adapters/auth"
	delivery "barcampgrid/internal/delivery/http"
	"barcampgrid/internal/delivery/http/controllers"
	"barcampgrid/internal/delivery/http/hub"
	"barcampgrid/internal/delivery/http/middleware"
	"barcampgrid/internal/repository/postgres"
	"barcampgrid/internal/services"
)

const serviceTimeout = 5 * time.Second

func main() {
	logger := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changeHub := hub.NewHub(logger)
	go changeHub.Run(ctx)

	tokens := auth.NewJWT(cfg.JWTSecret)
	hasher := auth.NewBcryptHasher(12)

	gridService := services.NewGridService(postgres.NewGridRepository(db), changeHub, serviceTimeout)
	authService := services.NewAuthService(postgres.NewUserRepository(db), hasher, tokens, cfg.JWTExpiry)

	mux := delivery.NewRouter(
		controllers.NewGridController(logger, gridService),
		controllers.NewAuthController(logger, authService),
		changeHub,
		tokens,
	)
	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
