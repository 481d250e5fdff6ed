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

	"github.com/gin-gonic/gin"

	"welfare-agent/internal/app"
	"welfare-agent/internal/config"
)

func gracefulShutdown(srv *http.Server, logger *slog.Logger, done chan<- struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}
	close(done)
}

func main() {
	ctx := context.Background()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "err", err)
		os.Exit(1)
	}
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	h, err := app.NewHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h.Router(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	done := make(chan struct{})
	go gracefulShutdown(srv, logger, done)

	logger.Info("listening", "addr", srv.Addr, "model", cfg.Model, "liveModel", cfg.OpenAIAPIKey != "" || cfg.ParamPrefix != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", "err", err)
		os.Exit(1)
	}

	<-done
	logger.Info("server exited")
}
