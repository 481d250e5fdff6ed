package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"welfare-agent/internal/app"
	"welfare-agent/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	// ---- Handler ----
	h, err := app.NewHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
