package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"welfare-agent/internal/cli"
	"welfare-agent/internal/config"
)

func main() {
	configPath, err := cli.DefaultConfigPath()
	if err != nil {
		slog.Error("failed to resolve config path", "err", err)
		os.Exit(1)
	}

	var logOut io.Writer = io.Discard
	if os.Getenv("WELFARE_DEBUG") != "" {
		logOut = os.Stderr
	}
	logger := config.NewLogger(logOut, slog.LevelInfo)

	root := cli.NewRootCommand(cli.OpenSession(logger), configPath)
	if err := cli.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
