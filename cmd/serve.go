package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/app"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/config"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broker (HTTP API + WebSocket endpoint)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	bootstrapLog := log.New("info")

	cfg, cfgPath, err := config.Load(bootstrapLog, configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", cfgPath).Str("addr", cfg.Addr).Msg("starting campuslink broker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
