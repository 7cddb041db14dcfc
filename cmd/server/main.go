package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/peyk-chat/peyk-server/internal/app"
	"github.com/peyk-chat/peyk-server/internal/config"
	"github.com/peyk-chat/peyk-server/internal/log"
)

func main() {
	var (
		configPath string
		overrides  config.Config
	)

	root := &cobra.Command{
		Use:           "peyk-server",
		Short:         "Realtime chat server with phone OTP login",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := log.New("info")

			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting peyk server")

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "path to config file")
	root.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address override")
	root.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.Flags().StringVar(&overrides.DatabasePath, "db", "", "sqlite database path override")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
