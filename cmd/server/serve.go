package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatguard-server/internal/app"
	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/log"
)

var overrides config.Config

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat and moderation server",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	f.DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	f.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	f.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")
	f.StringVar(&overrides.Store.Driver, "store", "", "message store driver (sqlite, postgres)")
	f.StringVar(&overrides.Store.DSN, "dsn", "", "database path or connection URL")
	f.StringVar(&overrides.Advisory.Provider, "advisory", "", "advisory provider (none, openai, gemini)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	bootLog := log.New("info", "console")

	cfg, path, err := config.Load(bootLog, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting chatguard server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	if err := application.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
