package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	appconfig "github.com/lewisedginton/memory_relay/internal/config"
	"github.com/lewisedginton/memory_relay/internal/server"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// ServeCommand runs the Telegram and web front-ends.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the relay (Telegram polling and HTTP server)",
		Action:  serveAction,
	}
}

func serveAction(ctx *cli.Context) error {
	log := getLogger(ctx)

	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		log.Error("Failed to load configuration", logger.ErrorField(err))
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.LogConfig(log)

	s, err := server.New(ctx.Context, cfg, log)
	if err != nil {
		log.Error("Failed to create server", logger.ErrorField(err))
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := s.Run(ctx.Context); err != nil {
		log.Error("Server exited with error", logger.ErrorField(err))
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}
