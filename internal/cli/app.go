// Package cli holds the relay's command line commands.
package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// NewApp builds the relay command tree.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "memory-relay",
		Usage:   "Chat relay with per-user memory for Telegram and the web",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "config-file",
				Value:   "",
				Usage:   "Path to configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Before: func(ctx *cli.Context) error {
			log := logger.NewLogger(logger.Config{
				Level:   logger.ParseLevel(ctx.String("log-level")),
				Format:  ctx.String("log-format"),
				Service: "memory-relay",
				Output:  ctx.App.ErrWriter,
			})
			ctx.App.Metadata = map[string]interface{}{
				"logger": log,
			}
			return nil
		},
		Commands: []*cli.Command{
			ServeCommand(),
			ConfigCommand(),
			MemoryCommand(),
			PersonaCommand(),
			HealthCommand(),
		},
	}
}

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata["logger"].(logger.Logger); ok {
			return log
		}
	}
	return logger.NewNopLogger()
}
