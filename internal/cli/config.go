package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	appconfig "github.com/lewisedginton/memory_relay/internal/config"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// ConfigCommand returns a command for configuration operations
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Configuration operations",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate configuration",
				Action: configValidateAction,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets hidden",
				Action: configShowAction,
			},
		},
	}
}

func loadAppConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		getLogger(ctx).Error("Configuration validation failed", logger.ErrorField(err))
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func configValidateAction(ctx *cli.Context) error {
	log := getLogger(ctx)
	log.Info("Validating configuration")

	cfg, err := loadAppConfig(ctx)
	if err != nil {
		return err
	}

	log.Info("Configuration validation passed")
	_, _ = fmt.Fprintf(ctx.App.Writer, "✅ Configuration is valid (provider=%s model=%s memory=%s)\n",
		cfg.LLM.Provider, cfg.ModelName(), cfg.Memory.Mode)
	return nil
}

func configShowAction(ctx *cli.Context) error {
	cfg, err := loadAppConfig(ctx)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
