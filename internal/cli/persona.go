package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	appconfig "github.com/lewisedginton/memory_relay/internal/config"
	"github.com/lewisedginton/memory_relay/internal/persona_manager"
	"github.com/lewisedginton/memory_relay/internal/server"
	"github.com/lewisedginton/memory_relay/pkg/config"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

type personaConfig struct {
	Persona appconfig.PersonaConfig `yaml:"persona"`
}

func (c personaConfig) Validate() error {
	return c.Persona.Validate()
}

// PersonaCommand shows or replaces the persona text.
func PersonaCommand() *cli.Command {
	return &cli.Command{
		Name:  "persona",
		Usage: "Show or replace the assistant persona",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the persona the relay would use",
				Action: personaShowAction,
			},
			{
				Name:  "set",
				Usage: "Upload a persona file to the configured backend",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Local file to upload", Required: true},
				},
				Action: personaSetAction,
			},
		},
	}
}

func personaManager(ctx *cli.Context) (*persona_manager.PersonaManager, error) {
	log := getLogger(ctx)

	cfg := &personaConfig{}
	if err := config.GetConfig(cfg, ctx.String("config-file"), false); err != nil {
		log.Error("Failed to load configuration", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return server.PersonaManager(ctx.Context, &appconfig.AppConfig{Persona: cfg.Persona}, log)
}

func personaShowAction(ctx *cli.Context) error {
	pm, err := personaManager(ctx)
	if err != nil {
		return err
	}
	persona, source, err := pm.Load(ctx.Context)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.App.Writer, "# source: %s\n%s\n", source, persona)
	return nil
}

func personaSetAction(ctx *cli.Context) error {
	data, err := os.ReadFile(ctx.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read persona file: %w", err)
	}
	pm, err := personaManager(ctx)
	if err != nil {
		return err
	}
	if err := pm.Save(ctx.Context, string(data)); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(ctx.App.Writer, "✅ Persona updated")
	return nil
}
