package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/memory_relay/pkg/config"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

type httpConfig struct {
	HTTP config.HTTPServerConfig `yaml:"http"`
}

// HealthCommand probes a running relay's liveness endpoint.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Perform health check against a running relay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Probe URL (default http://localhost:$HTTP_PORT/health/live)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 3 * time.Second,
				Usage: "Request timeout",
			},
		},
		Action: healthAction,
	}
}

func healthAction(ctx *cli.Context) error {
	log := getLogger(ctx)

	url := ctx.String("url")
	if url == "" {
		cfg := &httpConfig{}
		if err := config.GetConfig(cfg, ctx.String("config-file"), false); err != nil {
			log.Error("Failed to load configuration", logger.ErrorField(err))
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		url = fmt.Sprintf("http://localhost:%d/health/live", cfg.HTTP.Port)
	}

	req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid health url: %w", err)
	}
	client := &http.Client{Timeout: ctx.Duration("timeout")}
	resp, err := client.Do(req)
	if err != nil {
		log.Error("Health check failed", logger.ErrorField(err))
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Error("Health check failed with status", logger.IntField("status_code", resp.StatusCode))
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	log.Info("Health check passed")
	_, _ = fmt.Fprintln(ctx.App.Writer, "✅ Health check passed")
	return nil
}
