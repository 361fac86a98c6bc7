package cli

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	appconfig "github.com/lewisedginton/memory_relay/internal/config"
	"github.com/lewisedginton/memory_relay/internal/fact_store"
	"github.com/lewisedginton/memory_relay/internal/server"
	"github.com/lewisedginton/memory_relay/pkg/config"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// storeConfig is the subset of configuration the offline memory commands
// need, so they run without bot or model credentials.
type storeConfig struct {
	FactStore appconfig.FactStoreConfig `yaml:"fact_store"`
}

func (c storeConfig) Validate() error {
	return c.FactStore.Validate()
}

var userFlag = &cli.StringFlag{
	Name:     "user",
	Aliases:  []string{"u"},
	Usage:    "User id (Telegram numeric id, web visitor id or API user_id)",
	Required: true,
}

// MemoryCommand inspects and clears stored facts.
func MemoryCommand() *cli.Command {
	return &cli.Command{
		Name:    "memory",
		Aliases: []string{"m"},
		Usage:   "Inspect or clear what the relay remembers about a user",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print a user's stored facts",
				Flags:  []cli.Flag{userFlag},
				Action: memoryShowAction,
			},
			{
				Name:   "forget",
				Usage:  "Delete every stored fact for a user",
				Flags:  []cli.Flag{userFlag},
				Action: memoryForgetAction,
			},
		},
	}
}

func openStore(ctx *cli.Context) (fact_store.Store, error) {
	log := getLogger(ctx)

	cfg := &storeConfig{}
	if err := config.GetConfig(cfg, ctx.String("config-file"), false); err != nil {
		log.Error("Failed to load configuration", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return server.OpenFactStore(ctx.Context, &appconfig.AppConfig{FactStore: cfg.FactStore}, log)
}

func memoryShowAction(ctx *cli.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	user := ctx.String("user")
	facts, err := store.GetAll(ctx.Context, user)
	if err != nil {
		return fmt.Errorf("failed to read memories: %w", err)
	}
	if len(facts) == 0 {
		_, _ = fmt.Fprintf(ctx.App.Writer, "No memories for user %s\n", user)
		return nil
	}

	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(ctx.App.Writer, "%s: %s\n", k, facts[k])
	}
	return nil
}

func memoryForgetAction(ctx *cli.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	user := ctx.String("user")
	if err := store.Clear(ctx.Context, user); err != nil {
		return fmt.Errorf("failed to forget user: %w", err)
	}
	getLogger(ctx).Info("Forgot user", logger.UserIDField(user))
	_, _ = fmt.Fprintf(ctx.App.Writer, "Forgot everything about user %s\n", user)
	return nil
}
