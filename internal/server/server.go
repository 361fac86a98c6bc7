// Package server wires the relay's components together and runs them.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/lewisedginton/memory_relay/internal/completion_gateway"
	appconfig "github.com/lewisedginton/memory_relay/internal/config"
	"github.com/lewisedginton/memory_relay/internal/connectors/telegram"
	"github.com/lewisedginton/memory_relay/internal/connectors/web"
	"github.com/lewisedginton/memory_relay/internal/fact_store"
	"github.com/lewisedginton/memory_relay/internal/history_store"
	"github.com/lewisedginton/memory_relay/internal/monitoring"
	"github.com/lewisedginton/memory_relay/internal/persona_manager"
	"github.com/lewisedginton/memory_relay/internal/session_orchestrator"
	"github.com/lewisedginton/memory_relay/internal/storage_manager"
	"github.com/lewisedginton/memory_relay/pkg/logger"
	"github.com/lewisedginton/memory_relay/pkg/metrics"
)

// Server encapsulates all the relay components and lifecycle management
type Server struct {
	cfg          *appconfig.AppConfig
	log          logger.Logger
	metrics      *metrics.Metrics
	store        fact_store.Store
	orchestrator *session_orchestrator.Orchestrator
	health       *monitoring.HealthMonitor
	telegram     *telegram.Connector
	web          *web.Server
}

// New creates a new Server instance with all components initialized
//
//nolint:revive // cognitive-complexity: Server initialization requires sequential component setup
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(cfg.Metrics.EnableHTTPMetrics, log),
	}

	persona, err := LoadPersona(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	memory, err := s.createMemoryProvider(ctx)
	if err != nil {
		return nil, err
	}

	gateway, err := s.createGateway(ctx)
	if err != nil {
		s.closeStore()
		return nil, err
	}

	s.orchestrator, err = session_orchestrator.New(session_orchestrator.Config{
		Persona:  persona,
		Memory:   memory,
		Gateway:  gateway,
		Logger:   log,
		Failures: s.metrics,
	})
	if err != nil {
		s.closeStore()
		return nil, fmt.Errorf("failed to create session orchestrator: %w", err)
	}
	s.metrics.AddCustomMetric(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "usage_total",
		Help:      "Completion attempts since start.",
	}, func() float64 { return float64(s.orchestrator.Usage()) }))

	if cfg.Telegram.Enabled {
		s.telegram, err = telegram.NewConnector(telegram.Config{
			BotToken: cfg.Telegram.BotToken,
			Debug:    cfg.Telegram.Debug,
			Logger:   log,
			Observer: s.metrics,
			Provider: cfg.LLM.Provider,
		}, s.orchestrator)
		if err != nil {
			s.closeStore()
			return nil, fmt.Errorf("failed to create Telegram connector: %w", err)
		}
	}

	healthCfg := monitoring.Config{
		Logger:           log,
		CompletionAPIURL: cfg.Health.CompletionAPIURL,
		Timeout:          cfg.Health.Timeout,
		FailureThreshold: cfg.Health.FailureThreshold,
	}
	if s.store != nil {
		healthCfg.FactStore = s.store
	}
	if s.telegram != nil {
		healthCfg.TelegramConnector = s.telegram
	}
	s.health = monitoring.NewHealthMonitor(healthCfg)

	s.web, err = web.NewServer(web.Config{
		HTTP:          cfg.HTTP,
		Logger:        log,
		Metrics:       s.metrics,
		ExposeMetrics: cfg.Metrics.ExposeMetrics,
		Health:        s.health,
	}, s.orchestrator)
	if err != nil {
		s.closeStore()
		return nil, fmt.Errorf("failed to create web server: %w", err)
	}

	return s, nil
}

// Run starts every front-end and blocks until SIGINT/SIGTERM or the first
// component failure.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer s.closeStore()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("Shutdown requested")
		s.health.MarkShuttingDown()
		return nil
	})

	g.Go(func() error { return s.web.Start(ctx) })

	if s.telegram != nil {
		g.Go(func() error {
			botInfo, err := s.telegram.GetBotInfo(ctx)
			if err != nil {
				s.log.Warn("Failed to get Telegram bot info", logger.ErrorField(err))
			} else {
				s.log.Info("Telegram bot connected",
					logger.StringField("bot_username", botInfo.Username),
					logger.StringField("bot_first_name", botInfo.FirstName))
			}
			return s.telegram.Start(ctx)
		})
	} else {
		s.log.Info("Telegram connector disabled")
	}

	if !s.cfg.Metrics.ExposeMetrics && s.cfg.Metrics.Port > 0 {
		g.Go(func() error { return s.metrics.Listen(ctx, s.cfg.Metrics.Port) })
	}

	err := g.Wait()
	s.log.Info("All components stopped", logger.Int64Field("usage", s.orchestrator.Usage()))
	return err
}

func (s *Server) createMemoryProvider(ctx context.Context) (session_orchestrator.MemoryProvider, error) {
	if s.cfg.Memory.Mode == appconfig.MemoryModeHistory {
		hs, err := history_store.New(history_store.Config{
			MaxTurns: s.cfg.Memory.HistoryTurns,
			MaxUsers: s.cfg.Memory.MaxUsers,
			Logger:   s.log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		s.log.Info("Using rolling conversation history",
			logger.IntField("history_turns", s.cfg.Memory.HistoryTurns),
			logger.IntField("render_turns", s.cfg.Memory.RenderTurns))
		return session_orchestrator.NewHistoryMemory(hs, s.cfg.Memory.RenderTurns, s.cfg.Memory.RecordFailures), nil
	}

	store, err := OpenFactStore(ctx, s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.store = store
	return session_orchestrator.NewFactMemory(store), nil
}

func (s *Server) createGateway(ctx context.Context) (*completion_gateway.Gateway, error) {
	model, err := completion_gateway.NewModel(ctx, ModelConfig(s.cfg, s.log))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}
	s.log.Info("Completion backend ready",
		logger.StringField("provider", model.Provider()),
		logger.StringField("model", s.cfg.ModelName()))

	return completion_gateway.New(model, completion_gateway.Config{
		Timeout:     s.cfg.LLM.Timeout,
		Placeholder: s.cfg.LLM.Placeholder,
		Logger:      s.log,
		Observer:    s.metrics,
	}), nil
}

func (s *Server) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn("Failed to close fact store", logger.ErrorField(err))
	}
	s.store = nil
}

// OpenFactStore opens the configured durable fact store.
func OpenFactStore(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (fact_store.Store, error) {
	store, err := fact_store.New(ctx, fact_store.Config{
		Driver:     cfg.FactStore.Driver,
		SQLitePath: cfg.FactStore.SQLitePath,
		Postgres:   cfg.FactStore.Postgres,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open fact store: %w", err)
	}
	return store, nil
}

// ModelConfig maps the selected provider's settings onto a backend config.
func ModelConfig(cfg *appconfig.AppConfig, log logger.Logger) completion_gateway.ModelConfig {
	mc := completion_gateway.ModelConfig{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.ModelName(),
		MaxTokens: int64(cfg.LLM.MaxTokens),
		Timeout:   cfg.LLM.Timeout,
		Logger:    log,
	}
	switch cfg.LLM.Provider {
	case appconfig.ProviderGemini:
		mc.APIKey = cfg.Gemini.APIKey
		mc.Project = cfg.Gemini.Project
		mc.Region = cfg.Gemini.Region
	case appconfig.ProviderOpenAI:
		mc.APIKey = cfg.OpenAI.APIKey
		mc.BaseURL = cfg.OpenAI.APIBaseURL
	case appconfig.ProviderClaude:
		mc.APIKey = cfg.Anthropic.APIKey
		mc.BaseURL = cfg.Anthropic.APIBaseURL
	}
	return mc
}

// PersonaManager builds the persona manager for the configured backend.
func PersonaManager(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*persona_manager.PersonaManager, error) {
	sm, err := storage_manager.New(ctx, storage_manager.Config{
		Backend: storage_manager.BackendType(cfg.Persona.Backend),
		BaseDir: cfg.Persona.Dir,
		S3: storage_manager.S3Config{
			Bucket: cfg.Persona.S3Bucket,
			Prefix: cfg.Persona.S3Prefix,
			Region: cfg.Persona.S3Region,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create persona storage: %w", err)
	}
	return persona_manager.New(sm.Provider(), cfg.Persona.File, log), nil
}

// LoadPersona reads the persona, falling back to the built-in one.
func LoadPersona(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (string, error) {
	pm, err := PersonaManager(ctx, cfg, log)
	if err != nil {
		return "", err
	}
	persona, source, err := pm.Load(ctx)
	if err != nil {
		return "", err
	}
	log.Info("Persona ready", logger.StringField("source", string(source)), logger.StringField("backend", cfg.Persona.Backend))
	return persona, nil
}
