package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/memory_relay/pkg/config"
)

// Memory modes
const (
	MemoryModeFacts   = "facts"
	MemoryModeHistory = "history"
)

// Fact store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MemoryConfig selects and sizes the per-user memory.
type MemoryConfig struct {
	Mode string `env:"MEMORY_MODE" yaml:"mode" default:"facts"`
	// RecordFailures keeps failed exchanges (with the apology) in history mode.
	RecordFailures bool `env:"MEMORY_RECORD_FAILURES" yaml:"record_failures"`
	HistoryTurns   int  `env:"HISTORY_TURNS" yaml:"history_turns" default:"10"`
	RenderTurns    int  `env:"HISTORY_RENDER_TURNS" yaml:"render_turns" default:"5"`
	MaxUsers       int  `env:"HISTORY_MAX_USERS" yaml:"max_users" default:"10000"`
}

func (c MemoryConfig) Validate() error {
	var result error
	if c.Mode != MemoryModeFacts && c.Mode != MemoryModeHistory {
		result = multierror.Append(result, fmt.Errorf("memory mode must be either 'facts' or 'history', got %q", c.Mode))
	}
	if c.HistoryTurns <= 0 {
		result = multierror.Append(result, fmt.Errorf("history_turns must be greater than 0"))
	}
	if c.RenderTurns <= 0 || c.RenderTurns > c.HistoryTurns {
		result = multierror.Append(result, fmt.Errorf("render_turns must be between 1 and history_turns (%d), got %d", c.HistoryTurns, c.RenderTurns))
	}
	if c.MaxUsers <= 0 {
		result = multierror.Append(result, fmt.Errorf("history max_users must be greater than 0"))
	}
	return result
}

// FactStoreConfig holds the durable fact store configuration.
type FactStoreConfig struct {
	Driver     string                `env:"STORE_DRIVER" yaml:"driver" default:"sqlite"`
	SQLitePath string                `env:"STORE_SQLITE_PATH" yaml:"sqlite_path" default:"./data/memory.db"`
	Postgres   config.DatabaseConfig `yaml:"postgres"`
}

func (c FactStoreConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("STORE_SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("fact store driver must be one of [sqlite, postgres, memory], got %q", c.Driver)
	}
	return nil
}
