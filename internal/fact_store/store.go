// Package fact_store persists durable per-user key/value facts.
package fact_store //nolint:revive // var-naming

import (
	"context"
	"fmt"

	"github.com/lewisedginton/memory_relay/pkg/config"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// Store is a durable (user_id, key) -> value map.
//
// Put is an upsert and is atomic. GetAll returns an empty map for users it
// has never seen. Clear on an unknown user is a no-op.
type Store interface {
	Put(ctx context.Context, userID, key, value string) error
	GetAll(ctx context.Context, userID string) (map[string]string, error)
	Clear(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
	Close() error
}

// StoreError wraps any failure reported by a backend.
type StoreError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("fact store %s (user %s): %v", e.Op, e.UserID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, userID string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, UserID: userID, Err: err}
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Driver     string
	SQLitePath string
	Postgres   config.DatabaseConfig
	Logger     logger.Logger
}

// New opens the configured backend and brings its schema up to date.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	log := cfg.Logger.WithFields(logger.StringField("component", "fact_store"), logger.StringField("driver", cfg.Driver))

	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteStore(ctx, cfg.SQLitePath, log)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.Postgres, log)
	case DriverMemory:
		log.Warn("Using in-memory fact store, facts will not survive a restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported fact store driver %q", cfg.Driver)
	}
}
