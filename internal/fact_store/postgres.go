package fact_store //nolint:revive // var-naming

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lewisedginton/memory_relay/pkg/config"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// PostgresStore keeps facts in a Postgres table behind a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresStore connects, migrates and returns a ready store.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	dsn := cfg.GetConnectionString()

	// migrate closes the handle it is given, so it gets its own
	migrationDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres for migration: %w", err)
	}
	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		_ = migrationDB.Close()
		return nil, fmt.Errorf("create postgres migration driver: %w", err)
	}
	if err := runMigrations("postgres", driver, log); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MinConns = int32(cfg.MinConnections)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.MaxLifetime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info("Fact store ready", logger.IntField("max_connections", cfg.MaxConnections))
	return &PostgresStore{pool: pool, log: log}, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memories (user_id, key, value, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		userID, key, value)
	return storeErr("put", userID, err)
}

func (s *PostgresStore) GetAll(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM memories WHERE user_id = $1 ORDER BY key`, userID)
	if err != nil {
		return nil, storeErr("get_all", userID, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, storeErr("get_all", userID, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("get_all", userID, err)
	}
	return out, nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM memories WHERE user_id = $1`, userID)
	return storeErr("clear", userID, err)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
