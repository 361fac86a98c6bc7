package fact_store //nolint:revive // var-naming

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// SQLiteStore keeps facts in a single SQLite file. One connection is kept
// open so writes are serialized by database/sql.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates it.
func NewSQLiteStore(ctx context.Context, path string, log logger.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	// migrate closes the handle it is given, so it gets its own
	migrationDB, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite for migration: %w", err)
	}
	driver, err := sqlite3.WithInstance(migrationDB, &sqlite3.Config{})
	if err != nil {
		_ = migrationDB.Close()
		return nil, fmt.Errorf("create sqlite migration driver: %w", err)
	}
	if err := runMigrations("sqlite", driver, log); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	log.Info("Fact store ready", logger.StringField("path", path))
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UTC())
	return storeErr("put", userID, err)
}

func (s *SQLiteStore) GetAll(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM memories WHERE user_id = ? ORDER BY key`, userID)
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

func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE user_id = ?`, userID)
	return storeErr("clear", userID, err)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
