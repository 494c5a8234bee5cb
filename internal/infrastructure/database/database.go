// Package database manages the embedded SQLite store backing the event
// journal. WAL mode keeps journal appends from blocking reads; a single
// connection avoids SQLITE_BUSY churn on a store this small.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spriggler/sprig-core/internal/infrastructure/config"
)

// DB wraps the SQL connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the SQLite database at the configured
// path and verifies connectivity.
//
// Parameters:
//   - cfg: Database configuration (path, WAL mode, busy timeout)
//
// Returns:
//   - *DB: Open database handle
//   - error: If the directory cannot be created or the database opened
func Open(cfg config.DatabaseConfig) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := cfg.Path + "?_busy_timeout=" + fmt.Sprint(cfg.BusyTimeout*1000)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL"
	}

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer connection; SQLite serialises writes anyway.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{conn: conn, path: cfg.Path}, nil
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// HealthCheck verifies the database responds to a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
