// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

const (
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

// Options controls the connection pool.
type Options struct {
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	SlowQueryThreshold time.Duration
}

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	logger        *logging.ChanneledLogger
	slowThreshold time.Duration
}

// Wrap adapts an already opened *sql.DB.
func Wrap(db *sql.DB, logger *logging.ChanneledLogger, slowThreshold time.Duration) *DB {
	return &DB{DB: db, logger: logger, slowThreshold: slowThreshold}
}

// DriverFor picks the driver for a database URL: remote libsql/turso URLs use
// libsql, everything else is a local sqlite file.
func DriverFor(databaseURL string) string {
	for _, prefix := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return DriverLibSQL
		}
	}
	return DriverSQLite
}

// NewConnectionWithLogger establishes a new database connection for the URL with logging.
func NewConnectionWithLogger(ctx context.Context, databaseURL string, opts Options, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	driverName := DriverFor(databaseURL)
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	if driverName == DriverSQLite {
		if err := ensureDirectory(databaseURL); err != nil {
			logger.Database().Error("Failed to create database directory", "error", err.Error())
			return nil, err
		}
	}

	db, err := sql.Open(driverName, databaseURL)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	conn := Wrap(db, logger, opts.SlowQueryThreshold)
	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driverName, "duration", duration)
	conn.CheckSlowQuery("DATABASE_CONNECTION", duration)

	return conn, nil
}

// CheckSlowQuery logs query on the slow query channel when duration exceeds the threshold.
func (db *DB) CheckSlowQuery(query string, duration time.Duration) {
	if db.logger == nil || db.slowThreshold <= 0 {
		return
	}
	if duration > db.slowThreshold {
		db.logger.LogSlowQuery(query, duration)
	}
}

func ensureDirectory(databaseURL string) error {
	path := strings.TrimPrefix(databaseURL, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}
