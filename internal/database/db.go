package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DB wraps the database connection and provides access to operations
type DB struct {
	conn     *sql.DB
	Accounts *AccountRepository
}

// Config holds database configuration
type Config struct {
	DatabasePath string
}

// NewDB creates a new database connection and runs migrations
func NewDB(config Config) (*DB, error) {
	// Ensure the parent directory exists
	dbDir := filepath.Dir(config.DatabasePath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	connString := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on",
		config.DatabasePath)

	conn, err := sql.Open("sqlite3", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Account reads/writes are rare; keep the pool small.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(15 * time.Minute)

	// Another process holding the file briefly (backup, previous instance
	// shutting down) surfaces as a transient ping failure.
	err = retry.Do(
		conn.Ping,
		retry.Attempts(5),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db := &DB{conn: conn}
	db.Accounts = NewAccountRepository(conn)
	return db, nil
}

// runMigrations runs database migrations using Goose
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	currentVersion, err := goose.GetDBVersion(db)
	if err != nil {
		currentVersion = 0
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run account migrations: %w", err)
	}

	newVersion, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to verify migration version: %w", err)
	}
	slog.Info("database.migrated", "from", currentVersion, "to", newVersion)

	// Verify that the accounts table exists
	var tableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='accounts'").Scan(&tableName)
	if err != nil {
		return fmt.Errorf("migration verification failed: accounts table does not exist: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Connection returns the underlying database connection
func (db *DB) Connection() *sql.DB {
	return db.conn
}
