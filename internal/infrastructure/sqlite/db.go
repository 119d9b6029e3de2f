// Package sqlite persists per-user element records in a SQLite database.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "modernc.org/sqlite"

	"github.com/zjrosen/pagetypes/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Driver names accepted by NewDBWithDriver.
const (
	// DriverNcruces is the WASM-based driver and the default.
	DriverNcruces = "sqlite3"
	// DriverModernc is the transpiled pure Go driver.
	DriverModernc = "sqlite"
)

const pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"

// DB owns the database connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (creating if needed) the database at path with the default
// driver and applies pending migrations.
func NewDB(path string) (*DB, error) {
	return NewDBWithDriver(path, DriverNcruces)
}

// NewDBWithDriver is NewDB with an explicit database/sql driver name.
func NewDBWithDriver(path, driver string) (*DB, error) {
	switch driver {
	case DriverNcruces, DriverModernc:
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := backup(path); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	log.Debug(log.CatDB, "Opening database", "path", path, "driver", driver)
	conn, err := sql.Open(driver, "file:"+path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Info(log.CatDB, "Connected to database", "path", path)
	return &DB{conn: conn, path: path}, nil
}

func runMigrations(conn *sql.DB) error {
	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	// The migrator is not closed: closing it would close conn.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// backup copies an existing database to path.bak before migrations run.
func backup(path string) error {
	src, err := os.Open(path) //nolint:gosec // G304: configured database path
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(path+".bak", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // G304: derived from configured path
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Connection returns the underlying *sql.DB.
func (d *DB) Connection() *sql.DB {
	return d.conn
}

// RecordRepository returns the element.Persistence backed by this database.
func (d *DB) RecordRepository() *RecordRepository {
	return newRecordRepository(d.conn, d.path)
}
