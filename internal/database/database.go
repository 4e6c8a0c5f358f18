// Package database opens the expense store on Postgres or SQLite and keeps
// the schema in place.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// DB is a connection pool that knows which SQL dialect it speaks.
// Queries are written with ? placeholders and go through Rebind.
type DB struct {
	*sql.DB
	Driver string
}

// Open connects to the configured driver and runs migrations.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*DB, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresConnection(ctx, dsn, logger)
	case DriverSQLite:
		return NewSQLiteConnection(ctx, dsn, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func NewPostgresConnection(ctx context.Context, databaseURL string, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", DriverPostgres)

	conn, err := sql.Open(DriverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return finish(ctx, &DB{DB: conn, Driver: DriverPostgres}, logger)
}

// NewSQLiteConnection opens a single-writer SQLite file, creating its
// directory if needed.
func NewSQLiteConnection(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", DriverSQLite, "path", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	return finish(ctx, &DB{DB: conn, Driver: DriverSQLite}, logger)
}

func finish(ctx context.Context, db *DB, logger *slog.Logger) (*DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("successfully connected to database", "driver", db.Driver)
	return db, nil
}

// Rebind rewrites ? placeholders into $1, $2, ... for Postgres.
func (db *DB) Rebind(query string) string {
	if db.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns "?, ?, ?" with n markers for IN clauses.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// timeLayout has fixed-width fractions so stored text sorts by time.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime is the storage form of timestamps on both drivers.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime reads a timestamp written by FormatTime. Postgres hands back
// TIMESTAMPTZ columns scanned into strings in the same layout.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Now returns the current time at the precision both drivers store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
