package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func TestRebind(t *testing.T) {
	pg := &DB{Driver: DriverPostgres}
	got := pg.Rebind("SELECT * FROM expenses WHERE id = ? AND trip_id = ? LIMIT ?")
	want := "SELECT * FROM expenses WHERE id = $1 AND trip_id = $2 LIMIT $3"
	if got != want {
		t.Errorf("Rebind = %q, want %q", got, want)
	}

	lite := &DB{Driver: DriverSQLite}
	if q := "SELECT ?"; lite.Rebind(q) != q {
		t.Errorf("SQLite queries should pass through unchanged")
	}
}

func TestPlaceholders(t *testing.T) {
	tests := map[int]string{0: "", 1: "?", 3: "?, ?, ?"}
	for n, want := range tests {
		if got := Placeholders(n); got != want {
			t.Errorf("Placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := Now()
	parsed, err := ParseTime(FormatTime(now))
	if err != nil {
		t.Fatalf("ParseTime failed: %v", err)
	}
	if !parsed.Equal(now) {
		t.Errorf("round trip = %v, want %v", parsed, now)
	}
	if now.Nanosecond()%int(time.Microsecond) != 0 {
		t.Errorf("Now should be truncated to microseconds, got %v", now)
	}
}

func TestOpenSQLiteMigrates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "nested", "expenses.db")

	db, err := Open(context.Background(), DriverSQLite, path, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"trips", "expenses", "expense_allocations", "notifications"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s: %v", table, err)
		}
	}

	// Running migrations again is harmless.
	if err := Migrate(context.Background(), db); err != nil {
		t.Errorf("second Migrate failed: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := Open(context.Background(), "mysql", "", logger); err == nil {
		t.Error("expected an error for an unknown driver")
	}
}
