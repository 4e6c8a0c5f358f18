package trip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Arcturus91/travel-divider/internal/database"
)

// Repository handles trip persistence
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func scanTrip(row interface{ Scan(...any) error }) (*Trip, error) {
	t := &Trip{}
	var createdAt string
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.DefaultCurrency, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new trip
func (r *Repository) Create(ctx context.Context, t *Trip) error {
	query := `
		INSERT INTO trips (id, name, description, default_currency, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		t.ID, t.Name, t.Description, t.DefaultCurrency, database.FormatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the trip does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Trip, error) {
	query := `SELECT id, name, description, default_currency, created_at FROM trips WHERE id = ?`

	t, err := scanTrip(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

// List returns one page of trips, newest first, and the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Trip, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	query := `
		SELECT id, name, description, default_currency, created_at
		FROM trips
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	trips := []*Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, total, rows.Err()
}

// Update rewrites the mutable fields of a trip.
func (r *Repository) Update(ctx context.Context, t *Trip) error {
	query := `UPDATE trips SET name = ?, description = ?, default_currency = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), t.Name, t.Description, t.DefaultCurrency, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTripNotFound
	}
	return nil
}

// Delete removes a trip. Its expenses keep their trip id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM trips WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTripNotFound
	}
	return nil
}
