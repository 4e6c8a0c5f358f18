package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Arcturus91/travel-divider/internal/database"
)

// Repository handles expense and allocation persistence
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const expenseColumns = `id, created_at, updated_at, description, total_amount, currency,
		is_shared, paid_by, receipt_image_key, category, trip_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*Expense, error) {
	expense := &Expense{}
	var createdAt, updatedAt string
	if err := row.Scan(
		&expense.ID,
		&createdAt,
		&updatedAt,
		&expense.Description,
		&expense.TotalAmount,
		&expense.Currency,
		&expense.IsShared,
		&expense.PaidBy,
		&expense.ReceiptImageKey,
		&expense.Category,
		&expense.TripID,
	); err != nil {
		return nil, err
	}

	var err error
	if expense.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if expense.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return expense, nil
}

// Create inserts an expense and its allocations in one transaction.
func (r *Repository) Create(ctx context.Context, expense *Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, r.db.Rebind(query),
		expense.ID,
		database.FormatTime(expense.CreatedAt),
		database.FormatTime(expense.UpdatedAt),
		expense.Description,
		expense.TotalAmount,
		expense.Currency,
		expense.IsShared,
		expense.PaidBy,
		expense.ReceiptImageKey,
		expense.Category,
		expense.TripID,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	if err := r.insertAllocations(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expense: %w", err)
	}
	return nil
}

func (r *Repository) insertAllocations(ctx context.Context, tx *sql.Tx, expense *Expense) error {
	query := r.db.Rebind(`INSERT INTO expense_allocations (expense_id, sort_order, name, amount) VALUES (?, ?, ?, ?)`)
	for i, a := range expense.Allocations {
		if _, err := tx.ExecContext(ctx, query, expense.ID, i, a.Name, a.Amount); err != nil {
			return fmt.Errorf("failed to create allocation for %s: %w", a.Name, err)
		}
	}
	return nil
}

// GetByID returns nil, nil when the expense does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := scanExpense(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := r.loadAllocations(ctx, []*Expense{expense}); err != nil {
		return nil, err
	}
	return expense, nil
}

// List returns one page of expenses, newest first, and the total count.
func (r *Repository) List(ctx context.Context, tripID *string, limit, offset int) ([]*Expense, int, error) {
	where, args := tripFilter(tripID)

	var total int
	countQuery := `SELECT COUNT(*) FROM expenses` + where
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses` + where + `
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
	expenses, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// ListAll returns every expense in creation order.
func (r *Repository) ListAll(ctx context.Context, tripID *string) ([]*Expense, error) {
	where, args := tripFilter(tripID)
	query := `SELECT ` + expenseColumns + ` FROM expenses` + where + ` ORDER BY created_at, id`
	return r.query(ctx, query, args...)
}

func tripFilter(tripID *string) (string, []any) {
	if tripID == nil || *tripID == "" {
		return "", nil
	}
	return ` WHERE trip_id = ?`, []any{*tripID}
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []*Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	if err := r.loadAllocations(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *Repository) loadAllocations(ctx context.Context, expenses []*Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	byID := make(map[string]*Expense, len(expenses))
	ids := make([]any, len(expenses))
	for i, e := range expenses {
		e.Allocations = []Allocation{}
		byID[e.ID] = e
		ids[i] = e.ID
	}

	query := `
		SELECT expense_id, name, amount
		FROM expense_allocations
		WHERE expense_id IN (` + database.Placeholders(len(ids)) + `)
		ORDER BY expense_id, sort_order
	`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), ids...)
	if err != nil {
		return fmt.Errorf("failed to get allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var a Allocation
		if err := rows.Scan(&expenseID, &a.Name, &a.Amount); err != nil {
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.Allocations = append(e.Allocations, a)
		}
	}
	return rows.Err()
}

// Update rewrites the mutable fields and replaces the allocations.
// created_at is never touched.
func (r *Repository) Update(ctx context.Context, expense *Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE expenses
		SET updated_at = ?, description = ?, total_amount = ?, currency = ?, is_shared = ?,
			paid_by = ?, receipt_image_key = ?, category = ?, trip_id = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, r.db.Rebind(query),
		database.FormatTime(expense.UpdatedAt),
		expense.Description,
		expense.TotalAmount,
		expense.Currency,
		expense.IsShared,
		expense.PaidBy,
		expense.ReceiptImageKey,
		expense.Category,
		expense.TripID,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrExpenseNotFound
	}

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM expense_allocations WHERE expense_id = ?`), expense.ID); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}
	if err := r.insertAllocations(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expense update: %w", err)
	}
	return nil
}

// Delete removes an expense and its allocations.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Allocations first (foreign key constraint)
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM expense_allocations WHERE expense_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete allocations: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrExpenseNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expense delete: %w", err)
	}
	return nil
}
