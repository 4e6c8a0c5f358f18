package expense

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Arcturus91/travel-divider/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.NewSQLiteConnection(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func testExpense(id string, createdAt time.Time, trip *string) *Expense {
	paidBy := "Ana"
	return &Expense{
		ID:          id,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		Description: "Dinner " + id,
		TotalAmount: decimal.RequireFromString("100.00"),
		Currency:    "EUR",
		IsShared:    true,
		PaidBy:      &paidBy,
		Allocations: []Allocation{
			{Name: "Ana", Amount: decimal.RequireFromString("33.34")},
			{Name: "Ben", Amount: decimal.RequireFromString("33.33")},
			{Name: "Cy", Amount: decimal.RequireFromString("33.33")},
		},
		Category: DefaultCategory,
		TripID:   trip,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	created := database.Now()

	want := testExpense("e1", created, nil)
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected expense, got nil")
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if !got.TotalAmount.Equal(want.TotalAmount) {
		t.Errorf("TotalAmount = %s, want %s", got.TotalAmount, want.TotalAmount)
	}
	if got.PaidBy == nil || *got.PaidBy != "Ana" {
		t.Errorf("PaidBy = %v, want Ana", got.PaidBy)
	}
	if !got.IsShared {
		t.Error("expected IsShared")
	}
	if len(got.Allocations) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(got.Allocations))
	}
	for i, a := range got.Allocations {
		if a.Name != want.Allocations[i].Name || !a.Amount.Equal(want.Allocations[i].Amount) {
			t.Errorf("allocation %d = %+v, want %+v", i, a, want.Allocations[i])
		}
	}
	if !got.Allocated().Equal(got.TotalAmount) {
		t.Errorf("allocations sum to %s, want %s", got.Allocated(), got.TotalAmount)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestRepositoryListAndFilter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := database.Now()
	trip := "rome"

	for i, id := range []string{"a", "b", "c"} {
		var tripID *string
		if id != "b" {
			tripID = &trip
		}
		if err := repo.Create(ctx, testExpense(id, base.Add(time.Duration(i)*time.Second), tripID)); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	page, total, err := repo.List(ctx, nil, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Errorf("expected newest first [c b], got %v", ids(page))
	}

	filtered, total, err := repo.List(ctx, &trip, 10, 0)
	if err != nil {
		t.Fatalf("List(trip): %v", err)
	}
	if total != 2 || len(filtered) != 2 {
		t.Errorf("expected 2 rome expenses, got %d (total %d)", len(filtered), total)
	}

	all, err := repo.ListAll(ctx, nil)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if got := ids(all); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("expected oldest first [a b c], got %v", got)
	}
	for _, e := range all {
		if len(e.Allocations) != 3 {
			t.Errorf("expense %s has %d allocations, want 3", e.ID, len(e.Allocations))
		}
	}
}

func TestRepositoryUpdateAndDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	created := database.Now()

	e := testExpense("e1", created, nil)
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}

	e.Description = "Lunch"
	e.TotalAmount = decimal.RequireFromString("20")
	e.Allocations = []Allocation{
		{Name: "Ana", Amount: decimal.RequireFromString("5")},
		{Name: "Ben", Amount: decimal.RequireFromString("15")},
	}
	e.UpdatedAt = created.Add(time.Minute)
	if err := repo.Update(ctx, e); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Description != "Lunch" || len(got.Allocations) != 2 {
		t.Errorf("update not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed to %v", got.CreatedAt)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}

	ghost := testExpense("ghost", created, nil)
	if err := repo.Update(ctx, ghost); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("Update(missing) = %v, want ErrExpenseNotFound", err)
	}

	if err := repo.Delete(ctx, "e1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "e1"); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("second Delete = %v, want ErrExpenseNotFound", err)
	}
}

func ids(expenses []*Expense) []string {
	out := make([]string, len(expenses))
	for i, e := range expenses {
		out[i] = e.ID
	}
	return out
}
