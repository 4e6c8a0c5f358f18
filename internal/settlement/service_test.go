package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/Arcturus91/travel-divider/internal/expense"
	"github.com/Arcturus91/travel-divider/internal/roster"
)

type fakeExpenses struct {
	expenses []*expense.Expense
	err      error
	tripID   *string
}

func (f *fakeExpenses) ListAll(_ context.Context, tripID *string) ([]*expense.Expense, error) {
	f.tripID = tripID
	return f.expenses, f.err
}

type fakeRoster []roster.Participant

func (f fakeRoster) List() ([]roster.Participant, error) { return f, nil }

func newTestService(expenses *fakeExpenses) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	members := fakeRoster{{ID: "p-ana", Name: "Ana"}, {ID: "p-zed", Name: "Zed"}}
	return NewService(expenses, members, logger)
}

func tripExpenses() *fakeExpenses {
	return &fakeExpenses{expenses: []*expense.Expense{
		newExpense("EUR", "Ana", "90", "Ana", "30", "Ben", "30", "Cy", "30"),
		newExpense("EUR", "Ben", "30", "Ana", "15", "Ben", "15"),
	}}
}

func TestServiceReport(t *testing.T) {
	expenses := tripExpenses()
	svc := newTestService(expenses)
	trip := "lisbon"

	report, err := svc.Report(context.Background(), &trip)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if expenses.tripID == nil || *expenses.tripID != trip {
		t.Errorf("trip filter not passed through: %v", expenses.tripID)
	}
	plan := report.Plan("EUR")
	if plan == nil {
		t.Fatal("expected an EUR plan")
	}
	if plan.Summaries[0].ParticipantID != "p-ana" || plan.Summaries[1].Name != "Zed" {
		t.Errorf("roster did not seed the summaries: %+v", plan.Summaries)
	}
	// Ana +45, Ben -15, Cy -30
	if len(plan.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %+v", plan.Payments)
	}
	for _, p := range plan.Payments {
		if p.To != "p-ana" || p.ToName != "Ana" {
			t.Errorf("payment %+v should go to roster id p-ana", p)
		}
	}

	expenses.err = errors.New("db down")
	if _, err := svc.Report(context.Background(), nil); err == nil {
		t.Error("expected the lister error")
	}
}

func TestServiceBalances(t *testing.T) {
	svc := newTestService(tripExpenses())
	ctx := context.Background()

	tests := []struct {
		name    string
		who     string
		wantMsg string
		wantErr error
	}{
		{name: "creditor", who: "ana", wantMsg: "Cy owes you 30.00 EUR"},
		{name: "debtor", who: "Ben", wantMsg: "You owe Ana 15.00 EUR"},
		{name: "roster member without expenses", who: "Zed", wantErr: ErrParticipantNotFound},
		{name: "unknown", who: "Nobody", wantErr: ErrParticipantNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances, err := svc.Balances(ctx, nil, tt.who)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Balances: %v", err)
			}
			if len(balances) != 1 {
				t.Fatalf("expected one currency, got %+v", balances)
			}
			found := false
			for _, m := range balances[0].Messages {
				if m == tt.wantMsg {
					found = true
				}
			}
			if !found {
				t.Errorf("messages %v do not contain %q", balances[0].Messages, tt.wantMsg)
			}
		})
	}
}

func TestBalanceSettledUp(t *testing.T) {
	svc := newTestService(&fakeExpenses{expenses: []*expense.Expense{
		newExpense("USD", "Ana", "10", "Ana", "10"),
	}})
	balances, err := svc.Balances(context.Background(), nil, "Ana")
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if got := balances[0].Messages; len(got) != 1 || got[0] != "You are settled up" {
		t.Errorf("messages = %v", got)
	}
}

func TestHandlerExport(t *testing.T) {
	svc := newTestService(tripExpenses())
	r := chi.NewRouter()
	r.Mount("/settlements", NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settlements/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("read %s: %v", summarySheet, err)
	}
	// header + Ana, Zed, Ben, Cy
	if len(summary) != 5 || summary[0][1] != "Participant" || summary[1][1] != "Ana" {
		t.Errorf("unexpected summary rows %v", summary)
	}
	payments, err := f.GetRows(paymentsSheet)
	if err != nil {
		t.Fatalf("read %s: %v", paymentsSheet, err)
	}
	if len(payments) != 3 {
		t.Errorf("expected header and 2 payments, got %v", payments)
	}
}

func TestHandlerReportAndBalance(t *testing.T) {
	svc := newTestService(tripExpenses())
	r := chi.NewRouter()
	r.Mount("/settlements", NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settlements?tripId=lisbon", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}
	var env struct {
		Success bool   `json:"success"`
		Data    Report `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if !env.Success || len(env.Data.Plans) != 1 || env.Data.ExpenseCount != 2 {
		t.Errorf("unexpected report %+v", env)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settlements/balances/Nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("balance status = %d, want 404", rec.Code)
	}
}
