package trip

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Arcturus91/travel-divider/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.NewSQLiteConnection(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(NewRepository(db))
}

func TestTripLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateTripRequest{Name: "  Lisbon  ", DefaultCurrency: "eur"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Name != "Lisbon" || created.DefaultCurrency != "EUR" {
		t.Errorf("unexpected trip %+v", created)
	}

	ok, err := svc.Exists(ctx, created.ID)
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	if ok, _ := svc.Exists(ctx, "nope"); ok {
		t.Error("unknown trip reported as existing")
	}

	name := "Porto"
	updated, err := svc.Update(ctx, created.ID, &UpdateTripRequest{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Porto" || !got.CreatedAt.Equal(updated.CreatedAt) {
		t.Errorf("unexpected stored trip %+v", got)
	}

	trips, total, err := svc.List(ctx, 1, 10)
	if err != nil || total != 1 || len(trips) != 1 {
		t.Errorf("List = %d trips, total %d, err %v", len(trips), total, err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, created.ID); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("expected ErrTripNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}

func TestTripValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, &CreateTripRequest{Name: " "}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
	if _, err := svc.Create(ctx, &CreateTripRequest{Name: "Rome", DefaultCurrency: "euro"}); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected ErrInvalidCurrency, got %v", err)
	}
	trip, err := svc.Create(ctx, &CreateTripRequest{Name: "Rome"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if trip.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want USD", trip.DefaultCurrency)
	}
}

func TestTripHandler(t *testing.T) {
	svc := newTestService(t)
	r := chi.NewRouter()
	r.Mount("/trips", NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trips", strings.NewReader(`{"name":"Kyoto","default_currency":"JPY"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", rec.Code, rec.Body.String())
	}
	var env struct {
		Data Trip `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips/"+env.Data.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trips", strings.NewReader(`{"name":""}`)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "VALIDATION_FAILED") {
		t.Errorf("expected validation failure, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}
