package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func strptr(s string) *string { return &s }

func TestServiceCreate(t *testing.T) {
	svc := NewService(newTestStore(t))

	p, created, err := svc.Create(&CreateParticipantRequest{Name: "  maria   lopez "})
	if err != nil || !created {
		t.Fatalf("Create = %v, %v", created, err)
	}
	if p.Name != "Maria Lopez" || p.Color != DefaultColor || p.ID == "" {
		t.Errorf("unexpected participant %+v", p)
	}

	if _, _, err := svc.Create(&CreateParticipantRequest{Name: "   "}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
	if _, _, err := svc.Create(&CreateParticipantRequest{Name: "Ben", Color: strptr("blue")}); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("expected ErrInvalidColor, got %v", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc := NewService(newTestStore(t))
	p, _, _ := svc.Create(&CreateParticipantRequest{Name: "Ana", Avatar: strptr("cat.png")})

	updated, err := svc.Update(p.ID, &UpdateParticipantRequest{Name: strptr("ana maria"), Color: strptr("#ff0000"), Avatar: strptr("")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Ana Maria" || updated.Color != "#FF0000" || updated.Avatar != nil {
		t.Errorf("unexpected participant %+v", updated)
	}
}

func TestServiceSuggest(t *testing.T) {
	svc := NewService(newTestStore(t))
	for _, name := range []string{"Ana", "Andres", "Ben", "anita"} {
		if _, _, err := svc.Create(&CreateParticipantRequest{Name: name}); err != nil {
			t.Fatalf("Create(%s) failed: %v", name, err)
		}
	}

	names, err := svc.Suggest("an", 0)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	want := []string{"Ana", "Andres", "Anita"}
	if len(names) != len(want) {
		t.Fatalf("Suggest = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Suggest = %v, want %v", names, want)
		}
	}

	if names, _ := svc.Suggest("", 2); len(names) != 2 {
		t.Errorf("expected limit to apply, got %v", names)
	}
}

func TestHandler(t *testing.T) {
	svc := NewService(newTestStore(t))
	r := chi.NewRouter()
	r.Mount("/participants", NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes())

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/participants", bytes.NewBufferString(body)))
		return rec
	}

	if rec := post(`{"id":"fixed","name":"ana"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	if rec := post(`{"id":"fixed","name":"ana"}`); rec.Code != http.StatusOK {
		t.Errorf("retry status = %d, want 200", rec.Code)
	}
	if rec := post(`{"name":"ANA"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
	if rec := post(`{"name":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/participants/suggestions?prefix=a", nil))
	var body struct {
		Data []string `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if len(body.Data) != 1 || body.Data[0] != "Ana" {
		t.Errorf("suggestions = %v", body.Data)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/participants/nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
}
