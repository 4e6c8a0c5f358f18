package expense

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	r.Mount("/expenses", NewHandler(f.svc, 1<<10, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes())
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestHandlerCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid",
			body:       `{"description":"Dinner","total_amount":"60","paid_by":"ana","allocations":[{"name":"ana","amount":30},{"name":"ben","amount":"30"}]}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "schema rejects a non-numeric total",
			body:       `{"description":"Dinner","total_amount":"sixty","allocations":[]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "schema requires a description",
			body:       `{"total_amount":60}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "allocations must match",
			body:       `{"description":"Dinner","total_amount":60,"allocations":[{"name":"ana","amount":10}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "not json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			rec, env := do(t, newTestRouter(f), req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
				}
				if f.store.creates != 0 {
					t.Error("rejected request reached the store")
				}
				return
			}
			var got ExpenseResponse
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if got.ID == "" || len(got.Allocations) != 2 || len(got.Splits) != 2 {
				t.Errorf("unexpected expense %+v", got)
			}
		})
	}
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile(receiptFormField, "receipt.png")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandlerSubmit(t *testing.T) {
	t.Run("expense with receipt", func(t *testing.T) {
		f := newFixture()
		body, ct := multipartBody(t, map[string]string{
			expenseFormField: `{"description":"Taxi","total_amount":20,"is_shared":true,"allocations":[{"name":"ana"},{"name":"ben"}]}`,
		}, []byte("png"))
		req := httptest.NewRequest(http.MethodPost, "/expenses/submit", body)
		req.Header.Set("Content-Type", ct)

		rec, _ := do(t, newTestRouter(f), req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if len(f.receipts.puts) != 1 {
			t.Errorf("expected one upload, got %v", f.receipts.puts)
		}
	})

	t.Run("draft is validated before upload", func(t *testing.T) {
		f := newFixture()
		body, ct := multipartBody(t, map[string]string{
			draftFormField: `{"description":"Taxi","amount":"20","currency":"USD","participants":[{"name":"ana","amount":"5"},{"name":"ben","amount":"5"}]}`,
		}, []byte("png"))
		req := httptest.NewRequest(http.MethodPost, "/expenses/submit", body)
		req.Header.Set("Content-Type", ct)

		rec, env := do(t, newTestRouter(f), req)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_FAILED" {
			t.Fatalf("expected validation failure, got %d (%s)", rec.Code, rec.Body.String())
		}
		if len(f.receipts.puts) != 0 || f.store.creates != 0 {
			t.Error("rejected draft caused side effects")
		}
	})

	t.Run("valid draft", func(t *testing.T) {
		f := newFixture()
		body, ct := multipartBody(t, map[string]string{
			draftFormField: `{"description":"Taxi","amount":"20","currency":"usd","paid_by":"Ana","participants":[{"name":"ana","amount":"15"},{"name":"ben","amount":"5"}]}`,
		}, nil)
		req := httptest.NewRequest(http.MethodPost, "/expenses/submit", body)
		req.Header.Set("Content-Type", ct)

		rec, _ := do(t, newTestRouter(f), req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if f.store.creates != 1 || len(f.receipts.puts) != 0 {
			t.Errorf("creates = %d, uploads = %v", f.store.creates, f.receipts.puts)
		}
	})

	t.Run("receipt too large", func(t *testing.T) {
		f := newFixture()
		body, ct := multipartBody(t, map[string]string{
			expenseFormField: `{"description":"Taxi","total_amount":20,"allocations":[{"name":"ana","amount":20}]}`,
		}, bytes.Repeat([]byte("x"), 2<<10))
		req := httptest.NewRequest(http.MethodPost, "/expenses/submit", body)
		req.Header.Set("Content-Type", ct)

		rec, _ := do(t, newTestRouter(f), req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413 (%s)", rec.Code, rec.Body.String())
		}
		if f.store.creates != 0 {
			t.Error("oversized submission was stored")
		}
	})
}

func TestHandlerGetUpdateDelete(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	rec, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/expenses/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET missing status = %d, want 404", rec.Code)
	}

	rec, env := do(t, router, httptest.NewRequest(http.MethodPost, "/expenses",
		strings.NewReader(`{"description":"Dinner","total_amount":40,"allocations":[{"name":"ana","amount":40}]}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created ExpenseResponse
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}

	rec, env = do(t, router, httptest.NewRequest(http.MethodPut, "/expenses/"+created.ID,
		strings.NewReader(`{"description":"Late dinner"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d (%s)", rec.Code, rec.Body.String())
	}
	var updated ExpenseResponse
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Description != "Late dinner" || updated.CreatedAt != created.CreatedAt {
		t.Errorf("unexpected update result %+v", updated)
	}

	rec, _ = do(t, router, httptest.NewRequest(http.MethodGet, "/expenses?page=1&per_page=5", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("list status = %d", rec.Code)
	}

	rec, _ = do(t, router, httptest.NewRequest(http.MethodDelete, "/expenses/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec, _ = do(t, router, httptest.NewRequest(http.MethodDelete, "/expenses/"+created.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandlerRedistribute(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	body := `{"draft":{"amount":"9","is_shared":true,"participants":[{"name":"Ana"},{"name":"Ben"},{"name":"Cy"}]},"action":{"type":"SET_AMOUNT","value":"10"}}`
	rec, env := do(t, router, httptest.NewRequest(http.MethodPost, "/expenses/drafts/redistribute", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var d struct {
		Participants []struct {
			Amount string `json:"amount"`
		} `json:"participants"`
	}
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatal(err)
	}
	want := []string{"3.34", "3.33", "3.33"}
	for i, w := range want {
		if d.Participants[i].Amount != w {
			t.Errorf("participant %d amount = %s, want %s", i, d.Participants[i].Amount, w)
		}
	}

	body = `{"action":{"type":"REMOVE_PARTICIPANT","index":0}}`
	rec, env = do(t, router, httptest.NewRequest(http.MethodPost, "/expenses/drafts/redistribute", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("expected 400 BAD_REQUEST, got %d (%s)", rec.Code, rec.Body.String())
	}
}
