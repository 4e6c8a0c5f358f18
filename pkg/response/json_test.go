package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var body APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decode(t, rec)
	if !body.Success || body.Error != nil {
		t.Errorf("unexpected envelope: %+v", body)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", BadRequest, http.StatusBadRequest, "BAD_REQUEST"},
		{"validation", ValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"not found", NotFound, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", Conflict, http.StatusConflict, "CONFLICT"},
		{"too large", PayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"unauthorized", Unauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"internal", InternalError, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, "boom")

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decode(t, rec)
			if body.Success {
				t.Error("expected success=false")
			}
			if body.Error == nil || body.Error.Code != tt.code || body.Error.Message != "boom" {
				t.Errorf("unexpected error body: %+v", body.Error)
			}
		})
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(2, 20, 41)
	if meta.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", meta.TotalPages)
	}
	if NewMeta(1, 0, 5).TotalPages != 0 {
		t.Error("expected zero pages when per_page is zero")
	}
}
