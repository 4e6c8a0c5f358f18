package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	store, err := NewStore(Options{
		Dir:            t.TempDir(),
		SigningKey:     "test-secret",
		BaseURL:        "http://localhost:8080/",
		MaxUploadBytes: maxBytes,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestNewKey(t *testing.T) {
	tests := []struct {
		contentType string
		fileName    string
		wantExt     string
	}{
		{"image/png", "scan.PDF", "pdf"},
		{"image/png", "", "png"},
		{"image/svg+xml", "", "svg"},
		{"", "", "jpg"},
		{"image/png", "no-extension", "png"},
		{"weird", "bad.ext!", "jpg"},
	}

	for _, tt := range tests {
		key := NewKey(tt.contentType, tt.fileName)
		if !validKey(key) {
			t.Errorf("NewKey(%q, %q) = %q is not a valid key", tt.contentType, tt.fileName, key)
		}
		if !strings.HasSuffix(key, "."+tt.wantExt) {
			t.Errorf("NewKey(%q, %q) = %q, want extension %s", tt.contentType, tt.fileName, key, tt.wantExt)
		}
	}
}

func TestStorePutOpenDelete(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	key, err := store.Put(ctx, "image/png", "lunch.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	f, err := store.Open(key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "png-bytes" {
		t.Errorf("read %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Open(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting twice is fine.
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}

	if err := store.Delete(ctx, "../etc/passwd"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestStoreSizeLimit(t *testing.T) {
	store := newTestStore(t, 8)
	if _, err := store.Put(context.Background(), "image/png", "", strings.NewReader("123456789")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := store.Put(context.Background(), "image/png", "", strings.NewReader("12345678")); err != nil {
		t.Errorf("exactly the limit should be accepted: %v", err)
	}
}

func TestPresignDownload(t *testing.T) {
	store := newTestStore(t, 0)
	key, _ := store.Put(context.Background(), "image/jpeg", "", strings.NewReader("x"))

	tests := []struct {
		name      string
		expiresIn time.Duration
		want      time.Duration
	}{
		{"default", 0, time.Hour},
		{"custom", 10 * time.Minute, 10 * time.Minute},
		{"capped", 48 * time.Hour, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := store.PresignDownload(key, tt.expiresIn)
			if err != nil {
				t.Fatalf("PresignDownload failed: %v", err)
			}
			expiresAt, err := time.Parse(time.RFC3339, ticket.ExpiresAt)
			if err != nil {
				t.Fatalf("bad expires_at: %v", err)
			}
			if d := time.Until(expiresAt); d > tt.want+time.Second || d < tt.want-time.Minute {
				t.Errorf("expires in %v, want about %v", d, tt.want)
			}
			if !strings.HasPrefix(ticket.DownloadURL, "http://localhost:8080/api/v1/receipts/download?token=") {
				t.Errorf("unexpected URL %q", ticket.DownloadURL)
			}
		})
	}

	missing := NewKey("image/jpeg", "")
	if _, err := store.PresignDownload(missing, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSignerRejects(t *testing.T) {
	signer := NewSigner("secret")
	key := NewKey("image/png", "")

	token, _, err := signer.Sign(Claims{Purpose: PurposeDownload, RegisteredClaims: jwtSubject(key)}, time.Minute)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := signer.Verify(token, PurposeUpload); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong purpose should be rejected, got %v", err)
	}
	if _, err := NewSigner("other").Verify(token, PurposeDownload); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key should be rejected, got %v", err)
	}

	signer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, _ := signer.Sign(Claims{Purpose: PurposeDownload, RegisteredClaims: jwtSubject(key)}, time.Minute)
	signer.now = time.Now
	if _, err := signer.Verify(expired, PurposeDownload); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token should be rejected, got %v", err)
	}
}

func multipartUpload(t *testing.T, fields map[string]string, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", "receipt.png")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return body, mw.FormDataContentType()
}

func TestHandlerUploadAndDownload(t *testing.T) {
	store := newTestStore(t, 16)
	r := chi.NewRouter()
	r.Mount("/receipts", NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/upload-url?contentType=image/png&fileName=a.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload-url status = %d", rec.Code)
	}
	var ticketBody struct {
		Data UploadTicket `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&ticketBody)
	ticket := ticketBody.Data
	if ticket.Fields["Content-Type"] != "image/png" || ticket.Fields["key"] != ticket.FileKey {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}

	t.Run("too large", func(t *testing.T) {
		body, ct := multipartUpload(t, ticket.Fields, strings.Repeat("x", 32))
		req := httptest.NewRequest(http.MethodPost, "/receipts/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("tampered policy", func(t *testing.T) {
		fields := map[string]string{"key": ticket.FileKey, "Content-Type": "image/png", "policy": ticket.Fields["policy"] + "x"}
		body, ct := multipartUpload(t, fields, "tiny")
		req := httptest.NewRequest(http.MethodPost, "/receipts/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("content type mismatch", func(t *testing.T) {
		fields := map[string]string{"key": ticket.FileKey, "Content-Type": "image/gif", "policy": ticket.Fields["policy"]}
		body, ct := multipartUpload(t, fields, "tiny")
		req := httptest.NewRequest(http.MethodPost, "/receipts/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	body, ct := multipartUpload(t, ticket.Fields, "tiny")
	req := httptest.NewRequest(http.MethodPost, "/receipts/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/download-url?fileKey="+url.QueryEscape(ticket.FileKey), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download-url status = %d", rec.Code)
	}
	var downloadBody struct {
		Data DownloadTicket `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&downloadBody)

	u, err := url.Parse(downloadBody.Data.DownloadURL)
	if err != nil {
		t.Fatalf("bad download URL: %v", err)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/download?"+u.RawQuery, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "tiny" {
		t.Errorf("download = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/download?token=bogus", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/download-url", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fileKey status = %d, want 400", rec.Code)
	}
}
