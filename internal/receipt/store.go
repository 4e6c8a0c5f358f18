// Package receipt stores receipt images on local disk and hands out
// short-lived signed links for uploading and downloading them.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Arcturus91/travel-divider/pkg/metrics"
)

const (
	KeyPrefix          = "receipts/"
	DefaultExtension   = "jpg"
	DefaultContentType = "image/jpeg"

	DefaultUploadTTL      = 15 * time.Minute
	DefaultMaxUploadBytes = 10 << 20
	DefaultDownloadTTL    = time.Hour
	MaxDownloadTTL        = 24 * time.Hour
)

var (
	ErrNotFound   = errors.New("receipt not found")
	ErrInvalidKey = errors.New("invalid receipt key")
	ErrTooLarge   = errors.New("receipt exceeds the upload size limit")
)

var (
	keyPattern = regexp.MustCompile(`^receipts/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z0-9]{1,10}$`)
	extPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
)

type Options struct {
	Dir            string
	SigningKey     string
	BaseURL        string
	UploadTTL      time.Duration
	MaxUploadBytes int64
}

// Store is a filesystem-backed object store for receipt images.
type Store struct {
	dir       string
	baseURL   string
	signer    *Signer
	uploadTTL time.Duration
	maxBytes  int64
}

func NewStore(opts Options) (*Store, error) {
	if opts.SigningKey == "" {
		return nil, errors.New("receipt signing key is required")
	}
	if opts.UploadTTL <= 0 {
		opts.UploadTTL = DefaultUploadTTL
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if err := os.MkdirAll(filepath.Join(opts.Dir, KeyPrefix), 0755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory: %w", err)
	}
	return &Store{
		dir:       opts.Dir,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		signer:    NewSigner(opts.SigningKey),
		uploadTTL: opts.UploadTTL,
		maxBytes:  opts.MaxUploadBytes,
	}, nil
}

// MaxUploadBytes is the largest object Save accepts.
func (s *Store) MaxUploadBytes() int64 {
	return s.maxBytes
}

// NewKey builds receipts/<uuid>.<ext>. The extension comes from the file
// name, then the content type subtype, then falls back to jpg.
func NewKey(contentType, fileName string) string {
	return KeyPrefix + uuid.New().String() + "." + extension(contentType, fileName)
}

func extension(contentType, fileName string) string {
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")); extPattern.MatchString(ext) {
		return ext
	}
	if _, subtype, ok := strings.Cut(contentType, "/"); ok {
		subtype, _, _ = strings.Cut(subtype, ";")
		subtype, _, _ = strings.Cut(subtype, "+")
		if ext := strings.ToLower(strings.TrimSpace(subtype)); extPattern.MatchString(ext) {
			return ext
		}
	}
	return DefaultExtension
}

func validKey(key string) bool {
	return keyPattern.MatchString(key)
}

func (s *Store) path(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

// PresignUpload reserves a key and signs a policy that lets a client post
// the file to the upload endpoint.
func (s *Store) PresignUpload(contentType, fileName string) (*UploadTicket, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	key := NewKey(contentType, fileName)

	policy, expiresAt, err := s.signer.Sign(Claims{
		Purpose:          PurposeUpload,
		ContentType:      contentType,
		MaxBytes:         s.maxBytes,
		RegisteredClaims: jwtSubject(key),
	}, s.uploadTTL)
	if err != nil {
		return nil, err
	}

	return &UploadTicket{
		UploadURL: s.baseURL + "/api/v1/receipts/upload",
		FileKey:   key,
		Fields: map[string]string{
			"key":          key,
			"Content-Type": contentType,
			"policy":       policy,
		},
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// PresignDownload signs a link to an existing object. expiresIn defaults to
// one hour and is capped at 24 hours.
func (s *Store) PresignDownload(key string, expiresIn time.Duration) (*DownloadTicket, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat receipt: %w", err)
	}

	if expiresIn <= 0 {
		expiresIn = DefaultDownloadTTL
	}
	if expiresIn > MaxDownloadTTL {
		expiresIn = MaxDownloadTTL
	}

	token, expiresAt, err := s.signer.Sign(Claims{
		Purpose:          PurposeDownload,
		RegisteredClaims: jwtSubject(key),
	}, expiresIn)
	if err != nil {
		return nil, err
	}

	return &DownloadTicket{
		DownloadURL: s.baseURL + "/api/v1/receipts/download?token=" + url.QueryEscape(token),
		FileKey:     key,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *Store) VerifyUpload(policy string) (*Claims, error) {
	return s.signer.Verify(policy, PurposeUpload)
}

func (s *Store) VerifyDownload(token string) (*Claims, error) {
	return s.signer.Verify(token, PurposeDownload)
}

// Put stores body under a fresh key and returns the key.
func (s *Store) Put(ctx context.Context, contentType, fileName string, body io.Reader) (string, error) {
	key := NewKey(contentType, fileName)
	if _, err := s.Save(ctx, key, body); err != nil {
		return "", err
	}
	return key, nil
}

// Save writes body under key. The object only appears once it is complete
// and within the size limit.
func (s *Store) Save(ctx context.Context, key string, body io.Reader) (int64, error) {
	path, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create receipt file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write receipt: %w", err)
	}
	if n > s.maxBytes {
		return 0, ErrTooLarge
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to store receipt: %w", err)
	}
	metrics.ReceiptBytes.Add(float64(n))
	return n, nil
}

// Open returns the stored object. The caller closes it.
func (s *Store) Open(key string) (*os.File, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open receipt: %w", err)
	}
	return f, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}
