package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// ObjectStore persists an uploaded artifact and returns a URL clients can
// fetch it from.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// BucketStore is the GCS (or fake-gcs emulator) ObjectStore.
type BucketStore struct {
	log          *logger.Logger
	client       *storage.Client
	cfg          ObjectStorageConfig
	writeTimeout time.Duration
}

func NewBucketStore(ctx context.Context, log *logger.Logger, cfg ObjectStorageConfig) (*BucketStore, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing env var BLOB_GCS_BUCKET_NAME")
	}
	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	slog := log.With("service", "BucketStore")
	slog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", cfg.PublicBaseURL,
		"bucket", cfg.Bucket,
	)
	return &BucketStore{log: slog, client: client, cfg: cfg, writeTimeout: 2 * time.Minute}, nil
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		// the client library reads the emulator endpoint from the environment
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
}

func (b *BucketStore) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

func (b *BucketStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	ctx, cancel := context.WithTimeout(ctx, b.writeTimeout)
	defer cancel()

	w := b.client.Bucket(b.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return "", storageErr("write object", err)
	}
	if err := w.Close(); err != nil {
		return "", storageErr("close object writer", err)
	}
	b.log.Debug("object stored", "key", key, "content_type", contentType)
	return b.PublicURL(key), nil
}

// PublicURL prefers the CDN domain, then the emulator media endpoint, then
// the configured public base, then storage.googleapis.com.
func (b *BucketStore) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", b.cfg.CDNDomain, key)
	}
	if b.cfg.IsEmulatorMode() {
		base := b.cfg.PublicBaseURL
		if base == "" {
			base = b.cfg.EmulatorHost
		}
		if base != "" {
			return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(b.cfg.Bucket), url.PathEscape(key))
		}
	}
	if b.cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", b.cfg.PublicBaseURL, b.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.cfg.Bucket, key)
}

func storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnauthorized, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageQuota, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
