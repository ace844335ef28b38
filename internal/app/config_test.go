package app

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "OPENAI_API_KEY", "TRANSCRIPTION_PROVIDER", "TRANSCRIPTION_SOFT_DEGRADE",
		"DOCUMENT_PROVIDER", "GENERATION_PROVIDER", "RATE_LIMIT_BACKEND", "REDIS_ADDR",
		"CORS_ALLOW_ORIGINS", "MAX_UPLOAD_BYTES", "OBJECT_STORAGE_MODE", "STORAGE_EMULATOR_HOST",
		"BLOB_GCS_BUCKET_NAME", "OBJECT_STORAGE_PUBLIC_BASE_URL", "VIDEO_TRANSCRIPTION_PROVIDER",
		"DOCUMENTAI_PROJECT_ID", "DOCUMENTAI_PROCESSOR_ID", "GOOGLE_CLOUD_PROJECT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig(nil)

	if cfg.Addr != ":8080" {
		t.Fatalf("addr got=%q want=:8080", cfg.Addr)
	}
	if cfg.MaxUploadBytes != 200<<20 {
		t.Fatalf("max upload got=%d", cfg.MaxUploadBytes)
	}
	if cfg.TranscriptionMaxBytes != 25<<20 || cfg.MinAudioBytes != 1024 || cfg.MinPDFChars != 50 {
		t.Fatalf("capability thresholds got=%d/%d/%d", cfg.TranscriptionMaxBytes, cfg.MinAudioBytes, cfg.MinPDFChars)
	}
	if cfg.TranscriptionProvider != ProviderOpenAI || cfg.DocumentProvider != ProviderNative || cfg.RateLimitBackend != LimiterMemory {
		t.Fatalf("providers got=%q/%q/%q", cfg.TranscriptionProvider, cfg.DocumentProvider, cfg.RateLimitBackend)
	}
	if cfg.ChunkTTL != time.Hour {
		t.Fatalf("chunk ttl got=%v", cfg.ChunkTTL)
	}
	if cfg.ObjectStorage.Enabled() {
		t.Fatalf("object storage should be disabled without a bucket")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://app.example.com, http://localhost:3000")
	t.Setenv("RATE_LIMIT_BACKEND", "REDIS")
	t.Setenv("TRANSCRIPTION_PROVIDER", "gcp")

	cfg := LoadConfig(nil)
	if cfg.Addr != ":9090" {
		t.Fatalf("addr got=%q", cfg.Addr)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://app.example.com" {
		t.Fatalf("origins got=%v", cfg.CORSOrigins)
	}
	if cfg.RateLimitBackend != LimiterRedis || cfg.TranscriptionProvider != ProviderGCP {
		t.Fatalf("backend got=%q provider got=%q", cfg.RateLimitBackend, cfg.TranscriptionProvider)
	}
}

func TestValidateOpenAIWithoutKey(t *testing.T) {
	clearEnv(t)
	err := LoadConfig(nil).Validate()
	var bootErr *CapabilityBootstrapError
	if !errors.As(err, &bootErr) || bootErr.Code != CapabilityErrorMissingCredential {
		t.Fatalf("got=%v want missing_credential", err)
	}

	t.Setenv("TRANSCRIPTION_SOFT_DEGRADE", "true")
	if err := LoadConfig(nil).Validate(); err != nil {
		t.Fatalf("soft degrade should accept a missing key: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown transcription provider", map[string]string{"TRANSCRIPTION_PROVIDER": "whisperd"}},
		{"unknown document provider", map[string]string{"DOCUMENT_PROVIDER": "ocr"}},
		{"gcp documents without processor", map[string]string{"DOCUMENT_PROVIDER": "gcp"}},
		{"redis without addr", map[string]string{"RATE_LIMIT_BACKEND": "redis"}},
		{"bad cors origin", map[string]string{"CORS_ALLOW_ORIGINS": "app.example.com"}},
		{"zero upload ceiling", map[string]string{"MAX_UPLOAD_BYTES": "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TRANSCRIPTION_PROVIDER", ProviderNone)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if err := LoadConfig(nil).Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateObjectStorageMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRANSCRIPTION_PROVIDER", ProviderNone)
	t.Setenv("OBJECT_STORAGE_MODE", "s3")

	err := LoadConfig(nil).Validate()
	var got *StorageProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
	}
	if got.Code != StorageProviderBootstrapErrorInvalidMode {
		t.Fatalf("code: want=%q got=%q", StorageProviderBootstrapErrorInvalidMode, got.Code)
	}
}
