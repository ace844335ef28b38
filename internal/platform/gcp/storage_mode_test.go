package gcp

import (
	"errors"
	"testing"
)

func clearStorageEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OBJECT_STORAGE_MODE", "STORAGE_EMULATOR_HOST", "BLOB_GCS_BUCKET_NAME", "BLOB_CDN_DOMAIN", "OBJECT_STORAGE_PUBLIC_BASE_URL"} {
		t.Setenv(k, "")
	}
}

func TestResolveObjectStorageConfigFromEnvDefaultGCS(t *testing.T) {
	clearStorageEnv(t)

	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCS {
		t.Fatalf("mode: want=%q got=%q", ObjectStorageModeGCS, cfg.Mode)
	}
	if cfg.Enabled() {
		t.Fatalf("enabled: want=false without a bucket")
	}
	if cfg.PublicBaseURL != "" {
		t.Fatalf("public base: want empty got=%q", cfg.PublicBaseURL)
	}
}

func TestResolveObjectStorageConfigFromEnvExplicitGCSIgnoresEmulator(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("OBJECT_STORAGE_MODE", "GCS")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")
	t.Setenv("BLOB_GCS_BUCKET_NAME", "minutes-uploads")

	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCS || cfg.CompatibilityFallback {
		t.Fatalf("got mode=%q fallback=%v", cfg.Mode, cfg.CompatibilityFallback)
	}
	if !cfg.Enabled() || cfg.Bucket != "minutes-uploads" {
		t.Fatalf("bucket got=%q", cfg.Bucket)
	}
}

func TestResolveObjectStorageConfigFromEnvCompatibilityFallback(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")

	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCSEmulator || !cfg.CompatibilityFallback {
		t.Fatalf("got mode=%q fallback=%v", cfg.Mode, cfg.CompatibilityFallback)
	}
	if cfg.ModeSource() != "compatibility_fallback" {
		t.Fatalf("ModeSource got=%q", cfg.ModeSource())
	}
	if cfg.PublicBaseURL != "http://fake-gcs:4443" {
		t.Fatalf("public base got=%q", cfg.PublicBaseURL)
	}
}

func TestResolveObjectStorageConfigFromEnvPublicBaseOverride(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("OBJECT_STORAGE_MODE", "gcs_emulator")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")

	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:4443" {
		t.Fatalf("public base got=%q", cfg.PublicBaseURL)
	}
}

func TestResolveObjectStorageConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		code ObjectStorageConfigErrorCode
	}{
		{"invalid mode", map[string]string{"OBJECT_STORAGE_MODE": "local"}, ObjectStorageConfigErrorInvalidMode},
		{"missing emulator host", map[string]string{"OBJECT_STORAGE_MODE": "gcs_emulator"}, ObjectStorageConfigErrorMissingEmulatorHost},
		{"relative emulator host", map[string]string{"OBJECT_STORAGE_MODE": "gcs_emulator", "STORAGE_EMULATOR_HOST": "fake-gcs:4443"}, ObjectStorageConfigErrorInvalidEmulatorHost},
		{"relative public base", map[string]string{"OBJECT_STORAGE_PUBLIC_BASE_URL": "localhost:4443"}, ObjectStorageConfigErrorInvalidPublicBaseURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearStorageEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := ResolveObjectStorageConfigFromEnv()
			var cfgErr *ObjectStorageConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("want ObjectStorageConfigError got=%v", err)
			}
			if cfgErr.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, cfgErr.Code)
			}
		})
	}
}
