package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/observability"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/ratelimit"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Env:                      "test",
		Version:                  "test",
		Addr:                     "127.0.0.1:0",
		MetricsEnabled:           true,
		Otel:                     observability.OtelConfig{ServiceName: "minutebridge-test"},
		StagingDir:               t.TempDir(),
		MaxUploadBytes:           1 << 20,
		TranscriptionProvider:    ProviderNone,
		TranscriptionSoftDegrade: true,
		TranscriptionMaxBytes:    1 << 20,
		MinAudioBytes:            1024,
		DocumentProvider:         ProviderNative,
		MinPDFChars:              50,
		GenerationProvider:       ProviderNone,
		RateLimitBackend:         LimiterMemory,
		RateLimitPrefix:          "test:rl",
	}
}

func postJSON(t *testing.T, a *App, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	return rec
}

func dataURI(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

func TestBuildServesExtraction(t *testing.T) {
	a, err := build(context.Background(), logger.NewNop(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	notes := "Ordine del giorno\n\n1. Bilancio\n2. Varie ed eventuali"
	rec := postJSON(t, a, "/api/extract", map[string]string{
		"fileData": dataURI("text/plain", []byte(notes)),
		"fileName": "appunti.txt",
		"mimeType": "text/plain",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status got=%d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		OK   bool   `json:"ok"`
		Text string `json:"text"`
		Meta struct {
			StrategyUsed string `json:"strategyUsed"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK || out.Meta.StrategyUsed != extractor.StrategyPlainText || !strings.Contains(out.Text, "Bilancio") {
		t.Fatalf("got=%+v", out)
	}

	metrics := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(metrics.Body.String(), `minutebridge_extractions_total{outcome="ok",source_kind="txt",strategy="plain_text"} 1`) {
		t.Fatalf("extraction not recorded:\n%s", metrics.Body.String())
	}
}

func TestBuildTranscriptionSoftDegrades(t *testing.T) {
	a, err := build(context.Background(), logger.NewNop(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	audio := append([]byte("ID3"), make([]byte, 4096)...)
	rec := postJSON(t, a, "/api/transcribe", map[string]string{
		"fileData": dataURI("audio/mpeg", audio),
		"fileName": "riunione.mp3",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status got=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"degraded":true`) {
		t.Fatalf("expected degraded placeholder, got=%s", rec.Body.String())
	}
}

func TestBuildWithoutBucketSkipsBlobRoute(t *testing.T) {
	a, err := build(context.Background(), logger.NewNop(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	rec := postJSON(t, a, "/api/blobs", map[string]string{})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status got=%d want=404", rec.Code)
	}
}

func TestBuildUsesRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RateLimitBackend = LimiterRedis
	cfg.RedisAddr = mr.Addr()

	a, err := build(context.Background(), logger.NewNop(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if _, ok := a.Services.Limiter.(*ratelimit.Redis); !ok {
		t.Fatalf("limiter got=%T want *ratelimit.Redis", a.Services.Limiter)
	}
	if a.Services.memLimiter != nil {
		t.Fatalf("memory limiter should not be wired")
	}

	rec := postJSON(t, a, "/api/cleanup", map[string]string{"notes": "  punto uno  \n\n\n punto due "})
	if rec.Code != http.StatusOK {
		t.Fatalf("status got=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(mr.Keys()) == 0 {
		t.Fatalf("expected rate limit keys in redis")
	}
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitBackend = LimiterRedis
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := build(context.Background(), logger.NewNop(), cfg)
	var bootErr *CapabilityBootstrapError
	if !errors.As(err, &bootErr) || bootErr.Code != CapabilityErrorConnectFailed || bootErr.Capability != "rate_limit" {
		t.Fatalf("got=%v want rate_limit connect_failed", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := build(context.Background(), logger.NewNop(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
