package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/minutes"
	"github.com/yungbote/minutebridge-backend/internal/platform/gcp"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/platform/openai"
)

type CapabilityBootstrapErrorCode string

const (
	CapabilityErrorMissingCredential CapabilityBootstrapErrorCode = "missing_credential"
	CapabilityErrorInvalidConfig     CapabilityBootstrapErrorCode = "invalid_config"
	CapabilityErrorConnectFailed     CapabilityBootstrapErrorCode = "connect_failed"
)

type CapabilityBootstrapError struct {
	Code       CapabilityBootstrapErrorCode
	Capability string
	Provider   string
	Cause      error
}

func (e *CapabilityBootstrapError) Error() string {
	if e == nil {
		return "capability bootstrap failed"
	}
	return fmt.Sprintf("%s bootstrap failed (code=%s provider=%q): %v", e.Capability, e.Code, e.Provider, e.Cause)
}

func (e *CapabilityBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func invalidConfig(key, msg string) error {
	return &CapabilityBootstrapError{
		Code:       CapabilityErrorInvalidConfig,
		Capability: "config",
		Provider:   key,
		Cause:      errors.New(msg),
	}
}

// Constructors are variables so bootstrap can be exercised without cloud access.
var (
	newSpeechTranscriber    = gcp.NewSpeechTranscriber
	newVideoTranscriber     = gcp.NewVideoTranscriber
	newDocumentTextProvider = gcp.NewDocumentTextProvider
	newRedisClient          = func(opts *goredis.Options) *goredis.Client { return goredis.NewClient(opts) }
)

// Clients holds every external capability. Nil fields mean "not configured";
// the strategies degrade or fail with a typed error in that case.
type Clients struct {
	Speech    extractor.SpeechToText
	Video     extractor.SpeechToText
	PDFText   extractor.DocumentTextProvider
	Generator minutes.TextGenerator
	Bucket    gcp.ObjectStore
	Redis     *goredis.Client

	closers []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{}
	fail := func(err error) (*Clients, error) {
		c.Close()
		return nil, err
	}
	hasOpenAIKey := strings.TrimSpace(cfg.OpenAI.APIKey) != ""

	switch cfg.TranscriptionProvider {
	case ProviderOpenAI:
		if hasOpenAIKey {
			c.Speech = openai.NewTranscriber(log, cfg.OpenAI)
		} else {
			log.Warn("OPENAI_API_KEY missing; transcription will return the unavailable placeholder")
		}
	case ProviderGCP:
		s, err := newSpeechTranscriber(ctx, log, cfg.Speech)
		if err != nil {
			return fail(&CapabilityBootstrapError{Code: CapabilityErrorConnectFailed, Capability: "transcription", Provider: ProviderGCP, Cause: err})
		}
		c.Speech = s
		c.closers = append(c.closers, s.Close)
	case ProviderNone:
		log.Warn("Transcription disabled", "soft_degrade", cfg.TranscriptionSoftDegrade)
	}

	if cfg.VideoProvider == ProviderGCP {
		v, err := newVideoTranscriber(ctx, log, cfg.Video)
		if err != nil {
			return fail(&CapabilityBootstrapError{Code: CapabilityErrorConnectFailed, Capability: "video_transcription", Provider: ProviderGCP, Cause: err})
		}
		c.Video = v
		c.closers = append(c.closers, v.Close)
	}

	if cfg.DocumentProvider == ProviderGCP {
		d, err := newDocumentTextProvider(ctx, log, cfg.DocumentAI)
		if err != nil {
			return fail(&CapabilityBootstrapError{Code: CapabilityErrorConnectFailed, Capability: "document_extraction", Provider: ProviderGCP, Cause: err})
		}
		c.PDFText = d
		c.closers = append(c.closers, d.Close)
	}

	if cfg.GenerationProvider == ProviderOpenAI {
		if hasOpenAIKey {
			c.Generator = openai.NewGenerator(log, cfg.OpenAI)
		} else {
			log.Warn("OPENAI_API_KEY missing; minutes formatting is unavailable and cleanup runs locally")
		}
	}

	if cfg.ObjectStorage.Enabled() {
		b, err := resolveObjectStore(ctx, log, cfg.ObjectStorage)
		if err != nil {
			return fail(err)
		}
		c.Bucket = b
		c.closers = append(c.closers, b.Close)
	}

	if cfg.RateLimitBackend == LimiterRedis {
		rdb := newRedisClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return fail(&CapabilityBootstrapError{Code: CapabilityErrorConnectFailed, Capability: "rate_limit", Provider: LimiterRedis, Cause: fmt.Errorf("redis ping: %w", err)})
		}
		c.Redis = rdb
		c.closers = append(c.closers, rdb.Close)
	}

	return c, nil
}

// Close releases clients in reverse order of creation.
func (c *Clients) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
