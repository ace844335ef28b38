package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/minutebridge-backend/internal/observability"
	"github.com/yungbote/minutebridge-backend/internal/platform/envutil"
	"github.com/yungbote/minutebridge-backend/internal/platform/gcp"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/platform/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGCP    = "gcp"
	ProviderNative = "native"
	ProviderNone   = "none"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

type Config struct {
	Env     string
	Version string

	// HTTP
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	CORSOrigins       []string

	MetricsEnabled bool
	Otel           observability.OtelConfig

	// Intake and staging
	StagingDir         string
	MaxUploadBytes     int64
	FetchTimeout       time.Duration
	ChunkTTL           time.Duration
	ChunkSweepInterval time.Duration

	// Rate limiting
	RateLimitBackend    string
	RateLimitPolicyFile string
	RateLimitPrefix     string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	LimiterSweepEvery   time.Duration

	// Transcription
	TranscriptionProvider    string
	VideoProvider            string
	TranscriptionSoftDegrade bool
	TranscriptionMaxBytes    int64
	MinAudioBytes            int64
	TranscriptionTimeout     time.Duration
	TranscriptionRPS         float64
	LanguageHint             string

	// Documents
	DocumentProvider string
	DocumentTimeout  time.Duration
	MinPDFChars      int

	// Minutes
	GenerationProvider string
	GenerationTimeout  time.Duration
	GenerationRPS      float64
	MaxNotesChars      int

	OpenAI        openai.Config
	Speech        gcp.SpeechConfig
	Video         gcp.VideoConfig
	DocumentAI    gcp.DocumentConfig
	ObjectStorage gcp.ObjectStorageConfig

	objectStorageErr error
}

// LoadConfig reads the environment. Problems are reported by Validate, not here.
func LoadConfig(log *logger.Logger) Config {
	port := envutil.String("PORT", "8080")
	openaiKey := envutil.String("OPENAI_API_KEY", "")

	cfg := Config{
		Env:     envutil.String("APP_ENV", "development"),
		Version: envutil.String("APP_VERSION", "dev"),

		Addr:              ":" + strings.TrimPrefix(port, ":"),
		ReadHeaderTimeout: envutil.Seconds("HTTP_READ_HEADER_TIMEOUT_SECONDS", 10*time.Second),
		IdleTimeout:       envutil.Seconds("HTTP_IDLE_TIMEOUT_SECONDS", 120*time.Second),
		ShutdownTimeout:   envutil.Seconds("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		CORSOrigins:       envutil.List("CORS_ALLOW_ORIGINS", nil),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "minutebridge"),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},

		StagingDir:         envutil.String("STAGING_DIR", filepath.Join(os.TempDir(), "minutebridge")),
		MaxUploadBytes:     envutil.Int64("MAX_UPLOAD_BYTES", 200<<20),
		FetchTimeout:       envutil.Seconds("REMOTE_FETCH_TIMEOUT_SECONDS", 60*time.Second),
		ChunkTTL:           envutil.Seconds("CHUNK_TTL_SECONDS", time.Hour),
		ChunkSweepInterval: envutil.Seconds("CHUNK_SWEEP_INTERVAL_SECONDS", 5*time.Minute),

		RateLimitBackend:    strings.ToLower(envutil.String("RATE_LIMIT_BACKEND", LimiterMemory)),
		RateLimitPolicyFile: envutil.String("RATE_LIMIT_POLICY_FILE", ""),
		RateLimitPrefix:     envutil.String("RATE_LIMIT_PREFIX", "minutebridge:rl"),
		RedisAddr:           envutil.String("REDIS_ADDR", ""),
		RedisPassword:       envutil.String("REDIS_PASSWORD", ""),
		RedisDB:             envutil.Int("REDIS_DB", 0),
		LimiterSweepEvery:   envutil.Seconds("RATE_LIMIT_SWEEP_INTERVAL_SECONDS", time.Minute),

		TranscriptionProvider:    strings.ToLower(envutil.String("TRANSCRIPTION_PROVIDER", ProviderOpenAI)),
		VideoProvider:            strings.ToLower(envutil.String("VIDEO_TRANSCRIPTION_PROVIDER", "")),
		TranscriptionSoftDegrade: envutil.Bool("TRANSCRIPTION_SOFT_DEGRADE", false),
		TranscriptionMaxBytes:    envutil.Int64("TRANSCRIPTION_MAX_BYTES", 25<<20),
		MinAudioBytes:            envutil.Int64("TRANSCRIPTION_MIN_BYTES", 1024),
		TranscriptionTimeout:     envutil.Seconds("TRANSCRIPTION_TIMEOUT_SECONDS", 300*time.Second),
		TranscriptionRPS:         envutil.Float("TRANSCRIPTION_RPS", 2),
		LanguageHint:             envutil.String("TRANSCRIPTION_LANGUAGE", "it"),

		DocumentProvider: strings.ToLower(envutil.String("DOCUMENT_PROVIDER", ProviderNative)),
		DocumentTimeout:  envutil.Seconds("DOCUMENT_TIMEOUT_SECONDS", 120*time.Second),
		MinPDFChars:      envutil.Int("MIN_PDF_CHARS", 50),

		GenerationProvider: strings.ToLower(envutil.String("GENERATION_PROVIDER", ProviderOpenAI)),
		GenerationTimeout:  envutil.Seconds("GENERATION_TIMEOUT_SECONDS", 90*time.Second),
		GenerationRPS:      envutil.Float("GENERATION_RPS", 4),
		MaxNotesChars:      envutil.Int("MAX_NOTES_CHARS", 60000),

		OpenAI: openai.Config{
			APIKey:             openaiKey,
			BaseURL:            envutil.String("OPENAI_BASE_URL", ""),
			MaxRetries:         envutil.Int("OPENAI_MAX_RETRIES", 0),
			TranscriptionModel: envutil.String("OPENAI_TRANSCRIPTION_MODEL", openai.DefaultTranscriptionModel),
			ChatModel:          envutil.String("OPENAI_CHAT_MODEL", openai.DefaultChatModel),
			Temperature:        envutil.Float("OPENAI_TEMPERATURE", 0.2),
		},
		Speech: gcp.SpeechConfig{
			LanguageCode: envutil.String("GCP_SPEECH_LANGUAGE", "it-IT"),
			Model:        envutil.String("GCP_SPEECH_MODEL", ""),
			UseEnhanced:  envutil.Bool("GCP_SPEECH_USE_ENHANCED", false),
			MaxRetries:   envutil.Int("GCP_MAX_RETRIES", 2),
		},
		Video: gcp.VideoConfig{
			LanguageCode: envutil.String("GCP_SPEECH_LANGUAGE", "it-IT"),
			MaxRetries:   envutil.Int("GCP_MAX_RETRIES", 2),
		},
		DocumentAI: gcp.DocumentConfig{
			ProjectID:        envutil.String("DOCUMENTAI_PROJECT_ID", envutil.String("GOOGLE_CLOUD_PROJECT", "")),
			Location:         envutil.String("DOCUMENTAI_LOCATION", "eu"),
			ProcessorID:      envutil.String("DOCUMENTAI_PROCESSOR_ID", ""),
			ProcessorVersion: envutil.String("DOCUMENTAI_PROCESSOR_VERSION", ""),
			MaxRetries:       envutil.Int("GCP_MAX_RETRIES", 2),
		},
	}
	cfg.Otel.Environment = cfg.Env
	cfg.ObjectStorage, cfg.objectStorageErr = gcp.ResolveObjectStorageConfigFromEnv()
	cfg.Otel.Version = cfg.Version

	if log != nil {
		log.Info("Configuration loaded",
			"env", cfg.Env,
			"addr", cfg.Addr,
			"max_upload_bytes", cfg.MaxUploadBytes,
			"transcription_provider", cfg.TranscriptionProvider,
			"document_provider", cfg.DocumentProvider,
			"generation_provider", cfg.GenerationProvider,
			"rate_limit_backend", cfg.RateLimitBackend,
			"soft_degrade", cfg.TranscriptionSoftDegrade,
			"object_storage_mode", cfg.ObjectStorage.Mode,
			"object_storage_bucket", cfg.ObjectStorage.Bucket,
			"openai_api_key", openaiKey,
		)
	}
	return cfg
}

// Validate rejects combinations that would leave the service unable to
// honor its contract at startup.
func (c Config) Validate() error {
	if c.objectStorageErr != nil {
		return classifyStorageProviderBootstrapError(c.ObjectStorage, c.objectStorageErr)
	}
	if c.MaxUploadBytes <= 0 {
		return invalidConfig("MAX_UPLOAD_BYTES", "must be positive")
	}
	if c.TranscriptionMaxBytes <= 0 {
		return invalidConfig("TRANSCRIPTION_MAX_BYTES", "must be positive")
	}
	switch c.TranscriptionProvider {
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAI.APIKey) == "" && !c.TranscriptionSoftDegrade {
			return &CapabilityBootstrapError{
				Code:       CapabilityErrorMissingCredential,
				Capability: "transcription",
				Provider:   ProviderOpenAI,
				Cause:      fmt.Errorf("OPENAI_API_KEY is empty and TRANSCRIPTION_SOFT_DEGRADE is off"),
			}
		}
	case ProviderGCP, ProviderNone:
	default:
		return invalidConfig("TRANSCRIPTION_PROVIDER", fmt.Sprintf("unknown provider %q", c.TranscriptionProvider))
	}
	switch c.VideoProvider {
	case "", ProviderGCP:
	default:
		return invalidConfig("VIDEO_TRANSCRIPTION_PROVIDER", fmt.Sprintf("unknown provider %q", c.VideoProvider))
	}
	switch c.DocumentProvider {
	case ProviderNative:
	case ProviderGCP:
		if c.DocumentAI.ProjectID == "" || c.DocumentAI.ProcessorID == "" {
			return invalidConfig("DOCUMENTAI_PROCESSOR_ID", "document provider gcp needs DOCUMENTAI_PROJECT_ID and DOCUMENTAI_PROCESSOR_ID")
		}
	default:
		return invalidConfig("DOCUMENT_PROVIDER", fmt.Sprintf("unknown provider %q", c.DocumentProvider))
	}
	switch c.GenerationProvider {
	case ProviderOpenAI, ProviderNone:
	default:
		return invalidConfig("GENERATION_PROVIDER", fmt.Sprintf("unknown provider %q", c.GenerationProvider))
	}
	switch c.RateLimitBackend {
	case LimiterMemory:
	case LimiterRedis:
		if c.RedisAddr == "" {
			return invalidConfig("REDIS_ADDR", "required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return invalidConfig("RATE_LIMIT_BACKEND", fmt.Sprintf("unknown backend %q", c.RateLimitBackend))
	}
	for _, o := range c.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return invalidConfig("CORS_ALLOW_ORIGINS", fmt.Sprintf("origin %q must be * or start with http:// or https://", o))
		}
	}
	return nil
}
