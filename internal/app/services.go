package app

import (
	"fmt"

	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/intake"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/pipeline"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/staging"
	"github.com/yungbote/minutebridge-backend/internal/minutes"
	"github.com/yungbote/minutebridge-backend/internal/observability"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/platform/upstream"
	"github.com/yungbote/minutebridge-backend/internal/ratelimit"
)

type Services struct {
	Intake   *intake.Intake
	Pipeline *pipeline.Service
	Minutes  *minutes.Service
	Chunks   *staging.ChunkStore

	Limiter  ratelimit.Store
	Policies ratelimit.Policies
	// memLimiter is set only for the in-process backend, which needs sweeping.
	memLimiter *ratelimit.Memory
}

func wireServices(log *logger.Logger, cfg Config, clients *Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	transcribeGuard := upstream.NewGuard("transcription", upstream.Config{
		Timeout: cfg.TranscriptionTimeout,
		RPS:     cfg.TranscriptionRPS,
		Burst:   2,
	}, metrics.ObserveUpstream)
	documentGuard := upstream.NewGuard("document_extraction", upstream.Config{
		Timeout: cfg.DocumentTimeout,
	}, metrics.ObserveUpstream)
	generationGuard := upstream.NewGuard("generation", upstream.Config{
		Timeout: cfg.GenerationTimeout,
		RPS:     cfg.GenerationRPS,
		Burst:   2,
	}, metrics.ObserveUpstream)
	fetchGuard := upstream.NewGuard("remote_fetch", upstream.Config{
		Timeout: cfg.FetchTimeout,
	}, metrics.ObserveUpstream)

	router := &extractor.Router{
		Transcribe: extractor.NewTranscribe(log, clients.Speech, clients.Video, transcribeGuard, extractor.TranscribeConfig{
			MaxBytes:     cfg.TranscriptionMaxBytes,
			MinBytes:     cfg.MinAudioBytes,
			LanguageHint: cfg.LanguageHint,
			SoftDegrade:  cfg.TranscriptionSoftDegrade,
		}),
		Document: extractor.NewDocument(log, clients.PDFText, extractor.NativeDocuments{MaxPartBytes: cfg.MaxUploadBytes}, documentGuard, extractor.DocumentConfig{
			MinPDFChars: cfg.MinPDFChars,
		}),
		PlainText: extractor.PlainText{},
	}

	chunks, err := staging.NewChunkStore(cfg.StagingDir, cfg.MaxUploadBytes, log)
	if err != nil {
		return Services{}, fmt.Errorf("init chunk store: %w", err)
	}

	policies, err := ratelimit.LoadPolicies(cfg.RateLimitPolicyFile)
	if err != nil {
		return Services{}, err
	}

	s := Services{
		Intake:   intake.New(log, intake.Config{MaxBytes: cfg.MaxUploadBytes}, nil, fetchGuard),
		Pipeline: pipeline.New(log, router, metrics),
		Minutes:  minutes.New(log, clients.Generator, generationGuard, minutes.Config{MaxNotesChars: cfg.MaxNotesChars}),
		Chunks:   chunks,
		Policies: policies,
	}
	if clients.Redis != nil {
		s.Limiter = ratelimit.NewRedis(log, clients.Redis, cfg.RateLimitPrefix)
	} else {
		s.memLimiter = ratelimit.NewMemory(log)
		s.Limiter = s.memLimiter
	}
	return s, nil
}
