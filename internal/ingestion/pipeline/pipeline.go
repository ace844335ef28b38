// Package pipeline runs one artifact through classification, strategy
// selection and extraction, and records the outcome.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/classify"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/observability"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

type Service struct {
	log     *logger.Logger
	router  *extractor.Router
	metrics *observability.Metrics
	tracer  trace.Tracer
}

func New(log *logger.Logger, router *extractor.Router, metrics *observability.Metrics) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		log:     log.With("component", "pipeline"),
		router:  router,
		metrics: metrics,
		tracer:  otel.Tracer("minutebridge/pipeline"),
	}
}

// Process extracts normalized text from any supported artifact.
func (s *Service) Process(ctx context.Context, a *domain.Artifact) (*domain.ExtractedText, error) {
	return s.run(ctx, a, false)
}

// Transcribe is Process restricted to audio and video.
func (s *Service) Transcribe(ctx context.Context, a *domain.Artifact) (*domain.ExtractedText, error) {
	return s.run(ctx, a, true)
}

func (s *Service) run(ctx context.Context, a *domain.Artifact, mediaOnly bool) (*domain.ExtractedText, error) {
	if a == nil || len(a.Bytes) == 0 {
		return nil, domain.Errorf(domain.KindNoFileProvided, "no file provided")
	}
	ctx, span := s.tracer.Start(ctx, "pipeline.extract", trace.WithAttributes(
		attribute.String("artifact.source", string(a.Source)),
		attribute.Int64("artifact.size_bytes", a.SizeBytes),
	))
	defer span.End()

	c := classify.Resolve(a.Name, a.DeclaredMime, a.Bytes)
	span.SetAttributes(
		attribute.String("artifact.kind", c.SourceKind()),
		attribute.String("artifact.evidence", string(c.Evidence)),
	)
	if mediaOnly && !c.IsMedia() {
		err := domain.Errorf(domain.KindUnsupportedArtifact, "transcription accepts audio or video only, got %q", c.SourceKind())
		s.finish(span, c, "", 0, 0, err)
		return nil, err
	}

	strategy, err := s.router.Select(c)
	if err != nil {
		s.finish(span, c, "", 0, 0, err)
		return nil, err
	}

	started := time.Now()
	out, err := strategy.Extract(ctx, a, c)
	elapsed := time.Since(started)
	if err != nil {
		s.finish(span, c, strategy.Name(), 0, elapsed, err)
		return nil, err
	}
	s.finish(span, c, out.StrategyUsed, out.CharCount, elapsed, nil)
	s.log.Info("extraction complete",
		"source_kind", out.SourceKind,
		"strategy", out.StrategyUsed,
		"size_bytes", out.OriginalSizeBytes,
		"char_count", out.CharCount,
		"degraded", out.Degraded,
		"duration_ms", elapsed.Milliseconds(),
	)
	return out, nil
}

func (s *Service) finish(span trace.Span, c domain.Classification, strategy string, chars int, elapsed time.Duration, err error) {
	s.metrics.ObserveExtraction(c.SourceKind(), strategy, chars, elapsed, err)
	if strategy != "" {
		span.SetAttributes(attribute.String("extraction.strategy", strategy))
	}
	if err == nil {
		span.SetAttributes(attribute.Int("extraction.char_count", chars))
		return
	}
	if errors.Is(err, context.Canceled) {
		span.SetStatus(codes.Error, "canceled")
		s.log.Debug("extraction canceled", "source_kind", c.SourceKind(), "strategy", strategy)
		return
	}
	kind := domain.KindOf(err)
	span.SetAttributes(attribute.String("extraction.error_kind", string(kind)))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	if kind == domain.KindInternal {
		s.log.Error("extraction failed", "source_kind", c.SourceKind(), "strategy", strategy, "error", err)
		return
	}
	s.log.Warn("extraction rejected", "source_kind", c.SourceKind(), "strategy", strategy, "error_kind", kind, "error", err)
}
