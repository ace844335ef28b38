// Package extractor turns a classified artifact into normalized plain text.
// Each strategy wraps one external text-producing capability and converts its
// failures into typed domain errors.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

type Strategy interface {
	Name() string
	Extract(ctx context.Context, a *domain.Artifact, c domain.Classification) (*domain.ExtractedText, error)
}

type TranscriptionRequest struct {
	Audio        []byte
	FileName     string
	MimeHint     string
	LanguageHint string
}

// SpeechToText converts recorded speech to text. Implementations wrap
// domain.ErrCredentialMissing, ErrCapabilityUnavailable,
// ErrCapabilityPayloadTooLarge or ErrCapabilityEmptyResult.
type SpeechToText interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

// DocumentTextProvider extracts embedded text from a structured document.
// Implementations wrap domain.ErrDocumentCorrupt, ErrDocumentEncrypted,
// ErrDocumentNoText or ErrUnsupportedFormat.
type DocumentTextProvider interface {
	ExtractText(ctx context.Context, data []byte, format domain.DocKind) (string, error)
}

// Router selects the strategy for a classification.
type Router struct {
	Transcribe Strategy
	Document   Strategy
	PlainText  Strategy
}

func (r *Router) Select(c domain.Classification) (Strategy, error) {
	var s Strategy
	switch c.Kind {
	case domain.KindAudio, domain.KindVideo:
		s = r.Transcribe
	case domain.KindDocument:
		switch c.Doc {
		case domain.DocPDF, domain.DocDOCX:
			s = r.Document
		case domain.DocTXT, domain.DocMD:
			s = r.PlainText
		}
	}
	if s == nil {
		return nil, domain.Errorf(domain.KindUnsupportedArtifact, "unsupported artifact kind %q", c.SourceKind())
	}
	return s, nil
}

func result(text string, a *domain.Artifact, c domain.Classification, strategy string) *domain.ExtractedText {
	return &domain.ExtractedText{
		Text:              text,
		SourceKind:        c.SourceKind(),
		StrategyUsed:      strategy,
		OriginalSizeBytes: a.SizeBytes,
		CharCount:         utf8.RuneCountInString(text),
	}
}

// capabilityError maps a wrapped capability sentinel to the taxonomy. Anything
// unrecognized stays untyped and surfaces as an internal failure.
func capabilityError(name string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.NewError(domain.KindUpstreamTimeout, name+" did not respond in time", err)
	case errors.Is(err, domain.ErrCredentialMissing), errors.Is(err, domain.ErrCapabilityUnavailable):
		return domain.NewError(domain.KindUpstreamUnavailable, name+" is unavailable", err)
	case errors.Is(err, domain.ErrCapabilityPayloadTooLarge):
		return domain.NewError(domain.KindPayloadTooLargeForTranscription, "file exceeds the "+name+" size limit", err)
	case errors.Is(err, domain.ErrCapabilityEmptyResult):
		return domain.NewError(domain.KindEmptyTranscription, "no speech was recognized", err)
	case errors.Is(err, domain.ErrDocumentEncrypted):
		return domain.NewError(domain.KindProtectedDocument, "document is password protected", err)
	case errors.Is(err, domain.ErrDocumentCorrupt):
		return domain.NewError(domain.KindCorruptDocument, "document could not be parsed", err)
	case errors.Is(err, domain.ErrDocumentNoText):
		return domain.NewError(domain.KindNoExtractableText, "document contains no extractable text", err)
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return domain.NewError(domain.KindUnsupportedArtifact, "document format is not supported", err)
	default:
		return fmt.Errorf("%s: %w", name, err)
	}
}
