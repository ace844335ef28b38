package gcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

type SpeechConfig struct {
	// LanguageCode is used when the request carries no hint.
	LanguageCode string
	Model        string
	UseEnhanced  bool
	MaxRetries   int
}

// SpeechTranscriber implements extractor.SpeechToText with Speech-to-Text v1
// long-running recognition on inline audio.
type SpeechTranscriber struct {
	log    *logger.Logger
	client *speech.Client
	cfg    SpeechConfig
}

func NewSpeechTranscriber(ctx context.Context, log *logger.Logger, cfg SpeechConfig) (*SpeechTranscriber, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := speech.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "it-IT"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &SpeechTranscriber{log: log.With("service", "gcp.Speech"), client: c, cfg: cfg}, nil
}

func (s *SpeechTranscriber) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *SpeechTranscriber) Transcribe(ctx context.Context, req extractor.TranscriptionRequest) (string, error) {
	if s == nil || s.client == nil {
		return "", domain.ErrCredentialMissing
	}
	rcfg := buildRecognitionConfig(req.MimeHint, req.FileName, languageCode(req.LanguageHint, s.cfg.LanguageCode), s.cfg)
	lr := &speechpb.LongRunningRecognizeRequest{
		Config: rcfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio}},
	}

	resp, err := retryTransient(ctx, s.cfg.MaxRetries, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := s.client.LongRunningRecognize(ctx, lr)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return "", capabilityErr("speech recognize", err, domain.ErrUnsupportedFormat)
	}

	text := joinSpeechResults(resp)
	s.log.Debug("speech transcription complete", "results", len(resp.GetResults()), "chars", len(text))
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrCapabilityEmptyResult
	}
	return text, nil
}

func buildRecognitionConfig(mimeType, fileName, lang string, cfg SpeechConfig) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		Model:                      cfg.Model,
		UseEnhanced:                cfg.UseEnhanced,
		EnableAutomaticPunctuation: true,
		Encoding:                   inferSpeechEncoding(mimeType, fileName),
	}
}

// inferSpeechEncoding leaves the encoding unspecified for containers the API
// detects from the header (WAV, FLAC).
func inferSpeechEncoding(mimeType, fileName string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case strings.Contains(m, "wav") || ext == ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || ext == ".flac":
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3") || strings.Contains(m, "mpeg") || ext == ".mp3":
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || ext == ".ogg" || ext == ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "webm") || ext == ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func joinSpeechResults(resp *speechpb.LongRunningRecognizeResponse) string {
	var b strings.Builder
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		t := strings.TrimSpace(alts[0].GetTranscript())
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t)
	}
	return b.String()
}

var regionForLanguage = map[string]string{
	"it": "it-IT",
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"pt": "pt-PT",
}

// languageCode turns an ISO-639-1 hint into a BCP-47 tag the recognizer
// accepts. Tags that already carry a region pass through.
func languageCode(hint, def string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return def
	}
	if strings.Contains(hint, "-") {
		return hint
	}
	if tag, ok := regionForLanguage[strings.ToLower(hint)]; ok {
		return tag
	}
	return hint
}
