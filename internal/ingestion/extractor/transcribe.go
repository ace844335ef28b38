package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/platform/upstream"
)

const (
	StrategyTranscribe = "transcribe"

	// UnavailablePlaceholder is returned instead of a transcript when no
	// speech-to-text capability is configured and soft-degrade is enabled.
	UnavailablePlaceholder = "[Transcription unavailable: no speech-to-text service is configured. Paste the meeting notes manually.]"
)

type TranscribeConfig struct {
	// MaxBytes is the speech capability's own ceiling, distinct from the intake ceiling.
	MaxBytes int64
	// Inputs smaller than MinBytes cannot hold audible speech and are rejected
	// without an upstream call.
	MinBytes     int64
	LanguageHint string
	SoftDegrade  bool
}

type Transcribe struct {
	log   *logger.Logger
	audio SpeechToText
	video SpeechToText
	guard *upstream.Guard
	cfg   TranscribeConfig
}

// NewTranscribe wires the strategy. audio may be nil when no credential is
// configured; video falls back to audio when nil.
func NewTranscribe(log *logger.Logger, audio, video SpeechToText, guard *upstream.Guard, cfg TranscribeConfig) *Transcribe {
	if log == nil {
		log = logger.NewNop()
	}
	if video == nil {
		video = audio
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 1024
	}
	return &Transcribe{log: log.With("strategy", StrategyTranscribe), audio: audio, video: video, guard: guard, cfg: cfg}
}

func (t *Transcribe) Name() string { return StrategyTranscribe }

func (t *Transcribe) Extract(ctx context.Context, a *domain.Artifact, c domain.Classification) (*domain.ExtractedText, error) {
	if !c.IsMedia() {
		return nil, domain.Errorf(domain.KindUnsupportedArtifact, "transcription requires audio or video, got %q", c.SourceKind())
	}
	capability := t.audio
	if c.Kind == domain.KindVideo {
		capability = t.video
	}
	if int64(len(a.Bytes)) < t.cfg.MinBytes {
		return nil, domain.Errorf(domain.KindEmptyTranscription, "recording is empty or too short to contain speech")
	}
	if t.cfg.MaxBytes > 0 && int64(len(a.Bytes)) > t.cfg.MaxBytes {
		return nil, domain.Errorf(domain.KindPayloadTooLargeForTranscription,
			"recording is %d bytes; transcription accepts at most %d", len(a.Bytes), t.cfg.MaxBytes)
	}
	if capability == nil {
		return t.unavailable(a, c, domain.ErrCredentialMissing)
	}

	lang := a.LanguageHint
	if lang == "" {
		lang = t.cfg.LanguageHint
	}
	req := TranscriptionRequest{Audio: a.Bytes, FileName: a.Name, MimeHint: a.DeclaredMime, LanguageHint: lang}

	var raw string
	err := t.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = capability.Transcribe(ctx, req)
		return callErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrCredentialMissing) {
			return t.unavailable(a, c, err)
		}
		return nil, capabilityError("speech-to-text", err)
	}

	text := Normalize(raw)
	if text == "" {
		return nil, domain.Errorf(domain.KindEmptyTranscription, "no speech was recognized")
	}
	return result(text, a, c, StrategyTranscribe), nil
}

func (t *Transcribe) unavailable(a *domain.Artifact, c domain.Classification, cause error) (*domain.ExtractedText, error) {
	if !t.cfg.SoftDegrade {
		return nil, domain.NewError(domain.KindUpstreamUnavailable, "speech-to-text is not configured", cause)
	}
	t.log.Warn("transcription unavailable, returning placeholder", "file", a.Name, "cause", fmt.Sprint(cause))
	out := result(UnavailablePlaceholder, a, c, StrategyTranscribe)
	out.Degraded = true
	return out, nil
}
