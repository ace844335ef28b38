package gcp

import (
	"context"
	"fmt"
	"strings"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

type VideoConfig struct {
	LanguageCode string
	MaxRetries   int
}

// VideoTranscriber implements extractor.SpeechToText for video containers
// using Video Intelligence speech transcription on inline content.
type VideoTranscriber struct {
	log    *logger.Logger
	client *videointelligence.Client
	cfg    VideoConfig
}

func NewVideoTranscriber(ctx context.Context, log *logger.Logger, cfg VideoConfig) (*VideoTranscriber, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := videointelligence.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "it-IT"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &VideoTranscriber{log: log.With("service", "gcp.Video"), client: c, cfg: cfg}, nil
}

func (v *VideoTranscriber) Close() error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Close()
}

func (v *VideoTranscriber) Transcribe(ctx context.Context, req extractor.TranscriptionRequest) (string, error) {
	if v == nil || v.client == nil {
		return "", domain.ErrCredentialMissing
	}
	ar := &vipb.AnnotateVideoRequest{
		InputContent: req.Audio,
		Features:     []vipb.Feature{vipb.Feature_SPEECH_TRANSCRIPTION},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               languageCode(req.LanguageHint, v.cfg.LanguageCode),
				EnableAutomaticPunctuation: true,
			},
		},
	}

	resp, err := retryTransient(ctx, v.cfg.MaxRetries, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := v.client.AnnotateVideo(ctx, ar)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return "", capabilityErr("video annotate", err, domain.ErrUnsupportedFormat)
	}

	text := joinVideoTranscripts(resp)
	v.log.Debug("video transcription complete", "chars", len(text))
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrCapabilityEmptyResult
	}
	return text, nil
}

func joinVideoTranscripts(resp *vipb.AnnotateVideoResponse) string {
	var b strings.Builder
	for _, res := range resp.GetAnnotationResults() {
		for _, st := range res.GetSpeechTranscriptions() {
			alts := st.GetAlternatives()
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
	}
	return b.String()
}
