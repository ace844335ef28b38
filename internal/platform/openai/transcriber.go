package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	oai "github.com/openai/openai-go"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// Transcriber implements extractor.SpeechToText. It tries the configured
// model first and falls back to whisper-1 when the account cannot use it.
type Transcriber struct {
	log    *logger.Logger
	client oai.Client
	models []string
}

func NewTranscriber(log *logger.Logger, cfg Config) *Transcriber {
	if log == nil {
		log = logger.NewNop()
	}
	cfg = cfg.withDefaults()
	models := []string{cfg.TranscriptionModel}
	if cfg.TranscriptionModel != FallbackTranscriptionModel {
		models = append(models, FallbackTranscriptionModel)
	}
	return &Transcriber{log: log.With("service", "openai.Transcriber"), client: newSDKClient(cfg), models: models}
}

func (t *Transcriber) Transcribe(ctx context.Context, req extractor.TranscriptionRequest) (string, error) {
	contentType := req.MimeHint
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var lastErr error
	for i, model := range t.models {
		params := oai.AudioTranscriptionNewParams{
			File:           oai.File(bytes.NewReader(req.Audio), fileName(req.FileName), contentType),
			Model:          oai.AudioModel(model),
			ResponseFormat: oai.AudioResponseFormatText,
		}
		if lang := strings.TrimSpace(req.LanguageHint); lang != "" {
			params.Language = oai.String(lang)
		}

		// Transcriptions.New only decodes JSON bodies; the text format needs a raw read.
		var raw []byte
		err := t.client.Post(ctx, "audio/transcriptions", params, &raw)
		if err != nil {
			lastErr = err
			if i < len(t.models)-1 && isModelNotFound(err) {
				t.log.Warn("transcription model unavailable, falling back", "model", model, "fallback", t.models[i+1])
				continue
			}
			return "", mapAPIError("openai transcription", err)
		}

		text := transcriptText(raw)
		t.log.Debug("transcription complete", "model", model, "chars", len(text))
		if text == "" {
			return "", domain.ErrCapabilityEmptyResult
		}
		return text, nil
	}
	return "", mapAPIError("openai transcription", lastErr)
}

// transcriptText accepts the plain-text body and, from compatible servers
// that ignore response_format, the JSON one.
func transcriptText(raw []byte) string {
	body := bytes.TrimSpace(raw)
	if len(body) > 0 && body[0] == '{' {
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &obj); err == nil {
			return strings.TrimSpace(obj.Text)
		}
	}
	return string(body)
}

// fileName keeps the extension the API uses to detect the container.
func fileName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "audio.mp3"
	}
	return name
}
