// Package openai adapts the OpenAI API to the transcription and text
// generation capabilities used by the pipeline.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

const (
	DefaultTranscriptionModel  = "gpt-4o-mini-transcribe"
	FallbackTranscriptionModel = "whisper-1"
	DefaultChatModel           = "gpt-4o-mini"
)

type Config struct {
	APIKey  string
	BaseURL string
	// MaxRetries is handed to the SDK; the pipeline itself never retries.
	MaxRetries         int
	TranscriptionModel string
	ChatModel          string
	Temperature        float64
}

func (c Config) withDefaults() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = DefaultTranscriptionModel
	}
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

func newSDKClient(cfg Config) oai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return oai.NewClient(opts...)
}

// isModelNotFound reports an API rejection of the requested model id.
func isModelNotFound(err error) bool {
	var apiErr *oai.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == "model_not_found" {
		return true
	}
	if apiErr.StatusCode == http.StatusNotFound {
		return true
	}
	msg := errorText(apiErr)
	return apiErr.StatusCode == http.StatusBadRequest && strings.Contains(msg, "model") &&
		(strings.Contains(msg, "does not exist") || strings.Contains(msg, "not supported"))
}

// mapAPIError wraps an SDK failure in the matching domain sentinel. Context
// errors pass through untouched.
func mapAPIError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *oai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrCapabilityUnavailable, err)
	}
	msg := errorText(apiErr)
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrCredentialMissing, err)
	case apiErr.StatusCode == http.StatusRequestEntityTooLarge,
		apiErr.StatusCode == http.StatusBadRequest && (strings.Contains(msg, "too large") || strings.Contains(msg, "maximum content size")):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrCapabilityPayloadTooLarge, err)
	case apiErr.StatusCode == http.StatusBadRequest && (strings.Contains(msg, "file format") || strings.Contains(msg, "could not be decoded")):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUnsupportedFormat, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrCapabilityUnavailable, err)
	}
}

// errorText lowercases the parsed message plus the raw error body, which the
// SDK keeps in Error().
func errorText(e *oai.Error) string {
	return strings.ToLower(e.Message + " " + e.Error())
}
