// Package minutes turns extracted notes into formatted meeting minutes and
// cleans raw transcripts, backed by a text generation capability.
package minutes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/platform/upstream"
)

const (
	StrategyFormat     = "generate_minutes"
	StrategyClean      = "generate_clean"
	StrategyLocalClean = "local_clean"

	CleanModeDefault    = "default"
	CleanModeTranscript = "transcript"
)

// TextGenerator produces a completion for a system and user prompt.
// Implementations wrap the capability sentinels from package domain.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type FormatRequest struct {
	Notes        string   `json:"notes"`
	Subject      string   `json:"subject,omitempty"`
	MeetingDate  string   `json:"meetingDate,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

type Result struct {
	Text         string
	StrategyUsed string
	CharCount    int
	Degraded     bool
}

type Config struct {
	// MaxNotesChars bounds the prompt size; 0 disables the check.
	MaxNotesChars int
}

type Service struct {
	log   *logger.Logger
	gen   TextGenerator
	guard *upstream.Guard
	cfg   Config
}

// New builds the service. gen may be nil when no generator is configured.
func New(log *logger.Logger, gen TextGenerator, guard *upstream.Guard, cfg Config) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{log: log.With("service", "MinutesService"), gen: gen, guard: guard, cfg: cfg}
}

func (s *Service) checkNotes(notes string) (string, error) {
	notes = extractor.Normalize(notes)
	if notes == "" {
		return "", domain.Errorf(domain.KindNoExtractableText, "notes are required")
	}
	if s.cfg.MaxNotesChars > 0 && utf8.RuneCountInString(notes) > s.cfg.MaxNotesChars {
		return "", domain.Errorf(domain.KindPayloadTooLarge, "notes exceed %d characters", s.cfg.MaxNotesChars)
	}
	return notes, nil
}

// Format renders Markdown minutes from notes. It has no local fallback.
func (s *Service) Format(ctx context.Context, req FormatRequest) (*Result, error) {
	notes, err := s.checkNotes(req.Notes)
	if err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "minutes generation is not configured")
	}

	out, err := s.generate(ctx, formatSystemPrompt, formatUserPrompt(notes, req))
	if err != nil {
		return nil, generationError(err)
	}
	return &Result{Text: out, StrategyUsed: StrategyFormat, CharCount: utf8.RuneCountInString(out)}, nil
}

// Clean tidies notes through the generator, falling back to the local
// normalizer when the generator is absent or fails. Caller cancellation is
// never masked by the fallback.
func (s *Service) Clean(ctx context.Context, notes, mode string) (*Result, error) {
	notes, err := s.checkNotes(notes)
	if err != nil {
		return nil, err
	}
	if s.gen != nil {
		instruction := cleanModeDefaultInstruction
		if mode == CleanModeTranscript {
			instruction = cleanModeTranscriptInstruction
		}
		out, genErr := s.generate(ctx, cleanSystemPrompt, instruction+"\n\nTesto:\n<<<"+notes+">>>")
		if genErr == nil {
			return &Result{Text: out, StrategyUsed: StrategyClean, CharCount: utf8.RuneCountInString(out)}, nil
		}
		if errors.Is(genErr, context.Canceled) {
			return nil, genErr
		}
		s.log.Warn("cleanup generation failed, using local cleaner", "error", genErr)
	}
	return &Result{Text: notes, StrategyUsed: StrategyLocalClean, CharCount: utf8.RuneCountInString(notes), Degraded: true}, nil
}

func (s *Service) generate(ctx context.Context, system, user string) (string, error) {
	var out string
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var genErr error
		out, genErr = s.gen.Generate(ctx, system, user)
		return genErr
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", domain.ErrCapabilityEmptyResult
	}
	return out, nil
}

func formatUserPrompt(notes string, req FormatRequest) string {
	var b strings.Builder
	b.WriteString("Crea il verbale partendo da questi appunti/trascrizione:\n<<<")
	b.WriteString(notes)
	b.WriteString(">>>\n\nMetadati:\n")
	fmt.Fprintf(&b, "- Oggetto: %s\n", orDash(req.Subject))
	fmt.Fprintf(&b, "- Data: %s\n", orDash(req.MeetingDate))
	fmt.Fprintf(&b, "- Partecipanti: %s\n", orDash(strings.Join(req.Participants, ", ")))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return strings.TrimSpace(s)
}

func generationError(err error) error {
	if _, ok := domain.AsError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.NewError(domain.KindUpstreamTimeout, "minutes generation did not respond in time", err)
	case errors.Is(err, domain.ErrCapabilityEmptyResult):
		return domain.NewError(domain.KindUpstreamUnavailable, "minutes generation returned no content", err)
	case errors.Is(err, domain.ErrCapabilityPayloadTooLarge):
		return domain.NewError(domain.KindPayloadTooLarge, "notes are too long for minutes generation", err)
	default:
		return domain.NewError(domain.KindUpstreamUnavailable, "minutes generation is unavailable", err)
	}
}
