// Package ratelimit is a best-effort sliding-window admission gate keyed by
// client identity. Two stores implement it: Memory is process-local, Redis is
// shared across replicas. Neither is suitable for billing-grade accounting.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

var (
	ErrWindowExceeded = errors.New("rate limit window exceeded")
	ErrHourlyExceeded = errors.New("hourly rate limit exceeded")
)

const hour = time.Hour

// Policy bounds admissions per identifier: MaxPerWindow within Window and,
// when MaxPerHour > 0, MaxPerHour within the trailing hour.
type Policy struct {
	Name         string        `yaml:"-"`
	MaxPerWindow int           `yaml:"maxPerWindow"`
	Window       time.Duration `yaml:"window"`
	MaxPerHour   int           `yaml:"maxPerHour"`
}

func (p Policy) Validate() error {
	if p.MaxPerWindow <= 0 {
		return fmt.Errorf("policy %q: maxPerWindow must be > 0", p.Name)
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy %q: window must be > 0", p.Name)
	}
	if p.MaxPerHour < 0 {
		return fmt.Errorf("policy %q: maxPerHour must be >= 0", p.Name)
	}
	return nil
}

// horizon is the retention span for timestamps: the longest window in play.
func (p Policy) horizon() time.Duration {
	if p.Window > hour {
		return p.Window
	}
	return hour
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
	// Reason is ErrWindowExceeded or ErrHourlyExceeded on rejection.
	Reason error
}

// RetryAfterSeconds rounds up and never reports zero for a rejection.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	s := int(math.Ceil(d.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// Err converts a rejection into the typed failure surfaced to clients.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	kind, msg := domain.KindRateLimitWindow, "rate limit exceeded, retry in %d seconds"
	if errors.Is(d.Reason, ErrHourlyExceeded) {
		kind, msg = domain.KindRateLimitHourly, "hourly limit exceeded, retry in %d seconds"
	}
	e := domain.Errorf(kind, msg, d.RetryAfterSeconds())
	e.RetryAfter = time.Duration(d.RetryAfterSeconds()) * time.Second
	e.Err = d.Reason
	return e
}

type Store interface {
	CheckAndRecord(ctx context.Context, identifier string, p Policy) (Decision, error)
}

const (
	PolicyUpload        = "upload"
	PolicyTranscription = "transcription"
	PolicyGeneration    = "generation"
	PolicyExtraction    = "extraction"
)

type Policies map[string]Policy

// Presets returns the built-in per-route policies.
func Presets() Policies {
	return Policies{
		PolicyUpload:        {Name: PolicyUpload, MaxPerWindow: 5, Window: time.Minute, MaxPerHour: 50},
		PolicyTranscription: {Name: PolicyTranscription, MaxPerWindow: 3, Window: time.Minute, MaxPerHour: 20},
		PolicyGeneration:    {Name: PolicyGeneration, MaxPerWindow: 8, Window: time.Minute, MaxPerHour: 60},
		PolicyExtraction:    {Name: PolicyExtraction, MaxPerWindow: 10, Window: time.Minute, MaxPerHour: 80},
	}
}

// Get returns the named policy, falling back to the preset of the same name.
func (ps Policies) Get(name string) Policy {
	if p, ok := ps[name]; ok {
		return p
	}
	if p, ok := Presets()[name]; ok {
		return p
	}
	return Policy{Name: name, MaxPerWindow: 10, Window: time.Minute, MaxPerHour: 100}
}

type policyFile struct {
	Policies map[string]Policy `yaml:"policies"`
}

// LoadPolicies overlays policies read from a YAML file onto the presets.
// An empty path returns the presets unchanged.
//
//	policies:
//	  transcription:
//	    maxPerWindow: 2
//	    window: 30s
//	    maxPerHour: 10
func LoadPolicies(path string) (Policies, error) {
	out := Presets()
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit policy file: %w", err)
	}
	return ParsePolicies(raw, out)
}

func ParsePolicies(raw []byte, base Policies) (Policies, error) {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rate limit policies: %w", err)
	}
	out := Policies{}
	for k, v := range base {
		out[k] = v
	}
	for name, p := range f.Policies {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}
