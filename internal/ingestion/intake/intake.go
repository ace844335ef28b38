// Package intake turns the three supported transports (multipart stream,
// base64 data URI, remote URL) into a single in-memory domain.Artifact,
// enforcing the configured size ceiling on every path.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/staging"
	"github.com/yungbote/minutebridge-backend/internal/platform/apierr"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/platform/upstream"
)

const maxFieldBytes = 4 << 10

type Config struct {
	MaxBytes int64
	// FileField selects the multipart field holding the artifact; empty takes the first file part.
	FileField string
	UserAgent string
}

type Intake struct {
	log    *logger.Logger
	cfg    Config
	client *http.Client
	fetch  *upstream.Guard
	now    func() time.Time
}

// New builds an Intake. fetch bounds remote downloads; client defaults to a
// plain http.Client whose lifetime is governed by the guard's deadline.
func New(log *logger.Logger, cfg Config, client *http.Client, fetch *upstream.Guard) *Intake {
	if log == nil {
		log = logger.NewNop()
	}
	if client == nil {
		client = &http.Client{}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "minutebridge-intake/1.0"
	}
	return &Intake{log: log.With("service", "Intake"), cfg: cfg, client: client, fetch: fetch, now: time.Now}
}

func (in *Intake) MaxBytes() int64 { return in.cfg.MaxBytes }

func (in *Intake) tooLarge() *domain.Error {
	return domain.Errorf(domain.KindPayloadTooLarge, "file exceeds the %d byte limit", in.cfg.MaxBytes)
}

// Staged is a multipart file written to a scope-owned temporary path.
type Staged struct {
	Path         string
	Name         string
	DeclaredMime string
	SizeBytes    int64
	LanguageHint string
}

// StageMultipart streams the first (or configured) file part of r to disk,
// aborting as soon as the running byte count passes the ceiling. The staged
// file belongs to scope and is removed when the scope is released.
func (in *Intake) StageMultipart(ctx context.Context, r *http.Request, scope *staging.Scope) (*Staged, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apierr.BadRequest(fmt.Errorf("expected multipart/form-data body: %w", err))
	}

	var (
		staged             *Staged
		nameHint, mimeHint string
		language           string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return nil, in.tooLarge()
			}
			return nil, apierr.BadRequest(fmt.Errorf("read multipart: %w", err))
		}

		if part.FileName() == "" {
			val, err := readField(part)
			_ = part.Close()
			if err != nil {
				return nil, apierr.BadRequest(fmt.Errorf("field %q: %w", part.FormName(), err))
			}
			switch part.FormName() {
			case "fileName", "filename":
				nameHint = val
			case "mimeType":
				mimeHint = val
			case "language":
				language = val
			}
			continue
		}

		if staged != nil || (in.cfg.FileField != "" && part.FormName() != in.cfg.FileField) {
			_ = part.Close()
			continue
		}
		staged, err = in.stagePart(part, scope)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
	}

	if staged == nil {
		return nil, domain.Errorf(domain.KindNoFileProvided, "no file was provided")
	}
	if nameHint != "" {
		staged.Name = nameHint
	}
	if mimeHint != "" {
		staged.DeclaredMime = mimeHint
	}
	staged.Name = SanitizeName(staged.Name, in.now(), staged.DeclaredMime)
	staged.LanguageHint = language
	return staged, nil
}

func (in *Intake) stagePart(part *multipart.Part, scope *staging.Scope) (*Staged, error) {
	f, err := scope.CreateTemp("intake-*")
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(f, io.LimitReader(part, in.cfg.MaxBytes+1))
	closeErr := f.Close()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, in.tooLarge()
		}
		return nil, apierr.BadRequest(fmt.Errorf("read file part: %w", err))
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close staged file: %w", closeErr)
	}
	if n > in.cfg.MaxBytes {
		return nil, in.tooLarge()
	}
	return &Staged{
		Path:         f.Name(),
		Name:         part.FileName(),
		DeclaredMime: mediaType(part.Header.Get("Content-Type")),
		SizeBytes:    n,
	}, nil
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxFieldBytes {
		return "", errors.New("field too long")
	}
	return strings.TrimSpace(string(b)), nil
}

// FromMultipart stages the upload and loads it as an Artifact.
func (in *Intake) FromMultipart(ctx context.Context, r *http.Request, scope *staging.Scope) (*domain.Artifact, error) {
	st, err := in.StageMultipart(ctx, r, scope)
	if err != nil {
		return nil, err
	}
	return in.Load(st, domain.SourceMultipart)
}

// Load reads a staged file into memory. The file itself stays owned by its scope.
func (in *Intake) Load(st *Staged, source domain.ArtifactSource) (*domain.Artifact, error) {
	if st.SizeBytes > in.cfg.MaxBytes {
		return nil, in.tooLarge()
	}
	b, err := os.ReadFile(st.Path)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	if int64(len(b)) > in.cfg.MaxBytes {
		return nil, in.tooLarge()
	}
	return &domain.Artifact{
		Name:         st.Name,
		DeclaredMime: st.DeclaredMime,
		Bytes:        b,
		SizeBytes:    int64(len(b)),
		Source:       source,
		LanguageHint: st.LanguageHint,
		ReceivedAt:   in.now(),
	}, nil
}

// mediaType strips parameters from a Content-Type value.
func mediaType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
