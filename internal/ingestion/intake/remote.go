package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/apierr"
)

type RemoteRequest struct {
	URL      string
	FileName string
	MimeType string
	Language string
}

var driveFileID = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)`)

// directDownloadURL rewrites Google Drive share links ("/file/d/<id>/view",
// "open?id=<id>") to the direct download endpoint. Other URLs pass through.
func directDownloadURL(u *url.URL) *url.URL {
	if !strings.EqualFold(u.Hostname(), "drive.google.com") {
		return u
	}
	id := ""
	if m := driveFileID.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	} else if u.Path == "/open" || u.Path == "/uc" {
		id = u.Query().Get("id")
	}
	if id == "" {
		return u
	}
	out := *u
	out.Path = "/uc"
	out.RawQuery = url.Values{"export": {"download"}, "id": {id}}.Encode()
	return &out
}

// FromRemote downloads the referenced artifact. Upstream HTTP failures keep
// their status; a deadline inside the fetch guard becomes UpstreamTimeout.
func (in *Intake) FromRemote(ctx context.Context, req RemoteRequest) (*domain.Artifact, error) {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apierr.BadRequest(fmt.Errorf("url must be an absolute http(s) URL"))
	}
	u = directDownloadURL(u)

	var (
		body        []byte
		contentType string
	)
	err = in.fetch.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		body, contentType, fetchErr = in.download(ctx, u)
		return fetchErr
	})
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return nil, err
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if errors.Is(err, domain.ErrUpstreamTimeout) {
			return nil, domain.NewError(domain.KindUpstreamTimeout, "remote download timed out", err)
		}
		return nil, domain.NewError(domain.KindUpstreamFetchFailed, "remote download failed", err)
	}

	declared := mediaType(req.MimeType)
	if declared == "" {
		declared = mediaType(contentType)
	}
	now := in.now()
	name := strings.TrimSpace(req.FileName)
	if name == "" {
		if base := path.Base(u.Path); path.Ext(base) != "" {
			name = base
		}
	}
	if name == "" {
		name = SynthesizeName(now, declared)
	} else {
		name = SanitizeName(name, now, declared)
	}
	in.log.Debug("remote artifact fetched", "host", u.Host, "bytes", len(body), "mime", declared)
	return &domain.Artifact{
		Name:         name,
		DeclaredMime: declared,
		Bytes:        body,
		SizeBytes:    int64(len(body)),
		Source:       domain.SourceRemote,
		LanguageHint: strings.TrimSpace(req.Language),
		ReceivedAt:   now,
	}, nil
}

func (in *Intake) download(ctx context.Context, u *url.URL) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	httpReq.Header.Set("User-Agent", in.cfg.UserAgent)
	resp, err := in.client.Do(httpReq)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, "", &domain.Error{
			Kind:           domain.KindUpstreamFetchFailed,
			Message:        fmt.Sprintf("remote server answered %d", resp.StatusCode),
			UpstreamStatus: resp.StatusCode,
		}
	}
	if resp.ContentLength > in.cfg.MaxBytes {
		return nil, "", in.tooLarge()
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, in.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(b)) > in.cfg.MaxBytes {
		return nil, "", in.tooLarge()
	}
	if len(b) == 0 {
		return nil, "", domain.Errorf(domain.KindNoFileProvided, "remote file is empty")
	}
	return b, resp.Header.Get("Content-Type"), nil
}
