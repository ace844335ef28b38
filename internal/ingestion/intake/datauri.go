package intake

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

// data:<mime>[;param=value...];base64,<payload>
var dataURIPattern = regexp.MustCompile(`(?s)^data:([^;,]+)((?:;[^;,]+)*);base64,(.*)$`)

var payloadWhitespace = strings.NewReplacer("\n", "", "\r", "", " ", "", "\t", "")

type DataURIRequest struct {
	DataURI  string
	FileName string
	MimeType string
	Language string
}

// FromDataURI decodes an embedded base64 data URI. The decoded size is bounded
// from the encoded length before any allocation, then checked exactly.
func (in *Intake) FromDataURI(_ context.Context, req DataURIRequest) (*domain.Artifact, error) {
	m := dataURIPattern.FindStringSubmatch(strings.TrimSpace(req.DataURI))
	if m == nil {
		return nil, domain.Errorf(domain.KindMalformedDataURI, "expected data:<mime>;base64,<payload>")
	}
	declared := strings.ToLower(strings.TrimSpace(m[1]))
	payload := payloadWhitespace.Replace(m[3])
	if payload == "" {
		return nil, domain.Errorf(domain.KindMalformedDataURI, "data URI payload is empty")
	}
	if minDecoded := int64(len(payload))*3/4 - 2; minDecoded > in.cfg.MaxBytes {
		return nil, in.tooLarge()
	}

	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		b, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, domain.NewError(domain.KindMalformedDataURI, "data URI payload is not valid base64", err)
		}
	}
	if len(b) == 0 {
		return nil, domain.Errorf(domain.KindMalformedDataURI, "data URI payload is empty")
	}
	if int64(len(b)) > in.cfg.MaxBytes {
		return nil, in.tooLarge()
	}

	if req.MimeType != "" {
		declared = mediaType(req.MimeType)
	}
	now := in.now()
	name := SynthesizeName(now, declared)
	if strings.TrimSpace(req.FileName) != "" {
		name = SanitizeName(req.FileName, now, declared)
	}
	return &domain.Artifact{
		Name:         name,
		DeclaredMime: declared,
		Bytes:        b,
		SizeBytes:    int64(len(b)),
		Source:       domain.SourceDataURI,
		LanguageHint: strings.TrimSpace(req.Language),
		ReceivedAt:   now,
	}, nil
}
