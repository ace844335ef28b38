package extractor

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

const StrategyPlainText = "plain_text"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainText passes TXT and MD content through after UTF-8 validation.
// Invalid sequences are rejected rather than replaced.
type PlainText struct{}

func (PlainText) Name() string { return StrategyPlainText }

func (PlainText) Extract(_ context.Context, a *domain.Artifact, c domain.Classification) (*domain.ExtractedText, error) {
	b := bytes.TrimPrefix(a.Bytes, utf8BOM)
	if !utf8.Valid(b) {
		return nil, domain.Errorf(domain.KindInvalidTextEncoding, "text file is not valid UTF-8")
	}
	text := Normalize(string(b))
	if text == "" {
		return nil, domain.Errorf(domain.KindNoExtractableText, "the file is empty")
	}
	return result(text, a, c, StrategyPlainText), nil
}
