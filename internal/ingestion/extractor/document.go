package extractor

import (
	"context"
	"errors"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/platform/upstream"
)

const (
	StrategyDocument         = "document_extract"
	StrategyDocumentFallback = "document_extract_html_fallback"

	DefaultMinPDFChars = 50
)

type DocumentConfig struct {
	// PDFs whose normalized text is shorter than this are treated as scans.
	MinPDFChars int
}

// Document extracts text from PDF and DOCX artifacts.
type Document struct {
	log    *logger.Logger
	pdf    DocumentTextProvider
	native NativeDocuments
	guard  *upstream.Guard
	cfg    DocumentConfig
}

// NewDocument uses pdf for PDFs (native when nil) and always parses DOCX
// in-process. guard wraps only the PDF provider and may be nil.
func NewDocument(log *logger.Logger, pdf DocumentTextProvider, native NativeDocuments, guard *upstream.Guard, cfg DocumentConfig) *Document {
	if log == nil {
		log = logger.NewNop()
	}
	if pdf == nil {
		pdf = native
	}
	if cfg.MinPDFChars <= 0 {
		cfg.MinPDFChars = DefaultMinPDFChars
	}
	return &Document{log: log.With("strategy", StrategyDocument), pdf: pdf, native: native, guard: guard, cfg: cfg}
}

func (d *Document) Name() string { return StrategyDocument }

func (d *Document) Extract(ctx context.Context, a *domain.Artifact, c domain.Classification) (*domain.ExtractedText, error) {
	switch c.Doc {
	case domain.DocPDF:
		return d.extractPDF(ctx, a, c)
	case domain.DocDOCX:
		return d.extractDOCX(ctx, a, c)
	default:
		return nil, domain.Errorf(domain.KindUnsupportedArtifact, "document extraction does not handle %q", c.SourceKind())
	}
}

func (d *Document) extractPDF(ctx context.Context, a *domain.Artifact, c domain.Classification) (*domain.ExtractedText, error) {
	var raw string
	err := d.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = d.pdf.ExtractText(ctx, a.Bytes, domain.DocPDF)
		return callErr
	})
	if err != nil && !errors.Is(err, domain.ErrDocumentNoText) {
		return nil, capabilityError("pdf extraction", err)
	}
	text := Normalize(raw)
	if !Usable(text, d.cfg.MinPDFChars) {
		d.log.Info("pdf has no embedded text layer", "file", a.Name, "chars", len(text))
		return nil, domain.Errorf(domain.KindScannedDocumentNoText,
			"the PDF has no selectable text; it looks like a scan and needs OCR")
	}
	return result(text, a, c, StrategyDocument), nil
}

func (d *Document) extractDOCX(ctx context.Context, a *domain.Artifact, c domain.Classification) (*domain.ExtractedText, error) {
	raw, err := d.native.ExtractText(ctx, a.Bytes, domain.DocDOCX)
	if err != nil {
		return nil, capabilityError("docx extraction", err)
	}
	if text := Normalize(raw); text != "" {
		return result(text, a, c, StrategyDocument), nil
	}

	d.log.Debug("docx body empty, trying rendered fallback", "file", a.Name)
	markup, err := d.native.RenderDOCXHTML(a.Bytes)
	if err != nil {
		return nil, capabilityError("docx extraction", err)
	}
	if text := HTMLToText(markup); text != "" {
		return result(text, a, c, StrategyDocumentFallback), nil
	}
	return nil, domain.Errorf(domain.KindNoExtractableText, "the document contains no extractable text")
}
