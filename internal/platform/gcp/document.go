package gcp

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

type DocumentConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	MaxRetries       int
}

// DocumentTextProvider implements extractor.DocumentTextProvider with a
// Document AI processor. Only PDF input is sent; anything else is reported
// as unsupported so the caller can fall back to native parsing.
type DocumentTextProvider struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
	cfg       DocumentConfig
}

func NewDocumentTextProvider(ctx context.Context, log *logger.Logger, cfg DocumentConfig) (*DocumentTextProvider, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	name := processorName(cfg.ProjectID, cfg.Location, cfg.ProcessorID, cfg.ProcessorVersion)
	if name == "" {
		return nil, fmt.Errorf("documentai: project and processor id are required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	dlog := log.With("service", "gcp.Document")
	dlog.Info("Document AI initialized", "endpoint", endpoint, "processor", name)
	return &DocumentTextProvider{log: dlog, client: c, processor: name, cfg: cfg}, nil
}

func (d *DocumentTextProvider) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *DocumentTextProvider) ExtractText(ctx context.Context, data []byte, format domain.DocKind) (string, error) {
	if d == nil || d.client == nil {
		return "", domain.ErrCapabilityUnavailable
	}
	if format != domain.DocPDF {
		return "", fmt.Errorf("documentai %s: %w", format, domain.ErrUnsupportedFormat)
	}
	if len(data) == 0 {
		return "", domain.ErrDocumentNoText
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: "application/pdf"},
		},
		FieldMask: &fieldmaskpb.FieldMask{Paths: []string{"text"}},
	}
	resp, err := retryTransient(ctx, d.cfg.MaxRetries, func() (*documentaipb.ProcessResponse, error) {
		return d.client.ProcessDocument(ctx, req)
	})
	if err != nil {
		return "", capabilityErr("documentai process", err, domain.ErrDocumentCorrupt)
	}
	text := strings.TrimSpace(resp.GetDocument().GetText())
	d.log.Debug("document processed", "pages", len(resp.GetDocument().GetPages()), "chars", len(text))
	return text, nil
}

func processorName(project, location, processorID, version string) string {
	project = strings.TrimSpace(project)
	location = strings.TrimSpace(location)
	processorID = strings.TrimSpace(processorID)
	version = strings.TrimSpace(version)

	if project == "" || location == "" || processorID == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}
