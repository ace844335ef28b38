package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/http/response"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/intake"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/staging"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// ExtractionService is satisfied by *pipeline.Service.
type ExtractionService interface {
	Process(ctx context.Context, a *domain.Artifact) (*domain.ExtractedText, error)
	Transcribe(ctx context.Context, a *domain.Artifact) (*domain.ExtractedText, error)
}

type ExtractHandler struct {
	log         *logger.Logger
	intake      *intake.Intake
	pipeline    ExtractionService
	stagingRoot string
}

func NewExtractHandler(log *logger.Logger, in *intake.Intake, pipeline ExtractionService, stagingRoot string) *ExtractHandler {
	return &ExtractHandler{
		log:         log.With("handler", "ExtractHandler"),
		intake:      in,
		pipeline:    pipeline,
		stagingRoot: stagingRoot,
	}
}

type dataURIBody struct {
	FileData string `json:"fileData"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Language string `json:"language"`
}

type remoteBody struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Language string `json:"language"`
}

// readArtifact accepts a multipart upload or a JSON data URI body.
func (h *ExtractHandler) readArtifact(c *gin.Context, scope *staging.Scope) (*domain.Artifact, error) {
	ctx := c.Request.Context()
	switch {
	case isMultipart(c):
		return h.intake.FromMultipart(ctx, c.Request, scope)
	case isJSON(c):
		var body dataURIBody
		if err := bindJSON(c, &body); err != nil {
			return nil, err
		}
		if strings.TrimSpace(body.FileData) == "" {
			return nil, domain.Errorf(domain.KindNoFileProvided, "fileData is required")
		}
		return h.intake.FromDataURI(ctx, intake.DataURIRequest{
			DataURI:  body.FileData,
			FileName: body.FileName,
			MimeType: body.MimeType,
			Language: body.Language,
		})
	default:
		return nil, errUnsupportedBody()
	}
}

// POST /api/extract
func (h *ExtractHandler) Extract(c *gin.Context) {
	scope := staging.NewScope(h.stagingRoot, h.log)
	defer scope.Release()

	a, err := h.readArtifact(c, scope)
	if err != nil {
		response.Fail(c, err)
		return
	}
	out, err := h.pipeline.Process(c.Request.Context(), a)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Extracted(c, out)
}

// POST /api/transcribe
func (h *ExtractHandler) Transcribe(c *gin.Context) {
	scope := staging.NewScope(h.stagingRoot, h.log)
	defer scope.Release()

	a, err := h.readArtifact(c, scope)
	if err != nil {
		response.Fail(c, err)
		return
	}
	out, err := h.pipeline.Transcribe(c.Request.Context(), a)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Extracted(c, out)
}

// POST /api/extract/remote
func (h *ExtractHandler) ExtractRemote(c *gin.Context) {
	var body remoteBody
	if err := bindJSON(c, &body); err != nil {
		response.Fail(c, err)
		return
	}
	a, err := h.intake.FromRemote(c.Request.Context(), intake.RemoteRequest{
		URL:      body.URL,
		FileName: body.FileName,
		MimeType: body.MimeType,
		Language: body.Language,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	out, err := h.pipeline.Process(c.Request.Context(), a)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Extracted(c, out)
}
