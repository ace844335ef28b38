package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/http/response"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/intake"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/staging"
	"github.com/yungbote/minutebridge-backend/internal/platform/apierr"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

type ChunkHandler struct {
	log         *logger.Logger
	chunks      *staging.ChunkStore
	intake      *intake.Intake
	pipeline    ExtractionService
	stagingRoot string
}

func NewChunkHandler(log *logger.Logger, chunks *staging.ChunkStore, in *intake.Intake, pipeline ExtractionService, stagingRoot string) *ChunkHandler {
	return &ChunkHandler{
		log:         log.With("handler", "ChunkHandler"),
		chunks:      chunks,
		intake:      in,
		pipeline:    pipeline,
		stagingRoot: stagingRoot,
	}
}

// POST /api/chunks
func (h *ChunkHandler) Begin(c *gin.Context) {
	id, err := h.chunks.Begin()
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "uploadId": id})
}

// PUT /api/chunks/:uploadId/:index?total=N
func (h *ChunkHandler) Put(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, apierr.BadRequest(err))
		return
	}
	total, err := strconv.Atoi(c.Query("total"))
	if err != nil {
		response.Fail(c, apierr.BadRequest(err))
		return
	}
	received, err := h.chunks.Put(c.Request.Context(), c.Param("uploadId"), index, total, c.Request.Body)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "received": received, "total": total})
}

type completeBody struct {
	Total    int    `json:"total"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Language string `json:"language"`
}

// POST /api/chunks/:uploadId/complete
func (h *ChunkHandler) Complete(c *gin.Context) {
	var body completeBody
	if err := bindJSON(c, &body); err != nil {
		response.Fail(c, err)
		return
	}
	scope := staging.NewScope(h.stagingRoot, h.log)
	defer scope.Release()

	path, size, err := h.chunks.Assemble(c.Request.Context(), c.Param("uploadId"), body.Total, scope)
	if err != nil {
		response.Fail(c, err)
		return
	}
	declared := strings.ToLower(strings.TrimSpace(body.MimeType))
	a, err := h.intake.Load(&intake.Staged{
		Path:         path,
		Name:         intake.SanitizeName(body.FileName, time.Now(), declared),
		DeclaredMime: declared,
		SizeBytes:    size,
		LanguageHint: body.Language,
	}, domain.SourceChunked)
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
