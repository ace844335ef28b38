package handlers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/http/response"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/intake"
	"github.com/yungbote/minutebridge-backend/internal/ingestion/staging"
	"github.com/yungbote/minutebridge-backend/internal/platform/gcp"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

const uploadKeyPrefix = "uploads/"

type BlobHandler struct {
	log         *logger.Logger
	intake      *intake.Intake
	store       gcp.ObjectStore
	stagingRoot string
}

func NewBlobHandler(log *logger.Logger, in *intake.Intake, store gcp.ObjectStore, stagingRoot string) *BlobHandler {
	return &BlobHandler{
		log:         log.With("handler", "BlobHandler"),
		intake:      in,
		store:       store,
		stagingRoot: stagingRoot,
	}
}

// POST /api/blobs
//
// Multipart bodies use the first file part. Any other body is stored as-is,
// named by ?fileName or X-File-Name.
func (h *BlobHandler) Upload(c *gin.Context) {
	scope := staging.NewScope(h.stagingRoot, h.log)
	defer scope.Release()

	var (
		st  *intake.Staged
		err error
	)
	if isMultipart(c) {
		st, err = h.intake.StageMultipart(c.Request.Context(), c.Request, scope)
	} else {
		st, err = h.stageRaw(c, scope)
	}
	if err != nil {
		response.Fail(c, err)
		return
	}

	f, err := os.Open(st.Path)
	if err != nil {
		response.Fail(c, fmt.Errorf("open staged upload: %w", err))
		return
	}
	defer f.Close()

	key := uploadKeyPrefix + uuid.New().String() + "-" + st.Name
	url, err := h.store.Put(c.Request.Context(), key, f, st.DeclaredMime)
	if err != nil {
		response.Fail(c, storageError(err))
		return
	}
	h.log.Info("blob stored", "key", key, "size_bytes", st.SizeBytes)
	response.RespondOK(c, gin.H{"ok": true, "url": url, "key": key, "sizeBytes": st.SizeBytes})
}

func (h *BlobHandler) stageRaw(c *gin.Context, scope *staging.Scope) (*intake.Staged, error) {
	if c.Request.Body == nil {
		return nil, domain.Errorf(domain.KindNoFileProvided, "no file was provided")
	}
	f, err := scope.CreateTemp("blob-*")
	if err != nil {
		return nil, err
	}
	max := h.intake.MaxBytes()
	n, err := io.Copy(f, io.LimitReader(c.Request.Body, max+1))
	closeErr := f.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close staged upload: %w", closeErr)
	}
	if n == 0 {
		return nil, domain.Errorf(domain.KindNoFileProvided, "no file was provided")
	}
	if n > max {
		return nil, domain.Errorf(domain.KindPayloadTooLarge, "file exceeds the %d byte limit", max)
	}
	declared := contentType(c)
	name := c.Query("fileName")
	if name == "" {
		name = c.GetHeader("X-File-Name")
	}
	return &intake.Staged{
		Path:         f.Name(),
		Name:         intake.SanitizeName(strings.TrimSpace(name), time.Now(), declared),
		DeclaredMime: declared,
		SizeBytes:    n,
	}, nil
}
