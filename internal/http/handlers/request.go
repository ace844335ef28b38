package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/apierr"
)

// bindJSON decodes the body into dst, keeping a body-limit overflow distinct
// from malformed JSON.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return apierr.BadRequest(errors.New("request body is empty"))
		}
		return apierr.BadRequest(fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}

func contentType(c *gin.Context) string {
	mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

func isMultipart(c *gin.Context) bool {
	return contentType(c) == "multipart/form-data"
}

func isJSON(c *gin.Context) bool {
	ct := contentType(c)
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

func errUnsupportedBody() error {
	return apierr.BadRequest(errors.New("expected multipart/form-data or application/json body"))
}

// storageError maps object storage sentinels to their client facing kinds.
func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrStorageUnauthorized):
		return domain.NewError(domain.KindStorageUnauthorized, "object storage rejected the credentials", err)
	case errors.Is(err, domain.ErrStorageQuota):
		return domain.NewError(domain.KindStorageQuotaExceeded, "object storage quota exceeded", err)
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return domain.NewError(domain.KindUpstreamTimeout, "object storage did not respond in time", err)
	default:
		return err
	}
}
