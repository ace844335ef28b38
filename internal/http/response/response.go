// Package response writes the JSON envelopes shared by every route.
package response

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/apierr"
)

// StatusClientClosedRequest is recorded when the caller went away mid-request.
const StatusClientClosedRequest = 499

type Meta struct {
	SourceKind   string `json:"sourceKind,omitempty"`
	StrategyUsed string `json:"strategyUsed"`
	SizeBytes    int64  `json:"sizeBytes"`
	CharCount    int    `json:"charCount"`
	Degraded     bool   `json:"degraded,omitempty"`
}

type Envelope struct {
	OK   bool   `json:"ok"`
	Text string `json:"text"`
	Meta Meta   `json:"meta"`
}

type ErrorEnvelope struct {
	OK                bool   `json:"ok"`
	ErrorKind         string `json:"errorKind"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Extracted writes the success envelope for an extraction result.
func Extracted(c *gin.Context, out *domain.ExtractedText) {
	RespondOK(c, Envelope{
		OK:   true,
		Text: out.Text,
		Meta: Meta{
			SourceKind:   out.SourceKind,
			StrategyUsed: out.StrategyUsed,
			SizeBytes:    out.OriginalSizeBytes,
			CharCount:    out.CharCount,
			Degraded:     out.Degraded,
		},
	})
}

// Fail maps err to the failure envelope. Untyped errors become a generic 500
// and are attached to the gin context for the request logger. A canceled
// request gets no body.
func Fail(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	if errors.Is(err, context.Canceled) {
		_ = c.Error(err)
		c.AbortWithStatus(StatusClientClosedRequest)
		return
	}

	var ae *apierr.Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, ErrorEnvelope{ErrorKind: ae.Code, Message: ae.Error()})
		return
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		err = domain.Errorf(domain.KindPayloadTooLarge, "request body exceeds the %d byte limit", mbe.Limit)
	}

	de, ok := domain.AsError(err)
	if !ok || de.Kind == domain.KindInternal {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorEnvelope{
			ErrorKind: string(domain.KindInternal),
			Message:   "internal error",
		})
		return
	}

	env := ErrorEnvelope{ErrorKind: string(de.Kind), Message: de.Message}
	if de.RetryAfter > 0 {
		env.RetryAfterSeconds = int(math.Ceil(de.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(env.RetryAfterSeconds))
	}
	c.AbortWithStatusJSON(de.Status(), env)
}
