package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minutebridge-backend/internal/http/response"
	"github.com/yungbote/minutebridge-backend/internal/minutes"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// MinutesService is satisfied by *minutes.Service.
type MinutesService interface {
	Format(ctx context.Context, req minutes.FormatRequest) (*minutes.Result, error)
	Clean(ctx context.Context, notes, mode string) (*minutes.Result, error)
}

type MinutesHandler struct {
	log *logger.Logger
	svc MinutesService
}

func NewMinutesHandler(log *logger.Logger, svc MinutesService) *MinutesHandler {
	return &MinutesHandler{log: log.With("handler", "MinutesHandler"), svc: svc}
}

type cleanupBody struct {
	Notes string `json:"notes"`
	Mode  string `json:"mode"`
}

func writeResult(c *gin.Context, in string, res *minutes.Result) {
	response.RespondOK(c, response.Envelope{
		OK:   true,
		Text: res.Text,
		Meta: response.Meta{
			SourceKind:   "notes",
			StrategyUsed: res.StrategyUsed,
			SizeBytes:    int64(len(in)),
			CharCount:    res.CharCount,
			Degraded:     res.Degraded,
		},
	})
}

// POST /api/minutes
func (h *MinutesHandler) Format(c *gin.Context) {
	var req minutes.FormatRequest
	if err := bindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	res, err := h.svc.Format(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	writeResult(c, req.Notes, res)
}

// POST /api/cleanup
func (h *MinutesHandler) Cleanup(c *gin.Context) {
	var body cleanupBody
	if err := bindJSON(c, &body); err != nil {
		response.Fail(c, err)
		return
	}
	res, err := h.svc.Clean(c.Request.Context(), body.Notes, body.Mode)
	if err != nil {
		response.Fail(c, err)
		return
	}
	writeResult(c, body.Notes, res)
}
