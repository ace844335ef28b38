package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minutebridge-backend/internal/http/response"
)

type HealthHandler struct {
	started time.Time
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{started: time.Now(), version: version}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/ping
func (h *HealthHandler) Ping(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"ok":            true,
		"version":       h.version,
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
	})
}

// POST /api/echo
func (h *HealthHandler) Echo(c *gin.Context) {
	var body map[string]any
	if err := bindJSON(c, &body); err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "echo": body})
}
