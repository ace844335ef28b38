package app

import (
	"github.com/gin-gonic/gin"

	server "github.com/yungbote/minutebridge-backend/internal/http"
	"github.com/yungbote/minutebridge-backend/internal/observability"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// bodyLimit leaves room for base64 inflation of a data URI carrying a
// maximum-size file plus the surrounding JSON.
func bodyLimit(maxUpload int64) int64 {
	return maxUpload/3*4 + 1<<20
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, services Services, h Handlers) *gin.Engine {
	log.Info("Wiring router...")
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return server.NewRouter(server.RouterConfig{
		Log:            log,
		ServiceName:    cfg.Otel.ServiceName,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		BodyLimit:      bodyLimit(cfg.MaxUploadBytes),
		Limiter:        services.Limiter,
		Policies:       services.Policies,
		HealthHandler:  h.Health,
		ExtractHandler: h.Extract,
		ChunkHandler:   h.Chunks,
		BlobHandler:    h.Blobs,
		MinutesHandler: h.Minutes,
	})
}
