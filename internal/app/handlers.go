package app

import (
	httpH "github.com/yungbote/minutebridge-backend/internal/http/handlers"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Extract *httpH.ExtractHandler
	Chunks  *httpH.ChunkHandler
	Blobs   *httpH.BlobHandler
	Minutes *httpH.MinutesHandler
}

func wireHandlers(log *logger.Logger, cfg Config, clients *Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:  httpH.NewHealthHandler(cfg.Version),
		Extract: httpH.NewExtractHandler(log, services.Intake, services.Pipeline, cfg.StagingDir),
		Chunks:  httpH.NewChunkHandler(log, services.Chunks, services.Intake, services.Pipeline, cfg.StagingDir),
		Minutes: httpH.NewMinutesHandler(log, services.Minutes),
	}
	// without a bucket the upload route is not registered
	if clients.Bucket != nil {
		h.Blobs = httpH.NewBlobHandler(log, services.Intake, clients.Bucket, cfg.StagingDir)
	}
	return h
}
