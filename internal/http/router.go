package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/minutebridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/minutebridge-backend/internal/http/middleware"
	"github.com/yungbote/minutebridge-backend/internal/observability"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/ratelimit"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	Metrics     *observability.Metrics
	CORSOrigins []string
	// BodyLimit caps every request body; intake enforces the per-file ceiling.
	BodyLimit int64

	Limiter  ratelimit.Store
	Policies ratelimit.Policies

	HealthHandler  *httpH.HealthHandler
	ExtractHandler *httpH.ExtractHandler
	ChunkHandler   *httpH.ChunkHandler
	BlobHandler    *httpH.BlobHandler
	MinutesHandler *httpH.MinutesHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	limit := func(policy string) gin.HandlerFunc {
		return httpMW.RateLimit(cfg.Log, cfg.Limiter, cfg.Policies.Get(policy), cfg.Metrics)
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.LimitBody(cfg.BodyLimit))
	{
		if cfg.HealthHandler != nil {
			api.GET("/ping", cfg.HealthHandler.Ping)
			api.POST("/echo", cfg.HealthHandler.Echo)
		}

		// Extraction
		if cfg.ExtractHandler != nil {
			api.POST("/extract", limit(ratelimit.PolicyExtraction), cfg.ExtractHandler.Extract)
			api.POST("/extract/remote", limit(ratelimit.PolicyExtraction), cfg.ExtractHandler.ExtractRemote)
			api.POST("/transcribe", limit(ratelimit.PolicyTranscription), cfg.ExtractHandler.Transcribe)
		}

		// Chunked uploads
		if cfg.ChunkHandler != nil {
			api.POST("/chunks", limit(ratelimit.PolicyUpload), cfg.ChunkHandler.Begin)
			// chunk writes are bounded by staging.MaxChunks and the upload ceiling, not the limiter
			api.PUT("/chunks/:uploadId/:index", cfg.ChunkHandler.Put)
			api.POST("/chunks/:uploadId/complete", limit(ratelimit.PolicyExtraction), cfg.ChunkHandler.Complete)
		}

		// Object storage
		if cfg.BlobHandler != nil {
			api.POST("/blobs", limit(ratelimit.PolicyUpload), cfg.BlobHandler.Upload)
		}

		// Minutes
		if cfg.MinutesHandler != nil {
			api.POST("/minutes", limit(ratelimit.PolicyGeneration), cfg.MinutesHandler.Format)
			api.POST("/cleanup", limit(ratelimit.PolicyGeneration), cfg.MinutesHandler.Cleanup)
		}
	}

	return r
}
