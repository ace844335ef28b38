package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minutebridge-backend/internal/http/response"
	"github.com/yungbote/minutebridge-backend/internal/observability"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
	"github.com/yungbote/minutebridge-backend/internal/ratelimit"
)

// RateLimit admits or rejects the request under policy before the handler
// runs. A store failure lets the request through.
func RateLimit(log *logger.Logger, store ratelimit.Store, policy ratelimit.Policy, m *observability.Metrics) gin.HandlerFunc {
	if store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("middleware", "RateLimit", "policy", policy.Name)
	return func(c *gin.Context) {
		identity := ratelimit.ClientIdentity(c.Request)
		d, err := store.CheckAndRecord(c.Request.Context(), identity, policy)
		if err != nil {
			log.Warn("rate limiter unavailable, admitting request", "client_ip", identity, "error", err)
			m.ObserveRateLimit(policy.Name, "error")
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(policy.MaxPerWindow))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.ResetAt.IsZero() {
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		}

		if !d.Allowed {
			result := "window"
			if errors.Is(d.Reason, ratelimit.ErrHourlyExceeded) {
				result = "hourly"
			}
			m.ObserveRateLimit(policy.Name, result)
			log.Info("rate limit exceeded", "client_ip", identity, "reason", result, "retry_after_s", d.RetryAfterSeconds())
			response.Fail(c, d.Err())
			return
		}
		m.ObserveRateLimit(policy.Name, "allowed")
		c.Next()
	}
}
