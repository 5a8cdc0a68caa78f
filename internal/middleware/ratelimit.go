package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/pkg/ratelimit"
	"github.com/nerlude/backend/pkg/response"
)

// Route classes, each with its own budget. Auth endpoints get the tightest
// one since they are the credential-guessing surface.
const (
	ClassAuth   = "auth"
	ClassAPI    = "api"
	ClassUpload = "upload"
)

// RateLimit enforces the per-minute budget for one route class, keyed by the
// authenticated user (client IP for anonymous requests). A nil limiter or a
// backend error fails open: availability over strictness, so a missing or
// unreachable Redis never takes the whole API down with it.
func RateLimit(limiter ratelimit.Limiter, class string, perMinute int, logger *zap.Logger) gin.HandlerFunc {
	if limiter == nil || perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := class + ":" + identityKey(c)
		res, err := limiter.Allow(c.Request.Context(), key, perMinute, time.Minute)
		if err != nil {
			logger.Warn("rate limiter unavailable, failing open", zap.Error(err), zap.String("class", class))
			c.Next()
			return
		}
		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			response.TooManyRequests(c, retryAfter)
			c.Abort()
			return
		}
		c.Next()
	}
}

func identityKey(c *gin.Context) string {
	if v, ok := c.Get(identity.ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id.String()
		}
	}
	return "ip:" + c.ClientIP()
}
