// Package health reports readiness of the server's dependencies.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	pingTimeout     = 2 * time.Second
	degradedLatency = time.Second
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// PingFunc probes one dependency and reports its round-trip latency.
type PingFunc func(ctx context.Context) (time.Duration, error)

// Handler handles GET /health.
type Handler struct {
	db     PingFunc
	redis  PingFunc // nil when Redis is not configured
	logger *zap.Logger
}

// NewHandler creates a health handler.
func NewHandler(db, redis PingFunc, logger *zap.Logger) *Handler {
	return &Handler{db: db, redis: redis, logger: logger}
}

type check struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Get probes the database (and Redis when configured) and returns 200 only
// when the database is healthy. Slow database responses report degraded with
// 503 so load balancers rotate traffic away. Responses are never cached.
func (h *Handler) Get(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	overall := statusHealthy
	checks := gin.H{}

	db := h.probe(ctx, h.db)
	checks["database"] = db
	if db.Status != statusHealthy {
		overall = db.Status
	}

	if h.redis == nil {
		checks["redis"] = check{Status: statusDisabled}
	} else {
		// Redis is advisory: rate limiting and the job queue fail open
		// without it, so it never flips the overall status.
		checks["redis"] = h.probe(ctx, h.redis)
	}

	code := http.StatusOK
	if overall != statusHealthy {
		code = http.StatusServiceUnavailable
		h.logger.Warn("health check not healthy", zap.String("status", overall))
	}
	c.JSON(code, gin.H{"status": overall, "checks": checks})
}

func (h *Handler) probe(ctx context.Context, ping PingFunc) check {
	latency, err := ping(ctx)
	if err != nil {
		return check{Status: statusUnhealthy, Error: err.Error()}
	}
	status := statusHealthy
	if latency > degradedLatency {
		status = statusDegraded
	}
	return check{Status: status, LatencyMS: latency.Milliseconds()}
}
