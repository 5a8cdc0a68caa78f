package dashboard

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/pkg/response"
)

// Handler handles the dashboard endpoints.
type Handler struct {
	repo   *Repository
	gate   *authz.Gate
	logger *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(repo *Repository, gate *authz.Gate, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, gate: gate, logger: logger}
}

// Stats handles GET /dashboard/stats. Aggregates are scoped to the caller's
// accepted workspaces; an optional workspace_id narrows to one of them.
func (h *Handler) Stats(c *gin.Context) {
	allowed, ok := h.scope(c)
	if !ok {
		return
	}
	stats, err := h.repo.StatsForWorkspaces(c.Request.Context(), allowed)
	if err != nil {
		h.logger.Error("dashboard stats", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, stats)
}

// Alerts handles GET /dashboard/alerts.
func (h *Handler) Alerts(c *gin.Context) {
	allowed, ok := h.scope(c)
	if !ok {
		return
	}
	renewals, err := h.repo.UpcomingRenewals(c.Request.Context(), allowed)
	if err != nil {
		h.logger.Error("dashboard renewals", zap.Error(err))
		response.Internal(c, "failed to load alerts")
		return
	}
	response.OK(c, BuildAlerts(renewals, time.Now()))
}

// scope resolves the caller's workspace allow-list and applies the optional
// workspace_id filter. An id outside the allow-list yields an empty scope
// rather than an error.
func (h *Handler) scope(c *gin.Context) ([]uuid.UUID, bool) {
	allowed, err := h.gate.AllowedWorkspaces(c.Request.Context(), identity.UserID(c))
	if err != nil {
		h.logger.Error("resolve workspaces", zap.Error(err))
		response.Internal(c, "failed to resolve workspaces")
		return nil, false
	}
	if v := c.Query("workspace_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid workspace_id")
			return nil, false
		}
		var scoped []uuid.UUID
		for _, w := range allowed {
			if w == id {
				scoped = append(scoped, w)
			}
		}
		allowed = scoped
	}
	return allowed, true
}
