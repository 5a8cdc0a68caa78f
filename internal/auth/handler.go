package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/audit"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/pkg/queue"
	"github.com/nerlude/backend/pkg/response"
	"github.com/nerlude/backend/pkg/utils"
)

const resetTokenTTL = 30 * time.Minute

// WorkspaceLookup scopes login/logout audit entries to the caller's oldest
// accepted workspace, if any.
type WorkspaceLookup interface {
	FirstAcceptedWorkspaceID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// TokenResponse is the auth response with the session token.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo       *Repository
	jwt        *JWTService
	workspaces WorkspaceLookup
	recorder   *audit.Recorder
	jobs       *queue.Queue
	baseURL    string
	logger     *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, workspaces WorkspaceLookup, recorder *audit.Recorder, jobs *queue.Queue, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		repo:       repo,
		jwt:        jwt,
		workspaces: workspaces,
		recorder:   recorder,
		jobs:       jobs,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := h.repo.GetByEmail(c.Request.Context(), email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), email, hash, req.FullName)
	if err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	if err := h.jobs.EnqueueNotification(c.Request.Context(), queue.NotificationPayload{
		UserID: user.ID,
		Kind:   "welcome",
		Title:  "Welcome to Nerlude",
		Body:   "Create a workspace to start tracking your projects.",
	}); err != nil {
		h.logger.Warn("enqueue welcome notification", zap.Error(err))
	}

	identity.SetSessionCookie(c, token)
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	h.auditSession(c.Request.Context(), user.ID, models.ActionLogin)
	identity.SetSessionCookie(c, token)
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	userID := identity.UserID(c)
	h.auditSession(c.Request.Context(), userID, models.ActionLogout)
	identity.ClearSessionCookie(c)
	response.OK(c, gin.H{"message": "logged out"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.repo.GetByID(c.Request.Context(), identity.UserID(c))
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// ForgotPassword handles POST /auth/forgot-password. Always answers 200 so
// the endpoint cannot be used to enumerate accounts.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "valid email required")
		return
	}
	msg := gin.H{"message": "if the account exists, a reset email has been sent"}

	user, err := h.repo.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		response.OK(c, msg)
		return
	}

	token, err := newResetToken()
	if err != nil {
		h.logger.Error("reset token", zap.Error(err))
		response.OK(c, msg)
		return
	}
	if err := h.repo.CreateResetToken(c.Request.Context(), user.ID, token, resetTokenTTL); err != nil {
		h.logger.Error("store reset token", zap.Error(err))
		response.OK(c, msg)
		return
	}
	if err := h.jobs.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType: "password_reset",
		Recipient: user.Email,
		Subject:   "Reset your Nerlude password",
		BodyText:  "Reset your password: " + h.baseURL + "/reset-password?token=" + token,
	}); err != nil {
		h.logger.Warn("enqueue reset email", zap.Error(err))
	}
	response.OK(c, msg)
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token and password (min 8 chars) required")
		return
	}
	userID, err := h.repo.ConsumeResetToken(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.BadRequest(c, "invalid or expired reset token")
			return
		}
		h.logger.Error("consume reset token", zap.Error(err))
		response.Internal(c, "failed to reset password")
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), userID, hash); err != nil {
		h.logger.Error("update password", zap.Error(err))
		response.Internal(c, "failed to reset password")
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}

// DeleteAccount handles DELETE /auth/account. Owned workspaces and all rows
// under them cascade at the storage layer; the session ends here.
func (h *Handler) DeleteAccount(c *gin.Context) {
	userID := identity.UserID(c)
	if err := h.repo.Delete(c.Request.Context(), userID); err != nil {
		h.logger.Error("delete account", zap.Error(err))
		response.Internal(c, "failed to delete account")
		return
	}
	identity.ClearSessionCookie(c)
	response.OK(c, gin.H{"message": "account deleted"})
}

// auditSession records login/logout in the user's first accepted workspace.
// Users without any membership produce no entry: audit logs are workspace
// scoped and there is no workspace to attach one to.
func (h *Handler) auditSession(ctx context.Context, userID uuid.UUID, action string) {
	wsID, err := h.workspaces.FirstAcceptedWorkspaceID(ctx, userID)
	if err != nil {
		h.logger.Warn("resolve first workspace for audit", zap.Error(err))
		return
	}
	if wsID == nil {
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: *wsID,
		ActorID:     userID,
		Action:      action,
		EntityType:  "session",
	})
}

func newResetToken() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
