package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/auth"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/pkg/response"
)

// sessionToken extracts the credential from the Authorization header or the
// session cookie. The header wins when both are present.
func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(identity.SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// Session validates the session token and sets the identity in context.
// Valid tokens near expiry are rotated and the refreshed token is written
// back to the session cookie; a rotation that cannot produce a new token
// leaves the caller anonymous (401) rather than extending a session it
// could not re-sign.
func Session(jwtService *auth.JWTService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			response.Unauthorized(c, "missing credentials")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if fresh, rotated, err := jwtService.Rotate(claims); err != nil {
			logger.Error("session rotation failed", zap.Error(err))
			response.Unauthorized(c, "session expired")
			c.Abort()
			return
		} else if rotated {
			identity.SetSessionCookie(c, fresh)
		}
		c.Set(identity.ContextUserID, claims.UserID)
		c.Set(identity.ContextUserEmail, claims.Email)
		c.Next()
	}
}
