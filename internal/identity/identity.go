// Package identity holds the request-scoped identity plumbing shared by the
// session middleware and every handler package: gin context keys, the session
// cookie, and accessors. It imports nothing above the router, so any package
// may depend on it.
package identity

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionCookie is the cookie carrying the session token for page requests.
const SessionCookie = "nerlude_session"

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// UserID returns the authenticated user's id from context. Only valid after
// the session middleware ran.
func UserID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextUserID).(uuid.UUID)
}

// SetSessionCookie writes the session cookie (24h, http-only).
func SetSessionCookie(c *gin.Context, token string) {
	c.SetCookie(SessionCookie, token, 24*3600, "/", "", false, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}
