// Package proxy fronts the web application. It forwards page requests to
// the frontend origin, redirecting anonymous visitors away from protected
// page trees and signed-in visitors away from the auth entry pages. API
// routes never pass through here; handlers re-check authentication
// themselves.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/auth"
	"github.com/nerlude/backend/internal/identity"
)

// Page trees requiring a session. Everything else is public except the auth
// entry pages.
var protectedPrefixes = []string{
	"/dashboard",
	"/projects",
	"/workspaces",
	"/services",
	"/activity",
	"/settings",
}

var authEntryPaths = map[string]bool{
	"/login":  true,
	"/signup": true,
}

const (
	loginRedirect   = "/?login=required"
	landingRedirect = "/dashboard"
)

// Redirector proxies page requests to the frontend origin after applying the
// session redirect rules.
type Redirector struct {
	jwt    *auth.JWTService
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

// NewRedirector creates a redirector forwarding to the frontend origin.
func NewRedirector(frontendOrigin string, jwt *auth.JWTService, logger *zap.Logger) (*Redirector, error) {
	target, err := url.Parse(frontendOrigin)
	if err != nil {
		return nil, err
	}
	rp := httputil.NewSingleHostReverseProxy(target)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("frontend proxy", zap.Error(err), zap.String("path", r.URL.Path))
		w.WriteHeader(http.StatusBadGateway)
	}
	return &Redirector{jwt: jwt, proxy: rp, logger: logger}, nil
}

// Handle serves one page request. Mounted as the router's NoRoute handler so
// every non-API path lands here.
func (rd *Redirector) Handle(c *gin.Context) {
	path := c.Request.URL.Path
	authenticated := rd.authenticated(c)

	switch {
	case isProtected(path) && !authenticated:
		c.Redirect(http.StatusTemporaryRedirect, loginRedirect)
		return
	case authEntryPaths[path] && authenticated:
		c.Redirect(http.StatusTemporaryRedirect, landingRedirect)
		return
	}

	if isProtected(path) {
		// Authenticated pages must not outlive the session in a shared
		// or browser cache.
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
	}
	rd.proxy.ServeHTTP(c.Writer, c.Request)
}

// authenticated reports whether the request carries a valid session cookie.
// Any verification failure counts as anonymous.
func (rd *Redirector) authenticated(c *gin.Context) bool {
	token, err := c.Cookie(identity.SessionCookie)
	if err != nil || token == "" {
		return false
	}
	_, err = rd.jwt.Validate(token)
	return err == nil
}

func isProtected(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
