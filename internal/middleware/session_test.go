package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/auth"
	"github.com/nerlude/backend/internal/identity"
)

func sessionRouter(jwt *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Session(jwt, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID(c).String()})
	})
	return r
}

func TestSessionRejectsMissingCredentials(t *testing.T) {
	r := sessionRouter(auth.NewJWTService("secret", 24, 1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSessionRejectsForgedToken(t *testing.T) {
	other := auth.NewJWTService("other-secret", 24, 1)
	token, err := other.Generate(uuid.New(), "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	r := sessionRouter(auth.NewJWTService("secret", 24, 1))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for token signed with a different key", w.Code)
	}
}

func TestSessionAcceptsBearerToken(t *testing.T) {
	jwt := auth.NewJWTService("secret", 24, 1)
	userID := uuid.New()
	token, err := jwt.Generate(userID, "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	r := sessionRouter(jwt)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestSessionAcceptsCookie(t *testing.T) {
	jwt := auth.NewJWTService("secret", 24, 1)
	token, err := jwt.Generate(uuid.New(), "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	r := sessionRouter(jwt)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: token})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestSessionRotatesNearExpiry(t *testing.T) {
	// Expiry 1h, refresh window 2h: every valid token is inside the window.
	jwt := auth.NewJWTService("secret", 1, 2)
	token, err := jwt.Generate(uuid.New(), "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	r := sessionRouter(jwt)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: token})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var refreshed bool
	for _, c := range w.Result().Cookies() {
		if c.Name == identity.SessionCookie && c.Value != "" {
			refreshed = true
		}
	}
	if !refreshed {
		t.Error("expected a refreshed session cookie on the response")
	}
}
