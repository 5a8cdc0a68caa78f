package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/auth"
	"github.com/nerlude/backend/internal/identity"
)

func newTestRouter(t *testing.T, jwt *auth.JWTService, backend string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rd, err := NewRedirector(backend, jwt, zap.NewNop())
	if err != nil {
		t.Fatalf("new redirector: %v", err)
	}
	r := gin.New()
	r.NoRoute(rd.Handle)
	return r
}

func request(r *gin.Engine, path, cookie string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	// ReverseProxy falls back to http.CloseNotifier (unimplemented by
	// httptest.ResponseRecorder) when the request context has no Done channel.
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	req = req.WithContext(ctx)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: cookie})
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAnonymousRedirectedFromProtectedPages(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()
	jwt := auth.NewJWTService("test-secret", 24, 1)
	r := newTestRouter(t, jwt, backend.URL)

	for _, path := range []string{"/dashboard", "/projects/abc", "/settings"} {
		w := request(r, path, "")
		if w.Code != http.StatusTemporaryRedirect {
			t.Errorf("%s: status = %d, want 307", path, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/?login=required" {
			t.Errorf("%s: location = %q, want /?login=required", path, loc)
		}
	}
}

func TestGarbageCookieTreatedAsAnonymous(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()
	jwt := auth.NewJWTService("test-secret", 24, 1)
	r := newTestRouter(t, jwt, backend.URL)

	w := request(r, "/dashboard", "not-a-token")
	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307", w.Code)
	}
}

func TestAuthenticatedRedirectedFromAuthEntry(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()
	jwt := auth.NewJWTService("test-secret", 24, 1)
	token, err := jwt.Generate(uuid.New(), "user@example.com")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	r := newTestRouter(t, jwt, backend.URL)

	for _, path := range []string{"/login", "/signup"} {
		w := request(r, path, token)
		if w.Code != http.StatusTemporaryRedirect {
			t.Errorf("%s: status = %d, want 307", path, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/dashboard" {
			t.Errorf("%s: location = %q, want /dashboard", path, loc)
		}
	}
}

func TestProtectedPagePassThroughSetsNoStore(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("page"))
	}))
	defer backend.Close()
	jwt := auth.NewJWTService("test-secret", 24, 1)
	token, err := jwt.Generate(uuid.New(), "user@example.com")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	r := newTestRouter(t, jwt, backend.URL)

	w := request(r, "/dashboard", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestPublicPagePassThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("public:" + r.URL.Path))
	}))
	defer backend.Close()
	jwt := auth.NewJWTService("test-secret", 24, 1)
	r := newTestRouter(t, jwt, backend.URL)

	w := request(r, "/pricing", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "public:/pricing" {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got == "no-store" {
		t.Errorf("public page must not carry no-store")
	}
}

func TestAnonymousAuthEntryPassThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("login page"))
	}))
	defer backend.Close()
	jwt := auth.NewJWTService("test-secret", 24, 1)
	r := newTestRouter(t, jwt, backend.URL)

	w := request(r, "/login", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
