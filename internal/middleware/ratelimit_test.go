package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nerlude/backend/pkg/ratelimit"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("backend unreachable")
}

func limitedRouter(limiter ratelimit.Limiter, perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(limiter, ClassAuth, perMinute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthClassSixthRequestThrottled(t *testing.T) {
	r := limitedRouter(ratelimit.NewMemory(), 5)
	for i := 1; i <= 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("6th request: status = %d, want 429", w.Code)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After header missing or invalid: %q", w.Header().Get("Retry-After"))
	}
	if retryAfter < 1 || retryAfter > 60 {
		t.Errorf("Retry-After = %d, want within (0, 60]", retryAfter)
	}
}

func TestNilLimiterFailsOpen(t *testing.T) {
	r := limitedRouter(nil, 5)
	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 with no limiter", w.Code)
		}
	}
}

func TestBackendErrorFailsOpen(t *testing.T) {
	r := limitedRouter(failingLimiter{}, 5)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when the backend errors", w.Code)
	}
}

func TestClassesUseSeparateBudgets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := ratelimit.NewMemory()
	r := gin.New()
	r.POST("/login", RateLimit(limiter, ClassAuth, 1, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/projects", RateLimit(limiter, ClassAPI, 100, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first auth request: %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second auth request: status = %d, want 429", w.Code)
	}
	// The exhausted auth budget must not bleed into the api class.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects", nil))
	if w.Code != http.StatusOK {
		t.Errorf("api request after auth throttle: status = %d, want 200", w.Code)
	}
}
