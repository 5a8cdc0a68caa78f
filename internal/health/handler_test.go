package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ping(latency time.Duration, err error) PingFunc {
	return func(context.Context) (time.Duration, error) { return latency, err }
}

func doHealth(t *testing.T, db, redis PingFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(db, redis, zap.NewNop())
	r.GET("/health", h.Get)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	return w, body
}

func TestHealthy(t *testing.T) {
	w, body := doHealth(t, ping(3*time.Millisecond, nil), nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestDegradedOnSlowDatabase(t *testing.T) {
	w, body := doHealth(t, ping(1200*time.Millisecond, nil), nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestUnhealthyOnDatabaseError(t *testing.T) {
	w, body := doHealth(t, ping(0, errors.New("connection refused")), nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", body["status"])
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store on failures too", got)
	}
}

func TestRedisFailureDoesNotFlipOverall(t *testing.T) {
	w, body := doHealth(t, ping(time.Millisecond, nil), ping(0, errors.New("redis down")))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when only redis is down", w.Code)
	}
	checks := body["checks"].(map[string]interface{})
	redis := checks["redis"].(map[string]interface{})
	if redis["status"] != "unhealthy" {
		t.Errorf("redis status = %v, want unhealthy", redis["status"])
	}
}

func TestRedisDisabledWhenUnconfigured(t *testing.T) {
	_, body := doHealth(t, ping(time.Millisecond, nil), nil)
	checks := body["checks"].(map[string]interface{})
	redis := checks["redis"].(map[string]interface{})
	if redis["status"] != "disabled" {
		t.Errorf("redis status = %v, want disabled", redis["status"])
	}
}
