package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/internal/models"
)

type fakeResolver struct {
	memberships []models.Membership
}

func (r *fakeResolver) ResolveMemberships(_ context.Context, _ uuid.UUID) ([]models.Membership, error) {
	return r.memberships, nil
}

func activityRouter(userID uuid.UUID, h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(identity.ContextUserID, userID) })
	r.POST("/activity", h.Record)
	return r
}

func TestRecordPassesPayloadsToStore(t *testing.T) {
	userID := uuid.New()
	wsID := uuid.New()
	store := &fakeStore{}
	rec := NewRecorder(store, nil, nil)
	gate := authz.NewGate(&fakeResolver{memberships: []models.Membership{
		{WorkspaceID: wsID, UserID: userID, Role: models.RoleMember},
	}})
	router := activityRouter(userID, NewHandler(nil, gate, rec, zap.NewNop()))

	body := `{"workspace_id":"` + wsID.String() + `","action":"service_renewed",` +
		`"entity_type":"service","old_data":{"status":"active"},` +
		`"new_data":{"status":"renewed"},"metadata":{"source":"test"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/activity", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	rec.Close()

	entries := store.all()
	if len(entries) != 1 {
		t.Fatalf("stored %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.WorkspaceID != wsID || e.ActorID != userID {
		t.Errorf("entry scoped to %s/%s, want %s/%s", e.WorkspaceID, e.ActorID, wsID, userID)
	}
	if got := string(e.OldData); got != `{"status":"active"}` {
		t.Errorf("old_data = %s, want {\"status\":\"active\"}", got)
	}
	if got := string(e.NewData); got != `{"status":"renewed"}` {
		t.Errorf("new_data = %s, want {\"status\":\"renewed\"}", got)
	}
	if got := string(e.Metadata); got != `{"source":"test"}` {
		t.Errorf("metadata = %s, want {\"source\":\"test\"}", got)
	}
}

func TestRecordRejectsNonMember(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{}
	rec := NewRecorder(store, nil, nil)
	gate := authz.NewGate(&fakeResolver{})
	router := activityRouter(userID, NewHandler(nil, gate, rec, zap.NewNop()))

	body := `{"workspace_id":"` + uuid.NewString() + `","action":"x","entity_type":"y"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/activity", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	rec.Close()
	if n := len(store.all()); n != 0 {
		t.Errorf("stored %d entries, want none", n)
	}
}
