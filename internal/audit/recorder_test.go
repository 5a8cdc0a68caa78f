package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nerlude/backend/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (s *fakeStore) Insert(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) all() []*models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditLog(nil), s.entries...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []uuid.UUID
}

func (p *fakePublisher) PublishActivity(workspaceID uuid.UUID, _ *models.AuditLog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, workspaceID)
}

func TestRecorderWritesEntry(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	rec := NewRecorder(store, pub, nil)

	wsID := uuid.New()
	actorID := uuid.New()
	rec.Record(Entry{
		WorkspaceID: wsID,
		ActorID:     actorID,
		Action:      models.ActionProjectCreated,
		EntityType:  "project",
		Metadata:    map[string]interface{}{"name": "alpha"},
	})
	rec.Close()

	entries := store.all()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.WorkspaceID != wsID || e.ActorID != actorID {
		t.Errorf("entry scoped to %s/%s, want %s/%s", e.WorkspaceID, e.ActorID, wsID, actorID)
	}
	if e.Action != models.ActionProjectCreated {
		t.Errorf("action = %q, want %q", e.Action, models.ActionProjectCreated)
	}
	if string(e.Metadata) != `{"name":"alpha"}` {
		t.Errorf("metadata = %s", e.Metadata)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 || pub.events[0] != wsID {
		t.Errorf("published events = %v, want one for %s", pub.events, wsID)
	}
}

func TestRecorderStoreFailureDoesNotPublish(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	pub := &fakePublisher{}
	rec := NewRecorder(store, pub, nil)

	rec.Record(Entry{WorkspaceID: uuid.New(), ActorID: uuid.New(), Action: models.ActionLogin, EntityType: "session"})
	rec.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 0 {
		t.Errorf("published %d events after failed write, want 0", len(pub.events))
	}
}

func TestRecorderDrainsOnClose(t *testing.T) {
	store := &fakeStore{}
	rec := NewRecorder(store, nil, nil)

	for i := 0; i < 20; i++ {
		rec.Record(Entry{WorkspaceID: uuid.New(), ActorID: uuid.New(), Action: models.ActionLogin, EntityType: "session"})
	}
	rec.Close()

	if got := len(store.all()); got != 20 {
		t.Errorf("got %d entries after close, want 20", got)
	}
}

func TestRecorderNilFieldsOmitted(t *testing.T) {
	store := &fakeStore{}
	rec := NewRecorder(store, nil, nil)

	rec.Record(Entry{WorkspaceID: uuid.New(), ActorID: uuid.New(), Action: models.ActionLogout, EntityType: "session"})
	rec.Close()

	entries := store.all()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.OldData != nil || e.NewData != nil || e.Metadata != nil {
		t.Errorf("empty fields should stay nil, got old=%s new=%s meta=%s", e.OldData, e.NewData, e.Metadata)
	}
}
