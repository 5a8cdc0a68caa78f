package realtime

import (
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/models"
)

func testClient(wsID uuid.UUID, id string) *Client {
	return &Client{
		ID:          id,
		WorkspaceID: wsID,
		UserID:      uuid.New(),
		send:        make(chan WSMessage, 8),
	}
}

func TestBroadcastDeliversToWorkspaceWatchers(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	wsID := uuid.New()
	a := testClient(wsID, "a")
	b := testClient(wsID, "b")
	other := testClient(uuid.New(), "c")
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	hub.PublishActivity(wsID, &models.AuditLog{WorkspaceID: wsID, Action: models.ActionProjectCreated})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Event != "activity" {
				t.Errorf("client %s got event %q, want activity", c.ID, msg.Event)
			}
		default:
			t.Errorf("client %s received nothing", c.ID)
		}
	}
	select {
	case <-other.send:
		t.Error("client in another workspace received the event")
	default:
	}
}

func TestBroadcastConcurrentWithRegistration(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	wsID := uuid.New()
	entry := &models.AuditLog{WorkspaceID: wsID, Action: models.ActionServiceUpdated}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c := testClient(wsID, "c"+strconv.Itoa(i))
			hub.Register(c)
			if i%2 == 0 {
				hub.Unregister(c)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.PublishActivity(wsID, entry)
		}
	}()
	wg.Wait()

	if hub.WatcherCount(wsID) != 100 {
		t.Errorf("watchers = %d, want 100", hub.WatcherCount(wsID))
	}
}
