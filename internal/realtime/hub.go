// Package realtime streams workspace activity to connected clients over
// WebSocket. Entries written by the audit recorder fan out to every client
// watching the entry's workspace, across instances via Redis pub/sub.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// RedisPublisher publishes an activity event for other instances.
type RedisPublisher interface {
	PublishActivityEvent(workspaceID uuid.UUID, payload []byte) error
}

// RedisSubscriber subscribes to a workspace's channel and invokes handler
// for incoming events.
type RedisSubscriber interface {
	SubscribeWorkspace(workspaceID uuid.UUID, handler func(payload []byte)) (cancel func(), err error)
}

// Hub maintains workspace_id -> set of connections. With Redis configured,
// events go through pub/sub so every instance (including this one)
// broadcasts exactly once; without it, broadcast is local only.
type Hub struct {
	workspaces map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func() // cancel Redis subscription per workspace
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
}

// NewHub creates a WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		workspaces: make(map[uuid.UUID]map[string]*Client),
		subs:       make(map[uuid.UUID]func()),
		logger:     logger,
		redis:      redisPub,
		redisSub:   redisSub,
	}
}

// Register adds a client to a workspace room. The first client in a room
// starts the room's Redis subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.workspaces[c.WorkspaceID] == nil {
		h.workspaces[c.WorkspaceID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeWorkspace(c.WorkspaceID, func(payload []byte) {
				h.broadcast(c.WorkspaceID, payload)
			})
			if err == nil {
				h.subs[c.WorkspaceID] = cancel
			} else {
				h.logger.Warn("workspace subscribe failed", zap.Error(err),
					zap.String("workspace_id", c.WorkspaceID.String()))
			}
		}
	}
	h.workspaces[c.WorkspaceID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined workspace stream",
		zap.String("client_id", c.ID), zap.String("workspace_id", c.WorkspaceID.String()))
}

// Unregister removes a client. The last client leaving a room cancels the
// room's Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.workspaces[c.WorkspaceID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.workspaces, c.WorkspaceID)
			if cancel, ok := h.subs[c.WorkspaceID]; ok {
				cancel()
				delete(h.subs, c.WorkspaceID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left workspace stream",
		zap.String("client_id", c.ID), zap.String("workspace_id", c.WorkspaceID.String()))
}

// PublishActivity fans a written audit entry out to watchers of its
// workspace. With Redis, publish only; the subscription callback performs
// the broadcast once for all instances, avoiding duplicate local delivery.
func (h *Hub) PublishActivity(workspaceID uuid.UUID, entry *models.AuditLog) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if h.redis != nil {
		if err := h.redis.PublishActivityEvent(workspaceID, payload); err == nil {
			return
		}
	}
	h.broadcast(workspaceID, payload)
}

// WatcherCount returns the number of connected clients watching a workspace.
func (h *Hub) WatcherCount(workspaceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.workspaces[workspaceID])
}

func (h *Hub) broadcast(workspaceID uuid.UUID, payload []byte) {
	msg := WSMessage{Event: "activity", Data: payload}

	// Copy under the lock; the map may be written by Register/Unregister
	// while sends are in flight.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.workspaces[workspaceID]))
	for _, c := range h.workspaces[workspaceID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}
