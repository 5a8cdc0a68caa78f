package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/auth"
	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection watching one workspace.
type Client struct {
	ID          string
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	hub         *Hub
	conn        *websocket.Conn
	send        chan WSMessage
	logger      *zap.Logger
}

// ServeWs handles GET /ws/activity?workspace_id=...&token=... The token may
// come from the query (browser WebSocket clients cannot set headers) or the
// session cookie. Membership is checked before the upgrade, so a non-member
// never learns whether the stream exists.
func ServeWs(hub *Hub, jwt *auth.JWTService, gate *authz.Gate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := uuid.Parse(c.Query("workspace_id"))
		if err != nil {
			response.BadRequest(c, "workspace_id required")
			return
		}
		token := c.Query("token")
		if token == "" {
			token, _ = c.Cookie(identity.SessionCookie)
		}
		if token == "" {
			response.Unauthorized(c, "authentication required")
			return
		}
		claims, err := jwt.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		d, err := gate.Authorize(c.Request.Context(), claims.UserID, workspaceID)
		if err != nil {
			logger.Error("authorize stream", zap.Error(err))
			response.Internal(c, "authorization check failed")
			return
		}
		if !d.Allowed {
			response.NotFound(c, "workspace not found")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:          uuid.New().String(),
			WorkspaceID: workspaceID,
			UserID:      claims.UserID,
			hub:         hub,
			conn:        conn,
			send:        make(chan WSMessage, 256),
			logger:      logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump drains the connection. The stream is one-way; inbound frames keep
// the read deadline fresh and are otherwise ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
