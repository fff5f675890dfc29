package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/beerpong/internal/game"
	"go.uber.org/zap"
)

// HandleWebSocket upgrades a viewer connection for the session in the :id
// path parameter.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.manager.Get(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		clientID:  uuid.NewString(),
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Run registers and unregisters clients until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, room := range h.rooms {
				for client := range room {
					// Closing the conn ends both pumps.
					client.conn.Close()
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if _, exists := h.rooms[client.sessionID]; !exists {
				h.rooms[client.sessionID] = make(map[*Client]struct{})
			}
			h.rooms[client.sessionID][client] = struct{}{}
			h.mu.Unlock()

			h.log.Info("client connected", zap.String("client", client.clientID), zap.String("session", client.sessionID))

			s, err := h.manager.Get(client.sessionID)
			if err != nil {
				client.sendError("Session not found")
				continue
			}
			client.sendState(s)

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.sessionID]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.sessionID)
					}
					h.log.Info("client disconnected", zap.String("client", client.clientID), zap.String("session", client.sessionID))
				}
			}
			h.mu.Unlock()
		}
	}
}

// readPump reads viewer commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Info("unexpected close", zap.String("client", c.clientID), zap.Error(err))
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes incoming viewer messages.
func (c *Client) handleMessage(msg WSMessage) {
	s, err := c.hub.manager.Get(c.sessionID)
	if err != nil {
		c.sendError("Session not found")
		return
	}

	switch msg.Type {
	case "set_aim":
		var a game.Action
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			c.sendError("Invalid aim data")
			return
		}
		var ok bool
		s.Do(func(env *game.Environment) {
			if ok = env.Controller().SetAim(a); ok {
				env.Controller().UpdatePreview()
			}
		})
		if !ok {
			c.sendError("Cannot aim now")
		}

	case "action":
		var a game.Action
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			c.sendError("Invalid action data")
			return
		}
		var ok bool
		s.Do(func(env *game.Environment) { ok = env.SubmitAction(a) })
		if !ok {
			c.sendError("Action ignored")
		}

	case "throw":
		var ok bool
		s.Do(func(env *game.Environment) { ok = env.RequestDecision() })
		if !ok {
			c.sendError("Cannot throw now")
		}

	case "get_state":
		c.sendState(s)
		return

	default:
		c.sendError("Unknown message type")
		return
	}

	c.hub.manager.Touch(s)
	c.hub.BroadcastToSession(c.sessionID, stateMessage(s))
}

func (c *Client) sendState(s *game.Session) {
	c.sendJSON(stateMessage(s))
}

func stateMessage(s *game.Session) map[string]interface{} {
	return map[string]interface{}{
		"type":  "state",
		"state": s.Snapshot(),
	}
}
