package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/beerpong/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watch(h *Hub, sessionID string) *Client {
	c := &Client{hub: h, clientID: "c-" + sessionID, sessionID: sessionID, send: make(chan []byte, 16)}
	h.mu.Lock()
	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[*Client]struct{})
	}
	h.rooms[sessionID][c] = struct{}{}
	h.mu.Unlock()
	return c
}

func next(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case data := <-c.send:
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatal("no message queued")
		return nil
	}
}

func TestSinkBroadcastsToRoom(t *testing.T) {
	h := NewHub(nil, nil)
	c := watch(h, "s1")
	other := watch(h, "s2")
	assert.Equal(t, 1, h.RoomSize("s1"))

	preview, obs := h.Sink("s1")
	preview.SetVisible(true)
	preview.Draw([]game.Vec3{{X: 1}, {X: 2}})
	ep := &game.Episode{Number: 3}
	obs.EpisodeBegan(ep)
	obs.RewardIssued(ep, game.Reward{Reason: game.RewardHit, Value: 0.8, CupID: "cup-1"})

	assert.Equal(t, "preview_visibility", next(t, c)["type"])
	msg := next(t, c)
	assert.Equal(t, "trajectory", msg["type"])
	assert.Len(t, msg["points"], 2)
	assert.Equal(t, game.EventEpisodeBegan, next(t, c)["type"])
	assert.Equal(t, game.EventReward, next(t, c)["type"])
	assert.Empty(t, other.send)
}

func TestRelaySkipsOwnLocalEvents(t *testing.T) {
	h := NewHub(nil, nil)
	c := watch(h, "s1")

	encode := func(ev game.Event) string {
		b, err := json.Marshal(ev)
		require.NoError(t, err)
		return string(b)
	}

	h.relay(encode(game.Event{Type: game.EventReward, SessionID: "s1", Origin: "me", Reward: &game.Reward{Value: 1}}), "me")
	assert.Empty(t, c.send)

	h.relay(encode(game.Event{Type: game.EventReward, SessionID: "s1", Origin: "peer", Reward: &game.Reward{Value: 1}}), "me")
	assert.Equal(t, game.EventReward, next(t, c)["type"])

	h.relay(encode(game.Event{Type: game.EventSessionExpired, SessionID: "s1", Origin: "me", Message: "idle"}), "me")
	msg := next(t, c)
	assert.Equal(t, game.EventSessionExpired, msg["type"])
	assert.Equal(t, "idle", msg["message"])

	h.relay("{not json", "me")
	h.relay(encode(game.Event{Type: "mystery", SessionID: "s1"}), "me")
	assert.Empty(t, c.send)
}

func TestWebSocketThrow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := game.NewManager(nil, nil, nil, nil, nil)
	hub := NewHub(mgr, nil)
	mgr.SetSinkFactory(hub.Sink)
	t.Cleanup(mgr.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/sessions/:id/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	training := false
	s, err := mgr.CreateSession(game.SessionOptions{Mode: "manual", TrainingMode: &training})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + s.ID.String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil := func(match func(map[string]any) bool) map[string]any {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		for {
			var msg map[string]any
			require.NoError(t, conn.ReadJSON(&msg))
			if match(msg) {
				return msg
			}
		}
	}
	phase := func(msg map[string]any) string {
		state, _ := msg["state"].(map[string]any)
		p, _ := state["phase"].(string)
		return p
	}

	first := readUntil(func(m map[string]any) bool { return m["type"] == "state" })
	assert.Equal(t, string(game.PhaseAiming), phase(first))

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "throw"}))
	readUntil(func(m map[string]any) bool { return m["type"] == "preview_visibility" && m["visible"] == false })
	thrown := readUntil(func(m map[string]any) bool { return m["type"] == "state" })
	assert.Equal(t, string(game.PhaseReleased), phase(thrown))

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "dance"}))
	errMsg := readUntil(func(m map[string]any) bool { return m["type"] == "error" })
	assert.Equal(t, "Unknown message type", errMsg["message"])
}

func TestWebSocketUnknownSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(game.NewManager(nil, nil, nil, nil, nil), nil)
	router := gin.New()
	router.GET("/sessions/:id/ws", hub.HandleWebSocket)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/nope/ws", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
