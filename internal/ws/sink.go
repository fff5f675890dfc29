package ws

import (
	"github.com/playmatatu/beerpong/internal/game"
)

// SessionSink streams one session's preview and episode notifications to
// its room. It satisfies both game.PreviewSink and game.Observer.
type SessionSink struct {
	hub       *Hub
	sessionID string
}

// Sink is a game.SinkFactory bound to the hub.
func (h *Hub) Sink(sessionID string) (game.PreviewSink, game.Observer) {
	s := &SessionSink{hub: h, sessionID: sessionID}
	return s, s
}

func (s *SessionSink) SetVisible(visible bool) {
	s.hub.BroadcastToSession(s.sessionID, map[string]interface{}{
		"type":    "preview_visibility",
		"visible": visible,
	})
}

func (s *SessionSink) Draw(points []game.Vec3) {
	s.hub.BroadcastToSession(s.sessionID, map[string]interface{}{
		"type":   "trajectory",
		"points": points,
	})
}

func (s *SessionSink) EpisodeBegan(ep *game.Episode) {
	s.hub.BroadcastToSession(s.sessionID, map[string]interface{}{
		"type":    game.EventEpisodeBegan,
		"episode": ep,
	})
}

func (s *SessionSink) RewardIssued(ep *game.Episode, r game.Reward) {
	s.hub.BroadcastToSession(s.sessionID, map[string]interface{}{
		"type":              game.EventReward,
		"reward":            r,
		"cumulative_reward": ep.CumulativeReward,
	})
}

func (s *SessionSink) EpisodeEnded(ep *game.Episode) {
	s.hub.BroadcastToSession(s.sessionID, map[string]interface{}{
		"type":    game.EventEpisodeEnded,
		"episode": ep,
	})
}
