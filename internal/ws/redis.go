package ws

import (
	"context"
	"encoding/json"

	"github.com/playmatatu/beerpong/internal/game"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// relayedLocally are the event types SessionSink already delivered to the
// rooms of the instance that produced them.
var relayedLocally = map[string]bool{
	game.EventEpisodeBegan: true,
	game.EventReward:       true,
	game.EventEpisodeEnded: true,
}

// StartEventSubscriber subscribes to the episode_events channel and
// broadcasts incoming events to session rooms until ctx is done.
func (h *Hub) StartEventSubscriber(ctx context.Context, rdb *redis.Client, instanceID string) error {
	if rdb == nil {
		h.log.Info("redis client not set; event subscriber not started")
		return nil
	}

	pubsub := rdb.Subscribe(ctx, game.EventsChannel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	h.log.Info("episode_events subscriber started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.relay(msg.Payload, instanceID)
		}
	}
}

func (h *Hub) relay(payload, instanceID string) {
	var ev game.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		h.log.Warn("invalid event payload", zap.Error(err))
		return
	}
	if ev.Origin == instanceID && relayedLocally[ev.Type] {
		return
	}
	if ev.SessionID == "" {
		return
	}

	h.log.Debug("event received", zap.String("type", ev.Type), zap.String("session", ev.SessionID))

	msg := map[string]interface{}{"type": ev.Type}
	switch ev.Type {
	case game.EventEpisodeBegan, game.EventEpisodeEnded:
		msg["episode"] = ev.Episode
	case game.EventReward:
		msg["reward"] = ev.Reward
	case game.EventSessionExpired:
		msg["message"] = ev.Message
	case game.EventTrainingCompleted:
		msg["summary"] = ev.Summary
	default:
		h.log.Debug("unknown event type", zap.String("type", ev.Type))
		return
	}
	h.BroadcastToSession(ev.SessionID, msg)
}
