package game

import (
	"context"
	"fmt"
	"time"

	"github.com/playmatatu/beerpong/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartIdleWorker expires sessions nobody has driven for the idle timeout.
// With redis it consumes the session_idle sorted set; without it it sweeps
// the live sessions directly.
func StartIdleWorker(ctx context.Context, m *Manager, rdb *redis.Client, cfg *config.Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("idle")
	if m == nil || cfg == nil {
		log.Info("manager or config missing; idle worker not started")
		return nil
	}
	poll := time.Duration(cfg.IdleWorkerPollSeconds) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	log.Info("idle worker started", zap.Duration("poll", poll), zap.Bool("redis", rdb != nil))
	for {
		select {
		case <-ctx.Done():
			log.Info("idle worker stopping")
			return nil
		case now := <-ticker.C:
			var expired []string
			if rdb != nil {
				expired = expireFromRedis(ctx, m, rdb, now, log)
			} else {
				expired = m.ExpireIdle(now)
			}
			for _, id := range expired {
				log.Info("session expired", zap.String("session", id))
				m.Publish(Event{Type: EventSessionExpired, SessionID: id, Message: "Session expired after inactivity"})
			}
		}
	}
}

func expireFromRedis(ctx context.Context, m *Manager, rdb *redis.Client, now time.Time, log *zap.Logger) []string {
	members, err := rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Warn("failed to fetch idle sessions", zap.Error(err))
		return nil
	}
	var expired []string
	for _, id := range members {
		// Only the instance that wins the removal handles the member.
		if removed, _ := rdb.ZRem(ctx, IdleSetKey, id).Result(); removed == 0 {
			continue
		}
		s, err := m.Get(id)
		if err != nil {
			// Stale member left by a restart; drop the snapshot too.
			rdb.Del(ctx, sessionKeyPrefix+id)
			continue
		}
		if now.Sub(s.LastActive()) < m.idleTimeout() {
			m.Touch(s)
			continue
		}
		if err := m.Remove(id); err == nil {
			expired = append(expired, id)
		}
	}
	return expired
}
