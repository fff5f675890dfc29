package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/models"
)

// InsertEpisode stores a finished episode and returns its row ID
func InsertEpisode(ctx context.Context, db *sqlx.DB, ep *models.Episode) (int64, error) {
	var id int64
	err := db.QueryRowxContext(ctx, `
		INSERT INTO episodes (episode_uuid, session_id, number, outcome, steps, attempts, failed_attempts, cups_hit, cumulative_reward, started_at, ended_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (episode_uuid) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			steps = EXCLUDED.steps,
			attempts = EXCLUDED.attempts,
			failed_attempts = EXCLUDED.failed_attempts,
			cups_hit = EXCLUDED.cups_hit,
			cumulative_reward = EXCLUDED.cumulative_reward,
			ended_at = EXCLUDED.ended_at
		RETURNING id
	`, ep.EpisodeUUID, ep.SessionID, ep.Number, ep.Outcome, ep.Steps, ep.Attempts, ep.FailedAttempts,
		ep.CupsHit, ep.CumulativeReward, ep.StartedAt, ep.EndedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert episode: %w", err)
	}
	ep.ID = id
	return id, nil
}

// InsertRewards stores the reward events of an episode in one transaction.
// Existing rewards of the episode are replaced.
func InsertRewards(ctx context.Context, db *sqlx.DB, episodeID int64, rewards []models.EpisodeReward) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM episode_rewards WHERE episode_id = $1`, episodeID); err != nil {
		return fmt.Errorf("clear rewards: %w", err)
	}
	for i := range rewards {
		rewards[i].EpisodeID = episodeID
	}
	if len(rewards) > 0 {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO episode_rewards (episode_id, step, reason, value, cup_id, created_at)
			VALUES (:episode_id, :step, :reason, :value, :cup_id, NOW())
		`, rewards)
		if err != nil {
			return fmt.Errorf("insert rewards: %w", err)
		}
	}
	return tx.Commit()
}

// RecentEpisodes lists finished episodes, newest first. An empty sessionID
// lists all sessions.
func RecentEpisodes(ctx context.Context, db *sqlx.DB, sessionID string, limit, offset int) ([]models.Episode, error) {
	var episodes []models.Episode
	query := `
		SELECT id, episode_uuid, session_id, number, outcome, steps, attempts, failed_attempts, cups_hit, cumulative_reward, started_at, ended_at, created_at
		FROM episodes
		WHERE ($1 = '' OR session_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := db.SelectContext(ctx, &episodes, query, sessionID, limit, offset); err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	return episodes, nil
}

// EpisodeRewards lists the reward events of an episode in issue order
func EpisodeRewards(ctx context.Context, db *sqlx.DB, episodeID int64) ([]models.EpisodeReward, error) {
	var rewards []models.EpisodeReward
	err := db.SelectContext(ctx, &rewards, `
		SELECT id, episode_id, step, reason, value, cup_id, created_at
		FROM episode_rewards
		WHERE episode_id = $1
		ORDER BY id
	`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("episode rewards: %w", err)
	}
	return rewards, nil
}

// EpisodeStats aggregates all finished episodes, optionally for one session
func EpisodeStats(ctx context.Context, db *sqlx.DB, sessionID string) (*models.EpisodeStats, error) {
	var stats models.EpisodeStats
	err := db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS episodes,
			COUNT(*) FILTER (WHERE outcome = 'CLEARED') AS cleared,
			COALESCE(AVG(cumulative_reward), 0) AS mean_reward,
			COALESCE(MAX(cumulative_reward), 0) AS best_reward,
			COALESCE(AVG(cups_hit), 0) AS mean_cups_hit,
			COALESCE(AVG(attempts), 0) AS mean_attempts
		FROM episodes
		WHERE ($1 = '' OR session_id = $1)
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("episode stats: %w", err)
	}
	return &stats, nil
}
