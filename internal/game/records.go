package game

import (
	"database/sql"

	"github.com/playmatatu/beerpong/internal/models"
)

// EpisodeRow converts a finished episode to its database row.
func EpisodeRow(sessionID string, ep *Episode) *models.Episode {
	row := &models.Episode{
		EpisodeUUID:      ep.ID.String(),
		SessionID:        sessionID,
		Number:           ep.Number,
		Outcome:          string(ep.Outcome),
		Steps:            ep.Steps,
		Attempts:         ep.Attempts,
		FailedAttempts:   ep.FailedAttempts,
		CupsHit:          ep.CupsHit,
		CumulativeReward: ep.CumulativeReward,
		StartedAt:        ep.StartedAt,
	}
	if ep.EndedAt != nil {
		row.EndedAt = sql.NullTime{Time: *ep.EndedAt, Valid: true}
	}
	return row
}

// RewardRows converts the reward events of an episode in issue order.
func RewardRows(ep *Episode) []models.EpisodeReward {
	rows := make([]models.EpisodeReward, 0, len(ep.Rewards))
	for _, r := range ep.Rewards {
		rows = append(rows, models.EpisodeReward{
			Step:   r.Step,
			Reason: string(r.Reason),
			Value:  r.Value,
			CupID:  sql.NullString{String: r.CupID, Valid: r.CupID != ""},
		})
	}
	return rows
}

// cloneEpisode copies ep so it can leave the simulation goroutine.
func cloneEpisode(ep *Episode) *Episode {
	if ep == nil {
		return nil
	}
	cp := *ep
	cp.Rewards = append([]Reward(nil), ep.Rewards...)
	if ep.EndedAt != nil {
		t := *ep.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}
