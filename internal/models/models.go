package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Episode is a finished training or play episode
type Episode struct {
	ID               int64        `db:"id" json:"id"`
	EpisodeUUID      string       `db:"episode_uuid" json:"episode_uuid"`
	SessionID        string       `db:"session_id" json:"session_id"`
	Number           int          `db:"number" json:"number"`
	Outcome          string       `db:"outcome" json:"outcome"`
	Steps            int          `db:"steps" json:"steps"`
	Attempts         int          `db:"attempts" json:"attempts"`
	FailedAttempts   int          `db:"failed_attempts" json:"failed_attempts"`
	CupsHit          int          `db:"cups_hit" json:"cups_hit"`
	CumulativeReward float64      `db:"cumulative_reward" json:"cumulative_reward"`
	StartedAt        time.Time    `db:"started_at" json:"started_at"`
	EndedAt          sql.NullTime `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
}

// EpisodeReward is a single reward event inside an episode
type EpisodeReward struct {
	ID        int64          `db:"id" json:"id"`
	EpisodeID int64          `db:"episode_id" json:"episode_id"`
	Step      int            `db:"step" json:"step"`
	Reason    string         `db:"reason" json:"reason"`
	Value     float64        `db:"value" json:"value"`
	CupID     sql.NullString `db:"cup_id" json:"cup_id,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// EpisodeStats aggregates finished episodes
type EpisodeStats struct {
	Episodes     int     `db:"episodes" json:"episodes"`
	Cleared      int     `db:"cleared" json:"cleared"`
	MeanReward   float64 `db:"mean_reward" json:"mean_reward"`
	BestReward   float64 `db:"best_reward" json:"best_reward"`
	MeanCupsHit  float64 `db:"mean_cups_hit" json:"mean_cups_hit"`
	MeanAttempts float64 `db:"mean_attempts" json:"mean_attempts"`
}

// Operator is an account allowed to override sessions and queue training jobs
type Operator struct {
	Username     string         `db:"username" json:"username"`
	DisplayName  string         `db:"display_name" json:"display_name"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// OperatorAudit is an entry of the operator audit log
type OperatorAudit struct {
	ID        int64           `db:"id" json:"id"`
	Username  string          `db:"username" json:"username"`
	IP        string          `db:"ip" json:"ip"`
	Route     string          `db:"route" json:"route"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	Success   bool            `db:"success" json:"success"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
