package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/playmatatu/beerpong/internal/config"
	"go.uber.org/zap"
)

// TrainingJob asks for a batch of headless episodes.
type TrainingJob struct {
	ID          string    `json:"id"`
	Episodes    int       `json:"episodes"`
	Seed        uint64    `json:"seed"`
	MaxTicks    int       `json:"max_ticks"` // per episode, 0 = scenario step budget only
	WrongCup    string    `json:"wrong_cup,omitempty"`
	TargetDraw  string    `json:"target_draw,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrainingSummary aggregates the episodes of a job.
type TrainingSummary struct {
	JobID         string          `json:"job_id"`
	SessionID     string          `json:"session_id"`
	Episodes      int             `json:"episodes"`
	Cleared       int             `json:"cleared"`
	CupsHit       int             `json:"cups_hit"`
	Attempts      int             `json:"attempts"`
	TotalReward   float64         `json:"total_reward"`
	MeanReward    float64         `json:"mean_reward"`
	BestReward    float64         `json:"best_reward"`
	Outcomes      map[Outcome]int `json:"outcomes"`
	Ticks         int             `json:"ticks"`
	Duration      time.Duration   `json:"duration"`
	Interrupted   bool            `json:"interrupted,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

func (ts *TrainingSummary) add(ep *Episode) {
	if ts.Episodes == 0 || ep.CumulativeReward > ts.BestReward {
		ts.BestReward = ep.CumulativeReward
	}
	ts.Episodes++
	ts.CupsHit += ep.CupsHit
	ts.Attempts += ep.Attempts
	ts.TotalReward += ep.CumulativeReward
	ts.MeanReward = ts.TotalReward / float64(ts.Episodes)
	ts.Outcomes[ep.Outcome]++
	if ep.Outcome == OutcomeCleared {
		ts.Cleared++
	}
}

// RunTraining plays job.Episodes episodes of the scenario with a seeded
// random policy in training mode. obs, when set, sees every episode. It
// stops early when ctx is cancelled.
func RunTraining(ctx context.Context, sc *config.Scenario, job TrainingJob, obs Observer, log *zap.Logger) (TrainingSummary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	started := time.Now()
	sessionID := "train-" + job.ID
	summary := TrainingSummary{JobID: job.ID, SessionID: sessionID, Outcomes: make(map[Outcome]int)}

	training := *sc
	training.Episode.TrainingMode = true
	training.Episode.Mode = config.ModeExternalPolicy
	training.Episode.AutoRestart = false
	training.Episode.ResetCupsOnBegin = true
	if job.WrongCup != "" {
		training.Policies.WrongCup = job.WrongCup
	}
	if job.TargetDraw != "" {
		training.Policies.TargetDraw = job.TargetDraw
	}
	settings, err := SettingsFromScenario(&training)
	if err != nil {
		return summary, err
	}
	rack, err := CupsFromScenario(&training)
	if err != nil {
		return summary, err
	}

	seed := job.Seed
	if seed == 0 {
		seed = SessionSeed(uuid.New())
	}
	opts := []Option{WithPolicy(NewRandomPolicy(seed)), WithSeed(seed), WithLogger(log)}
	if obs != nil {
		opts = append(opts, WithObserver(obs))
	}
	env := NewEnvironment(NewController(settings, rack, opts...), log)

	log.Info("training started", zap.String("job", job.ID), zap.Int("episodes", job.Episodes), zap.Uint64("seed", seed))
	for i := 0; i < job.Episodes; i++ {
		ep, err := env.RunEpisode(ctx, job.MaxTicks)
		if err != nil {
			env.Controller().EndEpisode(OutcomeInterrupted)
			summary.Interrupted = true
			summary.FailureReason = err.Error()
			break
		}
		summary.add(ep)
	}
	summary.Ticks = env.Ticks()
	summary.Duration = time.Since(started)
	log.Info("training finished",
		zap.String("job", job.ID),
		zap.Int("episodes", summary.Episodes),
		zap.Int("cleared", summary.Cleared),
		zap.Float64("mean_reward", summary.MeanReward),
		zap.Duration("took", summary.Duration))
	return summary, nil
}
