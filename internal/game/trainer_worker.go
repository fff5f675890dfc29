package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrTrainingUnavailable is returned when no redis queue is configured.
	ErrTrainingUnavailable = errors.New("training queue unavailable")
	// ErrJobNotFound is returned for an unknown or expired training job.
	ErrJobNotFound = errors.New("training job not found")
)

// Training job states.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// TrainingStatus is the redis record of a queued job.
type TrainingStatus struct {
	Job       TrainingJob      `json:"job"`
	Status    string           `json:"status"`
	Summary   *TrainingSummary `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

const trainingStatusTTL = 24 * time.Hour

func setTrainingStatus(ctx context.Context, rdb *redis.Client, st TrainingStatus) error {
	st.UpdatedAt = time.Now()
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return rdb.SetEx(ctx, trainingKeyPrefix+st.Job.ID, data, trainingStatusTTL).Err()
}

// EnqueueTraining validates job, assigns an ID and pushes it on the
// training queue.
func (m *Manager) EnqueueTraining(ctx context.Context, job TrainingJob) (TrainingJob, error) {
	if m.rdb == nil {
		return job, ErrTrainingUnavailable
	}
	if job.Episodes <= 0 {
		return job, fmt.Errorf("episodes must be positive")
	}
	if m.cfg.TrainerMaxEpisodes > 0 && job.Episodes > m.cfg.TrainerMaxEpisodes {
		job.Episodes = m.cfg.TrainerMaxEpisodes
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return job, err
	}
	if err := setTrainingStatus(ctx, m.rdb, TrainingStatus{Job: job, Status: JobQueued}); err != nil {
		return job, fmt.Errorf("store job status: %w", err)
	}
	if err := m.rdb.RPush(ctx, TrainingQueueKey, data).Err(); err != nil {
		return job, fmt.Errorf("enqueue job: %w", err)
	}
	m.log.Info("training job queued", zap.String("job", job.ID), zap.Int("episodes", job.Episodes))
	return job, nil
}

// TrainingStatus reads the status record of a job.
func (m *Manager) TrainingStatus(ctx context.Context, id string) (*TrainingStatus, error) {
	if m.rdb == nil {
		return nil, ErrTrainingUnavailable
	}
	data, err := m.rdb.Get(ctx, trainingKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var st TrainingStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StartTrainerWorker pops training jobs from redis and runs them headless
// until ctx is done.
func StartTrainerWorker(ctx context.Context, m *Manager, db *sqlx.DB, rdb *redis.Client, cfg *config.Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("trainer")
	if rdb == nil || cfg == nil {
		log.Info("redis or config missing; trainer worker not started")
		return nil
	}
	poll := time.Duration(cfg.TrainerPollSeconds) * time.Second
	if poll <= 0 {
		poll = 2 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	log.Info("trainer worker started", zap.Duration("poll", poll))
	for {
		select {
		case <-ctx.Done():
			log.Info("trainer worker stopped")
			return nil
		case <-ticker.C:
			processTrainingJobs(ctx, m, db, rdb, cfg, log)
		}
	}
}

func processTrainingJobs(ctx context.Context, m *Manager, db *sqlx.DB, rdb *redis.Client, cfg *config.Config, log *zap.Logger) {
	for ctx.Err() == nil {
		raw, err := rdb.LPop(ctx, TrainingQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			return
		}
		if err != nil {
			log.Warn("failed to pop training job", zap.Error(err))
			return
		}
		var job TrainingJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			log.Warn("invalid training job payload", zap.Error(err))
			continue
		}
		runTrainingJob(ctx, m, db, rdb, cfg, log, job)
	}
}

func runTrainingJob(ctx context.Context, m *Manager, db *sqlx.DB, rdb *redis.Client, cfg *config.Config, log *zap.Logger, job TrainingJob) {
	if job.MaxTicks <= 0 {
		job.MaxTicks = cfg.TrainerMaxTicks
	}
	if err := setTrainingStatus(ctx, rdb, TrainingStatus{Job: job, Status: JobRunning}); err != nil {
		log.Warn("failed to mark job running", zap.String("job", job.ID), zap.Error(err))
	}

	var obs Observer
	if db != nil {
		obs = &episodeWriter{ctx: ctx, db: db, sessionID: "train-" + job.ID, log: log}
	}
	summary, err := RunTraining(ctx, m.Scenario(), job, obs, log)
	st := jobResult(job, summary, err)
	if st.Status == JobFailed {
		log.Error("training job failed", zap.String("job", job.ID), zap.String("reason", st.Error))
	}
	if err := setTrainingStatus(context.WithoutCancel(ctx), rdb, st); err != nil {
		log.Warn("failed to store job result", zap.String("job", job.ID), zap.Error(err))
	}
	if st.Status == JobCompleted {
		m.Publish(Event{Type: EventTrainingCompleted, SessionID: summary.SessionID, Summary: &summary})
	}
}

// jobResult is the final status record of a job. A run cut short by
// cancellation is a failure, not a completion.
func jobResult(job TrainingJob, summary TrainingSummary, err error) TrainingStatus {
	st := TrainingStatus{Job: job, Status: JobCompleted, Summary: &summary}
	switch {
	case err != nil:
		st.Status = JobFailed
		st.Error = err.Error()
	case summary.Interrupted:
		st.Status = JobFailed
		st.Error = "interrupted: " + summary.FailureReason
	}
	return st
}

// episodeWriter persists each finished episode synchronously.
type episodeWriter struct {
	ctx       context.Context
	db        *sqlx.DB
	sessionID string
	log       *zap.Logger
}

func (w *episodeWriter) EpisodeBegan(*Episode)         {}
func (w *episodeWriter) RewardIssued(*Episode, Reward) {}

func (w *episodeWriter) EpisodeEnded(ep *Episode) {
	if err := PersistEpisode(context.WithoutCancel(w.ctx), w.db, w.sessionID, ep); err != nil {
		w.log.Error("failed to persist training episode", zap.Int("episode", ep.Number), zap.Error(err))
	}
}
