package game

import (
	"context"
	"testing"

	"github.com/playmatatu/beerpong/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTraining(t *testing.T) {
	obs := &recordingObserver{}
	job := TrainingJob{ID: "job-1", Episodes: 3, Seed: 11, MaxTicks: 1500}

	summary, err := RunTraining(context.Background(), config.DefaultScenario(), job, obs, nil)
	require.NoError(t, err)
	assert.Equal(t, "job-1", summary.JobID)
	assert.Equal(t, 3, summary.Episodes)
	assert.False(t, summary.Interrupted)
	assert.Greater(t, summary.Attempts, 0, "the random policy throws")
	assert.Greater(t, summary.Ticks, 0)

	total := 0
	for _, n := range summary.Outcomes {
		total += n
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, obs.began)
	assert.Len(t, obs.ended, 3)
	assert.InDelta(t, summary.TotalReward/3, summary.MeanReward, 1e-9)
	assert.GreaterOrEqual(t, summary.BestReward, summary.MeanReward)
}

func TestRunTrainingIsReproducible(t *testing.T) {
	job := TrainingJob{ID: "job", Episodes: 2, Seed: 99, MaxTicks: 1000}
	a, err := RunTraining(context.Background(), config.DefaultScenario(), job, nil, nil)
	require.NoError(t, err)
	b, err := RunTraining(context.Background(), config.DefaultScenario(), job, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, a.TotalReward, b.TotalReward)
	assert.Equal(t, a.Outcomes, b.Outcomes)
	assert.Equal(t, a.Attempts, b.Attempts)
	assert.Equal(t, a.Ticks, b.Ticks)
}

func TestRunTrainingCancelled(t *testing.T) {
	obs := &recordingObserver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := RunTraining(ctx, config.DefaultScenario(), TrainingJob{ID: "c", Episodes: 5, Seed: 1}, obs, nil)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 0, summary.Episodes)
	assert.Equal(t, []Outcome{OutcomeInterrupted}, obs.ended)
}

func TestRunTrainingRejectsBadPolicy(t *testing.T) {
	_, err := RunTraining(context.Background(), config.DefaultScenario(), TrainingJob{Episodes: 1, WrongCup: "maybe"}, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidScenario)
}

func TestJobResult(t *testing.T) {
	job := TrainingJob{ID: "j", Episodes: 5}

	done := jobResult(job, TrainingSummary{Episodes: 5}, nil)
	assert.Equal(t, JobCompleted, done.Status)
	assert.Empty(t, done.Error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := RunTraining(ctx, config.DefaultScenario(), job, nil, nil)
	require.NoError(t, err)
	cut := jobResult(job, summary, err)
	assert.Equal(t, JobFailed, cut.Status)
	assert.Contains(t, cut.Error, context.Canceled.Error())
	require.NotNil(t, cut.Summary)
	assert.True(t, cut.Summary.Interrupted)

	bad := jobResult(job, TrainingSummary{}, config.ErrInvalidScenario)
	assert.Equal(t, JobFailed, bad.Status)
	assert.Equal(t, config.ErrInvalidScenario.Error(), bad.Error)
}
