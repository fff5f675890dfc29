package game

import (
	"testing"

	"github.com/playmatatu/beerpong/internal/config"
	"github.com/stretchr/testify/require"
)

// testScenario is the default table in manual, non-training mode.
func testScenario(mutate ...func(*config.Scenario)) *config.Scenario {
	sc := config.DefaultScenario()
	sc.Episode.Mode = config.ModeManualHeuristic
	sc.Episode.TrainingMode = false
	sc.Episode.AutoRestart = false
	for _, m := range mutate {
		m(sc)
	}
	return sc
}

func newTestController(t *testing.T, sc *config.Scenario, opts ...Option) *Controller {
	t.Helper()
	s, err := SettingsFromScenario(sc)
	require.NoError(t, err)
	rack, err := CupsFromScenario(sc)
	require.NoError(t, err)
	return NewController(s, rack, append([]Option{WithSeed(1)}, opts...)...)
}

func withCups(ids ...string) func(*config.Scenario) {
	return func(sc *config.Scenario) {
		sc.Cups = sc.Cups[:0]
		for i, id := range ids {
			sc.Cups = append(sc.Cups, config.CupSpec{
				ID:       id,
				Position: config.Vec3{X: float64(i) * 0.1, Y: config.DefaultTableHeight, Z: 1},
				Radius:   config.DefaultCupRadius,
				Height:   config.DefaultCupHeight,
			})
		}
	}
}

type recordingSink struct {
	visible []bool
	draws   [][]Vec3
}

func (r *recordingSink) SetVisible(v bool) { r.visible = append(r.visible, v) }
func (r *recordingSink) Draw(p []Vec3)     { r.draws = append(r.draws, p) }

func (r *recordingSink) lastVisible() bool {
	if len(r.visible) == 0 {
		return false
	}
	return r.visible[len(r.visible)-1]
}

type recordingObserver struct {
	began   int
	rewards []Reward
	ended   []Outcome
}

func (r *recordingObserver) EpisodeBegan(*Episode)              { r.began++ }
func (r *recordingObserver) RewardIssued(_ *Episode, rw Reward) { r.rewards = append(r.rewards, rw) }
func (r *recordingObserver) EpisodeEnded(ep *Episode)           { r.ended = append(r.ended, ep.Outcome) }

// throw begins an episode if needed and releases the ball straight ahead.
func throw(t *testing.T, c *Controller) *Cup {
	t.Helper()
	if c.Episode() == nil || c.Episode().Ended {
		c.BeginEpisode()
	}
	aimed := c.AimedCup()
	require.True(t, c.ApplyAction(Action{}))
	require.Equal(t, PhaseReleased, c.Phase())
	return aimed
}
