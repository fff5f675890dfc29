package game

import (
	"testing"

	"github.com/playmatatu/beerpong/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func trigger(c *Controller, cup *Cup) {
	c.HandleCollision(Collision{Tag: TagTargetTrigger, Collider: TriggerCollider(cup.ID)})
}

func bounce(c *Controller) {
	c.HandleCollision(Collision{Tag: TagBoundary, Collider: "table"})
}

func TestApplyActionClamps(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()

	require.True(t, c.ApplyAction(Action{Pitch: 5, Yaw: -5, Force: 2}))
	assert.Equal(t, AimState{Pitch: 30, Yaw: -20, Force: 4}, c.Aim())
	assert.Equal(t, Action{Pitch: 1, Yaw: -1, Force: 1}, c.Heuristic())
	assert.Equal(t, 30.0, c.Ball().Pitch)
	assert.Equal(t, -20.0, c.Ball().Yaw)

	c.Reset()
	require.True(t, c.ApplyAction(Action{Pitch: -0.5, Yaw: 0.5, Force: -1}))
	assert.Equal(t, AimState{Pitch: -15, Yaw: 10, Force: 1}, c.Aim())
}

func TestReleaseIsIdempotent(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()
	require.True(t, c.ApplyAction(Action{Force: 1}))

	v := c.Ball().Velocity
	// impulse = facing * force, velocity += impulse / mass
	assert.InDelta(t, 4.0/0.5, r3.Norm(v), 1e-9)
	assert.False(t, c.Ball().Kinematic)

	assert.False(t, c.Release())
	assert.False(t, c.ApplyAction(Action{Pitch: 1, Force: 1}))
	assert.Equal(t, v, c.Ball().Velocity)
	assert.Equal(t, 1, c.Episode().Attempts)
}

func TestReleaseHidesPreview(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t, testScenario(), WithPreview(sink))
	c.BeginEpisode()
	assert.True(t, sink.lastVisible())

	points := c.UpdatePreview()
	assert.Len(t, points, 10)
	require.NotEmpty(t, sink.draws)
	assert.Equal(t, c.Ball().Position, sink.draws[len(sink.draws)-1][0])

	require.True(t, c.ApplyAction(Action{}))
	assert.False(t, sink.lastVisible())
	assert.Nil(t, c.UpdatePreview(), "no preview while in flight")
}

func TestSelectTargetIsStable(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()
	first := c.AimedCup()
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		assert.Same(t, first, c.SelectTarget())
	}

	c.Rack().MarkHit(first)
	next := c.SelectTarget()
	require.NotNil(t, next)
	assert.NotEqual(t, first.ID, next.ID)
	assert.True(t, c.Rack().IsActive(next.ID))
}

func TestLegacyDrawNeverPicksLastCandidate(t *testing.T) {
	sc := testScenario(withCups("a", "b", "c"))
	for seed := uint64(0); seed < 200; seed++ {
		c := newTestController(t, sc, WithSeed(seed))
		c.BeginEpisode()
		require.NotNil(t, c.AimedCup())
		assert.NotEqual(t, "c", c.AimedCup().ID, "seed %d", seed)
	}

	single := newTestController(t, testScenario(withCups("only")))
	single.BeginEpisode()
	require.NotNil(t, single.AimedCup())
	assert.Equal(t, "only", single.AimedCup().ID)
}

func TestUniformDrawReachesEveryCup(t *testing.T) {
	sc := testScenario(withCups("a", "b", "c"), func(sc *config.Scenario) {
		sc.Policies.TargetDraw = config.TargetDrawUniform
	})
	seen := map[string]bool{}
	for seed := uint64(0); seed < 200; seed++ {
		c := newTestController(t, sc, WithSeed(seed))
		c.BeginEpisode()
		seen[c.AimedCup().ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestDirectHit(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestController(t, testScenario(), WithObserver(obs))
	aimed := throw(t, c)
	trigger(c, aimed)

	ep := c.Episode()
	assert.InDeltaSlice(t, []float64{0.8}, ep.Values(), 1e-9)
	assert.Equal(t, 1, ep.CupsHit)
	assert.True(t, aimed.Hit)
	assert.False(t, c.Rack().IsActive(aimed.ID))
	assert.Equal(t, OutcomeHitTarget, c.LastOutcome())

	// Reset for the next throw at a new cup.
	assert.Equal(t, PhaseAiming, c.Phase())
	assert.True(t, c.Ball().Kinematic)
	assert.Equal(t, c.Settings().InitialPosition, c.Ball().Position)
	require.NotNil(t, c.AimedCup())
	assert.NotEqual(t, aimed.ID, c.AimedCup().ID)
	assert.False(t, ep.Ended)

	assert.Equal(t, 1, obs.began)
	require.Len(t, obs.rewards, 1)
	assert.Equal(t, RewardHit, obs.rewards[0].Reason)
	assert.Equal(t, aimed.ID, obs.rewards[0].CupID)
}

func TestBounceBonus(t *testing.T) {
	c := newTestController(t, testScenario())
	aimed := throw(t, c)
	bounce(c)
	trigger(c, aimed)

	assert.InDeltaSlice(t, []float64{0.8, 0.2}, c.Episode().Values(), 1e-9)
	assert.Equal(t, RewardBounceBonus, c.Episode().Rewards[1].Reason)
}

func TestSecondBounceFailsWithEscalatingPenalty(t *testing.T) {
	c := newTestController(t, testScenario())
	throw(t, c)
	bounce(c)
	assert.Equal(t, PhaseReleased, c.Phase(), "one bounce is allowed")
	bounce(c)

	ep := c.Episode()
	assert.InDeltaSlice(t, []float64{-0.1}, ep.Values(), 1e-9)
	assert.Equal(t, 1, ep.FailedAttempts)
	assert.Equal(t, PhaseAiming, c.Phase())
	assert.False(t, ep.Ended, "a failed attempt resets, it does not end the episode")
	assert.Equal(t, 0, c.Bounces())

	throw(t, c)
	bounce(c)
	bounce(c)
	assert.InDeltaSlice(t, []float64{-0.1, -0.2}, ep.Values(), 1e-9)
	assert.Equal(t, 2, ep.FailedAttempts)
	assert.Equal(t, OutcomeOutOfBounds, c.LastOutcome())
}

func TestPenaltyCap(t *testing.T) {
	c := newTestController(t, testScenario(func(sc *config.Scenario) { sc.Rewards.MaxPenalty = 0.15 }))
	for i := 0; i < 3; i++ {
		throw(t, c)
		c.HandleCollision(Collision{Tag: TagOutOfBounds})
	}
	assert.InDeltaSlice(t, []float64{-0.1, -0.15, -0.15}, c.Episode().Values(), 1e-9)
}

func TestOutOfBoundsFailsAttempt(t *testing.T) {
	c := newTestController(t, testScenario())
	throw(t, c)
	c.HandleCollision(Collision{Tag: TagOutOfBounds})

	require.Len(t, c.Episode().Rewards, 1)
	assert.Equal(t, RewardOutOfBounds, c.Episode().Rewards[0].Reason)
	assert.InDelta(t, -0.1, c.Episode().Rewards[0].Value, 1e-9)
	assert.Equal(t, PhaseAiming, c.Phase())
}

func TestRimContactRewardedOncePerThrow(t *testing.T) {
	c := newTestController(t, testScenario())
	aimed := throw(t, c)
	c.HandleCollision(Collision{Tag: TagTargetBody, Collider: BodyCollider(aimed.ID)})
	c.HandleCollision(Collision{Tag: TagTargetBody, Collider: BodyCollider(aimed.ID)})
	assert.InDeltaSlice(t, []float64{0.1}, c.Episode().Values(), 1e-9)

	c.HandleCollision(Collision{Tag: TagOutOfBounds})
	throw(t, c)
	c.HandleCollision(Collision{Tag: TagTargetBody, Collider: BodyCollider(aimed.ID)})
	assert.InDeltaSlice(t, []float64{0.1, -0.1, 0.1}, c.Episode().Values(), 1e-9)
}

func TestWrongCupIgnored(t *testing.T) {
	c := newTestController(t, testScenario(withCups("a", "b", "c")))
	aimed := throw(t, c)
	var other *Cup
	for _, cup := range c.Rack().Active() {
		if cup != aimed {
			other = cup
			break
		}
	}
	require.NotNil(t, other)

	trigger(c, other)
	assert.Empty(t, c.Episode().Rewards)
	assert.True(t, c.Rack().IsActive(other.ID))
	assert.Equal(t, PhaseReleased, c.Phase())
}

func TestWrongCupPenalized(t *testing.T) {
	sc := testScenario(withCups("a", "b", "c"), func(sc *config.Scenario) {
		sc.Policies.WrongCup = config.WrongCupPenalize
	})
	c := newTestController(t, sc)
	aimed := throw(t, c)
	var other *Cup
	for _, cup := range c.Rack().Active() {
		if cup != aimed {
			other = cup
			break
		}
	}
	trigger(c, other)

	ep := c.Episode()
	require.Len(t, ep.Rewards, 1)
	assert.Equal(t, RewardWrongCup, ep.Rewards[0].Reason)
	assert.InDelta(t, -0.1, ep.Rewards[0].Value, 1e-9)
	assert.Equal(t, 1, ep.FailedAttempts)
	assert.Equal(t, OutcomeHitWrong, c.LastOutcome())
	assert.Equal(t, PhaseAiming, c.Phase())
	assert.True(t, c.Rack().IsActive(other.ID))
}

func TestClearingTheRackEndsEpisode(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestController(t, testScenario(withCups("a", "b")), WithObserver(obs))

	for i := 0; i < 2; i++ {
		aimed := throw(t, c)
		trigger(c, aimed)
	}

	ep := c.Episode()
	assert.True(t, ep.Ended)
	assert.Equal(t, OutcomeCleared, ep.Outcome)
	assert.Equal(t, PhaseEpisodeOver, c.Phase())
	assert.InDeltaSlice(t, []float64{0.8, 0.8, 1.0}, ep.Values(), 1e-9)
	assert.InDelta(t, 2.6, ep.CumulativeReward, 1e-9)
	assert.Nil(t, c.AimedCup())
	assert.Equal(t, []Outcome{OutcomeCleared}, obs.ended)

	// Throws are ignored until the next episode.
	assert.False(t, c.ApplyAction(Action{}))
	c.BeginEpisode()
	assert.Equal(t, 2, c.Rack().Remaining(), "cups reset on begin")
	assert.Equal(t, 2, c.Episode().Number)
}

func TestCollisionsWhileAimingAreIgnored(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()
	aimed := c.AimedCup()

	bounce(c)
	bounce(c)
	trigger(c, aimed)
	c.HandleCollision(Collision{Tag: TagOutOfBounds})

	assert.Empty(t, c.Episode().Rewards)
	assert.Equal(t, 0, c.Bounces())
	assert.True(t, c.Rack().IsActive(aimed.ID))
}

func TestUnknownColliderIsNoop(t *testing.T) {
	c := newTestController(t, testScenario())
	throw(t, c)
	c.HandleCollision(Collision{Tag: TagTargetTrigger, Collider: "ghost/beer"})
	c.HandleCollision(Collision{Tag: "sparkles"})
	assert.Empty(t, c.Episode().Rewards)
	assert.Equal(t, PhaseReleased, c.Phase())
}

func TestManualResetFromReleased(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()
	require.True(t, c.SetAim(Action{Pitch: 0.5, Yaw: 0.5, Force: 0.5}))
	require.True(t, c.Release())

	c.ManualReset(false)
	assert.Equal(t, PhaseAiming, c.Phase())
	b := c.Ball()
	assert.True(t, b.Kinematic)
	assert.False(t, b.Released)
	assert.Equal(t, Vec3{}, b.Velocity)
	assert.Equal(t, c.Settings().InitialPosition, b.Position)
	assert.Equal(t, AimState{Force: c.Settings().BaseForce}, c.Aim())
	assert.Equal(t, Action{}, c.Heuristic())
	assert.Empty(t, c.Episode().Rewards, "a manual reset is not a failed attempt")
}

func TestManualResetRestoresCups(t *testing.T) {
	c := newTestController(t, testScenario())
	aimed := throw(t, c)
	trigger(c, aimed)
	require.Equal(t, 5, c.Rack().Remaining())

	c.ManualReset(true)
	assert.Equal(t, 6, c.Rack().Remaining())
	assert.NotNil(t, c.AimedCup())
}

func TestPreserveAimOnReset(t *testing.T) {
	c := newTestController(t, testScenario(func(sc *config.Scenario) { sc.Episode.PreserveAimOnReset = true }))
	c.BeginEpisode()
	require.True(t, c.ApplyAction(Action{Pitch: 0.5, Force: 0.5}))
	c.HandleCollision(Collision{Tag: TagOutOfBounds})
	assert.Equal(t, AimState{Pitch: 15, Force: 2.5}, c.Aim())
}

func TestObservation(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()
	aimed := c.AimedCup()
	require.NotNil(t, aimed)

	obs := c.Observe()
	dist := Distance(aimed.Position, c.Ball().Position)
	assert.InDelta(t, dist/3, obs[0], 1e-9)
	assert.InDelta(t, 1, r3.Norm(Vec3{X: obs[1], Y: obs[2], Z: obs[3]}), 1e-9)
	assert.Greater(t, obs[3], 0.0, "cups are down the table")
}

func TestObservationWithoutTarget(t *testing.T) {
	c := newTestController(t, testScenario(func(sc *config.Scenario) { sc.Cups = nil }))
	c.BeginEpisode()
	assert.Nil(t, c.AimedCup())
	assert.Equal(t, Observation{}, c.Observe())
}

func TestRequestDecisionManualUsesHeuristic(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()
	require.True(t, c.SetAim(Action{Pitch: -0.2, Force: 0.3}))
	require.True(t, c.RequestDecision())
	assert.Equal(t, PhaseReleased, c.Phase())
	assert.InDelta(t, -6, c.Aim().Pitch, 1e-9)
	assert.InDelta(t, 1.9, c.Aim().Force, 1e-9)
}

func TestRequestDecisionExternalWaitsForAction(t *testing.T) {
	ext := NewExternalPolicy()
	sc := testScenario(func(sc *config.Scenario) { sc.Episode.Mode = config.ModeExternalPolicy })
	c := newTestController(t, sc, WithPolicy(ext))
	c.BeginEpisode()

	assert.False(t, c.RequestDecision(), "nothing submitted")
	ext.Submit(Action{Yaw: 1, Force: 1})
	assert.True(t, c.RequestDecision())
	assert.Equal(t, 20.0, c.Aim().Yaw)
	assert.False(t, ext.Pending())
}

func TestFixedUpdateReselectsWhenAimedCupRemoved(t *testing.T) {
	c := newTestController(t, testScenario())
	c.BeginEpisode()
	aimed := c.AimedCup()
	c.Rack().Remove(aimed)

	c.FixedUpdate()
	require.NotNil(t, c.AimedCup())
	assert.NotEqual(t, aimed.ID, c.AimedCup().ID)
}
