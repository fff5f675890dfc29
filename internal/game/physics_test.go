package game

import (
	"testing"

	"github.com/playmatatu/beerpong/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSim(t *testing.T, mutate ...func(*config.Scenario)) (*FlightSim, Settings) {
	t.Helper()
	s, err := SettingsFromScenario(testScenario(mutate...))
	require.NoError(t, err)
	return NewFlightSim(s), s
}

func releasedBall(s Settings, pos, vel Vec3) *Projectile {
	return &Projectile{Position: pos, Velocity: vel, Mass: s.Mass, Radius: s.Radius, Released: true}
}

// fly steps until an event with tag appears or the tick limit is reached.
func fly(sim *FlightSim, p *Projectile, rack *CupRack, dt float64, tag CollisionTag, limit int) (Collision, bool) {
	for i := 0; i < limit; i++ {
		for _, ev := range sim.Step(p, rack, dt) {
			if ev.Tag == tag {
				return ev, true
			}
		}
	}
	return Collision{}, false
}

func TestBallDroppedIntoCupHitsTrigger(t *testing.T) {
	sim, s := testSim(t)
	rack := testRack(t, "cup-1")
	cup, _ := rack.Get("cup-1")

	above := cup.Position
	above.Y += 0.4
	p := releasedBall(s, above, Vec3{})

	ev, ok := fly(sim, p, rack, s.FixedDeltaTime, TagTargetTrigger, 100)
	require.True(t, ok, "ball should land in the cup")
	assert.Equal(t, TriggerCollider("cup-1"), ev.Collider)
	assert.Greater(t, ev.Speed, 0.0)
}

func TestKinematicBallDoesNotMove(t *testing.T) {
	sim, s := testSim(t)
	p := &Projectile{Position: s.InitialPosition, Mass: s.Mass, Radius: s.Radius, Kinematic: true}

	for i := 0; i < 10; i++ {
		assert.Empty(t, sim.Step(p, nil, s.FixedDeltaTime))
	}
	assert.Equal(t, s.InitialPosition, p.Position)
	assert.Equal(t, 0, sim.FlightTicks())
}

func TestTableBounce(t *testing.T) {
	sim, s := testSim(t)
	p := releasedBall(s, Vec3{X: 0, Y: 1.0, Z: 0}, Vec3{})

	ev, ok := fly(sim, p, nil, s.FixedDeltaTime, TagBoundary, 100)
	require.True(t, ok)
	assert.Equal(t, "table", ev.Collider)
	assert.Greater(t, p.Velocity.Y, 0.0, "ball bounces back up")
	assert.InDelta(t, s.Table.Height+s.Radius, p.Position.Y, 1e-9)
}

func TestFloorBounceOffTable(t *testing.T) {
	sim, s := testSim(t)
	p := releasedBall(s, Vec3{X: 2, Y: 0.5, Z: 0}, Vec3{})

	ev, ok := fly(sim, p, nil, s.FixedDeltaTime, TagBoundary, 100)
	require.True(t, ok)
	assert.Equal(t, "floor", ev.Collider)
}

func TestLeavingArenaIsOutOfBounds(t *testing.T) {
	sim, s := testSim(t)
	p := releasedBall(s, Vec3{Y: 2}, Vec3{X: 1000})

	events := sim.Step(p, nil, s.FixedDeltaTime)
	require.NotEmpty(t, events)
	assert.Equal(t, TagOutOfBounds, events[len(events)-1].Tag)
}

func TestFlightTimeout(t *testing.T) {
	sim, s := testSim(t, func(sc *config.Scenario) {
		sc.Physics.Gravity = config.Vec3{}
		sc.Physics.MaxFlightTicks = 3
	})
	p := releasedBall(s, Vec3{Y: 2}, Vec3{})

	for i := 0; i < 3; i++ {
		assert.Empty(t, sim.Step(p, nil, s.FixedDeltaTime))
	}
	events := sim.Step(p, nil, s.FixedDeltaTime)
	require.Len(t, events, 1)
	assert.Equal(t, TagOutOfBounds, events[0].Tag)
}

func TestCupWallReportedOncePerContact(t *testing.T) {
	sim, s := testSim(t, func(sc *config.Scenario) { sc.Physics.Gravity = config.Vec3{} })
	rack := testRack(t, "cup-1")
	cup, _ := rack.Get("cup-1")

	// Slow horizontal approach at rim height towards the wall.
	start := cup.Position
	start.Y += cup.Height / 2
	start.X -= cup.Radius + 2*s.Radius
	p := releasedBall(s, start, Vec3{X: 0.5})

	var hits int
	for i := 0; i < 20; i++ {
		for _, ev := range sim.Step(p, rack, s.FixedDeltaTime) {
			if ev.Tag == TagTargetBody {
				hits++
				assert.Equal(t, BodyCollider("cup-1"), ev.Collider)
			}
		}
	}
	assert.Equal(t, 1, hits)
	assert.Less(t, p.Velocity.X, 0.0, "reflected off the wall")
}
