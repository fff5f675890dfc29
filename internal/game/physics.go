package game

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/playmatatu/beerpong/internal/config"
)

// CollisionTag is the collider category of a physics event.
type CollisionTag string

const (
	TagBoundary      CollisionTag = "boundary"
	TagTargetBody    CollisionTag = "targetBody"
	TagTargetTrigger CollisionTag = "targetTrigger"
	TagOutOfBounds   CollisionTag = "outOfBounds"
)

// Collision is a single physics event as the controller consumes it.
type Collision struct {
	Tag      CollisionTag `json:"tag"`
	Collider string       `json:"collider,omitempty"` // cup body/trigger collider ID
	Speed    float64      `json:"speed"`              // impact speed
}

// FlightSim is a fixed-step rigid body integrator for the released ball:
// gravity, table and floor bounces, cup walls and the beer trigger. It
// stands in for a game engine's physics and reports the same tagged events.
type FlightSim struct {
	gravity     Vec3
	restitution float64
	table       config.TableSpec
	arenaMin    Vec3
	arenaMax    Vec3
	maxTicks    int

	ticks    int
	touching map[string]bool // cup bodies in contact last tick
}

// NewFlightSim builds a simulator from settings.
func NewFlightSim(s Settings) *FlightSim {
	return &FlightSim{
		gravity:     s.Gravity,
		restitution: s.Restitution,
		table:       s.Table,
		arenaMin:    s.ArenaMin,
		arenaMax:    s.ArenaMax,
		maxTicks:    s.MaxFlightTicks,
		touching:    make(map[string]bool),
	}
}

// FlightTicks is the number of ticks simulated for the current throw.
func (fs *FlightSim) FlightTicks() int { return fs.ticks }

func (fs *FlightSim) reset() {
	fs.ticks = 0
	clear(fs.touching)
}

// Step advances p by dt and returns the events of this tick in resolution
// order. A kinematic ball does not move and clears per-throw state.
func (fs *FlightSim) Step(p *Projectile, rack *CupRack, dt float64) []Collision {
	if p.Kinematic || !p.Released {
		fs.reset()
		return nil
	}
	fs.ticks++

	prev := p.Position
	p.Velocity = r3.Add(p.Velocity, r3.Scale(dt, fs.gravity))
	p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))

	var events []Collision

	if rack != nil {
		for _, cup := range rack.Active() {
			if ev, ok := fs.cupTrigger(p, cup); ok {
				// The ball is in the beer; nothing else matters this tick.
				return append(events, ev)
			}
			if ev, ok := fs.cupBody(p, cup); ok {
				events = append(events, ev)
			}
		}
	}

	if ev, ok := fs.tableBounce(p, prev); ok {
		events = append(events, ev)
	} else if ev, ok := fs.floorBounce(p); ok {
		events = append(events, ev)
	}

	if fs.outOfArena(p.Position) || (fs.maxTicks > 0 && fs.ticks > fs.maxTicks) {
		events = append(events, Collision{Tag: TagOutOfBounds, Speed: r3.Norm(p.Velocity)})
	}
	return events
}

func (fs *FlightSim) cupTrigger(p *Projectile, cup *Cup) (Collision, bool) {
	rel := r3.Sub(p.Position, cup.Position)
	d := r3.Norm(horizontal(rel))
	if d >= cup.Radius-p.Radius/2 {
		return Collision{}, false
	}
	if rel.Y <= 0 || rel.Y >= cup.Height*triggerDepth {
		return Collision{}, false
	}
	return Collision{Tag: TagTargetTrigger, Collider: TriggerCollider(cup.ID), Speed: r3.Norm(p.Velocity)}, true
}

// cupBody reflects the ball off the cup wall or rim. Only the first tick of a
// contact is reported.
func (fs *FlightSim) cupBody(p *Projectile, cup *Cup) (Collision, bool) {
	rel := r3.Sub(p.Position, cup.Position)
	radial := horizontal(rel)
	d := r3.Norm(radial)
	inContact := math.Abs(d-cup.Radius) < p.Radius &&
		rel.Y >= -p.Radius && rel.Y <= cup.Height+p.Radius
	id := cup.ID
	if !inContact {
		delete(fs.touching, id)
		return Collision{}, false
	}
	if d > 0 {
		n := r3.Unit(radial)
		if d < cup.Radius {
			n = r3.Scale(-1, n) // inside the wall, push inward
		}
		vn := r3.Dot(p.Velocity, n)
		if vn < 0 {
			p.Velocity = r3.Sub(p.Velocity, r3.Scale((1+fs.restitution)*vn, n))
		}
	}
	if fs.touching[id] {
		return Collision{}, false
	}
	fs.touching[id] = true
	return Collision{Tag: TagTargetBody, Collider: BodyCollider(id), Speed: r3.Norm(p.Velocity)}, true
}

func (fs *FlightSim) onTable(v Vec3) bool {
	t := fs.table
	return v.X >= t.MinX && v.X <= t.MaxX && v.Z >= t.MinZ && v.Z <= t.MaxZ
}

func (fs *FlightSim) tableBounce(p *Projectile, prev Vec3) (Collision, bool) {
	top := fs.table.Height + p.Radius
	if !fs.onTable(p.Position) || p.Velocity.Y >= 0 {
		return Collision{}, false
	}
	if prev.Y < top || p.Position.Y >= top {
		return Collision{}, false
	}
	speed := -p.Velocity.Y
	p.Position.Y = top
	p.Velocity.Y = speed * fs.restitution
	return Collision{Tag: TagBoundary, Collider: "table", Speed: speed}, true
}

func (fs *FlightSim) floorBounce(p *Projectile) (Collision, bool) {
	if p.Position.Y >= p.Radius || p.Velocity.Y >= 0 {
		return Collision{}, false
	}
	speed := -p.Velocity.Y
	p.Position.Y = p.Radius
	p.Velocity.Y = speed * fs.restitution
	return Collision{Tag: TagBoundary, Collider: "floor", Speed: speed}, true
}

func (fs *FlightSim) outOfArena(v Vec3) bool {
	return v.X < fs.arenaMin.X || v.Y < fs.arenaMin.Y || v.Z < fs.arenaMin.Z ||
		v.X > fs.arenaMax.X || v.Y > fs.arenaMax.Y || v.Z > fs.arenaMax.Z
}
