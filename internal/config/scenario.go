package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario wraps every scenario validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Wrong-cup policies.
const (
	WrongCupIgnore   = "ignore"
	WrongCupPenalize = "penalize"
)

// Target draw strategies. Legacy never draws the last active cup when more
// than one remains; uniform draws from all of them.
const (
	TargetDrawLegacy  = "legacy"
	TargetDrawUniform = "uniform"
)

// Decision modes.
const (
	ModeManualHeuristic = "manual"
	ModeExternalPolicy  = "external"
)

type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

type ProjectileSpec struct {
	Mass     float64 `yaml:"mass" json:"mass"`
	Radius   float64 `yaml:"radius" json:"radius"`
	Position Vec3    `yaml:"position" json:"position"`
	Pitch    float64 `yaml:"pitch" json:"pitch"`
	Yaw      float64 `yaml:"yaw" json:"yaw"`
}

type AimSpec struct {
	MaxPitch  float64 `yaml:"max_pitch" json:"max_pitch"`
	MaxYaw    float64 `yaml:"max_yaw" json:"max_yaw"`
	MaxForce  float64 `yaml:"max_force" json:"max_force"`
	BaseForce float64 `yaml:"base_force" json:"base_force"`
}

type RewardSpec struct {
	Hit             float64 `yaml:"hit" json:"hit"`
	BounceBonus     float64 `yaml:"bounce_bonus" json:"bounce_bonus"`
	RimContact      float64 `yaml:"rim_contact" json:"rim_contact"`
	Clear           float64 `yaml:"clear" json:"clear"`
	BoundaryPenalty float64 `yaml:"boundary_penalty" json:"boundary_penalty"`
	WrongCupPenalty float64 `yaml:"wrong_cup_penalty" json:"wrong_cup_penalty"`
	MaxPenalty      float64 `yaml:"max_penalty" json:"max_penalty"` // 0 = uncapped
}

type EpisodeSpec struct {
	TrainingMode       bool    `yaml:"training_mode" json:"training_mode"`
	Mode               string  `yaml:"mode" json:"mode"`
	MaxSteps           int     `yaml:"max_steps" json:"max_steps"`       // 0 = unlimited
	MaxAttempts        int     `yaml:"max_attempts" json:"max_attempts"` // 0 = unlimited
	DecisionInterval   float64 `yaml:"decision_interval" json:"decision_interval"`
	AutoRestart        bool    `yaml:"auto_restart" json:"auto_restart"`
	ResetCupsOnBegin   bool    `yaml:"reset_cups_on_begin" json:"reset_cups_on_begin"`
	PreserveAimOnReset bool    `yaml:"preserve_aim_on_reset" json:"preserve_aim_on_reset"`
}

type TrajectorySpec struct {
	Segments       int  `yaml:"segments" json:"segments"`
	ShowPercentage int  `yaml:"show_percentage" json:"show_percentage"`
	Visible        bool `yaml:"visible" json:"visible"`
}

type TableSpec struct {
	Height float64 `yaml:"height" json:"height"`
	MinX   float64 `yaml:"min_x" json:"min_x"`
	MaxX   float64 `yaml:"max_x" json:"max_x"`
	MinZ   float64 `yaml:"min_z" json:"min_z"`
	MaxZ   float64 `yaml:"max_z" json:"max_z"`
}

type PhysicsSpec struct {
	Gravity        Vec3      `yaml:"gravity" json:"gravity"`
	FixedDeltaTime float64   `yaml:"fixed_delta_time" json:"fixed_delta_time"`
	Restitution    float64   `yaml:"restitution" json:"restitution"`
	MaxFlightTicks int       `yaml:"max_flight_ticks" json:"max_flight_ticks"`
	MaxCupDistance float64   `yaml:"max_cup_distance" json:"max_cup_distance"`
	Table          TableSpec `yaml:"table" json:"table"`
	ArenaMin       Vec3      `yaml:"arena_min" json:"arena_min"`
	ArenaMax       Vec3      `yaml:"arena_max" json:"arena_max"`
}

type CupSpec struct {
	ID       string  `yaml:"id" json:"id"`
	Position Vec3    `yaml:"position" json:"position"`
	Radius   float64 `yaml:"radius" json:"radius"`
	Height   float64 `yaml:"height" json:"height"`
}

type PolicySpec struct {
	WrongCup   string `yaml:"wrong_cup" json:"wrong_cup"`
	TargetDraw string `yaml:"target_draw" json:"target_draw"`
}

// Scenario describes a table, its cups and the throw/reward tuning.
type Scenario struct {
	Name       string         `yaml:"name" json:"name"`
	Projectile ProjectileSpec `yaml:"projectile" json:"projectile"`
	Aim        AimSpec        `yaml:"aim" json:"aim"`
	Rewards    RewardSpec     `yaml:"rewards" json:"rewards"`
	Episode    EpisodeSpec    `yaml:"episode" json:"episode"`
	Trajectory TrajectorySpec `yaml:"trajectory" json:"trajectory"`
	Physics    PhysicsSpec    `yaml:"physics" json:"physics"`
	Cups       []CupSpec      `yaml:"cups" json:"cups"`
	Policies   PolicySpec     `yaml:"policies" json:"policies"`
}

// DefaultScenario is a six-cup triangle at the far end of a regulation table.
func DefaultScenario() *Scenario {
	const (
		tableY = DefaultTableHeight
		cupR   = DefaultCupRadius
	)
	cup := func(id string, x, z float64) CupSpec {
		return CupSpec{ID: id, Position: Vec3{X: x, Y: tableY, Z: z}, Radius: cupR, Height: DefaultCupHeight}
	}
	return &Scenario{
		Name: "six-cup-triangle",
		Projectile: ProjectileSpec{
			Mass:     DefaultBallMass,
			Radius:   DefaultBallRadius,
			Position: Vec3{X: 0, Y: 1.1, Z: -1.2},
		},
		Aim: AimSpec{
			MaxPitch:  DefaultMaxPitch,
			MaxYaw:    DefaultMaxYaw,
			MaxForce:  DefaultMaxThrowForce,
			BaseForce: DefaultBaseThrowForce,
		},
		Rewards: RewardSpec{
			Hit:             DefaultHitReward,
			BounceBonus:     DefaultBounceBonus,
			RimContact:      DefaultRimContactReward,
			Clear:           DefaultClearReward,
			BoundaryPenalty: DefaultBoundaryPenalty,
			WrongCupPenalty: DefaultWrongCupPenalty,
		},
		Episode: EpisodeSpec{
			TrainingMode:     true,
			Mode:             ModeExternalPolicy,
			MaxSteps:         DefaultMaxSteps,
			DecisionInterval: DefaultDecisionInterval,
			AutoRestart:      true,
			ResetCupsOnBegin: true,
		},
		Trajectory: TrajectorySpec{Segments: DefaultLineSegments, ShowPercentage: DefaultShowPercentage, Visible: true},
		Physics: PhysicsSpec{
			Gravity:        Vec3{Y: DefaultGravityY},
			FixedDeltaTime: DefaultFixedDeltaTime,
			Restitution:    DefaultRestitution,
			MaxFlightTicks: DefaultMaxFlightTicks,
			MaxCupDistance: DefaultMaxCupDistance,
			Table: TableSpec{
				Height: tableY,
				MinX:   -DefaultTableHalfWidth,
				MaxX:   DefaultTableHalfWidth,
				MinZ:   -DefaultTableHalfLength,
				MaxZ:   DefaultTableHalfLength,
			},
			ArenaMin: Vec3{X: -3, Y: -0.5, Z: -3},
			ArenaMax: Vec3{X: 3, Y: 4, Z: 4},
		},
		// Rows sit sqrt(3)*r apart so neighbouring cups touch.
		Cups: []CupSpec{
			cup("cup-1", 0, 0.95),
			cup("cup-2", -cupR, 1.03),
			cup("cup-3", cupR, 1.03),
			cup("cup-4", -2*cupR, 1.11),
			cup("cup-5", 0, 1.11),
			cup("cup-6", 2*cupR, 1.11),
		},
		Policies: PolicySpec{WrongCup: WrongCupIgnore, TargetDraw: TargetDrawLegacy},
	}
}

// LoadScenario reads a YAML scenario file layered over DefaultScenario. An
// empty path returns the default.
func LoadScenario(path string) (*Scenario, error) {
	if path == "" {
		s := DefaultScenario()
		return s, s.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return DecodeScenario(f)
}

// DecodeScenario decodes YAML over DefaultScenario and validates the result.
// A cups list in the document replaces the default rack entirely.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	s := DefaultScenario()
	if err := yaml.NewDecoder(r).Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports configuration errors up front so the simulation never
// has to.
func (s *Scenario) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
	}
	if s.Projectile.Mass <= 0 {
		return invalid("projectile mass must be positive")
	}
	if s.Projectile.Radius <= 0 {
		return invalid("projectile radius must be positive")
	}
	if s.Aim.MaxPitch < 0 || s.Aim.MaxYaw < 0 || s.Aim.MaxForce < 0 || s.Aim.BaseForce < 0 {
		return invalid("aim limits must not be negative")
	}
	if s.Trajectory.Segments < 6 || s.Trajectory.Segments > 50 {
		return invalid("trajectory segments %d outside [6,50]", s.Trajectory.Segments)
	}
	if s.Trajectory.ShowPercentage < 0 || s.Trajectory.ShowPercentage > 100 {
		return invalid("trajectory show percentage %d outside [0,100]", s.Trajectory.ShowPercentage)
	}
	if s.Physics.FixedDeltaTime <= 0 {
		return invalid("fixed delta time must be positive")
	}
	if s.Physics.Restitution < 0 || s.Physics.Restitution > 1 {
		return invalid("restitution outside [0,1]")
	}
	if s.Physics.MaxCupDistance <= 0 {
		return invalid("max cup distance must be positive")
	}
	if s.Episode.MaxSteps < 0 || s.Episode.MaxAttempts < 0 || s.Episode.DecisionInterval < 0 {
		return invalid("episode limits must not be negative")
	}
	switch s.Episode.Mode {
	case ModeManualHeuristic, ModeExternalPolicy:
	default:
		return invalid("unknown decision mode %q", s.Episode.Mode)
	}
	switch s.Policies.WrongCup {
	case WrongCupIgnore, WrongCupPenalize:
	default:
		return invalid("unknown wrong cup policy %q", s.Policies.WrongCup)
	}
	switch s.Policies.TargetDraw {
	case TargetDrawLegacy, TargetDrawUniform:
	default:
		return invalid("unknown target draw %q", s.Policies.TargetDraw)
	}
	seen := make(map[string]struct{}, len(s.Cups))
	for i, c := range s.Cups {
		if c.ID == "" {
			return invalid("cup %d has no id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return invalid("duplicate cup id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Radius <= 0 || c.Height <= 0 {
			return invalid("cup %q needs a positive radius and height", c.ID)
		}
	}
	return nil
}
