package game

import (
	"errors"

	"github.com/playmatatu/beerpong/internal/config"
)

// ErrUnknownMode is returned for a decision mode other than manual or external.
var ErrUnknownMode = errors.New("unknown decision mode")

// Mode selects where throw decisions come from.
type Mode string

const (
	ModeManualHeuristic Mode = config.ModeManualHeuristic
	ModeExternalPolicy  Mode = config.ModeExternalPolicy
)

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeManualHeuristic, ModeExternalPolicy:
		return Mode(s), nil
	}
	return "", ErrUnknownMode
}

// WrongCupPolicy decides what a trigger hit on a cup other than the aimed
// one does.
type WrongCupPolicy string

const (
	WrongCupIgnore   WrongCupPolicy = config.WrongCupIgnore
	WrongCupPenalize WrongCupPolicy = config.WrongCupPenalize
)

// TargetDraw selects how the next cup is drawn.
type TargetDraw string

const (
	TargetDrawLegacy  TargetDraw = config.TargetDrawLegacy
	TargetDrawUniform TargetDraw = config.TargetDrawUniform
)

// Settings is the runtime tuning for a controller and its environment.
type Settings struct {
	Mode         Mode
	TrainingMode bool

	Mass            float64
	Radius          float64
	InitialPosition Vec3
	InitialPitch    float64
	InitialYaw      float64

	MaxPitch  float64
	MaxYaw    float64
	MaxForce  float64
	BaseForce float64

	HitReward        float64
	BounceBonus      float64
	RimContactReward float64
	ClearReward      float64
	BoundaryPenalty  float64
	WrongCupPenalty  float64
	MaxPenalty       float64

	MaxSteps           int
	MaxAttempts        int
	DecisionInterval   float64
	AutoRestart        bool
	ResetCupsOnBegin   bool
	PreserveAimOnReset bool

	Segments       int
	ShowPercentage int
	PreviewVisible bool

	Gravity        Vec3
	FixedDeltaTime float64
	Restitution    float64
	MaxFlightTicks int
	MaxCupDistance float64
	Table          config.TableSpec
	ArenaMin       Vec3
	ArenaMax       Vec3

	WrongCup   WrongCupPolicy
	TargetDraw TargetDraw
}

func vec(v config.Vec3) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// SettingsFromScenario converts a validated scenario.
func SettingsFromScenario(s *config.Scenario) (Settings, error) {
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	mode, err := ParseMode(s.Episode.Mode)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Mode:         mode,
		TrainingMode: s.Episode.TrainingMode,

		Mass:            s.Projectile.Mass,
		Radius:          s.Projectile.Radius,
		InitialPosition: vec(s.Projectile.Position),
		InitialPitch:    s.Projectile.Pitch,
		InitialYaw:      s.Projectile.Yaw,

		MaxPitch:  s.Aim.MaxPitch,
		MaxYaw:    s.Aim.MaxYaw,
		MaxForce:  s.Aim.MaxForce,
		BaseForce: s.Aim.BaseForce,

		HitReward:        s.Rewards.Hit,
		BounceBonus:      s.Rewards.BounceBonus,
		RimContactReward: s.Rewards.RimContact,
		ClearReward:      s.Rewards.Clear,
		BoundaryPenalty:  s.Rewards.BoundaryPenalty,
		WrongCupPenalty:  s.Rewards.WrongCupPenalty,
		MaxPenalty:       s.Rewards.MaxPenalty,

		MaxSteps:           trainingOnly(s.Episode.TrainingMode, s.Episode.MaxSteps),
		MaxAttempts:        s.Episode.MaxAttempts,
		DecisionInterval:   s.Episode.DecisionInterval,
		AutoRestart:        s.Episode.AutoRestart,
		ResetCupsOnBegin:   s.Episode.ResetCupsOnBegin && s.Episode.TrainingMode,
		PreserveAimOnReset: s.Episode.PreserveAimOnReset,

		Segments:       s.Trajectory.Segments,
		ShowPercentage: s.Trajectory.ShowPercentage,
		PreviewVisible: s.Trajectory.Visible,

		Gravity:        vec(s.Physics.Gravity),
		FixedDeltaTime: s.Physics.FixedDeltaTime,
		Restitution:    s.Physics.Restitution,
		MaxFlightTicks: s.Physics.MaxFlightTicks,
		MaxCupDistance: s.Physics.MaxCupDistance,
		Table:          s.Physics.Table,
		ArenaMin:       vec(s.Physics.ArenaMin),
		ArenaMax:       vec(s.Physics.ArenaMax),

		WrongCup:   WrongCupPolicy(s.Policies.WrongCup),
		TargetDraw: TargetDraw(s.Policies.TargetDraw),
	}, nil
}

// CupsFromScenario builds the rack described by a scenario.
func CupsFromScenario(s *config.Scenario) (*CupRack, error) {
	cups := make([]Cup, 0, len(s.Cups))
	for _, c := range s.Cups {
		cups = append(cups, Cup{ID: c.ID, Position: vec(c.Position), Radius: c.Radius, Height: c.Height})
	}
	return NewCupRack(cups)
}

// trainingOnly keeps a step limit in training mode and drops it in gameplay.
func trainingOnly(training bool, steps int) int {
	if !training {
		return 0
	}
	return steps
}
