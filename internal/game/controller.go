package game

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Phase is the throw state of the controller.
type Phase string

const (
	PhaseAiming      Phase = "AIMING"
	PhaseReleased    Phase = "RELEASED"
	PhaseEpisodeOver Phase = "EPISODE_OVER"
)

// Projectile is the ball. It is kinematic (not simulated) until released.
type Projectile struct {
	Position        Vec3    `json:"position"`
	Velocity        Vec3    `json:"velocity"`
	AngularVelocity Vec3    `json:"angular_velocity"`
	Mass            float64 `json:"mass"`
	Radius          float64 `json:"radius"`
	Pitch           float64 `json:"pitch"`
	Yaw             float64 `json:"yaw"`
	Kinematic       bool    `json:"kinematic"`
	Released        bool    `json:"released"`
}

// Facing is the direction the ball points at.
func (p Projectile) Facing() Vec3 { return AimDirection(p.Pitch, p.Yaw) }

// AimState is the pending throw in world units.
type AimState struct {
	Pitch float64 `json:"pitch"` // degrees
	Yaw   float64 `json:"yaw"`   // degrees
	Force float64 `json:"force"`
}

// Observation is what a policy sees: normalised distance to the aimed cup
// followed by the unit direction towards it.
type Observation [ObservationSize]float64

// Controller runs the aim, throw and reward state machine for one table.
// It is not safe for concurrent use.
type Controller struct {
	settings Settings
	rack     *CupRack

	ball    Projectile
	aim     AimState
	action  Action
	phase   Phase
	outcome Outcome
	aimed   *Cup

	bounces     int
	rimRewarded bool
	previewOn   bool

	episode  *Episode
	episodes int

	policy   DecisionSource
	preview  PreviewSink
	observer Observer
	rng      *rand.Rand
	log      *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithPreview injects the trajectory preview consumer.
func WithPreview(sink PreviewSink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.preview = sink
		}
	}
}

// WithObserver injects the episode/reward observer.
func WithObserver(obs Observer) Option {
	return func(c *Controller) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// WithPolicy sets the decision source used in external policy mode.
func WithPolicy(p DecisionSource) Option {
	return func(c *Controller) { c.policy = p }
}

// WithSeed makes target draws reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Controller) {
		c.rng = rand.New(rand.NewPCG(seed, ^seed))
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// NewController builds a controller over rack. The ball starts kinematic at
// its initial pose; call BeginEpisode before the first throw.
func NewController(s Settings, rack *CupRack, opts ...Option) *Controller {
	if rack == nil {
		rack, _ = NewCupRack(nil)
	}
	c := &Controller{
		settings:  s,
		rack:      rack,
		phase:     PhaseEpisodeOver,
		previewOn: s.PreviewVisible,
		preview:   NopPreview{},
		observer:  NopObserver{},
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("controller")
	c.aim = AimState{Force: s.BaseForce}
	c.resetBall()
	return c
}

func (c *Controller) Settings() Settings     { return c.settings }
func (c *Controller) Rack() *CupRack         { return c.rack }
func (c *Controller) Phase() Phase           { return c.phase }
func (c *Controller) LastOutcome() Outcome   { return c.outcome }
func (c *Controller) Aim() AimState          { return c.aim }
func (c *Controller) Ball() Projectile       { return c.ball }
func (c *Controller) Bounces() int           { return c.bounces }
func (c *Controller) Episode() *Episode      { return c.episode }
func (c *Controller) Policy() DecisionSource { return c.policy }

// SetPolicy replaces the decision source used in external policy mode.
func (c *Controller) SetPolicy(p DecisionSource) { c.policy = p }

// body is the ball as the physics step sees it. Only the simulation
// goroutine may hold it.
func (c *Controller) body() *Projectile { return &c.ball }

// AimedCup is the cup the controller is currently aiming at, or nil.
func (c *Controller) AimedCup() *Cup { return c.aimed }

// BeginEpisode starts a new episode, interrupting the current one if it is
// still running.
func (c *Controller) BeginEpisode() *Episode {
	if c.episode != nil && !c.episode.Ended {
		c.EndEpisode(OutcomeInterrupted)
	}
	c.episodes++
	c.episode = newEpisode(c.episodes)
	if c.settings.ResetCupsOnBegin {
		c.rack.ResetAll()
	}
	if c.settings.TrainingMode && !c.settings.PreserveAimOnReset {
		c.aim = AimState{Force: c.settings.BaseForce}
		c.action = Action{}
	}
	c.phase = PhaseAiming
	c.outcome = OutcomeNone
	c.Reset()
	c.SelectTarget()
	c.log.Debug("episode began", zap.Int("episode", c.episode.Number), zap.Int("cups", c.rack.Remaining()))
	c.observer.EpisodeBegan(c.episode)
	return c.episode
}

// EndEpisode closes the current episode with outcome. Further throws are
// ignored until BeginEpisode.
func (c *Controller) EndEpisode(outcome Outcome) {
	if c.episode == nil || c.episode.Ended {
		return
	}
	now := time.Now()
	c.episode.Ended = true
	c.episode.Outcome = outcome
	c.episode.EndedAt = &now
	c.phase = PhaseEpisodeOver
	c.resetBall()
	c.log.Debug("episode ended",
		zap.Int("episode", c.episode.Number),
		zap.String("outcome", string(outcome)),
		zap.Float64("reward", c.episode.CumulativeReward))
	c.observer.EpisodeEnded(c.episode)
}

// SelectTarget keeps the aimed cup while it is still in play, otherwise
// draws a new one. It returns nil when no cups remain.
func (c *Controller) SelectTarget() *Cup {
	if c.aimed != nil && c.rack.IsActive(c.aimed.ID) {
		return c.aimed
	}
	active := c.rack.Active()
	n := len(active)
	if n == 0 {
		c.aimed = nil
		return nil
	}
	c.aimed = active[c.drawIndex(n)]
	c.log.Debug("aiming at cup", zap.String("cup", c.aimed.ID))
	return c.aimed
}

// drawIndex picks among n candidates. The legacy draw uses n-1 as an
// exclusive bound, so the last candidate is never chosen while others remain.
func (c *Controller) drawIndex(n int) int {
	if c.settings.TargetDraw == TargetDrawUniform {
		return c.rng.IntN(n)
	}
	if n <= 1 {
		return 0
	}
	return c.rng.IntN(n - 1)
}

// SetAim updates the aim from a normalised action without throwing.
func (c *Controller) SetAim(a Action) bool {
	if c.phase != PhaseAiming || c.ball.Released {
		c.log.Debug("aim ignored", zap.String("phase", string(c.phase)))
		return false
	}
	a = Action{
		Pitch: clamp(a.Pitch, -1, 1),
		Yaw:   clamp(a.Yaw, -1, 1),
		Force: clamp(a.Force, 0, 1),
	}
	c.action = a
	c.aim = AimState{
		Pitch: a.Pitch * c.settings.MaxPitch,
		Yaw:   a.Yaw * c.settings.MaxYaw,
		Force: a.Force*c.settings.MaxForce + c.settings.BaseForce,
	}
	c.orient()
	return true
}

// ApplyAction sets the aim from a and throws immediately.
func (c *Controller) ApplyAction(a Action) bool {
	if !c.SetAim(a) {
		return false
	}
	c.log.Debug("action applied",
		zap.Float64("pitch", c.aim.Pitch),
		zap.Float64("yaw", c.aim.Yaw),
		zap.Float64("force", c.aim.Force))
	return c.Release()
}

// RequestDecision asks the configured decision source for an action and
// applies it. In manual mode the heuristic (current aim) is used.
func (c *Controller) RequestDecision() bool {
	if c.phase != PhaseAiming {
		return false
	}
	var src DecisionSource = HeuristicPolicy{ctrl: c}
	if c.settings.Mode == ModeExternalPolicy && c.policy != nil {
		src = c.policy
	}
	a, ok := src.Decide(c.Observe())
	if !ok {
		return false
	}
	return c.ApplyAction(a)
}

// Release applies the single throw impulse. It is a no-op once released.
func (c *Controller) Release() bool {
	if c.phase != PhaseAiming || c.ball.Released {
		c.log.Debug("release ignored", zap.String("phase", string(c.phase)))
		return false
	}
	impulse := r3.Scale(c.aim.Force, c.ball.Facing())
	c.ball.Kinematic = false
	c.ball.Released = true
	c.ball.Velocity = r3.Add(c.ball.Velocity, r3.Scale(1/c.ball.Mass, impulse))
	c.bounces = 0
	c.rimRewarded = false
	c.phase = PhaseReleased
	if c.episode != nil {
		c.episode.Attempts++
	}
	c.setPreviewVisible(false)
	return true
}

// Reset returns the ball to its initial pose, kinematic, with the preview
// shown again. The aim is zeroed unless configured to persist. Reset works
// from any phase; after the episode has ended it only resets the ball.
func (c *Controller) Reset() {
	if !c.settings.PreserveAimOnReset {
		c.aim = AimState{Force: c.settings.BaseForce}
		c.action = Action{}
	}
	c.resetBall()
	if c.phase != PhaseEpisodeOver {
		c.phase = PhaseAiming
	}
}

// ManualReset is the operator override. It behaves like an automatic reset
// and optionally puts every cup back.
func (c *Controller) ManualReset(resetCups bool) {
	c.log.Info("manual reset", zap.Bool("reset_cups", resetCups), zap.String("phase", string(c.phase)))
	c.Reset()
	if resetCups {
		c.rack.ResetAll()
		c.SelectTarget()
	}
}

func (c *Controller) resetBall() {
	c.ball = Projectile{
		Position:  c.settings.InitialPosition,
		Mass:      c.settings.Mass,
		Radius:    c.settings.Radius,
		Pitch:     c.settings.InitialPitch,
		Yaw:       c.settings.InitialYaw,
		Kinematic: true,
	}
	c.bounces = 0
	c.rimRewarded = false
	c.orient()
	c.setPreviewVisible(c.settings.PreviewVisible)
}

func (c *Controller) orient() {
	if c.ball.Released {
		return
	}
	c.ball.Pitch = c.aim.Pitch
	c.ball.Yaw = c.aim.Yaw
}

func (c *Controller) setPreviewVisible(v bool) {
	c.previewOn = v
	c.preview.SetVisible(v)
}

// HandleCollision dispatches a tagged physics event.
func (c *Controller) HandleCollision(ev Collision) {
	switch ev.Tag {
	case TagBoundary:
		c.OnBoundaryCollision()
	case TagOutOfBounds:
		c.OnOutOfBounds()
	case TagTargetBody, TagTargetTrigger:
		cup, ok := c.rack.FindOwningTarget(ev.Collider)
		if !ok {
			c.log.Debug("collision with unknown collider", zap.String("collider", ev.Collider))
			return
		}
		if ev.Tag == TagTargetBody {
			c.OnTargetBody(cup)
		} else {
			c.OnTargetTrigger(cup)
		}
	default:
		c.log.Debug("unknown collision tag", zap.String("tag", string(ev.Tag)))
	}
}

// OnBoundaryCollision counts a bounce. The throw survives one bounce; the
// next one fails the attempt.
func (c *Controller) OnBoundaryCollision() {
	if c.phase != PhaseReleased {
		return
	}
	c.bounces++
	if c.bounces > AllowedBounces {
		c.failAttempt(OutcomeOutOfBounds, RewardBoundaryPenalty, "")
	}
}

// OnOutOfBounds fails the attempt when the ball leaves the arena or its
// flight times out.
func (c *Controller) OnOutOfBounds() {
	if c.phase != PhaseReleased {
		return
	}
	c.failAttempt(OutcomeOutOfBounds, RewardOutOfBounds, "")
}

// OnTargetBody rewards the first rim or wall contact of a throw.
func (c *Controller) OnTargetBody(cup *Cup) {
	if c.phase != PhaseReleased || cup == nil || c.rimRewarded {
		return
	}
	c.rimRewarded = true
	c.addReward(RewardRimContact, c.settings.RimContactReward, cup.ID)
}

// OnTargetTrigger resolves the ball landing in a cup.
func (c *Controller) OnTargetTrigger(cup *Cup) {
	if c.phase != PhaseReleased || cup == nil {
		return
	}
	if !c.rack.IsActive(cup.ID) {
		c.log.Debug("trigger on inactive cup", zap.String("cup", cup.ID))
		return
	}
	if cup != c.aimed {
		if c.settings.WrongCup == WrongCupPenalize {
			c.outcome = OutcomeHitWrong
			if c.episode != nil {
				c.episode.FailedAttempts++
			}
			c.addReward(RewardWrongCup, -c.settings.WrongCupPenalty, cup.ID)
			c.Reset()
			return
		}
		c.log.Debug("ball landed in wrong cup", zap.String("cup", cup.ID))
		return
	}

	c.addReward(RewardHit, c.settings.HitReward, cup.ID)
	if c.bounces == AllowedBounces {
		c.addReward(RewardBounceBonus, c.settings.BounceBonus, cup.ID)
	}
	c.rack.MarkHit(cup)
	c.outcome = OutcomeHitTarget
	if c.episode != nil {
		c.episode.CupsHit++
	}

	if c.rack.Remaining() == 0 {
		c.aimed = nil
		c.addReward(RewardClear, c.settings.ClearReward, "")
		c.EndEpisode(OutcomeCleared)
		return
	}
	c.SelectTarget()
	c.Reset()
}

func (c *Controller) failAttempt(outcome Outcome, reason RewardReason, cupID string) {
	c.outcome = outcome
	if c.episode != nil {
		c.episode.FailedAttempts++
		penalty := c.settings.BoundaryPenalty * float64(c.episode.FailedAttempts)
		if c.settings.MaxPenalty > 0 && penalty > c.settings.MaxPenalty {
			penalty = c.settings.MaxPenalty
		}
		c.addReward(reason, -penalty, cupID)
	}
	c.Reset()
}

func (c *Controller) addReward(reason RewardReason, value float64, cupID string) {
	if c.episode == nil || c.episode.Ended {
		return
	}
	r := Reward{Reason: reason, Value: value, Step: c.episode.Steps, CupID: cupID}
	c.episode.add(r)
	c.observer.RewardIssued(c.episode, r)
}

// FixedUpdate re-aims when the aimed cup was taken out of play by something
// other than this controller's own hit handling.
func (c *Controller) FixedUpdate() {
	if c.aimed != nil && !c.rack.IsActive(c.aimed.ID) {
		c.aimed = nil
		c.SelectTarget()
	}
}

// Observe returns the policy observation; zeros when there is no target.
func (c *Controller) Observe() Observation {
	var obs Observation
	if c.aimed == nil {
		return obs
	}
	d := r3.Sub(c.aimed.Position, c.ball.Position)
	dist := r3.Norm(d)
	obs[0] = dist / c.settings.MaxCupDistance
	if dist > 0 {
		u := r3.Unit(d)
		obs[1], obs[2], obs[3] = u.X, u.Y, u.Z
	}
	return obs
}

// Heuristic returns the normalised action behind the current aim, so that
// feeding it back through ApplyAction reproduces the same throw.
func (c *Controller) Heuristic() Action { return c.action }

// TrajectoryParams describes the preview for the current aim.
func (c *Controller) TrajectoryParams() TrajectoryParams {
	return TrajectoryParams{
		Direction:      AimDirection(c.aim.Pitch, c.aim.Yaw),
		Force:          c.aim.Force,
		Mass:           c.settings.Mass,
		Origin:         c.settings.InitialPosition,
		Gravity:        c.settings.Gravity,
		Segments:       c.settings.Segments,
		ShowPercentage: c.settings.ShowPercentage,
		TickDuration:   c.settings.FixedDeltaTime,
		Visible:        c.previewOn,
	}
}

// UpdatePreview pushes the predicted path to the preview sink while the
// ball is still in hand.
func (c *Controller) UpdatePreview() []Vec3 {
	if c.ball.Released || c.phase != PhaseAiming {
		return nil
	}
	c.orient()
	points := CollectTrajectory(c.TrajectoryParams())
	c.preview.Draw(points)
	return points
}
