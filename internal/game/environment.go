package game

import (
	"context"

	"go.uber.org/zap"
)

// Cooldown gates how often a decision may be requested. It is advanced
// explicitly once per physics tick.
type Cooldown struct {
	Interval float64
	elapsed  float64
}

// Tick advances the timer by dt and reports whether the interval has elapsed,
// restarting it if so.
func (cd *Cooldown) Tick(dt float64) bool {
	if cd.elapsed >= cd.Interval {
		cd.elapsed = 0
		return true
	}
	cd.elapsed += dt
	return false
}

// Reset restarts the timer.
func (cd *Cooldown) Reset() { cd.elapsed = 0 }

// Elapsed is the time accumulated since the last decision.
func (cd *Cooldown) Elapsed() float64 { return cd.elapsed }

// Environment drives one controller with the fixed-tick loop: decision
// cooldown, the flight simulation and the episode budgets.
type Environment struct {
	ctrl     *Controller
	sim      *FlightSim
	cooldown Cooldown
	ticks    int
	log      *zap.Logger
}

// NewEnvironment wraps ctrl with a flight simulator built from its settings.
func NewEnvironment(ctrl *Controller, log *zap.Logger) *Environment {
	if log == nil {
		log = zap.NewNop()
	}
	s := ctrl.Settings()
	return &Environment{
		ctrl:     ctrl,
		sim:      NewFlightSim(s),
		cooldown: Cooldown{Interval: s.DecisionInterval},
		log:      log.Named("env"),
	}
}

func (e *Environment) Controller() *Controller { return e.ctrl }

// Ticks is the number of physics ticks run so far, across episodes.
func (e *Environment) Ticks() int { return e.ticks }

// Cooldown exposes the decision timer.
func (e *Environment) Cooldown() *Cooldown { return &e.cooldown }

// Begin starts an episode and restarts the decision timer.
func (e *Environment) Begin() *Episode {
	e.cooldown.Reset()
	ep := e.ctrl.BeginEpisode()
	e.ctrl.UpdatePreview()
	return ep
}

func (e *Environment) inHand() bool {
	return e.ctrl.Phase() == PhaseAiming && !e.ctrl.Ball().Released
}

// Tick runs one fixed physics step and returns the collisions it produced.
func (e *Environment) Tick() []Collision {
	ep := e.ctrl.Episode()
	if ep == nil || ep.Ended {
		if ep != nil && e.ctrl.Settings().AutoRestart {
			e.Begin()
		}
		return nil
	}
	s := e.ctrl.Settings()
	e.ticks++
	ep.Steps++
	wasInHand := e.inHand()

	if s.TrainingMode && e.ctrl.Phase() == PhaseAiming {
		if e.cooldown.Tick(s.FixedDeltaTime) {
			e.ctrl.RequestDecision()
		}
	}

	var events []Collision
	if e.ctrl.Phase() == PhaseReleased {
		events = e.sim.Step(e.ctrl.body(), e.ctrl.Rack(), s.FixedDeltaTime)
		for _, ev := range events {
			e.ctrl.HandleCollision(ev)
		}
	} else {
		e.sim.Step(e.ctrl.body(), nil, s.FixedDeltaTime)
	}
	e.ctrl.FixedUpdate()
	e.checkBudget(ep)
	if !wasInHand && e.inHand() {
		// The ball is back in hand; redraw the preview once.
		e.ctrl.UpdatePreview()
	}
	return events
}

// checkBudget ends the episode once the step or attempt budget is spent. An
// attempt still in flight is allowed to resolve first. The step budget is
// zero outside training, so gameplay never times out.
func (e *Environment) checkBudget(ep *Episode) {
	if ep.Ended {
		return
	}
	s := e.ctrl.Settings()
	if s.MaxSteps > 0 && ep.Steps >= s.MaxSteps {
		e.log.Debug("step budget exhausted", zap.Int("episode", ep.Number), zap.Int("steps", ep.Steps))
		e.ctrl.EndEpisode(OutcomeBudgetExhausted)
		return
	}
	if s.MaxAttempts > 0 && ep.Attempts >= s.MaxAttempts && e.ctrl.Phase() == PhaseAiming {
		e.log.Debug("attempt budget exhausted", zap.Int("episode", ep.Number), zap.Int("attempts", ep.Attempts))
		e.ctrl.EndEpisode(OutcomeBudgetExhausted)
	}
}

// RequestDecision asks for an action immediately, bypassing the cooldown.
// This is the manual "throw" button.
func (e *Environment) RequestDecision() bool {
	e.cooldown.Reset()
	return e.ctrl.RequestDecision()
}

// SubmitAction hands an action from outside. In external mode outside of
// training it is applied at once; in training mode it waits for the next
// decision tick. In manual mode it sets the aim and throws.
func (e *Environment) SubmitAction(a Action) bool {
	s := e.ctrl.Settings()
	if s.Mode == ModeManualHeuristic {
		if !e.ctrl.SetAim(a) {
			return false
		}
		return e.RequestDecision()
	}
	// An action arriving while the ball is out of hand is dropped, never
	// queued for the next throw.
	if !e.inHand() {
		e.log.Debug("action ignored", zap.String("phase", string(e.ctrl.Phase())))
		return false
	}
	ext, ok := e.ctrl.Policy().(*ExternalPolicy)
	if !ok {
		return e.ctrl.ApplyAction(a)
	}
	ext.Submit(a)
	if s.TrainingMode {
		return true
	}
	return e.RequestDecision()
}

// RunEpisode ticks until the current episode ends, ctx is cancelled or
// maxTicks is reached (0 = no limit). It begins an episode if none is
// running.
func (e *Environment) RunEpisode(ctx context.Context, maxTicks int) (*Episode, error) {
	ep := e.ctrl.Episode()
	if ep == nil || ep.Ended {
		ep = e.Begin()
	}
	for n := 0; !ep.Ended; n++ {
		if maxTicks > 0 && n >= maxTicks {
			e.ctrl.EndEpisode(OutcomeBudgetExhausted)
			break
		}
		if n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return ep, err
			}
		}
		e.Tick()
	}
	return ep, nil
}
