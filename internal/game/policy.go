package game

import "math/rand/v2"

// Action is a continuous decision: pitch and yaw in [-1,1], force in [0,1].
// Out-of-range values are clamped by the controller.
type Action struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Force float64 `json:"force"`
}

// ActionFromSlice reads an action buffer; missing entries are zero.
func ActionFromSlice(v []float64) Action {
	var a Action
	if len(v) > 0 {
		a.Pitch = v[0]
	}
	if len(v) > 1 {
		a.Yaw = v[1]
	}
	if len(v) > 2 {
		a.Force = v[2]
	}
	return a
}

// Slice returns the action as a three-element buffer.
func (a Action) Slice() []float64 { return []float64{a.Pitch, a.Yaw, a.Force} }

// DecisionSource produces an action for an observation. ok is false when no
// decision is available yet.
type DecisionSource interface {
	Decide(obs Observation) (a Action, ok bool)
}

// HeuristicPolicy answers with the controller's current aim, which the
// operator has set through SetAim.
type HeuristicPolicy struct {
	ctrl *Controller
}

func (h HeuristicPolicy) Decide(Observation) (Action, bool) {
	if h.ctrl == nil {
		return Action{}, false
	}
	return h.ctrl.Heuristic(), true
}

// ExternalPolicy holds the next action supplied from outside the process,
// such as a policy network posting over HTTP. Each submitted action is
// consumed once.
type ExternalPolicy struct {
	pending *Action
}

func NewExternalPolicy() *ExternalPolicy { return &ExternalPolicy{} }

// Submit queues a, replacing any action not yet consumed.
func (p *ExternalPolicy) Submit(a Action) { p.pending = &a }

// Pending reports whether an action is queued.
func (p *ExternalPolicy) Pending() bool { return p.pending != nil }

func (p *ExternalPolicy) Decide(Observation) (Action, bool) {
	if p.pending == nil {
		return Action{}, false
	}
	a := *p.pending
	p.pending = nil
	return a, true
}

// RandomPolicy draws uniform actions. It stands in for a trained network
// during headless runs.
type RandomPolicy struct {
	rng *rand.Rand
}

func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPolicy) Decide(Observation) (Action, bool) {
	return Action{
		Pitch: p.rng.Float64()*2 - 1,
		Yaw:   p.rng.Float64()*2 - 1,
		Force: p.rng.Float64(),
	}, true
}
