package game

import (
	"time"

	"github.com/google/uuid"
)

// RewardReason labels why a reward was issued.
type RewardReason string

const (
	RewardHit             RewardReason = "hit"
	RewardBounceBonus     RewardReason = "bounce_bonus"
	RewardRimContact      RewardReason = "rim_contact"
	RewardClear           RewardReason = "clear"
	RewardBoundaryPenalty RewardReason = "boundary_penalty"
	RewardOutOfBounds     RewardReason = "out_of_bounds_penalty"
	RewardWrongCup        RewardReason = "wrong_cup_penalty"
)

// Reward is a single scalar reward issued during an episode.
type Reward struct {
	Reason RewardReason `json:"reason"`
	Value  float64      `json:"value"`
	Step   int          `json:"step"`
	CupID  string       `json:"cup_id,omitempty"`
}

// Outcome is how a throw or an episode resolved.
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomeHitTarget       Outcome = "HIT_TARGET"
	OutcomeHitWrong        Outcome = "HIT_WRONG"
	OutcomeOutOfBounds     Outcome = "OUT_OF_BOUNDS"
	OutcomeCleared         Outcome = "CLEARED"
	OutcomeBudgetExhausted Outcome = "BUDGET_EXHAUSTED"
	OutcomeInterrupted     Outcome = "INTERRUPTED"
)

// Episode is one bounded trial from reset to success or failure.
type Episode struct {
	ID               uuid.UUID  `json:"id"`
	Number           int        `json:"number"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	Steps            int        `json:"steps"`
	Attempts         int        `json:"attempts"`
	FailedAttempts   int        `json:"failed_attempts"`
	CupsHit          int        `json:"cups_hit"`
	CumulativeReward float64    `json:"cumulative_reward"`
	Rewards          []Reward   `json:"rewards"`
	Outcome          Outcome    `json:"outcome,omitempty"`
	Ended            bool       `json:"ended"`
}

func newEpisode(number int) *Episode {
	return &Episode{
		ID:        uuid.New(),
		Number:    number,
		StartedAt: time.Now(),
		Rewards:   make([]Reward, 0, 8),
	}
}

func (e *Episode) add(r Reward) {
	e.Rewards = append(e.Rewards, r)
	e.CumulativeReward += r.Value
}

// Values returns the reward values in issue order.
func (e *Episode) Values() []float64 {
	out := make([]float64, len(e.Rewards))
	for i, r := range e.Rewards {
		out[i] = r.Value
	}
	return out
}

// Observer is notified of episode boundaries and rewards. Calls happen on
// the simulation goroutine and must not block.
type Observer interface {
	EpisodeBegan(ep *Episode)
	RewardIssued(ep *Episode, r Reward)
	EpisodeEnded(ep *Episode)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) EpisodeBegan(*Episode)         {}
func (NopObserver) RewardIssued(*Episode, Reward) {}
func (NopObserver) EpisodeEnded(*Episode)         {}

// Observers fans notifications out in order.
type Observers []Observer

func (o Observers) EpisodeBegan(ep *Episode) {
	for _, obs := range o {
		obs.EpisodeBegan(ep)
	}
}

func (o Observers) RewardIssued(ep *Episode, r Reward) {
	for _, obs := range o {
		obs.RewardIssued(ep, r)
	}
}

func (o Observers) EpisodeEnded(ep *Episode) {
	for _, obs := range o {
		obs.EpisodeEnded(ep)
	}
}
