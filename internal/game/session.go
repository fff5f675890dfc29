package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one live table: an environment plus the lock that serialises
// HTTP, WebSocket and realtime access to it.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Seed      uint64
	Realtime  bool

	mu         sync.Mutex
	env        *Environment
	lastActive time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

func newSession(id uuid.UUID, seed uint64, env *Environment, realtime bool) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		Seed:       seed,
		Realtime:   realtime,
		env:        env,
		lastActive: now,
		done:       make(chan struct{}),
	}
}

// Do runs fn with exclusive access to the environment.
func (s *Session) Do(fn func(env *Environment)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	fn(s.env)
}

// LastActive is when the session was last driven.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Done is closed once the session has been removed.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Snapshot is the serialisable state of a session.
type Snapshot struct {
	SessionID    string      `json:"session_id"`
	Mode         Mode        `json:"mode"`
	TrainingMode bool        `json:"training_mode"`
	Realtime     bool        `json:"realtime"`
	Phase        Phase       `json:"phase"`
	LastOutcome  Outcome     `json:"last_outcome,omitempty"`
	Aim          AimState    `json:"aim"`
	Action       Action      `json:"action"`
	Ball         Projectile  `json:"ball"`
	Bounces      int         `json:"bounces"`
	AimedCup     string      `json:"aimed_cup,omitempty"`
	Cups         []Cup       `json:"cups"`
	Remaining    int         `json:"remaining"`
	Observation  Observation `json:"observation"`
	Episode      *Episode    `json:"episode,omitempty"`
	Ticks        int         `json:"ticks"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActive   time.Time   `json:"last_active"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	ctrl := s.env.Controller()
	snap := Snapshot{
		SessionID:    s.ID.String(),
		Mode:         ctrl.Settings().Mode,
		TrainingMode: ctrl.Settings().TrainingMode,
		Realtime:     s.Realtime,
		Phase:        ctrl.Phase(),
		LastOutcome:  ctrl.LastOutcome(),
		Aim:          ctrl.Aim(),
		Action:       ctrl.Heuristic(),
		Ball:         ctrl.Ball(),
		Bounces:      ctrl.Bounces(),
		Remaining:    ctrl.Rack().Remaining(),
		Observation:  ctrl.Observe(),
		Episode:      cloneEpisode(ctrl.Episode()),
		Ticks:        s.env.Ticks(),
		CreatedAt:    s.CreatedAt,
		LastActive:   s.lastActive,
	}
	if cup := ctrl.AimedCup(); cup != nil {
		snap.AimedCup = cup.ID
	}
	for _, c := range ctrl.Rack().List() {
		snap.Cups = append(snap.Cups, *c)
	}
	return snap
}
