package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session limit is reached.
	ErrTooManySessions = errors.New("too many sessions")
)

// Redis keys and channels.
const (
	EventsChannel      = "episode_events"
	IdleSetKey         = "session_idle"
	TrainingQueueKey   = "training_jobs"
	sessionKeyPrefix   = "session:"
	trainingKeyPrefix  = "training_job:"
	eventQueueCapacity = 1024
)

// Event types published on EventsChannel and pushed to WebSocket clients.
const (
	EventEpisodeBegan      = "episode_began"
	EventReward            = "reward"
	EventEpisodeEnded      = "episode_ended"
	EventSessionExpired    = "session_expired"
	EventTrainingCompleted = "training_completed"
)

// Event is a session notification as it travels through redis.
type Event struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Origin    string           `json:"origin"`
	Episode   *Episode         `json:"episode,omitempty"`
	Reward    *Reward          `json:"reward,omitempty"`
	Summary   *TrainingSummary `json:"summary,omitempty"`
	Message   string           `json:"message,omitempty"`
	At        time.Time        `json:"at"`
}

// SinkFactory supplies the preview sink and observer for a new session.
type SinkFactory func(sessionID string) (PreviewSink, Observer)

// SessionOptions override scenario defaults for one session.
type SessionOptions struct {
	Mode         string  `json:"mode"`
	TrainingMode *bool   `json:"training_mode"`
	Seed         *uint64 `json:"seed"`
	WrongCup     string  `json:"wrong_cup"`
	TargetDraw   string  `json:"target_draw"`
	Realtime     bool    `json:"realtime"`

	Policy DecisionSource `json:"-"`
}

// Manager owns all live sessions of this instance.
type Manager struct {
	sessions   map[uuid.UUID]*Session
	scenario   *config.Scenario
	db         *sqlx.DB
	rdb        *redis.Client
	cfg        *config.Config
	sinks      SinkFactory
	events     chan Event
	instanceID string
	log        *zap.Logger
	mu         sync.RWMutex
}

// NewManager creates a session manager. db, rdb and cfg may be nil.
func NewManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, scenario *config.Scenario, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	if scenario == nil {
		scenario = config.DefaultScenario()
	}
	return &Manager{
		sessions:   make(map[uuid.UUID]*Session),
		scenario:   scenario,
		db:         db,
		rdb:        rdb,
		cfg:        cfg,
		events:     make(chan Event, eventQueueCapacity),
		instanceID: uuid.NewString(),
		log:        log.Named("manager"),
	}
}

// SetSinkFactory installs the per-session preview/observer factory.
func (m *Manager) SetSinkFactory(f SinkFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = f
}

// InstanceID identifies this process on the events channel.
func (m *Manager) InstanceID() string { return m.instanceID }

// Scenario is the scenario new sessions are built from.
func (m *Manager) Scenario() *config.Scenario { return m.scenario }

// Count is the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SessionSeed derives the target-draw seed from the session ID so replays of
// a session draw the same cups.
func SessionSeed(id uuid.UUID) uint64 {
	return xxhash.Sum64String(id.String())
}

func (m *Manager) settingsFor(opts SessionOptions) (Settings, *CupRack, error) {
	sc := *m.scenario
	if opts.Mode != "" {
		sc.Episode.Mode = opts.Mode
	}
	if opts.TrainingMode != nil {
		sc.Episode.TrainingMode = *opts.TrainingMode
	}
	if opts.WrongCup != "" {
		sc.Policies.WrongCup = opts.WrongCup
	}
	if opts.TargetDraw != "" {
		sc.Policies.TargetDraw = opts.TargetDraw
	}
	settings, err := SettingsFromScenario(&sc)
	if err != nil {
		return Settings{}, nil, err
	}
	rack, err := CupsFromScenario(&sc)
	if err != nil {
		return Settings{}, nil, err
	}
	return settings, rack, nil
}

// CreateSession builds a session from the scenario and begins its first
// episode.
func (m *Manager) CreateSession(opts SessionOptions) (*Session, error) {
	settings, rack, err := m.settingsFor(opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	sinks := m.sinks
	m.mu.Unlock()

	id := uuid.New()
	seed := SessionSeed(id)
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	var preview PreviewSink = NopPreview{}
	observers := Observers{&recorder{m: m, sessionID: id.String()}}
	if sinks != nil {
		p, obs := sinks(id.String())
		if p != nil {
			preview = p
		}
		if obs != nil {
			observers = append(observers, obs)
		}
	}

	policy := opts.Policy
	if policy == nil && settings.Mode == ModeExternalPolicy {
		policy = NewExternalPolicy()
	}

	log := m.log.With(zap.String("session", id.String()))
	ctrl := NewController(settings, rack,
		WithPreview(preview),
		WithObserver(observers),
		WithPolicy(policy),
		WithSeed(seed),
		WithLogger(log),
	)
	env := NewEnvironment(ctrl, log)
	s := newSession(id, seed, env, opts.Realtime)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.Do(func(env *Environment) { env.Begin() })
	m.Touch(s)
	if err := m.Save(s); err != nil {
		m.log.Warn("failed to save session snapshot", zap.String("session", id.String()), zap.Error(err))
	}
	if opts.Realtime {
		go m.runRealtime(s)
	}

	m.log.Info("session created",
		zap.String("session", id.String()),
		zap.String("mode", string(settings.Mode)),
		zap.Bool("training", settings.TrainingMode),
		zap.Bool("realtime", opts.Realtime))
	return s, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[uid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns the live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Remove interrupts the running episode and forgets the session.
func (m *Manager) Remove(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	s.Do(func(env *Environment) { env.Controller().EndEpisode(OutcomeInterrupted) })
	s.close()

	if m.rdb != nil {
		ctx := context.Background()
		m.rdb.Del(ctx, sessionKeyPrefix+id)
		m.rdb.ZRem(ctx, IdleSetKey, id)
	}
	m.log.Info("session removed", zap.String("session", id))
	return nil
}

// Close removes every session and flushes the events their interrupted
// episodes produced, so they are persisted even after Run has stopped.
func (m *Manager) Close() {
	for _, s := range m.List() {
		m.Remove(s.ID.String())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n := m.drain(ctx); n > 0 {
		m.log.Info("flushed events on close", zap.Int("events", n))
	}
}

func (m *Manager) idleTimeout() time.Duration {
	if m.cfg.SessionIdleSeconds > 0 {
		return time.Duration(m.cfg.SessionIdleSeconds) * time.Second
	}
	return 10 * time.Minute
}

func (m *Manager) snapshotTTL() time.Duration {
	if m.cfg.SessionTimeoutMin > 0 {
		return time.Duration(m.cfg.SessionTimeoutMin) * time.Minute
	}
	return 30 * time.Minute
}

// Touch reschedules the idle expiry of s.
func (m *Manager) Touch(s *Session) {
	if m.rdb == nil {
		return
	}
	at := s.LastActive().Add(m.idleTimeout())
	err := m.rdb.ZAdd(context.Background(), IdleSetKey, redis.Z{Score: float64(at.Unix()), Member: s.ID.String()}).Err()
	if err != nil {
		m.log.Warn("failed to schedule idle expiry", zap.String("session", s.ID.String()), zap.Error(err))
	}
}

// ExpireIdle removes sessions idle for longer than the configured timeout
// and returns their IDs. It backs the idle worker when redis is absent.
func (m *Manager) ExpireIdle(now time.Time) []string {
	timeout := m.idleTimeout()
	var expired []string
	for _, s := range m.List() {
		if now.Sub(s.LastActive()) < timeout {
			continue
		}
		id := s.ID.String()
		if err := m.Remove(id); err == nil {
			expired = append(expired, id)
		}
	}
	return expired
}

// Save writes the session snapshot to redis.
func (m *Manager) Save(s *Session) error {
	if m.rdb == nil {
		return nil
	}
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return err
	}
	return m.rdb.SetEx(context.Background(), sessionKeyPrefix+s.ID.String(), data, m.snapshotTTL()).Err()
}

// LoadSnapshot reads a session snapshot from redis, including sessions
// owned by other instances.
func (m *Manager) LoadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	if m.rdb == nil {
		return nil, ErrSessionNotFound
	}
	data, err := m.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// runRealtime ticks s at the fixed physics rate until it is removed.
func (m *Manager) runRealtime(s *Session) {
	var dt float64
	s.Do(func(env *Environment) { dt = env.Controller().Settings().FixedDeltaTime })
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	saveEvery := int(1 / dt)
	for n := 1; ; n++ {
		select {
		case <-s.Done():
			return
		case <-ticker.C:
			s.Do(func(env *Environment) { env.Tick() })
			if saveEvery > 0 && n%saveEvery == 0 {
				if err := m.Save(s); err != nil {
					m.log.Debug("realtime snapshot failed", zap.Error(err))
				}
			}
		}
	}
}

// Publish queues an event for redis fan-out and persistence.
func (m *Manager) Publish(ev Event) {
	if m.rdb == nil && m.db == nil {
		return
	}
	ev.Origin = m.instanceID
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case m.events <- ev:
	default:
		m.log.Warn("event queue full, dropping event", zap.String("type", ev.Type), zap.String("session", ev.SessionID))
	}
}

// Run drains the event queue until ctx is done: events are published on
// EventsChannel and finished episodes are written to the database.
func (m *Manager) Run(ctx context.Context) error {
	m.log.Info("event pump started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("event pump stopping")
			return nil
		case ev := <-m.events:
			m.deliver(ctx, ev)
		}
	}
}

// drain delivers whatever is queued without waiting for more.
func (m *Manager) drain(ctx context.Context) int {
	for n := 0; ; n++ {
		select {
		case ev := <-m.events:
			m.deliver(ctx, ev)
		default:
			return n
		}
	}
}

func (m *Manager) deliver(ctx context.Context, ev Event) {
	if m.rdb != nil {
		if b, err := json.Marshal(ev); err == nil {
			if err := m.rdb.Publish(ctx, EventsChannel, b).Err(); err != nil {
				m.log.Warn("publish failed", zap.String("type", ev.Type), zap.Error(err))
			}
		}
	}
	if ev.Type == EventEpisodeEnded && ev.Episode != nil && m.db != nil {
		if err := PersistEpisode(ctx, m.db, ev.SessionID, ev.Episode); err != nil {
			m.log.Error("failed to persist episode", zap.String("session", ev.SessionID), zap.Error(err))
		}
	}
}

// PersistEpisode writes a finished episode and its rewards.
func PersistEpisode(ctx context.Context, db *sqlx.DB, sessionID string, ep *Episode) error {
	id, err := store.InsertEpisode(ctx, db, EpisodeRow(sessionID, ep))
	if err != nil {
		return err
	}
	return store.InsertRewards(ctx, db, id, RewardRows(ep))
}

// recorder forwards a session's episode notifications to the event queue.
type recorder struct {
	m         *Manager
	sessionID string
}

func (r *recorder) EpisodeBegan(ep *Episode) {
	r.m.Publish(Event{Type: EventEpisodeBegan, SessionID: r.sessionID, Episode: cloneEpisode(ep)})
}

func (r *recorder) RewardIssued(_ *Episode, rw Reward) {
	r.m.Publish(Event{Type: EventReward, SessionID: r.sessionID, Reward: &rw})
}

func (r *recorder) EpisodeEnded(ep *Episode) {
	r.m.Publish(Event{Type: EventEpisodeEnded, SessionID: r.sessionID, Episode: cloneEpisode(ep)})
}
