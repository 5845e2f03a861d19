// Package session implements the inactivity timeout state machine. It runs
// a sliding window over user activity, warns shortly before expiry and
// shortens the window to a grace period while the client is in background.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/securebank/internal/clock"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
)

type State string

const (
	StateInactive          State = "INACTIVE"
	StateActive            State = "ACTIVE"
	StateWarning           State = "WARNING"
	StateExpired           State = "EXPIRED"
	StateBackgroundTimeout State = "BACKGROUND_TIMEOUT"
)

func (s State) live() bool { return s == StateActive || s == StateWarning }

type Config struct {
	Timeout         time.Duration
	WarningLead     time.Duration
	BackgroundGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Minute,
		WarningLead:     time.Minute,
		BackgroundGrace: 30 * time.Second,
	}
}

// Authority is the part of the authentication machine a session needs.
type Authority interface {
	Invalidate(ctx context.Context) error
	IsAuthenticated() bool
}

type Listener func(from, to State)

type Stats struct {
	State           State
	TimeRemaining   time.Duration
	SessionDuration time.Duration
	LastActivity    time.Time
	InForeground    bool
}

type Machine struct {
	auth   Authority
	sched  clock.Scheduler
	cfg    Config
	logger logging.Logger

	mu           sync.Mutex
	state        State
	gen          uint64
	startedAt    time.Time
	lastActivity time.Time
	deadline     time.Time
	remaining    time.Duration
	foreground   bool
	timers       []clock.Timer
	listeners    []Listener
}

func NewMachine(auth Authority, sched clock.Scheduler, cfg Config, logger logging.Logger) *Machine {
	return &Machine{
		auth:       auth,
		sched:      sched,
		cfg:        cfg,
		logger:     logger.With("module", "session"),
		state:      StateInactive,
		foreground: true,
	}
}

func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setLocked(to State) func() {
	from := m.state
	if from == to {
		return func() {}
	}
	m.state = to
	listeners := append([]Listener(nil), m.listeners...)
	return func() {
		for _, l := range listeners {
			l(from, to)
		}
	}
}

// cancelLocked stops every armed timer and bumps the generation, so a
// callback that already started is ignored.
func (m *Machine) cancelLocked() uint64 {
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = m.timers[:0]
	m.gen++
	return m.gen
}

// armLocked arms the warning and expiry timers for a window of d.
func (m *Machine) armLocked(d time.Duration) func() {
	gen := m.cancelLocked()
	m.deadline = m.sched.Now().Add(d)
	notify := func() {}
	if d > m.cfg.WarningLead {
		m.timers = append(m.timers, m.sched.AfterFunc(d-m.cfg.WarningLead, func() { m.onWarning(gen) }))
	} else {
		notify = m.setLocked(StateWarning)
	}
	m.timers = append(m.timers, m.sched.AfterFunc(d, func() { m.onExpire(gen) }))
	return notify
}

// Start opens a session with a full window.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	now := m.sched.Now()
	m.startedAt = now
	m.lastActivity = now
	m.foreground = true
	n1 := m.setLocked(StateActive)
	n2 := m.armLocked(m.cfg.Timeout)
	m.mu.Unlock()
	n1()
	n2()
	m.logger.Info(ctx, "session started", "timeout", m.cfg.Timeout)
}

// RecordActivity slides the window. It reports whether the session was
// live; activity on an expired or inactive session changes nothing.
func (m *Machine) RecordActivity() bool {
	m.mu.Lock()
	if !m.state.live() || !m.foreground {
		m.mu.Unlock()
		return false
	}
	m.lastActivity = m.sched.Now()
	n1 := m.setLocked(StateActive)
	n2 := m.armLocked(m.cfg.Timeout)
	m.mu.Unlock()
	n1()
	n2()
	return true
}

func (m *Machine) onWarning(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateActive {
		m.mu.Unlock()
		return
	}
	notify := m.setLocked(StateWarning)
	m.mu.Unlock()
	notify()
}

func (m *Machine) onExpire(gen uint64) {
	m.terminate(gen, StateExpired, "session expired")
}

func (m *Machine) onBackgroundTimeout(gen uint64) {
	m.terminate(gen, StateBackgroundTimeout, "session timed out in background")
}

// terminate moves a live session of generation gen to state and invalidates
// authentication exactly once.
func (m *Machine) terminate(gen uint64, to State, msg string) {
	m.mu.Lock()
	if gen != m.gen || !m.state.live() {
		m.mu.Unlock()
		return
	}
	m.cancelLocked()
	notify := m.setLocked(to)
	m.mu.Unlock()

	ctx := context.Background()
	m.invalidate(ctx)
	m.logger.Info(ctx, msg)
	notify()
}

func (m *Machine) invalidate(ctx context.Context) {
	if err := m.auth.Invalidate(ctx); err != nil {
		m.logger.Error(ctx, "failed to invalidate authentication", "error", err)
	}
}

// EnterBackground swaps the foreground window for the background grace
// timer. The time left in the foreground window is kept for EnterForeground.
func (m *Machine) EnterBackground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.foreground {
		return
	}
	m.foreground = false
	if !m.state.live() {
		return
	}
	m.remaining = m.deadline.Sub(m.sched.Now())
	gen := m.cancelLocked()
	m.timers = append(m.timers, m.sched.AfterFunc(m.cfg.BackgroundGrace, func() { m.onBackgroundTimeout(gen) }))
}

// EnterForeground resumes the foreground window where it was left. A
// session that already timed out in background stays that way until Start.
func (m *Machine) EnterForeground() {
	m.mu.Lock()
	if m.foreground {
		m.mu.Unlock()
		return
	}
	m.foreground = true
	if !m.state.live() {
		m.mu.Unlock()
		return
	}
	if m.remaining <= 0 {
		gen := m.cancelLocked()
		m.mu.Unlock()
		m.onExpire(gen)
		return
	}
	notify := m.armLocked(m.remaining)
	m.mu.Unlock()
	notify()
}

// ForceTimeout expires the session immediately, whatever its state.
func (m *Machine) ForceTimeout(ctx context.Context) {
	m.stop(ctx, StateExpired, "session timeout forced")
}

// End closes the session on logout.
func (m *Machine) End(ctx context.Context) {
	m.stop(ctx, StateInactive, "session ended")
}

func (m *Machine) stop(ctx context.Context, to State, msg string) {
	m.mu.Lock()
	m.cancelLocked()
	notify := m.setLocked(to)
	m.mu.Unlock()
	m.invalidate(ctx)
	m.logger.Info(ctx, msg)
	notify()
}

// TimeRemaining returns the time left in the current window, or zero when
// the session is not live.
func (m *Machine) TimeRemaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked()
}

func (m *Machine) remainingLocked() time.Duration {
	if !m.state.live() {
		return 0
	}
	if !m.foreground {
		return m.remaining
	}
	if d := m.deadline.Sub(m.sched.Now()); d > 0 {
		return d
	}
	return 0
}

func (m *Machine) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		State:         m.state,
		TimeRemaining: m.remainingLocked(),
		LastActivity:  m.lastActivity,
		InForeground:  m.foreground,
	}
	if m.state.live() {
		s.SessionDuration = m.sched.Now().Sub(m.startedAt)
	}
	return s
}

// CheckAccess gates data access: the session must be live and the
// authentication machine must still hold a valid authentication.
func (m *Machine) CheckAccess(ctx context.Context) error {
	st := m.State()
	if !st.live() {
		return common.AuthenticationError("session", fmt.Errorf("%w: session %s", common.ErrNotAuthenticated, st))
	}
	if !m.auth.IsAuthenticated() {
		return common.AuthenticationError("session", common.ErrNotAuthenticated)
	}
	return nil
}
