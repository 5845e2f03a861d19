// Package auth implements the authentication and lockout state machine, the
// biometric collaborator contract and device security grading.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/securebank/internal/clock"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
)

type State string

const (
	StateUnknown                State = "UNKNOWN"
	StateAuthenticationRequired State = "AUTHENTICATION_REQUIRED"
	StateAuthenticated          State = "AUTHENTICATED"
	StateLockedOut              State = "LOCKED_OUT"
	StateSessionExpired         State = "SESSION_EXPIRED"
)

// ErrInProgress is returned when a second prompt is requested while one is
// still open.
var ErrInProgress = errors.New("authentication already in progress")

type Policy struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	// MaxAuthAge bounds how long one successful authentication stays valid,
	// regardless of activity.
	MaxAuthAge time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxFailedAttempts: 3,
		LockoutDuration:   15 * time.Minute,
		MaxAuthAge:        30 * time.Minute,
	}
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// Listener observes state transitions. It is called without locks held.
type Listener func(from, to State)

type Machine struct {
	store   ProfileStore
	bio     Authenticator
	tokens  TokenIssuer
	clock   clock.Clock
	policy  Policy
	subject string
	logger  logging.Logger

	mu        sync.Mutex
	state     State
	profile   Profile
	token     string
	inFlight  bool
	listeners []Listener
}

type Option func(*Machine)

func WithPolicy(p Policy) Option { return func(m *Machine) { m.policy = p } }

func WithLogger(l logging.Logger) Option { return func(m *Machine) { m.logger = l } }

// WithSubject sets the token subject, typically a device identifier.
func WithSubject(s string) Option { return func(m *Machine) { m.subject = s } }

// NewMachine loads the persisted profile. A lockout still in force starts
// the machine LOCKED_OUT, anything else AUTHENTICATION_REQUIRED.
func NewMachine(ctx context.Context, store ProfileStore, bio Authenticator, tokens TokenIssuer, clk clock.Clock, opts ...Option) (*Machine, error) {
	m := &Machine{
		store:   store,
		bio:     bio,
		tokens:  tokens,
		clock:   clk,
		policy:  DefaultPolicy(),
		subject: "device",
		logger:  logging.NopLogger{},
		state:   StateUnknown,
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("module", "auth")

	p, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load auth profile: %w", err)
	}
	m.profile = p
	// a restarted process never inherits an authenticated session
	m.profile.LastAuthTime = time.Time{}
	if p.lockedAt(clk.Now()) {
		m.state = StateLockedOut
	} else {
		m.state = StateAuthenticationRequired
	}
	return m, nil
}

func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// setLocked changes state and returns a notification to run after unlock.
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

func (m *Machine) State() State {
	m.mu.Lock()
	notify := m.checkSessionLocked()
	s := m.state
	m.mu.Unlock()
	notify()
	return s
}

// Authenticate runs one biometric prompt. An active lockout rejects the
// call with ErrLockedOut without consuming an attempt.
func (m *Machine) Authenticate(ctx context.Context, prompt Prompt) error {
	const op = "authenticate"

	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return common.AuthenticationError(op, ErrInProgress)
	}
	p, err := m.store.Load(ctx)
	if err != nil {
		m.mu.Unlock()
		return common.Classify(op, err)
	}
	p.LastAuthTime = m.profile.LastAuthTime
	m.profile = p

	now := m.clock.Now()
	if p.lockedAt(now) {
		notify := m.setLocked(StateLockedOut)
		m.mu.Unlock()
		notify()
		return common.SecurityError(op, fmt.Errorf("%w for %s", common.ErrLockedOut, p.LockoutUntil.Sub(now).Round(time.Second)))
	}
	if !p.BiometricEnabled {
		m.mu.Unlock()
		return common.SecurityError(op, common.ErrBiometricNotEnabled)
	}

	var notify func()
	if !p.LockoutUntil.IsZero() {
		// lockout elapsed: a fresh window of attempts begins
		m.profile.LockoutUntil = time.Time{}
		m.profile.FailedAttempts = 0
		notify = m.setLocked(StateAuthenticationRequired)
	}
	m.inFlight = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()
	if notify != nil {
		notify()
	}

	res, err := m.prompt(ctx, prompt)
	if err != nil {
		m.logger.Error(ctx, "biometric prompt failed", "error", err)
		return err
	}

	m.mu.Lock()
	if ctx.Err() != nil && res.Outcome != OutcomeSuccess {
		m.mu.Unlock()
		return common.Classify(op, ctx.Err())
	}

	now = m.clock.Now()
	next := m.profile
	var result error
	var to State

	switch res.Outcome {
	case OutcomeSuccess:
		token, err := m.tokens.Issue(m.subject)
		if err != nil {
			m.mu.Unlock()
			return common.UnknownError(op, fmt.Errorf("issue session token: %w", err))
		}
		next.FailedAttempts = 0
		next.LockoutUntil = time.Time{}
		next.LastAuthTime = now
		if err := m.store.Save(ctx, next); err != nil {
			m.mu.Unlock()
			return common.Classify(op, err)
		}
		m.token = token
		to = StateAuthenticated
		m.logger.Info(ctx, "authenticated")

	default:
		next.FailedAttempts++
		to = StateAuthenticationRequired
		result = common.AuthenticationError(op, fmt.Errorf("%w: %s", common.ErrAuthenticationFailed, res.Message))
		if next.FailedAttempts >= m.policy.MaxFailedAttempts {
			next.LockoutUntil = now.Add(m.policy.LockoutDuration)
			to = StateLockedOut
			result = common.SecurityError(op, common.ErrLockedOut)
			m.logger.Warn(ctx, "locked out after failed attempts", "attempts", next.FailedAttempts, "until", next.LockoutUntil)
		} else {
			m.logger.Info(ctx, "authentication failed", "attempts", next.FailedAttempts, "outcome", res.Outcome)
		}
		if err := m.store.Save(ctx, next); err != nil {
			m.mu.Unlock()
			return common.Classify(op, err)
		}
		m.token = ""
	}

	m.profile = next
	notify = m.setLocked(to)
	m.mu.Unlock()
	notify()
	return result
}

// prompt runs the collaborator. A panic is reported as an unknown error and
// does not count as an attempt.
func (m *Machine) prompt(ctx context.Context, p Prompt) (res BiometricResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.UnknownError("authenticate", fmt.Errorf("biometric prompt panicked: %v", r))
		}
	}()
	return m.bio.Authenticate(ctx, p), nil
}

// Invalidate drops the session token and forces re-authentication. It is
// called by the session state machine on expiry.
func (m *Machine) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.profile.LastAuthTime = time.Time{}
	to := StateAuthenticationRequired
	if m.profile.lockedAt(m.clock.Now()) {
		to = StateLockedOut
	}
	notify := m.setLocked(to)
	m.mu.Unlock()
	notify()
	m.logger.Info(ctx, "session invalidated")
	return nil
}

// checkSessionLocked moves an AUTHENTICATED machine whose authentication is
// older than MaxAuthAge, or lies in the future, to SESSION_EXPIRED.
func (m *Machine) checkSessionLocked() func() {
	if m.state != StateAuthenticated {
		return func() {}
	}
	elapsed := m.clock.Now().Sub(m.profile.LastAuthTime)
	if elapsed >= 0 && elapsed < m.policy.MaxAuthAge {
		return func() {}
	}
	m.token = ""
	return m.setLocked(StateSessionExpired)
}

func (m *Machine) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Token returns the current session token, or "" when not authenticated.
func (m *Machine) Token() string {
	m.mu.Lock()
	notify := m.checkSessionLocked()
	t := m.token
	m.mu.Unlock()
	notify()
	return t
}

// RemainingLockout returns how long the current lockout lasts, or zero.
func (m *Machine) RemainingLockout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	if !m.profile.lockedAt(now) {
		return 0
	}
	return m.profile.LockoutUntil.Sub(now)
}

func (m *Machine) FailedAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile.FailedAttempts
}

func (m *Machine) BiometricEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile.BiometricEnabled
}

// EnableBiometric turns biometric authentication on if the collaborator
// reports it available.
func (m *Machine) EnableBiometric(ctx context.Context) error {
	if a := m.bio.Availability(ctx); a != BiometricAvailable {
		return common.SecurityError("enable biometric", fmt.Errorf("%w: %s", common.ErrBiometricUnavailable, a.Message()))
	}
	return m.setBiometric(ctx, true)
}

func (m *Machine) DisableBiometric(ctx context.Context) error {
	return m.setBiometric(ctx, false)
}

func (m *Machine) setBiometric(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.profile
	next.BiometricEnabled = enabled
	if err := m.store.Save(ctx, next); err != nil {
		return common.Classify("biometric setting", err)
	}
	m.profile = next
	return nil
}

// ClearSecurityData wipes the persisted profile and the in-memory session.
// Failed attempts and a running lockout are kept.
func (m *Machine) ClearSecurityData(ctx context.Context) error {
	const op = "clear security data"

	m.mu.Lock()
	p, err := m.store.Load(ctx)
	if err != nil {
		m.mu.Unlock()
		return common.Classify(op, err)
	}
	kept := Profile{FailedAttempts: p.FailedAttempts, LockoutUntil: p.LockoutUntil}
	if kept.FailedAttempts == 0 && kept.LockoutUntil.IsZero() {
		err = m.store.Clear(ctx)
	} else {
		err = m.store.Save(ctx, kept)
	}
	if err != nil {
		m.mu.Unlock()
		return common.Classify(op, err)
	}
	m.profile = kept
	m.token = ""
	to := StateAuthenticationRequired
	if kept.lockedAt(m.clock.Now()) {
		to = StateLockedOut
	}
	notify := m.setLocked(to)
	m.mu.Unlock()
	notify()
	return nil
}
