package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/securebank/internal/clock"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthority struct {
	mu            sync.Mutex
	invalidations int
	authenticated bool
}

func (f *fakeAuthority) Invalidate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	f.authenticated = false
	return nil
}

func (f *fakeAuthority) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeAuthority) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidations
}

var t0 = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestMachine() (*Machine, *fakeAuthority, *clock.Fake) {
	auth := &fakeAuthority{authenticated: true}
	clk := clock.NewFake(t0)
	return NewMachine(auth, clk, DefaultConfig(), logging.NopLogger{}), auth, clk
}

func TestNewMachine_Inactive(t *testing.T) {
	m, _, _ := newTestMachine()
	assert.Equal(t, StateInactive, m.State())
	assert.Zero(t, m.TimeRemaining())
	assert.False(t, m.RecordActivity())
}

func TestWarningThenExpiry(t *testing.T) {
	m, auth, clk := newTestMachine()
	var seen []State
	m.Subscribe(func(from, to State) { seen = append(seen, to) })

	m.Start(context.Background())
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, 5*time.Minute, m.TimeRemaining())

	clk.Advance(4*time.Minute - time.Second)
	assert.Equal(t, StateActive, m.State())

	clk.Advance(time.Second)
	assert.Equal(t, StateWarning, m.State())
	assert.Equal(t, time.Minute, m.TimeRemaining())

	clk.Advance(time.Minute)
	assert.Equal(t, StateExpired, m.State())
	assert.Equal(t, 1, auth.count())
	assert.Equal(t, []State{StateActive, StateWarning, StateExpired}, seen)
	assert.Zero(t, clk.Pending())
}

func TestActivitySlidesWindow(t *testing.T) {
	m, auth, clk := newTestMachine()
	m.Start(context.Background())

	for i := 0; i < 5; i++ {
		clk.Advance(3 * time.Minute)
		require.True(t, m.RecordActivity())
	}
	assert.Equal(t, StateActive, m.State())
	assert.Zero(t, auth.count())

	clk.Advance(4*time.Minute + 30*time.Second)
	assert.Equal(t, StateWarning, m.State())

	require.True(t, m.RecordActivity())
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, 5*time.Minute, m.TimeRemaining())

	clk.Advance(5 * time.Minute)
	assert.Equal(t, StateExpired, m.State())
	assert.Equal(t, 1, auth.count())
	assert.False(t, m.RecordActivity())
}

func TestSteadyActivityNeverWarns(t *testing.T) {
	m, auth, clk := newTestMachine()
	var seen []State
	m.Subscribe(func(from, to State) { seen = append(seen, to) })
	m.Start(context.Background())

	for i := 0; i < 20; i++ {
		clk.Advance(30 * time.Second)
		require.True(t, m.RecordActivity())
	}

	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, []State{StateActive}, seen)
	assert.Zero(t, auth.count())
}

func TestBackgroundGraceExpires(t *testing.T) {
	m, auth, clk := newTestMachine()
	m.Start(context.Background())

	m.EnterBackground()
	clk.Advance(30 * time.Second)

	assert.Equal(t, StateBackgroundTimeout, m.State())
	assert.Equal(t, 1, auth.count())

	m.EnterForeground()
	assert.Equal(t, StateBackgroundTimeout, m.State())

	m.Start(context.Background())
	assert.Equal(t, StateActive, m.State())
}

func TestForegroundResumesRemainingTime(t *testing.T) {
	m, auth, clk := newTestMachine()
	m.Start(context.Background())

	clk.Advance(2 * time.Minute)
	m.EnterBackground()
	assert.Equal(t, 3*time.Minute, m.TimeRemaining())

	clk.Advance(20 * time.Second)
	m.EnterForeground()
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, 3*time.Minute, m.TimeRemaining())

	// the grace timer was cancelled
	clk.Advance(15 * time.Second)
	assert.Equal(t, StateActive, m.State())

	clk.Advance(3*time.Minute - 15*time.Second)
	assert.Equal(t, StateExpired, m.State())
	assert.Equal(t, 1, auth.count())
}

func TestForegroundInsideWarningLead(t *testing.T) {
	m, _, clk := newTestMachine()
	m.Start(context.Background())

	clk.Advance(4*time.Minute + 30*time.Second)
	require.Equal(t, StateWarning, m.State())
	m.EnterBackground()
	clk.Advance(10 * time.Second)
	m.EnterForeground()

	assert.Equal(t, StateWarning, m.State())
	assert.Equal(t, 30*time.Second, m.TimeRemaining())
	clk.Advance(30 * time.Second)
	assert.Equal(t, StateExpired, m.State())
}

func TestActivityIgnoredInBackground(t *testing.T) {
	m, _, _ := newTestMachine()
	m.Start(context.Background())
	m.EnterBackground()
	assert.False(t, m.RecordActivity())
}

func TestForceTimeoutAndEnd(t *testing.T) {
	m, auth, clk := newTestMachine()
	ctx := context.Background()

	m.Start(ctx)
	m.ForceTimeout(ctx)
	assert.Equal(t, StateExpired, m.State())
	assert.Equal(t, 1, auth.count())

	// stale timers do not invalidate again
	clk.Advance(10 * time.Minute)
	assert.Equal(t, 1, auth.count())

	m.Start(ctx)
	m.End(ctx)
	assert.Equal(t, StateInactive, m.State())
	assert.Equal(t, 2, auth.count())
	assert.Zero(t, clk.Pending())
}

func TestStats(t *testing.T) {
	m, _, clk := newTestMachine()
	m.Start(context.Background())
	clk.Advance(90 * time.Second)
	m.RecordActivity()
	clk.Advance(30 * time.Second)

	s := m.Stats()
	assert.Equal(t, StateActive, s.State)
	assert.Equal(t, 2*time.Minute, s.SessionDuration)
	assert.Equal(t, t0.Add(90*time.Second), s.LastActivity)
	assert.Equal(t, 4*time.Minute+30*time.Second, s.TimeRemaining)
	assert.True(t, s.InForeground)
}

func TestCheckAccess(t *testing.T) {
	m, auth, clk := newTestMachine()
	ctx := context.Background()

	err := m.CheckAccess(ctx)
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Equal(t, common.KindAuthentication, common.KindOf(err))

	m.Start(ctx)
	require.NoError(t, m.CheckAccess(ctx))

	clk.Advance(5 * time.Minute)
	require.ErrorIs(t, m.CheckAccess(ctx), common.ErrNotAuthenticated)

	auth.authenticated = false
	m.Start(ctx)
	require.ErrorIs(t, m.CheckAccess(ctx), common.ErrNotAuthenticated)
}

func TestConcurrentActivityAndExpiry(t *testing.T) {
	auth := &fakeAuthority{authenticated: true}
	m := NewMachine(auth, clock.System{}, Config{
		Timeout:         20 * time.Millisecond,
		WarningLead:     5 * time.Millisecond,
		BackgroundGrace: 5 * time.Millisecond,
	}, logging.NopLogger{})
	m.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.RecordActivity()
				m.TimeRemaining()
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return m.State() == StateExpired }, time.Second, time.Millisecond)
	assert.Equal(t, 1, auth.count())
}
