package connectivity

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type flakyProber struct {
	fail atomic.Bool
}

func (p *flakyProber) Probe(ctx context.Context) error {
	if p.fail.Load() {
		return errors.New("down")
	}
	return nil
}

func TestMonitor_Transitions(t *testing.T) {
	p := &flakyProber{}
	m := NewMonitor(p, time.Hour, time.Second, logging.NopLogger{})
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()
	ctx := context.Background()

	assert.False(t, m.IsConnected())

	assert.True(t, m.Check(ctx))
	assert.True(t, m.IsConnected())
	assert.True(t, <-ch)

	// repeated results do not emit
	m.Check(ctx)
	select {
	case v := <-ch:
		t.Fatalf("unexpected transition %v", v)
	default:
	}

	p.fail.Store(true)
	assert.False(t, m.Check(ctx))
	assert.False(t, <-ch)
}

func TestMonitor_SlowSubscriberKeepsLatest(t *testing.T) {
	p := &flakyProber{}
	m := NewMonitor(p, time.Hour, time.Second, logging.NopLogger{})
	ch, unsubscribe := m.Subscribe()
	ctx := context.Background()

	m.Check(ctx)
	p.fail.Store(true)
	m.Check(ctx)

	assert.False(t, <-ch)
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	p := &flakyProber{}
	m := NewMonitor(p, 5*time.Millisecond, time.Second, logging.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, m.IsConnected, time.Second, time.Millisecond)
	p.fail.Store(true)
	require.Eventually(t, func() bool { return !m.IsConnected() }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestHealthProber(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	defer conn.Close()

	p := NewHealthProber(conn, "")
	require.NoError(t, p.Probe(context.Background()))

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	require.Error(t, p.Probe(context.Background()))
}
