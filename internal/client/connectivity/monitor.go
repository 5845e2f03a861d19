// Package connectivity tracks whether the bank backend is reachable. The
// answer is advisory: a fetch may still fail right after IsConnected
// returned true.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/securebank/internal/logging"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Prober checks the backend once.
type Prober interface {
	Probe(ctx context.Context) error
}

// HealthProber asks the gRPC health service of the backend.
type HealthProber struct {
	client  healthpb.HealthClient
	service string
}

// NewHealthProber probes service on conn; "" checks the server as a whole.
func NewHealthProber(conn grpc.ClientConnInterface, service string) *HealthProber {
	return &HealthProber{client: healthpb.NewHealthClient(conn), service: service}
}

func (p *HealthProber) Probe(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("backend status %s", resp.GetStatus())
	}
	return nil
}

type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger

	mu        sync.Mutex
	connected bool
	subs      map[int]chan bool
	nextID    int
}

func NewMonitor(prober Prober, interval, timeout time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("module", "connectivity"),
		subs:     make(map[int]chan bool),
	}
}

func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Subscribe returns a stream of connectivity transitions and a function
// that ends the subscription. Only the latest value is kept for slow
// readers.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

func (m *Monitor) set(ctx context.Context, connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected == connected {
		return
	}
	m.connected = connected
	if connected {
		m.logger.Info(ctx, "backend reachable")
	} else {
		m.logger.Warn(ctx, "backend unreachable")
	}
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- connected
	}
}

// Check probes once and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(ctx)
	cancel()
	if err != nil {
		m.logger.Debug(ctx, "probe failed", "error", err)
	}
	m.set(ctx, err == nil)
	return err == nil
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Static is a fixed connectivity answer.
type Static bool

func (s Static) IsConnected() bool { return bool(s) }
