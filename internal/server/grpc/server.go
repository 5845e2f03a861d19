// Package grpc exposes the mock bank over gRPC: the banking service, the
// standard health service and the interceptors that guard them.
package grpc

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/securebank/internal/bankapi"
	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/dmitrijs2005/securebank/internal/tokens"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Bank is the data behind the banking service.
type Bank interface {
	Account(ctx context.Context) (models.AccountDTO, error)
	Transactions(ctx context.Context, page, size int) ([]models.TransactionDTO, error)
	Transaction(ctx context.Context, id string) (models.TransactionDTO, error)
	Cards(ctx context.Context) ([]models.CardDTO, error)
	Card(ctx context.Context, id string) (models.CardDTO, error)
	ToggleCard(ctx context.Context, id string, active bool) (models.CardDTO, error)
}

// TokenVerifier checks session tokens presented by clients.
type TokenVerifier interface {
	Verify(token string) (*tokens.Claims, error)
}

// Options tune the simulated network behaviour.
type Options struct {
	Latency   time.Duration
	FailEvery int
}

type GRPCServer struct {
	address  string
	bank     Bank
	verifier TokenVerifier
	logger   logging.Logger
	opts     Options
	calls    atomic.Int64
	health   *health.Server
}

var _ bankapi.Server = (*GRPCServer)(nil)

func NewGRPCServer(address string, l logging.Logger, bank Bank, verifier TokenVerifier, opts Options) *GRPCServer {
	return &GRPCServer{
		address:  address,
		bank:     bank,
		verifier: verifier,
		logger:   l.With("module", "grpc_server"),
		opts:     opts,
		health:   health.NewServer(),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.requestLogInterceptor,
		s.accessTokenInterceptor,
		s.networkInterceptor,
	))
	bankapi.RegisterServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(bankapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then reports
// NOT_SERVING and stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	return srv.Serve(lis)
}
