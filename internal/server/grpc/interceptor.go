package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/securebank/internal/bankapi"
	"github.com/dmitrijs2005/securebank/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// SubjectFromContext returns the token subject set by the access token
// interceptor.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey).(string)
	return s
}

func isBankingMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/"+bankapi.ServiceName+"/")
}

func firstValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) requestLogInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "call",
		"method", info.FullMethod,
		"request_id", firstValue(ctx, common.RequestIDHeaderName),
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

// accessTokenInterceptor requires a valid session token on banking calls.
// Health checks pass through.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !isBankingMethod(info.FullMethod) {
		return handler(ctx, req)
	}

	accessToken := firstValue(ctx, common.AccessTokenHeaderName)
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	claims, err := s.verifier.Verify(accessToken)
	if err != nil {
		s.logger.Info(ctx, "rejected token", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, subjectKey, claims.Subject)
	return handler(ctx, req)
}

// networkInterceptor delays banking calls by the configured latency and
// fails every n-th one as unavailable.
func (s *GRPCServer) networkInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !isBankingMethod(info.FullMethod) {
		return handler(ctx, req)
	}
	if d := s.opts.Latency; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
	if n := s.opts.FailEvery; n > 0 && s.calls.Add(1)%int64(n) == 0 {
		return nil, status.Error(codes.Unavailable, "simulated outage")
	}
	return handler(ctx, req)
}
