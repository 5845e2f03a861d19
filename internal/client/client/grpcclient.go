package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securebank/internal/bankapi"
	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultCallTimeout = 10 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	tokens      TokenSource
	callTimeout time.Duration
}

var _ Remote = (*GRPCClient)(nil)

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults, which lets tests dial over bufconn.
func NewGRPCClient(endpointURL string, tokens TokenSource, callTimeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	c := &GRPCClient{endpointURL: endpointURL, tokens: tokens, callTimeout: callTimeout}

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.metadataInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(endpointURL, dial...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client [%s]: %w", endpointURL, err)
	}
	c.conn = conn
	return c, nil
}

// Conn exposes the connection for health probing.
func (c *GRPCClient) Conn() *grpc.ClientConn { return c.conn }

func (c *GRPCClient) Close() error { return c.conn.Close() }

func withOutgoing(ctx context.Context, kv ...string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	for i := 0; i+1 < len(kv); i += 2 {
		md.Set(kv[i], kv[i+1])
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// metadataInterceptor attaches the session token and a request id.
func (c *GRPCClient) metadataInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	kv := []string{common.RequestIDHeaderName, uuid.NewString()}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			kv = append(kv, common.AccessTokenHeaderName, token)
		}
	}
	return invoker(withOutgoing(ctx, kv...), method, req, reply, cc, opts...)
}

func (c *GRPCClient) call(ctx context.Context, method string, fields map[string]any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := structpb.NewStruct(fields)
	if err != nil {
		return common.UnknownError(method, fmt.Errorf("failed to build request: %w", err))
	}
	resp := new(structpb.Value)
	if err := c.conn.Invoke(ctx, bankapi.FullMethod(method), req, resp); err != nil {
		return mapError(method, err)
	}
	if err := bankapi.Decode(resp, out); err != nil {
		return common.ValidationError(method, fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return nil
}

// mapError translates gRPC status codes into the error taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return common.UnknownError(op, err)
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.AuthenticationError(op, fmt.Errorf("%w: %s", common.ErrInvalidToken, st.Message()))
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return common.NetworkError(op, fmt.Errorf("%w: %s", common.ErrUnavailable, st.Message()))
	case codes.ResourceExhausted:
		return common.NetworkError(op, fmt.Errorf("%w: %s", common.ErrRateLimited, st.Message()))
	case codes.NotFound:
		return common.DataNotFoundError(op, fmt.Errorf("%w: %s", common.ErrNotFound, st.Message()))
	case codes.InvalidArgument:
		return common.ValidationError(op, fmt.Errorf("%w: %s", common.ErrValidation, st.Message()))
	case codes.Canceled:
		return common.UnknownError(op, context.Canceled)
	default:
		return common.UnknownError(op, fmt.Errorf("rpc error: %w", err))
	}
}

func (c *GRPCClient) Account(ctx context.Context) (models.AccountDTO, error) {
	var out models.AccountDTO
	err := c.call(ctx, bankapi.MethodGetAccount, nil, &out)
	return out, err
}

func (c *GRPCClient) Transactions(ctx context.Context, page, size int) ([]models.TransactionDTO, error) {
	var out []models.TransactionDTO
	err := c.call(ctx, bankapi.MethodListTransactions, map[string]any{
		bankapi.FieldPage: page,
		bankapi.FieldSize: size,
	}, &out)
	return out, err
}

func (c *GRPCClient) Transaction(ctx context.Context, id string) (models.TransactionDTO, error) {
	var out models.TransactionDTO
	err := c.call(ctx, bankapi.MethodGetTransaction, map[string]any{bankapi.FieldID: id}, &out)
	return out, err
}

func (c *GRPCClient) Cards(ctx context.Context) ([]models.CardDTO, error) {
	var out []models.CardDTO
	err := c.call(ctx, bankapi.MethodListCards, nil, &out)
	return out, err
}

func (c *GRPCClient) Card(ctx context.Context, id string) (models.CardDTO, error) {
	var out models.CardDTO
	err := c.call(ctx, bankapi.MethodGetCard, map[string]any{bankapi.FieldID: id}, &out)
	return out, err
}

func (c *GRPCClient) ToggleCard(ctx context.Context, id string, active bool) (models.CardDTO, error) {
	var out models.CardDTO
	err := c.call(ctx, bankapi.MethodToggleCard, map[string]any{
		bankapi.FieldID:     id,
		bankapi.FieldActive: active,
	}, &out)
	return out, err
}
