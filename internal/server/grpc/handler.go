package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/securebank/internal/bankapi"
	"github.com/dmitrijs2005/securebank/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps store errors onto gRPC status codes.
func toStatus(err error) error {
	var ae *common.AppError
	msg := err.Error()
	if errors.As(err, &ae) && ae.Err != nil {
		msg = ae.Err.Error()
	}
	switch common.KindOf(err) {
	case common.KindDataNotFound:
		return status.Error(codes.NotFound, msg)
	case common.KindValidation:
		return status.Error(codes.InvalidArgument, msg)
	case common.KindAuthentication:
		return status.Error(codes.Unauthenticated, msg)
	case common.KindNetwork:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) respond(ctx context.Context, method string, v any, err error) (*structpb.Value, error) {
	if err != nil {
		s.logger.Info(ctx, "call failed", "method", method, "error", err)
		return nil, toStatus(err)
	}
	out, err := bankapi.Encode(v)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func requireID(req *structpb.Struct) (string, error) {
	id := bankapi.StringField(req, bankapi.FieldID)
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "id is required")
	}
	return id, nil
}

func (s *GRPCServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	a, err := s.bank.Account(ctx)
	return s.respond(ctx, bankapi.MethodGetAccount, a, err)
}

func (s *GRPCServer) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	page := bankapi.IntField(req, bankapi.FieldPage, 0)
	size := bankapi.IntField(req, bankapi.FieldSize, 20)
	txs, err := s.bank.Transactions(ctx, page, size)
	return s.respond(ctx, bankapi.MethodListTransactions, txs, err)
}

func (s *GRPCServer) GetTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	t, err := s.bank.Transaction(ctx, id)
	return s.respond(ctx, bankapi.MethodGetTransaction, t, err)
}

func (s *GRPCServer) ListCards(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	cards, err := s.bank.Cards(ctx)
	return s.respond(ctx, bankapi.MethodListCards, cards, err)
}

func (s *GRPCServer) GetCard(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	c, err := s.bank.Card(ctx, id)
	return s.respond(ctx, bankapi.MethodGetCard, c, err)
}

func (s *GRPCServer) ToggleCard(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	c, err := s.bank.ToggleCard(ctx, id, bankapi.BoolField(req, bankapi.FieldActive))
	if err == nil {
		s.logger.Info(ctx, "card toggled", "card", id, "active", c.IsActive, "subject", SubjectFromContext(ctx))
	}
	return s.respond(ctx, bankapi.MethodToggleCard, c, err)
}
