// Package bankapi declares the gRPC banking service shared by the client
// and the mock server. Requests are google.protobuf.Struct messages and
// responses google.protobuf.Value messages carrying the JSON documents of
// the bank backend, so no generated code is needed.
package bankapi

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "securebank.v1.BankingService"

const (
	MethodGetAccount       = "GetAccount"
	MethodListTransactions = "ListTransactions"
	MethodGetTransaction   = "GetTransaction"
	MethodListCards        = "ListCards"
	MethodGetCard          = "GetCard"
	MethodToggleCard       = "ToggleCard"
)

// Request field names.
const (
	FieldID     = "id"
	FieldPage   = "page"
	FieldSize   = "size"
	FieldActive = "active"
)

// FullMethod returns the gRPC method path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// Server handles banking calls. Every method receives the request fields
// and answers with a JSON-compatible document.
type Server interface {
	GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	GetTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	ListCards(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	GetCard(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	ToggleCard(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
}

type handlerFunc func(s Server, ctx context.Context, req *structpb.Struct) (*structpb.Value, error)

func unary(name string, call handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(Server), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(Server), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes the banking service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetAccount, Server.GetAccount),
		unary(MethodListTransactions, Server.ListTransactions),
		unary(MethodGetTransaction, Server.GetTransaction),
		unary(MethodListCards, Server.ListCards),
		unary(MethodGetCard, Server.GetCard),
		unary(MethodToggleCard, Server.ToggleCard),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "securebank/v1/banking.proto",
}

func RegisterServer(r grpc.ServiceRegistrar, s Server) {
	r.RegisterService(&ServiceDesc, s)
}

// Encode converts a JSON-tagged Go value into a protobuf Value.
func Encode(v any) (*structpb.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	out := new(structpb.Value)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return out, nil
}

// Decode fills the JSON-tagged Go value out from a protobuf Value.
func Decode(v *structpb.Value, out any) error {
	raw, err := protojson.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// StringField returns the string field name of req, or "".
func StringField(req *structpb.Struct, name string) string {
	if v, ok := req.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

// IntField returns the numeric field name of req, or def when absent.
func IntField(req *structpb.Struct, name string, def int) int {
	if v, ok := req.GetFields()[name]; ok {
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
			return int(v.GetNumberValue())
		}
	}
	return def
}

func BoolField(req *structpb.Struct, name string) bool {
	if v, ok := req.GetFields()[name]; ok {
		return v.GetBoolValue()
	}
	return false
}
