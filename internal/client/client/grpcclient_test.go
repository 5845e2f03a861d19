package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/securebank/internal/bankapi"
	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// fakeBank records the last request and answers with preset values.
type fakeBank struct {
	mu      sync.Mutex
	lastReq *structpb.Struct
	lastMD  metadata.MD
	resp    any
	err     error
}

func (f *fakeBank) handle(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	f.lastMD, _ = metadata.FromIncomingContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return bankapi.Encode(f.resp)
}

func (f *fakeBank) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	return f.handle(ctx, req)
}
func (f *fakeBank) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	return f.handle(ctx, req)
}
func (f *fakeBank) GetTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	return f.handle(ctx, req)
}
func (f *fakeBank) ListCards(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	return f.handle(ctx, req)
}
func (f *fakeBank) GetCard(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	return f.handle(ctx, req)
}
func (f *fakeBank) ToggleCard(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	return f.handle(ctx, req)
}

func startBank(t *testing.T, bank *fakeBank, tokens TokenSource) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	bankapi.RegisterServer(srv, bank)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", tokens, time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAccount_DecodesAndSendsMetadata(t *testing.T) {
	bank := &fakeBank{resp: models.AccountDTO{
		ID:            "acc_12345",
		AccountNumber: "1234567890",
		Balance:       models.MoneyDTO{Amount: "2547.83", Currency: "USD"},
	}}
	c := startBank(t, bank, StaticToken("tok-1"))

	got, err := c.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc_12345", got.ID)
	assert.Equal(t, "2547.83", got.Balance.Amount)

	assert.Equal(t, []string{"tok-1"}, bank.lastMD.Get(common.AccessTokenHeaderName))
	require.Len(t, bank.lastMD.Get(common.RequestIDHeaderName), 1)
	assert.Len(t, bank.lastMD.Get(common.RequestIDHeaderName)[0], 36)
}

func TestNoTokenNoHeader(t *testing.T) {
	bank := &fakeBank{resp: []models.CardDTO{}}
	c := startBank(t, bank, StaticToken(""))

	_, err := c.Cards(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bank.lastMD.Get(common.AccessTokenHeaderName))
}

func TestTransactions_SendsPaging(t *testing.T) {
	bank := &fakeBank{resp: []models.TransactionDTO{{ID: "txn_001"}, {ID: "txn_002"}}}
	c := startBank(t, bank, nil)

	got, err := c.Transactions(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, bankapi.IntField(bank.lastReq, bankapi.FieldPage, -1))
	assert.Equal(t, 20, bankapi.IntField(bank.lastReq, bankapi.FieldSize, -1))
}

func TestToggleCard_SendsFields(t *testing.T) {
	bank := &fakeBank{resp: models.CardDTO{ID: "card_001", IsActive: false}}
	c := startBank(t, bank, nil)

	got, err := c.ToggleCard(context.Background(), "card_001", false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "card_001", bankapi.StringField(bank.lastReq, bankapi.FieldID))
	assert.False(t, bankapi.BoolField(bank.lastReq, bankapi.FieldActive))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		code     codes.Code
		kind     common.Kind
		sentinel error
	}{
		{codes.Unauthenticated, common.KindAuthentication, common.ErrInvalidToken},
		{codes.Unavailable, common.KindNetwork, common.ErrUnavailable},
		{codes.ResourceExhausted, common.KindNetwork, common.ErrRateLimited},
		{codes.NotFound, common.KindDataNotFound, common.ErrNotFound},
		{codes.InvalidArgument, common.KindValidation, common.ErrValidation},
		{codes.Internal, common.KindUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			bank := &fakeBank{err: status.Error(tt.code, "boom")}
			c := startBank(t, bank, nil)

			_, err := c.Card(context.Background(), "card_x")
			require.Error(t, err)
			assert.Equal(t, tt.kind, common.KindOf(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestDecodeFailureIsValidation(t *testing.T) {
	bank := &fakeBank{resp: "not an account"}
	c := startBank(t, bank, nil)

	_, err := c.Account(context.Background())
	assert.Equal(t, common.KindValidation, common.KindOf(err))
}
