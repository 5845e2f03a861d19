package client

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote fails the first failN calls with err.
type fakeRemote struct {
	calls int
	failN int
	err   error
}

func (f *fakeRemote) step() error {
	f.calls++
	if f.calls <= f.failN {
		return f.err
	}
	return nil
}

func (f *fakeRemote) Account(ctx context.Context) (models.AccountDTO, error) {
	if err := f.step(); err != nil {
		return models.AccountDTO{}, err
	}
	return models.AccountDTO{ID: "acc_12345"}, nil
}

func (f *fakeRemote) Transactions(ctx context.Context, page, size int) ([]models.TransactionDTO, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return []models.TransactionDTO{{ID: "txn_001"}}, nil
}

func (f *fakeRemote) Transaction(ctx context.Context, id string) (models.TransactionDTO, error) {
	if err := f.step(); err != nil {
		return models.TransactionDTO{}, err
	}
	return models.TransactionDTO{ID: id}, nil
}

func (f *fakeRemote) Cards(ctx context.Context) ([]models.CardDTO, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return []models.CardDTO{{ID: "card_001"}}, nil
}

func (f *fakeRemote) Card(ctx context.Context, id string) (models.CardDTO, error) {
	if err := f.step(); err != nil {
		return models.CardDTO{}, err
	}
	return models.CardDTO{ID: id}, nil
}

func (f *fakeRemote) ToggleCard(ctx context.Context, id string, active bool) (models.CardDTO, error) {
	if err := f.step(); err != nil {
		return models.CardDTO{}, err
	}
	return models.CardDTO{ID: id, IsActive: active}, nil
}

func fastConfig() ResilienceConfig {
	return ResilienceConfig{
		MaxRetries:      2,
		BaseBackoff:     time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		BreakerFailures: 3,
		BreakerTimeout:  time.Hour,
	}
}

var transient = common.NetworkError("remote", common.ErrUnavailable)

func TestResilient_RetriesTransient(t *testing.T) {
	f := &fakeRemote{failN: 2, err: transient}
	r := NewResilient(f, fastConfig(), logging.NopLogger{})

	got, err := r.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc_12345", got.ID)
	assert.Equal(t, 3, f.calls)
}

func TestResilient_GivesUpAfterMaxRetries(t *testing.T) {
	f := &fakeRemote{failN: 10, err: transient}
	cfg := fastConfig()
	cfg.BreakerFailures = 100
	r := NewResilient(f, cfg, logging.NopLogger{})

	_, err := r.Cards(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, 3, f.calls)
}

func TestResilient_DoesNotRetryNonTransient(t *testing.T) {
	for _, e := range []error{
		common.NetworkError("remote", common.ErrRateLimited),
		common.AuthenticationError("remote", common.ErrInvalidToken),
		common.DataNotFoundError("remote", common.ErrNotFound),
	} {
		f := &fakeRemote{failN: 10, err: e}
		r := NewResilient(f, fastConfig(), logging.NopLogger{})

		_, err := r.Card(context.Background(), "card_001")
		require.ErrorIs(t, err, e)
		assert.Equal(t, 1, f.calls)
	}
}

func TestResilient_BreakerOpens(t *testing.T) {
	f := &fakeRemote{failN: 100, err: transient}
	cfg := fastConfig()
	cfg.MaxRetries = 0
	r := NewResilient(f, cfg, logging.NopLogger{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := r.Transactions(ctx, 0, 20)
		require.Error(t, err)
	}
	assert.Equal(t, "open", r.BreakerState())

	_, err := r.Transactions(ctx, 0, 20)
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, common.KindNetwork, common.KindOf(err))
	assert.Equal(t, 3, f.calls)
}

func TestResilient_AuthFailuresDoNotTripBreaker(t *testing.T) {
	f := &fakeRemote{failN: 100, err: common.AuthenticationError("remote", common.ErrInvalidToken)}
	r := NewResilient(f, fastConfig(), logging.NopLogger{})

	for i := 0; i < 5; i++ {
		_, _ = r.Account(context.Background())
	}
	assert.Equal(t, "closed", r.BreakerState())
}

func TestResilient_ToggleNotRetried(t *testing.T) {
	f := &fakeRemote{failN: 1, err: transient}
	r := NewResilient(f, fastConfig(), logging.NopLogger{})

	_, err := r.ToggleCard(context.Background(), "card_001", false)
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, 1, f.calls)

	got, err := r.ToggleCard(context.Background(), "card_001", false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
