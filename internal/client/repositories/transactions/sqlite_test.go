package transactions

import (
	"context"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/client/storage"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db)
}

func row(n int) models.TransactionRow {
	return models.TransactionRow{
		ID:          fmt.Sprintf("txn_%03d", n),
		AccountID:   "acc_12345",
		Amount:      []byte("sealed-amount"),
		Currency:    "USD",
		Type:        "PAYMENT",
		Status:      "COMPLETED",
		Description: []byte("sealed-description"),
		Reference:   fmt.Sprintf("REF-%d", n),
		Date:        int64(1710000000000 + n*1000),
		SyncStatus:  models.SyncSynced,
	}
}

func TestReplace_ListNewestFirstWithPaging(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Replace(ctx, []models.TransactionRow{row(1), row(2), row(3), row(4), row(5)}))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	page, err := r.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "txn_005", page[0].ID)
	assert.Equal(t, "txn_004", page[1].ID)

	page, err = r.List(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "txn_001", page[0].ID)

	all, err := r.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestOptionalBlobsRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	with := row(1)
	with.RecipientName = []byte("sealed-recipient")
	with.BalanceAfter = []byte("sealed-balance")
	require.NoError(t, r.Replace(ctx, []models.TransactionRow{with, row(2)}))

	got, err := r.GetByID(ctx, "txn_001")
	require.NoError(t, err)
	assert.Equal(t, with, *got)

	bare, err := r.GetByID(ctx, "txn_002")
	require.NoError(t, err)
	assert.Empty(t, bare.RecipientName)
	assert.Empty(t, bare.BalanceAfter)
}

func TestGetByID_NotFound(t *testing.T) {
	_, err := newRepo(t).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsertAndClear(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, row(1)))
	require.NoError(t, r.Upsert(ctx, row(1)))
	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.Clear(ctx))
	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
