package cards

import (
	"context"
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

func row(id string, created int64) models.CardRow {
	return models.CardRow{
		ID:           id,
		AccountID:    "acc_12345",
		CardNumber:   []byte("sealed-pan"),
		MaskedNumber: "**** **** **** 9012",
		HolderName:   []byte("sealed-holder"),
		ExpiryMonth:  12,
		ExpiryYear:   2027,
		CVV:          []byte("sealed-cvv"),
		CardType:     "DEBIT",
		Brand:        "VISA",
		IsActive:     true,
		DailyLimit:   []byte("sealed-daily"),
		MonthlyLimit: []byte("sealed-monthly"),
		Currency:     "USD",
		CreatedDate:  created,
		SyncStatus:   models.SyncSynced,
	}
}

func TestReplaceListAndLastUsed(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	used := int64(1710493200000)
	first := row("card_001", 2)
	first.LastUsed = &used
	second := row("card_002", 1)

	require.NoError(t, r.Replace(ctx, []models.CardRow{first, second}))

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second, got[0], "ordered by creation")
	assert.Equal(t, first, got[1])
	require.NotNil(t, got[1].LastUsed)
	assert.Equal(t, used, *got[1].LastUsed)
}

func TestUpsert_TogglesActive(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	c := row("card_001", 1)
	require.NoError(t, r.Upsert(ctx, c))
	c.IsActive = false
	c.SyncStatus = models.SyncPending
	require.NoError(t, r.Upsert(ctx, c))

	got, err := r.GetByID(ctx, "card_001")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, models.SyncPending, got.SyncStatus)
}

func TestGetByID_NotFoundAndClear(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.GetByID(ctx, "card_404")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, r.Replace(ctx, []models.CardRow{row("card_001", 1)}))
	require.NoError(t, r.Clear(ctx))
	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
