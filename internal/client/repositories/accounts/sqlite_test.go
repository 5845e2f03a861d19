package accounts

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

func row(id string) models.AccountRow {
	return models.AccountRow{
		ID:            id,
		AccountNumber: []byte("sealed-number-" + id),
		AccountType:   "CHECKING",
		Balance:       []byte("sealed-balance"),
		Currency:      "USD",
		IsActive:      true,
		LastUpdated:   1710498600000,
		CreatedDate:   1673773200000,
		SyncStatus:    models.SyncSynced,
	}
}

func TestReplaceAndList(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Replace(ctx, []models.AccountRow{row("acc_1"), row("acc_2")}))
	require.NoError(t, r.Replace(ctx, []models.AccountRow{row("acc_3")}))

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row("acc_3"), got[0])
}

func TestReplace_FailureKeepsPreviousSet(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Replace(ctx, []models.AccountRow{row("acc_1")}))

	_, err := r.db.ExecContext(ctx, `
		CREATE TRIGGER reject_bad BEFORE INSERT ON accounts WHEN NEW.id = 'acc_bad'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	require.Error(t, r.Replace(ctx, []models.AccountRow{row("acc_3"), row("acc_bad")}))

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "acc_1", got[0].ID)
}

func TestReplace_CancelledContextDoesNotPersist(t *testing.T) {
	r := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, r.Replace(ctx, []models.AccountRow{row("acc_1")}))

	got, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetByIDAndUpsert(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.GetByID(ctx, "acc_1")
	require.ErrorIs(t, err, common.ErrNotFound)

	a := row("acc_1")
	require.NoError(t, r.Upsert(ctx, a))
	a.IsActive = false
	require.NoError(t, r.Upsert(ctx, a))

	got, err := r.GetByID(ctx, "acc_1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, r.Clear(ctx))
	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
