package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/securebank/internal/client/storage"
	"github.com/dmitrijs2005/securebank/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "auth.failed_attempts", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "auth.failed_attempts")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_Absent_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_UpsertOverwrites(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestListAndDeletePrefix(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "auth.a", []byte{0xAA}))
	require.NoError(t, r.Set(ctx, "auth.b", []byte{0xBB}))
	require.NoError(t, r.Set(ctx, "authx", []byte{0x01}))
	require.NoError(t, r.Set(ctx, "auth_c", []byte{0x02}))

	m, err := r.List(ctx, "auth.")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"auth.a": {0xAA}, "auth.b": {0xBB}}, m)

	// '_' is literal, not a LIKE wildcard
	m, err = r.List(ctx, "auth_")
	require.NoError(t, err)
	assert.Len(t, m, 1)

	require.NoError(t, r.DeletePrefix(ctx, "auth."))
	all, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDelete_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "x", []byte{0x01}))
	require.NoError(t, r.Delete(ctx, "x"))

	v, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, r.Delete(ctx, "x"))
}

func TestRepository_InsideTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return NewSQLiteRepository(tx).Set(ctx, "k", []byte("v"))
	})
	require.NoError(t, err)

	v, err := NewSQLiteRepository(db).Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]")
	require.ErrorContains(t, r.Set(ctx, "k", nil), "failed to set metadata[k]")
	require.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata[k]")
	require.ErrorContains(t, r.DeletePrefix(ctx, "k"), "failed to delete metadata[k*]")
	_, err = r.List(ctx, "")
	require.ErrorContains(t, err, "failed to list metadata")
}
