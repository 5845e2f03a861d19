package securestore

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/auth"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/securebank/internal/client/storage"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *metadata.SQLiteRepository) {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env, err := cryptox.NewEnvelope(cryptox.NewMemoryKeystore(), "securebank_master_key")
	require.NoError(t, err)
	return New(db, env), metadata.NewSQLiteRepository(db)
}

func TestPutGet_ValueSealedAtRest(t *testing.T) {
	s, raw := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "device.id", "handset-42"))

	v, ok, err := s.Get(ctx, "device.id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "handset-42", v)

	stored, err := raw.Get(ctx, "device.id")
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "handset-42")
}

func TestGet_Absent(t *testing.T) {
	s, _ := newStore(t)
	v, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestGet_TamperedValueIsCryptoError(t *testing.T) {
	s, raw := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", "v"))

	stored, err := raw.Get(ctx, "k")
	require.NoError(t, err)
	stored[3] ^= 0x01
	require.NoError(t, raw.Set(ctx, "k", stored))

	_, _, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrTamperedOrWrongKey)
	assert.True(t, common.IsCrypto(err))
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(w *Writer) error {
		require.NoError(t, w.Put("a", "1"))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfileStore_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ps := NewProfileStore(s)
	ctx := context.Background()

	empty, err := ps.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.Profile{}, empty)

	want := auth.Profile{
		BiometricEnabled: true,
		LastAuthTime:     time.UnixMilli(1710498600000).UTC(),
		FailedAttempts:   2,
		LockoutUntil:     time.UnixMilli(1710499500000).UTC(),
	}
	require.NoError(t, ps.Save(ctx, want))

	got, err := ps.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.LockoutUntil = time.Time{}
	require.NoError(t, ps.Save(ctx, want))
	got, err = ps.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.LockoutUntil.IsZero())
}

func TestProfileStore_ClearLeavesOtherKeys(t *testing.T) {
	s, _ := newStore(t)
	ps := NewProfileStore(s)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "credential.passcode", "x"))
	require.NoError(t, ps.Save(ctx, auth.Profile{BiometricEnabled: true, FailedAttempts: 1}))
	require.NoError(t, ps.Clear(ctx))

	got, err := ps.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.Profile{}, got)

	_, ok, err := s.Get(ctx, "credential.passcode")
	require.NoError(t, err)
	assert.True(t, ok)
}
