package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/cachemeta"
	"github.com/dmitrijs2005/securebank/internal/client/storage"
	"github.com/dmitrijs2005/securebank/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) (*Ledger, *clock.Fake) {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clk := clock.NewFake(t0)
	return NewLedger(cachemeta.NewSQLiteRepository(db), clk, DefaultTTLPolicy()), clk
}

func TestDefaultTTLPolicy_Ordering(t *testing.T) {
	p := DefaultTTLPolicy()
	assert.Less(t, p.For(models.ClassTransactions), p.For(models.ClassAccount))
	assert.Less(t, p.For(models.ClassAccount), p.For(models.ClassCards))
}

func TestNoMetadata(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	exp, err := l.IsExpired(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.True(t, exp)

	ok, err := l.IsValid(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordFetch_ValidUntilTTL(t *testing.T) {
	l, clk := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordFetch(ctx, models.ClassTransactions, 5))

	ok, err := l.IsValid(ctx, models.ClassTransactions)
	require.NoError(t, err)
	assert.True(t, ok)

	// expiry is inclusive
	clk.Advance(5 * time.Minute)
	ok, err = l.IsValid(ctx, models.ClassTransactions)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(time.Millisecond)
	ok, err = l.IsValid(ctx, models.ClassTransactions)
	require.NoError(t, err)
	assert.False(t, ok)
	exp, err := l.IsExpired(ctx, models.ClassTransactions)
	require.NoError(t, err)
	assert.True(t, exp)
}

func TestZeroRecordsIsNotValid(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordFetch(ctx, models.ClassCards, 0))

	exp, err := l.IsExpired(ctx, models.ClassCards)
	require.NoError(t, err)
	assert.False(t, exp)
	ok, err := l.IsValid(ctx, models.ClassCards)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClockMovedBackwards(t *testing.T) {
	l, clk := newLedger(t)
	ctx := context.Background()
	require.NoError(t, l.RecordFetch(ctx, models.ClassAccount, 1))

	clk.Set(t0.Add(-time.Second))

	exp, err := l.IsExpired(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.True(t, exp)
	ok, err := l.IsValid(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.False(t, ok)

	// a fetch under the moved clock describes the records now stored
	require.NoError(t, l.RecordFetch(ctx, models.ClassAccount, 9))
	rec, err := l.Get(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(-time.Second), rec.LastFetchTime)
	assert.Equal(t, 9, rec.RecordCount)
	ok, err = l.IsValid(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidate(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	require.NoError(t, l.RecordFetch(ctx, models.ClassAccount, 1))
	require.NoError(t, l.RecordFetch(ctx, models.ClassCards, 2))

	require.NoError(t, l.Invalidate(ctx, models.ClassAccount))
	ok, err := l.IsValid(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = l.IsValid(ctx, models.ClassCards)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := l.Get(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.RecordCount)

	require.NoError(t, l.InvalidateAll(ctx))
	ok, err = l.IsValid(ctx, models.ClassCards)
	require.NoError(t, err)
	assert.False(t, ok)

	// a new fetch clears the flag
	require.NoError(t, l.RecordFetch(ctx, models.ClassCards, 2))
	ok, err = l.IsValid(ctx, models.ClassCards)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatusAndClear(t *testing.T) {
	l, clk := newLedger(t)
	ctx := context.Background()

	st, err := l.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.Classes, 3)
	assert.False(t, st.HasAnyCache())

	require.NoError(t, l.RecordFetch(ctx, models.ClassAccount, 1))
	require.NoError(t, l.RecordFetch(ctx, models.ClassTransactions, 5))
	require.NoError(t, l.RecordFetch(ctx, models.ClassCards, 2))

	st, err = l.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsFullyCached())
	assert.Equal(t, models.ClassTransactions, st.Classes[1].Class)
	assert.Equal(t, 5, st.Classes[1].RecordCount)
	assert.Equal(t, t0, st.Classes[1].LastUpdate)

	clk.Advance(6 * time.Minute)
	st, err = l.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.HasAnyCache())
	assert.False(t, st.IsFullyCached())
	assert.False(t, st.Classes[1].Cached)

	require.NoError(t, l.Clear(ctx))
	rec, err := l.Get(ctx, models.ClassAccount)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
