package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("-85.00", "usd")
	require.NoError(t, err)
	assert.True(t, m.Amount.Equal(decimal.RequireFromString("-85")))
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, "-$85.00", m.String())

	jpy, err := ParseMoney("1500", "JPY")
	require.NoError(t, err)
	assert.Equal(t, "¥1500", jpy.String())

	_, err = ParseMoney("1.00", "XYZ")
	assert.Error(t, err)
	_, err = ParseMoney("1.00", "CHF")
	assert.Error(t, err, "valid ISO code outside the supported set")
	_, err = ParseMoney("one", "USD")
	assert.Error(t, err)
}

func TestParseEntityClass(t *testing.T) {
	c, err := ParseEntityClass("CARDS")
	require.NoError(t, err)
	assert.Equal(t, ClassCards, c)

	_, err = ParseEntityClass("cards")
	assert.Error(t, err)
}

func TestCacheStatus(t *testing.T) {
	var empty CacheStatus
	assert.False(t, empty.HasAnyCache())
	assert.False(t, empty.IsFullyCached())

	s := CacheStatus{Classes: []ClassStatus{{Class: ClassAccount, Cached: true}, {Class: ClassCards}}}
	assert.True(t, s.HasAnyCache())
	assert.False(t, s.IsFullyCached())
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "**** **** **** 9012", MaskCardNumber("4532123456789012"))
	assert.Equal(t, "****", MaskCardNumber("12"))
	assert.Equal(t, "****7890", Account{AccountNumber: "1234567890"}.MaskedNumber())
	assert.Equal(t, "08/26", Card{ExpiryMonth: 8, ExpiryYear: 2026}.Expiry())
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Page(items, 0, 2))
	assert.Equal(t, []int{5}, Page(items, 2, 2))
	assert.Empty(t, Page(items, 3, 2))
	assert.Equal(t, items, Page(items, 0, 0))
}

func TestResult(t *testing.T) {
	var seen []string
	handlers := func(r Result[int]) {
		r.Match(
			func() { seen = append(seen, "loading") },
			func(v int, stale bool) {
				if stale {
					seen = append(seen, "stale")
				} else {
					seen = append(seen, "fresh")
				}
			},
			func(err error) { seen = append(seen, err.Error()) },
		)
	}
	handlers(Loading[int]())
	handlers(StaleSuccess(1))
	handlers(Success(2))
	handlers(Failure[int](errors.New("boom")))
	assert.Equal(t, []string{"loading", "stale", "fresh", "boom"}, seen)

	r := MapResult(StaleSuccess([]int{7, 8}), func(v []int) int { return v[0] })
	assert.Equal(t, 7, r.Data)
	assert.True(t, r.Stale)

	failed := MapResult(Failure[[]int](common.ErrNoConnectivity), func(v []int) int { return v[0] })
	assert.True(t, failed.IsError())
	assert.Equal(t, common.KindNetwork, failed.ErrorKind())
}
