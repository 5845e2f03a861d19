package mapper

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"golang.org/x/sync/errgroup"
)

// Sealer seals and opens string fields.
type Sealer interface {
	SealString(s string) ([]byte, error)
	OpenString(data []byte) (string, error)
}

// Mapper seals domain records into rows and opens them back.
type Mapper struct {
	sealer Sealer
	limit  int
}

func New(sealer Sealer) *Mapper {
	return &Mapper{sealer: sealer, limit: runtime.GOMAXPROCS(0)}
}

// fieldSealer accumulates the first error of a sequence of seal calls.
type fieldSealer struct {
	s   Sealer
	err error
}

func (f *fieldSealer) seal(v string) []byte {
	if f.err != nil {
		return nil
	}
	out, err := f.s.SealString(v)
	if err != nil {
		f.err = err
	}
	return out
}

// sealOptional stores the empty string as NULL.
func (f *fieldSealer) sealOptional(v string) []byte {
	if v == "" {
		return nil
	}
	return f.seal(v)
}

type fieldOpener struct {
	s   Sealer
	err error
}

func (f *fieldOpener) open(b []byte) string {
	if f.err != nil {
		return ""
	}
	out, err := f.s.OpenString(b)
	if err != nil {
		f.err = err
	}
	return out
}

func (f *fieldOpener) openOptional(b []byte) string {
	if b == nil {
		return ""
	}
	return f.open(b)
}

func (f *fieldOpener) money(b []byte, currency string) models.Money {
	amount := f.open(b)
	if f.err != nil {
		return models.Money{}
	}
	m, err := models.ParseMoney(amount, currency)
	if err != nil {
		f.err = common.ValidationError("open money", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return m
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (m *Mapper) AccountToRow(a models.Account) (models.AccountRow, error) {
	f := fieldSealer{s: m.sealer}
	row := models.AccountRow{
		ID:            a.ID,
		AccountNumber: f.seal(a.AccountNumber),
		AccountType:   string(a.Type),
		Balance:       f.seal(a.Balance.Amount.String()),
		Currency:      a.Balance.Currency,
		IsActive:      a.IsActive,
		LastUpdated:   millis(a.LastUpdated),
		CreatedDate:   millis(a.CreatedDate),
		SyncStatus:    a.SyncStatus,
	}
	if f.err != nil {
		return models.AccountRow{}, fmt.Errorf("failed to seal account [%s]: %w", a.ID, f.err)
	}
	return row, nil
}

func (m *Mapper) AccountFromRow(r models.AccountRow) (models.Account, error) {
	f := fieldOpener{s: m.sealer}
	a := models.Account{
		ID:            r.ID,
		AccountNumber: f.open(r.AccountNumber),
		Type:          models.AccountType(r.AccountType),
		Balance:       f.money(r.Balance, r.Currency),
		Currency:      r.Currency,
		IsActive:      r.IsActive,
		LastUpdated:   fromMillis(r.LastUpdated),
		CreatedDate:   fromMillis(r.CreatedDate),
		SyncStatus:    r.SyncStatus,
	}
	if f.err != nil {
		return models.Account{}, fmt.Errorf("failed to open account [%s]: %w", r.ID, f.err)
	}
	return a, nil
}

func (m *Mapper) TransactionToRow(t models.Transaction) (models.TransactionRow, error) {
	f := fieldSealer{s: m.sealer}
	row := models.TransactionRow{
		ID:               t.ID,
		AccountID:        t.AccountID,
		Amount:           f.seal(t.Amount.Amount.String()),
		Currency:         t.Amount.Currency,
		Type:             string(t.Type),
		Status:           string(t.Status),
		Description:      f.seal(t.Description),
		RecipientName:    f.sealOptional(t.RecipientName),
		RecipientAccount: f.sealOptional(t.RecipientAccount),
		Reference:        t.Reference,
		Date:             millis(t.Date),
		SyncStatus:       t.SyncStatus,
	}
	if t.BalanceAfter != nil {
		row.BalanceAfter = f.seal(t.BalanceAfter.Amount.String())
	}
	if f.err != nil {
		return models.TransactionRow{}, fmt.Errorf("failed to seal transaction [%s]: %w", t.ID, f.err)
	}
	return row, nil
}

func (m *Mapper) TransactionFromRow(r models.TransactionRow) (models.Transaction, error) {
	f := fieldOpener{s: m.sealer}
	t := models.Transaction{
		ID:               r.ID,
		AccountID:        r.AccountID,
		Amount:           f.money(r.Amount, r.Currency),
		Type:             models.TransactionType(r.Type),
		Status:           models.TransactionStatus(r.Status),
		Description:      f.open(r.Description),
		RecipientName:    f.openOptional(r.RecipientName),
		RecipientAccount: f.openOptional(r.RecipientAccount),
		Reference:        r.Reference,
		Date:             fromMillis(r.Date),
		SyncStatus:       r.SyncStatus,
	}
	if r.BalanceAfter != nil {
		after := f.money(r.BalanceAfter, r.Currency)
		t.BalanceAfter = &after
	}
	if f.err != nil {
		return models.Transaction{}, fmt.Errorf("failed to open transaction [%s]: %w", r.ID, f.err)
	}
	return t, nil
}

func (m *Mapper) CardToRow(c models.Card) (models.CardRow, error) {
	f := fieldSealer{s: m.sealer}
	row := models.CardRow{
		ID:           c.ID,
		AccountID:    c.AccountID,
		CardNumber:   f.seal(c.Number),
		MaskedNumber: c.MaskedNumber,
		HolderName:   f.seal(c.HolderName),
		ExpiryMonth:  c.ExpiryMonth,
		ExpiryYear:   c.ExpiryYear,
		CVV:          f.seal(c.CVV),
		CardType:     string(c.Type),
		Brand:        string(c.Brand),
		IsActive:     c.IsActive,
		IsBlocked:    c.IsBlocked,
		DailyLimit:   f.seal(c.DailyLimit.Amount.String()),
		MonthlyLimit: f.seal(c.MonthlyLimit.Amount.String()),
		Currency:     c.DailyLimit.Currency,
		CreatedDate:  millis(c.CreatedDate),
		SyncStatus:   c.SyncStatus,
	}
	if c.LastUsed != nil {
		lu := millis(*c.LastUsed)
		row.LastUsed = &lu
	}
	if f.err != nil {
		return models.CardRow{}, fmt.Errorf("failed to seal card [%s]: %w", c.ID, f.err)
	}
	return row, nil
}

// CardFromRow opens a card row. The number and CVV stay sealed unless
// reveal is set.
func (m *Mapper) CardFromRow(r models.CardRow, reveal bool) (models.Card, error) {
	f := fieldOpener{s: m.sealer}
	c := models.Card{
		ID:           r.ID,
		AccountID:    r.AccountID,
		MaskedNumber: r.MaskedNumber,
		HolderName:   f.open(r.HolderName),
		ExpiryMonth:  r.ExpiryMonth,
		ExpiryYear:   r.ExpiryYear,
		Type:         models.CardType(r.CardType),
		Brand:        models.CardBrand(r.Brand),
		IsActive:     r.IsActive,
		IsBlocked:    r.IsBlocked,
		DailyLimit:   f.money(r.DailyLimit, r.Currency),
		MonthlyLimit: f.money(r.MonthlyLimit, r.Currency),
		CreatedDate:  fromMillis(r.CreatedDate),
		SyncStatus:   r.SyncStatus,
	}
	if reveal {
		c.Number = f.open(r.CardNumber)
		c.CVV = f.open(r.CVV)
	}
	if r.LastUsed != nil {
		lu := fromMillis(*r.LastUsed)
		c.LastUsed = &lu
	}
	if f.err != nil {
		return models.Card{}, fmt.Errorf("failed to open card [%s]: %w", r.ID, f.err)
	}
	return c, nil
}

// MapAll applies fn to every item on a bounded pool of goroutines and keeps
// the input order. The first error cancels the remaining work.
func MapAll[In, Out any](ctx context.Context, limit int, in []In, fn func(In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(in))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i := range in {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := fn(in[i])
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mapper) TransactionsToRows(ctx context.Context, txs []models.Transaction) ([]models.TransactionRow, error) {
	return MapAll(ctx, m.limit, txs, m.TransactionToRow)
}

func (m *Mapper) TransactionsFromRows(ctx context.Context, rows []models.TransactionRow) ([]models.Transaction, error) {
	return MapAll(ctx, m.limit, rows, m.TransactionFromRow)
}

func (m *Mapper) CardsToRows(ctx context.Context, cards []models.Card) ([]models.CardRow, error) {
	return MapAll(ctx, m.limit, cards, m.CardToRow)
}

// CardsFromRows opens card rows for listing; numbers and CVVs stay sealed.
func (m *Mapper) CardsFromRows(ctx context.Context, rows []models.CardRow) ([]models.Card, error) {
	return MapAll(ctx, m.limit, rows, func(r models.CardRow) (models.Card, error) {
		return m.CardFromRow(r, false)
	})
}
