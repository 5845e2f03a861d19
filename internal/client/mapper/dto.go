// Package mapper converts between remote DTOs, in-memory domain records and
// sealed storage rows.
package mapper

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05"}

// ParseDate accepts ISO-8601 date-times with or without a zone offset.
// Values without an offset are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", common.ErrValidation, s)
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func moneyFromDTO(d models.MoneyDTO) (models.Money, error) {
	m, err := models.ParseMoney(d.Amount, d.Currency)
	if err != nil {
		return models.Money{}, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return m, nil
}

func MoneyToDTO(m models.Money) models.MoneyDTO {
	return models.MoneyDTO{Amount: m.Amount.String(), Currency: m.Currency}
}

func AccountFromDTO(d models.AccountDTO) (models.Account, error) {
	const op = "map account"
	balance, err := moneyFromDTO(d.Balance)
	if err != nil {
		return models.Account{}, common.ValidationError(op, err)
	}
	updated, err := ParseDate(d.LastUpdated)
	if err != nil {
		return models.Account{}, common.ValidationError(op, err)
	}
	created, err := ParseDate(d.CreatedDate)
	if err != nil {
		return models.Account{}, common.ValidationError(op, err)
	}
	currency := d.Currency
	if currency == "" {
		currency = balance.Currency
	}
	return models.Account{
		ID:            d.ID,
		AccountNumber: d.AccountNumber,
		Type:          models.AccountType(d.AccountType),
		Balance:       balance,
		Currency:      currency,
		IsActive:      d.IsActive,
		LastUpdated:   updated,
		CreatedDate:   created,
		SyncStatus:    models.SyncSynced,
	}, nil
}

func TransactionFromDTO(d models.TransactionDTO) (models.Transaction, error) {
	const op = "map transaction"
	amount, err := moneyFromDTO(d.Amount)
	if err != nil {
		return models.Transaction{}, common.ValidationError(op, err)
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return models.Transaction{}, common.ValidationError(op, err)
	}
	tx := models.Transaction{
		ID:               d.ID,
		AccountID:        d.AccountID,
		Amount:           amount,
		Type:             models.TransactionType(d.Type),
		Status:           models.TransactionStatus(d.Status),
		Description:      d.Description,
		RecipientName:    deref(d.RecipientName),
		RecipientAccount: deref(d.RecipientAccount),
		Reference:        deref(d.Reference),
		Date:             date,
		SyncStatus:       models.SyncSynced,
	}
	if d.BalanceAfter != nil {
		after, err := moneyFromDTO(*d.BalanceAfter)
		if err != nil {
			return models.Transaction{}, common.ValidationError(op, err)
		}
		tx.BalanceAfter = &after
	}
	return tx, nil
}

func CardFromDTO(d models.CardDTO) (models.Card, error) {
	const op = "map card"
	daily, err := moneyFromDTO(d.DailyLimit)
	if err != nil {
		return models.Card{}, common.ValidationError(op, err)
	}
	monthly, err := moneyFromDTO(d.MonthlyLimit)
	if err != nil {
		return models.Card{}, common.ValidationError(op, err)
	}
	created, err := ParseDate(d.CreatedDate)
	if err != nil {
		return models.Card{}, common.ValidationError(op, err)
	}
	masked := d.MaskedNumber
	if masked == "" {
		masked = models.MaskCardNumber(d.CardNumber)
	}
	c := models.Card{
		ID:           d.ID,
		AccountID:    d.AccountID,
		Number:       d.CardNumber,
		MaskedNumber: masked,
		HolderName:   d.HolderName,
		ExpiryMonth:  d.ExpiryMonth,
		ExpiryYear:   d.ExpiryYear,
		CVV:          d.CVV,
		Type:         models.CardType(d.CardType),
		Brand:        models.CardBrand(d.Brand),
		IsActive:     d.IsActive,
		IsBlocked:    d.IsBlocked,
		DailyLimit:   daily,
		MonthlyLimit: monthly,
		CreatedDate:  created,
		SyncStatus:   models.SyncSynced,
	}
	if d.LastUsed != nil {
		lu, err := ParseDate(*d.LastUsed)
		if err != nil {
			return models.Card{}, common.ValidationError(op, err)
		}
		c.LastUsed = &lu
	}
	return c, nil
}

// The *ToDTO functions are used by the mock server to serve fixtures.

func AccountToDTO(a models.Account) models.AccountDTO {
	return models.AccountDTO{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		AccountType:   string(a.Type),
		Balance:       MoneyToDTO(a.Balance),
		Currency:      a.Currency,
		IsActive:      a.IsActive,
		LastUpdated:   FormatDate(a.LastUpdated),
		CreatedDate:   FormatDate(a.CreatedDate),
	}
}

func TransactionToDTO(t models.Transaction) models.TransactionDTO {
	d := models.TransactionDTO{
		ID:               t.ID,
		AccountID:        t.AccountID,
		Amount:           MoneyToDTO(t.Amount),
		Type:             string(t.Type),
		Status:           string(t.Status),
		Description:      t.Description,
		RecipientName:    ref(t.RecipientName),
		RecipientAccount: ref(t.RecipientAccount),
		Reference:        ref(t.Reference),
		Date:             FormatDate(t.Date),
	}
	if t.BalanceAfter != nil {
		b := MoneyToDTO(*t.BalanceAfter)
		d.BalanceAfter = &b
	}
	return d
}

func CardToDTO(c models.Card) models.CardDTO {
	d := models.CardDTO{
		ID:           c.ID,
		AccountID:    c.AccountID,
		CardNumber:   c.Number,
		MaskedNumber: c.MaskedNumber,
		HolderName:   c.HolderName,
		ExpiryMonth:  c.ExpiryMonth,
		ExpiryYear:   c.ExpiryYear,
		CVV:          c.CVV,
		CardType:     string(c.Type),
		Brand:        string(c.Brand),
		IsActive:     c.IsActive,
		IsBlocked:    c.IsBlocked,
		DailyLimit:   MoneyToDTO(c.DailyLimit),
		MonthlyLimit: MoneyToDTO(c.MonthlyLimit),
		CreatedDate:  FormatDate(c.CreatedDate),
	}
	if c.LastUsed != nil {
		s := FormatDate(*c.LastUsed)
		d.LastUsed = &s
	}
	return d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
