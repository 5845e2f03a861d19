package models

import (
	"fmt"
	"time"
)

type CardType string

const (
	CardDebit   CardType = "DEBIT"
	CardCredit  CardType = "CREDIT"
	CardPrepaid CardType = "PREPAID"
)

type CardBrand string

const (
	BrandVisa       CardBrand = "VISA"
	BrandMastercard CardBrand = "MASTERCARD"
	BrandAmex       CardBrand = "AMEX"
)

// Card is a payment card. Number and CVV are only populated when the card
// was explicitly revealed; listings carry the masked number alone.
type Card struct {
	ID           string
	AccountID    string
	Number       string
	MaskedNumber string
	HolderName   string
	ExpiryMonth  int
	ExpiryYear   int
	CVV          string
	Type         CardType
	Brand        CardBrand
	IsActive     bool
	IsBlocked    bool
	DailyLimit   Money
	MonthlyLimit Money
	LastUsed     *time.Time
	CreatedDate  time.Time
	SyncStatus   SyncStatus
}

func (c Card) Expiry() string {
	return fmt.Sprintf("%02d/%02d", c.ExpiryMonth, c.ExpiryYear%100)
}

// Revealed reports whether the secret fields were decrypted.
func (c Card) Revealed() bool { return c.Number != "" }

// MaskCardNumber keeps the last four digits of a card number.
func MaskCardNumber(number string) string {
	if len(number) < 4 {
		return "****"
	}
	return "**** **** **** " + number[len(number)-4:]
}
