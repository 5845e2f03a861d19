package models

import "time"

type AccountType string

const (
	AccountChecking   AccountType = "CHECKING"
	AccountSavings    AccountType = "SAVINGS"
	AccountCredit     AccountType = "CREDIT"
	AccountInvestment AccountType = "INVESTMENT"
)

// Account is a bank account with cleartext fields, alive only in memory.
type Account struct {
	ID            string
	AccountNumber string
	Type          AccountType
	Balance       Money
	Currency      string
	IsActive      bool
	LastUpdated   time.Time
	CreatedDate   time.Time
	SyncStatus    SyncStatus
}

// MaskedNumber shows only the last four digits of the account number.
func (a Account) MaskedNumber() string {
	return maskTail(a.AccountNumber, 4)
}

func maskTail(s string, keep int) string {
	if len(s) <= keep {
		return s
	}
	return "****" + s[len(s)-keep:]
}
