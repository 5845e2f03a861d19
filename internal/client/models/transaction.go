package models

import "time"

type TransactionType string

const (
	TxDeposit        TransactionType = "DEPOSIT"
	TxWithdrawal     TransactionType = "WITHDRAWAL"
	TxTransferIn     TransactionType = "TRANSFER_IN"
	TxTransferOut    TransactionType = "TRANSFER_OUT"
	TxPayment        TransactionType = "PAYMENT"
	TxFee            TransactionType = "FEE"
	TxInterest       TransactionType = "INTEREST"
	TxRefund         TransactionType = "REFUND"
	TxATMWithdrawal  TransactionType = "ATM_WITHDRAWAL"
	TxOnlinePurchase TransactionType = "ONLINE_PURCHASE"
	TxDirectDebit    TransactionType = "DIRECT_DEBIT"
)

type TransactionStatus string

const (
	TxPending    TransactionStatus = "PENDING"
	TxCompleted  TransactionStatus = "COMPLETED"
	TxFailed     TransactionStatus = "FAILED"
	TxCancelled  TransactionStatus = "CANCELLED"
	TxProcessing TransactionStatus = "PROCESSING"
)

type Transaction struct {
	ID               string
	AccountID        string
	Amount           Money
	Type             TransactionType
	Status           TransactionStatus
	Description      string
	RecipientName    string
	RecipientAccount string
	Reference        string
	Date             time.Time
	// BalanceAfter is nil when the server did not report it.
	BalanceAfter *Money
	SyncStatus   SyncStatus
}

// Page returns the page-th slice (zero based) of size items.
func Page[T any](items []T, page, size int) []T {
	if size <= 0 || page < 0 {
		return items
	}
	start := page * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
