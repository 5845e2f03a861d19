package models

// The *Row types are the at-rest form of domain records. Fields of type
// []byte hold sealed, encoded blobs; everything else is stored in the clear.
// Timestamps are Unix milliseconds in UTC.

type AccountRow struct {
	ID            string
	AccountNumber []byte
	AccountType   string
	Balance       []byte
	Currency      string
	IsActive      bool
	LastUpdated   int64
	CreatedDate   int64
	SyncStatus    SyncStatus
}

type TransactionRow struct {
	ID               string
	AccountID        string
	Amount           []byte
	Currency         string
	Type             string
	Status           string
	Description      []byte
	RecipientName    []byte
	RecipientAccount []byte
	Reference        string
	Date             int64
	BalanceAfter     []byte
	SyncStatus       SyncStatus
}

type CardRow struct {
	ID           string
	AccountID    string
	CardNumber   []byte
	MaskedNumber string
	HolderName   []byte
	ExpiryMonth  int
	ExpiryYear   int
	CVV          []byte
	CardType     string
	Brand        string
	IsActive     bool
	IsBlocked    bool
	DailyLimit   []byte
	MonthlyLimit []byte
	Currency     string
	LastUsed     *int64
	CreatedDate  int64
	SyncStatus   SyncStatus
}
