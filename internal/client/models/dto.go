package models

// DTOs mirror the JSON documents exchanged with the bank backend.

type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type AccountDTO struct {
	ID            string   `json:"id"`
	AccountNumber string   `json:"accountNumber"`
	AccountType   string   `json:"accountType"`
	Balance       MoneyDTO `json:"balance"`
	Currency      string   `json:"currency"`
	IsActive      bool     `json:"isActive"`
	LastUpdated   string   `json:"lastUpdated"`
	CreatedDate   string   `json:"createdDate"`
}

type TransactionDTO struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"accountId"`
	Amount           MoneyDTO  `json:"amount"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	Description      string    `json:"description"`
	RecipientName    *string   `json:"recipientName"`
	RecipientAccount *string   `json:"recipientAccount"`
	Reference        *string   `json:"reference"`
	Date             string    `json:"date"`
	BalanceAfter     *MoneyDTO `json:"balanceAfter"`
}

type CardDTO struct {
	ID           string   `json:"id"`
	AccountID    string   `json:"accountId"`
	CardNumber   string   `json:"cardNumber"`
	MaskedNumber string   `json:"maskedNumber"`
	HolderName   string   `json:"holderName"`
	ExpiryMonth  int      `json:"expiryMonth"`
	ExpiryYear   int      `json:"expiryYear"`
	CVV          string   `json:"cvv"`
	CardType     string   `json:"cardType"`
	Brand        string   `json:"brand"`
	IsActive     bool     `json:"isActive"`
	IsBlocked    bool     `json:"isBlocked"`
	DailyLimit   MoneyDTO `json:"dailyLimit"`
	MonthlyLimit MoneyDTO `json:"monthlyLimit"`
	LastUsed     *string  `json:"lastUsed"`
	CreatedDate  string   `json:"createdDate"`
}
