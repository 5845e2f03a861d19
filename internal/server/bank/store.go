// Package bank holds the in-memory data set served by the mock bank
// backend.
package bank

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
)

//go:embed fixtures.json
var fixtures []byte

type dataset struct {
	Account      models.AccountDTO       `json:"account"`
	Transactions []models.TransactionDTO `json:"transactions"`
	Cards        []models.CardDTO        `json:"cards"`
}

// Store serves one account with its transactions and cards. Card toggles
// are kept in memory for the life of the process.
type Store struct {
	mu           sync.RWMutex
	account      models.AccountDTO
	transactions []models.TransactionDTO
	cards        []models.CardDTO
}

// NewStore loads the built-in fixtures.
func NewStore() (*Store, error) {
	return LoadStore(fixtures)
}

// LoadStore builds a Store from a JSON data set. Transactions are kept
// newest first.
func LoadStore(data []byte) (*Store, error) {
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	sort.SliceStable(ds.Transactions, func(i, j int) bool {
		return ds.Transactions[i].Date > ds.Transactions[j].Date
	})
	return &Store{account: ds.Account, transactions: ds.Transactions, cards: ds.Cards}, nil
}

func notFound(op, what, id string) error {
	return common.DataNotFoundError(op, fmt.Errorf("%w: %s %s", common.ErrNotFound, what, id))
}

func (s *Store) Account(ctx context.Context) (models.AccountDTO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account, nil
}

// Transactions returns the page-th page (zero based) of size items. A page
// past the end is empty.
func (s *Store) Transactions(ctx context.Context, page, size int) ([]models.TransactionDTO, error) {
	if page < 0 || size <= 0 {
		return nil, common.ValidationError("list transactions",
			fmt.Errorf("%w: page %d size %d", common.ErrValidation, page, size))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TransactionDTO{}, models.Page(s.transactions, page, size)...), nil
}

func (s *Store) Transaction(ctx context.Context, id string) (models.TransactionDTO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return models.TransactionDTO{}, notFound("get transaction", "transaction", id)
}

func (s *Store) Cards(ctx context.Context) ([]models.CardDTO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CardDTO{}, s.cards...), nil
}

func (s *Store) Card(ctx context.Context, id string) (models.CardDTO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return models.CardDTO{}, notFound("get card", "card", id)
}

// ToggleCard activates or freezes a card. Blocked cards cannot be
// activated.
func (s *Store) ToggleCard(ctx context.Context, id string, active bool) (models.CardDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cards {
		if s.cards[i].ID != id {
			continue
		}
		if active && s.cards[i].IsBlocked {
			return models.CardDTO{}, common.ValidationError("toggle card",
				fmt.Errorf("%w: card %s is blocked", common.ErrValidation, id))
		}
		s.cards[i].IsActive = active
		return s.cards[i], nil
	}
	return models.CardDTO{}, notFound("toggle card", "card", id)
}
