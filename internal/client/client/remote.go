// Package client talks to the bank backend. GRPCClient is the transport,
// Resilient decorates any Remote with a circuit breaker and bounded retry
// of transient failures.
package client

import (
	"context"

	"github.com/dmitrijs2005/securebank/internal/client/models"
)

// Remote is the remote fetch collaborator. Errors carry a common.Kind.
type Remote interface {
	Account(ctx context.Context) (models.AccountDTO, error)
	// Transactions returns the page-th page (zero based) of size items.
	Transactions(ctx context.Context, page, size int) ([]models.TransactionDTO, error)
	Transaction(ctx context.Context, id string) (models.TransactionDTO, error)
	Cards(ctx context.Context) ([]models.CardDTO, error)
	Card(ctx context.Context, id string) (models.CardDTO, error)
	ToggleCard(ctx context.Context, id string, active bool) (models.CardDTO, error)
}

// TokenSource supplies the current session token; "" means none.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }
