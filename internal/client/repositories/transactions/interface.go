// Package transactions stores sealed transaction rows.
package transactions

import (
	"context"

	"github.com/dmitrijs2005/securebank/internal/client/models"
)

type Repository interface {
	// List returns rows newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit, offset int) ([]models.TransactionRow, error)
	Count(ctx context.Context) (int, error)
	// GetByID returns common.ErrNotFound when the row is absent.
	GetByID(ctx context.Context, id string) (*models.TransactionRow, error)
	Replace(ctx context.Context, rows []models.TransactionRow) error
	Upsert(ctx context.Context, row models.TransactionRow) error
	Clear(ctx context.Context) error
}
