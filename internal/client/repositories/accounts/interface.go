// Package accounts stores sealed account rows.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/securebank/internal/client/models"
)

type Repository interface {
	List(ctx context.Context) ([]models.AccountRow, error)
	// GetByID returns common.ErrNotFound when the row is absent.
	GetByID(ctx context.Context, id string) (*models.AccountRow, error)
	// Replace atomically swaps the stored set for rows.
	Replace(ctx context.Context, rows []models.AccountRow) error
	Upsert(ctx context.Context, row models.AccountRow) error
	Clear(ctx context.Context) error
}
