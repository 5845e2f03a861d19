// Package cards stores sealed payment card rows.
package cards

import (
	"context"

	"github.com/dmitrijs2005/securebank/internal/client/models"
)

type Repository interface {
	List(ctx context.Context) ([]models.CardRow, error)
	// GetByID returns common.ErrNotFound when the row is absent.
	GetByID(ctx context.Context, id string) (*models.CardRow, error)
	Replace(ctx context.Context, rows []models.CardRow) error
	Upsert(ctx context.Context, row models.CardRow) error
	Clear(ctx context.Context) error
}
