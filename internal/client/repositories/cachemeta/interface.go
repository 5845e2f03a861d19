// Package cachemeta persists the per-class freshness ledger.
package cachemeta

import (
	"context"

	"github.com/dmitrijs2005/securebank/internal/client/models"
)

type Repository interface {
	// Get returns (nil, nil) when the class has no entry.
	Get(ctx context.Context, class models.EntityClass) (*models.CacheRecord, error)
	// Upsert replaces the entry of rec.Class.
	Upsert(ctx context.Context, rec models.CacheRecord) error
	// MarkExpired sets the expired flag of one class and keeps the rest.
	MarkExpired(ctx context.Context, class models.EntityClass) error
	MarkAllExpired(ctx context.Context) error
	List(ctx context.Context) ([]models.CacheRecord, error)
	Clear(ctx context.Context) error
}
