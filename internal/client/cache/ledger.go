// Package cache keeps the per-class freshness ledger that decides whether
// locally persisted records may be served without a network round trip.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/cachemeta"
	"github.com/dmitrijs2005/securebank/internal/clock"
)

// TTLPolicy holds the time-to-live of each entity class.
type TTLPolicy struct {
	Account      time.Duration
	Transactions time.Duration
	Cards        time.Duration
}

// DefaultTTLPolicy orders classes by volatility: transactions change most
// often, cards least.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Account:      10 * time.Minute,
		Transactions: 5 * time.Minute,
		Cards:        15 * time.Minute,
	}
}

func (p TTLPolicy) For(class models.EntityClass) time.Duration {
	switch class {
	case models.ClassTransactions:
		return p.Transactions
	case models.ClassCards:
		return p.Cards
	default:
		return p.Account
	}
}

type Ledger struct {
	repo  cachemeta.Repository
	clock clock.Clock
	ttl   TTLPolicy
}

func NewLedger(repo cachemeta.Repository, clk clock.Clock, ttl TTLPolicy) *Ledger {
	return &Ledger{repo: repo, clock: clk, ttl: ttl}
}

func (l *Ledger) TTL() TTLPolicy { return l.ttl }

// Get returns the ledger entry of class, or nil when there is none.
func (l *Ledger) Get(ctx context.Context, class models.EntityClass) (*models.CacheRecord, error) {
	rec, err := l.repo.Get(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache metadata [%s]: %w", class, err)
	}
	return rec, nil
}

func expired(rec *models.CacheRecord, now time.Time) bool {
	return rec == nil ||
		now.After(rec.ExpiryTime) ||
		rec.IsExpired ||
		now.Before(rec.LastFetchTime)
}

func valid(rec *models.CacheRecord, now time.Time) bool {
	return rec != nil &&
		!now.After(rec.ExpiryTime) &&
		!rec.IsExpired &&
		rec.RecordCount > 0 &&
		!now.Before(rec.LastFetchTime)
}

// IsExpired reports whether class must be refetched. A missing entry, an
// invalidated entry and a clock that moved behind the last fetch all count
// as expired.
func (l *Ledger) IsExpired(ctx context.Context, class models.EntityClass) (bool, error) {
	rec, err := l.Get(ctx, class)
	if err != nil {
		return true, err
	}
	return expired(rec, l.clock.Now()), nil
}

// IsValid reports whether cached records of class may be served as fresh.
// Unlike IsExpired it also requires at least one record.
func (l *Ledger) IsValid(ctx context.Context, class models.EntityClass) (bool, error) {
	rec, err := l.Get(ctx, class)
	if err != nil {
		return false, err
	}
	return valid(rec, l.clock.Now()), nil
}

// RecordFetch stamps class as freshly fetched with count records. A stored
// entry with a later fetch time wins.
func (l *Ledger) RecordFetch(ctx context.Context, class models.EntityClass, count int) error {
	now := l.clock.Now()
	rec := models.CacheRecord{
		Class:         class,
		LastFetchTime: now,
		ExpiryTime:    now.Add(l.ttl.For(class)),
		RecordCount:   count,
	}
	if err := l.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to record fetch [%s]: %w", class, err)
	}
	return nil
}

func (l *Ledger) Invalidate(ctx context.Context, class models.EntityClass) error {
	if err := l.repo.MarkExpired(ctx, class); err != nil {
		return fmt.Errorf("failed to invalidate cache [%s]: %w", class, err)
	}
	return nil
}

func (l *Ledger) InvalidateAll(ctx context.Context) error {
	if err := l.repo.MarkAllExpired(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// Clear deletes every ledger entry.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache metadata: %w", err)
	}
	return nil
}

// Status reports every class in models.AllClasses order.
func (l *Ledger) Status(ctx context.Context) (models.CacheStatus, error) {
	recs, err := l.repo.List(ctx)
	if err != nil {
		return models.CacheStatus{}, fmt.Errorf("failed to list cache metadata: %w", err)
	}
	byClass := make(map[models.EntityClass]*models.CacheRecord, len(recs))
	for i := range recs {
		byClass[recs[i].Class] = &recs[i]
	}

	now := l.clock.Now()
	var st models.CacheStatus
	for _, class := range models.AllClasses {
		rec := byClass[class]
		cs := models.ClassStatus{Class: class}
		if rec != nil {
			cs.Cached = !expired(rec, now)
			cs.Valid = valid(rec, now)
			cs.RecordCount = rec.RecordCount
			cs.LastUpdate = rec.LastFetchTime
		}
		st.Classes = append(st.Classes, cs)
	}
	return st, nil
}
