package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"golang.org/x/sync/errgroup"
)

// CacheLedger is the part of cache.Ledger the sync service administers.
type CacheLedger interface {
	Status(ctx context.Context) (models.CacheStatus, error)
	InvalidateAll(ctx context.Context) error
	Clear(ctx context.Context) error
}

// Clearer empties one local store. The record repositories implement it.
type Clearer interface {
	Clear(ctx context.Context) error
}

// SyncService refreshes and administers the local cache as a whole.
type SyncService interface {
	// RefreshAll refreshes every class concurrently and reports the first
	// failure in account, transactions, cards order.
	RefreshAll(ctx context.Context) error
	Status(ctx context.Context) (models.CacheStatus, error)
	// InvalidateAll marks every class stale; records stay readable.
	InvalidateAll(ctx context.Context) error
	// ClearCache drops the ledger and every cached record. It needs no
	// session so that logout can wipe the device.
	ClearCache(ctx context.Context) error
}

type syncService struct {
	env          Env
	ledger       CacheLedger
	accounts     AccountService
	transactions TransactionService
	cards        CardService
	stores       []Clearer
	logger       logging.Logger
}

func NewSyncService(env Env, ledger CacheLedger, accounts AccountService, transactions TransactionService, cards CardService, stores ...Clearer) SyncService {
	return &syncService{
		env:          env,
		ledger:       ledger,
		accounts:     accounts,
		transactions: transactions,
		cards:        cards,
		stores:       stores,
		logger:       env.logger("sync"),
	}
}

// settle drains a refresh stream and reports whether it ended with fresh
// data.
func settle[T any](op string, ch <-chan models.Result[T]) error {
	var last models.Result[T]
	seen := false
	for r := range ch {
		last, seen = r, true
	}
	switch {
	case !seen:
		return common.UnknownError(op, fmt.Errorf("refresh ended without a result"))
	case last.IsError():
		return last.Err
	case last.IsLoading(), last.Stale:
		return common.NetworkError(op, fmt.Errorf("%w: fresh data was not received", common.ErrUnavailable))
	}
	return nil
}

func (s *syncService) RefreshAll(ctx context.Context) error {
	const op = "refresh all"
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return err
	}
	if !s.env.Conn.IsConnected() {
		return common.NetworkError(op, common.ErrNoConnectivity)
	}

	var errs [3]error
	var g errgroup.Group
	g.Go(func() error {
		errs[0] = settle("refresh account", s.accounts.Account(ctx, true))
		return nil
	})
	g.Go(func() error {
		errs[1] = settle("refresh transactions", s.transactions.History(ctx, 0, DefaultPageSize, true))
		return nil
	})
	g.Go(func() error {
		errs[2] = settle("refresh cards", s.cards.Cards(ctx, true))
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return common.Classify(op, err)
	}
	for _, err := range errs {
		if err != nil {
			s.logger.Warn(ctx, "refresh incomplete", "error", err)
			return err
		}
	}
	s.logger.Info(ctx, "all data refreshed")
	return nil
}

func (s *syncService) Status(ctx context.Context) (models.CacheStatus, error) {
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return models.CacheStatus{}, err
	}
	return s.ledger.Status(ctx)
}

func (s *syncService) InvalidateAll(ctx context.Context) error {
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return err
	}
	return s.ledger.InvalidateAll(ctx)
}

// ClearCache drops the ledger before the records so an interrupted clear
// leaves records that read as stale.
func (s *syncService) ClearCache(ctx context.Context) error {
	if err := s.ledger.Clear(ctx); err != nil {
		return err
	}
	for _, st := range s.stores {
		if err := st.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear cached records: %w", err)
		}
	}
	s.logger.Info(ctx, "cache cleared")
	return nil
}
