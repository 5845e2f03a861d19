package services

import (
	"context"
	"errors"
	"slices"

	"github.com/dmitrijs2005/securebank/internal/client/client"
	"github.com/dmitrijs2005/securebank/internal/client/coordinator"
	"github.com/dmitrijs2005/securebank/internal/client/mapper"
	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
)

const (
	DefaultPageSize      = 20
	DefaultFetchPageSize = 100
	// maxFetchPages bounds one refresh of the transaction history.
	maxFetchPages = 50
)

// TransactionService serves the transaction history of the primary account.
type TransactionService interface {
	// History streams the page-th page (zero based) of the history, newest
	// first.
	History(ctx context.Context, page, pageSize int, forceRefresh bool) <-chan models.Result[[]models.Transaction]
	// Transaction looks id up in the cache, then remotely. A remote hit is
	// cached.
	Transaction(ctx context.Context, id string) (models.Transaction, error)
}

type transactionService struct {
	env       Env
	repo      transactions.Repository
	fetchSize int
	logger    logging.Logger
}

// NewTransactionService builds the service. fetchSize is the page size used
// when downloading the full history; <= 0 selects DefaultFetchPageSize.
func NewTransactionService(env Env, repo transactions.Repository, fetchSize int) TransactionService {
	if fetchSize <= 0 {
		fetchSize = DefaultFetchPageSize
	}
	return &transactionService{env: env, repo: repo, fetchSize: fetchSize, logger: env.logger("transactions")}
}

func (s *transactionService) History(ctx context.Context, page, pageSize int, forceRefresh bool) <-chan models.Result[[]models.Transaction] {
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return denied[[]models.Transaction](err)
	}
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	src := &transactionSource{
		remote:    s.env.Remote,
		repo:      s.repo,
		mapper:    s.env.Mapper,
		fetchSize: s.fetchSize,
		page:      page,
		pageSize:  pageSize,
	}
	return coordinator.Run[models.Transaction](ctx, s.env.Coordinator, src, forceRefresh)
}

func (s *transactionService) Transaction(ctx context.Context, id string) (models.Transaction, error) {
	const op = "transaction"
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return models.Transaction{}, err
	}

	row, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		tx, err := s.env.Mapper.TransactionFromRow(*row)
		if err != nil {
			return models.Transaction{}, common.Classify(op, err)
		}
		return tx, nil
	case !errors.Is(err, common.ErrNotFound):
		return models.Transaction{}, common.Classify(op, err)
	}

	if !s.env.Conn.IsConnected() {
		return models.Transaction{}, notCached(op, "transaction", id)
	}
	dto, err := s.env.Remote.Transaction(ctx, id)
	if err != nil {
		return models.Transaction{}, common.Classify(op, err)
	}
	tx, err := mapper.TransactionFromDTO(dto)
	if err != nil {
		return models.Transaction{}, err
	}
	r, err := s.env.Mapper.TransactionToRow(tx)
	if err != nil {
		return models.Transaction{}, common.Classify(op, err)
	}
	if err := s.repo.Upsert(ctx, r); err != nil {
		s.logger.Warn(ctx, "could not cache transaction", "id", id, "error", err)
	}
	return tx, nil
}

// transactionSource downloads the whole history and shows one page of it.
type transactionSource struct {
	remote    client.Remote
	repo      transactions.Repository
	mapper    *mapper.Mapper
	fetchSize int
	page      int
	pageSize  int
}

func (s *transactionSource) Class() models.EntityClass { return models.ClassTransactions }

func (s *transactionSource) LoadCached(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.repo.List(ctx, s.pageSize, s.page*s.pageSize)
	if err != nil {
		return nil, err
	}
	return s.mapper.TransactionsFromRows(ctx, rows)
}

// HasCached tells an empty page past the end apart from an empty cache.
func (s *transactionSource) HasCached(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	return n > 0, err
}

func (s *transactionSource) Fetch(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	for p := 0; p < maxFetchPages; p++ {
		dtos, err := s.remote.Transactions(ctx, p, s.fetchSize)
		if err != nil {
			return nil, err
		}
		for _, d := range dtos {
			tx, err := mapper.TransactionFromDTO(d)
			if err != nil {
				return nil, err
			}
			out = append(out, tx)
		}
		if len(dtos) < s.fetchSize {
			break
		}
	}
	slices.SortStableFunc(out, func(a, b models.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	return out, nil
}

func (s *transactionSource) Store(ctx context.Context, items []models.Transaction) error {
	rows, err := s.mapper.TransactionsToRows(ctx, items)
	if err != nil {
		return err
	}
	return s.repo.Replace(ctx, rows)
}

// Present keeps the requested page of a full download.
func (s *transactionSource) Present(items []models.Transaction) []models.Transaction {
	return models.Page(items, s.page, s.pageSize)
}
