package services

import (
	"context"

	"github.com/dmitrijs2005/securebank/internal/client/client"
	"github.com/dmitrijs2005/securebank/internal/client/coordinator"
	"github.com/dmitrijs2005/securebank/internal/client/mapper"
	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/accounts"
)

// AccountService serves the primary account.
type AccountService interface {
	// Account streams the account: cached first when present, then the
	// refreshed record.
	Account(ctx context.Context, forceRefresh bool) <-chan models.Result[models.Account]
}

type accountService struct {
	env Env
	src *accountSource
}

func NewAccountService(env Env, repo accounts.Repository) AccountService {
	return &accountService{env: env, src: &accountSource{remote: env.Remote, repo: repo, mapper: env.Mapper}}
}

func (s *accountService) Account(ctx context.Context, forceRefresh bool) <-chan models.Result[models.Account] {
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return denied[models.Account](err)
	}
	return single("account", coordinator.Run[models.Account](ctx, s.env.Coordinator, s.src, forceRefresh))
}

type accountSource struct {
	remote client.Remote
	repo   accounts.Repository
	mapper *mapper.Mapper
}

func (s *accountSource) Class() models.EntityClass { return models.ClassAccount }

func (s *accountSource) LoadCached(ctx context.Context) ([]models.Account, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(rows))
	for _, r := range rows {
		a, err := s.mapper.AccountFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *accountSource) Fetch(ctx context.Context) ([]models.Account, error) {
	dto, err := s.remote.Account(ctx)
	if err != nil {
		return nil, err
	}
	a, err := mapper.AccountFromDTO(dto)
	if err != nil {
		return nil, err
	}
	return []models.Account{a}, nil
}

func (s *accountSource) Store(ctx context.Context, items []models.Account) error {
	rows := make([]models.AccountRow, 0, len(items))
	for _, a := range items {
		r, err := s.mapper.AccountToRow(a)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}
	return s.repo.Replace(ctx, rows)
}
