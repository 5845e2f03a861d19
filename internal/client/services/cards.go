package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/securebank/internal/client/auth"
	"github.com/dmitrijs2005/securebank/internal/client/client"
	"github.com/dmitrijs2005/securebank/internal/client/coordinator"
	"github.com/dmitrijs2005/securebank/internal/client/mapper"
	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/cards"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
)

// RevealLevel is the minimum device security level for showing full card
// numbers and CVVs.
const RevealLevel = auth.LevelMedium

// CardService serves payment cards. Listings and lookups never carry the
// card number or CVV; only Reveal decrypts them.
type CardService interface {
	Cards(ctx context.Context, forceRefresh bool) <-chan models.Result[[]models.Card]
	Card(ctx context.Context, id string) (models.Card, error)
	Reveal(ctx context.Context, id string) (models.Card, error)
	// ToggleCard activates or deactivates a card. It needs the network.
	ToggleCard(ctx context.Context, id string, active bool) (models.Card, error)
}

type cardService struct {
	env    Env
	repo   cards.Repository
	probe  auth.DeviceProbe
	src    *cardSource
	logger logging.Logger
}

func NewCardService(env Env, repo cards.Repository, probe auth.DeviceProbe) CardService {
	return &cardService{
		env:    env,
		repo:   repo,
		probe:  probe,
		src:    &cardSource{remote: env.Remote, repo: repo, mapper: env.Mapper},
		logger: env.logger("cards"),
	}
}

func (s *cardService) Cards(ctx context.Context, forceRefresh bool) <-chan models.Result[[]models.Card] {
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return denied[[]models.Card](err)
	}
	return coordinator.Run[models.Card](ctx, s.env.Coordinator, s.src, forceRefresh)
}

func (s *cardService) Card(ctx context.Context, id string) (models.Card, error) {
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return models.Card{}, err
	}
	return s.lookup(ctx, "card", id, false)
}

func (s *cardService) Reveal(ctx context.Context, id string) (models.Card, error) {
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return models.Card{}, err
	}
	if err := auth.RequireLevel(ctx, s.probe, RevealLevel); err != nil {
		s.logger.Warn(ctx, "card reveal refused", "id", id, "error", err)
		return models.Card{}, err
	}
	c, err := s.lookup(ctx, "reveal card", id, true)
	if err != nil {
		return models.Card{}, err
	}
	s.logger.Info(ctx, "card revealed", "id", id)
	return c, nil
}

func (s *cardService) lookup(ctx context.Context, op, id string, reveal bool) (models.Card, error) {
	row, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		c, err := s.env.Mapper.CardFromRow(*row, reveal)
		if err != nil {
			return models.Card{}, common.Classify(op, err)
		}
		return c, nil
	case !errors.Is(err, common.ErrNotFound):
		return models.Card{}, common.Classify(op, err)
	}

	if !s.env.Conn.IsConnected() {
		return models.Card{}, notCached(op, "card", id)
	}
	dto, err := s.env.Remote.Card(ctx, id)
	if err != nil {
		return models.Card{}, common.Classify(op, err)
	}
	c, err := s.cache(ctx, op, dto)
	if err != nil {
		return models.Card{}, err
	}
	if !reveal {
		c = conceal(c)
	}
	return c, nil
}

func (s *cardService) ToggleCard(ctx context.Context, id string, active bool) (models.Card, error) {
	const op = "toggle card"
	if err := s.env.Gate.CheckAccess(ctx); err != nil {
		return models.Card{}, err
	}
	if !s.env.Conn.IsConnected() {
		return models.Card{}, common.NetworkError(op, common.ErrNoConnectivity)
	}
	dto, err := s.env.Remote.ToggleCard(ctx, id, active)
	if err != nil {
		return models.Card{}, common.Classify(op, err)
	}
	c, err := s.cache(ctx, op, dto)
	if err != nil {
		return models.Card{}, err
	}
	s.logger.Info(ctx, "card toggled", "id", id, "active", c.IsActive)
	return conceal(c), nil
}

// cache converts a remote card and upserts its sealed row.
func (s *cardService) cache(ctx context.Context, op string, dto models.CardDTO) (models.Card, error) {
	c, err := mapper.CardFromDTO(dto)
	if err != nil {
		return models.Card{}, err
	}
	row, err := s.env.Mapper.CardToRow(c)
	if err != nil {
		return models.Card{}, common.Classify(op, err)
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		s.logger.Warn(ctx, "could not cache card", "id", c.ID, "error", err)
	}
	return c, nil
}

func conceal(c models.Card) models.Card {
	c.Number = ""
	c.CVV = ""
	return c
}

type cardSource struct {
	remote client.Remote
	repo   cards.Repository
	mapper *mapper.Mapper
}

func (s *cardSource) Class() models.EntityClass { return models.ClassCards }

func (s *cardSource) LoadCached(ctx context.Context) ([]models.Card, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.mapper.CardsFromRows(ctx, rows)
}

func (s *cardSource) Fetch(ctx context.Context) ([]models.Card, error) {
	dtos, err := s.remote.Cards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Card, 0, len(dtos))
	for _, d := range dtos {
		c, err := mapper.CardFromDTO(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *cardSource) Store(ctx context.Context, items []models.Card) error {
	rows, err := s.mapper.CardsToRows(ctx, items)
	if err != nil {
		return err
	}
	return s.repo.Replace(ctx, rows)
}

// Present hides the secrets of freshly fetched cards.
func (s *cardSource) Present(items []models.Card) []models.Card {
	out := make([]models.Card, len(items))
	for i, c := range items {
		out[i] = conceal(c)
	}
	return out
}
