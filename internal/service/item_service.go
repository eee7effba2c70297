package service

import (
	"context"
	"fmt"
	"strings"

	"wardrobe/internal/domain"
	"wardrobe/internal/logging"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
)

// ItemService is the item availability ledger. Availability itself only moves
// through the booking and inspection services.
type ItemService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewItemService(repo domain.Repository, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		repo:   repo,
		logger: logging.Component(logger, "item_service"),
	}
}

func (s *ItemService) CreateItem(ctx context.Context, owner domain.Owner, item *models.Item) (*models.Item, error) {
	if item == nil || strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("%w: item name is required", domain.ErrValidation)
	}
	if item.PricePerDay < 0 {
		return nil, fmt.Errorf("%w: price_per_day must not be negative", domain.ErrValidation)
	}

	created := *item
	created.ID = 0
	created.OwnerID = owner.ID
	created.Name = strings.TrimSpace(item.Name)
	created.Available = true
	if err := s.repo.CreateItem(ctx, &created); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("item_id", created.ID).Int64("owner_id", owner.ID).Msg("item registered")
	return &created, nil
}

func (s *ItemService) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *ItemService) ListForOwner(ctx context.Context, owner domain.Owner) ([]*models.Item, error) {
	return s.repo.ListItemsByOwner(ctx, owner.ID)
}

// SeedItems upserts catalog items loaded at startup in one transaction.
func (s *ItemService) SeedItems(ctx context.Context, items []models.Item) error {
	for i := range items {
		if items[i].OwnerID <= 0 || strings.TrimSpace(items[i].Name) == "" {
			return fmt.Errorf("%w: seed item %d needs owner_id and name", domain.ErrValidation, i)
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		for i := range items {
			item := items[i]
			if err := s.repo.UpsertItem(ctx, &item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int("count", len(items)).Msg("catalog seeded")
	return nil
}
