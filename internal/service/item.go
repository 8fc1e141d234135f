package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"phonedeck/internal/cache"
	"phonedeck/internal/logger"
	"phonedeck/internal/model"
	"phonedeck/internal/repository"
	"phonedeck/pkg/uid"

	"go.uber.org/zap"
)

// ItemListCacheKey is the fixed cache key for the full inventory list.
const ItemListCacheKey = "inventory:list"

// ErrItemNotFound is returned when an item id does not exist.
var ErrItemNotFound = errors.New("item not found")

// ItemService wraps the item repository with a read-through list cache and
// the operator-facing status lifecycle.
type ItemService struct {
	repo     repository.ItemRepository
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewItemService creates the item service. cache may be nil to disable
// list caching.
func NewItemService(repo repository.ItemRepository, c cache.Cache, cacheTTL time.Duration) *ItemService {
	return &ItemService{repo: repo, cache: c, cacheTTL: cacheTTL}
}

// List returns all inventory items, newest first, served from cache when the
// cached copy is still valid.
func (s *ItemService) List(ctx context.Context) ([]model.InventoryItem, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}

	data, err := s.cache.GetOrSet(ctx, ItemListCacheKey, s.cacheTTL, func() ([]byte, error) {
		items, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	})
	if err != nil {
		return nil, err
	}

	var items []model.InventoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		// A corrupt cache entry must not take the listing down.
		logger.Log.Warn("item list cache corrupt, reading through", zap.Error(err))
		s.invalidate(ctx)
		return s.repo.List(ctx)
	}
	return items, nil
}

// Get returns a single item by id.
func (s *ItemService) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// Create adds a manually entered item. Status defaults to new and photos to
// an empty list when not provided.
func (s *ItemService) Create(ctx context.Context, item *model.InventoryItem) (*model.InventoryItem, error) {
	if item.ID == "" {
		item.ID = uid.New()
	}
	if item.Status == "" {
		item.Status = model.StatusNew
	}
	if !item.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	if item.Photos == nil {
		item.Photos = []string{}
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.LastUpdated = now

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

// Update applies a partial update. When the caller does not set status
// explicitly, the lifecycle advances on its own: adding photos to a new item
// moves it to photos_completed, and attaching a listing moves it to
// listing_generated. An explicit status in the update always wins.
func (s *ItemService) Update(ctx context.Context, id string, upd model.ItemUpdate) (*model.InventoryItem, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrItemNotFound
	}

	if upd.Status == nil {
		if upd.Photos != nil && len(*upd.Photos) > 0 && current.Status == model.StatusNew {
			st := model.StatusPhotosCompleted
			upd.Status = &st
		}
		if upd.Listing != nil {
			st := model.StatusListingGenerated
			upd.Status = &st
		}
	}

	item, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	s.invalidate(ctx)
	return item, nil
}

// Delete removes an item by id.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrItemNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ItemService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ItemListCacheKey); err != nil {
		logger.Log.Warn("item list cache invalidation failed", zap.Error(err))
	}
}
