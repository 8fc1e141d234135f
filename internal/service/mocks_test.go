package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"phonedeck/internal/model"
	"phonedeck/internal/wholecell"
	"phonedeck/pkg/uid"
)

// fakeVendor returns a scripted record set, or blocks until released.
type fakeVendor struct {
	mu      sync.Mutex
	records []wholecell.InventoryRecord
	err     error
	block   chan struct{}

	calls     int
	lastSince *time.Time
}

func (v *fakeVendor) FetchAll(ctx context.Context, status string, updatedSince *time.Time) ([]wholecell.InventoryRecord, error) {
	v.mu.Lock()
	v.calls++
	v.lastSince = updatedSince
	block := v.block
	v.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if v.err != nil {
		return nil, v.err
	}
	return v.records, nil
}

// fakeStore is an in-memory item and checkpoint store with per-record
// failure injection for upserts.
type fakeStore struct {
	mu          sync.Mutex
	items       map[string]*model.InventoryItem
	byWholecell map[int64]string
	checkpoints map[string]string
	failUpserts map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:       map[string]*model.InventoryItem{},
		byWholecell: map[int64]string{},
		checkpoints: map[string]string{},
		failUpserts: map[int64]bool{},
	}
}

func (s *fakeStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.InventoryItem{}
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (s *fakeStore) GetByWholecellID(ctx context.Context, wholecellID int64) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byWholecell[wholecellID]
	if !ok {
		return nil, nil
	}
	copied := *s.items[id]
	return &copied, nil
}

func (s *fakeStore) Create(ctx context.Context, item *model.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *item
	s.items[item.ID] = &copied
	if item.WholecellID != nil {
		s.byWholecell[*item.WholecellID] = item.ID
	}
	return nil
}

func (s *fakeStore) Update(ctx context.Context, id string, upd model.ItemUpdate) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.SKU != nil {
		item.SKU = *upd.SKU
	}
	if upd.Condition != nil {
		item.Condition = *upd.Condition
	}
	if upd.Status != nil {
		item.Status = *upd.Status
	}
	if upd.Listed != nil {
		item.Listed = *upd.Listed
	}
	if upd.Details != nil {
		item.Details = *upd.Details
	}
	if upd.Photos != nil {
		item.Photos = *upd.Photos
	}
	if upd.Listing != nil {
		item.Listing = upd.Listing
	}
	if upd.SalePrice != nil {
		item.SalePrice = upd.SalePrice
	}
	if upd.TotalPricePaid != nil {
		item.TotalPricePaid = *upd.TotalPricePaid
	}
	if upd.Warehouse != nil {
		item.Warehouse = *upd.Warehouse
	}
	if upd.Location != nil {
		item.Location = *upd.Location
	}
	item.LastUpdated = time.Now().UTC()
	copied := *item
	return &copied, nil
}

func (s *fakeStore) UpsertByWholecellID(ctx context.Context, wholecellID int64, fields model.SyncFields) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpserts[wholecellID] {
		return nil, fmt.Errorf("injected failure for %d", wholecellID)
	}

	now := time.Now().UTC()
	id, exists := s.byWholecell[wholecellID]
	if !exists {
		createdAt := fields.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		wcID := wholecellID
		item := &model.InventoryItem{
			ID:          uid.New(),
			WholecellID: &wcID,
			Photos:      []string{},
			CreatedAt:   createdAt,
		}
		s.items[item.ID] = item
		s.byWholecell[wholecellID] = item.ID
		id = item.ID
	}

	item := s.items[id]
	item.Name = fields.Name
	item.SKU = fields.SKU
	item.Condition = fields.Condition
	item.Status = fields.Status
	item.Listed = fields.Listed
	item.Details = fields.Details
	item.SalePrice = fields.SalePrice
	item.TotalPricePaid = fields.TotalPricePaid
	item.Warehouse = fields.Warehouse
	item.Location = fields.Location
	item.LastUpdated = now

	copied := *item
	return &copied, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok && item.WholecellID != nil {
		delete(s.byWholecell, *item.WholecellID)
	}
	delete(s.items, id)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) GetCheckpoint(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoints[key], nil
}

func (s *fakeStore) SetCheckpoint(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[key] = value
	return nil
}

func (s *fakeStore) checkpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoints[CheckpointKey]
}

func (s *fakeStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *fakeStore) byVendor(wholecellID int64) *model.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byWholecell[wholecellID]
	if !ok {
		return nil
	}
	copied := *s.items[id]
	return &copied
}
