package repository

import (
	"context"

	"phonedeck/internal/model"
)

// ItemRepository defines inventory item data access methods.
type ItemRepository interface {
	// List returns every item, newest first.
	List(ctx context.Context) ([]model.InventoryItem, error)

	// Get retrieves one item by local id. Returns nil when absent.
	Get(ctx context.Context, id string) (*model.InventoryItem, error)

	// GetByWholecellID retrieves the item linked to a vendor record.
	// Returns nil when absent.
	GetByWholecellID(ctx context.Context, wholecellID int64) (*model.InventoryItem, error)

	// Create inserts a fully-populated item.
	Create(ctx context.Context, item *model.InventoryItem) error

	// Update applies a partial update and refreshes last_updated.
	// Returns nil when the item does not exist.
	Update(ctx context.Context, id string, upd model.ItemUpdate) (*model.InventoryItem, error)

	// UpsertByWholecellID inserts or updates the item keyed on the vendor id,
	// writing only the sync pass-through fields. Photos, listing and the
	// original created_at are never touched on update.
	UpsertByWholecellID(ctx context.Context, wholecellID int64, fields model.SyncFields) (*model.InventoryItem, error)

	// Delete removes an item by local id.
	Delete(ctx context.Context, id string) error

	// Close closes the repository connection.
	Close() error
}

// CheckpointRepository persists sync checkpoints as string values per key.
type CheckpointRepository interface {
	// GetCheckpoint returns the stored value, or "" when the key is absent.
	GetCheckpoint(ctx context.Context, key string) (string, error)

	// SetCheckpoint writes the value for a key, creating it if needed.
	SetCheckpoint(ctx context.Context, key, value string) error
}
