package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"phonedeck/internal/logger"
	"phonedeck/internal/model"
	"phonedeck/pkg/uid"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteItemRepository implements ItemRepository and CheckpointRepository
// using SQLite. Thread-safe with WAL mode for high-concurrency reads.
type SQLiteItemRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteItemRepository creates a new SQLite item repository.
// dbPath is the path to the SQLite database file (e.g., "./data/phonedeck.db")
func NewSQLiteItemRepository(dbPath string) (*SQLiteItemRepository, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Log.Info("sqlite item repository initialized", zap.String("path", dbPath))
	return &SQLiteItemRepository{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		wholecell_id INTEGER UNIQUE,
		name TEXT NOT NULL,
		sku TEXT NOT NULL,
		condition TEXT NOT NULL DEFAULT 'Unknown',
		status TEXT NOT NULL DEFAULT 'new',
		listed INTEGER NOT NULL DEFAULT 0,
		details TEXT NOT NULL DEFAULT '{}',
		photos TEXT NOT NULL DEFAULT '[]',
		listing TEXT,
		sale_price REAL,
		total_price_paid REAL NOT NULL DEFAULT 0,
		warehouse TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		last_updated DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_status ON inventory_items(status);
	CREATE TABLE IF NOT EXISTS sync_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// List returns every item, newest first.
func (r *SQLiteItemRepository) List(ctx context.Context) ([]model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []model.InventoryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Get retrieves one item by local id.
func (r *SQLiteItemRepository) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getWhere(ctx, `id = ?`, id)
}

// GetByWholecellID retrieves the item linked to a vendor record.
func (r *SQLiteItemRepository) GetByWholecellID(ctx context.Context, wholecellID int64) (*model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getWhere(ctx, `wholecell_id = ?`, wholecellID)
}

func (r *SQLiteItemRepository) getWhere(ctx context.Context, where string, arg interface{}) (*model.InventoryItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE `+where, arg)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// Create inserts a fully-populated item.
func (r *SQLiteItemRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	detailsJSON, err := encodeDetails(item.Details)
	if err != nil {
		return err
	}
	photosJSON, err := encodePhotos(item.Photos)
	if err != nil {
		return err
	}
	listingJSON, err := encodeListing(item.Listing)
	if err != nil {
		return err
	}

	var wholecellID interface{}
	if item.WholecellID != nil {
		wholecellID = *item.WholecellID
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO inventory_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, wholecellID, item.Name, item.SKU, item.Condition, string(item.Status),
		item.Listed, detailsJSON, photosJSON, listingJSON, nullableFloat(item.SalePrice),
		item.TotalPricePaid, item.Warehouse, item.Location, item.CreatedAt, item.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// Update applies a partial update and refreshes last_updated.
func (r *SQLiteItemRepository) Update(ctx context.Context, id string, upd model.ItemUpdate) (*model.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, err := r.getWhere(ctx, `id = ?`, id)
	if err != nil || item == nil {
		return nil, err
	}

	applyUpdate(item, upd)
	item.LastUpdated = time.Now().UTC()

	detailsJSON, err := encodeDetails(item.Details)
	if err != nil {
		return nil, err
	}
	photosJSON, err := encodePhotos(item.Photos)
	if err != nil {
		return nil, err
	}
	listingJSON, err := encodeListing(item.Listing)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE inventory_items SET
			name = ?, sku = ?, condition = ?, status = ?, listed = ?,
			details = ?, photos = ?, listing = ?, sale_price = ?,
			total_price_paid = ?, warehouse = ?, location = ?, last_updated = ?
		WHERE id = ?`,
		item.Name, item.SKU, item.Condition, string(item.Status), item.Listed,
		detailsJSON, photosJSON, listingJSON, nullableFloat(item.SalePrice),
		item.TotalPricePaid, item.Warehouse, item.Location, item.LastUpdated, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// UpsertByWholecellID inserts or updates the sync pass-through fields keyed
// on the vendor id. The conflict clause deliberately excludes photos, listing
// and created_at so collaborator-owned data survives every sync.
func (r *SQLiteItemRepository) UpsertByWholecellID(ctx context.Context, wholecellID int64, fields model.SyncFields) (*model.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	detailsJSON, err := encodeDetails(fields.Details)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	createdAt := fields.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, wholecell_id, name, sku, condition, status, listed,
			details, photos, listing, sale_price, total_price_paid, warehouse, location,
			created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '[]', NULL, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wholecell_id) DO UPDATE SET
			name = excluded.name,
			sku = excluded.sku,
			condition = excluded.condition,
			status = excluded.status,
			listed = excluded.listed,
			details = excluded.details,
			sale_price = excluded.sale_price,
			total_price_paid = excluded.total_price_paid,
			warehouse = excluded.warehouse,
			location = excluded.location,
			last_updated = excluded.last_updated`,
		uid.New(), wholecellID, fields.Name, fields.SKU, fields.Condition, string(fields.Status),
		fields.Listed, detailsJSON, nullableFloat(fields.SalePrice), fields.TotalPricePaid,
		fields.Warehouse, fields.Location, createdAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert item %d: %w", wholecellID, err)
	}

	return r.getWhere(ctx, `wholecell_id = ?`, wholecellID)
}

// Delete removes an item by local id.
func (r *SQLiteItemRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// GetCheckpoint returns the stored checkpoint value, or "" when absent.
func (r *SQLiteItemRepository) GetCheckpoint(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return value, nil
}

// SetCheckpoint writes a checkpoint value, creating the key if needed.
func (r *SQLiteItemRepository) SetCheckpoint(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteItemRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteItemRepository implements both interfaces
var (
	_ ItemRepository       = (*SQLiteItemRepository)(nil)
	_ CheckpointRepository = (*SQLiteItemRepository)(nil)
)
