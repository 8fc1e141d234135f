package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"phonedeck/internal/logger"
	"phonedeck/internal/model"
	"phonedeck/pkg/uid"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLItemRepository implements ItemRepository and CheckpointRepository
// using MySQL.
type MySQLItemRepository struct {
	db *sql.DB
}

// NewMySQLItemRepository creates a new MySQL item repository.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLItemRepository(dsn string) (*MySQLItemRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Log.Info("mysql item repository initialized")
	return &MySQLItemRepository{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	queries := []string{
		"CREATE TABLE IF NOT EXISTS inventory_items (" +
			"id VARCHAR(36) PRIMARY KEY," +
			"wholecell_id BIGINT UNIQUE," +
			"name TEXT NOT NULL," +
			"sku TEXT NOT NULL," +
			"`condition` TEXT NOT NULL," +
			"status VARCHAR(32) NOT NULL DEFAULT 'new'," +
			"listed BOOLEAN NOT NULL DEFAULT FALSE," +
			"details JSON NOT NULL," +
			"photos JSON NOT NULL," +
			"listing JSON," +
			"sale_price DOUBLE," +
			"total_price_paid DOUBLE NOT NULL DEFAULT 0," +
			"warehouse VARCHAR(255) NOT NULL DEFAULT ''," +
			"location VARCHAR(255) NOT NULL DEFAULT ''," +
			"created_at DATETIME NOT NULL," +
			"last_updated DATETIME NOT NULL," +
			"INDEX idx_items_status (status)" +
			")",
		"CREATE TABLE IF NOT EXISTS sync_metadata (" +
			"`key` VARCHAR(128) PRIMARY KEY," +
			"value TEXT NOT NULL," +
			"updated_at DATETIME NOT NULL" +
			")",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// mysqlItemColumns quotes the reserved `condition` column.
const mysqlItemColumns = "id, wholecell_id, name, sku, `condition`, status, listed, details, photos, listing, sale_price, total_price_paid, warehouse, location, created_at, last_updated"

func (r *MySQLItemRepository) List(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mysqlItemColumns+` FROM inventory_items ORDER BY created_at DESC`)
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

func (r *MySQLItemRepository) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	return r.getWhere(ctx, `id = ?`, id)
}

func (r *MySQLItemRepository) GetByWholecellID(ctx context.Context, wholecellID int64) (*model.InventoryItem, error) {
	return r.getWhere(ctx, `wholecell_id = ?`, wholecellID)
}

func (r *MySQLItemRepository) getWhere(ctx context.Context, where string, arg interface{}) (*model.InventoryItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mysqlItemColumns+` FROM inventory_items WHERE `+where, arg)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *MySQLItemRepository) Create(ctx context.Context, item *model.InventoryItem) error {
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
		INSERT INTO inventory_items (`+mysqlItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, wholecellID, item.Name, item.SKU, item.Condition, string(item.Status),
		item.Listed, detailsJSON, photosJSON, listingJSON, nullableFloat(item.SalePrice),
		item.TotalPricePaid, item.Warehouse, item.Location, item.CreatedAt, item.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *MySQLItemRepository) Update(ctx context.Context, id string, upd model.ItemUpdate) (*model.InventoryItem, error) {
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

	_, err = r.db.ExecContext(ctx, "UPDATE inventory_items SET "+
		"name = ?, sku = ?, `condition` = ?, status = ?, listed = ?, "+
		"details = ?, photos = ?, listing = ?, sale_price = ?, "+
		"total_price_paid = ?, warehouse = ?, location = ?, last_updated = ? "+
		"WHERE id = ?",
		item.Name, item.SKU, item.Condition, string(item.Status), item.Listed,
		detailsJSON, photosJSON, listingJSON, nullableFloat(item.SalePrice),
		item.TotalPricePaid, item.Warehouse, item.Location, item.LastUpdated, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

func (r *MySQLItemRepository) UpsertByWholecellID(ctx context.Context, wholecellID int64, fields model.SyncFields) (*model.InventoryItem, error) {
	detailsJSON, err := encodeDetails(fields.Details)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	createdAt := fields.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = r.db.ExecContext(ctx, "INSERT INTO inventory_items "+
		"(id, wholecell_id, name, sku, `condition`, status, listed, details, photos, listing, "+
		"sale_price, total_price_paid, warehouse, location, created_at, last_updated) "+
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, '[]', NULL, ?, ?, ?, ?, ?, ?) "+
		"ON DUPLICATE KEY UPDATE "+
		"name = VALUES(name), sku = VALUES(sku), `condition` = VALUES(`condition`), "+
		"status = VALUES(status), listed = VALUES(listed), details = VALUES(details), "+
		"sale_price = VALUES(sale_price), total_price_paid = VALUES(total_price_paid), "+
		"warehouse = VALUES(warehouse), location = VALUES(location), last_updated = VALUES(last_updated)",
		uid.New(), wholecellID, fields.Name, fields.SKU, fields.Condition, string(fields.Status),
		fields.Listed, detailsJSON, nullableFloat(fields.SalePrice), fields.TotalPricePaid,
		fields.Warehouse, fields.Location, createdAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert item %d: %w", wholecellID, err)
	}

	return r.getWhere(ctx, `wholecell_id = ?`, wholecellID)
}

func (r *MySQLItemRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (r *MySQLItemRepository) GetCheckpoint(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM sync_metadata WHERE `key` = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return value, nil
}

func (r *MySQLItemRepository) SetCheckpoint(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO sync_metadata (`key`, value, updated_at) VALUES (?, ?, ?) "+
		"ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)",
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

func (r *MySQLItemRepository) Close() error {
	return r.db.Close()
}

var (
	_ ItemRepository       = (*MySQLItemRepository)(nil)
	_ CheckpointRepository = (*MySQLItemRepository)(nil)
)
