package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"phonedeck/internal/model"
)

// itemColumns is the select list shared by every SQL backend. Scan order must
// match scanItem.
const itemColumns = `id, wholecell_id, name, sku, condition, status, listed, details, photos, listing, sale_price, total_price_paid, warehouse, location, created_at, last_updated`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanItem reads one item row. JSON columns (details, photos, listing) are
// stored as text in all three backends.
func scanItem(row rowScanner) (*model.InventoryItem, error) {
	var (
		item        model.InventoryItem
		wholecellID sql.NullInt64
		status      string
		detailsJSON string
		photosJSON  string
		listingJSON sql.NullString
		salePrice   sql.NullFloat64
	)

	err := row.Scan(
		&item.ID,
		&wholecellID,
		&item.Name,
		&item.SKU,
		&item.Condition,
		&status,
		&item.Listed,
		&detailsJSON,
		&photosJSON,
		&listingJSON,
		&salePrice,
		&item.TotalPricePaid,
		&item.Warehouse,
		&item.Location,
		&item.CreatedAt,
		&item.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	item.Status = model.ItemStatus(status)
	if wholecellID.Valid {
		item.WholecellID = &wholecellID.Int64
	}
	if salePrice.Valid {
		item.SalePrice = &salePrice.Float64
	}
	if err := json.Unmarshal([]byte(detailsJSON), &item.Details); err != nil {
		return nil, fmt.Errorf("decode details for item %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(photosJSON), &item.Photos); err != nil {
		return nil, fmt.Errorf("decode photos for item %s: %w", item.ID, err)
	}
	if item.Photos == nil {
		item.Photos = []string{}
	}
	if listingJSON.Valid && listingJSON.String != "" {
		var listing model.Listing
		if err := json.Unmarshal([]byte(listingJSON.String), &listing); err != nil {
			return nil, fmt.Errorf("decode listing for item %s: %w", item.ID, err)
		}
		item.Listing = &listing
	}

	return &item, nil
}

func encodeDetails(d model.ItemDetails) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode details: %w", err)
	}
	return string(b), nil
}

func encodePhotos(photos []string) (string, error) {
	if photos == nil {
		photos = []string{}
	}
	b, err := json.Marshal(photos)
	if err != nil {
		return "", fmt.Errorf("encode photos: %w", err)
	}
	return string(b), nil
}

// encodeListing returns a nullable column value: nil when no listing exists.
func encodeListing(l *model.Listing) (interface{}, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode listing: %w", err)
	}
	return string(b), nil
}

// nullableFloat returns a nullable column value for an optional price.
func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// applyUpdate merges a partial update into an existing item, in memory.
// Lifecycle decisions live in the service layer; this only copies fields.
func applyUpdate(item *model.InventoryItem, upd model.ItemUpdate) {
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
}
