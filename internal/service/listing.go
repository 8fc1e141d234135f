package service

import (
	"context"
	"fmt"
	"strings"

	"phonedeck/internal/model"
)

// DefaultListingPrice is used when an item has no sale price on record.
const DefaultListingPrice = 999.00

// listingCategory is the one marketplace category the dashboard lists into.
const listingCategory = "Cell Phones & Accessories > Cell Phones & Smartphones"

// ListingService builds marketplace listing drafts from item details. The
// output is deterministic: the same item always yields the same draft.
type ListingService struct {
	items *ItemService
}

// NewListingService creates the listing generator.
func NewListingService(items *ItemService) *ListingService {
	return &ListingService{items: items}
}

// Generate builds a listing draft for the item, stores it, and advances the
// item to listing_generated.
func (s *ListingService) Generate(ctx context.Context, id string) (*model.InventoryItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	listing := BuildListing(item)
	return s.items.Update(ctx, id, model.ItemUpdate{Listing: &listing})
}

// BuildListing renders the listing draft for an item without persisting it.
func BuildListing(item *model.InventoryItem) model.Listing {
	d := item.Details

	title := joinNonEmpty(" ", d.Brand, d.Model, d.Storage, d.Color)
	if title == "" {
		title = item.Name
	}
	if item.Condition != "" {
		title = fmt.Sprintf("%s - %s Condition", title, item.Condition)
	}

	price := DefaultListingPrice
	if item.SalePrice != nil && *item.SalePrice > 0 {
		price = *item.SalePrice
	}

	return model.Listing{
		Title:       title,
		Description: buildDescription(item),
		Price:       price,
		Category:    listingCategory,
	}
}

func buildDescription(item *model.InventoryItem) string {
	d := item.Details
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", item.Name)
	writeSpec(&b, "Brand", d.Brand)
	writeSpec(&b, "Model", d.Model)
	writeSpec(&b, "Storage", d.Storage)
	writeSpec(&b, "Color", d.Color)
	writeSpec(&b, "Network", d.Network)
	writeSpec(&b, "Condition", item.Condition)
	if len(d.Conditions) > 0 {
		fmt.Fprintf(&b, "Cosmetic notes: %s\n", strings.Join(d.Conditions, ", "))
	}
	b.WriteString("\nFully tested and functional. Ships within 1 business day.")
	return b.String()
}

func writeSpec(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
