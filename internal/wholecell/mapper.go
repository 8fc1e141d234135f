package wholecell

import (
	"strings"
	"time"

	"phonedeck/internal/model"
)

// statusRules classifies free-form vendor status text into a lifecycle state.
// Evaluated in order, first match wins; unmatched text is StatusNew.
var statusRules = []struct {
	substr string
	status model.ItemStatus
}{
	{"listed", model.StatusListingGenerated},
	{"sold", model.StatusListingGenerated},
	{"ready", model.StatusPhotosCompleted},
	{"processed", model.StatusPhotosCompleted},
}

// ClassifyStatus derives a lifecycle state from vendor status text,
// case-insensitively. It never errors: unknown text maps to StatusNew.
func ClassifyStatus(vendorStatus string) model.ItemStatus {
	lower := strings.ToLower(vendorStatus)
	for _, rule := range statusRules {
		if strings.Contains(lower, rule.substr) {
			return rule.status
		}
	}
	return model.StatusNew
}

// MapRecord translates one vendor inventory row into the local sync write
// set. Pure and total: no I/O, no clock reads, never fails. An unparseable
// vendor created_at leaves CreatedAt zero and the repository stamps it at
// insert time.
func MapRecord(rec InventoryRecord) model.SyncFields {
	var product *Product
	variation := rec.ProductVariation
	if variation != nil {
		product = variation.Product
	}

	var nameParts []string
	if product != nil {
		for _, part := range []string{product.Manufacturer, product.Model, product.Capacity, product.Color} {
			if part != "" {
				nameParts = append(nameParts, part)
			}
		}
	}
	name := strings.Join(nameParts, " - ")
	if name == "" {
		name = "Item " + rec.HexID
	}

	sku := rec.HexID
	if variation != nil && variation.SKU != "" {
		sku = variation.SKU
	}

	condition := "Unknown"
	if variation != nil && variation.Grade != "" {
		condition = variation.Grade
	}

	details := model.ItemDetails{
		ESN:        rec.ESN,
		HexID:      rec.HexID,
		Conditions: []string{},
	}
	if product != nil {
		details.Brand = product.Manufacturer
		details.Model = product.Model
		details.Color = product.Color
		details.Storage = product.Capacity
		details.Variant = product.Variant
		details.Network = product.Network
	}
	if variation != nil {
		details.Grade = variation.Grade
		for _, c := range variation.Conditions {
			details.Conditions = append(details.Conditions, c.Title)
		}
	}

	// Vendor amounts are integer cents. A missing or zero sale price maps to
	// null; total paid defaults to 0.
	var salePrice *float64
	if rec.SalePrice != nil && *rec.SalePrice != 0 {
		v := float64(*rec.SalePrice) / 100
		salePrice = &v
	}
	totalPaid := float64(rec.TotalPricePaid) / 100

	var createdAt time.Time
	if t, err := time.Parse(time.RFC3339, rec.CreatedAt); err == nil {
		createdAt = t
	}

	return model.SyncFields{
		Name:           name,
		SKU:            sku,
		Condition:      condition,
		Status:         ClassifyStatus(rec.Status),
		Listed:         rec.OrderID != nil,
		Details:        details,
		SalePrice:      salePrice,
		TotalPricePaid: totalPaid,
		Warehouse:      rec.Warehouse.Name,
		Location:       rec.Location.Name,
		CreatedAt:      createdAt,
	}
}
