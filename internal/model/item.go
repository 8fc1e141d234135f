package model

import (
	"errors"
	"time"
)

// ErrInvalidStatus is returned when a caller supplies a status outside the
// lifecycle states.
var ErrInvalidStatus = errors.New("invalid item status")

// ItemStatus is the coarse lifecycle state of an inventory item.
// Items move forward through new -> photos_completed -> listing_generated
// as the photo manager and listing generator act on them.
type ItemStatus string

const (
	StatusNew              ItemStatus = "new"
	StatusPhotosCompleted  ItemStatus = "photos_completed"
	StatusListingGenerated ItemStatus = "listing_generated"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusNew, StatusPhotosCompleted, StatusListingGenerated:
		return true
	}
	return false
}

// Rank orders lifecycle states for forward-only progression checks.
func (s ItemStatus) Rank() int {
	switch s {
	case StatusPhotosCompleted:
		return 1
	case StatusListingGenerated:
		return 2
	default:
		return 0
	}
}

// ItemDetails is the structured device detail bag. The sync engine passes it
// through verbatim; only the UI and listing generator interpret it.
type ItemDetails struct {
	Brand      string   `json:"brand"`
	Model      string   `json:"model"`
	Color      string   `json:"color"`
	Storage    string   `json:"storage"`
	Variant    string   `json:"variant"`
	Network    string   `json:"network"`
	ESN        string   `json:"esn"`
	HexID      string   `json:"hexId"`
	Grade      string   `json:"grade"`
	Conditions []string `json:"conditions"`
}

// Listing is a generated or hand-edited marketplace listing payload.
// Owned by the listing generator; sync never writes it.
type Listing struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
}

// InventoryItem is the local durable item record.
type InventoryItem struct {
	ID             string      `json:"id"`
	WholecellID    *int64      `json:"wholecellId"`
	Name           string      `json:"name"`
	SKU            string      `json:"sku"`
	Condition      string      `json:"condition"`
	Status         ItemStatus  `json:"status"`
	Listed         bool        `json:"listed"`
	Details        ItemDetails `json:"details"`
	Photos         []string    `json:"photos"`
	Listing        *Listing    `json:"listing"`
	SalePrice      *float64    `json:"salePrice"`
	TotalPricePaid float64     `json:"totalPricePaid"`
	Warehouse      string      `json:"warehouse"`
	Location       string      `json:"location"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastUpdated    time.Time   `json:"lastUpdated"`
}

// SyncFields is the write set of one sync upsert: every pass-through field,
// and nothing else. Photos and Listing are deliberately absent so an upsert
// can never clobber collaborator-owned data.
type SyncFields struct {
	Name           string
	SKU            string
	Condition      string
	Status         ItemStatus
	Listed         bool
	Details        ItemDetails
	SalePrice      *float64
	TotalPricePaid float64
	Warehouse      string
	Location       string
	CreatedAt      time.Time
}

// ItemUpdate is a partial update applied by collaborators (photo manager,
// listing generator, operator edits). Nil fields are left unchanged.
type ItemUpdate struct {
	Name           *string      `json:"name"`
	SKU            *string      `json:"sku"`
	Condition      *string      `json:"condition"`
	Status         *ItemStatus  `json:"status"`
	Listed         *bool        `json:"listed"`
	Details        *ItemDetails `json:"details"`
	Photos         *[]string    `json:"photos"`
	Listing        *Listing     `json:"listing"`
	SalePrice      *float64     `json:"salePrice"`
	TotalPricePaid *float64     `json:"totalPricePaid"`
	Warehouse      *string      `json:"warehouse"`
	Location       *string      `json:"location"`
}
