package wholecell

// Product describes the device model behind a variation.
type Product struct {
	ID           int64  `json:"id"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Variant      string `json:"variant"`
	Network      string `json:"network"`
	Capacity     string `json:"capacity"`
	Color        string `json:"color"`
}

// ConditionTag is one cosmetic/functional condition flag on a variation.
type ConditionTag struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Initials string `json:"initials"`
}

// ProductVariation is the SKU-level record an inventory row points at.
type ProductVariation struct {
	ID         int64          `json:"id"`
	SKU        string         `json:"sku"`
	Product    *Product       `json:"product"`
	Grade      string         `json:"grade"`
	Conditions []ConditionTag `json:"conditions"`
}

// NamedRef is WholeCell's {"name": ...} wrapper for warehouse and location.
type NamedRef struct {
	Name string `json:"name"`
}

// InventoryRecord is one raw inventory row as returned by the vendor.
// It is never persisted verbatim; it exists only inside a sync run.
type InventoryRecord struct {
	ID               int64             `json:"id"`
	ESN              string            `json:"esn"`
	Status           string            `json:"status"`
	OrderID          *int64            `json:"order_id"`
	HexID            string            `json:"hex_id"`
	SalePrice        *int64            `json:"sale_price"`
	TotalPricePaid   int64             `json:"total_price_paid"`
	InitialPricePaid *int64            `json:"initial_price_paid"`
	CreatedAt        string            `json:"created_at"`
	UpdatedAt        string            `json:"updated_at"`
	PurchaseOrderID  int64             `json:"purchase_order_id"`
	ProductVariation *ProductVariation `json:"product_variation"`
	Warehouse        NamedRef          `json:"warehouse"`
	Location         NamedRef          `json:"location"`
}

// InventoryPage is one page of the paginated inventories listing.
type InventoryPage struct {
	Data  []InventoryRecord `json:"data"`
	Page  int               `json:"page"`
	Pages int               `json:"pages"`
}
