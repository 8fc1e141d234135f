package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"phonedeck/internal/model"
	"phonedeck/internal/service"
	"phonedeck/pkg/response"
)

// ExportHandler produces file downloads of the inventory.
type ExportHandler struct {
	itemService *service.ItemService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(itemService *service.ItemService) *ExportHandler {
	return &ExportHandler{itemService: itemService}
}

var csvHeader = []string{
	"id", "wholecell_id", "name", "sku", "condition", "status", "listed",
	"sale_price", "total_price_paid", "warehouse", "location", "created_at",
}

// CSV handles GET /api/export/csv and streams the full inventory as a
// spreadsheet-friendly download.
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	filename := fmt.Sprintf("inventory-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	writer := csv.NewWriter(w)
	_ = writer.Write(csvHeader)
	for _, item := range items {
		_ = writer.Write(csvRow(item))
	}
	writer.Flush()
}

func csvRow(item model.InventoryItem) []string {
	wholecellID := ""
	if item.WholecellID != nil {
		wholecellID = fmt.Sprintf("%d", *item.WholecellID)
	}
	salePrice := ""
	if item.SalePrice != nil {
		salePrice = fmt.Sprintf("%.2f", *item.SalePrice)
	}
	listed := "no"
	if item.Listed {
		listed = "yes"
	}

	return []string{
		item.ID,
		wholecellID,
		item.Name,
		item.SKU,
		item.Condition,
		string(item.Status),
		listed,
		salePrice,
		fmt.Sprintf("%.2f", item.TotalPricePaid),
		item.Warehouse,
		item.Location,
		item.CreatedAt.UTC().Format(time.RFC3339),
	}
}
