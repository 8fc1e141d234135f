package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"phonedeck/internal/model"
	"phonedeck/internal/service"
	"phonedeck/pkg/apierror"
	"phonedeck/pkg/response"

	"github.com/go-chi/chi/v5"
)

// InventoryHandler handles inventory item HTTP requests.
type InventoryHandler struct {
	itemService    *service.ItemService
	listingService *service.ListingService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(itemService *service.ItemService, listingService *service.ListingService) *InventoryHandler {
	return &InventoryHandler{
		itemService:    itemService,
		listingService: listingService,
	}
}

// List handles GET /api/inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, items)
}

// Get handles GET /api/inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, mapItemError(err))
		return
	}
	response.OK(w, item)
}

// Create handles POST /api/inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if item.Name == "" {
		response.Error(w, apierror.ValidationError("name is required",
			apierror.FieldError{Field: "name", Message: "must not be empty"}))
		return
	}

	created, err := h.itemService.Create(r.Context(), &item)
	if err != nil {
		response.Error(w, mapItemError(err))
		return
	}
	response.Created(w, created)
}

// Update handles PATCH /api/inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd model.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	item, err := h.itemService.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		response.Error(w, mapItemError(err))
		return
	}
	response.OK(w, item)
}

// Delete handles DELETE /api/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.itemService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, mapItemError(err))
		return
	}
	response.NoContent(w)
}

// GenerateListing handles POST /api/inventory/{id}/listing/generate
func (h *InventoryHandler) GenerateListing(w http.ResponseWriter, r *http.Request) {
	item, err := h.listingService.Generate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, mapItemError(err))
		return
	}
	response.OK(w, item)
}

func mapItemError(err error) error {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		return apierror.NotFound("item not found")
	case errors.Is(err, model.ErrInvalidStatus):
		return apierror.ValidationError("invalid status",
			apierror.FieldError{Field: "status", Message: "must be new, photos_completed, or listing_generated"})
	default:
		return err
	}
}
