package handler

import (
	"errors"
	"net/http"

	"phonedeck/internal/ebay"
	"phonedeck/internal/service"
	"phonedeck/pkg/apierror"
	"phonedeck/pkg/response"

	"github.com/go-chi/chi/v5"
)

// EbayHandler exposes the eBay OAuth flow and listing publication.
type EbayHandler struct {
	ebayService *service.EbayService
}

// NewEbayHandler creates a new eBay handler.
func NewEbayHandler(ebayService *service.EbayService) *EbayHandler {
	return &EbayHandler{ebayService: ebayService}
}

// Connect handles GET /api/ebay/connect and redirects the operator to the
// eBay consent page.
func (h *EbayHandler) Connect(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.ebayService.AuthorizationURL()
	if err != nil {
		response.Error(w, mapEbayError(err))
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /api/ebay/callback where eBay returns the operator
// after consent.
func (h *EbayHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		response.Error(w, apierror.BadRequest("missing authorization code"))
		return
	}

	if err := h.ebayService.HandleCallback(r.Context(), code); err != nil {
		response.Error(w, mapEbayError(err))
		return
	}
	response.OK(w, map[string]interface{}{"connected": true})
}

// Status handles GET /api/ebay/status
func (h *EbayHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"connected": h.ebayService.Connected(r.Context()),
	})
}

// Disconnect handles POST /api/ebay/disconnect
func (h *EbayHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.ebayService.Disconnect(r.Context()); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"connected": false})
}

// Publish handles POST /api/ebay/publish/{id}
func (h *EbayHandler) Publish(w http.ResponseWriter, r *http.Request) {
	result, err := h.ebayService.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, mapEbayError(err))
		return
	}
	response.OK(w, result)
}

func mapEbayError(err error) error {
	var apiErr *ebay.APIError
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		return apierror.NotFound("item not found")
	case errors.Is(err, service.ErrNoListing):
		return apierror.BadRequest("item has no generated listing")
	case errors.Is(err, service.ErrEbayNotConnected):
		return apierror.BadRequest("not connected to eBay, authorize first")
	case errors.Is(err, service.ErrEbayAuthExpired):
		return apierror.BadRequest("eBay authorization has expired, re-authorize")
	case errors.Is(err, ebay.ErrNotConfigured):
		return apierror.ServiceUnavailable("eBay credentials are not configured")
	case errors.As(err, &apiErr):
		return apierror.BadGateway(apiErr.Message)
	default:
		return err
	}
}
