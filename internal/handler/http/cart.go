package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VishalVrk/rfid-cart/internal/service"
	"github.com/VishalVrk/rfid-cart/pkg/httputil"
	"github.com/VishalVrk/rfid-cart/pkg/validator"
)

// CartHandler handles HTTP requests for the trolley cart.
type CartHandler struct {
	session *service.CartSession
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(session *service.CartSession, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		session: session,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
}

// UpdateQuantityRequest is the JSON request body for setting an item's
// quantity. Zero or less removes the item.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.session.GetCart())
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.session.ClearCart(r.Context()))
}

// SyncCart handles POST /api/v1/cart/sync. It reloads the catalog and
// reconciles the cart against the latest trolley snapshot.
func (h *CartHandler) SyncCart(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.RefreshCatalog(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, state)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	state, err := h.session.AddItem(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, state)
}

// UpdateQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	productID := chi.URLParam(r, "productId")
	httputil.WriteData(w, http.StatusOK, h.session.UpdateQuantity(r.Context(), productID, *req.Quantity))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	httputil.WriteData(w, http.StatusOK, h.session.RemoveItem(r.Context(), productID))
}
