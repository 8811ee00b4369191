package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/service"
	"github.com/VishalVrk/rfid-cart/pkg/httputil"
	"github.com/VishalVrk/rfid-cart/pkg/pagination"
	"github.com/VishalVrk/rfid-cart/pkg/validator"
)

// PaymentHandler handles HTTP requests for checkout and payments.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// UpdateStatusRequest is the JSON request body for an admin status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed failed"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// Checkout handles POST /api/v1/checkout
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	result, err := h.payments.Checkout(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, result)
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, payment)
}

// ListPayments handles GET /api/v1/admin/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}

	payments, total, err := h.payments.ListPayments(r.Context(), status, page.Page, page.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.Payment](payments, total, page))
}

// UpdateStatus handles PUT /api/v1/admin/payments/{id}/status
func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payment, err := h.payments.UpdatePaymentStatus(r.Context(), id.String(), req.Status, req.Notes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, payment)
}
