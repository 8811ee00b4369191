package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VishalVrk/rfid-cart/internal/service"
	"github.com/VishalVrk/rfid-cart/pkg/httputil"
	"github.com/VishalVrk/rfid-cart/pkg/validator"
)

// AccountHandler handles HTTP requests for UPI payment accounts.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates a new payment account HTTP handler.
func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// AccountRequest is the JSON request body for creating or replacing an account.
type AccountRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	UPIID     string `json:"upi_id" validate:"required,upi"`
	IsDefault bool   `json:"is_default"`
}

func (req AccountRequest) input() *service.AccountInput {
	return &service.AccountInput{Name: req.Name, UPIID: req.UPIID, IsDefault: req.IsDefault}
}

// ListAccounts handles GET /api/v1/admin/payment-accounts
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, accounts)
}

// GetDefaultAccount handles GET /api/v1/admin/payment-accounts/default
func (h *AccountHandler) GetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetDefaultAccount(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, account)
}

// CreateAccount handles POST /api/v1/admin/payment-accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, account)
}

// UpdateAccount handles PUT /api/v1/admin/payment-accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AccountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	account, err := h.accounts.UpdateAccount(r.Context(), id.String(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, account)
}

// DeleteAccount handles DELETE /api/v1/admin/payment-accounts/{id}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
