// Package handler exposes billing accounts and bills over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/billing"
	"github.com/OlyRIO/sim-erp-app/pkg/httputil"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// Store defines the billing operations the handler needs.
type Store interface {
	CreateAccount(ctx context.Context, a *billing.Account) error
	GetAccountByNumber(ctx context.Context, accountNumber string) (*billing.Account, error)
	CreateBill(ctx context.Context, b *billing.Bill) error
	ListOpenBills(ctx context.Context, accountID string) ([]*billing.Bill, error)
	LastOpenBill(ctx context.Context, accountID string) (*billing.Bill, error)
}

// Handler wires billing endpoints to the store.
type Handler struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a billing handler.
func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger, now: time.Now}
}

// Register mounts billing endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/billing-accounts", h.HandleCreateAccount)
	r.Get("/billing-accounts/{number}", h.HandleGetAccount)
	r.Post("/billing-accounts/{number}/bills", h.HandleCreateBill)
	r.Get("/billing-accounts/{number}/open-bills", h.HandleListOpenBills)
	r.Get("/billing-accounts/{number}/last-open-bill", h.HandleLastOpenBill)
}

// CreateAccountRequest is the HTTP request body for POST /billing-accounts.
type CreateAccountRequest struct {
	AccountNumber string    `json:"account_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
}

// Validate validates the request.
func (r *CreateAccountRequest) Validate() error {
	r.AccountNumber = strings.TrimSpace(r.AccountNumber)
	if r.AccountNumber == "" {
		return simerrors.New(simerrors.CodeValidation, "account_number is required")
	}
	if r.CustomerID == uuid.Nil {
		return simerrors.New(simerrors.CodeValidation, "customer_id is required")
	}
	return nil
}

// CreateBillRequest is the HTTP request body for POST /billing-accounts/{number}/bills.
type CreateBillRequest struct {
	BillMonth        string     `json:"bill_month"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	DueDate          *time.Time `json:"due_date"`
}

// Validate validates the request.
func (r *CreateBillRequest) Validate() error {
	r.BillMonth = strings.TrimSpace(r.BillMonth)
	if r.BillMonth == "" {
		return simerrors.New(simerrors.CodeValidation, "bill_month is required")
	}
	if r.TotalAmountCents < 0 {
		return simerrors.New(simerrors.CodeValidation, "total_amount_cents cannot be negative")
	}
	return nil
}

// HandleCreateAccount handles POST /billing-accounts requests.
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CreateAccountRequest](w, r, h.logger)
	if !ok {
		return
	}

	account, err := billing.NewAccount(uuid.New(), req.AccountNumber, req.CustomerID, h.now().UTC())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.CreateAccount(r.Context(), account); err != nil {
		h.logger.ErrorContext(r.Context(), "billing account creation failed", "error", err)
		httputil.WriteError(w, mapStoreErr(err))
		return
	}

	h.logger.InfoContext(r.Context(), "billing account created",
		"account_id", account.ID, "account_number", account.AccountNumber)
	httputil.WriteJSON(w, http.StatusCreated, account)
}

// HandleGetAccount handles GET /billing-accounts/{number} requests.
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.GetAccountByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// HandleCreateBill handles POST /billing-accounts/{number}/bills requests.
func (h *Handler) HandleCreateBill(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.GetAccountByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err))
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateBillRequest](w, r, h.logger)
	if !ok {
		return
	}

	bill, err := billing.NewBill(uuid.New(), account.ID, req.BillMonth, req.TotalAmountCents, req.DueDate, h.now().UTC())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.CreateBill(r.Context(), bill); err != nil {
		h.logger.ErrorContext(r.Context(), "bill creation failed", "error", err)
		httputil.WriteError(w, mapStoreErr(err))
		return
	}

	h.logger.InfoContext(r.Context(), "bill created",
		"bill_id", bill.ID, "account_number", account.AccountNumber, "bill_month", bill.BillMonth)
	httputil.WriteJSON(w, http.StatusCreated, bill)
}

// HandleListOpenBills handles GET /billing-accounts/{number}/open-bills requests.
func (h *Handler) HandleListOpenBills(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.GetAccountByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err))
		return
	}
	bills, err := h.store.ListOpenBills(r.Context(), account.ID.String())
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": bills})
}

// HandleLastOpenBill handles GET /billing-accounts/{number}/last-open-bill requests.
func (h *Handler) HandleLastOpenBill(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.GetAccountByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err))
		return
	}
	bill, err := h.store.LastOpenBill(r.Context(), account.ID.String())
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bill)
}

// mapStoreErr turns store sentinels into coded errors for the response.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return simerrors.Wrap(err, simerrors.CodeNotFound, "not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return simerrors.Wrap(err, simerrors.CodeConflict, "already in use")
	}
	return err
}
