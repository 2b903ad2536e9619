// Package handler exposes the customer and tariff plan reference data over
// HTTP.
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

	"github.com/OlyRIO/sim-erp-app/internal/refdata"
	"github.com/OlyRIO/sim-erp-app/pkg/httputil"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// Store defines the reference data operations the handler needs.
type Store interface {
	CreateCustomer(ctx context.Context, c *refdata.Customer) error
	ListCustomers(ctx context.Context) ([]*refdata.Customer, error)
	CreatePlan(ctx context.Context, p *refdata.TariffPlan) error
	ListPlans(ctx context.Context) ([]*refdata.TariffPlan, error)
}

// Handler wires reference data endpoints to the store.
type Handler struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a reference data handler.
func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger, now: time.Now}
}

// Register mounts reference data endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/customers", h.HandleCreateCustomer)
	r.Get("/customers", h.HandleListCustomers)
	r.Post("/tariff-plans", h.HandleCreatePlan)
	r.Get("/tariff-plans", h.HandleListPlans)
}

// CreateCustomerRequest is the HTTP request body for POST /customers.
type CreateCustomerRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

// Validate validates the request.
func (r *CreateCustomerRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return simerrors.New(simerrors.CodeValidation, "name is required")
	}
	if r.Email != nil {
		trimmed := strings.TrimSpace(*r.Email)
		if trimmed == "" {
			r.Email = nil
		} else if !strings.Contains(trimmed, "@") {
			return simerrors.New(simerrors.CodeValidation, "email must contain @")
		} else {
			r.Email = &trimmed
		}
	}
	return nil
}

// CreatePlanRequest is the HTTP request body for POST /tariff-plans.
type CreatePlanRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	MonthlyPriceCents int64  `json:"monthly_price_cents"`
}

// Validate validates the request.
func (r *CreatePlanRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return simerrors.New(simerrors.CodeValidation, "name is required")
	}
	if r.MonthlyPriceCents < 0 {
		return simerrors.New(simerrors.CodeValidation, "monthly_price_cents cannot be negative")
	}
	return nil
}

// HandleCreateCustomer handles POST /customers requests.
func (h *Handler) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CreateCustomerRequest](w, r, h.logger)
	if !ok {
		return
	}

	customer, err := refdata.NewCustomer(uuid.New(), req.Name, req.Email, h.now().UTC())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.CreateCustomer(r.Context(), customer); err != nil {
		h.logger.ErrorContext(r.Context(), "customer creation failed", "error", err)
		httputil.WriteError(w, mapStoreErr(err))
		return
	}

	h.logger.InfoContext(r.Context(), "customer created", "customer_id", customer.ID)
	httputil.WriteJSON(w, http.StatusCreated, customer)
}

// HandleListCustomers handles GET /customers requests.
func (h *Handler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": customers})
}

// HandleCreatePlan handles POST /tariff-plans requests.
func (h *Handler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CreatePlanRequest](w, r, h.logger)
	if !ok {
		return
	}

	plan, err := refdata.NewTariffPlan(uuid.New(), req.Name, req.Description, req.MonthlyPriceCents, h.now().UTC())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.CreatePlan(r.Context(), plan); err != nil {
		h.logger.ErrorContext(r.Context(), "plan creation failed", "error", err)
		httputil.WriteError(w, mapStoreErr(err))
		return
	}

	h.logger.InfoContext(r.Context(), "tariff plan created", "plan_id", plan.ID)
	httputil.WriteJSON(w, http.StatusCreated, plan)
}

// HandleListPlans handles GET /tariff-plans requests.
func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.store.ListPlans(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": plans})
}

// mapStoreErr turns store sentinels into coded errors for the response.
func mapStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return simerrors.Wrap(err, simerrors.CodeConflict, "already in use")
	}
	return err
}
