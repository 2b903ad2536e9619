package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// CreateRequest is the HTTP request body for POST /sims. Omitting iccid
// asks the allocator for one; allocate_msisdn does the same for the number.
type CreateRequest struct {
	ICCID          string     `json:"iccid"`
	MSISDN         *string    `json:"msisdn"`
	AllocateMSISDN bool       `json:"allocate_msisdn"`
	TariffPlanID   *uuid.UUID `json:"tariff_plan_id"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateRequest) Validate() error {
	r.ICCID = strings.TrimSpace(r.ICCID)
	if r.MSISDN != nil {
		trimmed := strings.TrimSpace(*r.MSISDN)
		if trimmed == "" {
			r.MSISDN = nil
		} else {
			r.MSISDN = &trimmed
		}
	}
	if r.MSISDN != nil && r.AllocateMSISDN {
		return simerrors.New(simerrors.CodeValidation, "msisdn and allocate_msisdn are mutually exclusive")
	}
	return nil
}

// ReserveRequest is the HTTP request body for POST /sims/{id}/reserve.
type ReserveRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
}

// Validate validates the request.
func (r *ReserveRequest) Validate() error {
	if r.CustomerID == uuid.Nil {
		return simerrors.New(simerrors.CodeValidation, "customer_id is required")
	}
	return nil
}

// ActivateRequest is the HTTP request body for POST /sims/{id}/activate.
// Both fields are optional; customer_id is required only for SIMs that
// have not been reserved first.
type ActivateRequest struct {
	Code       *string    `json:"code"`
	CustomerID *uuid.UUID `json:"customer_id"`
}

// ReasonRequest is the optional body for suspend, report-lost and
// terminate.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// SwapRequest is the HTTP request body for POST /sims/swap.
type SwapRequest struct {
	OldSimID   uuid.UUID `json:"old_sim_id"`
	NewSimID   uuid.UUID `json:"new_sim_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// Validate validates the request.
func (r *SwapRequest) Validate() error {
	if r.OldSimID == uuid.Nil {
		return simerrors.New(simerrors.CodeValidation, "old_sim_id is required")
	}
	if r.NewSimID == uuid.Nil {
		return simerrors.New(simerrors.CodeValidation, "new_sim_id is required")
	}
	if r.CustomerID == uuid.Nil {
		return simerrors.New(simerrors.CodeValidation, "customer_id is required")
	}
	return nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// parseListFilter builds a ListFilter from GET /sims query parameters.
func parseListFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{
		Search:  strings.TrimSpace(q.Get("search")),
		Carrier: strings.TrimSpace(q.Get("carrier")),
		Limit:   defaultListLimit,
	}

	if raw := q.Get("status"); raw != "" {
		status := models.Status(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, simerrors.New(simerrors.CodeValidation, "unknown status "+raw)
		}
		filter.Status = &status
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return filter, simerrors.New(simerrors.CodeValidation, "limit must be between 1 and 500")
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, simerrors.New(simerrors.CodeValidation, "offset must be non-negative")
		}
		filter.Offset = offset
	}
	return filter, nil
}
