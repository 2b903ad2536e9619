// Package handler wires SIM lifecycle endpoints to the sim service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/internal/sim/service"
	"github.com/OlyRIO/sim-erp-app/pkg/httputil"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// Service defines the interface for SIM lifecycle operations.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*models.SimCard, error)
	Get(ctx context.Context, simID uuid.UUID) (*models.SimCard, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.SimCard, int, error)
	History(ctx context.Context, simID uuid.UUID) ([]*models.SimEvent, error)
	Reserve(ctx context.Context, simID, customerID uuid.UUID) (*models.SimCard, error)
	Activate(ctx context.Context, simID uuid.UUID, params service.ActivateParams) (*models.SimCard, error)
	Suspend(ctx context.Context, simID uuid.UUID, reason string) (*models.SimCard, error)
	Resume(ctx context.Context, simID uuid.UUID) (*models.SimCard, error)
	ReportLost(ctx context.Context, simID uuid.UUID, reason string) (*models.SimCard, error)
	Terminate(ctx context.Context, simID uuid.UUID, reason string) (*models.SimCard, error)
	Swap(ctx context.Context, oldSimID, newSimID, customerID uuid.UUID) (*service.SwapResult, error)
	Import(ctx context.Context, r io.Reader) (*service.ImportReport, error)
}

// Handler wires SIM endpoints to the sim service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a SIM handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts SIM endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/sims", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Post("/swap", h.HandleSwap)
		r.Post("/import", h.HandleImport)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Get("/events", h.HandleHistory)
			r.Post("/reserve", h.HandleReserve)
			r.Post("/activate", h.HandleActivate)
			r.Post("/suspend", h.HandleSuspend)
			r.Post("/resume", h.HandleResume)
			r.Post("/report-lost", h.HandleReportLost)
			r.Post("/terminate", h.HandleTerminate)
		})
	})
}

// HandleCreate handles POST /sims requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger)
	if !ok {
		return
	}

	sim, err := h.service.Create(r.Context(), service.CreateParams{
		ICCID:          req.ICCID,
		MSISDN:         req.MSISDN,
		AllocateMSISDN: req.AllocateMSISDN,
		TariffPlanID:   req.TariffPlanID,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sim creation failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "sim created",
		"sim_id", sim.ID,
		"iccid", sim.ICCID,
	)
	httputil.WriteJSON(w, http.StatusCreated, sim)
}

// HandleGet handles GET /sims/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	simID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	sim, err := h.service.Get(r.Context(), simID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sim)
}

// HandleList handles GET /sims requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sims, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Items: sims, Total: total})
}

// HandleHistory handles GET /sims/{id}/events requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	simID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	events, err := h.service.History(r.Context(), simID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Events: events})
}

// HandleReserve handles POST /sims/{id}/reserve requests.
func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	simID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReserveRequest](w, r, h.logger)
	if !ok {
		return
	}

	sim, err := h.service.Reserve(r.Context(), simID, req.CustomerID)
	h.writeTransition(w, r, "reserve", sim, err)
}

// HandleActivate handles POST /sims/{id}/activate requests.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	simID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, err := decodeOptional[ActivateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sim, err := h.service.Activate(r.Context(), simID, service.ActivateParams{
		Code:       req.Code,
		CustomerID: req.CustomerID,
	})
	h.writeTransition(w, r, "activate", sim, err)
}

// HandleSuspend handles POST /sims/{id}/suspend requests.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.reasonTransition(w, r, "suspend", h.service.Suspend)
}

// HandleResume handles POST /sims/{id}/resume requests.
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	simID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sim, err := h.service.Resume(r.Context(), simID)
	h.writeTransition(w, r, "resume", sim, err)
}

// HandleReportLost handles POST /sims/{id}/report-lost requests.
func (h *Handler) HandleReportLost(w http.ResponseWriter, r *http.Request) {
	h.reasonTransition(w, r, "report_lost", h.service.ReportLost)
}

// HandleTerminate handles POST /sims/{id}/terminate requests.
func (h *Handler) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	h.reasonTransition(w, r, "terminate", h.service.Terminate)
}

// HandleSwap handles POST /sims/swap requests.
func (h *Handler) HandleSwap(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[SwapRequest](w, r, h.logger)
	if !ok {
		return
	}
	start := time.Now()

	result, err := h.service.Swap(r.Context(), req.OldSimID, req.NewSimID, req.CustomerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sim swap failed",
			"old_sim_id", req.OldSimID,
			"new_sim_id", req.NewSimID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "sim swapped",
		"old_sim_id", result.Old.ID,
		"new_sim_id", result.New.ID,
		"customer_id", req.CustomerID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleImport handles POST /sims/import requests. The body is raw CSV.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.service.Import(r.Context(), r.Body)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sim import failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "sim import finished",
		"imported", report.Imported,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// reasonTransition factors the suspend/report-lost/terminate handlers,
// which differ only in the service call. The body is optional.
func (h *Handler) reasonTransition(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	call func(ctx context.Context, simID uuid.UUID, reason string) (*models.SimCard, error),
) {
	simID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, err := decodeOptional[ReasonRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sim, err := call(r.Context(), simID, req.Reason)
	h.writeTransition(w, r, op, sim, err)
}

func (h *Handler) writeTransition(w http.ResponseWriter, r *http.Request, op string, sim *models.SimCard, err error) {
	if err != nil {
		h.logger.WarnContext(r.Context(), "sim transition rejected",
			"operation", op,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "sim transition applied",
		"operation", op,
		"sim_id", sim.ID,
		"status", sim.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, sim)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, simerrors.New(simerrors.CodeValidation, "sim id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// decodeOptional decodes the body into T, treating an empty body as the
// zero value. Transitions like suspend take an optional reason.
func decodeOptional[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, simerrors.New(simerrors.CodeValidation, "malformed request body")
	}
	return &req, nil
}
