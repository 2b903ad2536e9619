package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// Reserve assigns a customer to an AVAILABLE SIM and moves it to RESERVED.
// Emits ASSIGNED plus STATUS_CHANGED in the same transaction.
func (s *Service) Reserve(ctx context.Context, simID, customerID uuid.UUID) (*models.SimCard, error) {
	var out *models.SimCard
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sim, err := s.lockSim(ctx, simID)
		if err != nil {
			return err
		}
		tr, err := models.Next(models.OpReserve, sim.Status)
		if err != nil {
			return err
		}

		now := s.now()
		old := sim.Status
		sim.Status = tr.NextStatus
		sim.CustomerID = &customerID
		sim.UpdatedAt = now
		if err := s.sims.Update(ctx, sim); err != nil {
			return wrapStoreErr(err, "sim card")
		}

		assigned := models.NewEvent(sim.ID, models.EventAssigned, "customer "+customerID.String(), now)
		if err := s.events.Append(ctx, assigned); err != nil {
			return wrapStoreErr(err, "sim event")
		}
		changed := models.NewStatusEvent(sim.ID, tr.EventType, old, sim.Status, "", now)
		if err := s.events.Append(ctx, changed); err != nil {
			return wrapStoreErr(err, "sim event")
		}
		out = sim
		return nil
	})
	// Begin/commit failures carry no code yet; map them so StoreUnavailable
	// reaches the caller typed instead of as an internal error.
	err = wrapStoreErr(err, "sim card")
	s.metrics.IncTransition(string(models.OpReserve), outcome(err))
	if err != nil {
		return nil, err
	}
	s.logger.Info("sim reserved", "sim_id", simID, "customer_id", customerID)
	return out, nil
}

// ActivateParams carries the optional inputs of Activate. Code, when given,
// must be UNUSED and unexpired and is consumed in the same transaction.
// CustomerID is required when the SIM has no customer yet: an ACTIVE SIM
// without a customer would violate the core invariant.
type ActivateParams struct {
	Code       *string
	CustomerID *uuid.UUID
}

// Activate moves an AVAILABLE or RESERVED SIM to ACTIVE.
func (s *Service) Activate(ctx context.Context, simID uuid.UUID, params ActivateParams) (*models.SimCard, error) {
	var out *models.SimCard
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sim, err := s.lockSim(ctx, simID)
		if err != nil {
			return err
		}
		tr, err := models.Next(models.OpActivate, sim.Status)
		if err != nil {
			return err
		}
		if sim.CustomerID == nil && params.CustomerID == nil {
			return simerrors.New(simerrors.CodeInvalidTransition, "cannot activate sim without a customer")
		}

		now := s.now()
		note := ""
		if params.Code != nil {
			ac, err := s.codes.Get(ctx, *params.Code)
			if err != nil {
				return simerrors.Wrap(err, simerrors.CodeCodeUnusable, "activation code not found")
			}
			if err := ac.Usable(now); err != nil {
				return err
			}
			if err := s.codes.MarkUsed(ctx, ac.Code, sim.ID, now); err != nil {
				return simerrors.Wrap(err, simerrors.CodeCodeUnusable, "activation code no longer usable")
			}
			note = "code " + ac.Code
		}

		old := sim.Status
		sim.Status = tr.NextStatus
		if sim.CustomerID == nil {
			sim.CustomerID = params.CustomerID
		}
		sim.UpdatedAt = now
		if err := s.sims.Update(ctx, sim); err != nil {
			return wrapStoreErr(err, "sim card")
		}

		ev := models.NewStatusEvent(sim.ID, tr.EventType, old, sim.Status, note, now)
		if err := s.events.Append(ctx, ev); err != nil {
			return wrapStoreErr(err, "sim event")
		}
		out = sim
		return nil
	})
	err = wrapStoreErr(err, "sim card")
	s.metrics.IncTransition(string(models.OpActivate), outcome(err))
	if err != nil {
		return nil, err
	}
	s.logger.Info("sim activated", "sim_id", simID)
	return out, nil
}

// Suspend moves an ACTIVE SIM to SUSPENDED, recording the reason.
func (s *Service) Suspend(ctx context.Context, simID uuid.UUID, reason string) (*models.SimCard, error) {
	out, err := s.statusTransition(ctx, simID, models.OpSuspend, reason, nil)
	s.metrics.IncTransition(string(models.OpSuspend), outcome(err))
	return out, err
}

// Resume moves a SUSPENDED SIM back to ACTIVE.
func (s *Service) Resume(ctx context.Context, simID uuid.UUID) (*models.SimCard, error) {
	out, err := s.statusTransition(ctx, simID, models.OpResume, "", nil)
	s.metrics.IncTransition(string(models.OpResume), outcome(err))
	return out, err
}

// ReportLost moves an ACTIVE, SUSPENDED or RESERVED SIM to LOST_STOLEN.
func (s *Service) ReportLost(ctx context.Context, simID uuid.UUID, reason string) (*models.SimCard, error) {
	out, err := s.statusTransition(ctx, simID, models.OpReportLost, reason, nil)
	s.metrics.IncTransition(string(models.OpReportLost), outcome(err))
	return out, err
}

// Terminate retires a SIM from any non-terminal status and clears its
// customer. There is no way back out of TERMINATED.
func (s *Service) Terminate(ctx context.Context, simID uuid.UUID, reason string) (*models.SimCard, error) {
	clearCustomer := func(sim *models.SimCard) {
		sim.CustomerID = nil
	}
	out, err := s.statusTransition(ctx, simID, models.OpTerminate, reason, clearCustomer)
	s.metrics.IncTransition(string(models.OpTerminate), outcome(err))
	return out, err
}

// statusTransition is the shared single-status-change path: lock, check the
// table, mutate, append one event, commit. Operations with extra legs
// (Reserve, Activate, Swap) have their own bodies.
func (s *Service) statusTransition(ctx context.Context, simID uuid.UUID, op models.Operation, note string, mutate func(*models.SimCard)) (*models.SimCard, error) {
	var out *models.SimCard
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sim, err := s.lockSim(ctx, simID)
		if err != nil {
			return err
		}
		tr, err := models.Next(op, sim.Status)
		if err != nil {
			return err
		}

		now := s.now()
		old := sim.Status
		sim.Status = tr.NextStatus
		if mutate != nil {
			mutate(sim)
		}
		sim.UpdatedAt = now
		if err := s.sims.Update(ctx, sim); err != nil {
			return wrapStoreErr(err, "sim card")
		}

		ev := models.NewStatusEvent(sim.ID, tr.EventType, old, sim.Status, note, now)
		if err := s.events.Append(ctx, ev); err != nil {
			return wrapStoreErr(err, "sim event")
		}
		out = sim
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "sim card")
	}
	s.logger.Info("sim status changed", "sim_id", simID, "operation", string(op), "status", string(out.Status))
	return out, nil
}

// History returns a SIM's ordered event trail. Read-only, no business logic.
func (s *Service) History(ctx context.Context, simID uuid.UUID) ([]*models.SimEvent, error) {
	if _, err := s.sims.Get(ctx, simID); err != nil {
		return nil, wrapStoreErr(err, "sim card")
	}
	events, err := s.events.ListBySim(ctx, simID)
	if err != nil {
		return nil, wrapStoreErr(err, "sim events")
	}
	return events, nil
}

// Get fetches one SIM.
func (s *Service) Get(ctx context.Context, simID uuid.UUID) (*models.SimCard, error) {
	sim, err := s.sims.Get(ctx, simID)
	if err != nil {
		return nil, wrapStoreErr(err, "sim card")
	}
	return sim, nil
}

// List returns SIMs matching the filter plus the total match count.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.SimCard, int, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, simerrors.New(simerrors.CodeValidation, fmt.Sprintf("unknown status %q", *filter.Status))
	}
	sims, total, err := s.sims.List(ctx, filter)
	if err != nil {
		return nil, 0, wrapStoreErr(err, "sim cards")
	}
	return sims, total, nil
}
