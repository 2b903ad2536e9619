package service

import (
	"bytes"
	"context"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// SwapResult is the committed outcome of a swap: both SIM snapshots.
type SwapResult struct {
	Old *models.SimCard `json:"old"`
	New *models.SimCard `json:"new"`
}

// Swap decommissions oldSim and activates newSim as its replacement in one
// atomic unit: terminate old, transfer customer and tariff plan, activate
// new, with SWAPPED events on both SIMs. Any failed leg rolls the whole
// thing back, so the customer is never observably left with zero or two
// active SIMs.
func (s *Service) Swap(ctx context.Context, oldSimID, newSimID, customerID uuid.UUID) (*SwapResult, error) {
	if oldSimID == newSimID {
		return nil, simerrors.New(simerrors.CodeValidation, "cannot swap a sim with itself")
	}

	var result SwapResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Lock both rows in deterministic ID order so two concurrent swaps
		// over the same pair cannot deadlock.
		firstID, secondID := oldSimID, newSimID
		if bytes.Compare(newSimID[:], oldSimID[:]) < 0 {
			firstID, secondID = newSimID, oldSimID
		}
		first, err := s.lockSim(ctx, firstID)
		if err != nil {
			return err
		}
		second, err := s.lockSim(ctx, secondID)
		if err != nil {
			return err
		}
		oldSim, newSim := first, second
		if first.ID != oldSimID {
			oldSim, newSim = second, first
		}

		if oldSim.Status != models.StatusActive {
			return simerrors.New(simerrors.CodeInvalidTransition, "old sim must be ACTIVE to swap")
		}
		if oldSim.CustomerID == nil || *oldSim.CustomerID != customerID {
			return simerrors.New(simerrors.CodeValidation, "old sim does not belong to this customer")
		}
		if newSim.Status != models.StatusAvailable {
			return simerrors.New(simerrors.CodeInvalidTransition, "replacement sim must be AVAILABLE")
		}

		now := s.now()

		// Terminate the old SIM.
		termTr, err := models.Next(models.OpTerminate, oldSim.Status)
		if err != nil {
			return err
		}
		oldStatus := oldSim.Status
		transferredPlan := oldSim.TariffPlanID
		oldSim.Status = termTr.NextStatus
		oldSim.CustomerID = nil
		oldSim.UpdatedAt = now
		if err := s.sims.Update(ctx, oldSim); err != nil {
			return wrapStoreErr(err, "sim card")
		}

		// Activate the replacement with the transferred customer and plan.
		actTr, err := models.Next(models.OpActivate, newSim.Status)
		if err != nil {
			return err
		}
		newStatus := newSim.Status
		newSim.Status = actTr.NextStatus
		newSim.CustomerID = &customerID
		newSim.TariffPlanID = transferredPlan
		newSim.UpdatedAt = now
		if err := s.sims.Update(ctx, newSim); err != nil {
			return wrapStoreErr(err, "sim card")
		}

		events := []*models.SimEvent{
			models.NewStatusEvent(oldSim.ID, termTr.EventType, oldStatus, oldSim.Status, "swapped", now),
			models.NewEvent(oldSim.ID, models.EventSwapped, "replaced by "+newSim.ICCID, now),
			models.NewStatusEvent(newSim.ID, actTr.EventType, newStatus, newSim.Status, "swap", now),
			models.NewEvent(newSim.ID, models.EventSwapped, "replaces "+oldSim.ICCID, now),
		}
		for _, ev := range events {
			if err := s.events.Append(ctx, ev); err != nil {
				return wrapStoreErr(err, "sim event")
			}
		}

		result.Old = oldSim
		result.New = newSim
		return nil
	})
	err = wrapStoreErr(err, "sim card")
	s.metrics.IncTransition("swap", outcome(err))
	if err != nil {
		return nil, err
	}
	s.logger.Info("sim swapped",
		"old_sim_id", oldSimID, "new_sim_id", newSimID, "customer_id", customerID)
	return &result, nil
}
