package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/identifier"
	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// maxAllocAttempts bounds identifier regeneration. Hitting the bound means
// the configured identifier space is too small for the requested volume,
// not a transient condition, so the allocator gives up instead of spinning.
const maxAllocAttempts = 10

// CreateParams describes a SIM to create. Empty ICCID means allocate one;
// a provided ICCID is validated and never regenerated. MSISDN behaves the
// same, with AllocateMSISDN requesting generation.
type CreateParams struct {
	ICCID          string
	MSISDN         *string
	AllocateMSISDN bool
	TariffPlanID   *uuid.UUID
	// EventType lets bulk import record IMPORTED alongside CREATED.
	Imported bool
	Note     string
}

// Create allocates identifiers and inserts an AVAILABLE SIM with its
// CREATED event in one transaction. Uniqueness is enforced by the store's
// unique constraints; on a collision the allocator regenerates and retries,
// bounded by maxAllocAttempts. There is no in-process uniqueness cache, so
// concurrent importers stay correct.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.SimCard, error) {
	if params.ICCID != "" && !identifier.ValidICCID(params.ICCID) {
		return nil, simerrors.New(simerrors.CodeValidation, "iccid must be 19 digits with a valid Luhn checksum")
	}
	if params.MSISDN != nil && !identifier.ValidMSISDN(*params.MSISDN) {
		return nil, simerrors.New(simerrors.CodeValidation, "msisdn must be a Croatian E.164 mobile number")
	}

	for attempt := 1; attempt <= maxAllocAttempts; attempt++ {
		iccid := params.ICCID
		if iccid == "" {
			iccid = s.gen.ICCID()
		}
		msisdn := params.MSISDN
		if msisdn == nil && params.AllocateMSISDN {
			v := s.gen.MSISDN()
			msisdn = &v
		}

		now := s.now()
		sim, err := models.NewSimCard(uuid.New(), iccid, msisdn, params.TariffPlanID, now)
		if err != nil {
			return nil, err
		}

		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.sims.Create(ctx, sim); err != nil {
				return err
			}
			created := models.NewEvent(sim.ID, models.EventCreated, params.Note, now)
			if err := s.events.Append(ctx, created); err != nil {
				return err
			}
			if params.Imported {
				imported := models.NewEvent(sim.ID, models.EventImported, params.Note, now)
				if err := s.events.Append(ctx, imported); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			s.logger.Info("sim created", "sim_id", sim.ID, "iccid", sim.ICCID)
			return sim, nil
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, wrapStoreErr(err, "sim card")
		}
		// A collision on a caller-pinned value cannot be regenerated away;
		// the store names the colliding column on the violation.
		var uv *sentinel.UniqueViolation
		if errors.As(err, &uv) {
			if params.ICCID != "" && uv.Column == "iccid" {
				return nil, simerrors.Wrap(err, simerrors.CodeConflict, "iccid already in use")
			}
			if params.MSISDN != nil && uv.Column == "msisdn" {
				return nil, simerrors.Wrap(err, simerrors.CodeConflict, "msisdn already in use")
			}
		}
		s.metrics.IncAllocationRetry()
	}

	return nil, simerrors.New(simerrors.CodeIdentifierSpaceExhausted,
		"could not allocate a unique identifier; the configured identifier space is too small")
}
