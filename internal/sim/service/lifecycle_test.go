package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/activationcode"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/event"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/simcard"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

type LifecycleSuite struct {
	suite.Suite
	ctx     context.Context
	sims    *simcard.Memory
	events  *event.Memory
	codes   *activationcode.Memory
	service *Service
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx = context.Background()
	s.sims = simcard.NewMemory()
	s.events = event.NewMemory()
	s.codes = activationcode.NewMemory()
	s.service = New(s.sims, s.events, s.codes, tx.NewSerial())
}

// newSim creates an AVAILABLE SIM through the service so it carries a
// proper CREATED event.
func (s *LifecycleSuite) newSim() *models.SimCard {
	sim, err := s.service.Create(s.ctx, CreateParams{AllocateMSISDN: true})
	s.Require().NoError(err)
	return sim
}

func (s *LifecycleSuite) activeSim(customerID uuid.UUID) *models.SimCard {
	sim := s.newSim()
	_, err := s.service.Reserve(s.ctx, sim.ID, customerID)
	s.Require().NoError(err)
	out, err := s.service.Activate(s.ctx, sim.ID, ActivateParams{})
	s.Require().NoError(err)
	return out
}

func (s *LifecycleSuite) history(simID uuid.UUID) []*models.SimEvent {
	events, err := s.events.ListBySim(s.ctx, simID)
	s.Require().NoError(err)
	return events
}

func (s *LifecycleSuite) TestReserve() {
	s.Run("reserves available sim and records two events", func() {
		sim := s.newSim()
		customerID := uuid.New()

		out, err := s.service.Reserve(s.ctx, sim.ID, customerID)
		s.Require().NoError(err)
		s.Equal(models.StatusReserved, out.Status)
		s.Require().NotNil(out.CustomerID)
		s.Equal(customerID, *out.CustomerID)

		events := s.history(sim.ID)
		s.Require().Len(events, 3) // CREATED + ASSIGNED + STATUS_CHANGED
		s.Equal(models.EventAssigned, events[1].Type)
		s.Equal(models.EventStatusChanged, events[2].Type)
		s.Require().NotNil(events[2].OldStatus)
		s.Equal(models.StatusAvailable, *events[2].OldStatus)
		s.Equal(models.StatusReserved, *events[2].NewStatus)
	})

	s.Run("rejects reserving a reserved sim", func() {
		sim := s.newSim()
		_, err := s.service.Reserve(s.ctx, sim.ID, uuid.New())
		s.Require().NoError(err)

		_, err = s.service.Reserve(s.ctx, sim.ID, uuid.New())
		s.Require().Error(err)
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
	})

	s.Run("unknown sim is not found", func() {
		_, err := s.service.Reserve(s.ctx, uuid.New(), uuid.New())
		s.True(simerrors.HasCode(err, simerrors.CodeNotFound))
	})
}

func (s *LifecycleSuite) TestActivate() {
	s.Run("activates reserved sim", func() {
		sim := s.newSim()
		customerID := uuid.New()
		_, err := s.service.Reserve(s.ctx, sim.ID, customerID)
		s.Require().NoError(err)

		out, err := s.service.Activate(s.ctx, sim.ID, ActivateParams{})
		s.Require().NoError(err)
		s.Equal(models.StatusActive, out.Status)
		s.Equal(customerID, *out.CustomerID)

		events := s.history(sim.ID)
		last := events[len(events)-1]
		s.Equal(models.EventActivated, last.Type)
		s.Equal(models.StatusReserved, *last.OldStatus)
		s.Equal(models.StatusActive, *last.NewStatus)
	})

	s.Run("activates available sim when a customer is supplied", func() {
		sim := s.newSim()
		customerID := uuid.New()

		out, err := s.service.Activate(s.ctx, sim.ID, ActivateParams{CustomerID: &customerID})
		s.Require().NoError(err)
		s.Equal(models.StatusActive, out.Status)
		s.Equal(customerID, *out.CustomerID)
	})

	s.Run("refuses to activate without a customer", func() {
		sim := s.newSim()
		before := len(s.history(sim.ID))

		_, err := s.service.Activate(s.ctx, sim.ID, ActivateParams{})
		s.Require().Error(err)
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
		s.Len(s.history(sim.ID), before)
	})

	s.Run("consumes an unused activation code", func() {
		sim := s.newSim()
		customerID := uuid.New()
		expires := time.Now().Add(time.Hour)
		s.codes.Put(&models.ActivationCode{Code: "CODE-1", Status: models.CodeUnused, ExpiresAt: &expires})

		code := "CODE-1"
		_, err := s.service.Activate(s.ctx, sim.ID, ActivateParams{Code: &code, CustomerID: &customerID})
		s.Require().NoError(err)

		ac, err := s.codes.Get(s.ctx, "CODE-1")
		s.Require().NoError(err)
		s.Equal(models.CodeUsed, ac.Status)
		s.Require().NotNil(ac.SimCardID)
		s.Equal(sim.ID, *ac.SimCardID)
	})

	s.Run("rejects used and expired codes without touching the sim", func() {
		expired := time.Now().Add(-time.Minute)
		s.codes.Put(&models.ActivationCode{Code: "OLD", Status: models.CodeUnused, ExpiresAt: &expired})
		s.codes.Put(&models.ActivationCode{Code: "SPENT", Status: models.CodeUsed})

		for _, code := range []string{"OLD", "SPENT", "MISSING"} {
			sim := s.newSim()
			customerID := uuid.New()
			before := len(s.history(sim.ID))

			_, err := s.service.Activate(s.ctx, sim.ID, ActivateParams{Code: &code, CustomerID: &customerID})
			s.Require().Error(err, "code %s", code)
			s.True(simerrors.HasCode(err, simerrors.CodeCodeUnusable), "code %s", code)

			got, err := s.service.Get(s.ctx, sim.ID)
			s.Require().NoError(err)
			s.Equal(models.StatusAvailable, got.Status)
			s.Len(s.history(sim.ID), before)
		}
	})
}

func (s *LifecycleSuite) TestSuspendResume() {
	customerID := uuid.New()
	sim := s.activeSim(customerID)

	out, err := s.service.Suspend(s.ctx, sim.ID, "fraud suspicion")
	s.Require().NoError(err)
	s.Equal(models.StatusSuspended, out.Status)

	events := s.history(sim.ID)
	last := events[len(events)-1]
	s.Equal(models.EventSuspended, last.Type)
	s.Equal("fraud suspicion", last.Note)

	out, err = s.service.Resume(s.ctx, sim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, out.Status)
	s.Equal(customerID, *out.CustomerID)
}

func (s *LifecycleSuite) TestSuspendUnassignedSimFails() {
	sim := s.newSim()
	before := s.history(sim.ID)

	_, err := s.service.Suspend(s.ctx, sim.ID, "fraud")
	s.Require().Error(err)
	s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))

	// Failed validation leaves status, updatedAt and event count unchanged.
	got, err := s.service.Get(s.ctx, sim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAvailable, got.Status)
	s.Equal(sim.UpdatedAt, got.UpdatedAt)
	s.Len(s.history(sim.ID), len(before))
}

func (s *LifecycleSuite) TestReportLost() {
	for _, setup := range []func() *models.SimCard{
		func() *models.SimCard { return s.activeSim(uuid.New()) },
		func() *models.SimCard {
			sim := s.newSim()
			out, err := s.service.Reserve(s.ctx, sim.ID, uuid.New())
			s.Require().NoError(err)
			return out
		},
	} {
		sim := setup()
		out, err := s.service.ReportLost(s.ctx, sim.ID, "stolen wallet")
		s.Require().NoError(err)
		s.Equal(models.StatusLostStolen, out.Status)
	}

	// AVAILABLE sims cannot be reported lost.
	sim := s.newSim()
	_, err := s.service.ReportLost(s.ctx, sim.ID, "x")
	s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
}

func (s *LifecycleSuite) TestTerminate() {
	s.Run("terminates and clears customer", func() {
		sim := s.activeSim(uuid.New())

		out, err := s.service.Terminate(s.ctx, sim.ID, "contract ended")
		s.Require().NoError(err)
		s.Equal(models.StatusTerminated, out.Status)
		s.Nil(out.CustomerID)

		events := s.history(sim.ID)
		last := events[len(events)-1]
		s.Equal(models.EventTerminated, last.Type)
		s.Equal("contract ended", last.Note)
	})

	s.Run("terminated is absorbing", func() {
		sim := s.newSim()
		_, err := s.service.Terminate(s.ctx, sim.ID, "scrap")
		s.Require().NoError(err)
		countAfterTerminate := len(s.history(sim.ID))

		_, err = s.service.Reserve(s.ctx, sim.ID, uuid.New())
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
		_, err = s.service.Activate(s.ctx, sim.ID, ActivateParams{})
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
		_, err = s.service.Suspend(s.ctx, sim.ID, "x")
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
		_, err = s.service.Resume(s.ctx, sim.ID)
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
		_, err = s.service.ReportLost(s.ctx, sim.ID, "x")
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))
		_, err = s.service.Terminate(s.ctx, sim.ID, "again")
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition))

		s.Len(s.history(sim.ID), countAfterTerminate)
	})
}

// TestAuditTrailConsistency checks the global audit properties: the current
// status always equals the newStatus of the most recent status event, and
// every recorded edge is in the transition table.
func (s *LifecycleSuite) TestAuditTrailConsistency() {
	customerID := uuid.New()
	sim := s.newSim()

	_, err := s.service.Reserve(s.ctx, sim.ID, customerID)
	s.Require().NoError(err)
	_, err = s.service.Activate(s.ctx, sim.ID, ActivateParams{})
	s.Require().NoError(err)
	_, err = s.service.Suspend(s.ctx, sim.ID, "roaming abuse")
	s.Require().NoError(err)
	_, err = s.service.Resume(s.ctx, sim.ID)
	s.Require().NoError(err)
	_, err = s.service.Terminate(s.ctx, sim.ID, "done")
	s.Require().NoError(err)

	current, err := s.service.Get(s.ctx, sim.ID)
	s.Require().NoError(err)

	events := s.history(sim.ID)
	edges := models.LegalEdges()
	var lastStatus *models.Status
	var lastSeq int64
	for _, ev := range events {
		s.Greater(ev.Seq, lastSeq, "seq must be strictly increasing")
		lastSeq = ev.Seq
		if ev.NewStatus == nil {
			continue
		}
		s.Require().NotNil(ev.OldStatus)
		s.True(edges[[2]models.Status{*ev.OldStatus, *ev.NewStatus}],
			"edge %s -> %s not in transition table", *ev.OldStatus, *ev.NewStatus)
		if lastStatus != nil {
			s.Equal(*lastStatus, *ev.OldStatus, "gap in status history")
		}
		lastStatus = ev.NewStatus
	}
	s.Require().NotNil(lastStatus)
	s.Equal(current.Status, *lastStatus)
}

// TestConcurrentActivation drives two concurrent activations of the same
// AVAILABLE SIM: exactly one must win and exactly one ACTIVATED event must
// be recorded.
func (s *LifecycleSuite) TestConcurrentActivation() {
	sim := s.newSim()
	customerID := uuid.New()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Activate(s.ctx, sim.ID, ActivateParams{CustomerID: &customerID})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(simerrors.HasCode(err, simerrors.CodeInvalidTransition) ||
			simerrors.HasCode(err, simerrors.CodeConflict), "unexpected error: %v", err)
	}
	s.Equal(1, succeeded)

	activated := 0
	for _, ev := range s.history(sim.ID) {
		if ev.Type == models.EventActivated {
			activated++
		}
	}
	s.Equal(1, activated)
}

// commitFailRunner runs the transaction body, then fails the way tx.SQL
// does when the store is gone at commit time.
type commitFailRunner struct {
	inner tx.Runner
}

func (r commitFailRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := r.inner.RunInTx(ctx, fn); err != nil {
		return err
	}
	return fmt.Errorf("commit transaction: %w", sentinel.ErrUnavailable)
}

// TestCommitFailureSurfacesAsUnavailable pins the error taxonomy on the
// commit path: a store that cannot commit must surface CodeUnavailable to
// the caller on every operation shape, never an internal error.
func (s *LifecycleSuite) TestCommitFailureSurfacesAsUnavailable() {
	// The serial runner has no rollback, so every operation gets its own
	// fixture SIM in the state its transition expects.
	customerID := uuid.New()
	svc := New(s.sims, s.events, s.codes, commitFailRunner{inner: tx.NewSerial()})

	_, err := svc.Reserve(s.ctx, s.newSim().ID, customerID)
	s.True(simerrors.HasCode(err, simerrors.CodeUnavailable), "reserve: %v", err)

	_, err = svc.Activate(s.ctx, s.newSim().ID, ActivateParams{CustomerID: &customerID})
	s.True(simerrors.HasCode(err, simerrors.CodeUnavailable), "activate: %v", err)

	_, err = svc.Suspend(s.ctx, s.activeSim(customerID).ID, "outage drill")
	s.True(simerrors.HasCode(err, simerrors.CodeUnavailable), "suspend: %v", err)

	_, err = svc.Swap(s.ctx, s.activeSim(customerID).ID, s.newSim().ID, customerID)
	s.True(simerrors.HasCode(err, simerrors.CodeUnavailable), "swap: %v", err)
}

func (s *LifecycleSuite) TestHistoryUnknownSim() {
	_, err := s.service.History(s.ctx, uuid.New())
	s.True(simerrors.HasCode(err, simerrors.CodeNotFound))
}

func (s *LifecycleSuite) TestList() {
	for range 3 {
		s.newSim()
	}
	sim := s.activeSim(uuid.New())

	active := models.StatusActive
	sims, total, err := s.service.List(s.ctx, models.ListFilter{Status: &active})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(sims, 1)
	s.Equal(sim.ID, sims[0].ID)

	sims, total, err = s.service.List(s.ctx, models.ListFilter{Search: sim.ICCID[:10]})
	s.Require().NoError(err)
	s.GreaterOrEqual(total, 1)
	s.NotEmpty(sims)

	bogus := models.Status("BOGUS")
	_, _, err = s.service.List(s.ctx, models.ListFilter{Status: &bogus})
	s.True(simerrors.HasCode(err, simerrors.CodeValidation))
}
