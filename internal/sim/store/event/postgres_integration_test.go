//go:build integration

package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/OlyRIO/sim-erp-app/internal/sim/identifier"
	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/event"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/simcard"
	"github.com/OlyRIO/sim-erp-app/pkg/testutil/containers"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

type EventPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	sims     *simcard.Postgres
	store    *event.Postgres
	runner   *tx.SQL
	gen      identifier.Generator
}

func TestEventPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(EventPostgresSuite))
}

func (s *EventPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.sims = simcard.NewPostgres(s.postgres.DB)
	s.store = event.NewPostgres(s.postgres.DB)
	s.runner = tx.NewSQL(s.postgres.DB, 5*time.Second)
	s.gen = identifier.NewGenerator()
}

func (s *EventPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "sim_events", "sim_cards")
	s.Require().NoError(err)
}

func (s *EventPostgresSuite) createSim() *models.SimCard {
	sim, err := models.NewSimCard(uuid.New(), s.gen.ICCID(), nil, nil, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.sims.Create(context.Background(), sim))
	return sim
}

// TestSeqOrdersSameTimestampEvents pins the property the audit trail
// depends on: two events with identical created_at still come back in
// insertion order.
func (s *EventPostgresSuite) TestSeqOrdersSameTimestampEvents() {
	ctx := context.Background()
	sim := s.createSim()
	now := time.Now().UTC().Truncate(time.Second)

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, note := range []string{"first", "second", "third"} {
			ev := models.NewEvent(sim.ID, models.EventCreated, note, now)
			if err := s.store.Append(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)

	events, err := s.store.ListBySim(ctx, sim.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 3)

	s.Equal("first", events[0].Note)
	s.Equal("second", events[1].Note)
	s.Equal("third", events[2].Note)
	s.Less(events[0].Seq, events[1].Seq)
	s.Less(events[1].Seq, events[2].Seq)
}

func (s *EventPostgresSuite) TestRollbackDiscardsEvents() {
	ctx := context.Background()
	sim := s.createSim()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Append(ctx, models.NewEvent(sim.ID, models.EventCreated, "", time.Now().UTC())); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Require().Error(err)

	events, err := s.store.ListBySim(ctx, sim.ID)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *EventPostgresSuite) TestStatusEventRoundTrip() {
	ctx := context.Background()
	sim := s.createSim()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		ev := models.NewStatusEvent(sim.ID, models.EventStatusChanged, models.StatusAvailable, models.StatusReserved, "customer abc", time.Now().UTC())
		return s.store.Append(ctx, ev)
	})
	s.Require().NoError(err)

	events, err := s.store.ListBySim(ctx, sim.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)

	ev := events[0]
	s.Equal(models.EventStatusChanged, ev.Type)
	s.Require().NotNil(ev.OldStatus)
	s.Require().NotNil(ev.NewStatus)
	s.Equal(models.StatusAvailable, *ev.OldStatus)
	s.Equal(models.StatusReserved, *ev.NewStatus)
	s.Equal("customer abc", ev.Note)
}
