package simcard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/OlyRIO/sim-erp-app/internal/sim/identifier"
	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Memory
	gen   identifier.Generator
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
	s.gen = identifier.NewGenerator()
}

func (s *MemoryStoreSuite) newSim() *models.SimCard {
	msisdn := s.gen.MSISDN()
	sim, err := models.NewSimCard(uuid.New(), s.gen.ICCID(), &msisdn, nil, time.Now())
	s.Require().NoError(err)
	return sim
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	sim := s.newSim()
	s.Require().NoError(s.store.Create(s.ctx, sim))

	found, err := s.store.Get(s.ctx, sim.ID)
	s.Require().NoError(err)
	s.Equal(sim.ICCID, found.ICCID)

	_, err = s.store.Get(s.ctx, uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestUniqueConstraints() {
	s.Run("duplicate iccid", func() {
		sim := s.newSim()
		s.Require().NoError(s.store.Create(s.ctx, sim))

		dup := s.newSim()
		dup.ICCID = sim.ICCID
		err := s.store.Create(s.ctx, dup)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		var uv *sentinel.UniqueViolation
		s.Require().ErrorAs(err, &uv)
		s.Equal("iccid", uv.Column)
	})

	s.Run("duplicate msisdn", func() {
		sim := s.newSim()
		s.Require().NoError(s.store.Create(s.ctx, sim))

		dup := s.newSim()
		dup.MSISDN = sim.MSISDN
		err := s.store.Create(s.ctx, dup)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		var uv *sentinel.UniqueViolation
		s.Require().ErrorAs(err, &uv)
		s.Equal("msisdn", uv.Column)
	})

	s.Run("nil msisdn never collides", func() {
		a, b := s.newSim(), s.newSim()
		a.MSISDN, b.MSISDN = nil, nil
		s.Require().NoError(s.store.Create(s.ctx, a))
		s.Require().NoError(s.store.Create(s.ctx, b))
	})
}

func (s *MemoryStoreSuite) TestUpdate() {
	sim := s.newSim()
	s.Require().NoError(s.store.Create(s.ctx, sim))

	customerID := uuid.New()
	sim.Status = models.StatusReserved
	sim.CustomerID = &customerID
	s.Require().NoError(s.store.Update(s.ctx, sim))

	found, err := s.store.Get(s.ctx, sim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReserved, found.Status)
	s.Equal(customerID, *found.CustomerID)

	missing := s.newSim()
	s.Require().ErrorIs(s.store.Update(s.ctx, missing), sentinel.ErrNotFound)
}

// TestUpdateMSISDNConflictKeepsIndex pins the error path of Update: a
// rejected MSISDN change must leave the sim's persisted number claimed.
func (s *MemoryStoreSuite) TestUpdateMSISDNConflictKeepsIndex() {
	a, b := s.newSim(), s.newSim()
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))

	kept := *b.MSISDN
	b.MSISDN = a.MSISDN
	err := s.store.Update(s.ctx, b)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	// b still holds its original number, so a third sim cannot take it.
	c := s.newSim()
	c.MSISDN = &kept
	s.Require().ErrorIs(s.store.Create(s.ctx, c), sentinel.ErrAlreadyUsed)
}

func (s *MemoryStoreSuite) TestStoredSimsAreIsolated() {
	sim := s.newSim()
	s.Require().NoError(s.store.Create(s.ctx, sim))

	found, err := s.store.Get(s.ctx, sim.ID)
	s.Require().NoError(err)
	found.Status = models.StatusTerminated

	again, err := s.store.Get(s.ctx, sim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAvailable, again.Status)
}

func (s *MemoryStoreSuite) TestList() {
	var active *models.SimCard
	for i := range 5 {
		sim := s.newSim()
		sim.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if i == 0 {
			customerID := uuid.New()
			sim.Status = models.StatusActive
			sim.CustomerID = &customerID
			active = sim
		}
		s.Require().NoError(s.store.Create(s.ctx, sim))
	}

	s.Run("status filter", func() {
		st := models.StatusActive
		sims, total, err := s.store.List(s.ctx, models.ListFilter{Status: &st})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Require().Len(sims, 1)
		s.Equal(active.ID, sims[0].ID)
	})

	s.Run("search by iccid fragment", func() {
		sims, total, err := s.store.List(s.ctx, models.ListFilter{Search: active.ICCID[5:12]})
		s.Require().NoError(err)
		s.GreaterOrEqual(total, 1)
		s.NotEmpty(sims)
	})

	s.Run("carrier filter is a case-insensitive substring match", func() {
		sims, total, err := s.store.List(s.ctx, models.ListFilter{Carrier: strings.ToUpper(active.Carrier[:5])})
		s.Require().NoError(err)
		s.GreaterOrEqual(total, 1)
		for _, sim := range sims {
			s.Contains(strings.ToLower(sim.Carrier), strings.ToLower(active.Carrier[:5]))
		}

		_, total, err = s.store.List(s.ctx, models.ListFilter{Carrier: "no such carrier"})
		s.Require().NoError(err)
		s.Zero(total)
	})

	s.Run("pagination", func() {
		sims, total, err := s.store.List(s.ctx, models.ListFilter{Limit: 2})
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Len(sims, 2)

		rest, _, err := s.store.List(s.ctx, models.ListFilter{Offset: 4, Limit: 2})
		s.Require().NoError(err)
		s.Len(rest, 1)

		none, _, err := s.store.List(s.ctx, models.ListFilter{Offset: 50, Limit: 2})
		s.Require().NoError(err)
		s.Empty(none)
	})

	s.Run("newest first", func() {
		sims, _, err := s.store.List(s.ctx, models.ListFilter{Limit: 5})
		s.Require().NoError(err)
		for i := 1; i < len(sims); i++ {
			s.False(sims[i].CreatedAt.After(sims[i-1].CreatedAt))
		}
	})
}
