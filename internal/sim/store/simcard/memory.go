package simcard

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
)

// Memory is an in-memory SimCard store for unit tests and local development.
// Uniqueness of ICCID/MSISDN is enforced the same way the database does it,
// so allocator retry paths behave identically. Atomicity across stores comes
// from running mutations through tx.Serial.
type Memory struct {
	mu      sync.RWMutex
	sims    map[uuid.UUID]*models.SimCard
	iccids  map[string]uuid.UUID
	msisdns map[string]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		sims:    make(map[uuid.UUID]*models.SimCard),
		iccids:  make(map[string]uuid.UUID),
		msisdns: make(map[string]uuid.UUID),
	}
}

func (s *Memory) Create(ctx context.Context, sim *models.SimCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sims[sim.ID]; exists {
		return &sentinel.UniqueViolation{Column: "id"}
	}
	if _, taken := s.iccids[sim.ICCID]; taken {
		return &sentinel.UniqueViolation{Column: "iccid"}
	}
	if sim.MSISDN != nil {
		if _, taken := s.msisdns[*sim.MSISDN]; taken {
			return &sentinel.UniqueViolation{Column: "msisdn"}
		}
	}

	s.sims[sim.ID] = sim.Clone()
	s.iccids[sim.ICCID] = sim.ID
	if sim.MSISDN != nil {
		s.msisdns[*sim.MSISDN] = sim.ID
	}
	return nil
}

func (s *Memory) Get(ctx context.Context, id uuid.UUID) (*models.SimCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sim, ok := s.sims[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sim.Clone(), nil
}

// GetForUpdate matches the Postgres signature; serialization is the caller's
// tx.Serial runner, so a plain read suffices here.
func (s *Memory) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.SimCard, error) {
	return s.Get(ctx, id)
}

func (s *Memory) Update(ctx context.Context, sim *models.SimCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.sims[sim.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Check the new MSISDN before touching the index so a rejected update
	// leaves the persisted number still claimed.
	if sim.MSISDN != nil {
		if owner, taken := s.msisdns[*sim.MSISDN]; taken && owner != sim.ID {
			return &sentinel.UniqueViolation{Column: "msisdn"}
		}
	}
	if prev.MSISDN != nil {
		delete(s.msisdns, *prev.MSISDN)
	}
	if sim.MSISDN != nil {
		s.msisdns[*sim.MSISDN] = sim.ID
	}
	s.sims[sim.ID] = sim.Clone()
	return nil
}

func (s *Memory) List(ctx context.Context, filter models.ListFilter) ([]*models.SimCard, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.SimCard
	for _, sim := range s.sims {
		if filter.Status != nil && sim.Status != *filter.Status {
			continue
		}
		if filter.Search != "" {
			hit := strings.Contains(sim.ICCID, filter.Search) ||
				(sim.MSISDN != nil && strings.Contains(*sim.MSISDN, filter.Search))
			if !hit {
				continue
			}
		}
		if filter.Carrier != "" && !strings.Contains(strings.ToLower(sim.Carrier), strings.ToLower(filter.Carrier)) {
			continue
		}
		matched = append(matched, sim.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}
