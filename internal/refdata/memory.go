package refdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
)

// Memory is an in-memory reference data store for tests and local runs.
type Memory struct {
	mu        sync.RWMutex
	customers map[string]*Customer // by ID string
	emails    map[string]struct{}
	plans     map[string]*TariffPlan
	planNames map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		customers: make(map[string]*Customer),
		emails:    make(map[string]struct{}),
		plans:     make(map[string]*TariffPlan),
		planNames: make(map[string]struct{}),
	}
}

func (s *Memory) CreateCustomer(ctx context.Context, c *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Email != nil {
		key := strings.ToLower(*c.Email)
		if _, taken := s.emails[key]; taken {
			return fmt.Errorf("customer email: %w", sentinel.ErrAlreadyUsed)
		}
		s.emails[key] = struct{}{}
	}
	cp := *c
	s.customers[c.ID.String()] = &cp
	return nil
}

func (s *Memory) ListCustomers(ctx context.Context) ([]*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Customer, 0, len(s.customers))
	for _, c := range s.customers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Memory) CreatePlan(ctx context.Context, p *TariffPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(p.Name)
	if _, taken := s.planNames[key]; taken {
		return fmt.Errorf("plan name: %w", sentinel.ErrAlreadyUsed)
	}
	s.planNames[key] = struct{}{}
	cp := *p
	s.plans[p.ID.String()] = &cp
	return nil
}

func (s *Memory) ListPlans(ctx context.Context) ([]*TariffPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*TariffPlan, 0, len(s.plans))
	for _, p := range s.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
