package activationcode

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
)

// Memory is an in-memory activation code store for tests.
type Memory struct {
	mu    sync.RWMutex
	codes map[string]*models.ActivationCode
}

func NewMemory() *Memory {
	return &Memory{codes: make(map[string]*models.ActivationCode)}
}

// Put seeds a code. Test helper; production codes come from provisioning.
func (s *Memory) Put(code *models.ActivationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *code
	s.codes[code.Code] = &cp
}

func (s *Memory) Get(ctx context.Context, code string) (*models.ActivationCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ac, ok := s.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *ac
	return &cp, nil
}

func (s *Memory) MarkUsed(ctx context.Context, code string, simID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ac, ok := s.codes[code]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ac.Status != models.CodeUnused {
		return sentinel.ErrInvalidState
	}
	ac.Status = models.CodeUsed
	ac.SimCardID = &simID
	ac.UsedAt = &now
	return nil
}
