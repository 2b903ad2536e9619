package event

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
)

// Memory is an in-memory event store. Append-only: nothing here ever
// mutates or removes a stored event.
type Memory struct {
	mu     sync.RWMutex
	nextSq int64
	events map[uuid.UUID][]*models.SimEvent
}

func NewMemory() *Memory {
	return &Memory{events: make(map[uuid.UUID][]*models.SimEvent)}
}

func (s *Memory) Append(ctx context.Context, ev *models.SimEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSq++
	ev.Seq = s.nextSq

	stored := *ev
	s.events[ev.SimCardID] = append(s.events[ev.SimCardID], &stored)
	return nil
}

func (s *Memory) ListBySim(ctx context.Context, simID uuid.UUID) ([]*models.SimEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.events[simID]
	out := make([]*models.SimEvent, len(src))
	for i, ev := range src {
		cp := *ev
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}
