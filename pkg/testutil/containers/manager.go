//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager shares expensive containers across test suites within one test
// binary. Ryuk reaps them when the run ends.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// GetPostgres returns the shared Postgres container, starting it on first
// use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}
